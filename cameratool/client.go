// Package cameratool drives the external CameraTool binary, which turns an
// image point into a room coordinate (-Ip) and extracts video frames (-E).
//
// The tool is a black box: framemark passes positional arguments and reads a
// single JSON object from stdout.
package cameratool

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/geom"
	"github.com/teranos/framemark/logger"
)

// DefaultTimeout bounds a single tool invocation when none is configured.
const DefaultTimeout = 30 * time.Second

// TransformRequest is one image point to resolve.
type TransformRequest struct {
	Point           geom.Point
	Origin          geom.Point
	LensFile        string
	PerspectiveFile string
}

// Transformer converts an image point into raw room coordinates.
type Transformer interface {
	Transform(ctx context.Context, req TransformRequest) (geom.Point, error)
}

// Extractor writes a video's frames into a directory as N.jpg.
type Extractor interface {
	Extract(ctx context.Context, video, dir string) error
}

// Client runs the tool as a subprocess. It implements Transformer and Extractor.
type Client struct {
	command []string
	timeout time.Duration
	logger  *zap.SugaredLogger
}

// New parses command with shell quoting rules, so wrappers such as
// "wine 'C:/Program Files/CameraTool.exe'" work.
func New(command string, timeout time.Duration) (*Client, error) {
	args, err := shellquote.Split(command)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse camera tool command %q", command)
	}
	if len(args) == 0 {
		return nil, errors.WithHint(
			errors.NewInvalidRequestError("camera tool command is empty"),
			"set camera_tool.path in am.toml or FRAMEMARK_CAMERA_TOOL_PATH",
		)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		command: args,
		timeout: timeout,
		logger:  logger.ComponentLogger("cameratool"),
	}, nil
}

// Transform runs "-Ip px py ox oy lens persp" and parses {"x":..,"y":..}.
func (c *Client) Transform(ctx context.Context, req TransformRequest) (geom.Point, error) {
	if !req.Point.IsValid() || !req.Origin.IsValid() {
		return geom.Point{}, errors.NewInvalidRequestError("point and origin must both be set")
	}
	px, py := req.Point.XY()
	ox, oy := req.Origin.XY()

	out, err := c.run(ctx, "-Ip",
		formatFloat(px), formatFloat(py),
		formatFloat(ox), formatFloat(oy),
		req.LensFile, req.PerspectiveFile,
	)
	if err != nil {
		failed := errors.Wrap(errors.ErrTransformFailed, err.Error())
		for _, d := range errors.GetAllDetails(err) {
			failed = errors.WithDetail(failed, d)
		}
		return geom.Point{}, failed
	}

	p, err := parsePoint(out)
	if err != nil {
		return geom.Point{}, errors.WithDetailf(
			errors.Wrap(errors.ErrTransformFailed, err.Error()),
			"stdout: %s", strings.TrimSpace(string(out)),
		)
	}
	return p, nil
}

// Extract runs "-E video dir".
func (c *Client) Extract(ctx context.Context, video, dir string) error {
	if _, err := c.run(ctx, "-E", video, dir); err != nil {
		return errors.Wrapf(err, "failed to extract frames from %s", video)
	}
	return nil
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	argv := append(append([]string(nil), c.command[1:]...), args...)
	cmd := exec.CommandContext(ctx, c.command[0], argv...)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	c.logger.Debugw("Camera tool finished",
		logger.FieldBinary, c.command[0],
		"args", argv,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	if logger.TraceEnabled() {
		c.logger.Debugw("Camera tool output", "stdout", stdout.String(), "stderr", stderr.String())
	}

	if err != nil {
		if ctx.Err() != nil {
			err = errors.Wrapf(ctx.Err(), "camera tool %s did not finish", c.command[0])
		} else {
			err = errors.Wrapf(err, "camera tool %s failed", c.command[0])
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = errors.WithDetailf(err, "stderr: %s", msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// parsePoint reads the last non-empty stdout line as {"x":..,"y":..}.
func parsePoint(out []byte) (geom.Point, error) {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return geom.Point{}, errors.New("camera tool printed nothing")
	}

	var p geom.Point
	if err := json.Unmarshal([]byte(last), &p); err != nil {
		return geom.Point{}, errors.Wrap(err, "camera tool output is not a JSON point")
	}
	if !p.IsValid() {
		return geom.Point{}, errors.Newf("camera tool returned an incomplete point: %s", last)
	}
	return p, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
