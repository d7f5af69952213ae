package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/teranos/framemark/annotation"
	"github.com/teranos/framemark/calibration"
	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/geom"
)

// VarsFileName is the per-workspace settings file inside the workspace directory.
const VarsFileName = "workspace.json"

// Sequence names the recording session.
type Sequence struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// VideoInfo names one camera's video within a sequence.
type VideoInfo struct {
	Increment string `json:"increment"`
	Camera    int    `json:"camera"`
}

// Vars is the content of workspace.json. RoomSize and ZoneFile are optional.
type Vars struct {
	Sequence                   Sequence               `json:"sequence"`
	Video                      VideoInfo              `json:"video"`
	LensCalibrationFile        string                 `json:"lensCalibrationFile"`
	PerspectiveCalibrationFile string                 `json:"perspectiveCalibrationFile"`
	ImageOrigin                geom.Point             `json:"imageOrigin"`
	FlipOrigin                 calibration.FlipOrigin `json:"flipOrigin"`
	SwitchOrigin               bool                   `json:"switchOrigin"`
	RoomSize                   *geom.Point            `json:"roomSize,omitempty"`
	ZoneFile                   string                 `json:"zoneFile,omitempty"`
}

// Match returns the sequence/video an annotation file must carry to load here.
func (v *Vars) Match() annotation.Match {
	return annotation.Match{
		Number:    v.Sequence.Number,
		Name:      v.Sequence.Name,
		Increment: v.Video.Increment,
		Camera:    v.Video.Camera,
	}
}

// Calibration converts the stored fields, applying the default room size.
// Zones are not loaded.
func (v *Vars) Calibration() calibration.Calibration {
	c := calibration.Default()
	c.LensFile = v.LensCalibrationFile
	c.PerspectiveFile = v.PerspectiveCalibrationFile
	c.ImageOrigin = v.ImageOrigin.Clone()
	c.Flip = v.FlipOrigin
	c.Switch = v.SwitchOrigin
	c.ZoneFile = v.ZoneFile
	if v.RoomSize != nil && v.RoomSize.IsValid() {
		c.RoomSize = v.RoomSize.Clone()
	}
	return c
}

// NewVars builds workspace.json content. The room size is written only when
// it differs from the default.
func NewVars(m annotation.Match, c calibration.Calibration) *Vars {
	v := &Vars{
		Sequence:                   Sequence{Number: m.Number, Name: m.Name},
		Video:                      VideoInfo{Increment: m.Increment, Camera: m.Camera},
		LensCalibrationFile:        c.LensFile,
		PerspectiveCalibrationFile: c.PerspectiveFile,
		ImageOrigin:                c.ImageOrigin.Clone(),
		FlipOrigin:                 c.Flip,
		SwitchOrigin:               c.Switch,
		ZoneFile:                   c.ZoneFile,
	}
	if !c.RoomSize.Equal(calibration.Default().RoomSize) {
		size := c.RoomSize.Clone()
		v.RoomSize = &size
	}
	return v
}

// ReadVars loads workspace.json.
func ReadVars(path string) (*Vars, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read workspace file %s", path)
	}
	var v Vars
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrapf(err, "failed to decode workspace file %s", path)
	}
	return &v, nil
}

// WriteVars saves workspace.json.
func WriteVars(path string, v *Vars) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return errors.Wrap(err, "failed to encode workspace file")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return errors.Wrapf(err, "failed to create workspace directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write workspace file %s", path)
	}
	return nil
}

// ParseVideoContext reads sequence and video identity from a video file name
// shaped like "seq3_walk_002_cam1.mkv": the sequence number is the last digit
// of the first part, then name and increment, and the camera is the last
// digit of the fourth part.
func ParseVideoContext(videoPath string) (annotation.Match, error) {
	base := filepath.Base(videoPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	parts := strings.Split(base, "_")
	if len(parts) < 4 {
		return annotation.Match{}, errors.WithHint(
			errors.NewInvalidRequestError("video name %q has %d parts, want 4", filepath.Base(videoPath), len(parts)),
			"name videos <seqN>_<name>_<increment>_<camN>.<ext>",
		)
	}

	number, err := lastDigit(parts[0])
	if err != nil {
		return annotation.Match{}, errors.Wrapf(err, "sequence in %q", base)
	}
	camera, err := lastDigit(parts[3])
	if err != nil {
		return annotation.Match{}, errors.Wrapf(err, "camera in %q", base)
	}

	return annotation.Match{Number: number, Name: parts[1], Increment: parts[2], Camera: camera}, nil
}

func lastDigit(s string) (int, error) {
	if s == "" {
		return 0, errors.NewInvalidRequestError("empty name part")
	}
	n, err := strconv.Atoi(s[len(s)-1:])
	if err != nil {
		return 0, errors.NewInvalidRequestError("%q does not end in a digit", s)
	}
	return n, nil
}
