package cameratool

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/geom"
)

// fakeTool writes a shell script standing in for CameraTool and returns its path.
func fakeTool(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake camera tool needs /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "CameraTool")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func request() TransformRequest {
	return TransformRequest{
		Point:           geom.Pt(320.5, 240),
		Origin:          geom.Pt(10, 20),
		LensFile:        "lens.xml",
		PerspectiveFile: "persp.xml",
	}
}

func TestTransformParsesPoint(t *testing.T) {
	tool := fakeTool(t, `echo "args: $*" >&2; echo "calibration loaded"; echo '{"x": 1234.5, "y": 987}'`)
	c, err := New(tool, time.Second)
	require.NoError(t, err)

	p, err := c.Transform(context.Background(), request())
	require.NoError(t, err)
	assert.True(t, p.Equal(geom.Pt(1234.5, 987)))
}

func TestTransformPassesPositionalArguments(t *testing.T) {
	out := filepath.Join(t.TempDir(), "args")
	tool := fakeTool(t, `echo "$*" > "`+out+`"; echo '{"x": 1, "y": 2}'`)
	c, err := New(tool, time.Second)
	require.NoError(t, err)

	_, err = c.Transform(context.Background(), request())
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "-Ip 320.5 240 10 20 lens.xml persp.xml", strings.TrimSpace(string(got)))
}

func TestTransformFailures(t *testing.T) {
	tests := []struct {
		name   string
		script string
		detail string
	}{
		{"non-zero exit", `echo "cannot open lens.xml" >&2; exit 3`, "cannot open lens.xml"},
		{"not JSON", `echo "Segmentation fault"`, "Segmentation fault"},
		{"incomplete point", `echo '{"x": 1}'`, ""},
		{"no output", `true`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(fakeTool(t, tt.script), time.Second)
			require.NoError(t, err)

			_, err = c.Transform(context.Background(), request())
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrTransformFailed))
			if tt.detail != "" {
				assert.Contains(t, strings.Join(errors.GetAllDetails(err), "\n"), tt.detail)
			}
		})
	}
}

func TestTransformTimeout(t *testing.T) {
	c, err := New(fakeTool(t, `exec sleep 5`), 50*time.Millisecond)
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Transform(context.Background(), request())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestTransformRejectsInvalidInput(t *testing.T) {
	c, err := New("CameraTool", time.Second)
	require.NoError(t, err)

	req := request()
	req.Origin = geom.EmptyPoint()
	_, err = c.Transform(context.Background(), req)
	assert.True(t, errors.IsInvalidRequestError(err))
}

func TestNewSplitsCommand(t *testing.T) {
	c, err := New(`wine "C:/Program Files/CameraTool.exe"`, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"wine", "C:/Program Files/CameraTool.exe"}, c.command)
	assert.Equal(t, DefaultTimeout, c.timeout)

	_, err = New("   ", 0)
	assert.True(t, errors.IsInvalidRequestError(err))

	_, err = New(`"unterminated`, 0)
	require.Error(t, err)
}

func TestExtractUsesWrapperCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	dst := t.TempDir()
	script := filepath.Join(t.TempDir(), "extract.sh")
	require.NoError(t, os.WriteFile(script, []byte(`[ "$1" = "-E" ] || exit 1; touch "$3/1.jpg" "$3/2.jpg"`), 0644))

	c, err := New("sh "+script, time.Second)
	require.NoError(t, err)
	require.NoError(t, c.Extract(context.Background(), "seq3_walk_002_cam1.mkv", dst))

	images, err := ReadImageDir(dst)
	require.NoError(t, err)
	assert.Len(t, images, 2)

	bad, err := New(fakeTool(t, "exit 1"), time.Second)
	require.NoError(t, err)
	require.Error(t, bad.Extract(context.Background(), "x.mkv", dst))
}

func TestReadImageDirSortsNumerically(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"10.jpg", "2.jpg", "1.jpg", "frame3.jpg", "4.png", "11.JPG"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "5.jpg"), 0755))

	images, err := ReadImageDir(dir)
	require.NoError(t, err)

	var names []string
	for _, p := range images {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{"1.jpg", "2.jpg", "10.jpg"}, names)
}

func TestReadImageDirEmpty(t *testing.T) {
	_, err := ReadImageDir(t.TempDir())
	assert.True(t, errors.Is(err, errors.ErrNoImages))

	_, err = ReadImageDir(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
