package calibration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/framemark/geom"
)

func TestCalibrated(t *testing.T) {
	c := Default()
	assert.False(t, c.Calibrated())

	c.LensFile = "/cal/lens.XML"
	c.PerspectiveFile = "/cal/persp.xml"
	assert.False(t, c.Calibrated(), "origin missing")

	c.ImageOrigin = geom.Pt(320, 240)
	assert.True(t, c.Calibrated())

	c.RoomSize = geom.EmptyPoint()
	assert.False(t, c.Calibrated())

	c.RoomSize = geom.Pt(6000, 4000)
	c.PerspectiveFile = "/cal/persp.xml.bak"
	assert.False(t, c.Calibrated())
}

func TestRemap(t *testing.T) {
	raw := geom.Pt(1000, 500)
	tests := []struct {
		name         string
		flip         FlipOrigin
		switchOrigin bool
		wantX, wantY float64
	}{
		{"identity", FlipOrigin{}, false, 1000, 500},
		{"flip x", FlipOrigin{X: true}, false, 5000, 500},
		{"flip y", FlipOrigin{Y: true}, false, 1000, 3500},
		{"switch", FlipOrigin{}, true, 500, 1000},
		{"switch then flip x", FlipOrigin{X: true}, true, 5500, 1000},
		{"switch then flip both", FlipOrigin{X: true, Y: true}, true, 5500, 3000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.Flip = tt.flip
			c.Switch = tt.switchOrigin
			x, y := c.Remap(raw)
			assert.Equal(t, tt.wantX, x)
			assert.Equal(t, tt.wantY, y)
		})
	}
}

func TestThresholdBoundaries(t *testing.T) {
	tests := []struct {
		x, y float64
		want string
	}{
		{0, 0, "A"},
		{1500, 1700, "A"},
		{1501, 1700, "C"},
		{1500, 1701, "B"},
		{3600, 1700, "C"},
		{3600, 4000, "B"},
		{3601, 4000, "D"},
		{6000, 4000, "D"},
		{6001, 4000, "N/A"},
		{100, 4001, "N/A"},
		{-1, 100, "C"},
	}
	c := ThresholdClassifier{}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(tt.x, tt.y), "(%v, %v)", tt.x, tt.y)
	}
}

func zoneA() Zone {
	return Zone{Label: "A", Area: []geom.Point{
		geom.Pt(0, 0), geom.Pt(1500, 0), geom.Pt(1500, 1700), geom.Pt(0, 1700),
	}}
}

func TestZoneContainsIsHalfOpen(t *testing.T) {
	z := zoneA()
	assert.True(t, z.Contains(0, 0))
	assert.True(t, z.Contains(1499.9, 1699.9))
	assert.False(t, z.Contains(1500, 10))
	assert.False(t, z.Contains(10, 1700))
	assert.False(t, z.Contains(-1, 10))
	assert.False(t, Zone{Label: "X"}.Contains(0, 0))
}

func TestNewClassifier(t *testing.T) {
	c, err := NewClassifier("", nil)
	require.NoError(t, err)
	assert.IsType(t, ThresholdClassifier{}, c)

	c, err = NewClassifier(ClassifierZones, nil)
	require.NoError(t, err)
	assert.IsType(t, ThresholdClassifier{}, c)

	c, err = NewClassifier(ClassifierZones, []Zone{zoneA()})
	require.NoError(t, err)
	assert.Equal(t, "A", c.Classify(10, 10))
	assert.Equal(t, "N/A", c.Classify(1600, 10))

	_, err = NewClassifier("polygon", nil)
	require.Error(t, err)
}

func TestLoadZonesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.json")
	body := `[{"label": "A", "area": [{"x": 0, "y": 0}, {"x": 1500, "y": 0}, {"x": 1500, "y": 1700}, {"x": 0, "y": 1700}]}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	zones, err := LoadZones(path)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, "A", zones[0].Label)
	assert.True(t, zones[0].Contains(10, 10))
}

func TestLoadZonesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.toml")
	body := `
[[zone]]
label = "B"
area = [{x = 0.0, y = 1700.0}, {x = 3600.0, y = 1700.0}, {x = 3600.0, y = 4000.0}, {x = 0.0, y = 4000.0}]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	zones, err := LoadZones(path)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, "B", zones[0].Label)
	assert.True(t, zones[0].Contains(100, 2000))
}

func TestLoadZonesErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadZones(filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	_, err = LoadZones(bad)
	require.Error(t, err)
}
