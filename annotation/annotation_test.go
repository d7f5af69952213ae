package annotation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/geom"
	"github.com/teranos/framemark/internal/util"
)

func samplePerson(id int, zone string) *Person {
	return &Person{
		ID:       util.Ptr(id),
		Obscured: id%2 == 0,
		Box:      geom.Box(10, 50, 20, 80),
		Location: Location{
			Virtual: geom.Pt(30, 75),
			Real:    geom.Pt(1200, 900),
			Zone:    zone,
		},
		Keyframe: true,
	}
}

func sampleVideo() *Video {
	v := NewVideo(3, "walking", "002", 1)
	f1 := NewFrame(1)
	f1.AddPerson(samplePerson(1, "A"))
	f1.AddPerson(&Person{Box: geom.EmptyBox()})
	f2 := NewFrame(2)
	f2.AddPerson(samplePerson(2, "D"))
	v.AddFrame(f1)
	v.AddFrame(f2)
	v.AddFrame(NewFrame(3))
	return v
}

func TestRoundTrip(t *testing.T) {
	v := sampleVideo()

	data, err := Marshal(v)
	require.NoError(t, err)

	got, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, v.Context(), got.Context())
	require.Len(t, got.Frames, 3)
	for i, f := range v.Frames {
		g := got.Frames[i]
		require.NotNil(t, g)
		assert.Equal(t, f.FrameNumber, g.FrameNumber)
		require.Len(t, g.People, len(f.People))
		for j, p := range f.People {
			q := g.People[j]
			assert.Equal(t, p.ID, q.ID)
			assert.Equal(t, p.Obscured, q.Obscured)
			assert.True(t, p.Box.Equal(q.Box), "frame %d person %d box", i, j)
			assert.True(t, p.Location.Virtual.Equal(q.Location.Virtual))
			assert.True(t, p.Location.Real.Equal(q.Location.Real))
			assert.Equal(t, p.Location.Zone, q.Location.Zone)
			assert.Equal(t, p.Keyframe, q.Keyframe)
		}
	}
}

func TestZoneNormalizesToNull(t *testing.T) {
	tests := []struct {
		zone string
		want interface{}
	}{
		{"A", "A"},
		{"D", "D"},
		{"N/A", nil},
		{"", nil},
		{"E", nil},
		{"a", nil},
	}
	for _, tt := range tests {
		t.Run(tt.zone, func(t *testing.T) {
			data, err := json.Marshal(samplePerson(1, tt.zone).ToDoc())
			require.NoError(t, err)

			var raw struct {
				Location map[string]interface{} `json:"location"`
			}
			require.NoError(t, json.Unmarshal(data, &raw))
			zone, present := raw.Location["zone"]
			assert.True(t, present, "zone key must always be written")
			assert.Equal(t, tt.want, zone)
		})
	}
}

func TestBoxWrittenAsCorners(t *testing.T) {
	data, err := json.Marshal(samplePerson(1, "A").ToDoc())
	require.NoError(t, err)

	var raw struct {
		Box map[string]map[string]float64 `json:"box"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, map[string]float64{"x": 10, "y": 20}, raw.Box["topLeft"])
	assert.Equal(t, map[string]float64{"x": 50, "y": 20}, raw.Box["topRight"])
	assert.Equal(t, map[string]float64{"x": 10, "y": 80}, raw.Box["bottomLeft"])
	assert.Equal(t, map[string]float64{"x": 50, "y": 80}, raw.Box["bottomRight"])
}

func TestKeyframeOmittedWhenFalse(t *testing.T) {
	p := samplePerson(1, "A")
	p.Keyframe = false
	data, err := json.Marshal(p.ToDoc())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "keyframe")
	assert.NotContains(t, string(data), "segment")
}

func TestParseLegacySegmentAndNulls(t *testing.T) {
	body := `{
		"number": 1, "name": "sit", "increment": "001", "camera": 2,
		"frames": [
			{"frameNumber": 1, "numberOfPeople": 1, "people": [
				{"id": 4, "obscured": false,
				 "box": {"topLeft": {"x": 1, "y": 2}, "topRight": {"x": 9, "y": 2},
				         "bottomLeft": {"x": 1, "y": 8}, "bottomRight": {"x": 9, "y": 8}},
				 "location": {"virtual": {"x": null, "y": null}, "real": {"x": null, "y": null}, "segment": "B"}},
				null
			]},
			null,
			{"frameNumber": 3, "numberOfPeople": 0, "people": []}
		]
	}`

	v, err := Parse([]byte(body))
	require.NoError(t, err)

	require.Len(t, v.Frames, 3)
	assert.Nil(t, v.Frames[1])
	assert.Equal(t, 3, v.Frames[2].FrameNumber)

	require.Len(t, v.Frames[0].People, 1)
	p := v.Frames[0].People[0]
	assert.Equal(t, "B", p.Location.Zone)
	assert.True(t, p.Box.Equal(geom.Box(1, 9, 2, 8)))
	assert.False(t, p.Location.Virtual.IsValid())
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("{not json"))
	require.Error(t, err)
}

func TestPutFrameAndFill(t *testing.T) {
	v := NewVideo(1, "n", "001", 1)
	v.PutFrame(2, NewFrame(3))
	require.Len(t, v.Frames, 3)
	assert.Nil(t, v.Frame(0))
	assert.Nil(t, v.Frame(7))

	v.FillFrames(5)
	require.Len(t, v.Frames, 5)
	for i, f := range v.Frames {
		require.NotNil(t, f)
		assert.Equal(t, i+1, f.FrameNumber)
	}

	v.PutFrame(-1, NewFrame(0))
	assert.Len(t, v.Frames, 5)
}

func TestPersonCloneIsDeep(t *testing.T) {
	p := samplePerson(7, "C")
	c := p.Clone()

	*c.ID = 8
	*c.Box.Left = 0
	*c.Location.Virtual.X = 0
	c.Location.Zone = "N/A"

	assert.Equal(t, 7, *p.ID)
	assert.Equal(t, 10.0, *p.Box.Left)
	assert.Equal(t, 30.0, *p.Location.Virtual.X)
	assert.Equal(t, "C", p.Location.Zone)
}

func TestCloneKeepsNonPersistedZone(t *testing.T) {
	p := samplePerson(1, "N/A")
	assert.Equal(t, "N/A", p.Clone().Location.Zone)
}

func TestFrameHelpers(t *testing.T) {
	f := NewFrame(1)
	a := samplePerson(5, "A")
	b := samplePerson(6, "B")
	f.AddPerson(a)
	f.AddPerson(b)
	f.AddPerson(NewPerson())

	assert.Equal(t, []*Person{b}, f.FindByID(6))
	assert.Empty(t, f.FindByID(9))
	assert.Equal(t, 1, f.IndexOf(b))
	assert.True(t, a.SameID(samplePerson(5, "")))
	assert.False(t, NewPerson().SameID(NewPerson()))

	assert.True(t, f.RemovePerson(0))
	assert.False(t, f.RemovePerson(5))
	assert.Equal(t, -1, f.IndexOf(a))
	assert.Nil(t, f.Person(2))
}

func TestLocationIsEmpty(t *testing.T) {
	assert.True(t, Location{}.IsEmpty())
	assert.False(t, Location{Zone: "N/A"}.IsEmpty())
	assert.False(t, Location{Virtual: geom.Pt(1, 1)}.IsEmpty())
}

func TestReadFileMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "annotation.json")
	v := sampleVideo()
	require.NoError(t, WriteFile(path, v))

	got, err := ReadFile(path, nil)
	require.NoError(t, err)
	assert.Len(t, got.Frames, 3)

	match := v.Context()
	got, err = ReadFile(path, &match)
	require.NoError(t, err)
	assert.Equal(t, "walking", got.Name)

	match.Camera = 4
	_, err = ReadFile(path, &match)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMismatch))

	_, err = ReadFile(filepath.Join(dir, "missing.json"), nil)
	require.Error(t, err)
}

func TestWriteFileIndentsAndReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "a.json")

	require.NoError(t, WriteFile(path, sampleVideo()))
	require.NoError(t, WriteFile(path, NewVideo(1, "x", "001", 1)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n    \"name\": \"x\"")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}
