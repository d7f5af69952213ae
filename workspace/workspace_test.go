package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/framemark/annotation"
	"github.com/teranos/framemark/calibration"
	"github.com/teranos/framemark/cameratool"
	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/geom"
	"github.com/teranos/framemark/history"
	fmtest "github.com/teranos/framemark/internal/testing"
	"github.com/teranos/framemark/internal/util"
	"github.com/teranos/framemark/settings"
	"github.com/teranos/framemark/state"
)

// fakeTool extracts a fixed number of frames and maps every point to one room position.
type fakeTool struct {
	mu     sync.Mutex
	frames int
	room   geom.Point
	calls  int
}

func (f *fakeTool) Transform(ctx context.Context, req cameratool.TransformRequest) (geom.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.room, nil
}

func (f *fakeTool) Extract(ctx context.Context, video, dir string) error {
	for i := 1; i <= f.frames; i++ {
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("%d.jpg", i)), nil, 0644); err != nil {
			return err
		}
	}
	return nil
}

func newService(t *testing.T, tool *fakeTool, opts Options) *Service {
	t.Helper()
	opts.Tool = tool
	if opts.Settings == (settings.Values{}) {
		opts.Settings = settings.Defaults()
	}
	s, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func writeImages(t *testing.T, dir string, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("%d.jpg", i)), nil, 0644))
	}
}

func calibratedVars(m annotation.Match) *Vars {
	c := calibration.Default()
	c.LensFile = "lens.xml"
	c.PerspectiveFile = "persp.xml"
	c.ImageOrigin = geom.Pt(320, 240)
	return NewVars(m, c)
}

func TestParseVideoContext(t *testing.T) {
	tests := []struct {
		path    string
		want    annotation.Match
		wantErr bool
	}{
		{"/videos/seq3_walk_002_cam1.mkv", annotation.Match{Number: 3, Name: "walk", Increment: "002", Camera: 1}, false},
		{"seq12_sit_010_camera4.mp4", annotation.Match{Number: 2, Name: "sit", Increment: "010", Camera: 4}, false},
		{"seq3_walk_002_cam1_extra.mkv", annotation.Match{Number: 3, Name: "walk", Increment: "002", Camera: 1}, false},
		{"walk.mkv", annotation.Match{}, true},
		{"seqA_walk_002_cam1.mkv", annotation.Match{}, true},
		{"seq1_walk_002_.mkv", annotation.Match{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := ParseVideoContext(tt.path)
			if tt.wantErr {
				assert.True(t, errors.IsInvalidRequestError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVarsDefaultsAndRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), VarsFileName)
	m := annotation.Match{Number: 1, Name: "walk", Increment: "001", Camera: 2}

	require.NoError(t, WriteVars(path, NewVars(m, calibration.Default())))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "roomSize", "default room size is not written")
	assert.NotContains(t, string(raw), "zoneFile")

	v, err := ReadVars(path)
	require.NoError(t, err)
	assert.Equal(t, m, v.Match())
	assert.True(t, v.Calibration().RoomSize.Equal(geom.Pt(6000, 4000)))

	cal := calibration.Default()
	cal.RoomSize = geom.Pt(8000, 5000)
	cal.ZoneFile = "zones.toml"
	cal.Flip = calibration.FlipOrigin{Y: true}
	require.NoError(t, WriteVars(path, NewVars(m, cal)))
	v, err = ReadVars(path)
	require.NoError(t, err)
	got := v.Calibration()
	assert.True(t, got.RoomSize.Equal(geom.Pt(8000, 5000)))
	assert.Equal(t, "zones.toml", got.ZoneFile)
	assert.True(t, got.Flip.Y)
}

func TestInitFromVideo(t *testing.T) {
	dir := t.TempDir()
	s := newService(t, &fakeTool{frames: 3}, Options{})

	opened := make(chan *state.Store, 1)
	s.OnOpen(func(st *state.Store) { opened <- st })

	require.NoError(t, s.Init(context.Background(), Config{Dir: dir, Video: "/v/seq3_walk_002_cam1.mkv"}))

	store := s.Store()
	require.NotNil(t, store)
	assert.Same(t, store, <-opened)
	assert.Equal(t, 3, store.ImagesCount())
	assert.Equal(t, 1, store.CurrentFrame())

	store.Read(func(v *annotation.Video) {
		assert.Equal(t, annotation.Match{Number: 3, Name: "walk", Increment: "002", Camera: 1}, v.Context())
		assert.Len(t, v.Frames, 3)
	})

	vars, err := ReadVars(filepath.Join(dir, VarsFileName))
	require.NoError(t, err)
	assert.Equal(t, "walk", vars.Sequence.Name)
}

func TestInitFromVideoKeepsCalibration(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteVars(filepath.Join(dir, VarsFileName), calibratedVars(annotation.Match{Number: 9})))

	s := newService(t, &fakeTool{frames: 1}, Options{})
	require.NoError(t, s.Init(context.Background(), Config{Dir: dir, Video: "seq3_walk_002_cam1.mkv"}))

	assert.True(t, s.Calibration().Calibrated())
	vars, err := ReadVars(filepath.Join(dir, VarsFileName))
	require.NoError(t, err)
	assert.Equal(t, 3, vars.Sequence.Number)
	assert.Equal(t, "lens.xml", vars.LensCalibrationFile)
}

func TestInitWithoutWorkspaceFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, 2)

	s := newService(t, &fakeTool{}, Options{})
	require.NoError(t, s.Init(context.Background(), Config{Dir: dir}))
	assert.Equal(t, 2, s.Store().ImagesCount())
	assert.False(t, s.Calibration().Calibrated())
}

func TestInitWithoutImages(t *testing.T) {
	s := newService(t, &fakeTool{}, Options{})
	err := s.Init(context.Background(), Config{Dir: t.TempDir()})
	assert.True(t, errors.Is(err, errors.ErrNoImages))
	assert.False(t, s.Initialised())
}

func TestInitMissingAnnotationStartsFresh(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, 2)
	m := annotation.Match{Number: 1, Name: "walk", Increment: "001", Camera: 1}
	require.NoError(t, WriteVars(filepath.Join(dir, VarsFileName), NewVars(m, calibration.Default())))

	path := filepath.Join(dir, "new.json")
	s := newService(t, &fakeTool{}, Options{})
	require.NoError(t, s.Init(context.Background(), Config{Dir: dir, Annotation: path}))

	assert.True(t, s.Initialised())
	assert.Equal(t, path, s.AnnotationFile())
	s.Store().Read(func(v *annotation.Video) {
		assert.Equal(t, m, v.Context())
		assert.Len(t, v.Frames, 2)
		assert.Empty(t, v.Frames[0].People)
	})

	require.NoError(t, s.Save(context.Background(), ""))
	saved, err := annotation.ReadFile(path, &m)
	require.NoError(t, err)
	assert.Equal(t, m, saved.Context())
}

func TestInitMismatchedAnnotationStartsFresh(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, 2)
	m := annotation.Match{Number: 1, Name: "walk", Increment: "001", Camera: 1}
	require.NoError(t, WriteVars(filepath.Join(dir, VarsFileName), NewVars(m, calibration.Default())))

	other := annotation.NewVideo(2, "sit", "001", 1)
	other.FillFrames(1)
	other.Frames[0].AddPerson(annotation.NewPerson())
	path := filepath.Join(dir, "other.json")
	require.NoError(t, annotation.WriteFile(path, other))

	s := newService(t, &fakeTool{}, Options{})
	require.NoError(t, s.Init(context.Background(), Config{Dir: dir, Annotation: path}))

	assert.True(t, s.Initialised())
	assert.Equal(t, path, s.AnnotationFile())
	s.Store().Read(func(v *annotation.Video) {
		assert.Equal(t, m, v.Context())
		assert.Empty(t, v.Frames[0].People, "file contents discarded")
	})
}

func TestInitFromVideoWithUnreadableAnnotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := newService(t, &fakeTool{frames: 1}, Options{})
	require.NoError(t, s.Init(context.Background(), Config{Dir: dir, Video: "seq3_walk_002_cam1.mkv", Annotation: path}))

	s.Store().Read(func(v *annotation.Video) {
		assert.Equal(t, annotation.Match{Number: 3, Name: "walk", Increment: "002", Camera: 1}, v.Context())
	})
}

func TestLoadAnnotation(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, 3)
	m := annotation.Match{Number: 1, Name: "walk", Increment: "001", Camera: 1}
	require.NoError(t, WriteVars(filepath.Join(dir, VarsFileName), NewVars(m, calibration.Default())))

	s := newService(t, &fakeTool{}, Options{})
	require.NoError(t, s.Init(context.Background(), Config{Dir: dir}))
	first := s.Store()

	t.Run("mismatch keeps prior state", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, annotation.WriteFile(bad, annotation.NewVideo(5, "walk", "001", 1)))

		err := s.LoadAnnotation(bad)
		assert.True(t, errors.Is(err, errors.ErrMismatch))
		assert.Same(t, first, s.Store())
	})

	t.Run("matching file opens a new generation", func(t *testing.T) {
		v := annotation.NewVideo(m.Number, m.Name, m.Increment, m.Camera)
		v.FillFrames(1)
		p := annotation.NewPerson()
		p.ID = util.Ptr(4)
		v.Frames[0].AddPerson(p)
		good := filepath.Join(dir, "good.json")
		require.NoError(t, annotation.WriteFile(good, v))

		require.NoError(t, s.LoadAnnotation(good))
		store := s.Store()
		assert.NotSame(t, first, store)
		assert.NotEqual(t, first.Session(), store.Session())
		assert.Equal(t, good, s.AnnotationFile())
		store.Read(func(v *annotation.Video) {
			assert.Len(t, v.Frames, 3, "frames filled to image count")
			assert.Equal(t, 4, *v.Frames[0].People[0].ID)
		})
	})
}

func TestSaveRecordsRevision(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, 2)
	revisions := history.NewStore(fmtest.CreateTestDB(t), 0)

	s := newService(t, &fakeTool{}, Options{History: revisions})
	require.NoError(t, s.Init(context.Background(), Config{Dir: dir}))

	err := s.Save(context.Background(), "")
	assert.True(t, errors.IsInvalidRequestError(err))

	out := filepath.Join(dir, "out.json")
	_, err = s.Store().AddPerson()
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), out))
	assert.Equal(t, out, s.AnnotationFile())

	v, err := annotation.ReadFile(out, nil)
	require.NoError(t, err)
	assert.Len(t, v.Frames[0].People, 1)

	revs, err := revisions.List(context.Background(), out, 0)
	require.NoError(t, err)
	assert.Len(t, revs, 1)
}

func TestCopyForwardResolvesCopiedLocation(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, 3)
	require.NoError(t, WriteVars(filepath.Join(dir, VarsFileName), calibratedVars(annotation.Match{})))

	tool := &fakeTool{room: geom.Pt(2000, 3000)}
	s := newService(t, tool, Options{})
	require.NoError(t, s.Init(context.Background(), Config{Dir: dir}))
	store := s.Store()

	_, err := store.AddPerson()
	require.NoError(t, err)
	require.NoError(t, store.SetPersonID(util.Ptr(1)))
	require.NoError(t, s.SetVirtualLocation(geom.Pt(100, 100)))
	s.WaitIdle()

	store.Next()
	s.WaitIdle()

	store.Read(func(v *annotation.Video) {
		require.Len(t, v.Frames[1].People, 1)
		next := v.Frames[1].People[0]
		assert.Equal(t, 1, *next.ID)
		assert.True(t, next.Location.Virtual.Equal(geom.Pt(100, 100)))
		assert.Equal(t, "B", next.Location.Zone)
	})
	tool.mu.Lock()
	assert.Equal(t, 2, tool.calls, "click and copied location both resolved")
	tool.mu.Unlock()
}

func TestInterpolateAndAutoCoordinate(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, 3)
	require.NoError(t, WriteVars(filepath.Join(dir, VarsFileName), calibratedVars(annotation.Match{})))

	s := newService(t, &fakeTool{room: geom.Pt(100, 100)}, Options{Settings: settings.Values{Mode: settings.ModeMixed}})
	require.NoError(t, s.Init(context.Background(), Config{Dir: dir}))
	store := s.Store()

	_, err := store.AddPerson()
	require.NoError(t, err)
	require.NoError(t, store.SetBox(geom.Box(0, 10, 0, 10)))

	for frame := 2; frame <= 3; frame++ {
		store.SetCurrentFrame(frame)
		_, err := store.AddPerson()
		require.NoError(t, err)
	}
	require.NoError(t, store.SetBox(geom.Box(20, 30, 20, 30)))

	n, err := s.InterpolateToCurrent()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.SetVirtualLocation(geom.Pt(5, 5))
	require.NoError(t, err)
	res, err := s.AutoCoordinateCurrent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A", res.Zone)
}

func TestSetImageOriginRewritesWorkspaceFile(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, 1)
	s := newService(t, &fakeTool{}, Options{})
	require.NoError(t, s.Init(context.Background(), Config{Dir: dir}))

	require.NoError(t, s.SetImageOrigin(geom.Pt(12, 34)))
	vars, err := ReadVars(filepath.Join(dir, VarsFileName))
	require.NoError(t, err)
	assert.True(t, vars.ImageOrigin.Equal(geom.Pt(12, 34)))
	assert.True(t, s.Calibration().ImageOrigin.Equal(geom.Pt(12, 34)))
}

func TestZoneFileDrivesClassifier(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zones.toml"), []byte(`
[[zone]]
label = "D"
area = [{x = 0.0, y = 0.0}, {x = 500.0, y = 0.0}, {x = 500.0, y = 500.0}, {x = 0.0, y = 500.0}]
`), 0644))
	vars := calibratedVars(annotation.Match{})
	vars.ZoneFile = "zones.toml"
	require.NoError(t, WriteVars(filepath.Join(dir, VarsFileName), vars))

	s := newService(t, &fakeTool{room: geom.Pt(100, 100)}, Options{ZoneClassifier: calibration.ClassifierZones})
	require.NoError(t, s.Init(context.Background(), Config{Dir: dir}))
	require.Len(t, s.Calibration().Zones, 1)

	_, err := s.Store().AddPerson()
	require.NoError(t, err)
	_, err = s.Store().SetVirtualLocation(geom.Pt(1, 1))
	require.NoError(t, err)
	res, err := s.AutoCoordinateCurrent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "D", res.Zone)
}

func TestLocateDoesNotTouchStore(t *testing.T) {
	s := newService(t, &fakeTool{room: geom.Pt(100.4, 99.5)}, Options{})
	_, err := s.Locate(context.Background(), geom.Pt(1, 1))
	assert.True(t, errors.IsInvalidRequestError(err))

	dir := t.TempDir()
	writeImages(t, dir, 1)
	require.NoError(t, WriteVars(filepath.Join(dir, VarsFileName), calibratedVars(annotation.Match{})))
	require.NoError(t, s.Init(context.Background(), Config{Dir: dir}))

	res, err := s.Locate(context.Background(), geom.Pt(1, 1))
	require.NoError(t, err)
	assert.True(t, res.Real.Equal(geom.Pt(100, 100)))
	assert.Equal(t, "A", res.Zone)

	s.Store().Read(func(v *annotation.Video) {
		assert.Empty(t, v.Frame(0).People)
	})
}

func TestImageWatcherPicksUpNewFrames(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, 2)
	s := newService(t, &fakeTool{}, Options{WatchImages: true, Debounce: 10 * time.Millisecond})
	require.NoError(t, s.Init(context.Background(), Config{Dir: dir}))

	writeImages(t, dir, 5)
	require.Eventually(t, func() bool {
		return s.Store().ImagesCount() == 5
	}, 5*time.Second, 20*time.Millisecond)

	s.Store().Read(func(v *annotation.Video) {
		assert.Len(t, v.Frames, 5)
	})
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{})
	assert.True(t, errors.IsInvalidRequestError(err))

	_, err = New(Options{Tool: &fakeTool{}, ZoneClassifier: "polygon"})
	require.Error(t, err)
}
