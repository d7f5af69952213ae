// Package workspace opens a directory of extracted frames for annotation and
// owns everything attached to it: the state store, settings, calibration, the
// location resolver, revision history and the image directory watcher.
//
// A Service replaces the process-wide workspace of a desktop app with an
// explicit object. Each Init or LoadAnnotation opens a new store generation;
// listeners registered with OnOpen are told about every one.
package workspace

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/framemark/annotation"
	"github.com/teranos/framemark/calibration"
	"github.com/teranos/framemark/cameratool"
	"github.com/teranos/framemark/db"
	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/geom"
	"github.com/teranos/framemark/history"
	"github.com/teranos/framemark/locate"
	"github.com/teranos/framemark/logger"
	"github.com/teranos/framemark/propagate"
	"github.com/teranos/framemark/settings"
	"github.com/teranos/framemark/state"
)

// Tool is the part of the camera tool a workspace needs.
type Tool interface {
	cameratool.Transformer
	cameratool.Extractor
}

// Config names what to open. Dir is required. With Video set, frames are
// extracted into Dir and workspace.json is (re)written from the video name;
// otherwise Dir must already hold frames and workspace.json.
type Config struct {
	Dir        string
	Video      string
	Annotation string
}

// Options are fixed for the life of a Service.
type Options struct {
	Tool              Tool
	Settings          settings.Values
	ZoneClassifier    string
	MaxCallsPerSecond float64
	History           *history.Store // optional

	WatchImages bool
	Debounce    time.Duration
	Autosave    bool
}

// OpenFunc is called after a store generation is opened.
type OpenFunc func(s *state.Store)

// Service is one open workspace.
type Service struct {
	opts     Options
	settings *settings.Settings
	logger   *zap.SugaredLogger

	mu             sync.RWMutex
	dir            string
	annotationFile string
	vars           *Vars
	cal            calibration.Calibration
	store          *state.Store
	resolver       *locate.Resolver
	watcher        *imageWatcher
	autosaveStop   chan struct{}
	autosaveDone   chan struct{}
	onOpen         []OpenFunc
}

// New creates a Service with nothing open.
func New(opts Options) (*Service, error) {
	if opts.Tool == nil {
		return nil, errors.NewInvalidRequestError("workspace needs a camera tool")
	}
	if _, err := calibration.NewClassifier(opts.ZoneClassifier, nil); err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 250 * time.Millisecond
	}
	return &Service{
		opts:     opts,
		settings: settings.New(opts.Settings),
		cal:      calibration.Default(),
		logger:   logger.ComponentLogger("workspace"),
	}, nil
}

// OnOpen registers fn for every store generation opened from now on.
func (s *Service) OnOpen(fn OpenFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOpen = append(s.onOpen, fn)
}

// Settings are shared across store generations.
func (s *Service) Settings() *settings.Settings {
	return s.settings
}

// Store returns the current store, or nil before Init.
func (s *Service) Store() *state.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// Initialised reports whether a workspace is open.
func (s *Service) Initialised() bool {
	return s.Store() != nil
}

// Dir is the open workspace directory.
func (s *Service) Dir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dir
}

// AnnotationFile is where Save writes by default.
func (s *Service) AnnotationFile() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.annotationFile
}

// Calibration returns the workspace calibration.
func (s *Service) Calibration() calibration.Calibration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cal
}

// Init opens cfg.Dir, replacing whatever was open.
func (s *Service) Init(ctx context.Context, cfg Config) error {
	if cfg.Dir == "" {
		return errors.NewInvalidRequestError("workspace directory is required")
	}
	log := logger.ChildLogger(s.logger, logger.FieldWorkspace, cfg.Dir)

	var (
		vars   *Vars
		images []string
		video  *annotation.Video
		err    error
	)
	varsPath := filepath.Join(cfg.Dir, VarsFileName)

	if cfg.Video != "" {
		match, err := ParseVideoContext(cfg.Video)
		if err != nil {
			return err
		}

		cal := calibration.Default()
		if prev, err := ReadVars(varsPath); err == nil {
			cal = prev.Calibration()
		}
		vars = NewVars(match, cal)
		if err := WriteVars(varsPath, vars); err != nil {
			return err
		}

		if err := s.opts.Tool.Extract(ctx, cfg.Video, cfg.Dir); err != nil {
			return err
		}
		if images, err = cameratool.ReadImageDir(cfg.Dir); err != nil {
			return err
		}

		video = openAnnotation(cfg.Annotation, match, false, log)
	} else {
		if images, err = cameratool.ReadImageDir(cfg.Dir); err != nil {
			return err
		}

		vars, err = ReadVars(varsPath)
		if err != nil {
			log.Warnw("Workspace file unusable, using defaults", logger.FieldError, err.Error())
			vars = NewVars(annotation.Match{}, calibration.Default())
		}

		video = openAnnotation(cfg.Annotation, vars.Match(), true, log)
	}

	cal := s.loadZones(cfg.Dir, vars.Calibration(), log)

	s.mu.Lock()
	s.dir = cfg.Dir
	s.annotationFile = cfg.Annotation
	s.vars = vars
	s.cal = cal
	s.mu.Unlock()

	if err := s.open(video, images); err != nil {
		return err
	}
	log.Infow("Workspace opened",
		logger.FieldCount, len(images),
		"annotation", cfg.Annotation,
		"calibrated", cal.Calibrated(),
	)
	return nil
}

// openAnnotation reads path for a workspace being opened. A missing,
// unreadable or mismatched file leaves a fresh video for match; path stays
// the save target either way.
func openAnnotation(path string, match annotation.Match, checkMatch bool, log *zap.SugaredLogger) *annotation.Video {
	fresh := annotation.NewVideo(match.Number, match.Name, match.Increment, match.Camera)
	if path == "" {
		return fresh
	}
	var want *annotation.Match
	if checkMatch {
		want = &match
	}
	video, err := annotation.ReadFile(path, want)
	if err != nil {
		log.Warnw("Annotation file not loaded, starting empty",
			logger.FieldPath, path,
			logger.FieldError, err.Error(),
		)
		return fresh
	}
	return video
}

// loadZones reads the zone file named in workspace.json, relative to dir.
func (s *Service) loadZones(dir string, cal calibration.Calibration, log *zap.SugaredLogger) calibration.Calibration {
	if cal.ZoneFile == "" {
		return cal
	}
	path := cal.ZoneFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	zones, err := calibration.LoadZones(path)
	if err != nil {
		log.Warnw("Zone file unusable, using thresholds", logger.FieldFile, path, logger.FieldError, err.Error())
		return cal
	}
	cal.Zones = zones
	return cal
}

func (s *Service) classifier(cal calibration.Calibration) calibration.Classifier {
	c, err := calibration.NewClassifier(s.opts.ZoneClassifier, cal.Zones)
	if err != nil {
		// validated in New
		return calibration.ThresholdClassifier{}
	}
	return c
}

// open builds a new store generation around video and swaps it in.
func (s *Service) open(video *annotation.Video, images []string) error {
	s.closeCurrent()

	s.mu.Lock()
	store := state.New(video, images)
	resolver := locate.New(store, s.opts.Tool, s.cal, locate.Options{
		Classifier:        s.classifier(s.cal),
		MaxCallsPerSecond: s.opts.MaxCallsPerSecond,
	})
	store.OnBeforeFrameChange(propagate.CopyForward(s.settings, resolver.Go))

	var watcher *imageWatcher
	if s.opts.WatchImages && s.dir != "" {
		w, err := watchImages(s.dir, store, s.opts.Debounce)
		if err != nil {
			s.logger.Warnw("Image directory not watched", logger.FieldPath, s.dir, logger.FieldError, err.Error())
		} else {
			watcher = w
		}
	}

	s.store = store
	s.resolver = resolver
	s.watcher = watcher
	if s.opts.Autosave {
		s.startAutosaveLocked(store)
	}
	listeners := append([]OpenFunc(nil), s.onOpen...)
	s.mu.Unlock()

	store.SetCurrentFrame(1)
	for _, fn := range listeners {
		fn(store)
	}
	return nil
}

// startAutosaveLocked saves the annotation after every frame change.
// REQUIRES: s.mu held.
func (s *Service) startAutosaveLocked(store *state.Store) {
	events := store.Subscribe()
	stop := make(chan struct{})
	done := make(chan struct{})
	s.autosaveStop, s.autosaveDone = stop, done

	go func() {
		defer close(done)
		defer store.Unsubscribe(events)
		for {
			select {
			case <-stop:
				return
			case ev := <-events:
				if ev.Kind != state.EventFrame || s.AnnotationFile() == "" {
					continue
				}
				if err := s.Save(context.Background(), ""); err != nil {
					s.logger.Warnw("Autosave failed", logger.FieldError, err.Error())
				}
			}
		}
	}()
}

// closeCurrent stops everything attached to the current store generation.
func (s *Service) closeCurrent() {
	s.mu.Lock()
	resolver, watcher := s.resolver, s.watcher
	stop, done := s.autosaveStop, s.autosaveDone
	s.resolver, s.watcher, s.autosaveStop, s.autosaveDone = nil, nil, nil, nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	if watcher != nil {
		if err := watcher.Close(); err != nil {
			s.logger.Debugw("Image watcher close", logger.FieldError, err.Error())
		}
	}
	if resolver != nil {
		resolver.Close()
	}
}

// Close releases the open workspace. The last store stays readable.
func (s *Service) Close() error {
	s.closeCurrent()
	return nil
}

// LoadAnnotation replaces the open annotation with the file at path. The file
// must belong to the workspace's sequence and video; on any error the current
// annotation is kept.
func (s *Service) LoadAnnotation(path string) error {
	store := s.Store()
	if store == nil {
		return errors.NewInvalidRequestError("no workspace open")
	}

	var match annotation.Match
	store.Read(func(v *annotation.Video) { match = v.Context() })

	video, err := annotation.ReadFile(path, &match)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.annotationFile = path
	s.mu.Unlock()

	return s.open(video, store.Images())
}

// Save writes the annotation to path, or to the file it was loaded from when
// path is empty. A revision is recorded when history is enabled.
func (s *Service) Save(ctx context.Context, path string) error {
	store := s.Store()
	if store == nil {
		return errors.NewInvalidRequestError("no workspace open")
	}
	if path == "" {
		path = s.AnnotationFile()
	}
	if path == "" {
		return errors.WithHint(
			errors.NewInvalidRequestError("no annotation file to save to"),
			"pass a file name the first time you save",
		)
	}

	video := store.Export()
	if err := annotation.WriteFile(path, video); err != nil {
		return err
	}

	s.mu.Lock()
	s.annotationFile = path
	s.mu.Unlock()

	if s.opts.History != nil {
		_, _, err := s.opts.History.Save(ctx, path, video)
		switch {
		case err == nil:
		case db.IsDatabaseClosed(err):
			// shutting down; the file itself is saved
			s.logger.Debugw("History closed, revision skipped", logger.FieldFile, path)
		default:
			s.logger.Warnw("Revision not recorded", logger.FieldFile, path, logger.FieldError, err.Error())
		}
	}
	s.logger.Debugw("Annotation saved", logger.FieldFile, path)
	return nil
}

// InterpolateToCurrent fills boxes between the previous keyframe and the
// current person. Returns how many boxes were written.
func (s *Service) InterpolateToCurrent() (int, error) {
	store := s.Store()
	if store == nil {
		return 0, errors.NewInvalidRequestError("no workspace open")
	}
	return propagate.InterpolateToCurrent(store)
}

// AutoCoordinateCurrent resolves the current person's location and waits for it.
func (s *Service) AutoCoordinateCurrent(ctx context.Context) (locate.Result, error) {
	s.mu.RLock()
	resolver := s.resolver
	s.mu.RUnlock()
	if resolver == nil {
		return locate.Result{}, errors.NewInvalidRequestError("no workspace open")
	}
	return resolver.ResolveCurrent(ctx)
}

// Locate resolves an image point with the workspace calibration without
// writing it to any person.
func (s *Service) Locate(ctx context.Context, pt geom.Point) (locate.Result, error) {
	if !s.Initialised() {
		return locate.Result{}, errors.NewInvalidRequestError("no workspace open")
	}
	cal := s.Calibration()
	return locate.Locate(ctx, s.opts.Tool, cal, s.classifier(cal), pt)
}

// SetVirtualLocation records a click on the current person and starts
// resolving it in the background.
func (s *Service) SetVirtualLocation(pt geom.Point) error {
	s.mu.RLock()
	store, resolver := s.store, s.resolver
	s.mu.RUnlock()
	if store == nil {
		return errors.NewInvalidRequestError("no workspace open")
	}

	target, err := store.SetVirtualLocation(pt)
	if err != nil {
		return err
	}
	if resolver != nil && pt.IsValid() {
		resolver.Go(target)
	}
	return nil
}

// SetCalibration replaces the calibration, rewrites workspace.json and
// applies it to future resolutions.
func (s *Service) SetCalibration(cal calibration.Calibration) error {
	s.mu.Lock()
	if s.store == nil {
		s.mu.Unlock()
		return errors.NewInvalidRequestError("no workspace open")
	}
	dir := s.dir
	var match annotation.Match
	if s.vars != nil {
		match = s.vars.Match()
	}
	s.mu.Unlock()

	cal = s.loadZones(dir, cal, s.logger)
	vars := NewVars(match, cal)
	if err := WriteVars(filepath.Join(dir, VarsFileName), vars); err != nil {
		return err
	}

	s.mu.Lock()
	s.vars = vars
	s.cal = cal
	resolver := s.resolver
	s.mu.Unlock()

	if resolver != nil {
		resolver.SetCalibration(cal, s.classifier(cal))
	}
	return nil
}

// SetImageOrigin is SetCalibration for the origin alone.
func (s *Service) SetImageOrigin(pt geom.Point) error {
	cal := s.Calibration()
	cal.ImageOrigin = pt.Clone()
	return s.SetCalibration(cal)
}

// WaitIdle blocks until background location resolutions have finished.
func (s *Service) WaitIdle() {
	s.mu.RLock()
	resolver := s.resolver
	s.mu.RUnlock()
	if resolver != nil {
		resolver.Wait()
	}
}
