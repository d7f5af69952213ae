// Package locate resolves a person's clicked image point into a room
// coordinate and zone by calling the camera tool, then writes the result back
// to the person it was computed for.
//
// Resolution is asynchronous: the target is captured when the request starts
// and the result is applied with state.Store.ApplyTo, so a reply that arrives
// after the annotator moved on lands on the right person, and a reply for a
// workspace that has since been replaced is dropped.
package locate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/framemark/annotation"
	"github.com/teranos/framemark/calibration"
	"github.com/teranos/framemark/cameratool"
	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/geom"
	"github.com/teranos/framemark/internal/util"
	"github.com/teranos/framemark/logger"
	"github.com/teranos/framemark/state"
)

// Result is what a successful resolution wrote.
type Result struct {
	Real geom.Point `json:"real"`
	Zone string     `json:"zone"`
}

// Locate runs the camera tool once for virtual and maps the answer into the
// room. Real is rounded half up per axis; the zone is classified from the
// unrounded coordinates. Nothing is written anywhere.
func Locate(ctx context.Context, tool cameratool.Transformer, cal calibration.Calibration, classifier calibration.Classifier, virtual geom.Point) (Result, error) {
	if !cal.Calibrated() {
		return Result{}, errors.WithHint(errors.ErrNotCalibrated,
			"set lens and perspective files (.xml) and the image origin")
	}
	if !virtual.IsValid() {
		return Result{}, errors.NewInvalidRequestError("point needs x and y")
	}
	if classifier == nil {
		classifier = calibration.ThresholdClassifier{}
	}

	raw, err := tool.Transform(ctx, cameratool.TransformRequest{
		Point:           virtual,
		Origin:          cal.ImageOrigin,
		LensFile:        cal.LensFile,
		PerspectiveFile: cal.PerspectiveFile,
	})
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, errors.Wrap(err, "resolution cancelled")
	}

	x, y := cal.Remap(raw)
	return Result{
		Real: geom.Pt(util.RoundHalfUp(x), util.RoundHalfUp(y)),
		Zone: classifier.Classify(x, y),
	}, nil
}

// Resolver serializes camera tool calls for one store.
type Resolver struct {
	store *state.Store
	tool  cameratool.Transformer

	mu         sync.RWMutex
	cal        calibration.Calibration
	classifier calibration.Classifier

	limiter *rate.Limiter
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  *zap.SugaredLogger
}

// Options tunes a Resolver. Zero values mean no rate limit and the threshold
// classifier.
type Options struct {
	Classifier        calibration.Classifier
	MaxCallsPerSecond float64
}

// New creates a resolver writing into store.
func New(store *state.Store, tool cameratool.Transformer, cal calibration.Calibration, opts Options) *Resolver {
	limit := rate.Inf
	if opts.MaxCallsPerSecond > 0 {
		limit = rate.Limit(opts.MaxCallsPerSecond)
	}
	classifier := opts.Classifier
	if classifier == nil {
		classifier = calibration.ThresholdClassifier{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver{
		store:      store,
		tool:       tool,
		cal:        cal,
		classifier: classifier,
		limiter:    rate.NewLimiter(limit, 1),
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger.ChildLogger(logger.ComponentLogger("locate"), logger.FieldSession, store.Session()),
	}
}

// Calibration returns the calibration used for new requests.
func (r *Resolver) Calibration() calibration.Calibration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cal
}

// SetCalibration replaces the calibration and classifier. Requests already
// running keep the values they started with.
func (r *Resolver) SetCalibration(cal calibration.Calibration, classifier calibration.Classifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cal = cal
	if classifier != nil {
		r.classifier = classifier
	}
}

// Resolve transforms the target's virtual point and writes real and zone back
// to the captured person. On any error nothing is written.
//
// The write is also dropped when the person's virtual point changed while the
// tool was running; the newer click has its own request in flight.
func (r *Resolver) Resolve(ctx context.Context, t state.Target) (Result, error) {
	r.mu.RLock()
	cal, classifier := r.cal, r.classifier
	r.mu.RUnlock()

	if t.Session != r.store.Session() {
		return Result{}, errors.Wrapf(errors.ErrStaleSession, "target from session %s", t.Session)
	}
	if !cal.Calibrated() {
		return Result{}, errors.WithHint(errors.ErrNotCalibrated,
			"set lens and perspective files (.xml) and the image origin")
	}
	if t.Person == nil {
		return Result{}, errors.NewInvalidRequestError("target has no person")
	}

	var virtual geom.Point
	r.store.Read(func(*annotation.Video) {
		virtual = t.Person.Location.Virtual.Clone()
	})
	if !virtual.IsValid() {
		return Result{}, errors.NewInvalidRequestError("person in frame %d has no virtual location", t.FrameIndex+1)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return Result{}, errors.Wrap(err, "rate limiter")
	}

	start := time.Now()
	res, err := Locate(ctx, r.tool, cal, classifier, virtual)
	if err != nil {
		return Result{}, err
	}

	moved := false
	err = r.store.ApplyTo(t, func(p *annotation.Person) {
		if !p.Location.Virtual.Equal(virtual) {
			moved = true
			return
		}
		p.Location.Real = res.Real.Clone()
		p.Location.Zone = res.Zone
	})
	if err != nil {
		return Result{}, err
	}
	if moved {
		return Result{}, errors.Wrap(errors.ErrStaleTarget, "virtual location changed while resolving")
	}

	r.logger.Debugw("Location resolved",
		logger.FieldFrame, t.FrameIndex+1,
		logger.FieldZone, res.Zone,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return res, nil
}

// ResolveCurrent resolves the current person of the current frame.
func (r *Resolver) ResolveCurrent(ctx context.Context) (Result, error) {
	t, ok := r.store.CurrentTarget()
	if !ok {
		return Result{}, errors.NewNotFoundError("no person selected")
	}
	return r.Resolve(ctx, t)
}

// Go resolves t in the background. It never blocks and is safe to call from a
// store hook. Failures are logged.
func (r *Resolver) Go(t state.Target) {
	if r.ctx.Err() != nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if _, err := r.Resolve(r.ctx, t); err != nil {
			r.logFailure(t, err)
		}
	}()
}

func (r *Resolver) logFailure(t state.Target, err error) {
	switch {
	case errors.IsStale(err), errors.Is(err, context.Canceled):
		r.logger.Debugw("Location result discarded", logger.FieldFrame, t.FrameIndex+1, logger.FieldError, err.Error())
	case errors.Is(err, errors.ErrNotCalibrated):
		r.logger.Debugw("Location not resolved, workspace not calibrated", logger.FieldFrame, t.FrameIndex+1)
	default:
		r.logger.Warnw("Location resolution failed", logger.FieldFrame, t.FrameIndex+1, logger.FieldError, err.Error())
	}
}

// Wait blocks until background resolutions have finished.
func (r *Resolver) Wait() {
	r.wg.Wait()
}

// Close cancels background resolutions and waits for them.
func (r *Resolver) Close() {
	r.cancel()
	r.wg.Wait()
}
