// Package state owns the annotation document while a workspace is open: the
// Video, the image list it maps onto, and the frame/person cursors the
// annotator moves through it.
//
// All access goes through Store. Frame changes run registered hooks before the
// new frame is committed, and every observable change is fanned out to
// subscribers over buffered channels.
package state

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/framemark/annotation"
	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/geom"
	"github.com/teranos/framemark/internal/util"
	"github.com/teranos/framemark/logger"
)

// Store is the single writer for one Video. Replace the whole Store to open
// another workspace; each Store has its own session id.
type Store struct {
	mu      sync.Mutex
	session string
	video   *annotation.Video
	images  []string

	currentFrame  int // 1-based, 0 = none
	currentPerson int // -1 = none
	redraw        bool

	hooks       []Hook
	subscribers []chan Event
	logger      *zap.SugaredLogger
}

// New creates a store owning video. Frames are filled up to len(images).
func New(video *annotation.Video, images []string) *Store {
	if video == nil {
		video = annotation.NewVideo(0, "", "", 0)
	}
	s := &Store{
		session:       uuid.New().String(),
		video:         video,
		images:        append([]string(nil), images...),
		currentPerson: -1,
		subscribers:   make([]chan Event, 0),
	}
	s.logger = logger.ChildLogger(logger.ComponentLogger("state"), logger.FieldSession, s.session)
	video.FillFrames(len(s.images))
	return s
}

// Session identifies this store generation.
func (s *Store) Session() string {
	return s.session
}

// OnBeforeFrameChange registers a hook. Hooks run in registration order.
func (s *Store) OnBeforeFrameChange(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// Subscribe returns a channel receiving every event from now on.
func (s *Store) Subscribe() chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, SubscriberChannelBufferSize)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Unsubscribe removes ch. The channel is not closed; the caller owns it.
func (s *Store) Unsubscribe(ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			return
		}
	}
}

// emitLocked sends to every subscriber without blocking.
// REQUIRES: s.mu held.
func (s *Store) emitLocked(kind EventKind) {
	ev := Event{
		Kind:    kind,
		Session: s.session,
		Frame:   s.currentFrame,
		Person:  s.currentPerson,
		Redraw:  s.redraw,
	}
	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// slow subscriber, drop
		}
	}
}

// Images returns a copy of the ordered image list.
func (s *Store) Images() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.images...)
}

// ImagesCount is the number of frames the cursor can move over.
func (s *Store) ImagesCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// SetImages replaces the image list and grows the Video to match.
// A current frame past the new end is pulled back without running hooks.
func (s *Store) SetImages(images []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.images = append([]string(nil), images...)
	s.video.FillFrames(len(s.images))
	if s.currentFrame > len(s.images) {
		s.currentFrame = len(s.images)
	}
	s.emitLocked(EventImages)
}

// CurrentFrame returns the 1-based current frame, 0 when none is selected.
func (s *Store) CurrentFrame() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentFrame
}

// SetCurrentFrame moves the frame cursor to v clamped into [1, images].
// With no images the call is ignored. When the clamped value differs from the
// current one, hooks run before the new value is committed and emitted.
func (s *Store) SetCurrentFrame(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.images)
	if n == 0 {
		return
	}
	next := util.ClampInt(v, 1, n)
	if next == s.currentFrame {
		return
	}

	person := -1
	if s.currentFrame > 0 {
		if p, ok := s.currentPersonLocked(); ok {
			person = p
		}
	}
	change := FrameChange{
		Session: s.session,
		Video:   s.video,
		From:    s.currentFrame - 1,
		To:      next - 1,
		Person:  person,
	}
	for _, h := range s.hooks {
		h(change)
	}

	s.logger.Debugw("Frame changed", logger.FieldFromFrame, s.currentFrame, logger.FieldToFrame, next)
	s.currentFrame = next
	s.emitLocked(EventFrame)
}

// Next moves one frame forward.
func (s *Store) Next() {
	s.SetCurrentFrame(s.CurrentFrame() + 1)
}

// Previous moves one frame back.
func (s *Store) Previous() {
	s.SetCurrentFrame(s.CurrentFrame() - 1)
}

// CurrentPerson returns the current person index. Reading self-heals the
// cursor against the current frame and emits when it had to change it.
func (s *Store) CurrentPerson() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPersonLocked()
}

// REQUIRES: s.mu held.
func (s *Store) currentPersonLocked() (int, bool) {
	frame := s.video.Frame(s.currentFrame - 1)
	if frame == nil {
		return -1, false
	}
	count := len(frame.People)

	switch {
	case s.currentPerson >= count:
		s.currentPerson = count - 1
		s.emitLocked(EventPerson)
	case s.currentPerson < 0 && count > 0:
		s.currentPerson = 0
		s.emitLocked(EventPerson)
	}
	return s.currentPerson, s.currentPerson >= 0
}

// SetCurrentPerson selects person v in the current frame. Negative, unchanged
// or out-of-range values, and calls with no current frame, are ignored.
func (s *Store) SetCurrentPerson(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v < 0 || v == s.currentPerson || s.currentFrame == 0 {
		return
	}
	frame := s.video.Frame(s.currentFrame - 1)
	if frame == nil || v >= len(frame.People) {
		return
	}
	s.currentPerson = v
	s.emitLocked(EventPerson)
}

// RedrawVisuals reports the dirty flag.
func (s *Store) RedrawVisuals() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redraw
}

// SetRedrawVisuals sets the dirty flag and emits only when the value changes.
// Consumers reset it to false after drawing.
func (s *Store) SetRedrawVisuals(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setRedrawLocked(v)
}

// REQUIRES: s.mu held.
func (s *Store) setRedrawLocked(v bool) {
	if v == s.redraw {
		return
	}
	s.redraw = v
	s.emitLocked(EventRedraw)
}

// Read runs fn with the Video while holding the lock. fn must not retain v.
func (s *Store) Read(fn func(v *annotation.Video)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.video)
}

// Update runs fn with the Video under the lock, then marks visuals dirty.
func (s *Store) Update(fn func(v *annotation.Video) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.video); err != nil {
		return err
	}
	s.emitLocked(EventModel)
	s.setRedrawLocked(true)
	return nil
}

// Apply is Update guarded by session: results computed against a previous
// store generation are rejected with ErrStaleSession.
func (s *Store) Apply(session string, fn func(v *annotation.Video) error) error {
	if session != s.session {
		return errors.Wrapf(errors.ErrStaleSession, "session %s replaced by %s", session, s.session)
	}
	return s.Update(fn)
}

// ApplyTo runs fn on the person captured in t. The write lands on that person
// in that frame regardless of where the cursors are now. If the session was
// replaced or the person was removed from the frame, nothing is written.
func (s *Store) ApplyTo(t Target, fn func(p *annotation.Person)) error {
	return s.Apply(t.Session, func(v *annotation.Video) error {
		frame := v.Frame(t.FrameIndex)
		if frame == nil || t.Person == nil || frame.IndexOf(t.Person) < 0 {
			return errors.Wrapf(errors.ErrStaleTarget, "person no longer in frame %d", t.FrameIndex+1)
		}
		fn(t.Person)
		return nil
	})
}

// CurrentTarget captures the current frame and person.
func (s *Store) CurrentTarget() (Target, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTargetLocked()
}

// REQUIRES: s.mu held.
func (s *Store) currentTargetLocked() (Target, bool) {
	idx, ok := s.currentPersonLocked()
	if !ok {
		return Target{}, false
	}
	frame := s.video.Frame(s.currentFrame - 1)
	return Target{Session: s.session, FrameIndex: s.currentFrame - 1, Person: frame.People[idx]}, true
}

// Snapshot copies the observable state, including a deep copy of the current frame.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	person, _ := s.currentPersonLocked()
	snap := Snapshot{
		Session:     s.session,
		Frame:       s.currentFrame,
		Person:      person,
		ImagesCount: len(s.images),
		Redraw:      s.redraw,
	}
	if s.currentFrame > 0 {
		snap.Image = s.images[s.currentFrame-1]
		snap.Current = s.video.Frame(s.currentFrame - 1).Clone()
	}
	return snap
}

// Export returns a deep copy of the Video for saving.
func (s *Store) Export() *annotation.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.video.Clone()
}

// mutateCurrent runs fn on the current person.
func (s *Store) mutateCurrent(fn func(p *annotation.Person)) (Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.currentTargetLocked()
	if !ok {
		return Target{}, errors.NewNotFoundError("no person selected in frame %d", s.currentFrame)
	}
	fn(t.Person)
	s.emitLocked(EventModel)
	s.setRedrawLocked(true)
	return t, nil
}

// AddPerson appends an unassigned person to the current frame and selects it.
func (s *Store) AddPerson() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := s.video.Frame(s.currentFrame - 1)
	if frame == nil {
		return -1, errors.NewNotFoundError("no current frame")
	}
	frame.AddPerson(annotation.NewPerson())
	s.currentPerson = len(frame.People) - 1
	s.emitLocked(EventModel)
	s.emitLocked(EventPerson)
	s.setRedrawLocked(true)
	return s.currentPerson, nil
}

// RemovePerson deletes person i from the current frame.
func (s *Store) RemovePerson(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := s.video.Frame(s.currentFrame - 1)
	if frame == nil || !frame.RemovePerson(i) {
		return errors.NewNotFoundError("no person %d in frame %d", i, s.currentFrame)
	}
	s.emitLocked(EventModel)
	s.currentPersonLocked()
	s.setRedrawLocked(true)
	return nil
}

// SetBox stores a drawn box on the current person and marks it a keyframe.
// Boxes dragged up or left are normalized first.
func (s *Store) SetBox(box geom.BoundingBox) error {
	_, err := s.mutateCurrent(func(p *annotation.Person) {
		p.Box = box.Normalized()
		p.Keyframe = true
	})
	return err
}

// SetVirtualLocation stores a clicked image point on the current person and
// clears the derived fields. The returned Target is what zone resolution
// should write back to.
func (s *Store) SetVirtualLocation(pt geom.Point) (Target, error) {
	return s.mutateCurrent(func(p *annotation.Person) {
		p.Location.Virtual = pt.Clone()
		p.Location.Real = geom.EmptyPoint()
		p.Location.Zone = annotation.ZoneNone
	})
}

// SetKeyframe flags or unflags the current person as an interpolation anchor.
func (s *Store) SetKeyframe(keyframe bool) error {
	_, err := s.mutateCurrent(func(p *annotation.Person) { p.Keyframe = keyframe })
	return err
}

// SetPersonID assigns (or clears, with nil) the current person's id.
func (s *Store) SetPersonID(id *int) error {
	_, err := s.mutateCurrent(func(p *annotation.Person) {
		if id == nil {
			p.ID = nil
			return
		}
		p.ID = util.Ptr(*id)
	})
	return err
}

// SetObscured flags the current person as hidden behind something.
func (s *Store) SetObscured(obscured bool) error {
	_, err := s.mutateCurrent(func(p *annotation.Person) { p.Obscured = obscured })
	return err
}
