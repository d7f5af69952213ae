// Package propagate carries annotations across frames: copy-forward when the
// annotator advances, and keyframe interpolation on request.
package propagate

import (
	"go.uber.org/zap"

	"github.com/teranos/framemark/annotation"
	"github.com/teranos/framemark/geom"
	"github.com/teranos/framemark/logger"
	"github.com/teranos/framemark/settings"
	"github.com/teranos/framemark/state"
)

// Relocator is told about every location copied forward so the zone can be
// resolved again. It is called with the store locked and must not block or
// call back into the store; start the work in a goroutine.
type Relocator func(t state.Target)

// CopyForward returns the before-change hook that copies the current person
// of the frame being left into the frame after it.
//
// Only gaps are filled: a person in the next frame that already has a valid
// box keeps it, and a non-empty location is never replaced. People are matched
// by id; unassigned people never propagate.
func CopyForward(s *settings.Settings, relocate Relocator) state.Hook {
	log := logger.ComponentLogger("propagate")
	return func(c state.FrameChange) {
		copyForward(c, s.Values(), relocate, log)
	}
}

func copyForward(c state.FrameChange, opts settings.Values, relocate Relocator, log *zap.SugaredLogger) {
	if !opts.CopiesForward() || c.From < 0 || c.Person < 0 {
		return
	}

	src := c.Video.Frame(c.From).Person(c.Person)
	if !src.HasID() {
		return
	}

	nextIndex := c.From + 1
	next := c.Video.Frame(nextIndex)
	if next == nil {
		return
	}

	matches := next.FindByID(*src.ID)
	if len(matches) == 0 {
		seed := src.Clone()
		seed.Box = geom.EmptyBox()
		seed.Location = annotation.Location{Zone: annotation.ZoneNone}
		seed.Keyframe = false
		next.AddPerson(seed)
		matches = []*annotation.Person{seed}
		log.Debugw("Person seeded into next frame", logger.FieldPersonID, *src.ID, logger.FieldFrame, nextIndex+1)
	}

	for _, m := range matches {
		if opts.CopyBox && src.Box.IsValid() && !m.Box.IsValid() {
			m.Box = src.Box.Clone()
		}
		if opts.CopyLocation && !src.Location.IsEmpty() && m.Location.IsEmpty() {
			m.Location = src.Location.Clone()
			if relocate != nil && m.Location.Virtual.IsValid() {
				relocate(state.Target{Session: c.Session, FrameIndex: nextIndex, Person: m})
			}
		}
	}
}
