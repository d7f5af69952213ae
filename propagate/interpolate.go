package propagate

import (
	"github.com/teranos/framemark/annotation"
	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/geom"
	"github.com/teranos/framemark/state"
)

var errNothingToInterpolate = errors.New("nothing to interpolate")

// InterpolateToCurrent back-fills boxes for the current person between the
// nearest earlier keyframe and the current frame. Keyframed boxes in between
// are left alone. It returns how many boxes were written; a missing anchor or
// an invalid box at either end is a no-op, not an error.
//
// People are matched by id when the current person has one, and by position
// in the frame otherwise.
func InterpolateToCurrent(s *state.Store) (int, error) {
	t, ok := s.CurrentTarget()
	if !ok {
		return 0, nil
	}

	written := 0
	err := s.Apply(t.Session, func(v *annotation.Video) error {
		n, err := interpolate(v, t)
		written = n
		return err
	})
	if errors.Is(err, errNothingToInterpolate) {
		return 0, nil
	}
	return written, err
}

func interpolate(v *annotation.Video, t state.Target) (int, error) {
	current := v.Frame(t.FrameIndex)
	index := current.IndexOf(t.Person)
	if index < 0 {
		return 0, errors.Wrap(errors.ErrStaleTarget, "current person left the frame")
	}

	find := func(f *annotation.Frame) *annotation.Person {
		if f == nil {
			return nil
		}
		if t.Person.HasID() {
			if same := f.FindByID(*t.Person.ID); len(same) > 0 {
				return same[0]
			}
			return nil
		}
		return f.Person(index)
	}

	anchor := -1
	var start geom.BoundingBox
	for i := t.FrameIndex - 1; i >= 0; i-- {
		if p := find(v.Frame(i)); p != nil && p.Keyframe {
			anchor = i
			start = p.Box
			break
		}
	}

	end := t.Person.Box
	if anchor < 0 || !start.IsValid() || !end.IsValid() {
		return 0, errNothingToInterpolate
	}

	boxes := geom.Interpolate(start, end, t.FrameIndex-anchor)
	if len(boxes) == 0 {
		return 0, errNothingToInterpolate
	}

	written := 0
	for k, box := range boxes {
		p := find(v.Frame(anchor + 1 + k))
		if p == nil || p.Keyframe {
			continue
		}
		p.Box = box
		written++
	}
	return written, nil
}
