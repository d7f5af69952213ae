package state

import (
	"github.com/teranos/framemark/annotation"
)

const (
	// SubscriberChannelBufferSize is the buffer size for subscriber channels
	SubscriberChannelBufferSize = 100
)

// EventKind names what changed in the store.
type EventKind string

const (
	EventFrame  EventKind = "frame"  // current frame committed
	EventPerson EventKind = "person" // current person set or self-healed
	EventRedraw EventKind = "redraw" // redraw flag changed value
	EventImages EventKind = "images" // image list replaced
	EventModel  EventKind = "model"  // annotation data mutated
)

// Event is what subscribers receive. Frame is 1-based (0 = none) and
// Person is an index into the current frame (-1 = none).
type Event struct {
	Kind    EventKind `json:"kind"`
	Session string    `json:"session"`
	Frame   int       `json:"frame"`
	Person  int       `json:"person"`
	Redraw  bool      `json:"redraw"`
}

// FrameChange is passed to before-change hooks. From and To are 0-based frame
// indexes; From is -1 when no frame was current. Person is the current person
// in the frame being left, after self-heal (-1 = none).
type FrameChange struct {
	Session string
	Video   *annotation.Video
	From    int
	To      int
	Person  int
}

// Hook runs before a new current frame is committed. Hooks run with the store
// locked: they may mutate Video directly but must not call back into the Store.
type Hook func(FrameChange)

// Target identifies one person in one frame of one store generation.
// It is captured when an async operation starts and checked when it finishes.
type Target struct {
	Session    string
	FrameIndex int
	Person     *annotation.Person
}

// Snapshot is a copy of the observable state, safe to hand to other goroutines.
type Snapshot struct {
	Session     string            `json:"session"`
	Frame       int               `json:"frame"`
	Person      int               `json:"person"`
	ImagesCount int               `json:"imagesCount"`
	Image       string            `json:"image,omitempty"`
	Redraw      bool              `json:"redraw"`
	Current     *annotation.Frame `json:"current,omitempty"`
}
