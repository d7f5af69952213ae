// Package annotation is the in-memory annotation document: a Video made of
// Frames, each holding the People annotated in that still image.
//
// Frames are 0-indexed in Video.Frames while Frame.FrameNumber is 1-based;
// FrameNumber always equals index+1. Frames may be nil (sparse), so code that
// walks Video.Frames must skip nil entries.
package annotation

import (
	"github.com/teranos/framemark/geom"
	"github.com/teranos/framemark/internal/util"
)

// Zone labels produced by classification. ZoneNone means "not resolved yet".
const (
	ZoneNone = ""
	ZoneNA   = "N/A"
)

// Location is where a person stands, in image space and in room space.
// Virtual is set by the annotator; Real and Zone are derived from it.
type Location struct {
	Virtual geom.Point `json:"virtual"`
	Real    geom.Point `json:"real"`
	Zone    string     `json:"zone"`
}

// IsEmpty reports whether none of the three sub-fields carries data.
func (l Location) IsEmpty() bool {
	return !l.Virtual.IsValid() && !l.Real.IsValid() && l.Zone == ZoneNone
}

// Clone returns a copy sharing no pointers with l.
func (l Location) Clone() Location {
	return Location{Virtual: l.Virtual.Clone(), Real: l.Real.Clone(), Zone: l.Zone}
}

// Person is one tracked individual within a single frame.
// ID is nil until the annotator assigns one; identity across frames is the ID,
// never the position in Frame.People.
type Person struct {
	ID       *int             `json:"id"`
	Obscured bool             `json:"obscured"`
	Box      geom.BoundingBox `json:"boundingBox"`
	Location Location         `json:"location"`
	Keyframe bool             `json:"keyframe"`
}

// NewPerson returns an unassigned person with nothing drawn.
func NewPerson() *Person {
	return &Person{}
}

// HasID reports whether an id has been assigned.
func (p *Person) HasID() bool {
	return p != nil && p.ID != nil
}

// SameID reports whether both people carry the same assigned id.
func (p *Person) SameID(o *Person) bool {
	return p.HasID() && o.HasID() && *p.ID == *o.ID
}

// IsVisible reports whether anything about p can be drawn.
func (p *Person) IsVisible() bool {
	return p.Box.IsValid() || p.Location.Virtual.IsValid()
}

// Clone returns a deep copy of p.
func (p *Person) Clone() *Person {
	if p == nil {
		return nil
	}
	c := &Person{
		Obscured: p.Obscured,
		Box:      p.Box.Clone(),
		Location: p.Location.Clone(),
		Keyframe: p.Keyframe,
	}
	if p.ID != nil {
		c.ID = util.Ptr(*p.ID)
	}
	return c
}

// Frame is one still image and the people annotated in it.
type Frame struct {
	FrameNumber int       `json:"frameNumber"`
	People      []*Person `json:"people"`
}

// NewFrame returns an empty frame. number is 1-based.
func NewFrame(number int) *Frame {
	return &Frame{FrameNumber: number, People: []*Person{}}
}

// AddPerson appends p.
func (f *Frame) AddPerson(p *Person) {
	f.People = append(f.People, p)
}

// RemovePerson deletes the person at index i. Out-of-range is a no-op.
func (f *Frame) RemovePerson(i int) bool {
	if i < 0 || i >= len(f.People) {
		return false
	}
	f.People = append(f.People[:i], f.People[i+1:]...)
	return true
}

// Person returns the person at index i, or nil.
func (f *Frame) Person(i int) *Person {
	if f == nil || i < 0 || i >= len(f.People) {
		return nil
	}
	return f.People[i]
}

// FindByID returns every person in f carrying id.
func (f *Frame) FindByID(id int) []*Person {
	var found []*Person
	for _, p := range f.People {
		if p != nil && p.ID != nil && *p.ID == id {
			found = append(found, p)
		}
	}
	return found
}

// IndexOf returns the position of p (by pointer) or -1.
func (f *Frame) IndexOf(p *Person) int {
	if f == nil {
		return -1
	}
	for i, q := range f.People {
		if q == p {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of f with nil people dropped.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	c := NewFrame(f.FrameNumber)
	for _, p := range f.People {
		if p != nil {
			c.AddPerson(p.Clone())
		}
	}
	return c
}

// Match identifies which sequence and video an annotation file belongs to.
type Match struct {
	Number    int
	Name      string
	Increment string
	Camera    int
}

// Video is the annotation document for one camera's recording.
type Video struct {
	Number    int      `json:"number"`
	Name      string   `json:"name"`
	Increment string   `json:"increment"`
	Camera    int      `json:"camera"`
	Frames    []*Frame `json:"frames"`
}

// NewVideo returns a document with no frames.
func NewVideo(number int, name, increment string, camera int) *Video {
	return &Video{Number: number, Name: name, Increment: increment, Camera: camera, Frames: []*Frame{}}
}

// Context returns the identifying fields of v.
func (v *Video) Context() Match {
	return Match{Number: v.Number, Name: v.Name, Increment: v.Increment, Camera: v.Camera}
}

// SetContext overwrites the identifying fields of v.
func (v *Video) SetContext(m Match) {
	v.Number, v.Name, v.Increment, v.Camera = m.Number, m.Name, m.Increment, m.Camera
}

// Matches reports whether v belongs to the sequence and video described by m.
func (v *Video) Matches(m Match) bool {
	return v.Context() == m
}

// AddFrame appends f.
func (v *Video) AddFrame(f *Frame) {
	v.Frames = append(v.Frames, f)
}

// PutFrame places f at index i, overwriting and growing Frames with nil holes as needed.
func (v *Video) PutFrame(i int, f *Frame) {
	if i < 0 {
		return
	}
	for len(v.Frames) <= i {
		v.Frames = append(v.Frames, nil)
	}
	v.Frames[i] = f
}

// Frame returns the frame at 0-based index i, or nil for holes and out-of-range.
func (v *Video) Frame(i int) *Frame {
	if v == nil || i < 0 || i >= len(v.Frames) {
		return nil
	}
	return v.Frames[i]
}

// FillFrames creates empty frames until there are n and fills any nil holes below n.
func (v *Video) FillFrames(n int) {
	for i := 0; i < n; i++ {
		if i < len(v.Frames) {
			if v.Frames[i] == nil {
				v.Frames[i] = NewFrame(i + 1)
			}
			continue
		}
		v.Frames = append(v.Frames, NewFrame(i+1))
	}
}

// Clone returns a deep copy of v.
func (v *Video) Clone() *Video {
	c := NewVideo(v.Number, v.Name, v.Increment, v.Camera)
	for _, f := range v.Frames {
		c.Frames = append(c.Frames, f.Clone())
	}
	return c
}
