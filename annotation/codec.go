package annotation

import (
	"encoding/json"
	"regexp"

	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/geom"
)

var zonePattern = regexp.MustCompile(`^[A-D]$`)

// The on-disk shape differs from the in-memory one: boxes are written as four
// corners, zone is null unless it is one of A-D, and frames carry numberOfPeople.

// BoxDoc is the four-corner box representation.
type BoxDoc struct {
	TopLeft     geom.Point `json:"topLeft"`
	TopRight    geom.Point `json:"topRight"`
	BottomLeft  geom.Point `json:"bottomLeft"`
	BottomRight geom.Point `json:"bottomRight"`
}

// LocationDoc is a person's location on disk. Segment is the key used by
// files written before zones were introduced; it is read but never written.
type LocationDoc struct {
	Virtual geom.Point `json:"virtual"`
	Real    geom.Point `json:"real"`
	Zone    *string    `json:"zone"`
	Segment *string    `json:"segment,omitempty"`
}

// PersonDoc is a person on disk.
type PersonDoc struct {
	ID       *int        `json:"id"`
	Obscured bool        `json:"obscured"`
	Box      BoxDoc      `json:"box"`
	Location LocationDoc `json:"location"`
	Keyframe bool        `json:"keyframe,omitempty"`
}

// FrameDoc is a frame on disk.
type FrameDoc struct {
	FrameNumber    int          `json:"frameNumber" validate:"gte=1"`
	NumberOfPeople int          `json:"numberOfPeople" validate:"gte=0"`
	People         []*PersonDoc `json:"people"`
}

// VideoDoc is the annotation file root.
type VideoDoc struct {
	Number    int         `json:"number" validate:"gte=0"`
	Name      string      `json:"name" validate:"required"`
	Increment string      `json:"increment" validate:"required"`
	Camera    int         `json:"camera" validate:"gte=0"`
	Frames    []*FrameDoc `json:"frames" validate:"required"`
}

// ToDoc converts p to its interchange form.
func (p *Person) ToDoc() *PersonDoc {
	return &PersonDoc{
		ID:       cloneInt(p.ID),
		Obscured: p.Obscured,
		Box: BoxDoc{
			TopLeft:     geom.Point{X: p.Box.Left, Y: p.Box.Top}.Clone(),
			TopRight:    geom.Point{X: p.Box.Right, Y: p.Box.Top}.Clone(),
			BottomLeft:  geom.Point{X: p.Box.Left, Y: p.Box.Bottom}.Clone(),
			BottomRight: geom.Point{X: p.Box.Right, Y: p.Box.Bottom}.Clone(),
		},
		Location: LocationDoc{
			Virtual: p.Location.Virtual.Clone(),
			Real:    p.Location.Real.Clone(),
			Zone:    zoneDoc(p.Location.Zone),
		},
		Keyframe: p.Keyframe,
	}
}

// ToDoc converts f to its interchange form.
func (f *Frame) ToDoc() *FrameDoc {
	doc := &FrameDoc{
		FrameNumber:    f.FrameNumber,
		NumberOfPeople: len(f.People),
		People:         make([]*PersonDoc, 0, len(f.People)),
	}
	for _, p := range f.People {
		if p != nil {
			doc.People = append(doc.People, p.ToDoc())
		}
	}
	doc.NumberOfPeople = len(doc.People)
	return doc
}

// ToDoc converts v to its interchange form. Nil frames stay null.
func (v *Video) ToDoc() *VideoDoc {
	doc := &VideoDoc{
		Number:    v.Number,
		Name:      v.Name,
		Increment: v.Increment,
		Camera:    v.Camera,
		Frames:    make([]*FrameDoc, 0, len(v.Frames)),
	}
	for _, f := range v.Frames {
		if f == nil {
			doc.Frames = append(doc.Frames, nil)
			continue
		}
		doc.Frames = append(doc.Frames, f.ToDoc())
	}
	return doc
}

// PersonFromDoc builds a Person. Left/top come from topLeft, right/bottom from bottomRight.
func PersonFromDoc(d *PersonDoc) *Person {
	p := &Person{
		ID:       cloneInt(d.ID),
		Obscured: d.Obscured,
		Box: geom.BoundingBox{
			Left:   d.Box.TopLeft.Clone().X,
			Top:    d.Box.TopLeft.Clone().Y,
			Right:  d.Box.BottomRight.Clone().X,
			Bottom: d.Box.BottomRight.Clone().Y,
		},
		Location: Location{
			Virtual: d.Location.Virtual.Clone(),
			Real:    d.Location.Real.Clone(),
		},
		Keyframe: d.Keyframe,
	}
	switch {
	case d.Location.Zone != nil:
		p.Location.Zone = *d.Location.Zone
	case d.Location.Segment != nil:
		p.Location.Zone = *d.Location.Segment
	}
	return p
}

// FrameFromDoc builds a Frame, skipping null people.
func FrameFromDoc(d *FrameDoc) *Frame {
	f := NewFrame(d.FrameNumber)
	for _, p := range d.People {
		if p != nil {
			f.AddPerson(PersonFromDoc(p))
		}
	}
	return f
}

// VideoFromDoc builds a Video. Null frames are skipped; frames with a usable
// frameNumber are placed at frameNumber-1 so FrameNumber keeps matching the index.
func VideoFromDoc(d *VideoDoc) *Video {
	v := NewVideo(d.Number, d.Name, d.Increment, d.Camera)
	for _, fd := range d.Frames {
		if fd == nil {
			continue
		}
		f := FrameFromDoc(fd)
		if f.FrameNumber >= 1 {
			v.PutFrame(f.FrameNumber-1, f)
		} else {
			f.FrameNumber = len(v.Frames) + 1
			v.AddFrame(f)
		}
	}
	return v
}

// Parse decodes an annotation file body.
func Parse(data []byte) (*Video, error) {
	var doc VideoDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode annotation document")
	}
	return VideoFromDoc(&doc), nil
}

// Marshal encodes v as the 4-space indented annotation file body.
func Marshal(v *Video) ([]byte, error) {
	data, err := json.MarshalIndent(v.ToDoc(), "", "    ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode annotation document")
	}
	return data, nil
}

// IsZoneLabel reports whether z is one of the persisted zone letters.
func IsZoneLabel(z string) bool {
	return zonePattern.MatchString(z)
}

func zoneDoc(z string) *string {
	if !IsZoneLabel(z) {
		return nil
	}
	return &z
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
