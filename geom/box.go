package geom

import (
	"math"

	"github.com/teranos/framemark/internal/util"
)

// BoundingBox is an axis-aligned rectangle in image pixels.
type BoundingBox struct {
	Left   *float64 `json:"left"`
	Right  *float64 `json:"right"`
	Top    *float64 `json:"top"`
	Bottom *float64 `json:"bottom"`
}

// Box builds a fully set bounding box.
func Box(left, right, top, bottom float64) BoundingBox {
	return BoundingBox{
		Left:   util.Ptr(left),
		Right:  util.Ptr(right),
		Top:    util.Ptr(top),
		Bottom: util.Ptr(bottom),
	}
}

// EmptyBox returns a box with every edge unset.
func EmptyBox() BoundingBox {
	return BoundingBox{}
}

// IsValid reports whether all four edges are set, non-negative, and ordered
// (left < right, top < bottom). Inverted boxes are invalid; use Normalized to
// repair a box that was dragged up or left.
func (b BoundingBox) IsValid() bool {
	if !b.edgesSet() {
		return false
	}
	l, r, t, bt := b.Edges()
	if l < 0 || r < 0 || t < 0 || bt < 0 {
		return false
	}
	return l < r && t < bt
}

// IsEmpty reports whether no edge is set.
func (b BoundingBox) IsEmpty() bool {
	return b.Left == nil && b.Right == nil && b.Top == nil && b.Bottom == nil
}

// Normalized returns a copy with left/right and top/bottom swapped where inverted.
// Boxes with unset edges are returned as a plain clone.
func (b BoundingBox) Normalized() BoundingBox {
	if !b.edgesSet() {
		return b.Clone()
	}
	l, r, t, bt := b.Edges()
	return Box(math.Min(l, r), math.Max(l, r), math.Min(t, bt), math.Max(t, bt))
}

// Edges returns left, right, top, bottom. Unset edges read as zero.
func (b BoundingBox) Edges() (left, right, top, bottom float64) {
	return value(b.Left), value(b.Right), value(b.Top), value(b.Bottom)
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() (x, y float64) {
	l, r, t, bt := b.Edges()
	return (l + r) / 2, (t + bt) / 2
}

// Size returns width and height.
func (b BoundingBox) Size() (w, h float64) {
	l, r, t, bt := b.Edges()
	return r - l, bt - t
}

// Area of a valid box; zero otherwise.
func (b BoundingBox) Area() float64 {
	if !b.IsValid() {
		return 0
	}
	w, h := b.Size()
	return w * h
}

// Clone returns a copy that shares no pointers with b.
func (b BoundingBox) Clone() BoundingBox {
	return BoundingBox{
		Left:   clonePtr(b.Left),
		Right:  clonePtr(b.Right),
		Top:    clonePtr(b.Top),
		Bottom: clonePtr(b.Bottom),
	}
}

// Equal compares edges by value.
func (b BoundingBox) Equal(o BoundingBox) bool {
	return eqPtr(b.Left, o.Left) && eqPtr(b.Right, o.Right) &&
		eqPtr(b.Top, o.Top) && eqPtr(b.Bottom, o.Bottom)
}

func (b BoundingBox) edgesSet() bool {
	return finite(b.Left) && finite(b.Right) && finite(b.Top) && finite(b.Bottom)
}

// Interpolate returns the deltaCount-1 boxes strictly between start and stop.
//
// Center and size are interpolated independently and edges are re-derived as
// floor(center ± size/2), so a box that grows while it moves does not skew.
// deltaCount <= 1 or an invalid endpoint yields nil.
func Interpolate(start, stop BoundingBox, deltaCount int) []BoundingBox {
	if deltaCount <= 1 || !start.IsValid() || !stop.IsValid() {
		return nil
	}

	scx, scy := start.Center()
	ecx, ecy := stop.Center()
	sw, sh := start.Size()
	ew, eh := stop.Size()

	n := float64(deltaCount)
	boxes := make([]BoundingBox, 0, deltaCount-1)
	for i := 1; i < deltaCount; i++ {
		f := float64(i) / n
		cx := scx + (ecx-scx)*f
		cy := scy + (ecy-scy)*f
		w := sw + (ew-sw)*f
		h := sh + (eh-sh)*f

		boxes = append(boxes, Box(
			math.Floor(cx-w/2),
			math.Floor(cx+w/2),
			math.Floor(cy-h/2),
			math.Floor(cy+h/2),
		))
	}
	return boxes
}

// IoU is the intersection-over-union of two boxes. Invalid boxes score 0.
func IoU(a, b BoundingBox) float64 {
	if !a.IsValid() || !b.IsValid() {
		return 0
	}
	al, ar, at, ab := a.Edges()
	bl, br, bt, bb := b.Edges()

	iw := math.Min(ar, br) - math.Max(al, bl)
	ih := math.Min(ab, bb) - math.Max(at, bt)
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	return inter / (a.Area() + b.Area() - inter)
}
