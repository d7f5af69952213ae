// Package geom holds the value types annotations are drawn with: nullable
// image/room points and axis-aligned bounding boxes.
//
// Coordinates are *float64 because annotation files carry explicit nulls for
// anything the annotator has not drawn yet. A nil coordinate is "unset", not zero.
package geom

import (
	"math"

	"github.com/teranos/framemark/internal/util"
)

// Point is an x/y pair where either coordinate may be unset.
type Point struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// Pt builds a fully set point.
func Pt(x, y float64) Point {
	return Point{X: util.Ptr(x), Y: util.Ptr(y)}
}

// EmptyPoint returns a point with both coordinates unset.
func EmptyPoint() Point {
	return Point{}
}

// IsValid reports whether both coordinates are set finite numbers.
func (p Point) IsValid() bool {
	return finite(p.X) && finite(p.Y)
}

// IsEmpty reports whether neither coordinate is set.
func (p Point) IsEmpty() bool {
	return p.X == nil && p.Y == nil
}

// Clone returns a copy that shares no pointers with p.
func (p Point) Clone() Point {
	return Point{X: clonePtr(p.X), Y: clonePtr(p.Y)}
}

// Equal compares coordinates by value; two unset coordinates are equal.
func (p Point) Equal(o Point) bool {
	return eqPtr(p.X, o.X) && eqPtr(p.Y, o.Y)
}

// XY returns the coordinates. Only meaningful when IsValid.
func (p Point) XY() (float64, float64) {
	return value(p.X), value(p.Y)
}

func finite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return util.Ptr(*v)
}

func eqPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
