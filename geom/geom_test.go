package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/framemark/internal/util"
)

func TestPointIsValid(t *testing.T) {
	tests := []struct {
		name  string
		point Point
		want  bool
	}{
		{"both set", Pt(3, 4), true},
		{"zero is a number", Pt(0, 0), true},
		{"negative allowed", Pt(-1, 2), true},
		{"empty", EmptyPoint(), false},
		{"x missing", Point{Y: util.Ptr(1.0)}, false},
		{"NaN", Pt(math.NaN(), 1), false},
		{"Inf", Pt(1, math.Inf(1)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.point.IsValid())
		})
	}
}

func TestPointCloneDoesNotAlias(t *testing.T) {
	p := Pt(1, 2)
	c := p.Clone()
	*c.X = 99

	assert.Equal(t, 1.0, *p.X)
	assert.True(t, EmptyPoint().Clone().IsEmpty())
	assert.True(t, Pt(1, 2).Equal(p))
	assert.False(t, p.Equal(c))
}

func TestBoundingBoxIsValid(t *testing.T) {
	tests := []struct {
		name string
		box  BoundingBox
		want bool
	}{
		{"ordered", Box(10, 50, 10, 50), true},
		{"origin corner", Box(0, 1, 0, 1), true},
		{"empty", EmptyBox(), false},
		{"negative edge", Box(-1, 50, 10, 50), false},
		{"inverted horizontally", Box(50, 10, 10, 50), false},
		{"inverted vertically", Box(10, 50, 50, 10), false},
		{"zero width", Box(10, 10, 10, 50), false},
		{"missing bottom", BoundingBox{Left: util.Ptr(1.0), Right: util.Ptr(2.0), Top: util.Ptr(1.0)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.box.IsValid())
		})
	}
}

func TestBoundingBoxNormalized(t *testing.T) {
	inverted := Box(50, 10, 60, 20)
	n := inverted.Normalized()

	require.True(t, n.IsValid())
	assert.True(t, n.Equal(Box(10, 50, 20, 60)))
	assert.True(t, EmptyBox().Normalized().IsEmpty())
}

func TestInterpolateCount(t *testing.T) {
	start := Box(10, 50, 10, 50)
	stop := Box(110, 150, 10, 50)

	for deltas := -1; deltas <= 6; deltas++ {
		boxes := Interpolate(start, stop, deltas)
		want := deltas - 1
		if want < 0 {
			want = 0
		}
		assert.Len(t, boxes, want, "deltas=%d", deltas)
	}
}

func TestInterpolateMidpoint(t *testing.T) {
	start := Box(10, 50, 10, 50)
	stop := Box(110, 150, 10, 50)

	boxes := Interpolate(start, stop, 2)
	require.Len(t, boxes, 1)
	assert.True(t, boxes[0].Equal(Box(60, 100, 10, 50)), "got %+v", boxes[0])

	cx, cy := boxes[0].Center()
	scx, scy := start.Center()
	ecx, ecy := stop.Center()
	assert.Equal(t, (scx+ecx)/2, cx)
	assert.Equal(t, (scy+ecy)/2, cy)
}

func TestInterpolateSizeChangesIndependently(t *testing.T) {
	// center stays at (50, 50) while the box grows from 20 to 60 wide
	start := Box(40, 60, 40, 60)
	stop := Box(20, 80, 20, 80)

	boxes := Interpolate(start, stop, 4)
	require.Len(t, boxes, 3)

	for i, b := range boxes {
		cx, cy := b.Center()
		assert.Equal(t, 50.0, cx, "box %d", i)
		assert.Equal(t, 50.0, cy, "box %d", i)
	}
	w, _ := boxes[1].Size()
	assert.Equal(t, 40.0, w)
}

func TestInterpolateFloorsEdges(t *testing.T) {
	boxes := Interpolate(Box(0, 10, 0, 10), Box(5, 15, 0, 10), 2)
	require.Len(t, boxes, 1)
	assert.True(t, boxes[0].Equal(Box(2, 12, 0, 10)), "got %+v", boxes[0])
}

func TestInterpolateInvalidEndpoints(t *testing.T) {
	assert.Empty(t, Interpolate(EmptyBox(), Box(1, 2, 1, 2), 3))
	assert.Empty(t, Interpolate(Box(1, 2, 1, 2), Box(2, 1, 1, 2), 3))
}

func TestIoU(t *testing.T) {
	a := Box(0, 10, 0, 10)

	assert.Equal(t, 1.0, IoU(a, a))
	assert.InDelta(t, 1.0/3.0, IoU(a, Box(5, 15, 0, 10)), 1e-9)
	assert.Equal(t, 0.0, IoU(a, Box(20, 30, 0, 10)))
	assert.Equal(t, 0.0, IoU(a, EmptyBox()))
}
