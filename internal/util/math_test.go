package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampInt(t *testing.T) {
	tests := []struct {
		v, lo, hi, want int
	}{
		{v: -3, lo: 1, hi: 10, want: 1},
		{v: 0, lo: 1, hi: 10, want: 1},
		{v: 5, lo: 1, hi: 10, want: 5},
		{v: 11, lo: 1, hi: 10, want: 10},
		{v: 4, lo: 1, hi: 0, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampInt(tt.v, tt.lo, tt.hi), "ClampInt(%d, %d, %d)", tt.v, tt.lo, tt.hi)
	}
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, 3.0, RoundHalfUp(2.5))
	assert.Equal(t, 2.0, RoundHalfUp(2.49))
	assert.Equal(t, -2.0, RoundHalfUp(-2.5))
	assert.Equal(t, 1500.0, RoundHalfUp(1499.6))
	assert.Equal(t, 2.5, AbsFloat64(-2.5))
}

func TestPtr(t *testing.T) {
	p := Ptr(4.5)
	assert.Equal(t, 4.5, *p)
	*p = 1
	assert.Equal(t, 4.5, *Ptr(4.5))
}
