package util

import "math"

// AbsFloat64 returns the absolute value of x.
func AbsFloat64(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// ClampInt limits v to [lo, hi]. hi wins when lo > hi.
func ClampInt(v, lo, hi int) int {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return v
}

// RoundHalfUp rounds to the nearest integer with .5 going toward +Inf,
// matching how real coordinates have always been written to annotation files.
func RoundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
