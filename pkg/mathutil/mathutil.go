// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/mac-forecast/pkg/constants"
)

// IsZero checks if a value is effectively zero (within tolerance)
func IsZero(val float64) bool {
	return math.Abs(val) <= constants.FractionTolerance
}

// IsFinite reports whether val is neither NaN nor infinite.
func IsFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// Min returns the minimum of two float64 values
func Min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Max returns the maximum of two float64 values
func Max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Clamp bounds val to [lo, hi]. The lower bound is applied first, so an
// inverted range resolves to hi.
func Clamp(val, lo, hi float64) float64 {
	return Min(Max(val, lo), hi)
}

// Lerp linearly interpolates between (x0, y0) and (x1, y1) at x. A zero
// width segment returns y0.
func Lerp(x0, y0, x1, y1, x float64) float64 {
	dx := x1 - x0
	if dx == 0 {
		return y0
	}
	return y0 + (y1-y0)*(x-x0)/dx
}
