// Package utils contains small numeric, validation and concurrency helpers shared across the task
// layer.
package utils

import (
	"math"
)

// Clamp limits x to [lo, hi]. An infinite bound disables that side.
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// IsFinite reports whether every value is neither NaN nor infinite.
func IsFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
