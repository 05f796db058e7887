// Package util contains misc internal utilities.
package util

import (
	"time"
)

// Clamp restricts x to the range [min, max]
func Clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}

// Limiter is an inclusive range of allowed values.
// The zero value admits only zero; populate both fields.
type Limiter struct {
	// Min is the lower allowed bound
	Min float64

	// Max is the upper allowed bound
	Max float64
}

// Check returns true if v falls within the limits
func (l Limiter) Check(v float64) bool {
	return v >= l.Min && v <= l.Max
}

// SecsToDuration converts a floating point number of seconds to a time.Duration
func SecsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}
