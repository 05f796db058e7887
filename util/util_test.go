package util_test

import (
	"testing"
	"time"

	"github.com/nasa-jpl/goscan/util"
)

func TestClampHigh(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = 20.
	)
	clamped := util.Clamp(input, low, high)
	if clamped == input {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestClampLow(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = -1.
	)
	clamped := util.Clamp(input, low, high)
	if clamped == input {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestClampPassthrough(t *testing.T) {
	var (
		low   = -5.
		high  = 5.
		input = 1.5
	)
	clamped := util.Clamp(input, low, high)
	if clamped != input {
		t.Errorf("expected in range value %f to pass unchanged, got %f", input, clamped)
	}
}

func TestLimiterCheckInside(t *testing.T) {
	lim := util.Limiter{Min: -50, Max: 50}
	if !lim.Check(0) {
		t.Errorf("expected 0 to satisfy limits %v", lim)
	}
	if !lim.Check(-50) {
		t.Errorf("expected limits to be inclusive of Min")
	}
	if !lim.Check(50) {
		t.Errorf("expected limits to be inclusive of Max")
	}
}

func TestLimiterCheckOutside(t *testing.T) {
	lim := util.Limiter{Min: -50, Max: 50}
	if lim.Check(51) {
		t.Errorf("expected 51 to violate limits %v", lim)
	}
	if lim.Check(-50.001) {
		t.Errorf("expected -50.001 to violate limits %v", lim)
	}
}

func TestSecsToDuration(t *testing.T) {
	var dur time.Duration = 123456789
	secs := dur.Seconds()
	out := util.SecsToDuration(secs)
	if out != dur {
		t.Errorf("expected SecsToDuration to round trip, output %v != expected %v", out, dur)
	}
}
