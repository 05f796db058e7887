// Package mathx provides small numerical helpers shared by the scan machinery
package mathx

import "math"

// Round rounds a float to the nearest "unit" (0.1 for tenth, 0.01 for hundredth, and so on).
func Round(x, unit float64) float64 {
	return float64(int64(x/unit+0.5)) * unit
}

// Linspace returns n evenly spaced values spanning [start, stop], inclusive
// of both endpoints.  n must be at least 1; for n == 1 the single value is
// start.
func Linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := 0; i < n; i++ {
		out[i] = start + float64(i)*step
	}
	// guard against accumulated rounding on the last sample
	out[n-1] = stop
	return out
}

// Mean returns the arithmetic mean of the input.  NaN values are not treated
// specially; a single NaN poisons the result as it does in any float math.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// MinMax returns the smallest and largest values in data, skipping NaNs.
// If data is empty or all NaN, both returns are NaN.
func MinMax(data []float64) (float64, float64) {
	min := math.NaN()
	max := math.NaN()
	for _, v := range data {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(min) || v < min {
			min = v
		}
		if math.IsNaN(max) || v > max {
			max = v
		}
	}
	return min, max
}
