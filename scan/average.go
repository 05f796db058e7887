package scan

import "fmt"

// RunningAverage maintains a per-pixel cumulative mean across shots,
// updated row by row as data arrives.  After folding in shot s (zero
// based) at row j, each pixel of row j equals the arithmetic mean of that
// pixel's value over shots 0..s.
type RunningAverage struct {
	frame *Frame
}

// NewRunningAverage returns a mean grid of the given shape, initialized
// to NaN like any unfilled frame
func NewRunningAverage(rows, cols int) *RunningAverage {
	return &RunningAverage{frame: NewFrame(rows, cols)}
}

// UpdateRow folds row data from zero-based shot s into the mean at row j,
// avg = avg * s/(s+1) + row/(s+1).  The first shot assigns directly; the
// NaN placeholders would otherwise poison the scaled sum.
func (ra *RunningAverage) UpdateRow(j, s int, row []float64) error {
	if s == 0 {
		return ra.frame.SetRow(j, row)
	}
	f := ra.frame
	if j < 0 || j >= f.Rows {
		return fmt.Errorf("row %d out of range, frame has %d rows", j, f.Rows)
	}
	if len(row) != f.Cols {
		return fmt.Errorf("row %d has %d samples, frame has %d columns", j, len(row), f.Cols)
	}
	base := j * f.Cols
	fs := float64(s)
	for i := 0; i < f.Cols; i++ {
		f.data[base+i] = f.data[base+i]*fs/(fs+1) + row[i]/(fs+1)
	}
	return nil
}

// Frame returns the live mean grid.  The caller must not mutate it.
func (ra *RunningAverage) Frame() *Frame {
	return ra.frame
}

// Snapshot returns an independent copy of the mean grid
func (ra *RunningAverage) Snapshot() *Frame {
	return ra.frame.Clone()
}
