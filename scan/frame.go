/*Package scan implements raster scan acquisition: fixed-shape frames, a
running per-pixel average across shots, and the executor that drives a plan
through an FSM controller while streaming partial results.

The executor runs as a single sequential worker.  Raster acquisition is
inherently serial; the mirror must physically settle before the next row's
data means anything.  Live readers never block acquisition: payloads are
cloned before publication and the streaming channel holds only the latest
payload per reader.
*/
package scan

import (
	"encoding/json"
	"fmt"
	"math"
)

// Frame is a fixed-shape 2D grid of samples, row-major, initialized to NaN.
// A row is either unfilled (all NaN) or completely filled; SetRow replaces
// whole rows and is the only mutator.
type Frame struct {
	// Rows is the number of rows, the y extent
	Rows int

	// Cols is the number of columns, the x extent
	Cols int

	data []float64
}

// NewFrame returns a rows x cols frame with every pixel set to NaN
func NewFrame(rows, cols int) *Frame {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = math.NaN()
	}
	return &Frame{Rows: rows, Cols: cols, data: data}
}

// SetRow replaces row j with a copy of row.  The write is all or nothing:
// a length mismatch leaves the frame untouched.
func (f *Frame) SetRow(j int, row []float64) error {
	if j < 0 || j >= f.Rows {
		return fmt.Errorf("row %d out of range, frame has %d rows", j, f.Rows)
	}
	if len(row) != f.Cols {
		return fmt.Errorf("row %d has %d samples, frame has %d columns", j, len(row), f.Cols)
	}
	copy(f.data[j*f.Cols:(j+1)*f.Cols], row)
	return nil
}

// Row returns a copy of row j
func (f *Frame) Row(j int) []float64 {
	out := make([]float64, f.Cols)
	copy(out, f.data[j*f.Cols:(j+1)*f.Cols])
	return out
}

// At returns the pixel at row j, column i
func (f *Frame) At(j, i int) float64 {
	return f.data[j*f.Cols+i]
}

// Clone returns an independent copy of the frame
func (f *Frame) Clone() *Frame {
	data := make([]float64, len(f.data))
	copy(data, f.data)
	return &Frame{Rows: f.Rows, Cols: f.Cols, data: data}
}

// MarshalJSON encodes the grid as a nested array with null standing in for
// NaN, which JSON cannot represent
func (f *Frame) MarshalJSON() ([]byte, error) {
	out := make([][]*float64, f.Rows)
	for j := 0; j < f.Rows; j++ {
		row := make([]*float64, f.Cols)
		for i := 0; i < f.Cols; i++ {
			v := f.data[j*f.Cols+i]
			if !math.IsNaN(v) {
				vv := v
				row[i] = &vv
			}
		}
		out[j] = row
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a nested array, mapping null back to NaN
func (f *Frame) UnmarshalJSON(data []byte) error {
	var in [][]*float64
	err := json.Unmarshal(data, &in)
	if err != nil {
		return err
	}
	rows := len(in)
	cols := 0
	if rows > 0 {
		cols = len(in[0])
	}
	g := NewFrame(rows, cols)
	for j, row := range in {
		if len(row) != cols {
			return fmt.Errorf("ragged frame: row %d has %d columns, expected %d", j, len(row), cols)
		}
		for i, p := range row {
			if p != nil {
				g.data[j*cols+i] = *p
			}
		}
	}
	*f = *g
	return nil
}
