/*Package raster turns scan configurations into coordinate axes and ordered
row traversal plans for snake-pattern raster scans.

Planning is pure computation: no hardware is touched here.  Validation,
including the scan rate safety gate, happens at plan time so a bad
configuration can never reach the actuator or the sensor.
*/
package raster

import (
	"fmt"

	"github.com/nasa-jpl/goscan/fsm"
	"github.com/nasa-jpl/goscan/mathx"
)

// MaxScanRate is the highest permitted effective scan rate in Hz.  The
// counting sensor saturates above this rate and produces meaningless data,
// so configurations exceeding it are rejected before any motion occurs.
const MaxScanRate = 200

// ErrBadConfig is generated when a scan configuration fails validation
type ErrBadConfig struct {
	Reason string
}

func (e ErrBadConfig) Error() string {
	return "invalid scan configuration: " + e.Reason
}

// ScanConfig describes one raster scan.  It is immutable once a scan begins.
type ScanConfig struct {
	// Dataset is the publishing channel results stream to
	Dataset string `json:"dataset" yaml:"Dataset"`

	// XCenter is the center of the scanned region in x
	XCenter float64 `json:"x_center" yaml:"XCenter"`

	// YCenter is the center of the scanned region in y
	YCenter float64 `json:"y_center" yaml:"YCenter"`

	// XRange is the full extent of the scanned region in x
	XRange float64 `json:"x_range" yaml:"XRange"`

	// YRange is the full extent of the scanned region in y
	YRange float64 `json:"y_range" yaml:"YRange"`

	// XNumPoints is the number of samples along x in each row
	XNumPoints int `json:"x_num_points" yaml:"XNumPoints"`

	// YNumPoints is the number of rows
	YNumPoints int `json:"y_num_points" yaml:"YNumPoints"`

	// CollectsPerPt is the number of raw collections averaged into each sample
	CollectsPerPt int `json:"collects_per_pt" yaml:"CollectsPerPt"`

	// Shots is the number of complete passes over the raster
	Shots int `json:"shots" yaml:"Shots"`

	// AcqRate is the sample rate of the counting sensor in Hz
	AcqRate float64 `json:"acq_rate" yaml:"AcqRate"`
}

// DefaultConfig returns a ScanConfig with the customary acquisition
// defaults.  The caller supplies the geometry.
func DefaultConfig() ScanConfig {
	return ScanConfig{
		Dataset:       "fsm-scan",
		CollectsPerPt: 50,
		Shots:         1,
		AcqRate:       100,
	}
}

// ScanRate returns the effective row rate of the configuration in Hz,
// acq_rate / (collects_per_pt * x_num_points)
func (c ScanConfig) ScanRate() float64 {
	return c.AcqRate / float64(c.CollectsPerPt*c.XNumPoints)
}

// Validate checks the configuration, including the scan rate ceiling.
// A non-nil return is always of type ErrBadConfig.
func (c ScanConfig) Validate() error {
	if c.XNumPoints < 1 {
		return ErrBadConfig{Reason: fmt.Sprintf("x_num_points must be at least 1, got %d", c.XNumPoints)}
	}
	if c.YNumPoints < 1 {
		return ErrBadConfig{Reason: fmt.Sprintf("y_num_points must be at least 1, got %d", c.YNumPoints)}
	}
	if c.XRange < 0 {
		return ErrBadConfig{Reason: fmt.Sprintf("x_range must be non-negative, got %G", c.XRange)}
	}
	if c.YRange < 0 {
		return ErrBadConfig{Reason: fmt.Sprintf("y_range must be non-negative, got %G", c.YRange)}
	}
	if c.CollectsPerPt < 1 {
		return ErrBadConfig{Reason: fmt.Sprintf("collects_per_pt must be at least 1, got %d", c.CollectsPerPt)}
	}
	if c.Shots < 1 {
		return ErrBadConfig{Reason: fmt.Sprintf("shots must be at least 1, got %d", c.Shots)}
	}
	if c.AcqRate <= 0 {
		return ErrBadConfig{Reason: fmt.Sprintf("acq_rate must be positive, got %G", c.AcqRate)}
	}
	if rate := c.ScanRate(); rate > MaxScanRate {
		return ErrBadConfig{Reason: fmt.Sprintf("scan rate %G Hz exceeds the %d Hz sensor ceiling", rate, MaxScanRate)}
	}
	return nil
}

// AxisSet holds the ordered coordinate values of both axes.  Values are
// evenly spaced and inclusive of both endpoints of the configured range.
type AxisSet struct {
	// X has length x_num_points
	X []float64 `json:"x"`

	// Y has length y_num_points
	Y []float64 `json:"y"`
}

// RowPlan is the traversal of a single row
type RowPlan struct {
	// Row is the row index, indexing AxisSet.Y
	Row int

	// Start is where the sweep begins
	Start fsm.Point

	// End is where the sweep ends
	End fsm.Point

	// Reversed is true when the sweep runs high-x to low-x; samples from a
	// reversed sweep are flipped before storage so columns always map to
	// ascending x
	Reversed bool
}

// Plan holds everything the executor needs to drive one scan
type Plan struct {
	// Config is the validated configuration the plan was built from
	Config ScanConfig

	// Axes are the coordinate values of both axes
	Axes AxisSet

	// Rows are the per-row traversals in execution order
	Rows []RowPlan

	// Center is the point the actuator parks at when the scan ends
	Center fsm.Point
}

// NewPlan validates cfg and builds the axes and row traversals.  Even rows
// sweep low-x to high-x and odd rows high-x to low-x (snake pattern),
// minimizing actuator travel between rows.
func NewPlan(cfg ScanConfig) (Plan, error) {
	err := cfg.Validate()
	if err != nil {
		return Plan{}, err
	}
	xs := mathx.Linspace(cfg.XCenter-cfg.XRange/2, cfg.XCenter+cfg.XRange/2, cfg.XNumPoints)
	ys := mathx.Linspace(cfg.YCenter-cfg.YRange/2, cfg.YCenter+cfg.YRange/2, cfg.YNumPoints)
	xLo := xs[0]
	xHi := xs[len(xs)-1]
	rows := make([]RowPlan, cfg.YNumPoints)
	for j := 0; j < cfg.YNumPoints; j++ {
		rp := RowPlan{Row: j}
		if j%2 == 0 {
			rp.Start = fsm.Point{X: xLo, Y: ys[j]}
			rp.End = fsm.Point{X: xHi, Y: ys[j]}
		} else {
			rp.Start = fsm.Point{X: xHi, Y: ys[j]}
			rp.End = fsm.Point{X: xLo, Y: ys[j]}
			rp.Reversed = true
		}
		rows[j] = rp
	}
	return Plan{
		Config: cfg,
		Axes:   AxisSet{X: xs, Y: ys},
		Rows:   rows,
		Center: fsm.Point{X: cfg.XCenter, Y: cfg.YCenter},
	}, nil
}
