/*Package fsm provides control of two-axis fast steering mirror racks with a
synchronized counting sensor, and an HTTP wrapper for them.

An FSM rack in this package is anything that can steer the mirror to a point,
report its position, set and query the acquisition rate of the counter, and
sweep a line segment while the counter samples.  Two implementations are
provided: Remote, which speaks the rack's wire protocol over TCP or RS-422,
and Mock, which simulates a rack in memory for hardware-free development.

Consumers should accept the narrowest capability interface that serves them;
the raster scan machinery takes the full Controller.
*/
package fsm

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrBadPoint is generated when a point is decoded from a shape that is
// neither a labeled object nor a positional pair
var ErrBadPoint = errors.New("point must be an {x, y} object or a two element array")

// Point is a position in the two-axis coordinate space of the mirror
type Point struct {
	X float64
	Y float64
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// MarshalJSON encodes the point as a labeled object
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}{p.X, p.Y})
}

// UnmarshalJSON decodes either a labeled object {"x": 1, "y": 2} or a
// positional pair [1, 2].  Any other shape is rejected with ErrBadPoint.
func (p *Point) UnmarshalJSON(data []byte) error {
	var obj struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		if obj.X == nil || obj.Y == nil {
			return ErrBadPoint
		}
		p.X = *obj.X
		p.Y = *obj.Y
		return nil
	}
	var pair []float64
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return ErrBadPoint
		}
		p.X = pair[0]
		p.Y = pair[1]
		return nil
	}
	return ErrBadPoint
}

// RateSetter describes an interface with acquisition rate control
type RateSetter interface {
	// SetAcqRate sets the sample rate of the counting sensor in Hz
	SetAcqRate(float64) error

	// GetAcqRate returns the sample rate of the counting sensor in Hz
	GetAcqRate() (float64, error)
}

// Mover describes an interface with mirror position control
type Mover interface {
	// Move steers the mirror to a point
	Move(Point) error

	// GetPos returns the current position of the mirror
	GetPos() (Point, error)
}

// LineScanner describes an interface which can sweep a segment while the
// counting sensor samples
type LineScanner interface {
	// LineScan sweeps the mirror from start to end, inclusive of both
	// endpoints, and returns numPoints samples in traversal order.  Each
	// sample integrates collectsPerPt raw collections from the counter.
	// The call blocks for the duration of the physical sweep.
	LineScan(start, end Point, numPoints, collectsPerPt int) ([]float64, error)
}

// Controller is the complete capability set needed to run raster scans
type Controller interface {
	RateSetter
	Mover
	LineScanner
}
