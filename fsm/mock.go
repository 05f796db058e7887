package fsm

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/nasa-jpl/goscan/mathx"
	"github.com/nasa-jpl/goscan/util"

	"golang.org/x/time/rate"
)

// mockTravel is the mechanical travel of the mock in each axis, +/- urad
const mockTravel = 100.0

type blob struct {
	x, y, amp, sigma float64
}

// mockBlobs are the gaussian sources in the synthetic intensity field.
// They are fixed so repeated scans of the same region converge under
// averaging.
var mockBlobs = []blob{
	{x: -12, y: 8, amp: 4200, sigma: 9},
	{x: 20, y: -15, amp: 2600, sigma: 6},
	{x: 3, y: 28, amp: 1500, sigma: 4},
}

// Mock simulates an FSM rack in memory.  The counter sees a flat baseline
// with fixed gaussian blobs and white noise, so scans of the same region
// produce consistent but noisy images.  It satisfies Controller.
type Mock struct {
	sync.Mutex
	pos      Point
	acqRate  float64
	baseline float64
	noise    float64
	blobs    []blob
	pace     *rate.Limiter
}

// NewMock returns a new mock rack.  If realtime is true, LineScan paces
// itself at the configured acquisition rate as real hardware would;
// otherwise it returns immediately.
func NewMock(realtime bool) *Mock {
	m := &Mock{
		acqRate:  100,
		baseline: 750,
		noise:    25,
		blobs:    mockBlobs,
	}
	if realtime {
		m.pace = rate.NewLimiter(rate.Limit(m.acqRate), 1)
	}
	return m
}

// SetAcqRate sets the simulated counter sample rate in Hz
func (m *Mock) SetAcqRate(hz float64) error {
	if hz <= 0 {
		return fmt.Errorf("acquisition rate must be positive, got %G", hz)
	}
	m.Lock()
	defer m.Unlock()
	m.acqRate = hz
	if m.pace != nil {
		m.pace.SetLimit(rate.Limit(hz))
	}
	return nil
}

// GetAcqRate returns the simulated counter sample rate in Hz
func (m *Mock) GetAcqRate() (float64, error) {
	m.Lock()
	defer m.Unlock()
	return m.acqRate, nil
}

// Move steers the mock to p.  Positions clamp to the mechanical travel.
func (m *Mock) Move(p Point) error {
	m.Lock()
	defer m.Unlock()
	m.pos = Point{
		X: util.Clamp(p.X, -mockTravel, mockTravel),
		Y: util.Clamp(p.Y, -mockTravel, mockTravel)}
	return nil
}

// GetPos returns the current position of the mock
func (m *Mock) GetPos() (Point, error) {
	m.Lock()
	defer m.Unlock()
	return m.pos, nil
}

// LineScan sweeps from start to end sampling the synthetic field, leaving
// the mirror at the end point
func (m *Mock) LineScan(start, end Point, numPoints, collectsPerPt int) ([]float64, error) {
	if numPoints < 1 || collectsPerPt < 1 {
		return nil, fmt.Errorf("numPoints and collectsPerPt must be positive, got %d and %d", numPoints, collectsPerPt)
	}
	xs := mathx.Linspace(start.X, end.X, numPoints)
	ys := mathx.Linspace(start.Y, end.Y, numPoints)
	m.Lock()
	pace := m.pace
	m.Unlock()
	if pace != nil && collectsPerPt > pace.Burst() {
		pace.SetBurst(collectsPerPt)
	}
	out := make([]float64, numPoints)
	for i := 0; i < numPoints; i++ {
		if pace != nil {
			err := pace.WaitN(context.Background(), collectsPerPt)
			if err != nil {
				return nil, err
			}
		}
		out[i] = m.sample(xs[i], ys[i])
	}
	m.Lock()
	m.pos = Point{X: xs[numPoints-1], Y: ys[numPoints-1]}
	m.Unlock()
	return out, nil
}

// sample evaluates the synthetic field at (x, y)
func (m *Mock) sample(x, y float64) float64 {
	v := m.baseline
	for _, b := range m.blobs {
		dx := x - b.x
		dy := y - b.y
		v += b.amp * math.Exp(-(dx*dx+dy*dy)/(2*b.sigma*b.sigma))
	}
	v += m.noise * randN1to1()
	if v < 0 {
		v = 0
	}
	return v
}

func randN1to1() float64 {
	return rand.Float64()*2 - 1 // [0,1] => [0,2] => [-1,1]
}
