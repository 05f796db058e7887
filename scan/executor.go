package scan

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nasa-jpl/goscan/fsm"
	"github.com/nasa-jpl/goscan/raster"
)

// Status is the lifecycle state of an executor
type Status int

const (
	// Idle indicates the executor has not been run
	Idle Status = iota

	// Running indicates acquisition is in progress
	Running

	// Completed indicates every shot finished
	Completed

	// Cancelled indicates a stop request ended the scan early
	Cancelled

	// Failed indicates a hardware or internal failure ended the scan
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Publisher is the push half of a streaming channel
type Publisher interface {
	// Push broadcasts a payload to any readers
	Push(interface{}) error
}

// Executor drives one raster scan plan through an FSM controller.  It is
// single use: construct, Run, then read the frames back.  The controller
// is exclusively owned for the duration of Run; callers wanting several
// scans against the same hardware run them back to back, never
// concurrently.
type Executor struct {
	plan raster.Plan
	ctl  fsm.Controller
	pub  Publisher
	stop *StopFlag
	tel  *Telemetry

	mu       sync.Mutex
	status   Status
	shot     int
	row      int
	raw      []*Frame
	avg      *RunningAverage
	avgSnaps []*Frame
}

// New validates cfg, builds the raster plan, and returns an executor ready
// to Run.  A validation failure means no executor exists and no hardware
// was touched.  pub may be nil for scans whose results are only read back
// afterward; stop may be nil when cancellation is not needed.
func New(cfg raster.ScanConfig, ctl fsm.Controller, pub Publisher, stop *StopFlag) (*Executor, error) {
	plan, err := raster.NewPlan(cfg)
	if err != nil {
		return nil, err
	}
	if stop == nil {
		stop = &StopFlag{}
	}
	return &Executor{
		plan: plan,
		ctl:  ctl,
		pub:  pub,
		stop: stop,
		tel:  NewTelemetry(64),
		avg:  NewRunningAverage(cfg.YNumPoints, cfg.XNumPoints),
	}, nil
}

// Plan returns the plan the executor was built with
func (e *Executor) Plan() raster.Plan {
	return e.plan
}

// Telemetry returns the executor's telemetry rings
func (e *Executor) Telemetry() *Telemetry {
	return e.tel
}

// Status returns the executor's lifecycle state
func (e *Executor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Progress returns the zero-based indices of the most recently completed
// shot and row
func (e *Executor) Progress() (shot, row int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shot, e.row
}

// Run drives the scan to a terminal state.  It returns nil on completion
// and on cancellation, and the original failure otherwise.  The actuator
// is recentered exactly once on every exit path; a recentering failure is
// logged and never masks the original error.  Run may be called once.
func (e *Executor) Run() error {
	e.mu.Lock()
	if e.status != Idle {
		e.mu.Unlock()
		return fmt.Errorf("scan executor is single use, currently %v", e.status)
	}
	e.status = Running
	e.mu.Unlock()

	cancelled, err := e.acquire()
	e.recenter()
	e.mu.Lock()
	switch {
	case err != nil:
		e.status = Failed
	case cancelled:
		e.status = Cancelled
	default:
		e.status = Completed
	}
	e.mu.Unlock()
	return err
}

// acquire runs the shot and row loops.  It returns as soon as a stop
// request is seen at a row boundary or any error occurs.
func (e *Executor) acquire() (cancelled bool, err error) {
	cfg := e.plan.Config
	err = e.ctl.SetAcqRate(cfg.AcqRate)
	if err != nil {
		return false, ErrHardware{Op: "set acquisition rate", Err: err}
	}
	for s := 0; s < cfg.Shots; s++ {
		frame := NewFrame(cfg.YNumPoints, cfg.XNumPoints)
		e.mu.Lock()
		e.shot = s
		e.raw = append(e.raw, frame)
		// the live mean stands in for this shot's snapshot until the
		// shot completes and it is frozen
		e.avgSnaps = append(e.avgSnaps, e.avg.Frame())
		e.mu.Unlock()
		for _, rp := range e.plan.Rows {
			start := time.Now()
			row, err := e.ctl.LineScan(rp.Start, rp.End, cfg.XNumPoints, cfg.CollectsPerPt)
			if err != nil {
				return false, ErrHardware{Op: fmt.Sprintf("line scan of row %d", rp.Row), Err: err}
			}
			if len(row) != cfg.XNumPoints {
				return false, ErrHardware{
					Op:  fmt.Sprintf("line scan of row %d", rp.Row),
					Err: fmt.Errorf("expected %d samples, got %d", cfg.XNumPoints, len(row))}
			}
			if rp.Reversed {
				reverse(row)
			}
			e.mu.Lock()
			e.row = rp.Row
			err = frame.SetRow(rp.Row, row)
			if err == nil {
				err = e.avg.UpdateRow(rp.Row, s, row)
			}
			e.mu.Unlock()
			if err != nil {
				return false, err
			}
			e.tel.RecordRow(time.Since(start))
			e.publish(s)
			if e.stop.Stopped() {
				return true, nil
			}
		}
		e.mu.Lock()
		e.avgSnaps[s] = e.avg.Snapshot()
		e.mu.Unlock()
	}
	return false, nil
}

// recenter parks the actuator at the configured center, once per Run
func (e *Executor) recenter() {
	err := e.ctl.Move(e.plan.Center)
	if err != nil {
		log.Printf("recentering actuator to %v failed: %v", e.plan.Center, err)
	}
}

// publish pushes the complete current state.  A failed push is logged and
// counted; acquisition continues because raw frames remain in memory.
func (e *Executor) publish(s int) {
	if e.pub == nil {
		return
	}
	err := e.pub.Push(e.payload(s))
	if err != nil {
		perr := ErrPublish{Dataset: e.plan.Config.Dataset, Err: err}
		log.Println(perr)
		e.tel.RecordPublishError()
	}
}

// payload assembles a push for shot s.  Every frame is cloned so readers
// never observe later mutation.
func (e *Executor) payload(s int) Payload {
	e.mu.Lock()
	raw := make([]*Frame, len(e.raw))
	for i, f := range e.raw {
		raw[i] = f.Clone()
	}
	avg := make([]*Frame, len(e.avgSnaps))
	for i, f := range e.avgSnaps {
		avg[i] = f.Clone()
	}
	e.mu.Unlock()
	cfg := e.plan.Config
	return Payload{
		Params: Params{
			Center:        [2]float64{cfg.XCenter, cfg.YCenter},
			Range:         [2]float64{cfg.XRange, cfg.YRange},
			Points:        [2]int{cfg.XNumPoints, cfg.YNumPoints},
			CollectsPerPt: cfg.CollectsPerPt,
			Shot:          s + 1,
			Shots:         cfg.Shots,
			AcqRate:       cfg.AcqRate,
		},
		Title:  payloadTitle,
		XLabel: payloadXLabel,
		YLabel: payloadYLabel,
		ZLabel: payloadZLabel,
		Datasets: Datasets{
			Raw:    raw,
			Avg:    avg,
			XSteps: e.plan.Axes.X,
			YSteps: e.plan.Axes.Y,
		},
	}
}

// Payload assembles the executor's current complete state, identical in
// shape to what is pushed after each row
func (e *Executor) Payload() Payload {
	e.mu.Lock()
	s := e.shot
	e.mu.Unlock()
	return e.payload(s)
}

// RawFrames returns copies of the per-shot frames acquired so far
func (e *Executor) RawFrames() []*Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Frame, len(e.raw))
	for i, f := range e.raw {
		out[i] = f.Clone()
	}
	return out
}

// Average returns a copy of the running mean grid
func (e *Executor) Average() *Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.avg.Snapshot()
}

func reverse(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
