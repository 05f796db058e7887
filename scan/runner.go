package scan

import (
	"errors"
	"log"
	"sync"

	"github.com/nasa-jpl/goscan/datastream"
	"github.com/nasa-jpl/goscan/fsm"
	"github.com/nasa-jpl/goscan/raster"
)

// ErrBusy is generated when a scan is requested while one is in flight.
// The controller is exclusively owned by the running scan; callers wait or
// stop it first.
var ErrBusy = errors.New("a scan is already running on this controller")

// Runner serializes scans against one FSM controller and owns their
// streaming lifecycle.  It keeps the most recent executor around after a
// scan ends so results, status, and telemetry remain readable.
type Runner struct {
	ctl      fsm.Controller
	hub      *datastream.Hub
	defaults raster.ScanConfig

	mu   sync.Mutex
	exec *Executor
	stop *StopFlag
	busy bool
}

// NewRunner returns a runner bound to ctl, publishing into hub.  defaults
// fills any invocation field the caller leaves zero.
func NewRunner(ctl fsm.Controller, hub *datastream.Hub, defaults raster.ScanConfig) *Runner {
	return &Runner{ctl: ctl, hub: hub, defaults: defaults}
}

// withDefaults overlays cfg on the runner's defaults
func (r *Runner) withDefaults(cfg raster.ScanConfig) raster.ScanConfig {
	if cfg.Dataset == "" {
		cfg.Dataset = r.defaults.Dataset
	}
	if cfg.CollectsPerPt == 0 {
		cfg.CollectsPerPt = r.defaults.CollectsPerPt
	}
	if cfg.Shots == 0 {
		cfg.Shots = r.defaults.Shots
	}
	if cfg.AcqRate == 0 {
		cfg.AcqRate = r.defaults.AcqRate
	}
	return cfg
}

// Start validates cfg and launches the scan in its own goroutine.  It
// returns ErrBusy while a scan is in flight and the validation error, if
// any, before any hardware is touched.  The publishing source for the
// configured dataset opens at start and closes when the scan reaches a
// terminal state.
func (r *Runner) Start(cfg raster.ScanConfig) error {
	cfg = r.withDefaults(cfg)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.busy {
		return ErrBusy
	}
	src, err := r.hub.Source(cfg.Dataset)
	if err != nil {
		return err
	}
	stop := &StopFlag{}
	exec, err := New(cfg, r.ctl, src, stop)
	if err != nil {
		src.Close()
		return err
	}
	r.exec = exec
	r.stop = stop
	r.busy = true
	go func() {
		err := exec.Run()
		if err != nil {
			log.Printf("scan on dataset %s failed: %v", cfg.Dataset, err)
		}
		src.Close()
		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()
	}()
	return nil
}

// Stop requests cancellation of the scan in flight, if any.  The current
// row completes before the scan ends.
func (r *Runner) Stop() {
	r.mu.Lock()
	stop := r.stop
	r.mu.Unlock()
	if stop != nil {
		stop.Stop()
	}
}

// Busy reports whether a scan is in flight
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}

// Executor returns the most recent executor, or nil before the first scan
func (r *Runner) Executor() *Executor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exec
}
