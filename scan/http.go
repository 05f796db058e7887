package scan

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/nasa-jpl/goscan/generichttp"
	"github.com/nasa-jpl/goscan/raster"
)

// stopSentinel is the only control verb a scan session understands
const stopSentinel = "stop"

// HTTPScan wraps a Runner in an HTTP route table.  It is bound alongside
// the controller's own routes, so one node serves both direct mirror
// control and scan sessions.
type HTTPScan struct {
	// R is the underlying runner
	R *Runner

	// RouteTable maps methods and paths to the runner's functions
	RouteTable generichttp.RouteTable
}

// NewHTTPScan returns a new HTTP wrapper around an existing runner
func NewHTTPScan(r *Runner) HTTPScan {
	w := HTTPScan{R: r}
	rt := generichttp.RouteTable{
		generichttp.MethodPath{Method: http.MethodPost, Path: "/scan"}:       w.Scan,
		generichttp.MethodPath{Method: http.MethodPost, Path: "/control"}:    w.Control,
		generichttp.MethodPath{Method: http.MethodGet, Path: "/status"}:      w.Status,
		generichttp.MethodPath{Method: http.MethodGet, Path: "/data/latest"}: w.LatestData,
		generichttp.MethodPath{Method: http.MethodGet, Path: "/telemetry"}:   w.Telemetry,
		generichttp.MethodPath{Method: http.MethodGet, Path: "/config"}:      w.Config,
	}
	w.RouteTable = rt
	return w
}

// RT satisfies generichttp.HTTPer
func (w HTTPScan) RT() generichttp.RouteTable {
	return w.RouteTable
}

// Scan launches a scan from the invocation parameters on the body.
// Replies 409 while a scan is in flight and 400 when the configuration
// fails validation, including the scan rate safety gate.
func (w HTTPScan) Scan(wr http.ResponseWriter, r *http.Request) {
	var cfg raster.ScanConfig
	err := json.NewDecoder(r.Body).Decode(&cfg)
	defer r.Body.Close()
	if err != nil {
		http.Error(wr, err.Error(), http.StatusBadRequest)
		return
	}
	err = w.R.Start(cfg)
	switch err.(type) {
	case nil:
	case raster.ErrBadConfig:
		http.Error(wr, err.Error(), http.StatusBadRequest)
		return
	default:
		if err == ErrBusy {
			http.Error(wr, err.Error(), http.StatusConflict)
			return
		}
		http.Error(wr, err.Error(), http.StatusInternalServerError)
		return
	}
	wr.WriteHeader(http.StatusOK)
}

// Control accepts the stop sentinel, {"str": "stop"}.  Any other verb is
// rejected; cancellation is the only external control a running scan has.
func (w HTTPScan) Control(wr http.ResponseWriter, r *http.Request) {
	s := generichttp.StrT{}
	err := json.NewDecoder(r.Body).Decode(&s)
	defer r.Body.Close()
	if err != nil {
		http.Error(wr, err.Error(), http.StatusBadRequest)
		return
	}
	if s.Str != stopSentinel {
		http.Error(wr, "unknown control verb, only \"stop\" is recognized", http.StatusBadRequest)
		return
	}
	w.R.Stop()
	wr.WriteHeader(http.StatusOK)
}

// StatusReply describes the lifecycle position of the most recent scan
type StatusReply struct {
	// State is idle, running, completed, cancelled, or failed
	State string `json:"state"`

	// Shot is the 1-based pass in flight or last touched
	Shot int `json:"shot"`

	// Shots is the configured number of passes
	Shots int `json:"shots"`

	// Row is the 1-based most recently completed row
	Row int `json:"row"`

	// Rows is the configured number of rows
	Rows int `json:"rows"`
}

// Status yields the state and progress of the most recent scan
func (w HTTPScan) Status(wr http.ResponseWriter, r *http.Request) {
	reply := StatusReply{State: Idle.String()}
	if e := w.R.Executor(); e != nil {
		shot, row := e.Progress()
		cfg := e.Plan().Config
		reply = StatusReply{
			State: e.Status().String(),
			Shot:  shot + 1,
			Shots: cfg.Shots,
			Row:   row + 1,
			Rows:  cfg.YNumPoints,
		}
	}
	wr.Header().Set("Content-Type", "application/json")
	wr.WriteHeader(http.StatusOK)
	err := json.NewEncoder(wr).Encode(reply)
	if err != nil {
		// the 200 is already on the wire; all we can do is log
		log.Printf("error encoding status to json %v", err)
	}
}

// LatestData yields the complete current payload of the most recent scan.
// fmt=json (default) mirrors what the streaming channel carries; fmt=fits
// yields the raw stack as a float64 image cube with the running average in
// a second HDU.
func (w HTTPScan) LatestData(wr http.ResponseWriter, r *http.Request) {
	e := w.R.Executor()
	if e == nil {
		http.Error(wr, "no scan has run yet", http.StatusNotFound)
		return
	}
	p := e.Payload()
	format := r.URL.Query().Get("fmt")
	switch format {
	case "", "json":
		wr.Header().Set("Content-Type", "application/json")
		wr.WriteHeader(http.StatusOK)
		err := json.NewEncoder(wr).Encode(p)
		if err != nil {
			log.Printf("error encoding payload to json %v", err)
		}
	case "fits":
		wr.Header().Set("Content-Type", "image/fits")
		wr.Header().Set("Content-Disposition", "attachment; filename=scan.fits")
		wr.WriteHeader(http.StatusOK)
		err := WriteFits(wr, p)
		if err != nil {
			log.Printf("error writing payload as fits %v", err)
		}
	default:
		http.Error(wr, "fmt must be json or fits", http.StatusBadRequest)
	}
}

// Telemetry yields the row timing and publish failure rings of the most
// recent scan
func (w HTTPScan) Telemetry(wr http.ResponseWriter, r *http.Request) {
	e := w.R.Executor()
	if e == nil {
		http.Error(wr, "no scan has run yet", http.StatusNotFound)
		return
	}
	wr.Header().Set("Content-Type", "application/json")
	wr.WriteHeader(http.StatusOK)
	err := json.NewEncoder(wr).Encode(e.Telemetry().Snapshot())
	if err != nil {
		log.Printf("error encoding telemetry to json %v", err)
	}
}

// Config yields the configuration of the most recent scan
func (w HTTPScan) Config(wr http.ResponseWriter, r *http.Request) {
	e := w.R.Executor()
	if e == nil {
		http.Error(wr, "no scan has run yet", http.StatusNotFound)
		return
	}
	wr.Header().Set("Content-Type", "application/json")
	wr.WriteHeader(http.StatusOK)
	err := json.NewEncoder(wr).Encode(e.Plan().Config)
	if err != nil {
		log.Printf("error encoding configuration to json %v", err)
	}
}
