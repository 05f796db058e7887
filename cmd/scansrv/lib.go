package main

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/nasa-jpl/goscan/datastream"
	"github.com/nasa-jpl/goscan/fsm"
	"github.com/nasa-jpl/goscan/generichttp"
	"github.com/nasa-jpl/goscan/raster"
	"github.com/nasa-jpl/goscan/scan"
	"github.com/nasa-jpl/goscan/server/middleware/locker"
	"github.com/nasa-jpl/goscan/util"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-yaml/yaml"
)

// Minmax holds a min and max value
type Minmax struct {
	Min float64 `yaml:"Min"`
	Max float64 `yaml:"Max"`
}

// NodeSetup holds the args for one FSM node
type NodeSetup struct {
	// Addr holds the network or filesystem address of the FSM rack,
	// e.g. 192.168.100.123:2006 for a rack on a digi portserver, or
	// /dev/ttyS4 for RS-422 on a serial cable
	Addr string `yaml:"Addr"`

	// Endpoint is the path the routes from this node will be served on
	// ex. Endpoint="/omc/fsm" produces routes of /omc/fsm/scan, etc.
	Endpoint string `yaml:"Endpoint"`

	// Serial determines if the connection is serial/RS-422 (True) or TCP (False)
	Serial bool `yaml:"Serial"`

	// Dataset is the publishing channel this node's scans stream to
	Dataset string `yaml:"Dataset"`

	// Limits holds axis travel bounds imposed by the server, keyed "x" and "y"
	Limits map[string]Minmax `yaml:"Limits"`

	// CollectsPerPt is the default number of collections per sample
	CollectsPerPt int `yaml:"CollectsPerPt"`

	// Shots is the default number of passes per scan
	Shots int `yaml:"Shots"`

	// AcqRate is the default counter sample rate in Hz
	AcqRate float64 `yaml:"AcqRate"`
}

// Config is a struct that holds the initialization parameters for the
// server's nodes.  It is to be populated by a yaml/unmarshal call.
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr"`

	// Mock substitutes simulated racks for every node
	Mock bool `yaml:"Mock"`

	// Nodes is the list of nodes to set up
	Nodes []NodeSetup `yaml:"Nodes"`
}

// LoadYaml converts a (path to a) yaml file into a Config struct
func LoadYaml(path string) (Config, error) {
	cfg := Config{}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	err = yaml.NewDecoder(f).Decode(&cfg)
	return cfg, err
}

// defaults turns a node's default fields into a scan configuration,
// falling back to the customary values for anything unset
func defaults(node NodeSetup) raster.ScanConfig {
	cfg := raster.DefaultConfig()
	if node.Dataset != "" {
		cfg.Dataset = node.Dataset
	}
	if node.CollectsPerPt != 0 {
		cfg.CollectsPerPt = node.CollectsPerPt
	}
	if node.Shots != 0 {
		cfg.Shots = node.Shots
	}
	if node.AcqRate != 0 {
		cfg.AcqRate = node.AcqRate
	}
	return cfg
}

// BuildMux constructs a chi mux from the config, one submux per FSM node
// carrying direct mirror control, scan session routes, and a lock.  The
// mux serves a special route, /endpoints, which returns the supergraph of
// all bound routes as JSON.
func BuildMux(c Config) chi.Router {
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	supergraph := map[string][]string{}
	hub := datastream.NewHub()

	for _, node := range c.Nodes {
		var ctl fsm.Controller
		if c.Mock {
			ctl = fsm.NewMock(true)
		} else {
			ctl = fsm.NewRemote(node.Addr, node.Serial)
		}

		limiters := map[string]util.Limiter{}
		for k, v := range node.Limits {
			limiters[k] = util.Limiter{Min: v.Min, Max: v.Max}
		}
		limiter := fsm.LimitMiddleware{Limits: limiters}

		httper := fsm.NewHTTPFSM(ctl)
		limiter.Inject(httper)

		runner := scan.NewRunner(ctl, hub, defaults(node))
		for mp, handler := range scan.NewHTTPScan(runner).RT() {
			httper.RT()[mp] = handler
		}

		// prepare the URL, "omc/fsm" => "/omc/fsm/*"
		hndlS := generichttp.SubMuxSanitize(node.Endpoint)
		supergraph[hndlS] = httper.RT().Endpoints()

		// add a lock interface for this node
		lock := locker.New()
		locker.Inject(httper, lock)

		r := chi.NewRouter()
		r.Use(limiter.Check)
		r.Use(lock.Check)
		httper.RT().Bind(r)
		root.Mount(hndlS, r)
	}
	root.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(supergraph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return root
}
