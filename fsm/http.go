package fsm

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/ioutil"
	"log"
	"net/http"
	"strings"

	"github.com/nasa-jpl/goscan/generichttp"
	"github.com/nasa-jpl/goscan/util"
)

var errClamped = errors.New("requested position violates software limits, aborted")

// HTTPFSM wraps an FSM controller in an HTTP route table
type HTTPFSM struct {
	// Ctl is the underlying controller
	Ctl Controller

	// RouteTable maps methods and paths to the controller's functions
	RouteTable generichttp.RouteTable
}

// NewHTTPFSM returns a new HTTP wrapper around an existing controller
func NewHTTPFSM(ctl Controller) HTTPFSM {
	w := HTTPFSM{Ctl: ctl}
	rt := generichttp.RouteTable{
		generichttp.MethodPath{Method: http.MethodGet, Path: "/acq-rate"}:  generichttp.GetFloat(ctl.GetAcqRate),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/acq-rate"}: generichttp.SetFloat(ctl.SetAcqRate),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/pos"}:       GetPos(ctl),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/pos"}:      SetPos(ctl),
	}
	w.RouteTable = rt
	return w
}

// RT satisfies generichttp.HTTPer
func (w HTTPFSM) RT() generichttp.RouteTable {
	return w.RouteTable
}

// GetPos returns an HTTP handler func that yields the mirror position as
// a labeled object
func GetPos(m Mover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pos, err := m.GetPos()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err = json.NewEncoder(w).Encode(pos)
		if err != nil {
			log.Printf("error encoding position to json %v", err)
		}
	}
}

// SetPos returns an HTTP handler func that steers the mirror to a point.
// The body may be a labeled object or a positional pair; other shapes are
// rejected with StatusBadRequest.
func SetPos(m Mover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p Point
		err := json.NewDecoder(r.Body).Decode(&p)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = m.Move(p)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// LimitMiddleware is a type that can impose axis-specific bounds on moves.
// Requests which would violate a bound are rejected, stopping the chain of
// handling calls.
type LimitMiddleware struct {
	// Limits contains the server imposed bounds, keyed "x" and "y"
	Limits map[string]util.Limiter
}

// Check verifies if a move would violate an axis bound, if it exists,
// and if it does, responds with StatusBadRequest
// otherwise, flows control to the next handler
func (l *LimitMiddleware) Check(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.String(), "pos") || r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		var p Point
		// downstream functions might want the body...
		// read it all here, then "paste" it back with ioutil
		bodyContent, _ := ioutil.ReadAll(r.Body)
		defer r.Body.Close()
		r.Body = ioutil.NopCloser(bytes.NewBuffer(bodyContent))
		err := json.NewDecoder(bytes.NewReader(bodyContent)).Decode(&p)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if lim, ok := l.Limits["x"]; ok && !lim.Check(p.X) {
			http.Error(w, errClamped.Error(), http.StatusBadRequest)
			return
		}
		if lim, ok := l.Limits["y"]; ok && !lim.Check(p.Y) {
			http.Error(w, errClamped.Error(), http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Inject places a /limits route on the table of the HTTPer
func (l LimitMiddleware) Inject(h generichttp.HTTPer) {
	h.RT()[generichttp.MethodPath{Method: http.MethodGet, Path: "/limits"}] = Limits(l)
}

// Limits returns an HTTP handler func that yields the configured bounds
func Limits(l LimitMiddleware) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(l.Limits)
		if err != nil {
			log.Printf("error encoding limits to json %v", err)
		}
	}
}
