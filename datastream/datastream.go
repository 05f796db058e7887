/*Package datastream provides named, in-memory streaming channels linking
one producer to any number of readers.

Each dataset has at most one open Source at a time and any number of Sinks.
Delivery is latest-wins: every sink holds only the most recent payload, so
a slow reader never applies backpressure to the producer and always
reconstructs the freshest complete state when it catches up.  Closing a
source ends the stream for attached sinks; a new source may then reopen the
same dataset name.
*/
package datastream

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrClosed is generated when the source of a dataset has closed
	ErrClosed = errors.New("datastream: source closed")

	// ErrNoData is generated when no payload arrives within the wait
	ErrNoData = errors.New("datastream: no data")
)

// Hub owns the named datasets.  The zero value is not usable; call NewHub.
type Hub struct {
	mu       sync.Mutex
	datasets map[string]*dataset
}

// NewHub returns an empty hub
func NewHub() *Hub {
	return &Hub{datasets: map[string]*dataset{}}
}

func (h *Hub) dataset(name string) *dataset {
	h.mu.Lock()
	defer h.mu.Unlock()
	ds, ok := h.datasets[name]
	if !ok {
		ds = &dataset{name: name, sinks: map[*Sink]struct{}{}}
		h.datasets[name] = ds
	}
	return ds
}

// Source opens the write half of the named dataset, creating the dataset
// if needed.  Only one source may be open per dataset; a second open
// attempt fails until the first closes.
func (h *Hub) Source(name string) (*Source, error) {
	ds := h.dataset(name)
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.open {
		return nil, fmt.Errorf("dataset %s already has an open source", name)
	}
	ds.open = true
	ds.done = make(chan struct{})
	return &Source{ds: ds}, nil
}

// Sink attaches a reader to the named dataset, creating the dataset if
// needed.  Sinks may attach before any source opens.
func (h *Hub) Sink(name string) *Sink {
	ds := h.dataset(name)
	s := &Sink{ds: ds, ch: make(chan interface{}, 1)}
	ds.mu.Lock()
	ds.sinks[s] = struct{}{}
	ds.mu.Unlock()
	return s
}

// Stats reports how many payloads the named dataset has delivered to sinks
// and how many stale payloads were displaced before being read
func (h *Hub) Stats(name string) (sent, dropped int) {
	ds := h.dataset(name)
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.sent, ds.dropped
}

// dataset is one named channel.  done is nil until a source first opens,
// then a fresh channel per source, closed when that source closes.
type dataset struct {
	mu      sync.Mutex
	name    string
	open    bool
	done    chan struct{}
	sinks   map[*Sink]struct{}
	sent    int
	dropped int
}

// Source is the write half of a dataset
type Source struct {
	ds     *dataset
	closed bool
}

// Push broadcasts v to every attached sink, displacing any payload a sink
// has not read yet.  It never blocks on readers.
func (s *Source) Push(v interface{}) error {
	ds := s.ds
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for sink := range ds.sinks {
		select {
		case <-sink.ch:
			ds.dropped++
		default:
		}
		// the slot was just drained and this is the only sender, so the
		// send cannot block
		sink.ch <- v
		ds.sent++
	}
	return nil
}

// Close ends the stream.  Attached sinks drain their last payload, then
// see ErrClosed.  The dataset name may be reopened by a new source.
func (s *Source) Close() error {
	ds := s.ds
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	ds.open = false
	close(ds.done)
	return nil
}

// Sink is the read half of a dataset.  Each sink sees only the most
// recent payload; intermediate updates it was too slow to read are
// dropped, never queued.
type Sink struct {
	ds *dataset
	ch chan interface{}
}

// Pop returns the most recent unread payload.  With a zero or negative
// timeout it never blocks, returning ErrNoData when nothing is buffered.
// With a positive timeout it waits up to that long for a push.  ErrClosed
// is returned once the source has closed and the final payload was drained.
func (s *Sink) Pop(timeout time.Duration) (interface{}, error) {
	select {
	case v := <-s.ch:
		return v, nil
	default:
	}
	ds := s.ds
	ds.mu.Lock()
	done := ds.done
	open := ds.open
	ds.mu.Unlock()
	if !open && done != nil {
		return nil, ErrClosed
	}
	if timeout <= 0 {
		return nil, ErrNoData
	}
	// done is nil before any source opens; a nil channel blocks, leaving
	// the data and timeout arms to decide
	select {
	case v := <-s.ch:
		return v, nil
	case <-done:
		select {
		case v := <-s.ch:
			return v, nil
		default:
			return nil, ErrClosed
		}
	case <-time.After(timeout):
		return nil, ErrNoData
	}
}

// Close detaches the sink from its dataset
func (s *Sink) Close() {
	ds := s.ds
	ds.mu.Lock()
	delete(ds.sinks, s)
	ds.mu.Unlock()
}
