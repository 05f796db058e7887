package scan

import "sync"

// StopFlag is a last-writer-wins cancellation token.  The executor polls
// it at row boundaries only, so a stop request never interrupts an
// in-flight line scan; the current row completes before the scan ends.
type StopFlag struct {
	mu      sync.Mutex
	stopped bool
}

// Stop requests cancellation
func (s *StopFlag) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

// Stopped reports whether cancellation has been requested
func (s *StopFlag) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Reset clears the flag so the token can serve another scan
func (s *StopFlag) Reset() {
	s.mu.Lock()
	s.stopped = false
	s.mu.Unlock()
}
