package scan

import "fmt"

// ErrHardware wraps a failure from the acquisition hardware.  Hardware
// failures are fatal to a scan: never retried, the actuator is recentered
// best-effort, and the original error surfaces to the caller.
type ErrHardware struct {
	// Op names the operation that failed
	Op string

	// Err is the underlying failure
	Err error
}

func (e ErrHardware) Error() string {
	return fmt.Sprintf("hardware failure during %s: %v", e.Op, e.Err)
}

// Unwrap yields the underlying failure
func (e ErrHardware) Unwrap() error {
	return e.Err
}

// ErrPublish wraps a failure to push a payload on the streaming channel.
// Publish failures are not fatal: raw frames remain in memory, so losing a
// live update costs liveness, not data.
type ErrPublish struct {
	// Dataset names the publishing channel
	Dataset string

	// Err is the underlying failure
	Err error
}

func (e ErrPublish) Error() string {
	return fmt.Sprintf("publish failure on dataset %s: %v", e.Dataset, e.Err)
}

// Unwrap yields the underlying failure
func (e ErrPublish) Unwrap() error {
	return e.Err
}
