package datastream

import "time"

// Consumer receives payloads from a sink on a schedule.  Implementations
// plug viewers, caches, and recorders into a dataset without coupling the
// producer to any of them.
type Consumer interface {
	// OnFrame is invoked with each payload pulled from the channel
	OnFrame(interface{})

	// OnTeardown is invoked exactly once when the stream ends
	OnTeardown()
}

// Pump polls sink on the given interval, delivering each payload to c.
// It returns when the sink's source closes or stop is closed, invoking
// OnTeardown on the way out.  Run it in its own goroutine.
func Pump(sink *Sink, c Consumer, interval time.Duration, stop <-chan struct{}) {
	defer c.OnTeardown()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for {
				v, err := sink.Pop(0)
				if err == ErrClosed {
					return
				}
				if err != nil {
					break
				}
				c.OnFrame(v)
			}
		}
	}
}
