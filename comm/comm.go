/*Package comm provides primitives for communication with lab hardware.

The expected usage is to build a CreationFunc for the transport the device
lives on (TCP or serial), hand it to a Pool, and then inside each driver
method do:

	conn, err := dev.pool.Get()
	if err != nil {
		return err
	}
	wrap, err := comm.NewTimeout(conn, dev.timeout)
	if err != nil {
		return err
	}
	wrap = comm.NewTerminator(wrap, '\n', '\n')
	// ... talk to the device ...
	dev.pool.ReturnWithError(conn, err)

The pool owns the lifetime of the connections; drivers never hold one between
calls, so the connection is released on every exit path.
*/
package comm

import (
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
)

var (
	// ErrNotReadable is generated when a nil reader is wrapped
	ErrNotReadable = errors.New("connection is nil, cannot communicate with remote")
)

// CreationFunc is a function which returns a new "connection" to something.
// a closure should be used to encapsulate the variables and functions needed
type CreationFunc func() (io.ReadWriteCloser, error)

// TCPSetup opens a new TCP connection and sets a timeout on connect, read, and write
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)
	return conn, nil
}

// BackingOffTCPConnMaker returns a CreationFunc which dials addr with an
// exponential backoff.  Controllers on terminal servers do not like being
// connection thrashed, so retries start gentle.  Connection refused is
// terminal; timeouts retry until the backoff gives up.
func BackingOffTCPConnMaker(addr string, timeout time.Duration) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		var conn net.Conn
		op := func() error {
			var err error
			conn, err = TCPSetup(addr, timeout)
			if err != nil {
				errS := strings.ToLower(err.Error())
				if strings.Contains(errS, "refused") {
					return backoff.Permanent(err)
				}
				return err
			}
			return nil
		}
		err := backoff.Retry(op, &backoff.ExponentialBackOff{
			InitialInterval:     25 * time.Millisecond,
			RandomizationFactor: 0.,
			Multiplier:          2.,
			MaxInterval:         1 * time.Second,
			MaxElapsedTime:      3 * time.Second,
			Clock:               backoff.SystemClock})
		return conn, err
	}
}

// SerialConnMaker returns a CreationFunc which opens the serial port
// described by conf.  The port's own ReadTimeout stands in for deadlines,
// which serial connections do not support.
func SerialConnMaker(conf *serial.Config) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		return serial.OpenPort(conf)
	}
}

// deadliner is satisfied by net.Conn and anything else with socket deadlines
type deadliner interface {
	SetDeadline(t time.Time) error
}

// NewTimeout arms a read and write deadline of now+timeout on rw if the
// concrete type supports deadlines (net.Conn does).  Types without deadline
// support, e.g. serial ports, pass through unchanged.
func NewTimeout(rw io.ReadWriter, timeout time.Duration) (io.ReadWriter, error) {
	if rw == nil {
		return nil, ErrNotReadable
	}
	if d, ok := rw.(deadliner); ok {
		err := d.SetDeadline(time.Now().Add(timeout))
		if err != nil {
			return rw, err
		}
	}
	return rw, nil
}

type terminator struct {
	rw io.ReadWriter

	rx, tx byte
}

// NewTerminator wraps rw such that writes have txTerm appended if absent,
// and reads have any trailing rxTerm bytes stripped.  Devices which respond
// with unterminated single-byte acknowledgements pass through untouched.
func NewTerminator(rw io.ReadWriter, rxTerm, txTerm byte) io.ReadWriter {
	return terminator{rw: rw, rx: rxTerm, tx: txTerm}
}

func (t terminator) Write(p []byte) (int, error) {
	l := len(p)
	if l == 0 || p[l-1] != t.tx {
		p = append(p, t.tx)
	}
	n, err := t.rw.Write(p)
	if n > l {
		n = l // do not report the terminator byte to the caller
	}
	return n, err
}

func (t terminator) Read(p []byte) (int, error) {
	n, err := t.rw.Read(p)
	for n > 0 && p[n-1] == t.rx {
		n--
	}
	return n, err
}
