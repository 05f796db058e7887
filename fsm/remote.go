package fsm

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nasa-jpl/goscan/comm"

	"github.com/snksoft/crc"
	"github.com/tarm/serial"
)

/*The FSM rack speaks a line-oriented ASCII protocol.  Commands are terminated
with a newline and replies lead with a single status byte, '%' for OK and '!'
for an error, followed by the reply body if any:

	RATE <hz>                                    set the counter sample rate
	RATE?                                        query the counter sample rate
	MOVE <x> <y>                                 steer the mirror to (x, y)
	POS?                                         query the mirror position
	LSCAN <x0> <y0> <x1> <y1> <npts> <collects>  sweep a segment while sampling

All replies are newline terminated except the LSCAN payload, which after the
'%' status byte carries a binary block: a uint32 sample count, count float64
samples, both little endian, then a CRC-16/XMODEM of the count and samples in
big endian byte order.  The rack computes each sample on board by averaging
collects raw collections, so one LSCAN reply is one completed row.
*/

const (
	// OKCode is the first byte of a reply when the command was accepted
	OKCode = byte('%')

	// BadReqCode is the first byte of a reply when the command was rejected
	BadReqCode = byte('!')

	// Terminator is the line ending used in both directions
	Terminator = '\n'
)

var (
	dataOrder = binary.LittleEndian
	crcTable  = crc.NewTable(crc.XMODEM)
)

// ErrBadResponse is generated when the rack leads a reply with the error code
// or with garbage
type ErrBadResponse struct {
	Resp string
}

func (e ErrBadResponse) Error() string {
	return fmt.Sprintf("bad response from FSM rack, expected leading %%, got %s", e.Resp)
}

// ErrCRCMismatch is generated when an LSCAN payload fails its checksum
type ErrCRCMismatch struct {
	Expected []byte
	Got      []byte
}

func (e ErrCRCMismatch) Error() string {
	return fmt.Sprintf("CRC mismatch on LSCAN payload, expected %X got %X, line discarded", e.Expected, e.Got)
}

// crcHelper computes the two-byte CRC of buf in one line
func crcHelper(buf []byte) []byte {
	crcUint := crcTable.InitCrc()
	crcUint = crcTable.UpdateCrc(crcUint, buf)
	crcBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(crcBytes, crcTable.CRC16(crcUint))
	return crcBytes
}

// MakeSerConf makes a new serial.Config with correct options for an FSM rack
// on RS-422
func MakeSerConf(addr string) *serial.Config {
	return &serial.Config{
		Name:        addr,
		Baud:        115200,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: 1 * time.Second}
}

// Remote speaks the FSM rack protocol over TCP or serial.  It satisfies
// Controller.  A single connection is pooled and reclaimed after idle
// periods, so the rack is free for other tools between commands.
type Remote struct {
	pool *comm.Pool

	timeout time.Duration
}

// NewRemote returns a new Remote ready to talk to the rack at addr.
// If connectSerial is true, addr is a serial device file, otherwise it is a
// host:port.  No connection is made until the first command.
func NewRemote(addr string, connectSerial bool) *Remote {
	var maker comm.CreationFunc
	if connectSerial {
		maker = comm.SerialConnMaker(MakeSerConf(addr))
	} else {
		maker = comm.BackingOffTCPConnMaker(addr, 3*time.Second)
	}
	pool := comm.NewPool(1, 30*time.Second, maker)
	return &Remote{pool: pool, timeout: 300 * time.Second}
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'G', -1, 64)
}

// txn runs one command transaction against a pooled connection, returning
// the connection on success and destroying it on error
func (r *Remote) txn(fn func(rw io.ReadWriter) error) error {
	conn, err := r.pool.Get()
	if err != nil {
		return err
	}
	wrap, err := comm.NewTimeout(conn, r.timeout)
	if err != nil {
		r.pool.Destroy(conn)
		return err
	}
	err = fn(wrap)
	r.pool.ReturnWithError(conn, err)
	return err
}

// command writes cmd and reads the single-line reply, stripping the leading
// status byte.  The reply body is returned without the terminator.
func (r *Remote) command(cmd string) (string, error) {
	var body string
	err := r.txn(func(rw io.ReadWriter) error {
		term := comm.NewTerminator(rw, Terminator, Terminator)
		_, err := io.WriteString(term, cmd)
		if err != nil {
			return err
		}
		line, err := bufio.NewReader(rw).ReadString(Terminator)
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, string(Terminator))
		if len(line) == 0 || line[0] != OKCode {
			return ErrBadResponse{Resp: line}
		}
		body = line[1:]
		return nil
	})
	return body, err
}

// SetAcqRate commands the counter to sample at hz
func (r *Remote) SetAcqRate(hz float64) error {
	_, err := r.command("RATE " + ftoa(hz))
	return err
}

// GetAcqRate queries the counter sample rate in Hz
func (r *Remote) GetAcqRate() (float64, error) {
	resp, err := r.command("RATE?")
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(resp, 64)
}

// Move steers the mirror to p and blocks until the move is accepted
func (r *Remote) Move(p Point) error {
	_, err := r.command(fmt.Sprintf("MOVE %s %s", ftoa(p.X), ftoa(p.Y)))
	return err
}

// GetPos returns the current mirror position
func (r *Remote) GetPos() (Point, error) {
	resp, err := r.command("POS?")
	if err != nil {
		return Point{}, err
	}
	fields := strings.Fields(resp)
	if len(fields) != 2 {
		return Point{}, ErrBadResponse{Resp: resp}
	}
	x, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Point{}, err
	}
	y, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Point{}, err
	}
	return Point{X: x, Y: y}, nil
}

// LineScan sweeps the mirror from start to end while the counter samples,
// returning numPoints samples in traversal order.  The reply is verified
// against its checksum before any data is surfaced.
func (r *Remote) LineScan(start, end Point, numPoints, collectsPerPt int) ([]float64, error) {
	cmd := fmt.Sprintf("LSCAN %s %s %s %s %d %d",
		ftoa(start.X), ftoa(start.Y), ftoa(end.X), ftoa(end.Y), numPoints, collectsPerPt)
	var data []float64
	err := r.txn(func(rw io.ReadWriter) error {
		term := comm.NewTerminator(rw, Terminator, Terminator)
		_, err := io.WriteString(term, cmd)
		if err != nil {
			return err
		}
		br := bufio.NewReader(rw)
		code, err := br.ReadByte()
		if err != nil {
			return err
		}
		if code != OKCode {
			msg, _ := br.ReadString(Terminator)
			return ErrBadResponse{Resp: string(code) + strings.TrimRight(msg, string(Terminator))}
		}
		head := make([]byte, 4)
		_, err = io.ReadFull(br, head)
		if err != nil {
			return err
		}
		count := int(dataOrder.Uint32(head))
		if count != numPoints {
			return fmt.Errorf("rack returned %d samples, expected %d", count, numPoints)
		}
		block := make([]byte, 8*count+2)
		_, err = io.ReadFull(br, block)
		if err != nil {
			return err
		}
		payload := block[:8*count]
		refCRC := block[8*count:]
		gotCRC := crcHelper(append(head, payload...))
		if !bytes.Equal(refCRC, gotCRC) {
			return ErrCRCMismatch{Expected: refCRC, Got: gotCRC}
		}
		data = make([]float64, count)
		for i := 0; i < count; i++ {
			data[i] = math.Float64frombits(dataOrder.Uint64(payload[8*i:]))
		}
		return nil
	})
	return data, err
}
