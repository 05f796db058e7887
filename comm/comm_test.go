package comm_test

import (
	"bytes"
	"io"
	"log"
	"net"
	"testing"
	"time"

	"github.com/nasa-jpl/goscan/comm"
)

func tcpEchoServer(addr string) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal("could not listen, debug test aborted")
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				log.Println("error accepting connection:", err)
			}
			go func() { io.Copy(conn, conn) }() // use goroutines to handle multiple connections
		}
	}()
}

func TestPoolGrowsToCapacity(t *testing.T) {
	tcpEchoServer("localhost:8765")
	maker := func() (io.ReadWriteCloser, error) {
		return net.Dial("tcp", "localhost:8765")
	}
	poolSize := 3
	pool := comm.NewPool(poolSize, time.Second, maker)
	for i := 0; i < poolSize; i++ {
		conn, err := pool.Get()
		if err != nil {
			t.Fatal("could not get connection:", err)
		}
		if conn == nil {
			t.Fatal("got nil connection without error")
		}
	}
	if pool.Size() != poolSize {
		t.Errorf("expected pool size %d got %d", poolSize, pool.Size())
	}
	if pool.Active() != poolSize {
		t.Errorf("expected %d active connections got %d", poolSize, pool.Active())
	}
}

func TestPoolReusesReturnedConnections(t *testing.T) {
	tcpEchoServer("localhost:8766")
	maker := func() (io.ReadWriteCloser, error) {
		return net.Dial("tcp", "localhost:8766")
	}
	pool := comm.NewPool(1, time.Minute, maker)
	conn, err := pool.Get()
	if err != nil {
		t.Fatal("could not get connection:", err)
	}
	pool.Put(conn)
	conn2, err := pool.Get()
	if err != nil {
		t.Fatal("could not get connection:", err)
	}
	if conn2 != conn {
		t.Errorf("expected the parked connection to be reused")
	}
	if pool.Size() != 1 {
		t.Errorf("expected pool size 1 got %d", pool.Size())
	}
}

func TestPoolDoesNotOverflow(t *testing.T) {
	tcpEchoServer("localhost:8767")
	maker := func() (io.ReadWriteCloser, error) {
		return net.Dial("tcp", "localhost:8767")
	}
	poolSize := 2
	pool := comm.NewPool(poolSize, time.Second, maker)
	for i := 0; i < poolSize; i++ {
		_, err := pool.Get()
		if err != nil {
			t.Fatal("could not get connection:", err)
		}
	}
	newConn := make(chan io.ReadWriter, 1)
	go func() {
		rw, _ := pool.Get()
		newConn <- rw
	}()
	select {
	case <-newConn:
		t.Fatal("failed to prevent pool overflow")
	case <-time.After(500 * time.Millisecond):
		// pool held its size
	}
}

func TestReturnWithErrorDestroysBadConnections(t *testing.T) {
	tcpEchoServer("localhost:8768")
	maker := func() (io.ReadWriteCloser, error) {
		return net.Dial("tcp", "localhost:8768")
	}
	pool := comm.NewPool(1, time.Minute, maker)
	conn, err := pool.Get()
	if err != nil {
		t.Fatal("could not get connection:", err)
	}
	pool.ReturnWithError(conn, io.EOF)
	if pool.Size() != 0 {
		t.Errorf("expected destroyed connection to leave the pool, size %d", pool.Size())
	}
}

type rwBuffer struct {
	rd *bytes.Buffer
	wr *bytes.Buffer
}

func (b rwBuffer) Read(p []byte) (int, error)  { return b.rd.Read(p) }
func (b rwBuffer) Write(p []byte) (int, error) { return b.wr.Write(p) }

func TestTerminatorAppendsOnWrite(t *testing.T) {
	buf := rwBuffer{rd: &bytes.Buffer{}, wr: &bytes.Buffer{}}
	wrap := comm.NewTerminator(buf, '\n', '\n')
	n, err := io.WriteString(wrap, "RATE 100")
	if err != nil {
		t.Fatal(err)
	}
	if n != len("RATE 100") {
		t.Errorf("expected write to report %d bytes got %d", len("RATE 100"), n)
	}
	expected := "RATE 100\n"
	if buf.wr.String() != expected {
		t.Errorf("expected %q got %q", expected, buf.wr.String())
	}
}

func TestTerminatorStripsOnRead(t *testing.T) {
	buf := rwBuffer{rd: bytes.NewBufferString("%123.4\n"), wr: &bytes.Buffer{}}
	wrap := comm.NewTerminator(buf, '\n', '\n')
	out := make([]byte, 64)
	n, err := wrap.Read(out)
	if err != nil {
		t.Fatal(err)
	}
	expected := "%123.4"
	if string(out[:n]) != expected {
		t.Errorf("expected %q got %q", expected, string(out[:n]))
	}
}

func TestTerminatorPassesUnterminatedAck(t *testing.T) {
	buf := rwBuffer{rd: bytes.NewBufferString("%"), wr: &bytes.Buffer{}}
	wrap := comm.NewTerminator(buf, '\n', '\n')
	out := make([]byte, 8)
	n, err := wrap.Read(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(out[:n]) != "%" {
		t.Errorf("expected %q got %q", "%", string(out[:n]))
	}
}
