package comm

import (
	"io"
	"sync"
	"time"
)

// Pool is a communication pool which holds one or more connections to a
// device.  Connections are created lazily, reused while the device is busy,
// and freed after they have all been returned and the idle timeout elapses.
// It is concurrent safe.  Pools must be created with NewPool.
type Pool struct {
	maxSize int                     // maximum number of connections, == cap(conns)
	onLease int                     // number of connections given out
	timeout time.Duration           // idle time after which parked connections are freed
	conns   chan io.ReadWriteCloser // parked connections
	timer   *time.Timer             // fires when the idle timeout elapses
	maker   CreationFunc

	reclaiming bool
	mu         *sync.Mutex
	free       *sync.Cond // signaled when a connection is parked or capacity opens up
}

// NewPool creates a new Pool.  maxSize bounds the number of simultaneous
// connections; most single-socket lab controllers want maxSize == 1.
func NewPool(maxSize int, timeout time.Duration, maker CreationFunc) *Pool {
	p := &Pool{
		maxSize: maxSize,
		timeout: timeout,
		conns:   make(chan io.ReadWriteCloser, maxSize),
		timer:   time.NewTimer(timeout),
		maker:   maker,
		mu:      &sync.Mutex{},
	}
	p.free = sync.NewCond(p.mu)
	p.timer.Stop() // nothing to reclaim until a connection is parked
	return p
}

// Get retrieves a connection from the pool, creating one if none are parked
// and the pool is not yet at capacity, or blocking until one is returned or
// destroyed if it is.  When done with the connection, return it with Put,
// discard it with Destroy if it has gone bad, or use ReturnWithError to pick
// between the two.
//
// If the error from Get is not nil, the connection must not be returned to
// the pool.
func (p *Pool) Get() (io.ReadWriter, error) {
	// stopping an already-stopped timer is harmless; this just prevents a
	// reclaim racing with the lease we are about to grant
	p.timer.Stop()

	p.mu.Lock()
	// the mutex is never held across the wait; Put and Destroy must be able
	// to proceed or a failed transaction would wedge the pool behind us
	for len(p.conns) == 0 && p.onLease == p.maxSize {
		p.free.Wait()
	}
	if len(p.conns) > 0 {
		// only Get and the reclaim goroutine receive from conns, and both
		// hold the mutex, so this cannot block
		ret := <-p.conns
		p.onLease++
		p.mu.Unlock()
		return ret, nil
	}
	// capacity is open; reserve it before dialing so concurrent Gets
	// cannot oversubscribe the device
	p.onLease++
	p.mu.Unlock()
	c, err := p.maker()
	if err != nil {
		p.mu.Lock()
		p.onLease--
		p.free.Signal()
		p.mu.Unlock()
	}
	return c, err
}

// Put parks a connection in the pool for reuse.  After all connections are
// returned and the idle timeout elapses, they are closed and freed.
func (p *Pool) Put(rw io.ReadWriter) {
	rwc := (rw).(io.ReadWriteCloser)
	p.mu.Lock()
	p.conns <- rwc
	p.onLease--
	idle := len(p.conns) == p.maxSize
	p.free.Signal()
	p.mu.Unlock()
	if idle {
		p.startReclaim()
	}
}

// Destroy closes a connection and removes it from the pool's accounting,
// freeing its capacity for a waiting Get to dial a replacement.  Use
// instead of Put when the connection has gone bad.
func (p *Pool) Destroy(rw io.ReadWriter) {
	rwc := (rw).(io.ReadWriteCloser)
	rwc.Close()
	p.mu.Lock()
	p.onLease--
	p.free.Signal()
	p.mu.Unlock()
}

// ReturnWithError routes the connection based on the outcome of the
// transaction it was used for: Put on success, Destroy on failure.
func (p *Pool) ReturnWithError(rw io.ReadWriter, err error) {
	if err != nil {
		p.Destroy(rw)
		return
	}
	p.Put(rw)
}

// Size returns the number of connections in the pool, parked or leased
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns) + p.onLease
}

// Active returns the number of connections currently leased out
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.onLease
}

// startReclaim arms the idle timer and spawns a goroutine which closes all
// parked connections when it fires
func (p *Pool) startReclaim() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reclaiming {
		return
	}
	p.reclaiming = true
	p.timer.Reset(p.timeout)
	go func() {
		<-p.timer.C
		p.mu.Lock()
		defer p.mu.Unlock()
		for len(p.conns) > 0 {
			closer := <-p.conns
			closer.Close()
		}
		p.reclaiming = false
	}()
}
