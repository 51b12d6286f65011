package vdif

import (
	"net"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/net/ipv4"
)

type batchConn interface {
	ReadBatch(msgs []ipv4.Message, flags int) (int, error)
}

type batchErrDetector interface {
	ReadBatchUnavailable(err error) bool
}

// Config carries the socket and buffering knobs of a Receiver. The zero
// value of any field selects its default.
type Config struct {
	BatchSize      int           // datagrams requested per batched receive call
	MTU            int           // largest datagram accepted
	ReadTimeout    time.Duration // bound on one blocked receive, also the shutdown latency bound
	ReorderDepth   int           // how many frames ahead the holding window may reach
	ReorderMaxWait time.Duration // longest a held frame waits for its missing predecessor
	RingCapacity   int           // frame ring buffer capacity
	VTP            bool          // datagrams carry a VTP sequence prefix
	DropOnFull     bool          // drop frames when the ring is full instead of retrying
}

func (cfg *Config) normalize() Config {
	out := Config{}
	if cfg != nil {
		out = *cfg
	}
	if out.BatchSize <= 0 {
		out.BatchSize = 16
	}
	if out.MTU <= 0 || out.MTU > mtuLimit {
		out.MTU = mtuLimit
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = time.Second
	}
	if out.ReorderDepth <= 0 {
		out.ReorderDepth = 32
	}
	if out.ReorderMaxWait <= 0 {
		out.ReorderMaxWait = 20 * time.Millisecond
	}
	if out.RingCapacity <= 0 {
		out.RingCapacity = 1024
	}
	return out
}

// Receiver pulls VDIF frames off a packet socket in batches, restores
// bounded in-order delivery per data thread, and feeds a
// single-producer/single-consumer ring buffer for the application to drain.
//
// One goroutine (the read loop) produces; exactly one application goroutine
// may consume via TryPop/Pop. The batched socket receive is the receiver's
// only blocking point; parsing, reordering and ring pushes are bounded-time.
type Receiver struct {
	id    uuid.UUID
	conn  net.PacketConn
	xconn batchConn
	own   bool // whether Close also closes the socket

	cfg     Config
	ring    *FrameRing
	reorder *reorderQueue
	snmp    *Snmp

	die         chan struct{}
	dieOnce     sync.Once
	loopDone    chan struct{}
	chReadError chan error
}

// Listen binds a UDP socket on laddr and starts a receiver on it.
func Listen(laddr string, cfg *Config) (*Receiver, error) {
	udpaddr, err := net.ResolveUDPAddr("udp", laddr)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	network := "udp4"
	if udpaddr.IP.To4() == nil {
		network = "udp"
	}
	conn, err := net.ListenUDP(network, udpaddr)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	r, err := NewReceiver(conn, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	r.own = true
	return r, nil
}

// NewReceiver starts a receiver on an existing packet connection. The caller
// keeps ownership of the connection; Close only stops the read loop.
func NewReceiver(conn net.PacketConn, cfg *Config) (*Receiver, error) {
	if conn == nil {
		return nil, errors.WithStack(ErrClosed)
	}
	r := new(Receiver)
	r.id = uuid.New()
	r.conn = conn
	r.xconn = toBatchConn(conn)
	r.cfg = cfg.normalize()
	r.ring = NewFrameRing(r.cfg.RingCapacity)
	r.snmp = newSnmp()
	r.reorder = newReorderQueue(r.cfg.ReorderDepth, r.cfg.ReorderMaxWait, r.snmp, r.deliver)
	r.die = make(chan struct{})
	r.loopDone = make(chan struct{})
	r.chReadError = make(chan error, 1)

	go r.readLoop()
	Logf(INFO, "Receiver %v listening on %v batch:%d window:%d ring:%d vtp:%v",
		r.id, conn.LocalAddr(), r.cfg.BatchSize, r.cfg.ReorderDepth, r.ring.Cap(), r.cfg.VTP)
	return r, nil
}

// Addr returns the local address of the underlying socket.
func (r *Receiver) Addr() net.Addr { return r.conn.LocalAddr() }

// Ring exposes the frame ring buffer for the consuming goroutine.
func (r *Receiver) Ring() *FrameRing { return r.ring }

// TryPop dequeues the next frame without blocking.
func (r *Receiver) TryPop() (*Frame, error) { return r.ring.TryPop() }

// Pop dequeues the next frame, waiting cooperatively up to timeout.
func (r *Receiver) Pop(timeout time.Duration) (*Frame, error) { return r.ring.Pop(timeout) }

// Snmp returns the receiver's live counter block. Use Copy for a snapshot.
func (r *Receiver) Snmp() *Snmp { return r.snmp }

// ReadError yields the unrecoverable socket error that terminated the read
// loop, if one occurred.
func (r *Receiver) ReadError() <-chan error { return r.chReadError }

// Close stops the read loop, best-effort flushes the holding window and
// closes the ring buffer. Latency is bounded by ReadTimeout. Closing twice
// is harmless.
func (r *Receiver) Close() error {
	r.dieOnce.Do(func() {
		close(r.die)
		if r.own {
			r.conn.Close() // unblocks a pending batched receive
		} else {
			r.conn.SetReadDeadline(time.Now())
		}
	})
	<-r.loopDone
	Logf(INFO, "Receiver %v closed", r.id)
	return nil
}

// packetInput parses one datagram and routes the frame into the reordering
// window. Malformed datagrams are counted and discarded, never stalling the
// batch loop.
func (r *Receiver) packetInput(data []byte, now time.Time) {
	atomic.AddUint64(&r.snmp.InPkts, 1)
	atomic.AddUint64(&r.snmp.InBytes, uint64(len(data)))

	var seq uint64
	if r.cfg.VTP {
		s, rest, err := UnwrapVTP(data)
		if err != nil {
			atomic.AddUint64(&r.snmp.HeaderErrs, 1)
			return
		}
		seq, data = s, rest
	}

	f, err := captureFrame(data)
	if err != nil {
		if errors.Is(err, ErrLengthMismatch) {
			atomic.AddUint64(&r.snmp.LengthErrs, 1)
		} else {
			atomic.AddUint64(&r.snmp.HeaderErrs, 1)
		}
		return
	}
	r.reorder.push(f, seq, now)
}

// deliver moves an in-policy-order frame into the ring buffer, applying the
// full-ring policy.
func (r *Receiver) deliver(f *Frame) {
	for {
		err := r.ring.TryPush(f)
		if err == nil {
			return
		}
		if err != ErrFull || r.cfg.DropOnFull {
			atomic.AddUint64(&r.snmp.RingDrops, 1)
			f.Recycle()
			return
		}
		select {
		case <-r.die:
			atomic.AddUint64(&r.snmp.RingDrops, 1)
			f.Recycle()
			return
		default:
			runtime.Gosched()
		}
	}
}

// defaultReadLoop receives one datagram per syscall. It is the fallback when
// no batched receive is available on this platform or connection.
func (r *Receiver) defaultReadLoop() {
	buf := make([]byte, r.cfg.MTU)
	for {
		select {
		case <-r.die:
			return
		default:
		}
		r.conn.SetReadDeadline(time.Now().Add(r.cfg.ReadTimeout))
		n, _, err := r.conn.ReadFrom(buf)
		if err != nil {
			if isTimeout(err) {
				r.reorder.tick(time.Now())
				continue
			}
			r.notifyReadError(errors.WithStack(err))
			return
		}
		now := time.Now()
		r.packetInput(buf[:n], now)
		r.reorder.tick(now)
	}
}

// loopCleanup runs when the read loop exits for any reason: windowed frames
// are flushed best effort, then the ring is marked closed.
func (r *Receiver) loopCleanup() {
	r.reorder.flushAll()
	r.ring.Close()
	close(r.loopDone)
}

func (r *Receiver) notifyReadError(err error) {
	select {
	case <-r.die:
		return // shutting down, the error is a consequence of Close
	default:
	}
	atomic.AddUint64(&r.snmp.InErrs, 1)
	Logf(ERROR, "Receiver %v read error: %v", r.id, err)
	select {
	case r.chReadError <- err:
	default:
	}
}

func isTimeout(err error) bool {
	if nerr, ok := err.(net.Error); ok {
		return nerr.Timeout()
	}
	return false
}
