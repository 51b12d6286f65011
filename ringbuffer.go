package vdif

import (
	"runtime"
	"sync/atomic"
	"time"
)

const ringMinCapacity = 8

// FrameRing is a fixed-capacity, wait-free single-producer/single-consumer
// frame queue. The producer alone writes tail, the consumer alone writes
// head; those two atomically published cursors are the only shared mutable
// state, so no lock is needed. Capacity is rounded up to a power of two and
// never grows, slots are reused in place across frame lifetimes.
//
// Frames are dequeued in exactly the order they were enqueued. Restoring
// network order happens before frames reach this buffer.
type FrameRing struct {
	slots []*Frame
	mask  uint64

	// cursors padded apart so producer and consumer do not share a cache line
	head   uint64 // next slot to pop, consumer-owned
	_      [56]byte
	tail   uint64 // next slot to fill, producer-owned
	_      [56]byte
	closed uint32
}

// NewFrameRing creates a ring holding at least capacity frames, rounded up
// to a power of two with a minimum of 8.
func NewFrameRing(capacity int) *FrameRing {
	n := ringMinCapacity
	for n < capacity {
		n <<= 1
	}
	return &FrameRing{
		slots: make([]*Frame, n),
		mask:  uint64(n - 1),
	}
}

// Cap returns the fixed slot count.
func (r *FrameRing) Cap() int { return len(r.slots) }

// Len returns the number of frames currently queued. It is exact for the
// producer and consumer threads and a snapshot for anyone else.
func (r *FrameRing) Len() int {
	return int(atomic.LoadUint64(&r.tail) - atomic.LoadUint64(&r.head))
}

// TryPush enqueues a frame without blocking. ErrFull is an expected
// condition under burst load, the caller decides whether to drop or retry.
// Only one goroutine may push.
func (r *FrameRing) TryPush(f *Frame) error {
	if atomic.LoadUint32(&r.closed) == 1 {
		return ErrClosed
	}
	tail := atomic.LoadUint64(&r.tail)
	if tail-atomic.LoadUint64(&r.head) == uint64(len(r.slots)) {
		return ErrFull
	}
	r.slots[tail&r.mask] = f
	atomic.StoreUint64(&r.tail, tail+1)
	return nil
}

// TryPop dequeues the oldest frame without blocking. After Close, queued
// frames still drain before ErrClosed is reported. Only one goroutine may
// pop.
func (r *FrameRing) TryPop() (*Frame, error) {
	head := atomic.LoadUint64(&r.head)
	if head == atomic.LoadUint64(&r.tail) {
		if atomic.LoadUint32(&r.closed) == 1 {
			return nil, ErrClosed
		}
		return nil, ErrEmpty
	}
	f := r.slots[head&r.mask]
	r.slots[head&r.mask] = nil
	atomic.StoreUint64(&r.head, head+1)
	return f, nil
}

// Pop dequeues the oldest frame, cooperatively yielding for up to timeout
// when the ring is empty. It never blocks in a syscall and never blocks the
// producer.
func (r *FrameRing) Pop(timeout time.Duration) (*Frame, error) {
	deadline := time.Now().Add(timeout)
	spins := 0
	for {
		f, err := r.TryPop()
		if err != ErrEmpty {
			return f, err
		}
		if !time.Now().Before(deadline) {
			return nil, ErrTimeout
		}
		if spins < 1000 {
			spins++
			runtime.Gosched()
		} else {
			time.Sleep(50 * time.Microsecond)
		}
	}
}

// Close marks the ring closed. The producer must not push afterwards; the
// consumer drains whatever remains and then sees ErrClosed.
func (r *FrameRing) Close() {
	atomic.StoreUint32(&r.closed, 1)
}
