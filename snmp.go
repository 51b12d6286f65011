package vdif

import "sync/atomic"

// Snmp holds the receive statistics of one receiver instance. Counters only
// ever increase; nothing the receiver drops or skips goes uncounted. Each
// Receiver owns its own block so multiple receivers never interfere.
type Snmp struct {
	InPkts        uint64 // datagrams received
	InBytes       uint64 // bytes received
	InErrs        uint64 // socket-level read errors
	HeaderErrs    uint64 // datagrams failing header decode
	LengthErrs    uint64 // datagrams whose declared length disagrees with actual
	OutFrames     uint64 // frames emitted to the ring buffer
	Reordered     uint64 // frames buffered out of order, then emitted in order
	LateFrames    uint64 // frames behind the emitted key, passed through as-is
	DupFrames     uint64 // frames repeating an already emitted key
	GapEvents     uint64 // sequencing discontinuities observed
	LostFrames    uint64 // frames inferred missing within a single second
	ForcedFlushes uint64 // window entries force-emitted on capacity
	WaitFlushes   uint64 // window entries force-emitted on max wait
	RingDrops     uint64 // frames dropped because the ring buffer was full
}

func newSnmp() *Snmp {
	return new(Snmp)
}

// Copy takes a consistent-enough snapshot of the current counters.
func (s *Snmp) Copy() *Snmp {
	d := newSnmp()
	d.InPkts = atomic.LoadUint64(&s.InPkts)
	d.InBytes = atomic.LoadUint64(&s.InBytes)
	d.InErrs = atomic.LoadUint64(&s.InErrs)
	d.HeaderErrs = atomic.LoadUint64(&s.HeaderErrs)
	d.LengthErrs = atomic.LoadUint64(&s.LengthErrs)
	d.OutFrames = atomic.LoadUint64(&s.OutFrames)
	d.Reordered = atomic.LoadUint64(&s.Reordered)
	d.LateFrames = atomic.LoadUint64(&s.LateFrames)
	d.DupFrames = atomic.LoadUint64(&s.DupFrames)
	d.GapEvents = atomic.LoadUint64(&s.GapEvents)
	d.LostFrames = atomic.LoadUint64(&s.LostFrames)
	d.ForcedFlushes = atomic.LoadUint64(&s.ForcedFlushes)
	d.WaitFlushes = atomic.LoadUint64(&s.WaitFlushes)
	d.RingDrops = atomic.LoadUint64(&s.RingDrops)
	return d
}
