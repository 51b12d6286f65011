package vdif

import (
	"sort"
	"sync/atomic"
	"time"
)

// seqKey builds the total ordering key of a frame within one data thread:
// seconds since epoch in the high bits, frame number in the low 24.
func seqKey(h Header) uint64 {
	return uint64(h.Seconds())<<24 | uint64(h.FrameNumber())
}

// successor reports whether key immediately follows last. The frame number
// wraps to zero at a stream-defined rate the header does not carry, so the
// first frame of the next second also counts as the successor.
func successor(last, key uint64) bool {
	if key == last+1 {
		return true
	}
	return key>>24 == last>>24+1 && key&maskFrameNo == 0
}

// missingBetween estimates how many frames separate last from a later key.
// Within one second the count is exact; into the next second only the new
// second's preceding frames can be counted; across a larger jump the gap is
// unbounded.
func missingBetween(last, key uint64) uint64 {
	switch key >> 24 {
	case last >> 24:
		return key - last - 1
	case last>>24 + 1:
		return key & maskFrameNo
	default:
		return ^uint64(0)
	}
}

type pending struct {
	key uint64
	seq uint64 // transport sequence number, tie-break hint only
	ts  time.Time
	f   *Frame
}

// threadState is the reorder state of one thread_id: the highest key already
// emitted and the bounded window of early frames, kept sorted ascending by
// (key, seq).
type threadState struct {
	last     uint64
	haveLast bool
	win      []pending
}

// reorderQueue restores as much in-order delivery as the sequencing fields
// allow, independently per thread_id. A frame whose key is the immediate
// successor of the last emitted key goes straight out; an early frame is
// held while its key is no more than `depth` frames ahead; a late or
// duplicate frame is emitted immediately in arrival position, it cannot be
// retro-ordered once the window has advanced. Held frames are flushed in
// ascending key order when the missing successor arrives, when a frame
// arrives too far ahead to hold, when occupancy exceeds the depth, or when
// an entry outlives maxWait.
//
// The queue is private to the receiver goroutine; only its counters are
// shared, which is why they are atomic.
type reorderQueue struct {
	depth   int
	maxWait time.Duration
	threads map[uint16]*threadState
	emit    func(*Frame)
	snmp    *Snmp
}

func newReorderQueue(depth int, maxWait time.Duration, snmp *Snmp, emit func(*Frame)) *reorderQueue {
	return &reorderQueue{
		depth:   depth,
		maxWait: maxWait,
		threads: make(map[uint16]*threadState),
		emit:    emit,
		snmp:    snmp,
	}
}

func (q *reorderQueue) send(f *Frame) {
	atomic.AddUint64(&q.snmp.OutFrames, 1)
	q.emit(f)
}

// push routes one parsed frame through the reordering policy.
func (q *reorderQueue) push(f *Frame, seq uint64, now time.Time) {
	h := f.Header()
	key := seqKey(h)
	st := q.threads[h.ThreadID()]
	if st == nil {
		st = &threadState{}
		q.threads[h.ThreadID()] = st
	}

	if !st.haveLast {
		st.last, st.haveLast = key, true
		q.send(f)
		return
	}

	switch {
	case key == st.last:
		atomic.AddUint64(&q.snmp.DupFrames, 1)
		q.send(f)

	case key < st.last:
		atomic.AddUint64(&q.snmp.LateFrames, 1)
		q.send(f)

	case successor(st.last, key):
		st.last = key
		q.send(f)
		q.drain(st)

	default:
		miss := missingBetween(st.last, key)
		if miss <= uint64(q.depth) {
			q.hold(st, pending{key: key, seq: seq, ts: now, f: f})
		} else {
			// too far ahead to wait for the gap to fill
			for len(st.win) > 0 {
				q.forceOldest(st, &q.snmp.ForcedFlushes)
			}
			atomic.AddUint64(&q.snmp.GapEvents, 1)
			if miss != ^uint64(0) {
				atomic.AddUint64(&q.snmp.LostFrames, miss)
			}
			st.last = key
			q.send(f)
		}
	}
}

// hold inserts an early frame into the sorted window, evicting oldest-by-key
// entries if occupancy exceeds the configured depth.
func (q *reorderQueue) hold(st *threadState, p pending) {
	atomic.AddUint64(&q.snmp.Reordered, 1)
	i := sort.Search(len(st.win), func(i int) bool {
		w := st.win[i]
		return w.key > p.key || (w.key == p.key && w.seq > p.seq)
	})
	st.win = append(st.win, pending{})
	copy(st.win[i+1:], st.win[i:])
	st.win[i] = p

	for len(st.win) > q.depth {
		q.forceOldest(st, &q.snmp.ForcedFlushes)
	}
}

// drain emits window entries that have become the expected successor (or
// duplicates of it) after the last emitted key advanced.
func (q *reorderQueue) drain(st *threadState) {
	for len(st.win) > 0 {
		p := st.win[0]
		switch {
		case p.key == st.last:
			atomic.AddUint64(&q.snmp.DupFrames, 1)
		case successor(st.last, p.key):
			st.last = p.key
		default:
			return
		}
		st.win = st.win[1:]
		q.send(p.f)
	}
}

// forceOldest emits the smallest-key window entry even though its
// predecessors never arrived, realizing the gap.
func (q *reorderQueue) forceOldest(st *threadState, counter *uint64) {
	p := st.win[0]
	st.win = st.win[1:]
	atomic.AddUint64(counter, 1)
	if p.key > st.last {
		if miss := missingBetween(st.last, p.key); miss > 0 {
			atomic.AddUint64(&q.snmp.GapEvents, 1)
			if miss != ^uint64(0) {
				atomic.AddUint64(&q.snmp.LostFrames, miss)
			}
		}
		st.last = p.key
	}
	q.send(p.f)
	q.drain(st)
}

// tick applies the time-based flush: whenever any window entry has waited
// longer than maxWait, entries are force-emitted in ascending key order
// until no expired entry remains. This bounds staleness when an expected
// frame was lost and its successor would otherwise wait forever.
func (q *reorderQueue) tick(now time.Time) {
	if q.maxWait <= 0 {
		return
	}
	cutoff := now.Add(-q.maxWait)
	for _, st := range q.threads {
		for len(st.win) > 0 && anyExpired(st.win, cutoff) {
			q.forceOldest(st, &q.snmp.WaitFlushes)
		}
	}
}

func anyExpired(win []pending, cutoff time.Time) bool {
	for i := range win {
		if win[i].ts.Before(cutoff) {
			return true
		}
	}
	return false
}

// flushAll empties every window in ascending key order, best effort, used
// during shutdown.
func (q *reorderQueue) flushAll() {
	for _, st := range q.threads {
		for len(st.win) > 0 {
			q.forceOldest(st, &q.snmp.ForcedFlushes)
		}
	}
}
