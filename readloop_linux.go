//go:build linux
// +build linux

package vdif

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/ipv4"
)

// readLoop pulls up to BatchSize datagrams per recvmmsg system call. This is
// the receiver's sole blocking point, bounded by ReadTimeout so the die flag
// is observed between batches.
func (r *Receiver) readLoop() {
	defer r.loopCleanup()
	if r.xconn == nil {
		r.defaultReadLoop()
		return
	}

	msgs := make([]ipv4.Message, r.cfg.BatchSize)
	for k := range msgs {
		msgs[k].Buffers = [][]byte{make([]byte, r.cfg.MTU)}
	}

	for {
		select {
		case <-r.die:
			return
		default:
		}
		r.conn.SetReadDeadline(time.Now().Add(r.cfg.ReadTimeout))
		if count, err := r.xconn.ReadBatch(msgs, 0); err == nil {
			now := time.Now()
			for i := 0; i < count; i++ {
				msg := &msgs[i]
				r.packetInput(msg.Buffers[0][:msg.N], now)
			}
			r.reorder.tick(now)
		} else {
			if isTimeout(err) {
				r.reorder.tick(time.Now())
				continue
			}
			if readBatchUnavailable(r.xconn, err) {
				Logf(WARN, "Receiver %v batched receive unavailable, falling back: %v", r.id, err)
				r.xconn = nil
				r.defaultReadLoop()
				return
			}
			r.notifyReadError(errors.WithStack(err))
			return
		}
	}
}
