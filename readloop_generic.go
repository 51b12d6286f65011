//go:build !linux
// +build !linux

package vdif

// readLoop on platforms without a batched receive primitive reads one
// datagram at a time, unless the connection itself provides ReadBatch.
func (r *Receiver) readLoop() {
	defer r.loopCleanup()
	r.defaultReadLoop()
}
