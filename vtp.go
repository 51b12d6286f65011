package vdif

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// VTPHeaderSize is the size of the VDIF Transport Protocol prefix: a single
// little-endian 64-bit sequence number placed before the frame inside the
// datagram. The core treats it as an opaque ordering hint and never
// interprets anything beyond the counter.
const VTPHeaderSize = 8

// UnwrapVTP splits a VTP datagram into its sequence number and the enclosed
// frame bytes.
func UnwrapVTP(datagram []byte) (uint64, []byte, error) {
	if len(datagram) < VTPHeaderSize {
		return 0, nil, errors.WithStack(ErrTruncated)
	}
	return binary.LittleEndian.Uint64(datagram), datagram[VTPHeaderSize:], nil
}

// WrapVTP prefixes frame bytes with a VTP sequence number, producing a
// complete datagram.
func WrapVTP(seq uint64, frame []byte) []byte {
	out := make([]byte, VTPHeaderSize+len(frame))
	binary.LittleEndian.PutUint64(out, seq)
	copy(out[VTPHeaderSize:], frame)
	return out
}
