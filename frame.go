package vdif

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// mtuLimit bounds the datagram size the receive path handles, jumbo frames
// included.
const mtuLimit = 9216

// frameBuf recycles frame storage across frame lifetimes so the receive hot
// path never allocates.
var frameBuf sync.Pool

func init() {
	frameBuf.New = func() interface{} {
		return make([]byte, mtuLimit)
	}
}

// Frame is one VDIF frame: header and payload owned together in a single
// contiguous buffer. Frames parsed from the wire are immutable; construction
// from application data is the only mutation point. A Frame is moved, never
// copied, through the ring buffer, and is owned by exactly one side at a
// time.
type Frame struct {
	data []byte
}

// NewFrame wraps a complete wire frame without copying. The buffer must hold
// exactly the frame length its header declares.
func NewFrame(data []byte) (*Frame, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	if h.FrameLength() != len(data) {
		return nil, errors.WithStack(ErrLengthMismatch)
	}
	return &Frame{data: data}, nil
}

// FrameFromParts builds a frame from a header and payload bytes. The payload
// length must equal the payload length the header's frame length implies.
func FrameFromParts(h Header, payload []byte) (*Frame, error) {
	if h.PayloadLength() != len(payload) {
		return nil, errors.WithStack(ErrLengthMismatch)
	}
	f := &Frame{data: alloc(h.FrameLength())}
	h.EncodeTo(f.data)
	copy(f.data[h.Size():], payload)
	return f, nil
}

// captureFrame copies wire bytes into recycled storage and validates them.
// This is the receive-path entry point.
func captureFrame(data []byte) (*Frame, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	if h.FrameLength() != len(data) {
		return nil, errors.WithStack(ErrLengthMismatch)
	}
	buf := alloc(len(data))
	copy(buf, data)
	return &Frame{data: buf}, nil
}

func alloc(n int) []byte {
	if n <= mtuLimit {
		return frameBuf.Get().([]byte)[:n]
	}
	return make([]byte, n)
}

// Header decodes the frame's header. Decoding is a handful of word loads,
// frames do not cache it.
func (f *Frame) Header() Header {
	h, _ := DecodeHeader(f.data)
	return h
}

// Payload returns the payload bytes without copying.
func (f *Frame) Payload() []byte {
	return f.data[f.Header().Size():]
}

// Bytes returns the full wire representation, header included, without
// copying.
func (f *Frame) Bytes() []byte {
	return f.data
}

// Len returns the frame size in bytes.
func (f *Frame) Len() int {
	return len(f.data)
}

// Samples decodes the payload into sample components using the coding the
// header declares. Decoding is on demand; callers that only move bytes never
// pay for it.
func (f *Frame) Samples() ([]int32, error) {
	return CodingFromHeader(f.Header()).Decode(f.Payload())
}

// Recycle returns the frame's storage to the shared pool. The caller must
// not touch the frame afterwards.
func (f *Frame) Recycle() {
	if cap(f.data) == mtuLimit {
		frameBuf.Put(f.data[:cap(f.data)])
	}
	f.data = nil
}

func (f *Frame) String() string {
	return fmt.Sprintf("frame%v", f.Header())
}
