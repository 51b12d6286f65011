package vdif

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// newTestFrame builds a minimal standard frame for the given sequencing
// fields with an 8-byte payload.
func newTestFrame(t testing.TB, sec, frameno uint32, thread uint16) *Frame {
	t.Helper()
	var h Header
	if err := h.SetSeconds(sec); err != nil {
		t.Fatal(err)
	}
	if err := h.SetFrameNumber(frameno); err != nil {
		t.Fatal(err)
	}
	if err := h.SetThreadID(thread); err != nil {
		t.Fatal(err)
	}
	if err := h.SetFrameLength(HeaderSize + 8); err != nil {
		t.Fatal(err)
	}
	f, err := FrameFromParts(h, make([]byte, 8))
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestFrameFromParts(t *testing.T) {
	var h Header
	if err := h.SetFrameLength(HeaderSize + 16); err != nil {
		t.Fatal(err)
	}
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	f, err := FrameFromParts(h, payload)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, HeaderSize+16, f.Len())
	assert.Equal(t, payload, f.Payload())
	assert.Equal(t, h, f.Header())

	// payload length disagreeing with the header is rejected
	if _, err := FrameFromParts(h, payload[:8]); !assert.ErrorIs(t, err, ErrLengthMismatch) {
		t.FailNow()
	}
}

func TestNewFrameValidates(t *testing.T) {
	f := newTestFrame(t, 1, 2, 3)
	g, err := NewFrame(f.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, f.Header(), g.Header())

	if _, err := NewFrame(f.Bytes()[:HeaderSize+4]); !assert.ErrorIs(t, err, ErrLengthMismatch) {
		t.FailNow()
	}
	if _, err := NewFrame(f.Bytes()[:8]); !assert.ErrorIs(t, err, ErrTruncated) {
		t.FailNow()
	}
}

func TestCaptureFrameCopies(t *testing.T) {
	f := newTestFrame(t, 9, 8, 7)
	wire := make([]byte, f.Len())
	copy(wire, f.Bytes())

	g, err := captureFrame(wire)
	if err != nil {
		t.Fatal(err)
	}
	wire[HeaderSize] = 0xff // mutating the source must not touch the frame
	assert.Equal(t, byte(0), g.Payload()[0])
	g.Recycle()
}

func TestVTPWrapUnwrap(t *testing.T) {
	f := newTestFrame(t, 1, 1, 0)
	dgram := WrapVTP(12345, f.Bytes())
	assert.Equal(t, f.Len()+VTPHeaderSize, len(dgram))

	seq, frame, err := UnwrapVTP(dgram)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, uint64(12345), seq)
	assert.Equal(t, f.Bytes(), frame)

	if _, _, err := UnwrapVTP(dgram[:4]); !assert.ErrorIs(t, err, ErrTruncated) {
		t.FailNow()
	}
}
