package vdif

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameReadWriteRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)
	for fn := uint32(0); fn < 5; fn++ {
		if err := fw.WriteFrame(newTestFrame(t, 42, fn, 1)); err != nil {
			t.Fatal(err)
		}
	}
	if err := fw.Flush(); err != nil {
		t.Fatal(err)
	}

	fr := NewFrameReader(&buf)
	for fn := uint32(0); fn < 5; fn++ {
		f, err := fr.ReadFrame()
		if err != nil {
			t.Fatalf("frame %d: %v", fn, err)
		}
		h := f.Header()
		assert.Equal(t, uint32(42), h.Seconds())
		assert.Equal(t, fn, h.FrameNumber())
		assert.Equal(t, uint16(1), h.ThreadID())
	}
	if _, err := fr.ReadFrame(); err != io.EOF {
		t.Fatalf("expected clean EOF, got %v", err)
	}
}

func TestFrameReaderTruncatedStream(t *testing.T) {
	f := newTestFrame(t, 1, 0, 0)

	// stream ends inside the header
	fr := NewFrameReader(bytes.NewReader(f.Bytes()[:10]))
	_, err := fr.ReadFrame()
	assert.ErrorIs(t, err, ErrTruncated)

	// stream ends inside the payload
	fr = NewFrameReader(bytes.NewReader(f.Bytes()[:f.Len()-3]))
	_, err = fr.ReadFrame()
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestFrameReaderMixedSizes(t *testing.T) {
	var h1 Header
	if err := h1.SetFrameLength(HeaderSize + 8); err != nil {
		t.Fatal(err)
	}
	f1, err := FrameFromParts(h1, make([]byte, 8))
	if err != nil {
		t.Fatal(err)
	}
	var h2 Header
	if err := h2.SetFrameLength(HeaderSize + 64); err != nil {
		t.Fatal(err)
	}
	f2, err := FrameFromParts(h2, make([]byte, 64))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)
	for _, f := range []*Frame{f1, f2, f1} {
		if err := fw.WriteFrame(f); err != nil {
			t.Fatal(err)
		}
	}
	if err := fw.Flush(); err != nil {
		t.Fatal(err)
	}

	fr := NewFrameReader(&buf)
	for i, want := range []int{HeaderSize + 8, HeaderSize + 64, HeaderSize + 8} {
		f, err := fr.ReadFrame()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		assert.Equal(t, want, f.Len())
	}
}

func TestFrameReaderLegacy(t *testing.T) {
	var h Header
	h.SetLegacy(true)
	if err := h.SetFrameLength(LegacyHeaderSize + 8); err != nil {
		t.Fatal(err)
	}
	f, err := FrameFromParts(h, make([]byte, 8))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)
	if err := fw.WriteFrame(f); err != nil {
		t.Fatal(err)
	}
	if err := fw.Flush(); err != nil {
		t.Fatal(err)
	}

	fr := NewFrameReader(&buf)
	g, err := fr.ReadFrame()
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, g.Header().Legacy())
	assert.Equal(t, LegacyHeaderSize+8, g.Len())
	assert.Equal(t, LegacyHeaderSize, g.Header().Size())
	if _, err := fr.ReadFrame(); err != io.EOF {
		t.Fatalf("expected clean EOF, got %v", err)
	}
}

func TestFrameReaderBogusLength(t *testing.T) {
	// a header declaring a frame shorter than its own header
	var h Header
	wire := make([]byte, HeaderSize)
	h.EncodeTo(wire) // frame length 0
	fr := NewFrameReader(bytes.NewReader(wire))
	_, err := fr.ReadFrame()
	assert.ErrorIs(t, err, ErrLengthMismatch)
}
