package vdif

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// defaultBufFrames sizes the buffered I/O of FrameReader and FrameWriter in
// frames of a typical 8032-byte stream.
const defaultBufFrames = 10

// FrameReader reads VDIF frames sequentially from any byte source, a file
// or a TCP stream typically. The frame size is taken from each frame's own
// header, so mixed-size streams decode as long as every header is sound.
// It owns its read cursor and takes no part in the receiver's concurrency
// model.
type FrameReader struct {
	r *bufio.Reader
}

// NewFrameReader wraps a byte source with buffered frame reading.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReaderSize(r, defaultBufFrames*8032)}
}

// ReadFrame reads and validates the next frame. io.EOF is returned at a
// clean end of stream; a stream ending mid-frame yields ErrTruncated.
func (fr *FrameReader) ReadFrame() (*Frame, error) {
	var head [LegacyHeaderSize]byte
	if _, err := io.ReadFull(fr.r, head[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return nil, errors.WithStack(ErrTruncated)
		}
		return nil, errors.WithStack(err)
	}

	// the legacy bit and frame length live in the first 16 bytes, enough to
	// size the read for the rest of the frame
	w0 := binary.LittleEndian.Uint32(head[0:])
	flen := int(binary.LittleEndian.Uint32(head[8:])&maskFrameLen) * 8
	minLen := HeaderSize
	if w0&maskLegacy != 0 {
		minLen = LegacyHeaderSize
	}
	if flen < minLen {
		return nil, errors.WithStack(ErrLengthMismatch)
	}

	buf := alloc(flen)
	copy(buf, head[:])
	if _, err := io.ReadFull(fr.r, buf[LegacyHeaderSize:]); err != nil {
		return nil, errors.WithStack(ErrTruncated)
	}
	return NewFrame(buf)
}
