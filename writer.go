package vdif

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// FrameWriter writes VDIF frames sequentially to any byte sink with
// buffering. Call Flush before closing the underlying sink.
type FrameWriter struct {
	w *bufio.Writer
}

// NewFrameWriter wraps a byte sink with buffered frame writing.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: bufio.NewWriterSize(w, defaultBufFrames*8032)}
}

// WriteFrame writes one frame's full wire representation.
func (fw *FrameWriter) WriteFrame(f *Frame) error {
	if _, err := fw.w.Write(f.Bytes()); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Flush drains the write buffer to the sink.
func (fw *FrameWriter) Flush() error {
	return errors.WithStack(fw.w.Flush())
}
