package vdif

import "github.com/pkg/errors"

var (
	// ErrTruncated indicates insufficient bytes for a header, or a payload
	// whose bit count does not divide evenly into samples.
	ErrTruncated = errors.New("truncated input")

	// ErrFieldOverflow indicates a header field value that does not fit its
	// declared bit width.
	ErrFieldOverflow = errors.New("field overflow")

	// ErrLengthMismatch indicates a payload whose length disagrees with the
	// frame length declared in the header.
	ErrLengthMismatch = errors.New("frame length mismatch")

	// ErrOutOfRange indicates a sample value unrepresentable at the
	// requested bits per sample.
	ErrOutOfRange = errors.New("sample out of range")

	// ErrFull and ErrEmpty are the non-blocking ring buffer conditions.
	// They are expected control-flow signals, not failures.
	ErrFull  = errors.New("ring buffer full")
	ErrEmpty = errors.New("ring buffer empty")

	// ErrTimeout indicates a blocking pop exceeded its bound.
	ErrTimeout = errors.New("operation timed out")

	// ErrClosed indicates the ring buffer or receiver has been shut down.
	ErrClosed = errors.New("closed")
)
