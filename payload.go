package vdif

import "github.com/pkg/errors"

// SampleCoding describes how samples are bit-packed into a payload buffer.
// Samples are offset-binary fields of Bits width each, packed contiguously
// least-significant-bit first: bit i of the stream is bit i%8 of payload
// byte i/8, which is identical to LSB-first packing within little-endian
// 32-bit words taken in stream order. Samples may straddle byte and word
// boundaries. This type is the only place in the package where bit order is
// hard-coded.
type SampleCoding struct {
	Bits     uint8  // sample width in bits, 1 to 32
	Channels uint32 // channel count, samples are channel-interleaved
	Complex  bool   // samples are re/im component pairs
	Clamp    bool   // clamp out-of-range values on encode instead of failing
}

// CodingFromHeader derives the sample coding a frame's header declares.
func CodingFromHeader(h Header) SampleCoding {
	return SampleCoding{
		Bits:     h.BitsPerSample(),
		Channels: h.Channels(),
		Complex:  h.Complex(),
	}
}

func (c SampleCoding) valid() error {
	if c.Bits < 1 || c.Bits > 32 || c.Channels < 1 {
		return errors.WithStack(ErrFieldOverflow)
	}
	return nil
}

// groupBits is the number of payload bits one full cross-channel sample
// group occupies.
func (c SampleCoding) groupBits() uint64 {
	n := uint64(c.Bits) * uint64(c.Channels)
	if c.Complex {
		n *= 2
	}
	return n
}

// SampleCount returns the number of sample components a payload of the given
// byte length holds. The payload must divide into whole cross-channel sample
// groups, partial groups at the end are a decode failure, not a truncation
// to ignore.
func (c SampleCoding) SampleCount(payloadLen int) (int, error) {
	if err := c.valid(); err != nil {
		return 0, err
	}
	totalBits := uint64(payloadLen) * 8
	if totalBits%c.groupBits() != 0 {
		return 0, errors.WithStack(ErrTruncated)
	}
	return int(totalBits / uint64(c.Bits)), nil
}

// Decode unpacks a payload into sample components in stream order:
// channel-interleaved, with complex samples yielding adjacent re,im values.
// Each component is the raw unsigned field minus the 2^(Bits-1) offset.
func (c SampleCoding) Decode(payload []byte) ([]int32, error) {
	n, err := c.SampleCount(len(payload))
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	offset := int64(1) << (c.Bits - 1)
	cur := bitCursor{buf: payload}
	for i := range out {
		out[i] = int32(int64(cur.read(c.Bits)) - offset)
	}
	return out, nil
}

// Encode packs sample components into a freshly allocated payload buffer.
// The component count must form whole cross-channel sample groups.
func (c SampleCoding) Encode(samples []int32) ([]byte, error) {
	if err := c.valid(); err != nil {
		return nil, err
	}
	totalBits := uint64(len(samples)) * uint64(c.Bits)
	if totalBits%c.groupBits() != 0 || totalBits%8 != 0 {
		return nil, errors.WithStack(ErrLengthMismatch)
	}
	dst := make([]byte, totalBits/8)
	if err := c.EncodeTo(dst, samples); err != nil {
		return nil, err
	}
	return dst, nil
}

// EncodeTo packs sample components into dst, which must be exactly the
// payload size the component count implies. Values outside the
// representable range are clamped when Clamp is set and rejected with
// ErrOutOfRange otherwise.
func (c SampleCoding) EncodeTo(dst []byte, samples []int32) error {
	n, err := c.SampleCount(len(dst))
	if err != nil {
		return err
	}
	if n != len(samples) {
		return errors.WithStack(ErrLengthMismatch)
	}
	for i := range dst {
		dst[i] = 0
	}
	offset := int64(1) << (c.Bits - 1)
	lo, hi := -offset, offset-1
	cur := bitCursor{buf: dst}
	for _, s := range samples {
		v := int64(s)
		if v < lo || v > hi {
			if !c.Clamp {
				return errors.WithStack(ErrOutOfRange)
			}
			if v < lo {
				v = lo
			} else {
				v = hi
			}
		}
		cur.write(c.Bits, uint32(v+offset))
	}
	return nil
}

// bitCursor reads and writes bit fields of sub-byte granularity, LSB first.
// Write assumes the buffer was zeroed beforehand.
type bitCursor struct {
	buf []byte
	pos uint64
}

func (c *bitCursor) read(bits uint8) uint32 {
	var v uint32
	var got uint8
	for got < bits {
		b := c.buf[c.pos>>3]
		off := uint8(c.pos & 7)
		take := 8 - off
		if take > bits-got {
			take = bits - got
		}
		v |= uint32(b>>off) & (1<<take - 1) << got
		got += take
		c.pos += uint64(take)
	}
	return v
}

func (c *bitCursor) write(bits uint8, v uint32) {
	var put uint8
	for put < bits {
		off := uint8(c.pos & 7)
		take := 8 - off
		if take > bits-put {
			take = bits - put
		}
		c.buf[c.pos>>3] |= uint8(v>>put&(1<<take-1)) << off
		put += take
		c.pos += uint64(take)
	}
}
