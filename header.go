package vdif

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

const (
	// HeaderSize is the size in bytes of a standard VDIF header.
	HeaderSize = 32
	// LegacyHeaderSize is the size in bytes of a legacy-mode VDIF header.
	LegacyHeaderSize = 16

	wordSize = 4
)

// field masks within the four fixed header words
const (
	maskInvalid  = 0x80000000 // w0 bit 31
	maskLegacy   = 0x40000000 // w0 bit 30
	maskSeconds  = 0x3fffffff // w0 bits 0-29
	maskRefEpoch = 0x3f000000 // w1 bits 24-29
	maskFrameNo  = 0x00ffffff // w1 bits 0-23
	maskVersion  = 0xe0000000 // w2 bits 29-31
	maskLog2Chan = 0x1f000000 // w2 bits 24-28
	maskFrameLen = 0x00ffffff // w2 bits 0-23, units of 8 bytes
	maskComplex  = 0x80000000 // w3 bit 31
	maskBits     = 0x7c000000 // w3 bits 26-30, stored as value-1
	maskThreadID = 0x03ff0000 // w3 bits 16-25
	maskStation  = 0x0000ffff // w3 bits 0-15
	maskEDV      = 0xff000000 // w4 bits 24-31
	maskExtUser  = 0x00ffffff // w4 bits 0-23
)

// Header is a VDIF frame header held in its fixed eight-word wire layout.
// All field access goes through masked accessor/mutator pairs; mutators
// reject values that do not fit the field's bit width. The zero Header is a
// valid standard-mode header with every field zeroed, which makes
// bits-per-sample read as 1 and frame length as 0.
type Header struct {
	w [8]uint32
}

// DecodeHeader decodes a header from wire bytes. The buffer must hold at
// least 16 bytes; 32 bytes are required unless the legacy bit is set.
// Unknown VDIF versions are not rejected here, the caller decides via
// Version().
func DecodeHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < LegacyHeaderSize {
		return h, errors.WithStack(ErrTruncated)
	}
	for i := 0; i < 4; i++ {
		h.w[i] = binary.LittleEndian.Uint32(data[i*wordSize:])
	}
	if h.Legacy() {
		return h, nil
	}
	if len(data) < HeaderSize {
		return h, errors.WithStack(ErrTruncated)
	}
	for i := 4; i < 8; i++ {
		h.w[i] = binary.LittleEndian.Uint32(data[i*wordSize:])
	}
	return h, nil
}

// Size returns the encoded size of this header in bytes.
func (h Header) Size() int {
	if h.Legacy() {
		return LegacyHeaderSize
	}
	return HeaderSize
}

// EncodeTo writes the header's wire representation into dst, which must hold
// at least Size() bytes.
func (h Header) EncodeTo(dst []byte) error {
	n := h.Size()
	if len(dst) < n {
		return errors.WithStack(ErrTruncated)
	}
	_ = dst[n-1]
	for i := 0; i < n/wordSize; i++ {
		binary.LittleEndian.PutUint32(dst[i*wordSize:], h.w[i])
	}
	return nil
}

// Bytes returns a freshly allocated wire encoding of the header.
func (h Header) Bytes() []byte {
	buf := make([]byte, h.Size())
	h.EncodeTo(buf)
	return buf
}

// Invalid reports the data-invalid marker. It does not gate decoding.
func (h Header) Invalid() bool { return h.w[0]&maskInvalid != 0 }

func (h *Header) SetInvalid(v bool) {
	if v {
		h.w[0] |= maskInvalid
	} else {
		h.w[0] &^= maskInvalid
	}
}

// Legacy reports whether the header uses the 16-byte legacy layout.
func (h Header) Legacy() bool { return h.w[0]&maskLegacy != 0 }

// SetLegacy selects the legacy layout. Switching to legacy zeroes the
// extended words, they have no wire representation in that mode.
func (h *Header) SetLegacy(v bool) {
	if v {
		h.w[0] |= maskLegacy
		h.w[4], h.w[5], h.w[6], h.w[7] = 0, 0, 0, 0
	} else {
		h.w[0] &^= maskLegacy
	}
}

// Seconds returns seconds elapsed since the reference epoch.
func (h Header) Seconds() uint32 { return h.w[0] & maskSeconds }

func (h *Header) SetSeconds(v uint32) error {
	if v > maskSeconds {
		return errors.WithStack(ErrFieldOverflow)
	}
	h.w[0] = h.w[0]&^maskSeconds | v
	return nil
}

// RefEpoch returns the half-year reference epoch index.
func (h Header) RefEpoch() uint8 { return uint8(h.w[1] & maskRefEpoch >> 24) }

func (h *Header) SetRefEpoch(v uint8) error {
	if v > 0x3f {
		return errors.WithStack(ErrFieldOverflow)
	}
	h.w[1] = h.w[1]&^maskRefEpoch | uint32(v)<<24
	return nil
}

// FrameNumber returns the frame's sequence number within the current second.
func (h Header) FrameNumber() uint32 { return h.w[1] & maskFrameNo }

func (h *Header) SetFrameNumber(v uint32) error {
	if v > maskFrameNo {
		return errors.WithStack(ErrFieldOverflow)
	}
	h.w[1] = h.w[1]&^maskFrameNo | v
	return nil
}

// Version returns the VDIF version number. Only version 0 semantics are
// implemented, other values are surfaced untouched.
func (h Header) Version() uint8 { return uint8(h.w[2] & maskVersion >> 29) }

func (h *Header) SetVersion(v uint8) error {
	if v > 7 {
		return errors.WithStack(ErrFieldOverflow)
	}
	h.w[2] = h.w[2]&^maskVersion | uint32(v)<<29
	return nil
}

// Log2Channels returns the base-2 logarithm of the channel count.
func (h Header) Log2Channels() uint8 { return uint8(h.w[2] & maskLog2Chan >> 24) }

func (h *Header) SetLog2Channels(v uint8) error {
	if v > 0x1f {
		return errors.WithStack(ErrFieldOverflow)
	}
	h.w[2] = h.w[2]&^maskLog2Chan | uint32(v)<<24
	return nil
}

// Channels returns the number of channels, 2^Log2Channels.
func (h Header) Channels() uint32 { return 1 << h.Log2Channels() }

// FrameLength returns the total frame length in bytes, header included.
// The wire stores it in units of 8 bytes.
func (h Header) FrameLength() int { return int(h.w[2]&maskFrameLen) * 8 }

// SetFrameLength sets the total frame length in bytes, which must be a
// multiple of 8 no larger than the 24-bit field allows, and no smaller than
// the header itself.
func (h *Header) SetFrameLength(n int) error {
	if n%8 != 0 || n/8 > maskFrameLen || n < h.Size() {
		return errors.WithStack(ErrFieldOverflow)
	}
	h.w[2] = h.w[2]&^maskFrameLen | uint32(n/8)
	return nil
}

// PayloadLength returns the payload length in bytes implied by the frame
// length and the header size.
func (h Header) PayloadLength() int { return h.FrameLength() - h.Size() }

// Complex reports whether samples are complex pairs rather than real.
func (h Header) Complex() bool { return h.w[3]&maskComplex != 0 }

func (h *Header) SetComplex(v bool) {
	if v {
		h.w[3] |= maskComplex
	} else {
		h.w[3] &^= maskComplex
	}
}

// BitsPerSample returns the sample width in bits, 1 to 32. The wire stores
// the width minus one.
func (h Header) BitsPerSample() uint8 { return uint8(h.w[3]&maskBits>>26) + 1 }

func (h *Header) SetBitsPerSample(v uint8) error {
	if v < 1 || v > 32 {
		return errors.WithStack(ErrFieldOverflow)
	}
	h.w[3] = h.w[3]&^maskBits | uint32(v-1)<<26
	return nil
}

// ThreadID returns the data thread identifier.
func (h Header) ThreadID() uint16 { return uint16(h.w[3] & maskThreadID >> 16) }

func (h *Header) SetThreadID(v uint16) error {
	if v > 0x3ff {
		return errors.WithStack(ErrFieldOverflow)
	}
	h.w[3] = h.w[3]&^maskThreadID | uint32(v)<<16
	return nil
}

// StationID returns the numeric station identifier.
func (h Header) StationID() uint16 { return uint16(h.w[3] & maskStation) }

func (h *Header) SetStationID(v uint16) {
	h.w[3] = h.w[3]&^maskStation | uint32(v)
}

// StationCode returns the station as its two-character code when both bytes
// are printable ASCII, the convention used for named stations.
func (h Header) StationCode() (string, bool) {
	id := h.StationID()
	hi, lo := byte(id>>8), byte(id)
	if hi < 0x20 || hi > 0x7e || lo < 0x20 || lo > 0x7e {
		return "", false
	}
	return string([]byte{hi, lo}), true
}

// SetStationCode sets the station identifier from a two-character code.
func (h *Header) SetStationCode(code string) error {
	if len(code) != 2 {
		return errors.WithStack(ErrFieldOverflow)
	}
	h.SetStationID(uint16(code[0])<<8 | uint16(code[1]))
	return nil
}

// EDV returns the extended data version tag. Meaningless in legacy mode.
func (h Header) EDV() uint8 { return uint8(h.w[4] & maskEDV >> 24) }

func (h *Header) SetEDV(v uint8) {
	h.w[4] = h.w[4]&^maskEDV | uint32(v)<<24
}

// ExtendedUserData returns the 24-bit extended field sharing word 4 with the
// EDV tag.
func (h Header) ExtendedUserData() uint32 { return h.w[4] & maskExtUser }

func (h *Header) SetExtendedUserData(v uint32) error {
	if v > maskExtUser {
		return errors.WithStack(ErrFieldOverflow)
	}
	h.w[4] = h.w[4]&^maskExtUser | v
	return nil
}

// ExtendedWord returns one of the three opaque extension words (i in 0..2).
// The core never interprets them.
func (h Header) ExtendedWord(i int) uint32 { return h.w[5+i] }

func (h *Header) SetExtendedWord(i int, v uint32) {
	h.w[5+i] = v
}

func (h Header) String() string {
	station, ok := h.StationCode()
	if !ok {
		station = fmt.Sprintf("#%d", h.StationID())
	}
	return fmt.Sprintf("(invalid:%v legacy:%v sec:%d epoch:%d frame:%d ver:%d chan:%d len:%d complex:%v bits:%d thread:%d station:%s edv:%d)",
		h.Invalid(), h.Legacy(), h.Seconds(), h.RefEpoch(), h.FrameNumber(),
		h.Version(), h.Channels(), h.FrameLength(), h.Complex(),
		h.BitsPerSample(), h.ThreadID(), station, h.EDV())
}
