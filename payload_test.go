package vdif

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func randomSamples(rng *rand.Rand, n int, bits uint8) []int32 {
	offset := int64(1) << (bits - 1)
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(rng.Int63n(offset*2) - offset)
	}
	return out
}

func TestSampleRoundTripAllWidths(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for bits := uint8(1); bits <= 32; bits++ {
		c := SampleCoding{Bits: bits, Channels: 1}
		// enough samples to exercise several words at every width, padded
		// out so the total bit count packs to whole bytes
		n := 96
		for n*int(bits)%8 != 0 {
			n++
		}
		samples := randomSamples(rng, n, bits)
		enc, err := c.Encode(samples)
		if err != nil {
			t.Fatalf("bits=%d encode: %v", bits, err)
		}
		dec, err := c.Decode(enc)
		if err != nil {
			t.Fatalf("bits=%d decode: %v", bits, err)
		}
		assert.Equal(t, samples, dec, "bits=%d", bits)
	}
}

func TestThreeBitCrossesWordBoundary(t *testing.T) {
	// 3-bit samples: sample 10 occupies bits 30..32 of the stream and
	// straddles the first 32-bit word boundary
	c := SampleCoding{Bits: 3, Channels: 1}
	samples := []int32{-4, -3, -2, -1, 0, 1, 2, 3, -4, 3, -1, 2, -2, 1, 0, -3,
		3, -4, 2, 1, 0, -1, -2, -3, 1, 2, 3, 0, -4, -1, 2, -2}
	if len(samples)*3%8 != 0 {
		t.Fatal("test vector must pack to whole bytes")
	}
	enc, err := c.Encode(samples)
	if err != nil {
		t.Fatal(err)
	}
	if len(enc) != len(samples)*3/8 {
		t.Fatalf("encoded %d bytes", len(enc))
	}
	dec, err := c.Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, samples, dec)
}

func TestOneBitWireOrder(t *testing.T) {
	// LSB-first: the first sample lands in bit 0 of byte 0
	c := SampleCoding{Bits: 1, Channels: 1}
	samples := make([]int32, 8)
	for i := range samples {
		samples[i] = -1 // field value 0
	}
	samples[0] = 0 // field value 1
	enc, err := c.Encode(samples)
	if err != nil {
		t.Fatal(err)
	}
	if len(enc) != 1 || enc[0] != 0x01 {
		t.Fatalf("enc = %#v", enc)
	}
}

func TestThirtyTwoBitExtremes(t *testing.T) {
	c := SampleCoding{Bits: 32, Channels: 1}
	samples := []int32{-2147483648, 2147483647, 0, -1, 1}
	enc, err := c.Encode(samples)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := c.Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, samples, dec)
}

func TestComplexPairs(t *testing.T) {
	c := SampleCoding{Bits: 4, Channels: 2, Complex: true}
	// one group = 4 components (2 channels x re,im) = 16 bits
	samples := []int32{-8, 7, 0, -1, 3, -3, 5, -5}
	enc, err := c.Encode(samples)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := c.Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, samples, dec)

	// a payload that does not divide into whole groups must fail
	if _, err := c.Decode(enc[:len(enc)-1]); !assert.ErrorIs(t, err, ErrTruncated) {
		t.FailNow()
	}
}

func TestEncodeOutOfRange(t *testing.T) {
	c := SampleCoding{Bits: 2, Channels: 1}
	_, err := c.Encode([]int32{-2, 1, 2, 0, -2, 1, 0, -1, 0, 0, 0, 0})
	if !assert.ErrorIs(t, err, ErrOutOfRange) {
		t.FailNow()
	}

	c.Clamp = true
	enc, err := c.Encode([]int32{-9, 9, 0, -1, 0, 0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	dec, err := c.Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, []int32{-2, 1, 0, -1, 0, 0, 0, 0}, dec)
}

func TestCodingValidation(t *testing.T) {
	bad := []SampleCoding{
		{Bits: 0, Channels: 1},
		{Bits: 33, Channels: 1},
		{Bits: 2, Channels: 0},
	}
	for _, c := range bad {
		if _, err := c.Decode(make([]byte, 8)); err == nil {
			t.Fatalf("coding %+v accepted", c)
		}
	}
}

// TestEndToEndTwoBitFrame covers the common 2-bit case: a standard header declaring
// 2-bit real single-channel samples over an 8000-byte payload decodes to
// 32000 samples, and re-encoding reproduces the payload byte for byte.
func TestEndToEndTwoBitFrame(t *testing.T) {
	var h Header
	if err := h.SetBitsPerSample(2); err != nil {
		t.Fatal(err)
	}
	if err := h.SetFrameLength(8000 + HeaderSize); err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(7))
	payload := make([]byte, 8000)
	rng.Read(payload)

	f, err := FrameFromParts(h, payload)
	if err != nil {
		t.Fatal(err)
	}
	samples, err := f.Samples()
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 32000 {
		t.Fatalf("decoded %d samples", len(samples))
	}

	enc, err := CodingFromHeader(h).Encode(samples)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, payload, enc)
}
