package reedsolomon

import (
	"math/rand/v2"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codeword(data []byte, ecLen int) []byte {
	return append(append([]byte{}, data...), QRField.Encode(data, ecLen)...)
}

func TestField(t *testing.T) {
	f := QRField
	for a := 1; a < 256; a++ {
		assert.Equal(t, byte(1), f.Mul(byte(a), f.Inv(byte(a))), "a=%d", a)
	}
	assert.Equal(t, byte(1), f.Exp(0))
	assert.Equal(t, byte(0x1d), f.Exp(8))
	assert.Equal(t, byte(0), f.Mul(0, 77))
	assert.Panics(t, func() { f.Inv(0) })
}

func TestEncode_KnownBlock(t *testing.T) {
	// version 1-M "01234567" block from the QR Code standard annex
	data := []byte{0x10, 0x20, 0x0c, 0x56, 0x61, 0x80, 0xec, 0x11, 0xec, 0x11, 0xec, 0x11, 0xec, 0x11, 0xec, 0x11}
	ec := QRField.Encode(data, 10)
	assert.Equal(t, []byte{0xa5, 0x24, 0xd4, 0xc1, 0xed, 0x36, 0xc7, 0x87, 0x2c, 0x55}, ec)
}

func TestDecode_NoErrors(t *testing.T) {
	block := codeword([]byte("hello world"), 8)
	n, err := QRField.Decode(block, 8)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "hello world", string(block[:11]))
}

func TestDecode_CorrectsErrors(t *testing.T) {
	want := codeword([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 7)
	got := append([]byte{}, want...)
	got[0] = 0
	got[3] = 200
	got[16] ^= 0xff

	n, err := QRField.Decode(got, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, want, got)
}

func TestDecode_TooManyErrors(t *testing.T) {
	want := codeword(make([]byte, 20), 4)
	got := append([]byte{}, want...)
	for i := range 6 {
		got[i*3] ^= byte(17 + i)
	}
	_, err := QRField.Decode(got, 4)
	if err == nil {
		// a miscorrection lands on another codeword, never the original
		assert.NotEqual(t, want, got)
		return
	}
	assert.ErrorIs(t, err, ErrUncorrectable)
}

func TestDecode_BadArguments(t *testing.T) {
	_, err := QRField.Decode([]byte{1, 2}, 2)
	assert.ErrorIs(t, err, ErrUncorrectable)
}

func TestDecode_CorrectsUpToHalfTheECCodewords(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("t errors are always corrected", prop.ForAll(
		func(data []byte, ecLen int, seed uint64) bool {
			if len(data) == 0 {
				return true
			}
			want := codeword(data, ecLen)
			got := append([]byte{}, want...)
			rng := rand.New(rand.NewPCG(seed, 7))
			for _, p := range rng.Perm(len(got))[:ecLen/2] {
				got[p] ^= byte(1 + rng.IntN(255))
			}
			n, err := QRField.Decode(got, ecLen)
			return err == nil && n == ecLen/2 && string(got) == string(want)
		},
		gen.SliceOfN(40, gen.UInt8()),
		gen.IntRange(2, 30),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
