package charset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuess(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"ascii", []byte("plain ascii"), "plain ascii"},
		{"utf-8", []byte("Grüße"), "Grüße"},
		{"shift_jis", []byte{0x93, 0x5F}, "点"},
		{"latin-1", []byte{'K', 0xF6, 'r'}, "Kör"},
		{"dangling lead byte", []byte{0xE9}, "é"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(Convert(tt.in, Guess(tt.in))))
		})
	}
}

func TestToUTF8(t *testing.T) {
	assert.Equal(t, "点", string(ToUTF8([]byte{0x93, 0x5F}, 20)))
	assert.Equal(t, "ü", string(ToUTF8([]byte{0xC3, 0xBC}, 26)))
	assert.Equal(t, "Ж", string(ToUTF8([]byte{0xB6}, 7)))
	assert.Equal(t, "€", string(ToUTF8([]byte{0x80}, 23)))
	// unknown designators fall back to guessing
	assert.Equal(t, "é", string(ToUTF8([]byte{0xE9}, -1)))
}

func TestForECI(t *testing.T) {
	enc, ok := ForECI(26)
	assert.True(t, ok)
	assert.Nil(t, enc)

	_, ok = ForECI(99)
	assert.False(t, ok)
}
