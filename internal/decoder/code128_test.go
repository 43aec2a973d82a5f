package decoder

import (
	"testing"

	"github.com/boombuler/barcode/code128"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

func renderCode128(t *testing.T, content string) string {
	t.Helper()
	bc, err := code128.Encode(content)
	return quiet(15) + modulesOf(t, bc, err) + quiet(15)
}

func TestCode128_Decode(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"text", "Hello-128", "Hello-128"},
		{"digits", "0123456789", "0123456789"},
		{"mixed", "AB12345678cd", "AB12345678cd"},
		{"gs1", string(code128.FNC1) + "0101234567890128", GS1Prefix + "0101234567890128"},
	}
	s := DefaultConfig().Settings(symbol.Code128)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mods := renderCode128(t, tt.content)
			for _, rev := range []bool{false, true} {
				m := mods
				if rev {
					m = reverseModules(mods)
				}
				got := feed(NewCode128(s), m, 2.2)
				require.Len(t, got, 1, "reversed=%v", rev)
				assert.Equal(t, tt.want, string(got[0].Data))
				assert.Equal(t, rev, got[0].Reversed)
			}
		})
	}
}

func TestCode128_DamagedCheck(t *testing.T) {
	mods := []byte(renderCode128(t, "Hello"))
	// flip one module inside the first data character
	mods[15+11+3] ^= 1
	assert.Empty(t, feed(NewCode128(DefaultConfig().Settings(symbol.Code128)), string(mods), 2))
}

func TestCode128Text(t *testing.T) {
	tests := []struct {
		name  string
		start int
		codes []int
		want  string
	}{
		{"set b", code128StartB, []int{33, 69}, "Ae"},
		{"set c pairs", code128StartC, []int{12, 34}, "1234"},
		{"c then b", code128StartC, []int{12, code128CodeB, 33}, "12A"},
		{"fnc1 separator", code128StartB, []int{33, code128FNC1, 34}, "A\x1dB"},
		{"leading fnc1", code128StartC, []int{code128FNC1, 1}, GS1Prefix + "01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := code128Text(tt.start, tt.codes)
			require.True(t, ok)
			assert.Equal(t, tt.want, string(got))
		})
	}
}
