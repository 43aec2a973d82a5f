package decoder

import (
	"image"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// modulesOf reads the first pixel row of a rendered 1-D code as a bar/space string.
func modulesOf(t *testing.T, img image.Image, err error) string {
	t.Helper()
	require.NoError(t, err)
	b := img.Bounds()
	var sb strings.Builder
	for x := b.Min.X; x < b.Max.X; x++ {
		r, _, _, _ := img.At(x, b.Min.Y).RGBA()
		if r < 0x8000 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// elements converts a module string into scan-line elements of the given module width.
func elements(mods string, scale float64) []Element {
	var out []Element
	pos := 0.0
	for i := 0; i < len(mods); {
		j := i
		for j < len(mods) && mods[j] == mods[i] {
			j++
		}
		w := float64(j-i) * scale
		out = append(out, Element{Width: w, Start: pos, Bar: mods[i] == '1'})
		pos += w
		i = j
	}
	return out
}

func quiet(n int) string { return strings.Repeat("0", n) }

func reverseModules(s string) string {
	b := []byte(s)
	slices.Reverse(b)
	return string(b)
}

// feed runs one scan-line through d.
func feed(d LineDecoder, mods string, scale float64) []Candidate {
	d.Reset()
	var out []Candidate
	for _, e := range elements(mods, scale) {
		out = append(out, d.Push(e)...)
	}
	return append(out, d.Flush()...)
}

// eanDigitBits renders one EAN digit; right-hand digits are the complement of odd parity.
func eanDigitBits(digit int, even, right bool) string {
	w := eanL[digit]
	if even {
		w = eanLG[10+digit]
	}
	bar := right
	var sb strings.Builder
	for _, n := range w {
		c := "0"
		if bar {
			c = "1"
		}
		sb.WriteString(strings.Repeat(c, n))
		bar = !bar
	}
	return sb.String()
}
