package scanline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/boombuler/barcode/ean"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/decoder"
)

// render draws a module string ('1' dark) with k pixels per module.
func render(mods string, k int) []byte {
	var buf bytes.Buffer
	for _, m := range mods {
		v := byte(255)
		if m == '1' {
			v = 0
		}
		buf.Write(bytes.Repeat([]byte{v}, k))
	}
	return buf.Bytes()
}

func TestScan_Step(t *testing.T) {
	samples := render(strings.Repeat("0", 20)+strings.Repeat("1", 10)+strings.Repeat("0", 20), 1)
	got := New().Elements(samples)
	require.Len(t, got, 3)
	assert.Equal(t, decoder.Element{Width: 20, Start: 0, Bar: false}, got[0])
	assert.Equal(t, decoder.Element{Width: 10, Start: 20, Bar: true}, got[1])
	assert.Equal(t, decoder.Element{Width: 20, Start: 30, Bar: false}, got[2])
}

func TestScan_FlatLines(t *testing.T) {
	tests := []struct {
		name    string
		samples []byte
	}{
		{"white", bytes.Repeat([]byte{250}, 100)},
		{"low contrast", render(strings.Repeat("0011", 25), 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.samples
			if tt.name == "low contrast" {
				for i := range s {
					s[i] = 200 - s[i]/32
				}
			}
			got := New().Elements(s)
			require.Len(t, got, 1)
			assert.False(t, got[0].Bar)
			assert.InDelta(t, float64(len(s)), got[0].Width, 1e-9)
		})
	}
	assert.Empty(t, New().Elements(nil))
}

func TestScan_SubPixelEdge(t *testing.T) {
	samples := append(bytes.Repeat([]byte{255}, 20), 64)
	samples = append(samples, bytes.Repeat([]byte{0}, 20)...)
	got := New().Elements(samples)
	require.Len(t, got, 2)
	// pixel 20 is three quarters dark, so the edge sits near 20.25
	assert.InDelta(t, 20.25, got[1].Start, 0.1)
	assert.InDelta(t, float64(len(samples)), got[1].End(), 1e-9)
}

func TestScan_DecodesRenderedEAN(t *testing.T) {
	bc, err := ean.Encode("5901234123457")
	require.NoError(t, err)
	var mods strings.Builder
	mods.WriteString(strings.Repeat("0", 12))
	for x := range bc.Bounds().Dx() {
		r, _, _, _ := bc.At(x, 0).RGBA()
		if r < 0x8000 {
			mods.WriteByte('1')
		} else {
			mods.WriteByte('0')
		}
	}
	mods.WriteString(strings.Repeat("0", 15))

	for _, k := range []int{1, 2, 3, 5} {
		dec := decoder.NewEAN(decoder.DefaultConfig())
		dec.Reset()
		var got []decoder.Candidate
		New().Scan(render(mods.String(), k), func(e decoder.Element) {
			got = append(got, dec.Push(e)...)
		})
		got = append(got, dec.Flush()...)
		require.Len(t, got, 1, "scale %d", k)
		assert.Equal(t, "5901234123457", string(got[0].Data))
	}
}

func TestScan_ReusesDetector(t *testing.T) {
	d := New()
	a := d.Elements(render("0000011100000", 4))
	b := d.Elements(render("0000011100000", 4))
	assert.Equal(t, a, b)
}

func TestScan_ElementsMatchModules(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("elements reproduce run lengths", prop.ForAll(
		func(runs []int, k int) bool {
			mods := strings.Repeat("0", 10)
			want := []float64{float64(10 * k)}
			bar := true
			for _, r := range runs {
				c := "0"
				if bar {
					c = "1"
				}
				mods += strings.Repeat(c, r)
				want = append(want, float64(r*k))
				bar = !bar
			}
			if bar {
				// the last run was a space and merges with the quiet zone
				want[len(want)-1] += float64(10 * k)
			} else {
				want = append(want, float64(10*k))
			}
			mods += strings.Repeat("0", 10)

			got := New().Elements(render(mods, k))
			if len(got) != len(want) {
				return false
			}
			pos := 0.0
			for i, e := range got {
				if e.Width != want[i] || e.Start != pos || e.Bar != (i%2 == 1) {
					return false
				}
				pos += e.Width
			}
			return true
		},
		gen.SliceOfN(9, gen.IntRange(1, 4)),
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t)
}
