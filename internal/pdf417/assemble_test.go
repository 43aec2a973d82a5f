package pdf417

import (
	"image"
	"image/color"
	"testing"

	bbpdf "github.com/boombuler/barcode/pdf417"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/decoder"
	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/MeKo-Tech/zbargo/internal/scanline"
)

// indicators returns the left and right row indicator values of row r.
func indicators(r, rows, cols, level int) (int, int) {
	upper, lower := (rows-1)/3, level*3+(rows-1)%3
	base := 30 * (r / 3)
	switch r % 3 {
	case 0:
		return base + upper, base + cols - 1
	case 1:
		return base + lower, base + upper
	}
	return base + cols - 1, base + lower
}

// layout encodes text codewords and splits them into row observations.
func layout(t *testing.T, rows, cols, level int, text ...int) []Observation {
	t.Helper()
	ecLen := 2 << level
	n := rows * cols
	require.LessOrEqual(t, len(text)+1+ecLen, n)
	data := append([]int{n - ecLen}, text...)
	for len(data) < n-ecLen {
		data = append(data, latchText)
	}
	cw := encodeWord(data, ecLen)
	obs := make([]Observation, rows)
	for r := range rows {
		left, right := indicators(r, rows, cols, level)
		obs[r] = Observation{
			Line:    10 + 4*r,
			Cluster: r % 3,
			Left:    left,
			Right:   right,
			Data:    append([]int(nil), cw[r*cols:(r+1)*cols]...),
			Start:   5,
			End:     300,
		}
	}
	return obs
}

func TestAssembler_Clean(t *testing.T) {
	var a Assembler
	a.Add(layout(t, 6, 3, 1, 567, 615, 137, 809, 329)...)
	res, err := a.Decode(true)
	require.NoError(t, err)
	assert.Equal(t, "Super !", string(res.Data))
	assert.Equal(t, 6, res.Rows)
	assert.Equal(t, 3, res.Columns)
	assert.Equal(t, 1, res.ECLevel)
	assert.Zero(t, res.Corrected)
	assert.Equal(t, -1, res.ECI)
	require.Len(t, res.Points, 4)
	assert.Equal(t, 10, res.Points[0].Y)
	assert.Equal(t, 30, res.Points[2].Y)
}

func TestAssembler_MissingRowIsErased(t *testing.T) {
	obs := layout(t, 6, 3, 2, 1, 88, 32, 119)
	var a Assembler
	a.Add(obs[:2]...)
	a.Add(obs[3:]...)
	res, err := a.Decode(true)
	require.NoError(t, err)
	assert.Equal(t, "ABC123", string(res.Data))
	assert.Equal(t, 3, res.Corrected)
}

func TestAssembler_VotesOutMisreads(t *testing.T) {
	obs := layout(t, 6, 3, 1, 1, 88, 32, 119)
	bad := obs[4]
	bad.Data = append([]int(nil), bad.Data...)
	bad.Data[1] = (bad.Data[1] + 7) % numValues

	var a Assembler
	a.Add(obs...)
	a.Add(obs[4], bad, obs[4])
	res, err := a.Decode(true)
	require.NoError(t, err)
	assert.Equal(t, "ABC123", string(res.Data))
	assert.Zero(t, res.Corrected)
}

func TestAssembler_CorrectsSingleMisread(t *testing.T) {
	obs := layout(t, 6, 3, 1, 1, 88, 32, 119)
	obs[2].Data[0] = (obs[2].Data[0] + 100) % numValues
	var a Assembler
	a.Add(obs...)
	res, err := a.Decode(true)
	require.NoError(t, err)
	assert.Equal(t, "ABC123", string(res.Data))
	assert.Equal(t, 1, res.Corrected)
}

func TestAssembler_UnreadableIndicators(t *testing.T) {
	obs := layout(t, 6, 3, 1, 1)
	for i := range obs {
		obs[i].Left, obs[i].Right = -1, -1
	}
	var a Assembler
	a.Add(obs...)
	_, err := a.Decode(true)
	assert.ErrorIs(t, err, ErrNotFound)

	a.Reset()
	assert.Zero(t, a.Len())
}

func TestAssembler_TooManyErasures(t *testing.T) {
	obs := layout(t, 9, 3, 1, 1, 88, 32, 119)
	var a Assembler
	a.Add(obs[0], obs[4], obs[8])
	_, err := a.Decode(true)
	assert.ErrorIs(t, err, ErrUncorrectable)
}

// render draws a PDF417 symbol with three pixel modules on a white margin.
func render(t *testing.T, content string, level byte) image.Image {
	t.Helper()
	code, err := bbpdf.Encode(content, level)
	require.NoError(t, err)
	b := code.Bounds()
	scaled := imaging.Resize(code, 3*b.Dx(), 3*b.Dy(), imaging.NearestNeighbor)
	canvas := imaging.New(3*b.Dx()+60, 3*b.Dy()+60, color.White)
	return imaging.Paste(canvas, scaled, image.Pt(30, 30))
}

func scanRows(t *testing.T, src image.Image) *RowDecoder {
	t.Helper()
	img, err := raster.FromImage(src)
	require.NoError(t, err)
	rd := NewRowDecoder()
	det := scanline.New()
	push := func(e decoder.Element) { rd.Push(e) }
	for y := range img.Height {
		rd.SetLine(false, y)
		rd.Reset()
		det.Scan(img.Row(y), push)
		rd.Flush()
	}
	return rd
}

func TestRowDecoder_Rendered(t *testing.T) {
	tests := []struct {
		name    string
		content string
		level   byte
	}{
		{"text", "Hello, PDF417!", 2},
		{"numeric", "12345678901234567890", 1},
		{"mixed", "Invoice 2024-0042 total 99.95 EUR", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rd := scanRows(t, render(t, tt.content, tt.level))
			obs := rd.Observations()
			require.NotEmpty(t, obs)
			for _, o := range obs {
				assert.False(t, o.Vertical)
				assert.Greater(t, o.End, o.Start)
			}

			var a Assembler
			a.Add(obs...)
			res, err := a.Decode(true)
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(res.Data))
			assert.Equal(t, int(tt.level), res.ECLevel)
		})
	}
}

func TestRowDecoder_UpsideDown(t *testing.T) {
	rd := scanRows(t, imaging.Rotate180(render(t, "upside down", 2)))
	for _, o := range rd.Observations() {
		assert.True(t, o.Reversed)
	}
	var a Assembler
	a.Add(rd.Observations()...)
	res, err := a.Decode(true)
	require.NoError(t, err)
	assert.Equal(t, "upside down", string(res.Data))
}

func TestRowDecoder_ClearAndNoise(t *testing.T) {
	rd := NewRowDecoder()
	for i := range 200 {
		rd.Push(decoder.Element{Width: float64(1 + i%4), Start: float64(i), Bar: i%2 == 0})
	}
	rd.Flush()
	assert.Empty(t, rd.Observations())

	rd = scanRows(t, render(t, "clear", 1))
	require.NotEmpty(t, rd.Observations())
	rd.Clear()
	assert.Empty(t, rd.Observations())
}

func TestDecodeCodeword(t *testing.T) {
	// widths of the first cluster 0 pattern, scaled
	var widths []float64
	pat := patterns[0][42]
	run, bar := 0, true
	for i := codewordModules - 1; i >= 0; i-- {
		isBar := pat>>uint(i)&1 == 1
		if isBar != bar {
			widths = append(widths, float64(run)*2.5)
			run, bar = 0, isBar
		}
		run++
	}
	widths = append(widths, float64(run)*2.5)
	require.Len(t, widths, 8)
	assert.Equal(t, 42, decodeCodeword(widths))
	assert.Equal(t, -1, decodeCodeword(make([]float64, 8)))
}
