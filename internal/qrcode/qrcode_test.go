package qrcode

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"

	"github.com/disintegration/imaging"
	goqr "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/decoder"
	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/MeKo-Tech/zbargo/internal/scanline"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
	"github.com/MeKo-Tech/zbargo/internal/testutil"
)

func encode(t *testing.T, content string, level goqr.RecoveryLevel) *goqr.QRCode {
	t.Helper()
	q, err := goqr.New(content, level)
	require.NoError(t, err)
	q.DisableBorder = true
	return q
}

func gridOf(q *goqr.QRCode) *Grid { return GridFromRows(q.Bitmap()) }

func TestDecode_Grid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		level   goqr.RecoveryLevel
		want    Level
	}{
		{"numeric", "0123456789012345", goqr.Medium, LevelM},
		{"alphanumeric", "HELLO WORLD $%*+-./:", goqr.Low, LevelL},
		{"bytes", "https://example.com/scan?id=42", goqr.High, LevelQ},
		{"utf8", "Grüße aus Köln", goqr.Highest, LevelH},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := encode(t, tt.content, tt.level)
			res, err := Decode(gridOf(q), true)
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(res.Data))
			assert.Equal(t, q.VersionNumber, res.Version)
			assert.Equal(t, tt.want, res.Level)
			assert.False(t, res.Mirrored)
			assert.Equal(t, -1, res.ECI)
			assert.Equal(t, -1, res.Sequence)
			assert.Zero(t, res.Corrected)
		})
	}
}

func TestDecode_Mirrored(t *testing.T) {
	q := encode(t, "mirror image", goqr.Medium)
	res, err := Decode(gridOf(q).Transpose(), true)
	require.NoError(t, err)
	assert.Equal(t, "mirror image", string(res.Data))
	assert.True(t, res.Mirrored)
}

func TestDecode_CorrectsDamage(t *testing.T) {
	q := encode(t, "damaged but readable", goqr.Medium)
	g := gridOf(q)
	n := g.Size
	// the first codeword sits in the bottom-right corner
	for _, p := range [][2]int{{n - 1, n - 1}, {n - 2, n - 1}, {n - 1, n - 2}, {n - 2, n - 2}} {
		g.flip(p[0], p[1])
	}
	res, err := Decode(g, true)
	require.NoError(t, err)
	assert.Equal(t, "damaged but readable", string(res.Data))
	assert.Positive(t, res.Corrected)
}

func TestDecode_TooMuchDamage(t *testing.T) {
	q := encode(t, "gone", goqr.Low)
	g := gridOf(q)
	for y := 9; y < g.Size; y++ {
		for x := 9; x < g.Size; x++ {
			g.flip(x, y)
		}
	}
	_, err := Decode(g, true)
	assert.Error(t, err)
}

func TestDecode_VersionInformation(t *testing.T) {
	q, err := goqr.NewWithForcedVersion("version seven carries version information", 7, goqr.Medium)
	require.NoError(t, err)
	q.DisableBorder = true
	g := gridOf(q)
	require.Equal(t, dimension(7), g.Size)
	assert.Equal(t, 7, readVersion(g))

	res, err := Decode(g, false)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Version)
	assert.Equal(t, "version seven carries version information", string(res.Data))
}

func TestDecode_BadDimension(t *testing.T) {
	_, err := Decode(NewGrid(22), true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFormatCodes(t *testing.T) {
	f, ok := decodeFormat(0x5412, 0x5412)
	require.True(t, ok)
	assert.Equal(t, formatInfo{level: LevelM, mask: 0}, f)

	// three bit errors still resolve
	f, ok = decodeFormat(0x5412^0b10101, 0x5412^0b10101)
	require.True(t, ok)
	assert.Equal(t, formatInfo{level: LevelM, mask: 0}, f)

	f, ok = decodeFormat(formatCodes[0b01011], formatCodes[0b01011]^1)
	require.True(t, ok)
	assert.Equal(t, formatInfo{level: LevelL, mask: 3}, f)
}

func TestVersionInfo(t *testing.T) {
	assert.Equal(t, 0x07C94, versionInfo[7])
	assert.Equal(t, 0x28C69, versionInfo[40])
	assert.Equal(t, 7, decodeVersion(0x07C94^0b101))
	assert.Zero(t, decodeVersion(0))
}

func TestTotalCodewords(t *testing.T) {
	for v, want := range map[int]int{1: 26, 2: 44, 7: 196, 10: 346, 40: 3706} {
		assert.Equal(t, want, totalCodewords(v), "version %d", v)
		for _, l := range []Level{LevelL, LevelM, LevelQ, LevelH} {
			e := versions[v-1].ec[l]
			assert.Equal(t, want, e.dataCodewords()+e.perBlock*e.numBlocks())
		}
	}
}

func TestFunctionMask_DataModules(t *testing.T) {
	for v := minVersion; v <= maxVersion; v++ {
		fn := functionMask(v)
		free := 0
		for y := range fn.Size {
			for x := range fn.Size {
				if !fn.Get(x, y) {
					free++
				}
			}
		}
		assert.Equal(t, totalCodewords(v), free/8, "version %d", v)
	}
}

// toRaster renders a Go image as a gray frame.
func toRaster(t *testing.T, img image.Image) *raster.Image {
	t.Helper()
	r, err := raster.FromImage(img)
	require.NoError(t, err)
	return r
}

// scanSegments feeds every row and column of img through a FinderDecoder.
func scanSegments(img *raster.Image) []Segment {
	fd := NewFinderDecoder()
	det := scanline.New()
	push := func(e decoder.Element) { fd.Push(e) }
	for y := range img.Height {
		fd.SetLine(false, y)
		fd.Reset()
		det.Scan(img.Row(y), push)
	}
	var col []byte
	for x := range img.Width {
		fd.SetLine(true, x)
		fd.Reset()
		col = img.Column(x, col)
		det.Scan(col, push)
	}
	return fd.Segments()
}

func TestDetect_Upright(t *testing.T) {
	q, err := goqr.New("detect me", goqr.Medium)
	require.NoError(t, err)
	img := toRaster(t, q.Image(256))

	res := Detect(img, scanSegments(img), true)
	require.Len(t, res, 1)
	assert.Equal(t, "detect me", string(res[0].Data))
	assert.Equal(t, symbol.OrientUp, res[0].Orientation)
	require.Len(t, res[0].Points, 4)
	assert.Less(t, res[0].Points[0].X, res[0].Points[1].X)
	assert.Less(t, res[0].Points[0].Y, res[0].Points[3].Y)
}

func TestDetect_WithAlignmentPattern(t *testing.T) {
	q, err := goqr.NewWithForcedVersion("a version four symbol", 4, goqr.High)
	require.NoError(t, err)
	img := toRaster(t, q.Image(330))

	res := Detect(img, scanSegments(img), true)
	require.Len(t, res, 1)
	assert.Equal(t, "a version four symbol", string(res[0].Data))
	assert.Equal(t, 4, res[0].Version)
}

func TestDetect_Rotated(t *testing.T) {
	q, err := goqr.New("rotated", goqr.High)
	require.NoError(t, err)
	for _, tc := range []struct {
		angle float64
		want  symbol.Orientation
	}{
		{90, symbol.OrientLeft},
		{180, symbol.OrientDown},
		{20, symbol.OrientUp},
	} {
		rot := imaging.Rotate(q.Image(300), tc.angle, color.White)
		img := toRaster(t, rot)
		res := Detect(img, scanSegments(img), true)
		require.Len(t, res, 1, "angle %v", tc.angle)
		assert.Equal(t, "rotated", string(res[0].Data))
		assert.Equal(t, tc.want, res[0].Orientation, "angle %v", tc.angle)
	}
}

func TestDetect_TwoSymbols(t *testing.T) {
	canvas := image.NewGray(image.Rect(0, 0, 560, 260))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	for i, text := range []string{"left", "right"} {
		q, err := goqr.New(text, goqr.Medium)
		require.NoError(t, err)
		tile := q.Image(250)
		draw.Draw(canvas, tile.Bounds().Add(image.Pt(5+i*290, 5)), tile, image.Point{}, draw.Src)
	}
	img := toRaster(t, canvas)

	res := Detect(img, scanSegments(img), true)
	require.Len(t, res, 2)
	got := []string{string(res[0].Data), string(res[1].Data)}
	assert.ElementsMatch(t, []string{"left", "right"}, got)
}

func renderQR(t *testing.T, content string, module int) *raster.Image {
	t.Helper()
	c := testutil.DefaultCode(symbol.QRCode, content)
	c.Module = module
	img, err := testutil.Render(c)
	require.NoError(t, err)
	return toRaster(t, img)
}

func TestFindFinders_Centres(t *testing.T) {
	for _, m := range []int{2, 3, 4, 6} {
		img := renderQR(t, "hello", m)
		finders := FindFinders(img, scanSegments(img))
		require.GreaterOrEqual(t, len(finders), 3, "module %d", m)

		// version 1 is 21 modules wide; the quiet zone is 10 modules
		near, far := float64(10*m)+3.5*float64(m), float64(10*m)+17.5*float64(m)
		for _, want := range [][2]float64{{near, near}, {far, near}, {near, far}} {
			found := false
			for _, f := range finders {
				if math.Abs(f.X-want[0]) <= 0.75 && math.Abs(f.Y-want[1]) <= 0.75 {
					found = true
				}
			}
			assert.True(t, found, "module %d: no finder at %v in %v", m, want, finders)
		}
	}
}

func TestFindFinders_RejectsSingleAxisRuns(t *testing.T) {
	// vertical stripes read 1:1:3:1:1 along every row but never down a column
	canvas := image.NewGray(image.Rect(0, 0, 80, 40))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	for _, span := range [][2]int{{20, 24}, {28, 40}, {44, 48}} {
		draw.Draw(canvas, image.Rect(span[0], 0, span[1], 40), image.Black, image.Point{}, draw.Src)
	}
	img := toRaster(t, canvas)
	segs := scanSegments(img)
	require.NotEmpty(t, segs)
	assert.Empty(t, FindFinders(img, segs))
}

func TestDetect_ModuleSizes(t *testing.T) {
	for _, content := range []string{"hello", "https://example.com/zbar"} {
		for _, m := range []int{2, 3, 4, 6} {
			img := renderQR(t, content, m)
			res := Detect(img, scanSegments(img), true)
			require.Len(t, res, 1, "%q at module %d", content, m)
			assert.Equal(t, content, string(res[0].Data))
			assert.Equal(t, symbol.OrientUp, res[0].Orientation)
		}
	}
}

func TestDetect_Blank(t *testing.T) {
	canvas := image.NewGray(image.Rect(0, 0, 100, 100))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	img := toRaster(t, canvas)
	assert.Empty(t, Detect(img, scanSegments(img), true))
}

func TestOtsu(t *testing.T) {
	hist := make([]int, 256)
	hist[20] = 50
	hist[230] = 50
	thr := otsu(hist, 100)
	assert.GreaterOrEqual(t, thr, 20)
	assert.Less(t, thr, 230)
}

func TestPerspective_RoundTrip(t *testing.T) {
	p := quadToQuad(
		[8]float64{0, 0, 10, 0, 10, 10, 0, 10},
		[8]float64{5, 5, 45, 8, 50, 52, 3, 40},
	)
	x, y := p.apply(0, 0)
	assert.InDelta(t, 5, x, 1e-9)
	assert.InDelta(t, 5, y, 1e-9)
	x, y = p.apply(10, 10)
	assert.InDelta(t, 50, x, 1e-9)
	assert.InDelta(t, 52, y, 1e-9)
}
