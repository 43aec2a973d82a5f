package pdf

import (
	"context"
	"image"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/imagescanner"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
	"github.com/MeKo-Tech/zbargo/internal/testutil"
)

func TestFlatten(t *testing.T) {
	a := image.NewGray(image.Rect(0, 0, 1, 1))
	b := image.NewGray(image.Rect(0, 0, 2, 2))
	c := image.NewGray(image.Rect(0, 0, 3, 3))

	got := Flatten(map[int][]image.Image{3: {c}, 1: {a, b}})
	require.Len(t, got, 3)
	assert.Equal(t, PageImage{Page: 1, Index: 0, Image: a}, got[0])
	assert.Equal(t, PageImage{Page: 1, Index: 1, Image: b}, got[1])
	assert.Equal(t, PageImage{Page: 3, Index: 0, Image: c}, got[2])
}

func TestCollectPageNumbers(t *testing.T) {
	imgs := map[int][]image.Image{2: nil}

	assert.Equal(t, []int{1, 2, 3}, collectPageNumbers(imgs, nil, 3))
	assert.Equal(t, []int{2, 3}, collectPageNumbers(imgs, []int{3, 9}, 3))
	assert.Equal(t, []int{2}, collectPageNumbers(imgs, nil, 0))
}

func TestPageSize_DPI(t *testing.T) {
	letter := PageSize{Width: defaultPageWidth, Height: defaultPageHeight}
	assert.InDelta(t, 100.0, letter.DPI(850, 1100), 0.01)
	assert.Zero(t, PageSize{}.DPI(100, 100))
}

func TestPageBox(t *testing.T) {
	sym := &symbol.Symbol{Points: []symbol.Point{{X: 10, Y: 20}, {X: 29, Y: 39}}}
	size := PageSize{Width: 200, Height: 400}

	box := pageBox(sym, 100, 100, size)
	assert.InDelta(t, 20.0, box.X, 1e-9)
	assert.InDelta(t, 40.0, box.W, 1e-9)
	assert.InDelta(t, 80.0, box.H, 1e-9)
	// top edge at 20px => 80pt from the top, so the bottom edge sits at 400-80-80
	assert.InDelta(t, 240.0, box.Y, 1e-9)

	assert.Equal(t, PageBox{}, pageBox(&symbol.Symbol{}, 100, 100, size))
}

func TestProcessor_Defaults(t *testing.T) {
	p := NewProcessor(nil)
	require.NotNil(t, p.scanner)
	assert.True(t, p.Config().AllowPasswords)
	assert.Equal(t, 150, p.Config().TargetDPI)
}

func TestProcessFile_Errors(t *testing.T) {
	p := NewProcessor(imagescanner.New())

	_, err := p.ProcessFile(context.Background(), "doc.pdf", "x-y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid page range")

	_, err = p.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), "")
	require.Error(t, err)
}

// writeBarcodePDF embeds a rendered barcode as the only page of a new PDF.
func writeBarcodePDF(t *testing.T, dir string) string {
	t.Helper()
	code := testutil.MustRender(t, testutil.DefaultCode(symbol.EAN13, "4006381333931"))
	size := testutil.ImageSize{Width: code.Bounds().Dx() + 80, Height: code.Bounds().Dy() + 80}
	canvas := testutil.Compose(size, testutil.Placement{Image: code, At: image.Pt(40, 40)})

	imgPath := filepath.Join(dir, "ean.png")
	testutil.SaveImage(t, canvas, imgPath)

	pdfPath := filepath.Join(dir, "ean.pdf")
	require.NoError(t, api.ImportImagesFile([]string{imgPath}, pdfPath, nil, nil))
	return pdfPath
}

func TestProcessFile_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dir := t.TempDir()
	pdfPath := writeBarcodePDF(t, dir)

	p := NewProcessorWithConfig(imagescanner.New(), &ProcessorConfig{MaxWorkers: 2})
	doc, err := p.ProcessFile(context.Background(), pdfPath, "")
	require.NoError(t, err)

	assert.Equal(t, 1, doc.TotalPages)
	assert.False(t, doc.Encrypted)
	require.Len(t, doc.Pages, 1)
	require.Len(t, doc.Pages[0].Images, 1)

	img := doc.Pages[0].Images[0]
	require.Len(t, img.Symbols, 1)
	assert.Equal(t, "EAN-13", img.Symbols[0].Type)
	assert.Equal(t, "4006381333931", img.Symbols[0].Data)
	require.Len(t, img.PageBoxes, 1)
	assert.Positive(t, img.PageBoxes[0].W)
	assert.Equal(t, 1, doc.SymbolCount())

	br := doc.BatchResult()
	require.Len(t, br.Images, 1)
	assert.Equal(t, pdfPath+"#page=1", br.Images[0].Path)
	out, err := br.FormatResults("text", false)
	require.NoError(t, err)
	assert.Equal(t, "EAN-13:4006381333931\n", out)

	n, sizes, err := PageInfo(pdfPath)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Positive(t, sizes[1].Width)
}
