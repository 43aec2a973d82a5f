package testutil

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/code39"
	"github.com/boombuler/barcode/ean"
	"github.com/boombuler/barcode/pdf417"
	"github.com/boombuler/barcode/qr"
	"github.com/boombuler/barcode/twooffive"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

// ImageSize represents common image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	// Common test canvas sizes.
	SmallSize  = ImageSize{320, 240}
	MediumSize = ImageSize{640, 480}
	LargeSize  = ImageSize{1024, 768}
)

// Code describes one rendered test symbol.
type Code struct {
	Kind    symbol.Base
	Content string
	Module  int     // pixels per module
	Height  int     // bar height of linear codes in pixels
	Quiet   int     // quiet zone in modules
	Label   bool    // print the content below the symbol
	Rotate  float64 // counter-clockwise degrees
}

// DefaultCode returns a three pixel per module rendering of content.
func DefaultCode(kind symbol.Base, content string) Code {
	return Code{Kind: kind, Content: content, Module: 3, Height: 60, Quiet: 10}
}

func encode(c Code) (barcode.Barcode, error) {
	switch c.Kind {
	case symbol.EAN13, symbol.EAN8, symbol.ISBN13:
		return ean.Encode(c.Content)
	case symbol.UPCA:
		return ean.Encode("0" + c.Content)
	case symbol.Code39:
		return code39.Encode(c.Content, false, true)
	case symbol.Code128:
		return code128.Encode(c.Content)
	case symbol.I25:
		return twooffive.Encode(c.Content, true)
	case symbol.QRCode:
		return qr.Encode(c.Content, qr.M, qr.Auto)
	case symbol.PDF417:
		return pdf417.Encode(c.Content, 2)
	}
	return nil, fmt.Errorf("no test encoder for %s", c.Kind)
}

// Render draws c on a white background with its quiet zone.
func Render(c Code) (image.Image, error) {
	bc, err := encode(c)
	if err != nil {
		return nil, fmt.Errorf("encode %s %q: %w", c.Kind, c.Content, err)
	}
	module := max(c.Module, 1)
	b := bc.Bounds()
	w, h := b.Dx()*module, c.Height
	if bc.Metadata().Dimensions == 2 || h <= 0 {
		h = b.Dy() * module
	}
	scaled, err := barcode.Scale(bc, w, h)
	if err != nil {
		return nil, err
	}

	quiet := c.Quiet * module
	labelHeight := 0
	if c.Label {
		labelHeight = basicfont.Face7x13.Metrics().Height.Ceil() + 4
	}
	canvas := imaging.New(w+2*quiet, h+2*quiet+labelHeight, color.White)
	canvas = imaging.Paste(canvas, scaled, image.Pt(quiet, quiet))
	if c.Label {
		drawer := &font.Drawer{Dst: canvas, Src: image.Black, Face: basicfont.Face7x13}
		textWidth := font.MeasureString(basicfont.Face7x13, c.Content).Ceil()
		drawer.Dot = fixed.P(max((canvas.Bounds().Dx()-textWidth)/2, 0), quiet+h+labelHeight)
		drawer.DrawString(c.Content)
	}
	if c.Rotate != 0 {
		return imaging.Rotate(canvas, c.Rotate, color.White), nil
	}
	return canvas, nil
}

// MustRender renders c or fails the test.
func MustRender(t *testing.T, c Code) image.Image {
	t.Helper()
	img, err := Render(c)
	require.NoError(t, err)
	return img
}

// Placement puts an image at a position on a canvas.
type Placement struct {
	Image image.Image
	At    image.Point
}

// Compose pastes images onto a white canvas.
func Compose(size ImageSize, items ...Placement) *image.NRGBA {
	canvas := imaging.New(size.Width, size.Height, color.White)
	for _, it := range items {
		canvas = imaging.Paste(canvas, it.Image, it.At)
	}
	return canvas
}

// Gray converts a Go image into a Y800 frame.
func Gray(t *testing.T, img image.Image) *raster.Image {
	t.Helper()
	out, err := raster.FromImage(img)
	require.NoError(t, err)
	return out
}

// AddNoise flips pixels on a regular pattern to simulate print and scan artifacts.
func AddNoise(img image.Image, noiseLevel float64) *image.NRGBA {
	out := imaging.Clone(img)
	b := out.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if math.Mod(float64(x*y), 1.0/noiseLevel) >= 1.0 || (x+y)%2 != 0 {
				continue
			}
			c := out.NRGBAAt(x, y)
			out.SetNRGBA(x, y, color.NRGBA{255 - c.R, 255 - c.G, 255 - c.B, c.A})
		}
	}
	return out
}

// CreateTestImage creates a uniform image.
func CreateTestImage(width, height int, backgroundColor color.Color) image.Image {
	return imaging.New(width, height, backgroundColor)
}

// SaveImage saves an image as PNG.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	dir := filepath.Dir(path)
	require.NoError(t, EnsureDir(dir), "Failed to create directory %s", dir)

	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
}

// LoadImage loads an image from the specified path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	img, err := LoadImageFile(path)
	require.NoError(t, err)
	return img
}

// LoadImageFile loads an image from the specified path (non-testing version).
func LoadImageFile(path string) (image.Image, error) {
	file, err := os.Open(path) //nolint:gosec // G304: Opening user-provided image file is expected
	if err != nil {
		return nil, fmt.Errorf("failed to open image file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
