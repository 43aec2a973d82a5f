package testutil

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

func TestRender_AllKinds(t *testing.T) {
	for _, s := range Samples() {
		t.Run(s.Name, func(t *testing.T) {
			img, err := Render(s.Code)
			require.NoError(t, err)
			b := img.Bounds()
			assert.Greater(t, b.Dx(), 2*s.Code.Quiet*s.Code.Module)
			assert.Greater(t, b.Dy(), 2*s.Code.Quiet*s.Code.Module)

			// quiet zone corner is white, and there are dark modules somewhere
			r, _, _, _ := img.At(b.Min.X, b.Min.Y).RGBA()
			assert.Equal(t, uint32(0xffff), r)
			gray := Gray(t, img)
			dark := 0
			for _, v := range gray.Data() {
				if v < 64 {
					dark++
				}
			}
			assert.Positive(t, dark)
		})
	}
}

func TestRender_LabelAndRotation(t *testing.T) {
	c := DefaultCode(symbol.EAN8, "96385074")
	plain := MustRender(t, c)

	c.Label = true
	labelled := MustRender(t, c)
	assert.Greater(t, labelled.Bounds().Dy(), plain.Bounds().Dy())

	c.Label, c.Rotate = false, 90
	rotated := MustRender(t, c)
	assert.Equal(t, plain.Bounds().Dx(), rotated.Bounds().Dy())
	assert.Equal(t, plain.Bounds().Dy(), rotated.Bounds().Dx())
}

func TestRender_Unsupported(t *testing.T) {
	_, err := Render(DefaultCode(symbol.ISBN10, "0201379627"))
	assert.Error(t, err)
	_, err = Render(DefaultCode(symbol.EAN13, "123"))
	assert.Error(t, err)
}

func TestCompose(t *testing.T) {
	a := CreateTestImage(10, 10, color.Black)
	canvas := Compose(SmallSize, Placement{Image: a, At: image.Pt(5, 5)})
	assert.Equal(t, SmallSize.Width, canvas.Bounds().Dx())
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, canvas.NRGBAAt(7, 7))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, canvas.NRGBAAt(0, 0))
}

func TestSaveAndLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "code.png")
	img := MustRender(t, DefaultCode(symbol.Code128, "round trip"))
	SaveImage(t, img, path)

	loaded := LoadImage(t, path)
	assert.Equal(t, img.Bounds(), loaded.Bounds())

	_, err := LoadImageFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestAddNoise(t *testing.T) {
	img := CreateTestImage(64, 64, color.White)
	noisy := AddNoise(img, 0.05)
	g, err := raster.FromImage(noisy)
	require.NoError(t, err)
	flipped := 0
	for _, v := range g.Data() {
		if v == 0 {
			flipped++
		}
	}
	assert.Positive(t, flipped)
	assert.Less(t, flipped, 64*64/2)
}
