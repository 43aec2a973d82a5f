package cmd

import (
	"bytes"
	"encoding/json"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
	"github.com/MeKo-Tech/zbargo/internal/testutil"
)

const ean13Data = "4006381333931"

// writeCode renders a symbol into dir/name and returns the path.
func writeCode(t *testing.T, dir, name string, kind symbol.Base, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testutil.SaveImage(t, testutil.MustRender(t, testutil.DefaultCode(kind, content)), path)
	return path
}

func TestImageCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeCode(t, dir, "ean.png", symbol.EAN13, ean13Data)

	out, errOut, err := run(t, "image", path)
	require.NoError(t, err)
	assert.Equal(t, "EAN-13:"+ean13Data+"\n", out)
	assert.Contains(t, errOut, "scanned 1 barcode symbols from 1 images")
}

func TestImageCommandRawQuiet(t *testing.T) {
	dir := t.TempDir()
	path := writeCode(t, dir, "qr.png", symbol.QRCode, "hello zbar")

	out, errOut, err := run(t, "image", "--raw", "--quiet", path)
	require.NoError(t, err)
	assert.Equal(t, "hello zbar\n", out)
	assert.NotContains(t, errOut, "scanned")
}

func TestImageCommandNoSymbols(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blank.png")
	testutil.SaveImage(t, testutil.CreateTestImage(120, 80, color.White), path)

	out, errOut, err := run(t, "image", path)
	require.ErrorIs(t, err, ErrNoSymbols)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "WARNING: barcode data was not detected")
}

func TestImageCommandSymbologyFilter(t *testing.T) {
	dir := t.TempDir()
	path := writeCode(t, dir, "ean.png", symbol.EAN13, ean13Data)

	_, _, err := run(t, "image", "--symbology", "qrcode", path)
	require.ErrorIs(t, err, ErrNoSymbols)

	_, _, err = run(t, "image", "-S", "ean13.disable", path)
	require.ErrorIs(t, err, ErrNoSymbols)

	out, _, err := run(t, "image", "--symbology", "qrcode,ean13", "--raw", path)
	require.NoError(t, err)
	assert.Equal(t, ean13Data+"\n", out)
}

func TestImageCommandStdin(t *testing.T) {
	dir := t.TempDir()
	path := writeCode(t, dir, "c128.png", symbol.Code128, "STDIN-128")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	root := NewRootCommand()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(bytes.NewReader(data))
	root.SetArgs([]string{"image", "-"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "CODE-128:STDIN-128\n", stdout.String())
}

func TestImageCommandMissingFile(t *testing.T) {
	dir := t.TempDir()
	good := writeCode(t, dir, "ean.png", symbol.EAN13, ean13Data)

	out, errOut, err := run(t, "image", filepath.Join(dir, "missing.png"), good)
	require.NoError(t, err)
	assert.Equal(t, "EAN-13:"+ean13Data+"\n", out)
	assert.Contains(t, errOut, "1 images failed")
}

func TestImageCommandXMLAndOutputFile(t *testing.T) {
	dir := t.TempDir()
	path := writeCode(t, dir, "ean8.png", symbol.EAN8, "96385074")
	file := filepath.Join(dir, "out.xml")

	_, _, err := run(t, "image", "--format", "xml", "--output", file, "--quiet", path)
	require.NoError(t, err)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<barcodes")
	assert.Contains(t, string(data), "96385074")
}

func TestBatchCommandJSON(t *testing.T) {
	dir := t.TempDir()
	writeCode(t, dir, "a.png", symbol.EAN13, ean13Data)
	writeCode(t, dir, "b.png", symbol.Code39, "BATCH39")
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	writeCode(t, sub, "c.png", symbol.QRCode, "nested qr")

	out, _, err := run(t, "batch", dir, "--format", "json", "--quiet", "--workers", "2")
	require.NoError(t, err)

	var report struct {
		Images []struct {
			File    string          `json:"file"`
			Symbols []symbol.Record `json:"symbols"`
		} `json:"images"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Images, 2)
	var data []string
	for _, img := range report.Images {
		for _, r := range img.Symbols {
			data = append(data, r.Data)
		}
	}
	assert.ElementsMatch(t, []string{ean13Data, "BATCH39"}, data)

	out, _, err = run(t, "batch", dir, "--recursive", "--raw", "--quiet")
	require.NoError(t, err)
	lines := strings.Fields(out)
	assert.ElementsMatch(t, []string{ean13Data, "BATCH39", "nested", "qr"}, lines)
}

func TestConvertAndVideo(t *testing.T) {
	dir := t.TempDir()
	framesDir := filepath.Join(dir, "frames")
	require.NoError(t, os.MkdirAll(framesDir, 0o755))
	var frames []string
	for _, name := range []string{"f0.png", "f1.png", "f2.png"} {
		frames = append(frames, writeCode(t, framesDir, name, symbol.EAN13, ean13Data))
	}

	recording := filepath.Join(dir, "capture.zbf")
	_, errOut, err := run(t, append([]string{"convert", "-o", recording, "--fourcc", "YUYV"}, frames...)...)
	require.NoError(t, err)
	assert.Contains(t, errOut, "-> frame 2")

	f, err := os.Open(recording)
	require.NoError(t, err)
	first, err := raster.ReadFrame(f)
	require.NoError(t, err)
	assert.Equal(t, raster.YUYV, first.Format)
	assert.Equal(t, 0, first.Sequence)
	require.NoError(t, f.Close())

	// a symbol is confirmed in the second frame and then tracked
	out, errOut, err := run(t, "video", recording)
	require.NoError(t, err)
	assert.Equal(t, "frame 1: EAN-13:"+ean13Data+"\nframe 2: EAN-13:"+ean13Data+"\n", out)
	assert.Contains(t, errOut, "scanned 3 frames, reported 2 symbols")

	out, _, err = run(t, "video", framesDir, "--fresh-only", "--quiet")
	require.NoError(t, err)
	assert.Equal(t, "frame 1: EAN-13:"+ean13Data+"\n", out)
}

func TestConvertAppend(t *testing.T) {
	dir := t.TempDir()
	a := writeCode(t, dir, "a.png", symbol.Code128, "FIRST")
	b := writeCode(t, dir, "b.png", symbol.Code128, "SECOND")
	recording := filepath.Join(dir, "rec.zbf")

	_, _, err := run(t, "convert", "-q", "-o", recording, a)
	require.NoError(t, err)
	_, _, err = run(t, "convert", "-q", "-o", recording, "--append", "--sequence", "7", "--width", "200", "--height", "100", b)
	require.NoError(t, err)

	f, err := os.Open(recording)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	first, err := raster.ReadFrame(f)
	require.NoError(t, err)
	second, err := raster.ReadFrame(f)
	require.NoError(t, err)
	assert.Equal(t, raster.Y800, first.Format)
	assert.Equal(t, 7, second.Sequence)
	assert.Equal(t, 200, second.Width)
	assert.Equal(t, 100, second.Height)
}

func TestConvertErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeCode(t, dir, "a.png", symbol.EAN8, "96385074")

	_, _, err := run(t, "convert", path)
	require.Error(t, err)
	assert.True(t, isUsageError(err))

	_, _, err = run(t, "convert", "-o", filepath.Join(dir, "x.zbf"), "--fourcc", "NOPE", path)
	require.ErrorIs(t, err, raster.ErrUnsupportedFormat)
}
