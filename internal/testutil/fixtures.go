package testutil

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

// TestFixture is an input image together with the symbols it must decode to.
type TestFixture struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	InputFile   string           `json:"input_file"`
	Expected    []ExpectedSymbol `json:"expected"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

// ExpectedSymbol is one decode a fixture expects.
type ExpectedSymbol struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// Sample is a named symbol rendering used for fixtures and generated test data.
type Sample struct {
	Name        string
	Code        Code
	Description string
}

// Fixture describes the sample as a fixture for the image file input.
func (s Sample) Fixture(input string, img image.Image) TestFixture {
	return TestFixture{
		Name:        s.Name,
		Description: s.Description,
		InputFile:   input,
		Expected:    []ExpectedSymbol{{Type: s.Code.Kind.String(), Data: s.Code.Content}},
		Metadata:    imageMetadata(img),
	}
}

// Samples returns one sample per supported symbology.
func Samples() []Sample {
	return []Sample{
		{"ean13", DefaultCode(symbol.EAN13, "4006381333931"), "EAN-13 at three pixels per module"},
		{"ean8", DefaultCode(symbol.EAN8, "96385074"), "EAN-8"},
		{"code39", DefaultCode(symbol.Code39, "ZBAR-123"), "Code 39 without check character"},
		{"code128", DefaultCode(symbol.Code128, "Hello, World 128"), "Code 128 switching code sets"},
		{"i25", DefaultCode(symbol.I25, "0123456789"), "Interleaved 2 of 5, ten digits"},
		{"qrcode", DefaultCode(symbol.QRCode, "https://example.com/zbar"), "QR Code, level M"},
		{"pdf417", DefaultCode(symbol.PDF417, "PDF417 sample payload"), "PDF417, security level 2"},
	}
}

// WriteSampleFixtures renders the sample codes as PNG files into dir and
// writes one JSON fixture per image next to them.
func WriteSampleFixtures(t *testing.T, dir string) []TestFixture {
	t.Helper()
	require.NoError(t, EnsureDir(dir))

	var out []TestFixture
	for _, s := range Samples() {
		img := MustRender(t, s.Code)
		input := s.Name + ".png"
		SaveImage(t, img, filepath.Join(dir, input))
		f := s.Fixture(input, img)
		SaveFixture(t, dir, f)
		out = append(out, f)
	}
	return out
}

func imageMetadata(img image.Image) map[string]any {
	b := img.Bounds()
	return map[string]any{"width": b.Dx(), "height": b.Dy()}
}

// LoadFixture loads a fixture from dir.
func LoadFixture(t *testing.T, dir, name string) TestFixture {
	t.Helper()

	fixturePath := filepath.Join(dir, name+".json")
	data, err := os.ReadFile(fixturePath) //nolint:gosec // G304: Reading test fixture files with controlled paths
	require.NoError(t, err, "Failed to read fixture file: %s", fixturePath)

	var fixture TestFixture
	require.NoError(t, json.Unmarshal(data, &fixture), "Failed to unmarshal fixture JSON")
	return fixture
}

// SaveFixture writes a fixture as JSON into dir.
func SaveFixture(t *testing.T, dir string, fixture TestFixture) {
	t.Helper()

	data, err := json.MarshalIndent(fixture, "", "  ")
	require.NoError(t, err, "Failed to marshal fixture to JSON")

	fixturePath := filepath.Join(dir, fixture.Name+".json")
	require.NoError(t, os.WriteFile(fixturePath, data, 0o600), "Failed to write fixture file: %s", fixturePath)
}

// ValidateFixture checks that a fixture's input file exists in dir.
func ValidateFixture(t *testing.T, dir string, fixture TestFixture) {
	t.Helper()

	inputPath := filepath.Join(dir, fixture.InputFile)
	require.True(t, FileExists(inputPath), "Fixture input file does not exist: %s", inputPath)
}
