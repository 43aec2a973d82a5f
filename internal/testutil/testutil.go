package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/raster"
)

// Variants are the renderings cmd/generate-test-data writes for every sample.
var Variants = []string{"plain", "label", "rot90", "rot180", "rot270", "noisy"}

// Layout names the generated scanner test data below Root:
//
//	images/<sample>/<variant>.png
//	frames/<sample>.zbf            Y800 recording, sequences 0..2
//	frames/<sample>_<fourcc>.zbf   one frame in another sample format
//	fixtures/<sample>.json
type Layout struct {
	Root string
}

func (l Layout) ImagesDir() string   { return filepath.Join(l.Root, "images") }
func (l Layout) FramesDir() string   { return filepath.Join(l.Root, "frames") }
func (l Layout) FixturesDir() string { return filepath.Join(l.Root, "fixtures") }

// SampleDir holds the image variants of one sample.
func (l Layout) SampleDir(sample string) string {
	return filepath.Join(l.ImagesDir(), sample)
}

// Image is the path of one rendered variant.
func (l Layout) Image(sample, variant string) string {
	return filepath.Join(l.SampleDir(sample), variant+".png")
}

// Recording is the .zbf container of sample in format f. Y800 recordings
// carry no suffix since they are what the video tests replay.
func (l Layout) Recording(sample string, f raster.Format) string {
	if f == raster.Y800 {
		return filepath.Join(l.FramesDir(), sample+".zbf")
	}
	fourcc := strings.ToLower(strings.TrimSpace(f.String()))
	return filepath.Join(l.FramesDir(), sample+"_"+fourcc+".zbf")
}

func (l Layout) Fixture(sample string) string {
	return filepath.Join(l.FixturesDir(), sample+".json")
}

// Rel returns path relative to Root in slash form, the way fixtures store
// their input file.
func (l Layout) Rel(path string) (string, error) {
	rel, err := filepath.Rel(l.Root, path)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", path, l.Root)
	}
	return filepath.ToSlash(rel), nil
}

// ProjectRoot walks up from this source file to the directory holding go.mod.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("failed to get caller information")
	}
	for dir := filepath.Dir(filename); ; {
		if FileExists(filepath.Join(dir, "go.mod")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no go.mod above %s", filepath.Dir(filename))
		}
		dir = parent
	}
}

// DefaultLayout is the layout under <project root>/testdata.
func DefaultLayout() (Layout, error) {
	root, err := ProjectRoot()
	if err != nil {
		return Layout{}, err
	}
	return Layout{Root: filepath.Join(root, "testdata")}, nil
}

// TestData returns the project's test data layout.
func TestData(t *testing.T) Layout {
	t.Helper()
	l, err := DefaultLayout()
	require.NoError(t, err, "Failed to find project root")
	return l
}

// RequireGenerated skips t when path is missing. Generated data is not
// checked in.
func RequireGenerated(t *testing.T, path string) {
	t.Helper()
	if !FileExists(path) {
		t.Skipf("%s not generated; run go run ./cmd/generate-test-data", path)
	}
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o750)
}

// FileExists checks if a file or directory exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
