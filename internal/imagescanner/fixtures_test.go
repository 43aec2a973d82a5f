package imagescanner_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/imagescanner"
	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
	"github.com/MeKo-Tech/zbargo/internal/testutil"
	"github.com/MeKo-Tech/zbargo/internal/utils"
)

// TestScan_GeneratedFixtures checks the data written by cmd/generate-test-data.
func TestScan_GeneratedFixtures(t *testing.T) {
	layout := testutil.TestData(t)
	testutil.RequireGenerated(t, layout.FixturesDir())
	entries, err := os.ReadDir(layout.FixturesDir())
	require.NoError(t, err)

	scanner := imagescanner.New()
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok {
			continue
		}
		t.Run(name, func(t *testing.T) {
			f := testutil.LoadFixture(t, layout.FixturesDir(), name)
			testutil.ValidateFixture(t, layout.Root, f)
			require.Len(t, f.Expected, 1)
			want := f.Expected[0]

			inputs := []string{filepath.Join(layout.Root, filepath.FromSlash(f.InputFile))}
			if base, err := symbol.ParseBase(name); err == nil && !base.Is2D() {
				for _, v := range []string{"label", "rot90", "rot180"} {
					inputs = append(inputs, layout.Image(name, v))
				}
			}
			for _, path := range inputs {
				frame, _, err := utils.LoadFrame(path)
				require.NoError(t, err)
				set, err := scanner.Scan(frame)
				require.NoError(t, err)
				var got []string
				for _, r := range set.Records() {
					got = append(got, r.Type+":"+r.Data)
				}
				assert.Contains(t, got, want.Type+":"+want.Data, filepath.Base(path))
			}
		})
	}
}

// TestScan_GeneratedUYVYFrames converts the packed 4:2:2 frames to Y800
// before scanning, the way zbarimg handles camera captures.
func TestScan_GeneratedUYVYFrames(t *testing.T) {
	layout := testutil.TestData(t)
	testutil.RequireGenerated(t, layout.FramesDir())

	scanner := imagescanner.New()
	for _, sample := range testutil.Samples() {
		t.Run(sample.Name, func(t *testing.T) {
			path := layout.Recording(sample.Name, raster.UYVY)
			testutil.RequireGenerated(t, path)
			data, err := os.ReadFile(path) //nolint:gosec // G304: generated test data
			require.NoError(t, err)

			frame, err := raster.ReadFrame(bytes.NewReader(data))
			require.NoError(t, err)
			require.Equal(t, raster.UYVY, frame.Format)
			_, err = scanner.Scan(frame)
			require.ErrorIs(t, err, raster.ErrUnsupportedFormat)

			gray, err := raster.Convert(frame, raster.Y800)
			require.NoError(t, err)
			set, err := scanner.Scan(gray)
			require.NoError(t, err)
			require.Equal(t, 1, set.Len())
			assert.Equal(t, sample.Code.Content, set.At(0).Text())
		})
	}
}
