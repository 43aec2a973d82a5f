package video

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/imagescanner"
	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
	"github.com/MeKo-Tech/zbargo/internal/testutil"
)

func eanFrame(t *testing.T) *raster.Image {
	t.Helper()
	return testutil.Gray(t, testutil.MustRender(t, testutil.DefaultCode(symbol.EAN8, "96385074")))
}

func blankFrame(t *testing.T) *raster.Image {
	t.Helper()
	return testutil.Gray(t, testutil.CreateTestImage(120, 80, color.White))
}

func TestStream_CacheAcrossFrames(t *testing.T) {
	src := NewSliceSource(eanFrame(t), eanFrame(t), blankFrame(t), eanFrame(t))
	s := NewStream(src, imagescanner.New())
	assert.True(t, s.Scanner().CacheEnabled())

	var frames []Frame
	require.NoError(t, s.Run(context.Background(), func(f Frame) error {
		frames = append(frames, f)
		return nil
	}))
	require.Len(t, frames, 4)
	assert.Equal(t, 4, s.Frames())

	assert.Zero(t, frames[0].Symbols.Len(), "first sighting is held back")
	require.Len(t, frames[1].Fresh(), 1)
	assert.Equal(t, "96385074", frames[1].Fresh()[0].Text())
	assert.Zero(t, frames[2].Symbols.Len())
	require.Equal(t, 1, frames[3].Symbols.Len())
	assert.Equal(t, 1, frames[3].Symbols.At(0).Count)
	assert.Empty(t, frames[3].Fresh())

	for i, f := range frames {
		assert.Equal(t, i, f.Sequence)
	}
}

func TestStream_EndAndCancel(t *testing.T) {
	s := NewStream(NewSliceSource(), imagescanner.New())
	_, err := s.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	assert.True(t, IsEnd(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s = NewStream(NewSliceSource(blankFrame(t)), imagescanner.New())
	err = s.Run(ctx, func(Frame) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStream_CallbackErrorStops(t *testing.T) {
	stop := errors.New("stop")
	s := NewStream(NewSliceSource(blankFrame(t), blankFrame(t)), imagescanner.New())
	calls := 0
	err := s.Run(context.Background(), func(Frame) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	img := testutil.MustRender(t, testutil.DefaultCode(symbol.EAN8, "96385074"))
	testutil.SaveImage(t, img, filepath.Join(dir, "frame-001.png"))
	testutil.SaveImage(t, img, filepath.Join(dir, "frame-000.png"))

	rec := blankFrame(t)
	rec.Sequence = 42
	f, err := os.Create(filepath.Join(dir, "frame-002.zbf"))
	require.NoError(t, err)
	require.NoError(t, raster.WriteFrame(f, rec))
	require.NoError(t, f.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	src, err := NewDirSource(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, src.Len())

	var seqs []int
	for {
		frame, err := src.Next(context.Background())
		if IsEnd(err) {
			break
		}
		require.NoError(t, err)
		assert.True(t, frame.Format.IsGray())
		seqs = append(seqs, frame.Sequence)
	}
	assert.Equal(t, []int{0, 1, 42}, seqs)
}

func TestDirSource_Empty(t *testing.T) {
	_, err := NewDirSource(t.TempDir())
	require.Error(t, err)

	_, err = NewDirSource(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestStreamSource(t *testing.T) {
	var buf bytes.Buffer
	for i := range 3 {
		img, err := raster.New(6, 4, raster.RGB3, nil)
		require.NoError(t, err)
		img.Sequence = 10 + i
		require.NoError(t, raster.WriteFrame(&buf, img))
	}

	src := NewStreamSource(&buf)
	var seqs []int
	for {
		img, err := src.Next(context.Background())
		if IsEnd(err) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, raster.Y800, img.Format)
		seqs = append(seqs, img.Sequence)
	}
	assert.Equal(t, []int{10, 11, 12}, seqs)
	require.NoError(t, src.Close())
}

// TestStream_GeneratedRecordings replays the Y800 recordings written by
// cmd/generate-test-data.
func TestStream_GeneratedRecordings(t *testing.T) {
	layout := testutil.TestData(t)
	testutil.RequireGenerated(t, layout.FramesDir())

	for _, sample := range testutil.Samples() {
		t.Run(sample.Name, func(t *testing.T) {
			path := layout.Recording(sample.Name, raster.Y800)
			testutil.RequireGenerated(t, path)
			src, err := OpenStream(path)
			require.NoError(t, err)
			defer src.Close()

			s := NewStream(src, imagescanner.New())
			var fresh []string
			var sequences []int
			require.NoError(t, s.Run(context.Background(), func(f Frame) error {
				sequences = append(sequences, f.Sequence)
				for _, sym := range f.Fresh() {
					fresh = append(fresh, sym.Text())
				}
				return nil
			}))
			assert.Equal(t, []int{0, 1, 2}, sequences)
			assert.Equal(t, []string{sample.Code.Content}, fresh, "reported once")
		})
	}
}
