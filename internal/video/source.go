// Package video feeds sequences of frames through a cache-enabled image
// scanner. Frames come from files; there is no camera access.
package video

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/MeKo-Tech/zbargo/internal/utils"
)

// Source produces frames on demand. Next returns io.EOF once exhausted.
type Source interface {
	Next(ctx context.Context) (*raster.Image, error)
}

// DirSource reads the image files of a directory in lexical order and numbers
// them from zero.
type DirSource struct {
	mu    sync.Mutex
	files []string
	next  int
}

// NewDirSource lists the supported images in dir.
func NewDirSource(dir string) (*DirSource, error) {
	files, err := utils.ListImages(dir, false)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no frames in %s", dir)
	}
	return &DirSource{files: files}, nil
}

// NewFileSource plays the given files in order.
func NewFileSource(files ...string) *DirSource {
	return &DirSource{files: files}
}

// Len is the number of frames the source holds.
func (s *DirSource) Len() int { return len(s.files) }

// Next loads the next frame. Its sequence number is its position in the
// listing unless the file is a frame container that carries one.
func (s *DirSource) Next(ctx context.Context) (*raster.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.next >= len(s.files) {
		s.mu.Unlock()
		return nil, io.EOF
	}
	seq, path := s.next, s.files[s.next]
	s.next++
	s.mu.Unlock()

	img, _, err := utils.LoadFrame(path)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(filepath.Ext(path), raster.FrameExt) {
		img.Sequence = seq
	}
	return img, nil
}

// StreamSource reads consecutive frame containers from one reader, such as a
// recording produced by `zbarimg convert --append`.
type StreamSource struct {
	mu sync.Mutex
	r  *bufio.Reader
	c  io.Closer
}

// NewStreamSource reads frames from r.
func NewStreamSource(r io.Reader) *StreamSource {
	s := &StreamSource{r: bufio.NewReader(r)}
	if c, ok := r.(io.Closer); ok {
		s.c = c
	}
	return s
}

// OpenStream opens a recording file.
func OpenStream(path string) (*StreamSource, error) {
	f, err := os.Open(path) //nolint:gosec // G304: user-provided recording
	if err != nil {
		return nil, err
	}
	return NewStreamSource(f), nil
}

// Next decodes the next frame, converting it to Y800 when stored in colour.
func (s *StreamSource) Next(ctx context.Context) (*raster.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	img, err := raster.ReadFrame(s.r)
	if err != nil {
		return nil, err
	}
	if img.Format.IsGray() {
		return img, nil
	}
	seq := img.Sequence
	gray, err := raster.Convert(img, raster.Y800)
	if err != nil {
		return nil, err
	}
	gray.Sequence = seq
	return gray, nil
}

// Close releases the underlying reader when it is closable.
func (s *StreamSource) Close() error {
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}

// SliceSource replays frames held in memory.
type SliceSource struct {
	mu     sync.Mutex
	frames []*raster.Image
}

// NewSliceSource numbers frames in order and replays them.
func NewSliceSource(frames ...*raster.Image) *SliceSource {
	for i, f := range frames {
		f.Sequence = i
	}
	return &SliceSource{frames: frames}
}

func (s *SliceSource) Next(ctx context.Context) (*raster.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return nil, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

// IsEnd reports whether err marks the end of a source.
func IsEnd(err error) bool {
	return errors.Is(err, io.EOF)
}
