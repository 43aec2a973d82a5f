package video

import (
	"context"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/zbargo/internal/common"
	"github.com/MeKo-Tech/zbargo/internal/imagescanner"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

// Frame is the outcome of scanning one frame of a stream.
type Frame struct {
	Sequence int
	Width    int
	Height   int
	// Symbols holds the cache-filtered results: each carries its inter-frame count.
	Symbols *symbol.Set
	Elapsed time.Duration
}

// Fresh returns the symbols verified for the first time in this frame.
func (f Frame) Fresh() []*symbol.Symbol {
	var out []*symbol.Symbol
	for sym := range f.Symbols.All() {
		if sym.Count == 0 {
			out = append(out, sym)
		}
	}
	return out
}

// Stream pulls frames from a Source and scans them with result caching on.
type Stream struct {
	src     Source
	scanner *imagescanner.Scanner
	frames  int
}

// NewStream binds src to scanner and enables the scanner's cache.
func NewStream(src Source, scanner *imagescanner.Scanner) *Stream {
	if !scanner.CacheEnabled() {
		scanner.EnableCache(true)
	}
	return &Stream{src: src, scanner: scanner}
}

// Scanner returns the scanner frames are decoded with.
func (s *Stream) Scanner() *imagescanner.Scanner { return s.scanner }

// Frames counts the frames scanned so far.
func (s *Stream) Frames() int { return s.frames }

// Next scans the next frame. It returns io.EOF when the source is exhausted.
func (s *Stream) Next(ctx context.Context) (Frame, error) {
	img, err := s.src.Next(ctx)
	if err != nil {
		return Frame{}, err
	}
	timer := common.NewNamedTimer("frame")
	set, err := s.scanner.Scan(img)
	if err != nil {
		return Frame{}, err
	}
	s.frames++
	timer.Frame(img.Width, img.Height, set.Len())
	f := Frame{
		Sequence: img.Sequence,
		Width:    img.Width,
		Height:   img.Height,
		Symbols:  set,
		Elapsed:  timer.Stop(),
	}
	slog.Debug("frame scanned", "sequence", f.Sequence, "timing", timer)
	return f, nil
}

// Run scans frames until the source ends, the context is cancelled or fn
// fails. Reaching the end of the source is not an error.
func (s *Stream) Run(ctx context.Context, fn func(Frame) error) error {
	for {
		f, err := s.Next(ctx)
		if IsEnd(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
	}
}
