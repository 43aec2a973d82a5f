// Package imagescanner drives the scan-line pass over an image: it feeds
// every row and column through the enabled decoders, merges the per-line
// candidates into symbols and resolves the two-dimensional symbologies.
package imagescanner

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/MeKo-Tech/zbargo/internal/cache"
	"github.com/MeKo-Tech/zbargo/internal/decoder"
	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

// Stats accumulates counters over the lifetime of a Scanner.
type Stats struct {
	Scans      int
	Lines      int
	Candidates int
	Symbols    map[symbol.Base]int
}

// Scanner scans images with its own configuration and optional result cache.
//
// Configuration may change between scans from any goroutine; each Scan works
// on a snapshot. With the cache enabled, scans on one Scanner form a single
// frame sequence and should come from one pipeline.
type Scanner struct {
	mu  sync.RWMutex
	cfg *decoder.Config

	state      sync.Mutex // guards cache and stats
	cache      *cache.Cache
	evictAfter int
	stats      Stats
}

// New returns a Scanner with the default configuration and no cache.
func New() *Scanner {
	return NewWithConfig(decoder.DefaultConfig())
}

// NewWithConfig returns a Scanner using a copy of cfg.
func NewWithConfig(cfg *decoder.Config) *Scanner {
	return &Scanner{cfg: cfg.Clone(), stats: Stats{Symbols: map[symbol.Base]int{}}}
}

// SetConfig changes one option; symbol.None addresses every symbology.
// The change applies from the next Scan on.
func (s *Scanner) SetConfig(base symbol.Base, opt decoder.Option, val int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cfg.Set(base, opt, val); err != nil {
		return err
	}
	slog.Debug("scanner option set", "symbology", base, "option", opt, "value", val)
	return nil
}

// Config returns a snapshot of the current configuration.
func (s *Scanner) Config() *decoder.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// EnableCache switches inter-frame result caching on or off. Switching it
// on starts a fresh frame sequence.
func (s *Scanner) EnableCache(on bool) {
	s.state.Lock()
	defer s.state.Unlock()
	if on {
		s.cache = cache.New()
		if s.evictAfter > 0 {
			s.cache.EvictAfter = s.evictAfter
		}
	} else {
		s.cache = nil
	}
}

// SetCacheWindow sets how many frames a cached symbol may go unseen before
// it is forgotten. Values below one restore the default.
func (s *Scanner) SetCacheWindow(frames int) {
	s.state.Lock()
	defer s.state.Unlock()
	if frames < 1 {
		frames = cache.DefaultEvictAfter
	}
	s.evictAfter = frames
	if s.cache != nil {
		s.cache.EvictAfter = frames
	}
}

// CacheEnabled reports whether results pass through the inter-frame cache.
func (s *Scanner) CacheEnabled() bool {
	s.state.Lock()
	defer s.state.Unlock()
	return s.cache != nil
}

// Stats returns a copy of the accumulated counters.
func (s *Scanner) Stats() Stats {
	s.state.Lock()
	defer s.state.Unlock()
	out := s.stats
	out.Symbols = maps.Clone(s.stats.Symbols)
	return out
}

// Scan decodes every enabled symbology in a gray image. No symbols is not
// an error; the returned set is then empty.
func (s *Scanner) Scan(img *raster.Image) (*symbol.Set, error) {
	if img == nil {
		return nil, &raster.FormatError{Op: "scan", Err: raster.ErrUnsupportedFormat}
	}
	if !img.Format.IsGray() {
		return nil, &raster.FormatError{Op: "scan", From: img.Format, Err: raster.ErrUnsupportedFormat}
	}
	cfg := s.Config()

	p := newPass(cfg, img)
	p.run()
	set := symbol.NewSet(p.linearSymbols()...)
	for _, sym := range p.matrixSymbols() {
		set.Add(sym)
	}

	s.state.Lock()
	defer s.state.Unlock()
	s.stats.Scans++
	s.stats.Lines += p.lines
	s.stats.Candidates += len(p.hits)
	for sym := range set.All() {
		s.stats.Symbols[sym.Type.Base]++
	}
	if s.cache != nil {
		set = s.cache.Observe(set)
	}
	slog.Debug("image scanned", "width", img.Width, "height", img.Height, "sequence", img.Sequence,
		"lines", p.lines, "candidates", len(p.hits), "symbols", set.Len())
	return set, nil
}
