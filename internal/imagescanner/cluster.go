package imagescanner

import (
	"bytes"
	"log/slog"
	"math"

	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

// proximity is the slack, in pixels, allowed between the spans of one symbol
// on neighbouring lines.
const proximity = 8

// group collects the hits of one symbol in one scan direction.
type group struct {
	first, last hit
	quality     int
	reversed    int
}

func (g *group) accepts(h hit, gap int) bool {
	l := g.last
	if h.vertical != l.vertical || h.Type != l.Type || !bytes.Equal(h.Data, l.Data) {
		return false
	}
	if h.line <= l.line || h.line-l.line > gap {
		return false
	}
	return h.Start <= l.End+proximity && h.End >= l.Start-proximity
}

func (g *group) orientation() symbol.Orientation {
	rev := 2*g.reversed > g.quality
	switch {
	case !g.first.vertical && !rev:
		return symbol.OrientUp
	case !g.first.vertical:
		return symbol.OrientDown
	case !rev:
		return symbol.OrientRight
	}
	return symbol.OrientLeft
}

// points traces the symbol from the start of its first line to the start of its last.
func (g *group) points() []symbol.Point {
	pt := func(h hit, along float64) symbol.Point {
		p := symbol.Point{X: int(math.Round(along)), Y: h.line}
		if h.vertical {
			p.X, p.Y = h.line, p.X
		}
		return p
	}
	if g.first.line == g.last.line {
		return []symbol.Point{pt(g.first, g.first.Start), pt(g.first, g.first.End)}
	}
	return []symbol.Point{
		pt(g.first, g.first.Start), pt(g.first, g.first.End),
		pt(g.last, g.last.End), pt(g.last, g.last.Start),
	}
}

// groupHits clusters hits with the same type and data on nearby lines whose
// spans overlap.
func groupHits(hits []hit, rowGap, colGap int) []*group {
	var out []*group
	for _, h := range hits {
		gap := rowGap
		if h.vertical {
			gap = colGap
		}
		var g *group
		for _, c := range out {
			if c.accepts(h, gap) {
				g = c
				break
			}
		}
		if g == nil {
			g = &group{first: h}
			out = append(out, g)
		}
		g.last = h
		g.quality++
		if h.Reversed {
			g.reversed++
		}
	}
	return out
}

// linearSymbols turns the one-dimensional hits into symbols. Groups of the
// same symbol found in both directions are merged when their bounds touch.
func (p *pass) linearSymbols() []*symbol.Symbol {
	var syms []*symbol.Symbol
	for _, g := range groupHits(p.hits, lineGap(p.cfg.YDensity), lineGap(p.cfg.XDensity)) {
		sym := &symbol.Symbol{
			Type:        g.first.Type,
			Data:        g.first.Data,
			Quality:     g.quality,
			Points:      g.points(),
			Orientation: g.orientation(),
		}
		if merged := mergeInto(syms, sym); !merged {
			syms = append(syms, sym)
		}
	}

	var out []*symbol.Symbol
	for _, sym := range syms {
		kept := p.gate(sym)
		if len(kept) == 0 {
			slog.Debug("symbol below uncertainty", "symbology", sym.Type, "quality", sym.Quality)
		}
		out = append(out, kept...)
	}
	return out
}

// mergeInto folds sym into an equal symbol whose location overlaps.
func mergeInto(syms []*symbol.Symbol, sym *symbol.Symbol) bool {
	box := sym.Bounds().Inset(-proximity)
	for _, s := range syms {
		if s.Type != sym.Type || !bytes.Equal(s.Data, sym.Data) {
			continue
		}
		if !s.Bounds().Inset(-proximity).Overlaps(box) {
			continue
		}
		if sym.Quality > s.Quality {
			s.Orientation = sym.Orientation
		}
		s.Quality += sym.Quality
		s.Points = append(s.Points, sym.Points...)
		return true
	}
	return false
}

// lineGap is how far apart, in pixels, two scanned lines of one symbol may be.
func lineGap(density int) int {
	return max(3*density, 3)
}
