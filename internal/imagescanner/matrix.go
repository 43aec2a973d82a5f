package imagescanner

import (
	"log/slog"

	"github.com/MeKo-Tech/zbargo/internal/pdf417"
	"github.com/MeKo-Tech/zbargo/internal/qrcode"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

// matrixSymbols resolves QR Code and PDF417 from the state the pass collected.
func (p *pass) matrixSymbols() []*symbol.Symbol {
	var out []*symbol.Symbol
	if p.finder != nil {
		st := p.cfg.Settings(symbol.QRCode)
		for _, res := range qrcode.Detect(p.img, p.finder.Segments(), st.ASCII) {
			sym := &symbol.Symbol{
				Type:        symbol.Type{Base: symbol.QRCode},
				Data:        res.Data,
				Quality:     1,
				Points:      res.Points,
				Orientation: res.Orientation,
			}
			out = append(out, p.gate(sym)...)
		}
	}
	if p.rows != nil {
		st := p.cfg.Settings(symbol.PDF417)
		for _, obs := range groupRows(p.rows.Observations(), lineGap(p.cfg.YDensity), lineGap(p.cfg.XDensity)) {
			var a pdf417.Assembler
			a.Add(obs...)
			res, err := a.Decode(st.ASCII)
			if err != nil {
				slog.Debug("pdf417 rows rejected", "rows", len(obs), "error", err)
				continue
			}
			sym := &symbol.Symbol{
				Type:        symbol.Type{Base: symbol.PDF417},
				Data:        res.Data,
				Quality:     len(obs),
				Points:      res.Points,
				Orientation: rowOrientation(obs),
			}
			out = append(out, p.gate(sym)...)
		}
	}
	return out
}

func (p *pass) gate(sym *symbol.Symbol) []*symbol.Symbol {
	st := p.cfg.Settings(sym.Type.Base)
	if sym.Quality <= st.Uncertainty {
		return nil
	}
	if !st.Position {
		sym.Points = nil
	}
	return []*symbol.Symbol{sym}
}

// groupRows splits PDF417 row observations into symbols: same direction,
// nearby lines and overlapping spans.
func groupRows(obs []pdf417.Observation, rowGap, colGap int) [][]pdf417.Observation {
	var groups [][]pdf417.Observation
	for _, o := range obs {
		gap := rowGap
		if o.Vertical {
			gap = colGap
		}
		// rows of one symbol may be separated by lines that did not read
		gap *= 4
		placed := false
		for i, g := range groups {
			l := g[len(g)-1]
			if l.Vertical != o.Vertical || o.Line-l.Line > gap {
				continue
			}
			if o.Start <= l.End+proximity && o.End >= l.Start-proximity {
				groups[i] = append(g, o)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []pdf417.Observation{o})
		}
	}
	return groups
}

func rowOrientation(obs []pdf417.Observation) symbol.Orientation {
	rev := 0
	for _, o := range obs {
		if o.Reversed {
			rev++
		}
	}
	backwards := 2*rev > len(obs)
	switch {
	case !obs[0].Vertical && !backwards:
		return symbol.OrientUp
	case !obs[0].Vertical:
		return symbol.OrientDown
	case !backwards:
		return symbol.OrientRight
	}
	return symbol.OrientLeft
}
