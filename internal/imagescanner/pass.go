package imagescanner

import (
	"github.com/MeKo-Tech/zbargo/internal/decoder"
	"github.com/MeKo-Tech/zbargo/internal/mempool"
	"github.com/MeKo-Tech/zbargo/internal/pdf417"
	"github.com/MeKo-Tech/zbargo/internal/qrcode"
	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/MeKo-Tech/zbargo/internal/scanline"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

// hit is one candidate together with the line it was read on.
type hit struct {
	decoder.Candidate
	vertical bool
	line     int
}

// pass is the state of one Scan.
type pass struct {
	cfg *decoder.Config
	img *raster.Image
	det *scanline.Detector

	decoders []decoder.LineDecoder
	finder   *qrcode.FinderDecoder
	rows     *pdf417.RowDecoder

	vertical bool
	line     int
	lines    int
	hits     []hit
}

func newPass(cfg *decoder.Config, img *raster.Image) *pass {
	p := &pass{cfg: cfg, img: img, det: scanline.New()}
	p.decoders = decoder.New1D(cfg)
	if cfg.Enabled(symbol.QRCode) {
		p.finder = qrcode.NewFinderDecoder()
		p.decoders = append(p.decoders, p.finder)
	}
	if cfg.Enabled(symbol.PDF417) {
		p.rows = pdf417.NewRowDecoder()
		p.decoders = append(p.decoders, p.rows)
	}
	return p
}

// run scans rows every YDensity lines and columns every XDensity lines. A
// density of zero skips that direction.
func (p *pass) run() {
	if len(p.decoders) == 0 {
		return
	}
	if d := p.cfg.YDensity; d > 0 {
		for y := (d - 1) / 2; y < p.img.Height; y += d {
			p.scanLine(p.img.Row(y), false, y)
		}
	}
	if d := p.cfg.XDensity; d > 0 {
		col := mempool.GetBytes(p.img.Height)
		defer mempool.PutBytes(col)
		for x := (d - 1) / 2; x < p.img.Width; x += d {
			col = p.img.Column(x, col)
			p.scanLine(col, true, x)
		}
	}
}

func (p *pass) scanLine(samples []byte, vertical bool, line int) {
	p.vertical, p.line = vertical, line
	if p.finder != nil {
		p.finder.SetLine(vertical, line)
	}
	if p.rows != nil {
		p.rows.SetLine(vertical, line)
	}
	for _, d := range p.decoders {
		d.Reset()
	}
	p.det.Scan(samples, p.push)
	for _, d := range p.decoders {
		p.record(d.Flush())
	}
	p.lines++
}

func (p *pass) push(e decoder.Element) {
	for _, d := range p.decoders {
		if cands := d.Push(e); len(cands) > 0 {
			p.record(cands)
		}
	}
}

func (p *pass) record(cands []decoder.Candidate) {
	for _, c := range cands {
		if !p.cfg.Enabled(c.Type.Base) {
			continue
		}
		p.hits = append(p.hits, hit{Candidate: c, vertical: p.vertical, line: p.line})
	}
}
