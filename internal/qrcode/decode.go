package qrcode

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/zbargo/internal/reedsolomon"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

// ErrNotFound is returned when a grid does not hold a readable symbol.
var ErrNotFound = errors.New("qrcode: no symbol")

// Result is one decoded QR symbol.
type Result struct {
	Data    []byte
	Version int
	Level   Level
	Mask    int
	// ECI is the last ECI designator in the stream, -1 when none was given.
	ECI int
	// GS1 is set when the stream starts with FNC1 in first position.
	GS1 bool
	// Mirrored is set when the symbol was read from the transposed grid.
	Mirrored bool
	// Corrected counts the codewords repaired by error correction.
	Corrected int
	// Sequence and Parity carry the structured append header, -1 when absent.
	Sequence, Parity int
	// Points are the symbol corners in image coordinates, clockwise from the
	// top-left module; empty for grids decoded directly.
	Points      []symbol.Point
	Orientation symbol.Orientation
}

// Decode reads a sampled module grid. With text set, byte segments are
// converted to UTF-8. A grid that fails is retried mirrored.
func Decode(g *Grid, text bool) (*Result, error) {
	res, err := decodeGrid(g, text)
	if err == nil {
		return res, nil
	}
	res, merr := decodeGrid(g.Transpose(), text)
	if merr != nil {
		return nil, err
	}
	res.Mirrored = true
	return res, nil
}

func decodeGrid(g *Grid, text bool) (*Result, error) {
	v := versionForDimension(g.Size)
	if v == 0 {
		return nil, fmt.Errorf("dimension %d: %w", g.Size, ErrNotFound)
	}
	f, ok := readFormat(g)
	if !ok {
		return nil, fmt.Errorf("format information: %w", ErrNotFound)
	}
	if v >= 7 {
		if rv := readVersion(g); rv != 0 && rv != v {
			return nil, fmt.Errorf("version information %d for dimension %d: %w", rv, g.Size, ErrNotFound)
		}
	}

	raw := readCodewords(unmask(g, f.mask), v)
	if len(raw) != totalCodewords(v) {
		return nil, fmt.Errorf("read %d codewords: %w", len(raw), ErrNotFound)
	}
	data, corrected, err := correct(raw, versions[v-1].ec[f.level])
	if err != nil {
		return nil, err
	}
	p, err := parseBitStream(data, v, text)
	if err != nil {
		return nil, err
	}
	return &Result{
		Data:      p.data,
		Version:   v,
		Level:     f.level,
		Mask:      f.mask,
		ECI:       p.eci,
		GS1:       p.gs1,
		Corrected: corrected,
		Sequence:  p.sequence,
		Parity:    p.parity,
	}, nil
}

func readFormat(g *Grid) (formatInfo, bool) {
	n := g.Size
	a, b := 0, 0
	bit := func(v *int, x, y int) {
		*v <<= 1
		if g.Get(x, y) {
			*v |= 1
		}
	}
	for x := range 6 {
		bit(&a, x, 8)
	}
	bit(&a, 7, 8)
	bit(&a, 8, 8)
	bit(&a, 8, 7)
	for y := 5; y >= 0; y-- {
		bit(&a, 8, y)
	}

	for y := n - 1; y >= n-7; y-- {
		bit(&b, 8, y)
	}
	for x := n - 8; x < n; x++ {
		bit(&b, x, 8)
	}
	return decodeFormat(a, b)
}

// readVersion returns the version encoded next to the top-right finder, or
// failing that the bottom-left one; 0 when neither reads.
func readVersion(g *Grid) int {
	n := g.Size
	tr, bl := 0, 0
	for j := 5; j >= 0; j-- {
		for i := n - 9; i >= n-11; i-- {
			tr <<= 1
			if g.Get(i, j) {
				tr |= 1
			}
			bl <<= 1
			if g.Get(j, i) {
				bl |= 1
			}
		}
	}
	if v := decodeVersion(tr); v != 0 {
		return v
	}
	return decodeVersion(bl)
}

func unmask(g *Grid, m int) *Grid {
	u := g.Clone()
	for i := range u.Size {
		for j := range u.Size {
			if masked(m, i, j) {
				u.flip(j, i)
			}
		}
	}
	return u
}

// readCodewords walks the two-column zig-zag from the bottom-right corner.
func readCodewords(g *Grid, v int) []byte {
	fn := functionMask(v)
	n := g.Size
	out := make([]byte, 0, totalCodewords(v))
	var cur byte
	nbits := 0
	up := true
	for x := n - 1; x > 0; x -= 2 {
		if x == 6 {
			x--
		}
		for k := range n {
			y := k
			if up {
				y = n - 1 - k
			}
			for c := range 2 {
				if fn.Get(x-c, y) {
					continue
				}
				cur <<= 1
				if g.Get(x-c, y) {
					cur |= 1
				}
				if nbits++; nbits == 8 {
					out = append(out, cur)
					cur, nbits = 0, 0
				}
			}
		}
		up = !up
	}
	return out
}

// correct de-interleaves the blocks, repairs each one and returns the data codewords in order.
func correct(raw []byte, ec ecBlocks) ([]byte, int, error) {
	type block struct {
		data int
		cw   []byte
	}
	var blocks []block
	maxData := 0
	for _, grp := range ec.groups {
		for range grp.count {
			blocks = append(blocks, block{data: grp.data, cw: make([]byte, 0, grp.data+ec.perBlock)})
			maxData = max(maxData, grp.data)
		}
	}
	pos := 0
	for i := range maxData {
		for k := range blocks {
			if i < blocks[k].data {
				blocks[k].cw = append(blocks[k].cw, raw[pos])
				pos++
			}
		}
	}
	for range ec.perBlock {
		for k := range blocks {
			blocks[k].cw = append(blocks[k].cw, raw[pos])
			pos++
		}
	}

	out := make([]byte, 0, ec.dataCodewords())
	corrected := 0
	for _, b := range blocks {
		n, err := reedsolomon.QRField.Decode(b.cw, ec.perBlock)
		if err != nil {
			return nil, 0, fmt.Errorf("qrcode: %w", err)
		}
		corrected += n
		out = append(out, b.cw[:b.data]...)
	}
	return out, corrected, nil
}
