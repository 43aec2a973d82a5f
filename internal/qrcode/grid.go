package qrcode

import (
	"strings"
)

// Grid is a square module matrix; true marks a dark module.
type Grid struct {
	Size int
	bits []bool
}

// NewGrid returns an all-light grid of n×n modules.
func NewGrid(n int) *Grid {
	return &Grid{Size: n, bits: make([]bool, n*n)}
}

// GridFromRows builds a grid from rows of modules, rows[y][x].
func GridFromRows(rows [][]bool) *Grid {
	g := NewGrid(len(rows))
	for y, row := range rows {
		for x := 0; x < g.Size && x < len(row); x++ {
			g.Set(x, y, row[x])
		}
	}
	return g
}

// Get reports whether the module at column x, row y is dark.
func (g *Grid) Get(x, y int) bool { return g.bits[y*g.Size+x] }

// Set marks the module at column x, row y.
func (g *Grid) Set(x, y int, dark bool) { g.bits[y*g.Size+x] = dark }

func (g *Grid) flip(x, y int) { g.bits[y*g.Size+x] = !g.bits[y*g.Size+x] }

func (g *Grid) setRegion(x, y, w, h int) {
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			g.Set(i, j, true)
		}
	}
}

// Clone returns an independent copy.
func (g *Grid) Clone() *Grid {
	c := NewGrid(g.Size)
	copy(c.bits, g.bits)
	return c
}

// Transpose returns the grid mirrored along its main diagonal.
func (g *Grid) Transpose() *Grid {
	t := NewGrid(g.Size)
	for y := range g.Size {
		for x := range g.Size {
			t.Set(y, x, g.Get(x, y))
		}
	}
	return t
}

func (g *Grid) String() string {
	var sb strings.Builder
	for y := range g.Size {
		for x := range g.Size {
			if g.Get(x, y) {
				sb.WriteString("##")
			} else {
				sb.WriteString("  ")
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
