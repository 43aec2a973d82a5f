package pdf417

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

// ErrNotFound is returned when the observed rows do not describe a symbol.
var ErrNotFound = errors.New("pdf417: no symbol")

// Result is a decoded PDF417 symbol.
type Result struct {
	Data          []byte
	Rows, Columns int
	ECLevel       int
	Corrected     int
	ECI           int
	Macro         *Macro
	// Points are the corners of the rows that were read, clockwise from the
	// start of the first row.
	Points []symbol.Point
}

type tally map[int]int

func (t tally) add(v int) { t[v]++ }

// best returns the most voted value, preferring the larger one on ties.
func (t tally) best() (int, bool) {
	v, n := 0, 0
	for k, c := range t {
		if c > n || c == n && k > v {
			v, n = k, c
		}
	}
	return v, n > 0
}

// Assembler accumulates row observations of one symbol and decodes it once
// enough rows were seen.
type Assembler struct {
	obs []Observation
}

// Add records observations.
func (a *Assembler) Add(obs ...Observation) { a.obs = append(a.obs, obs...) }

// Len returns the number of recorded observations.
func (a *Assembler) Len() int { return len(a.obs) }

// Reset drops all observations.
func (a *Assembler) Reset() { a.obs = a.obs[:0] }

type metadata struct {
	rows, columns, ecLevel int
}

// metadata votes the row indicators into the symbol dimensions.
func (a *Assembler) metadata() (metadata, error) {
	upper, lower, cols, level := tally{}, tally{}, tally{}, tally{}
	seen := 0
	for _, o := range a.obs {
		cols.add(len(o.Data))
		if r := o.Row(); r >= 0 {
			seen = max(seen, r+1)
		}
		// left indicator, then right indicator
		for side, v := range [2]int{o.Left, o.Right} {
			if v < 0 {
				continue
			}
			x := v % 30
			switch (o.Cluster + side*2) % 3 {
			case 0:
				upper.add(x)
			case 1:
				level.add(x / 3)
				lower.add(x % 3)
			case 2:
				cols.add(x + 1)
			}
		}
	}
	var m metadata
	up, ok1 := upper.best()
	lo, ok2 := lower.best()
	c, ok3 := cols.best()
	l, ok4 := level.best()
	if !ok3 || !ok4 || !ok1 && !ok2 {
		return m, fmt.Errorf("no row indicators: %w", ErrNotFound)
	}
	m.rows = max(3*up+lo+1, seen)
	m.columns, m.ecLevel = c, l
	if m.columns < 1 || m.columns > maxColumns || m.rows > maxRows {
		return m, fmt.Errorf("%d rows x %d columns: %w", m.rows, m.columns, ErrNotFound)
	}
	return m, nil
}

// Decode votes every codeword position across the observations, corrects
// errors treating unseen positions as erasures and parses the data.
func (a *Assembler) Decode(text bool) (*Result, error) {
	m, err := a.metadata()
	if err != nil {
		return nil, err
	}
	n := m.rows * m.columns
	ecLen := 2 << m.ecLevel
	if n <= ecLen {
		return nil, fmt.Errorf("%d codewords for %d error correction: %w", n, ecLen, ErrNotFound)
	}
	votes := make([]tally, n)
	for _, o := range a.obs {
		r := o.Row()
		if r < 0 || r >= m.rows || len(o.Data) != m.columns {
			continue
		}
		for c, v := range o.Data {
			if v < 0 {
				continue
			}
			i := r*m.columns + c
			if votes[i] == nil {
				votes[i] = tally{}
			}
			votes[i].add(v)
		}
	}
	cw := make([]int, n)
	var erasures []int
	for i, t := range votes {
		v, ok := t.best()
		if !ok {
			erasures = append(erasures, i)
			continue
		}
		cw[i] = v
	}
	if len(erasures) > ecLen-2 {
		return nil, fmt.Errorf("%d of %d codewords unseen: %w", len(erasures), n, ErrUncorrectable)
	}
	corrected, err := correct(cw, ecLen, erasures)
	if err != nil {
		return nil, err
	}
	length := cw[0]
	if length < 1 || length > n-ecLen {
		return nil, fmt.Errorf("length descriptor %d: %w", length, ErrFormat)
	}
	msg, err := parseCodewords(cw[:length], text)
	if err != nil {
		return nil, err
	}
	slog.Debug("pdf417 decoded", "rows", m.rows, "columns", m.columns,
		"ecLevel", m.ecLevel, "erasures", len(erasures), "corrected", corrected)
	return &Result{
		Data:      msg.data,
		Rows:      m.rows,
		Columns:   m.columns,
		ECLevel:   m.ecLevel,
		Corrected: corrected,
		ECI:       msg.eci,
		Macro:     msg.macro,
		Points:    a.corners(),
	}, nil
}

// corners spans the first and last observed lines.
func (a *Assembler) corners() []symbol.Point {
	first, last := a.obs[0], a.obs[0]
	for _, o := range a.obs[1:] {
		if o.Line < first.Line {
			first = o
		}
		if o.Line > last.Line {
			last = o
		}
	}
	pt := func(o Observation, along float64) symbol.Point {
		p := symbol.Point{X: int(math.Round(along)), Y: o.Line}
		if o.Vertical {
			p.X, p.Y = o.Line, p.X
		}
		return p
	}
	return []symbol.Point{pt(first, first.Start), pt(first, first.End), pt(last, last.End), pt(last, last.Start)}
}
