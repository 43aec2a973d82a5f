package pdf417

import (
	"math"
	"slices"

	"github.com/MeKo-Tech/zbargo/internal/decoder"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

const (
	codewordModules = 17
	maxColumns      = 30
	maxRows         = 90
	quietModules    = 1.5
)

var (
	startPattern = []float64{8, 1, 1, 1, 1, 1, 1, 3}
	stopPattern  = []float64{7, 1, 1, 3, 1, 1, 1, 2, 1}
)

// lookup maps a 17 bit pattern onto cluster<<10 | value.
var lookup = make(map[uint32]int, 3*numValues)

func init() {
	for k := range patterns {
		for v, pat := range patterns[k] {
			lookup[pat] = k<<10 | v
		}
	}
}

// Observation is one row of a PDF417 symbol read along a scan-line.
type Observation struct {
	Vertical bool
	Line     int
	// Reversed is set when the row was read against the scan direction.
	Reversed bool
	// Cluster is 0, 1 or 2; rows cycle through the clusters.
	Cluster int
	// Left and Right are the row indicator values, -1 when unreadable.
	Left, Right int
	// Data holds the data column values, -1 where a codeword did not read.
	Data []int
	// Start and End bound the row along the scan-line, in pixels.
	Start, End float64
}

// Row returns the row number encoded by the row indicators, or -1.
func (o Observation) Row() int {
	switch {
	case o.Left >= 0:
		return 3*(o.Left/30) + o.Cluster
	case o.Right >= 0:
		return 3*(o.Right/30) + o.Cluster
	}
	return -1
}

// RowDecoder reads PDF417 rows from complete scan-lines in either direction.
// It never yields candidates; observations feed an Assembler.
type RowDecoder struct {
	vertical bool
	line     int
	els      []decoder.Element
	obs      []Observation
}

// NewRowDecoder returns an empty RowDecoder.
func NewRowDecoder() *RowDecoder {
	return &RowDecoder{els: make([]decoder.Element, 0, 512)}
}

func (d *RowDecoder) Symbology() symbol.Base { return symbol.PDF417 }

// SetLine names the line fed next.
func (d *RowDecoder) SetLine(vertical bool, line int) {
	d.vertical, d.line = vertical, line
}

func (d *RowDecoder) Reset() { d.els = d.els[:0] }

func (d *RowDecoder) Push(e decoder.Element) []decoder.Candidate {
	d.els = append(d.els, e)
	return nil
}

// Flush reads the buffered line forwards, then backwards.
func (d *RowDecoder) Flush() []decoder.Candidate {
	defer func() { d.els = d.els[:0] }()
	n := len(d.els)
	if n < len(startPattern)+len(stopPattern)+24 {
		return nil
	}
	widths := make([]float64, n)
	bars := make([]bool, n)
	for i, e := range d.els {
		widths[i], bars[i] = e.Width, e.Bar
	}
	first, last, o, ok := readRow(widths, bars)
	if !ok {
		slices.Reverse(widths)
		slices.Reverse(bars)
		if first, last, o, ok = readRow(widths, bars); ok {
			first, last = n-1-last, n-1-first
			o.Reversed = true
		}
	}
	if ok {
		o.Vertical, o.Line = d.vertical, d.line
		o.Start, o.End = d.els[first].Start, d.els[last].End()
		d.obs = append(d.obs, o)
	}
	return nil
}

// Observations returns the rows read since the last Clear.
func (d *RowDecoder) Observations() []Observation { return d.obs }

// Clear drops the recorded observations.
func (d *RowDecoder) Clear() { d.obs = d.obs[:0] }

// matches reports whether ws follows pattern within a quarter module per element.
func matches(ws []float64, pattern []float64) (float64, bool) {
	total, modules := 0.0, 0.0
	for i := range pattern {
		total += ws[i]
		modules += pattern[i]
	}
	u := total / modules
	for i, p := range pattern {
		if math.Abs(ws[i]-p*u) > 0.5*u+0.1*p*u {
			return 0, false
		}
	}
	return u, true
}

// quiet reports whether element i is a space of at least the quiet zone, or
// lies beyond the line.
func quiet(ws []float64, i int, u float64) bool {
	return i < 0 || i >= len(ws) || ws[i] >= quietModules*u
}

// readRow finds a start pattern on a bar and reads codewords up to the stop
// pattern. It returns the indices of the first and last element of the row.
func readRow(ws []float64, bars []bool) (int, int, Observation, bool) {
	for i := 0; i+len(startPattern) <= len(ws); i++ {
		if !bars[i] {
			continue
		}
		u, ok := matches(ws[i:], startPattern)
		if !ok || !quiet(ws, i-1, u) {
			continue
		}
		if last, o, ok := readCodewords(ws, i+len(startPattern)); ok {
			return i, last, o, true
		}
	}
	return 0, 0, Observation{}, false
}

func readCodewords(ws []float64, j int) (int, Observation, bool) {
	var cws []int
	for len(cws) <= maxColumns+2 {
		if end := j + len(stopPattern); end <= len(ws) {
			if u, ok := matches(ws[j:], stopPattern); ok && quiet(ws, end, u) {
				o, ok := rowFrom(cws)
				return end - 1, o, ok
			}
		}
		if j+8 > len(ws) {
			break
		}
		cws = append(cws, decodeCodeword(ws[j:j+8]))
		j += 8
	}
	return 0, Observation{}, false
}

// rowFrom splits codewords into row indicators and data of one cluster.
func rowFrom(cws []int) (Observation, bool) {
	if len(cws) < 3 {
		return Observation{}, false
	}
	cluster := -1
	if cws[0] >= 0 {
		cluster = cws[0] >> 10
	} else {
		var votes [3]int
		for _, c := range cws {
			if c >= 0 {
				votes[c>>10]++
			}
		}
		best := 0
		for k := range votes {
			if votes[k] > best {
				cluster, best = k, votes[k]
			}
		}
	}
	if cluster < 0 {
		return Observation{}, false
	}
	value := func(c int) int {
		if c < 0 || c>>10 != cluster {
			return -1
		}
		return c & 0x3ff
	}
	o := Observation{
		Cluster: cluster,
		Left:    value(cws[0]),
		Right:   value(cws[len(cws)-1]),
		Data:    make([]int, len(cws)-2),
	}
	for i, c := range cws[1 : len(cws)-1] {
		o.Data[i] = value(c)
	}
	return o, true
}

// decodeCodeword resolves eight element widths into cluster<<10 | value, or -1.
func decodeCodeword(ws []float64) int {
	total := 0.0
	for _, w := range ws {
		total += w
	}
	if total <= 0 {
		return -1
	}
	// sample the middle of every module
	var counts [8]int
	edge, k := ws[0], 0
	for m := range codewordModules {
		pos := (float64(m) + 0.5) * total / codewordModules
		for pos > edge && k < 7 {
			k++
			edge += ws[k]
		}
		counts[k]++
	}
	if c, ok := lookup[patternBits(counts)]; ok {
		return c
	}
	// fall back to rounding each width
	u := total / codewordModules
	sum := 0
	for i, w := range ws {
		counts[i] = max(1, min(6, int(math.Round(w/u))))
		sum += counts[i]
	}
	if sum != codewordModules {
		return -1
	}
	if c, ok := lookup[patternBits(counts)]; ok {
		return c
	}
	return -1
}

func patternBits(counts [8]int) uint32 {
	var p uint32
	for i, n := range counts {
		for range n {
			p <<= 1
			if i%2 == 0 {
				p |= 1
			}
		}
	}
	return p
}
