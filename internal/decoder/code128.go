package decoder

import (
	"slices"
	"strconv"

	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

const (
	code128MaxAvgVariance        = 0.25
	code128MaxIndividualVariance = 0.7

	code128Shift  = 98
	code128CodeC  = 99
	code128CodeB  = 100
	code128CodeA  = 101
	code128FNC1   = 102
	code128FNC2   = 97
	code128FNC3   = 96
	code128FNC4A  = 101
	code128FNC4B  = 100
	code128StartA = 103
	code128StartB = 104
	code128StartC = 105
	code128Stop   = 106

	code128MaxCodes = 2*maxLengthLimit + 3
)

// GS1Prefix is the AIM symbology identifier emitted for a leading FNC1.
const GS1Prefix = "]C1"

var code128Patterns = [][]int{
	{2, 1, 2, 2, 2, 2}, {2, 2, 2, 1, 2, 2}, {2, 2, 2, 2, 2, 1}, {1, 2, 1, 2, 2, 3}, {1, 2, 1, 3, 2, 2},
	{1, 3, 1, 2, 2, 2}, {1, 2, 2, 2, 1, 3}, {1, 2, 2, 3, 1, 2}, {1, 3, 2, 2, 1, 2}, {2, 2, 1, 2, 1, 3},
	{2, 2, 1, 3, 1, 2}, {2, 3, 1, 2, 1, 2}, {1, 1, 2, 2, 3, 2}, {1, 2, 2, 1, 3, 2}, {1, 2, 2, 2, 3, 1},
	{1, 1, 3, 2, 2, 2}, {1, 2, 3, 1, 2, 2}, {1, 2, 3, 2, 2, 1}, {2, 2, 3, 2, 1, 1}, {2, 2, 1, 1, 3, 2},
	{2, 2, 1, 2, 3, 1}, {2, 1, 3, 2, 1, 2}, {2, 2, 3, 1, 1, 2}, {3, 1, 2, 1, 3, 1}, {3, 1, 1, 2, 2, 2},
	{3, 2, 1, 1, 2, 2}, {3, 2, 1, 2, 2, 1}, {3, 1, 2, 2, 1, 2}, {3, 2, 2, 1, 1, 2}, {3, 2, 2, 2, 1, 1},
	{2, 1, 2, 1, 2, 3}, {2, 1, 2, 3, 2, 1}, {2, 3, 2, 1, 2, 1}, {1, 1, 1, 3, 2, 3}, {1, 3, 1, 1, 2, 3},
	{1, 3, 1, 3, 2, 1}, {1, 1, 2, 3, 1, 3}, {1, 3, 2, 1, 1, 3}, {1, 3, 2, 3, 1, 1}, {2, 1, 1, 3, 1, 3},
	{2, 3, 1, 1, 1, 3}, {2, 3, 1, 3, 1, 1}, {1, 1, 2, 1, 3, 3}, {1, 1, 2, 3, 3, 1}, {1, 3, 2, 1, 3, 1},
	{1, 1, 3, 1, 2, 3}, {1, 1, 3, 3, 2, 1}, {1, 3, 3, 1, 2, 1}, {3, 1, 3, 1, 2, 1}, {2, 1, 1, 3, 3, 1},
	{2, 3, 1, 1, 3, 1}, {2, 1, 3, 1, 1, 3}, {2, 1, 3, 3, 1, 1}, {2, 1, 3, 1, 3, 1}, {3, 1, 1, 1, 2, 3},
	{3, 1, 1, 3, 2, 1}, {3, 3, 1, 1, 2, 1}, {3, 1, 2, 1, 1, 3}, {3, 1, 2, 3, 1, 1}, {3, 3, 2, 1, 1, 1},
	{3, 1, 4, 1, 1, 1}, {2, 2, 1, 4, 1, 1}, {4, 3, 1, 1, 1, 1}, {1, 1, 1, 2, 2, 4}, {1, 1, 1, 4, 2, 2},
	{1, 2, 1, 1, 2, 4}, {1, 2, 1, 4, 2, 1}, {1, 4, 1, 1, 2, 2}, {1, 4, 1, 2, 2, 1}, {1, 1, 2, 2, 1, 4},
	{1, 1, 2, 4, 1, 2}, {1, 2, 2, 1, 1, 4}, {1, 2, 2, 4, 1, 1}, {1, 4, 2, 1, 1, 2}, {1, 4, 2, 2, 1, 1},
	{2, 4, 1, 2, 1, 1}, {2, 2, 1, 1, 1, 4}, {4, 1, 3, 1, 1, 1}, {2, 4, 1, 1, 1, 2}, {1, 3, 4, 1, 1, 1},
	{1, 1, 1, 2, 4, 2}, {1, 2, 1, 1, 4, 2}, {1, 2, 1, 2, 4, 1}, {1, 1, 4, 2, 1, 2}, {1, 2, 4, 1, 1, 2},
	{1, 2, 4, 2, 1, 1}, {4, 1, 1, 2, 1, 2}, {4, 2, 1, 1, 1, 2}, {4, 2, 1, 2, 1, 1}, {2, 1, 2, 1, 4, 1},
	{2, 1, 4, 1, 2, 1}, {4, 1, 2, 1, 2, 1}, {1, 1, 1, 1, 4, 3}, {1, 1, 1, 3, 4, 1}, {1, 3, 1, 1, 4, 1},
	{1, 1, 4, 1, 1, 3}, {1, 1, 4, 3, 1, 1}, {4, 1, 1, 1, 1, 3}, {4, 1, 1, 3, 1, 1}, {1, 1, 3, 1, 4, 1},
	{1, 1, 4, 1, 3, 1}, {3, 1, 1, 1, 4, 1}, {4, 1, 1, 1, 3, 1},
	{2, 1, 1, 4, 1, 2}, {2, 1, 1, 2, 1, 4}, {2, 1, 1, 2, 3, 2},
}

var code128StopPattern = []int{2, 3, 3, 1, 1, 1, 2}

// Code128 decodes Code 128 with code set switching, shifts and GS1 FNC1.
type Code128 struct {
	s    Settings
	ring *ring
	ws   []float64
}

// NewCode128 returns a Code 128 decoder.
func NewCode128(s Settings) *Code128 {
	return &Code128{s: s, ring: newRing(6*code128MaxCodes + 9), ws: make([]float64, 0, 7)}
}

func (d *Code128) Symbology() symbol.Base { return symbol.Code128 }

func (d *Code128) Reset() { d.ring.reset() }

func (d *Code128) Flush() []Candidate { return nil }

func (d *Code128) Push(e Element) []Candidate {
	d.ring.push(e)
	if e.Bar || d.ring.avail() < 6*3+7+2 {
		return nil
	}
	if c, ok := d.forward(); ok {
		return []Candidate{c}
	}
	if c, ok := d.backward(); ok {
		return []Candidate{c}
	}
	return nil
}

// code decodes the 6 elements back(i+5) .. back(i).
func (d *Code128) code(i int, rev bool) int {
	ws := d.ring.widths(i, 6, d.ws)
	if rev {
		slices.Reverse(ws)
	}
	return bestPattern(ws, code128Patterns, code128MaxAvgVariance, code128MaxIndividualVariance)
}

// stop reports whether back(i+6) .. back(i) form the stop pattern and returns its module width.
func (d *Code128) stop(i int, rev bool) (float64, bool) {
	ws := d.ring.widths(i, 7, d.ws)
	if rev {
		slices.Reverse(ws)
	}
	if patternVariance(ws, code128StopPattern, code128MaxIndividualVariance) >= code128MaxAvgVariance {
		return 0, false
	}
	return sum(ws) / 13, true
}

// forward reads a symbol whose stop pattern precedes the newest element.
func (d *Code128) forward() (Candidate, bool) {
	x, ok := d.stop(1, false)
	if !ok || d.ring.back(0).Width < quietModules*x {
		return Candidate{}, false
	}
	var codes []int
	i := 8
	for {
		if d.ring.avail() < i+7 || len(codes) > code128MaxCodes {
			return Candidate{}, false
		}
		c := d.code(i, false)
		if c < 0 {
			return Candidate{}, false
		}
		codes = append(codes, c)
		if c >= code128StartA {
			break
		}
		i += 6
	}
	if d.ring.back(i+6).Width < quietModules*x {
		return Candidate{}, false
	}
	slices.Reverse(codes)
	data, ok := d.finish(codes)
	if !ok {
		return Candidate{}, false
	}
	start, end := span(d.ring, i+5, 1)
	return Candidate{Type: symbol.Type{Base: symbol.Code128}, Data: data, Start: start, End: end}, true
}

// backward reads a symbol scanned against its direction: the start character
// precedes the newest element.
func (d *Code128) backward() (Candidate, bool) {
	first := d.code(1, true)
	if first < code128StartA || first > code128StartC {
		return Candidate{}, false
	}
	codes := []int{first}
	i := 7
	for {
		if d.ring.avail() < i+8 || len(codes) > code128MaxCodes {
			return Candidate{}, false
		}
		if x, ok := d.stop(i, true); ok {
			if d.ring.back(i+7).Width < quietModules*x || d.ring.back(0).Width < quietModules*x {
				return Candidate{}, false
			}
			break
		}
		c := d.code(i, true)
		if c < 0 || c >= code128StartA {
			return Candidate{}, false
		}
		codes = append(codes, c)
		i += 6
	}
	data, ok := d.finish(codes)
	if !ok {
		return Candidate{}, false
	}
	start, end := span(d.ring, i+6, 1)
	return Candidate{Type: symbol.Type{Base: symbol.Code128}, Data: data, Start: start, End: end, Reversed: true}, true
}

// finish validates the check character of codes (start first, check last) and
// decodes the code sets.
func (d *Code128) finish(codes []int) ([]byte, bool) {
	if len(codes) < 3 || codes[0] < code128StartA {
		return nil, false
	}
	check := codes[len(codes)-1]
	total := codes[0]
	for i, c := range codes[1 : len(codes)-1] {
		if c >= code128StartA {
			return nil, false
		}
		total += (i + 1) * c
	}
	if total%103 != check {
		return nil, false
	}
	data, ok := code128Text(codes[0], codes[1:len(codes)-1])
	if !ok || len(data) == 0 || !d.s.LengthOK(len(data)) {
		return nil, false
	}
	return data, true
}

func code128Text(start int, codes []int) ([]byte, bool) {
	var out []byte
	var set int
	switch start {
	case code128StartA:
		set = code128CodeA
	case code128StartC:
		set = code128CodeC
	default:
		set = code128CodeB
	}
	shifted := false
	upper, shiftUpper := false, false
	emit := func(ch byte) {
		if shiftUpper != upper {
			ch += 128
		}
		shiftUpper = false
		out = append(out, ch)
	}
	fnc1 := func() {
		if len(out) == 0 {
			out = append(out, GS1Prefix...)
		} else {
			out = append(out, 0x1d)
		}
	}
	fnc4 := func() {
		switch {
		case !upper && shiftUpper:
			upper, shiftUpper = true, false
		case upper && shiftUpper:
			upper, shiftUpper = false, false
		default:
			shiftUpper = true
		}
	}

	for _, c := range codes {
		cur := set
		if shifted {
			if set == code128CodeA {
				cur = code128CodeB
			} else {
				cur = code128CodeA
			}
			shifted = false
		}
		switch cur {
		case code128CodeA, code128CodeB:
			switch {
			case cur == code128CodeA && c < 64:
				emit(byte(' ' + c))
			case cur == code128CodeA && c < 96:
				emit(byte(c - 64))
			case cur == code128CodeB && c < 96:
				emit(byte(' ' + c))
			case c == code128FNC1:
				fnc1()
			case c == code128FNC2, c == code128FNC3:
			case cur == code128CodeA && c == code128FNC4A, cur == code128CodeB && c == code128FNC4B:
				fnc4()
			case c == code128Shift:
				shifted = true
			case c == code128CodeA, c == code128CodeB, c == code128CodeC:
				set = c
			default:
				return nil, false
			}
		case code128CodeC:
			switch {
			case c < 100:
				if c < 10 {
					out = append(out, '0')
				}
				out = strconv.AppendInt(out, int64(c), 10)
			case c == code128FNC1:
				fnc1()
			case c == code128CodeA, c == code128CodeB:
				set = c
			default:
				return nil, false
			}
		}
	}
	return out, true
}
