package decoder

import (
	"slices"

	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

// narrow/wide masks of the five elements encoding each digit, most significant first
var i25Encodings = [10]int{0x06, 0x11, 0x09, 0x18, 0x05, 0x14, 0x0C, 0x03, 0x12, 0x0A}

var i25StartPattern = []int{1, 1, 1, 1}

const i25MaxPairs = maxLengthLimit/2 + 1

// I25 decodes Interleaved 2 of 5.
type I25 struct {
	s    Settings
	ring *ring
	ws   []float64
}

// NewI25 returns an Interleaved 2 of 5 decoder.
func NewI25(s Settings) *I25 {
	return &I25{s: s, ring: newRing(10*i25MaxPairs + 9), ws: make([]float64, 0, 10)}
}

func (d *I25) Symbology() symbol.Base { return symbol.I25 }

func (d *I25) Reset() { d.ring.reset() }

func (d *I25) Flush() []Candidate { return nil }

func (d *I25) Push(e Element) []Candidate {
	d.ring.push(e)
	if e.Bar || d.ring.avail() < 4+10+3+2 {
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

// start reports whether back(i+3) .. back(i) are four narrow elements of width x.
func (d *I25) start(i int, x float64) bool {
	ws := d.ring.widths(i, 4, d.ws)
	t := sum(ws)
	if t < 2*x || t > 6*x {
		return false
	}
	return patternVariance(ws, i25StartPattern, 0.5) < 0.3
}

// pair decodes two digits from ten elements in reading order.
func i25Pair(ws []float64) (byte, byte, bool) {
	var bars, spaces [5]float64
	for k := range 5 {
		bars[k] = ws[2*k]
		spaces[k] = ws[2*k+1]
	}
	mb, ok1 := wideMask(bars[:], 2)
	ms, ok2 := wideMask(spaces[:], 2)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	d1 := slices.Index(i25Encodings[:], mb)
	d2 := slices.Index(i25Encodings[:], ms)
	if d1 < 0 || d2 < 0 {
		return 0, 0, false
	}
	return byte('0' + d1), byte('0' + d2), true
}

func (d *I25) forward() (Candidate, bool) {
	ws := d.ring.widths(1, 3, d.ws)
	mask, ok := wideMask(ws, 1)
	if !ok || mask != 0b100 {
		return Candidate{}, false
	}
	x := narrowWidth(ws, mask)
	if d.ring.back(0).Width < quietModules*x {
		return Candidate{}, false
	}
	var pairs [][2]byte
	i := 4
	for {
		if d.ring.avail() >= i+5 && d.start(i, x) && d.ring.back(i+4).Width >= quietModules*x {
			break
		}
		if d.ring.avail() < i+10 || len(pairs) > i25MaxPairs {
			return Candidate{}, false
		}
		a, b, ok := i25Pair(d.ring.widths(i, 10, d.ws))
		if !ok {
			return Candidate{}, false
		}
		pairs = append(pairs, [2]byte{a, b})
		i += 10
	}
	slices.Reverse(pairs)
	data, ok := d.finish(pairs)
	if !ok {
		return Candidate{}, false
	}
	start, end := span(d.ring, i+3, 1)
	return Candidate{Type: symbol.Type{Base: symbol.I25}, Data: data, Start: start, End: end}, true
}

func (d *I25) backward() (Candidate, bool) {
	ws := d.ring.widths(1, 4, d.ws)
	x := sum(ws) / 4
	if !d.start(1, x) || d.ring.back(0).Width < quietModules*x {
		return Candidate{}, false
	}
	var pairs [][2]byte
	i := 5
	for {
		if d.ring.avail() < i+4 || len(pairs) > i25MaxPairs {
			return Candidate{}, false
		}
		stop := d.ring.widths(i, 3, d.ws)
		if mask, ok := wideMask(stop, 1); ok && mask == 0b001 && len(pairs) > 0 && d.ring.back(i+3).Width >= quietModules*x {
			break
		}
		if d.ring.avail() < i+10 {
			return Candidate{}, false
		}
		a, b, ok := i25Pair(reversed(d.ring.widths(i, 10, d.ws)))
		if !ok {
			return Candidate{}, false
		}
		pairs = append(pairs, [2]byte{a, b})
		i += 10
	}
	data, ok := d.finish(pairs)
	if !ok {
		return Candidate{}, false
	}
	start, end := span(d.ring, i+2, 1)
	return Candidate{Type: symbol.Type{Base: symbol.I25}, Data: data, Start: start, End: end, Reversed: true}, true
}

func (d *I25) finish(pairs [][2]byte) ([]byte, bool) {
	if len(pairs) == 0 {
		return nil, false
	}
	data := make([]byte, 0, 2*len(pairs))
	for _, p := range pairs {
		data = append(data, p[0], p[1])
	}
	if d.s.AddCheck {
		if !eanChecksumOK(data) {
			return nil, false
		}
		if !d.s.EmitCheck {
			data = data[:len(data)-1]
		}
	}
	if !d.s.LengthOK(len(data)) {
		return nil, false
	}
	return data, true
}
