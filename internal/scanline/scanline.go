// Package scanline turns one row or column of gray samples into the bar and
// space elements consumed by the symbology decoders.
package scanline

import (
	"github.com/MeKo-Tech/zbargo/internal/decoder"
	"github.com/MeKo-Tech/zbargo/internal/mempool"
)

// Defaults suited to printed codes between one and twenty pixels per module.
const (
	DefaultWindow      = 48
	DefaultMinContrast = 24

	// elements never get narrower than this, in pixels
	minWidth = 0.05
)

// Detector finds edges with an adaptive threshold: the midpoint of the local
// minimum and maximum over a sliding window. Where the local contrast stays
// below MinContrast the current bar/space state is held.
//
// A Detector reuses internal scratch space and must not be shared between goroutines.
type Detector struct {
	Window      int
	MinContrast int

	minQ, maxQ []int
}

// New returns a Detector with the default window and contrast gate.
func New() *Detector {
	return &Detector{Window: DefaultWindow, MinContrast: DefaultMinContrast}
}

// Scan walks samples and calls emit for every element in line order. The
// trailing element is emitted at the end of the line.
func (d *Detector) Scan(samples []byte, emit func(decoder.Element)) {
	n := len(samples)
	if n == 0 {
		return
	}
	thr := mempool.GetFloat64(n)
	contrast := mempool.GetFloat64(n)
	defer mempool.PutFloat64(thr)
	defer mempool.PutFloat64(contrast)
	d.envelope(samples, thr, contrast)

	gate := float64(d.MinContrast)
	bar := contrast[0] >= gate && float64(samples[0]) < thr[0]
	start := 0.0
	for i := 1; i < n; i++ {
		if contrast[i] < gate {
			continue
		}
		dark := float64(samples[i]) < thr[i]
		if dark == bar {
			continue
		}
		pos := edge(samples[i-1], samples[i], (thr[i-1]+thr[i])/2, i)
		if pos < start+minWidth {
			pos = start + minWidth
		}
		emit(decoder.Element{Width: pos - start, Start: start, Bar: bar})
		start = pos
		bar = dark
	}
	if end := float64(n); end > start {
		emit(decoder.Element{Width: end - start, Start: start, Bar: bar})
	}
}

// Elements collects the elements of one line.
func (d *Detector) Elements(samples []byte) []decoder.Element {
	var out []decoder.Element
	d.Scan(samples, func(e decoder.Element) { out = append(out, e) })
	return out
}

// edge interpolates where the signal crosses t between the centers of pixels i-1 and i.
func edge(a, b byte, t float64, i int) float64 {
	frac := 0.5
	if a != b {
		frac = (float64(a) - t) / (float64(a) - float64(b))
	}
	frac = min(max(frac, 0), 1)
	return float64(i-1) + 0.5 + frac
}

// envelope fills thr with the local min/max midpoint and contrast with their
// difference, over a window centered on each sample.
func (d *Detector) envelope(s []byte, thr, contrast []float64) {
	n := len(s)
	h := max(d.Window/2, 1)
	minQ, maxQ := d.minQ[:0], d.maxQ[:0]
	mh, xh := 0, 0
	for j := 0; j < n+h; j++ {
		if j < n {
			for len(minQ) > mh && s[minQ[len(minQ)-1]] >= s[j] {
				minQ = minQ[:len(minQ)-1]
			}
			minQ = append(minQ, j)
			for len(maxQ) > xh && s[maxQ[len(maxQ)-1]] <= s[j] {
				maxQ = maxQ[:len(maxQ)-1]
			}
			maxQ = append(maxQ, j)
		}
		i := j - h
		if i < 0 {
			continue
		}
		for minQ[mh] < i-h {
			mh++
		}
		for maxQ[xh] < i-h {
			xh++
		}
		lo, hi := float64(s[minQ[mh]]), float64(s[maxQ[xh]])
		thr[i] = (lo + hi) / 2
		contrast[i] = hi - lo
	}
	d.minQ, d.maxQ = minQ[:0], maxQ[:0]
}
