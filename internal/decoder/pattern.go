package decoder

import (
	"math"
	"slices"
)

func sum(ws []float64) float64 {
	var t float64
	for _, w := range ws {
		t += w
	}
	return t
}

// patternVariance compares element widths with a module pattern scaled to the
// same total width. It returns the mean deviation per pixel, or +Inf when any
// single element deviates by more than maxIndividual modules.
func patternVariance(ws []float64, pattern []int, maxIndividual float64) float64 {
	total := sum(ws)
	modules := 0
	for _, p := range pattern {
		modules += p
	}
	if total <= 0 || len(ws) != len(pattern) {
		return math.Inf(1)
	}
	unit := total / float64(modules)
	limit := maxIndividual * unit
	var variance float64
	for i, w := range ws {
		d := math.Abs(w - float64(pattern[i])*unit)
		if d > limit {
			return math.Inf(1)
		}
		variance += d
	}
	return variance / total
}

// bestPattern returns the index of the pattern closest to ws, or -1 when none
// is within maxAvg.
func bestPattern(ws []float64, patterns [][]int, maxAvg, maxIndividual float64) int {
	best := -1
	bestVar := maxAvg
	for i, p := range patterns {
		if v := patternVariance(ws, p, maxIndividual); v < bestVar {
			bestVar = v
			best = i
		}
	}
	return best
}

// wideRatio is the minimum ratio between the narrowest wide and the widest narrow element.
const wideRatio = 1.3

// wideMask classifies exactly `wide` elements of ws as wide and returns them as
// a bit mask, most significant bit first.
func wideMask(ws []float64, wide int) (int, bool) {
	if wide <= 0 || wide >= len(ws) {
		return 0, false
	}
	sorted := slices.Clone(ws)
	slices.Sort(sorted)
	maxNarrow := sorted[len(sorted)-wide-1]
	minWide := sorted[len(sorted)-wide]
	if maxNarrow <= 0 || minWide < wideRatio*maxNarrow {
		return 0, false
	}
	mask := 0
	n := 0
	for i, w := range ws {
		if w >= minWide {
			mask |= 1 << (len(ws) - 1 - i)
			n++
		}
	}
	return mask, n == wide
}

// narrowWidth estimates the narrow element width from a wide mask.
func narrowWidth(ws []float64, mask int) float64 {
	var t float64
	n := 0
	for i, w := range ws {
		if mask&(1<<(len(ws)-1-i)) == 0 {
			t += w
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return t / float64(n)
}

func reversed(ws []float64) []float64 {
	out := slices.Clone(ws)
	slices.Reverse(out)
	return out
}
