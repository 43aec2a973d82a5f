package qrcode

import "math/bits"

const formatMask = 0x5412

// formatInfo holds the error correction level and data mask of a symbol.
type formatInfo struct {
	level Level
	mask  int
}

// formatCodes are the 32 masked 15 bit format information words, indexed by
// their 5 data bits.
var formatCodes [32]int

func init() {
	for d := range formatCodes {
		formatCodes[d] = (d<<10 | bchRemainder(d, 0x537, 11)) ^ formatMask
	}
}

// decodeFormat returns the format whose code is nearest to either copy,
// allowing up to three bit errors.
func decodeFormat(a, b int) (formatInfo, bool) {
	best, bestDiff := -1, 4
	for d, code := range formatCodes {
		for _, raw := range [2]int{a, b} {
			if diff := bits.OnesCount(uint(raw ^ code)); diff < bestDiff {
				best, bestDiff = d, diff
			}
		}
	}
	if best < 0 {
		return formatInfo{}, false
	}
	return formatInfo{level: levelForBits[best>>3], mask: best & 7}, true
}

// masked reports whether data mask m inverts the module at row i, column j.
func masked(m, i, j int) bool {
	switch m {
	case 0:
		return (i+j)%2 == 0
	case 1:
		return i%2 == 0
	case 2:
		return j%3 == 0
	case 3:
		return (i+j)%3 == 0
	case 4:
		return (i/2+j/3)%2 == 0
	case 5:
		return (i*j)%6 == 0
	case 6:
		return (i*j)%6 < 3
	default:
		return (i+j+(i*j)%3)%2 == 0
	}
}
