package qrcode

import "math/bits"

// Level is the error correction level of a symbol.
type Level int

const (
	LevelL Level = iota
	LevelM
	LevelQ
	LevelH
)

func (l Level) String() string {
	if l < LevelL || l > LevelH {
		return "?"
	}
	return string("LMQH"[l])
}

// levelForBits maps the two format information level bits onto a Level.
var levelForBits = [4]Level{LevelM, LevelL, LevelH, LevelQ}

type blockGroup struct {
	count int
	data  int // data codewords per block
}

type ecBlocks struct {
	perBlock int // error correction codewords per block
	groups   []blockGroup
}

func (e ecBlocks) numBlocks() int {
	n := 0
	for _, g := range e.groups {
		n += g.count
	}
	return n
}

func (e ecBlocks) dataCodewords() int {
	n := 0
	for _, g := range e.groups {
		n += g.count * g.data
	}
	return n
}

type versionSpec struct {
	align []int // alignment pattern centre coordinates
	ec    [4]ecBlocks
}

const (
	minVersion = 1
	maxVersion = 40
)

func dimension(v int) int { return 17 + 4*v }

// versionForDimension returns the version of an n×n symbol or 0.
func versionForDimension(n int) int {
	if n%4 != 1 {
		return 0
	}
	v := (n - 17) / 4
	if v < minVersion || v > maxVersion {
		return 0
	}
	return v
}

func totalCodewords(v int) int {
	e := versions[v-1].ec[LevelL]
	return e.dataCodewords() + e.perBlock*e.numBlocks()
}

// bchRemainder appends the BCH remainder of data for a generator of genBits bits.
func bchRemainder(data, gen, genBits int) int {
	n := bits.Len(uint(gen)) - 1
	v := data << n
	for bits.Len(uint(v)) > n {
		v ^= gen << (bits.Len(uint(v)) - genBits)
	}
	return v
}

// versionInfo holds the 18 bit version information words for versions 7 to 40.
var versionInfo [maxVersion + 1]int

func init() {
	for v := 7; v <= maxVersion; v++ {
		versionInfo[v] = v<<12 | bchRemainder(v, 0x1F25, 13)
	}
}

// decodeVersion matches a raw 18 bit version word, allowing up to three bit errors.
func decodeVersion(raw int) int {
	best, bestDiff := 0, 4
	for v := 7; v <= maxVersion; v++ {
		if d := bits.OnesCount(uint(raw ^ versionInfo[v])); d < bestDiff {
			best, bestDiff = v, d
		}
	}
	return best
}

// functionMask marks the modules of version v that carry no data.
func functionMask(v int) *Grid {
	n := dimension(v)
	g := NewGrid(n)
	// finders with separators and format information
	g.setRegion(0, 0, 9, 9)
	g.setRegion(n-8, 0, 8, 9)
	g.setRegion(0, n-8, 9, 8)

	align := versions[v-1].align
	last := len(align) - 1
	for i, y := range align {
		for j, x := range align {
			if (i == 0 && (j == 0 || j == last)) || (i == last && j == 0) {
				continue
			}
			g.setRegion(x-2, y-2, 5, 5)
		}
	}
	// timing
	g.setRegion(6, 9, 1, n-17)
	g.setRegion(9, 6, n-17, 1)
	if v > 6 {
		g.setRegion(n-11, 0, 3, 6)
		g.setRegion(0, n-11, 6, 3)
	}
	return g
}

// versions is indexed by version-1; error correction blocks are indexed by Level.
var versions = [maxVersion]versionSpec{
	{nil, [4]ecBlocks{{7, []blockGroup{{1, 19}}}, {10, []blockGroup{{1, 16}}}, {13, []blockGroup{{1, 13}}}, {17, []blockGroup{{1, 9}}}}},
	{[]int{6, 18}, [4]ecBlocks{{10, []blockGroup{{1, 34}}}, {16, []blockGroup{{1, 28}}}, {22, []blockGroup{{1, 22}}}, {28, []blockGroup{{1, 16}}}}},
	{[]int{6, 22}, [4]ecBlocks{{15, []blockGroup{{1, 55}}}, {26, []blockGroup{{1, 44}}}, {18, []blockGroup{{2, 17}}}, {22, []blockGroup{{2, 13}}}}},
	{[]int{6, 26}, [4]ecBlocks{{20, []blockGroup{{1, 80}}}, {18, []blockGroup{{2, 32}}}, {26, []blockGroup{{2, 24}}}, {16, []blockGroup{{4, 9}}}}},
	{[]int{6, 30}, [4]ecBlocks{{26, []blockGroup{{1, 108}}}, {24, []blockGroup{{2, 43}}}, {18, []blockGroup{{2, 15}, {2, 16}}}, {22, []blockGroup{{2, 11}, {2, 12}}}}},
	{[]int{6, 34}, [4]ecBlocks{{18, []blockGroup{{2, 68}}}, {16, []blockGroup{{4, 27}}}, {24, []blockGroup{{4, 19}}}, {28, []blockGroup{{4, 15}}}}},
	{[]int{6, 22, 38}, [4]ecBlocks{{20, []blockGroup{{2, 78}}}, {18, []blockGroup{{4, 31}}}, {18, []blockGroup{{2, 14}, {4, 15}}}, {26, []blockGroup{{4, 13}, {1, 14}}}}},
	{[]int{6, 24, 42}, [4]ecBlocks{{24, []blockGroup{{2, 97}}}, {22, []blockGroup{{2, 38}, {2, 39}}}, {22, []blockGroup{{4, 18}, {2, 19}}}, {26, []blockGroup{{4, 14}, {2, 15}}}}},
	{[]int{6, 26, 46}, [4]ecBlocks{{30, []blockGroup{{2, 116}}}, {22, []blockGroup{{3, 36}, {2, 37}}}, {20, []blockGroup{{4, 16}, {4, 17}}}, {24, []blockGroup{{4, 12}, {4, 13}}}}},
	{[]int{6, 28, 50}, [4]ecBlocks{{18, []blockGroup{{2, 68}, {2, 69}}}, {26, []blockGroup{{4, 43}, {1, 44}}}, {24, []blockGroup{{6, 19}, {2, 20}}}, {28, []blockGroup{{6, 15}, {2, 16}}}}},
	{[]int{6, 30, 54}, [4]ecBlocks{{20, []blockGroup{{4, 81}}}, {30, []blockGroup{{1, 50}, {4, 51}}}, {28, []blockGroup{{4, 22}, {4, 23}}}, {24, []blockGroup{{3, 12}, {8, 13}}}}},
	{[]int{6, 32, 58}, [4]ecBlocks{{24, []blockGroup{{2, 92}, {2, 93}}}, {22, []blockGroup{{6, 36}, {2, 37}}}, {26, []blockGroup{{4, 20}, {6, 21}}}, {28, []blockGroup{{7, 14}, {4, 15}}}}},
	{[]int{6, 34, 62}, [4]ecBlocks{{26, []blockGroup{{4, 107}}}, {22, []blockGroup{{8, 37}, {1, 38}}}, {24, []blockGroup{{8, 20}, {4, 21}}}, {22, []blockGroup{{12, 11}, {4, 12}}}}},
	{[]int{6, 26, 46, 66}, [4]ecBlocks{{30, []blockGroup{{3, 115}, {1, 116}}}, {24, []blockGroup{{4, 40}, {5, 41}}}, {20, []blockGroup{{11, 16}, {5, 17}}}, {24, []blockGroup{{11, 12}, {5, 13}}}}},
	{[]int{6, 26, 48, 70}, [4]ecBlocks{{22, []blockGroup{{5, 87}, {1, 88}}}, {24, []blockGroup{{5, 41}, {5, 42}}}, {30, []blockGroup{{5, 24}, {7, 25}}}, {24, []blockGroup{{11, 12}, {7, 13}}}}},
	{[]int{6, 26, 50, 74}, [4]ecBlocks{{24, []blockGroup{{5, 98}, {1, 99}}}, {28, []blockGroup{{7, 45}, {3, 46}}}, {24, []blockGroup{{15, 19}, {2, 20}}}, {30, []blockGroup{{3, 15}, {13, 16}}}}},
	{[]int{6, 30, 54, 78}, [4]ecBlocks{{28, []blockGroup{{1, 107}, {5, 108}}}, {28, []blockGroup{{10, 46}, {1, 47}}}, {28, []blockGroup{{1, 22}, {15, 23}}}, {28, []blockGroup{{2, 14}, {17, 15}}}}},
	{[]int{6, 30, 56, 82}, [4]ecBlocks{{30, []blockGroup{{5, 120}, {1, 121}}}, {26, []blockGroup{{9, 43}, {4, 44}}}, {28, []blockGroup{{17, 22}, {1, 23}}}, {28, []blockGroup{{2, 14}, {19, 15}}}}},
	{[]int{6, 30, 58, 86}, [4]ecBlocks{{28, []blockGroup{{3, 113}, {4, 114}}}, {26, []blockGroup{{3, 44}, {11, 45}}}, {26, []blockGroup{{17, 21}, {4, 22}}}, {26, []blockGroup{{9, 13}, {16, 14}}}}},
	{[]int{6, 34, 62, 90}, [4]ecBlocks{{28, []blockGroup{{3, 107}, {5, 108}}}, {26, []blockGroup{{3, 41}, {13, 42}}}, {30, []blockGroup{{15, 24}, {5, 25}}}, {28, []blockGroup{{15, 15}, {10, 16}}}}},
	{[]int{6, 28, 50, 72, 94}, [4]ecBlocks{{28, []blockGroup{{4, 116}, {4, 117}}}, {26, []blockGroup{{17, 42}}}, {28, []blockGroup{{17, 22}, {6, 23}}}, {30, []blockGroup{{19, 16}, {6, 17}}}}},
	{[]int{6, 26, 50, 74, 98}, [4]ecBlocks{{28, []blockGroup{{2, 111}, {7, 112}}}, {28, []blockGroup{{17, 46}}}, {30, []blockGroup{{7, 24}, {16, 25}}}, {24, []blockGroup{{34, 13}}}}},
	{[]int{6, 30, 54, 78, 102}, [4]ecBlocks{{30, []blockGroup{{4, 121}, {5, 122}}}, {28, []blockGroup{{4, 47}, {14, 48}}}, {30, []blockGroup{{11, 24}, {14, 25}}}, {30, []blockGroup{{16, 15}, {14, 16}}}}},
	{[]int{6, 28, 54, 80, 106}, [4]ecBlocks{{30, []blockGroup{{6, 117}, {4, 118}}}, {28, []blockGroup{{6, 45}, {14, 46}}}, {30, []blockGroup{{11, 24}, {16, 25}}}, {30, []blockGroup{{30, 16}, {2, 17}}}}},
	{[]int{6, 32, 58, 84, 110}, [4]ecBlocks{{26, []blockGroup{{8, 106}, {4, 107}}}, {28, []blockGroup{{8, 47}, {13, 48}}}, {30, []blockGroup{{7, 24}, {22, 25}}}, {30, []blockGroup{{22, 15}, {13, 16}}}}},
	{[]int{6, 30, 58, 86, 114}, [4]ecBlocks{{28, []blockGroup{{10, 114}, {2, 115}}}, {28, []blockGroup{{19, 46}, {4, 47}}}, {28, []blockGroup{{28, 22}, {6, 23}}}, {30, []blockGroup{{33, 16}, {4, 17}}}}},
	{[]int{6, 34, 62, 90, 118}, [4]ecBlocks{{30, []blockGroup{{8, 122}, {4, 123}}}, {28, []blockGroup{{22, 45}, {3, 46}}}, {30, []blockGroup{{8, 23}, {26, 24}}}, {30, []blockGroup{{12, 15}, {28, 16}}}}},
	{[]int{6, 26, 50, 74, 98, 122}, [4]ecBlocks{{30, []blockGroup{{3, 117}, {10, 118}}}, {28, []blockGroup{{3, 45}, {23, 46}}}, {30, []blockGroup{{4, 24}, {31, 25}}}, {30, []blockGroup{{11, 15}, {31, 16}}}}},
	{[]int{6, 30, 54, 78, 102, 126}, [4]ecBlocks{{30, []blockGroup{{7, 116}, {7, 117}}}, {28, []blockGroup{{21, 45}, {7, 46}}}, {30, []blockGroup{{1, 23}, {37, 24}}}, {30, []blockGroup{{19, 15}, {26, 16}}}}},
	{[]int{6, 26, 52, 78, 104, 130}, [4]ecBlocks{{30, []blockGroup{{5, 115}, {10, 116}}}, {28, []blockGroup{{19, 47}, {10, 48}}}, {30, []blockGroup{{15, 24}, {25, 25}}}, {30, []blockGroup{{23, 15}, {25, 16}}}}},
	{[]int{6, 30, 56, 82, 108, 134}, [4]ecBlocks{{30, []blockGroup{{13, 115}, {3, 116}}}, {28, []blockGroup{{2, 46}, {29, 47}}}, {30, []blockGroup{{42, 24}, {1, 25}}}, {30, []blockGroup{{23, 15}, {28, 16}}}}},
	{[]int{6, 34, 60, 86, 112, 138}, [4]ecBlocks{{30, []blockGroup{{17, 115}}}, {28, []blockGroup{{10, 46}, {23, 47}}}, {30, []blockGroup{{10, 24}, {35, 25}}}, {30, []blockGroup{{19, 15}, {35, 16}}}}},
	{[]int{6, 30, 58, 86, 114, 142}, [4]ecBlocks{{30, []blockGroup{{17, 115}, {1, 116}}}, {28, []blockGroup{{14, 46}, {21, 47}}}, {30, []blockGroup{{29, 24}, {19, 25}}}, {30, []blockGroup{{11, 15}, {46, 16}}}}},
	{[]int{6, 34, 62, 90, 118, 146}, [4]ecBlocks{{30, []blockGroup{{13, 115}, {6, 116}}}, {28, []blockGroup{{14, 46}, {23, 47}}}, {30, []blockGroup{{44, 24}, {7, 25}}}, {30, []blockGroup{{59, 16}, {1, 17}}}}},
	{[]int{6, 30, 54, 78, 102, 126, 150}, [4]ecBlocks{{30, []blockGroup{{12, 121}, {7, 122}}}, {28, []blockGroup{{12, 47}, {26, 48}}}, {30, []blockGroup{{39, 24}, {14, 25}}}, {30, []blockGroup{{22, 15}, {41, 16}}}}},
	{[]int{6, 24, 50, 76, 102, 128, 154}, [4]ecBlocks{{30, []blockGroup{{6, 121}, {14, 122}}}, {28, []blockGroup{{6, 47}, {34, 48}}}, {30, []blockGroup{{46, 24}, {10, 25}}}, {30, []blockGroup{{2, 15}, {64, 16}}}}},
	{[]int{6, 28, 54, 80, 106, 132, 158}, [4]ecBlocks{{30, []blockGroup{{17, 122}, {4, 123}}}, {28, []blockGroup{{29, 46}, {14, 47}}}, {30, []blockGroup{{49, 24}, {10, 25}}}, {30, []blockGroup{{24, 15}, {46, 16}}}}},
	{[]int{6, 32, 58, 84, 110, 136, 162}, [4]ecBlocks{{30, []blockGroup{{4, 122}, {18, 123}}}, {28, []blockGroup{{13, 46}, {32, 47}}}, {30, []blockGroup{{48, 24}, {14, 25}}}, {30, []blockGroup{{42, 15}, {32, 16}}}}},
	{[]int{6, 26, 54, 82, 110, 138, 166}, [4]ecBlocks{{30, []blockGroup{{20, 117}, {4, 118}}}, {28, []blockGroup{{40, 47}, {7, 48}}}, {30, []blockGroup{{43, 24}, {22, 25}}}, {30, []blockGroup{{10, 15}, {67, 16}}}}},
	{[]int{6, 30, 58, 86, 114, 142, 170}, [4]ecBlocks{{30, []blockGroup{{19, 118}, {6, 119}}}, {28, []blockGroup{{18, 47}, {31, 48}}}, {30, []blockGroup{{34, 24}, {34, 25}}}, {30, []blockGroup{{20, 15}, {61, 16}}}}},
}
