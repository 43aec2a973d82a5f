package qrcode

import (
	"cmp"
	"log/slog"
	"math"
	"slices"

	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

// Finder is the centre of a finder pattern in image coordinates.
type Finder struct {
	X, Y   float64
	Module float64
	hits   int
}

const (
	// maxFinders bounds the triple search.
	maxFinders = 16
	// maxAttempts bounds the finder triples sampled per image.
	maxAttempts = 64
	// minCrossContrast is the luma range below which a cross-check gives up.
	minCrossContrast = 24
)

// patternRun is a 1:1:3:1:1 run measured across one image line.
type patternRun struct {
	center float64
	total  float64
}

// finderRatio reports whether the five run lengths match 1:1:3:1:1.
func finderRatio(c [5]int) bool {
	total := 0
	for _, v := range c {
		if v == 0 {
			return false
		}
		total += v
	}
	m := float64(total) / 7
	tol := m/2 + 0.5
	for k, v := range c {
		if math.Abs(float64(v)-finderPattern[k]*m) > finderPattern[k]*tol {
			return false
		}
	}
	return true
}

// crossCheck follows the row through (x, y), or the column when vertical, and
// measures the finder pattern whose dark core contains that pixel. want is
// the pattern length seen by the scan-line that proposed it.
func (s sampler) crossCheck(x, y int, vertical bool, want float64) (patternRun, bool) {
	img := s.img
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return patternRun{}, false
	}
	pos, n := x, img.Width
	get := func(i int) int { return int(img.At(i, y)) }
	if vertical {
		pos, n = y, img.Height
		get = func(i int) int { return int(img.At(x, i)) }
	}

	span := int(math.Ceil(want)) + 2
	lo, hi := 255, 0
	for i := max(pos-span, 0); i <= min(pos+span, n-1); i++ {
		v := get(i)
		lo, hi = min(lo, v), max(hi, v)
	}
	if hi-lo < minCrossContrast {
		return patternRun{}, false
	}
	dark := func(i int) bool { return 2*get(i) < lo+hi }
	if !dark(pos) {
		return patternRun{}, false
	}

	maxCount := int(3*want/7) + 2
	var c [5]int
	i := pos
	for ; i >= 0 && dark(i); i-- {
		c[2]++
	}
	for ; i >= 0 && !dark(i) && c[1] <= maxCount; i-- {
		c[1]++
	}
	for ; i >= 0 && dark(i) && c[0] <= maxCount; i-- {
		c[0]++
	}
	if c[0] > maxCount || c[1] > maxCount {
		return patternRun{}, false
	}
	i = pos + 1
	for ; i < n && dark(i); i++ {
		c[2]++
	}
	for ; i < n && !dark(i) && c[3] <= maxCount; i++ {
		c[3]++
	}
	for ; i < n && dark(i) && c[4] <= maxCount; i++ {
		c[4]++
	}
	if c[3] > maxCount || c[4] > maxCount || !finderRatio(c) {
		return patternRun{}, false
	}
	total := float64(c[0] + c[1] + c[2] + c[3] + c[4])
	if math.Abs(total-want) > want/2 {
		return patternRun{}, false
	}
	// i is one past the last dark pixel of the outer ring
	center := float64(i-c[4]-c[3]) - float64(c[2])/2
	return patternRun{center: center, total: total}, true
}

// confirm checks a scan-line crossing against the image: across the line,
// then along it at the corrected position, then across once more.
func (s sampler) confirm(seg Segment) (Finder, bool) {
	want := seg.End - seg.Start
	x, y := seg.Center, float64(seg.Line)+0.5
	if seg.Vertical {
		x, y = float64(seg.Line)+0.5, seg.Center
	}
	across := !seg.Vertical
	set := func(vertical bool, r patternRun) {
		if vertical {
			y = r.center
		} else {
			x = r.center
		}
	}
	a, ok := s.crossCheck(int(x), int(y), across, want)
	if !ok {
		return Finder{}, false
	}
	set(across, a)
	b, ok := s.crossCheck(int(x), int(y), !across, want)
	if !ok {
		return Finder{}, false
	}
	set(!across, b)
	c, ok := s.crossCheck(int(x), int(y), across, want)
	if !ok {
		return Finder{}, false
	}
	set(across, c)
	return Finder{X: x, Y: y, Module: (b.total + c.total) / 14, hits: 1}, true
}

// FindFinders confirms every recorded crossing on both image axes and merges
// the confirmed centres that fall within one module of each other. Finders
// seen on more lines come first.
func FindFinders(img *raster.Image, segs []Segment) []Finder {
	s := sampler{img: img}
	type sum struct {
		x, y, m float64
		n       int
	}
	var sums []sum
	for _, seg := range segs {
		f, ok := s.confirm(seg)
		if !ok {
			continue
		}
		merged := false
		for i := range sums {
			a := &sums[i]
			n := float64(a.n)
			m := max(a.m/n, 1)
			if math.Abs(a.x/n-f.X) <= m && math.Abs(a.y/n-f.Y) <= m {
				a.x, a.y, a.m = a.x+f.X, a.y+f.Y, a.m+f.Module
				a.n++
				merged = true
				break
			}
		}
		if !merged {
			sums = append(sums, sum{x: f.X, y: f.Y, m: f.Module, n: 1})
		}
	}
	out := make([]Finder, 0, len(sums))
	for _, a := range sums {
		n := float64(a.n)
		out = append(out, Finder{X: a.x / n, Y: a.y / n, Module: a.m / n, hits: a.n})
	}
	slices.SortStableFunc(out, func(a, b Finder) int { return cmp.Compare(b.hits, a.hits) })
	if len(out) > maxFinders {
		out = out[:maxFinders]
	}
	return out
}

// corners is an ordered finder triple.
type corners struct {
	tl, tr, bl Finder
	score      float64
	idx        [3]int
}

// candidateTriples lists every finder triple that forms a right isosceles
// triangle, best first.
func candidateTriples(fs []Finder) []corners {
	var cand []corners
	for i := 0; i < len(fs); i++ {
		for j := i + 1; j < len(fs); j++ {
			for k := j + 1; k < len(fs); k++ {
				if c, ok := orderTriple(fs[i], fs[j], fs[k]); ok {
					c.score += float64(i+j+k) * 1e-6
					c.idx = [3]int{i, j, k}
					cand = append(cand, c)
				}
			}
		}
	}
	slices.SortFunc(cand, func(a, b corners) int { return cmp.Compare(a.score, b.score) })
	return cand
}

func dist(a, b Finder) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }

// orderTriple names the corner opposite the longest side top-left and orders
// the other two so the symbol reads clockwise in image coordinates.
func orderTriple(a, b, c Finder) (corners, bool) {
	ab, ac, bc := dist(a, b), dist(a, c), dist(b, c)
	tl, p, q := a, b, c
	legA, legB, hyp := ab, ac, bc
	switch {
	case ab >= ac && ab >= bc:
		tl, p, q = c, a, b
		legA, legB, hyp = ac, bc, ab
	case ac >= ab && ac >= bc:
		tl, p, q = b, a, c
		legA, legB, hyp = ab, bc, ac
	}
	mMin := min(a.Module, b.Module, c.Module)
	mMax := max(a.Module, b.Module, c.Module)
	if mMax > 1.6*mMin {
		return corners{}, false
	}
	ratio := max(legA, legB) / min(legA, legB)
	if ratio > 1.4 {
		return corners{}, false
	}
	pythag := math.Abs(hyp*hyp-(legA*legA+legB*legB)) / (legA*legA + legB*legB)
	if pythag > 0.25 {
		return corners{}, false
	}
	m := (a.Module + b.Module + c.Module) / 3
	if min(legA, legB) < 10*m || max(legA, legB) > 180*m {
		return corners{}, false
	}
	cross := (p.X-tl.X)*(q.Y-tl.Y) - (p.Y-tl.Y)*(q.X-tl.X)
	if cross < 0 {
		p, q = q, p
	}
	return corners{tl: tl, tr: p, bl: q, score: (ratio - 1) + pythag}, true
}

// moduleSize undoes the stretch of scan-line measurements across a rotated finder.
func (c corners) moduleSize() float64 {
	m := (c.tl.Module + c.tr.Module + c.bl.Module) / 3
	theta := math.Atan2(c.tr.Y-c.tl.Y, c.tr.X-c.tl.X)
	return m * max(math.Abs(math.Cos(theta)), math.Abs(math.Sin(theta)))
}

// dimensions lists the symbol sizes worth sampling, most likely first.
func (c corners) dimensions(m float64) []int {
	d := int(math.Round((dist(c.tl, c.tr)/m+dist(c.tl, c.bl)/m)/2)) + 7
	var base []int
	switch d % 4 {
	case 0:
		base = []int{d + 1, d - 3}
	case 1:
		base = []int{d, d + 4, d - 4}
	case 2:
		base = []int{d - 1, d + 3}
	default:
		base = []int{d - 2, d + 2}
	}
	var out []int
	for _, n := range base {
		if versionForDimension(n) != 0 {
			out = append(out, n)
		}
	}
	return out
}

func (c corners) orientation() symbol.Orientation {
	deg := math.Atan2(c.tr.Y-c.tl.Y, c.tr.X-c.tl.X) * 180 / math.Pi
	switch {
	case deg >= -45 && deg < 45:
		return symbol.OrientUp
	case deg >= 45 && deg < 135:
		return symbol.OrientRight
	case deg >= -135 && deg < -45:
		return symbol.OrientLeft
	}
	return symbol.OrientDown
}

// sampler reads luma from a gray image in continuous pixel coordinates.
type sampler struct {
	img *raster.Image
}

func (s sampler) at(x, y float64) (int, bool) {
	ix, iy := int(math.Floor(x)), int(math.Floor(y))
	if ix < -1 || iy < -1 || ix > s.img.Width || iy > s.img.Height {
		return 0, false
	}
	ix = min(max(ix, 0), s.img.Width-1)
	iy = min(max(iy, 0), s.img.Height-1)
	return int(s.img.At(ix, iy)), true
}

var (
	// module offsets around a pattern centre
	ringOne = [][2]float64{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}}
	ringTwo = [][2]float64{{-2, -2}, {0, -2}, {2, -2}, {-2, 0}, {2, 0}, {-2, 2}, {0, 2}, {2, 2}}
)

// frame holds the image step of one module along the symbol axes.
type frame struct {
	ux, uy, vx, vy float64
}

func (c corners) frame(dim int) frame {
	n := float64(dim - 7)
	return frame{
		ux: (c.tr.X - c.tl.X) / n, uy: (c.tr.Y - c.tl.Y) / n,
		vx: (c.bl.X - c.tl.X) / n, vy: (c.bl.Y - c.tl.Y) / n,
	}
}

func (s sampler) mean(x, y float64, f frame, offs [][2]float64) float64 {
	sum := 0
	for _, o := range offs {
		v, _ := s.at(x+o[0]*f.ux+o[1]*f.vx, y+o[0]*f.uy+o[1]*f.vy)
		sum += v
	}
	return float64(sum) / float64(len(offs))
}

// alignmentScore is the luma difference between the light ring and the dark
// centre plus outer ring of an alignment pattern centred at (x, y).
func (s sampler) alignmentScore(x, y float64, f frame) float64 {
	c, _ := s.at(x, y)
	dark := (float64(c) + 8*s.mean(x, y, f, ringTwo)) / 9
	return s.mean(x, y, f, ringOne) - dark
}

// finderContrast is the luma difference between the light ring and the dark
// core of the top-left finder.
func (s sampler) finderContrast(c corners, f frame) float64 {
	core, _ := s.at(c.tl.X, c.tl.Y)
	dark := (float64(core) + 8*s.mean(c.tl.X, c.tl.Y, f, ringOne)) / 9
	return s.mean(c.tl.X, c.tl.Y, f, ringTwo) - dark
}

// findAlignment searches around the expected bottom-right alignment pattern.
func (s sampler) findAlignment(c corners, dim int, m float64) (float64, float64, bool) {
	f := c.frame(dim)
	brX := c.tr.X - c.tl.X + c.bl.X
	brY := c.tr.Y - c.tl.Y + c.bl.Y
	k := 1 - 3/float64(dim-7)
	ex := c.tl.X + k*(brX-c.tl.X)
	ey := c.tl.Y + k*(brY-c.tl.Y)

	radius := 6 * m
	step := max(1, m/3)
	bx, by, best := ex, ey, math.Inf(-1)
	for dy := -radius; dy <= radius; dy += step {
		for dx := -radius; dx <= radius; dx += step {
			if sc := s.alignmentScore(ex+dx, ey+dy, f); sc > best {
				bx, by, best = ex+dx, ey+dy, sc
			}
		}
	}
	cx, cy := bx, by
	for dy := -step; dy <= step; dy++ {
		for dx := -step; dx <= step; dx++ {
			if sc := s.alignmentScore(cx+dx, cy+dy, f); sc > best {
				bx, by, best = cx+dx, cy+dy, sc
			}
		}
	}
	if best < s.finderContrast(c, f)/2 || best <= 0 {
		return 0, 0, false
	}
	return bx, by, true
}

// transform maps module coordinates onto the image.
func (s sampler) transform(c corners, dim int, m float64) *perspective {
	d := float64(dim)
	brX := c.tr.X - c.tl.X + c.bl.X
	brY := c.tr.Y - c.tl.Y + c.bl.Y
	src := d - 3.5
	if versionForDimension(dim) >= 2 {
		if ax, ay, ok := s.findAlignment(c, dim, m); ok {
			brX, brY = ax, ay
			src = d - 6.5
		}
	}
	return quadToQuad(
		[8]float64{3.5, 3.5, d - 3.5, 3.5, src, src, 3.5, d - 3.5},
		[8]float64{c.tl.X, c.tl.Y, c.tr.X, c.tr.Y, brX, brY, c.bl.X, c.bl.Y},
	)
}

// sample reads the module centres and binarizes them with an Otsu threshold.
func (s sampler) sample(t *perspective, dim int) (*Grid, bool) {
	lum := make([]int, dim*dim)
	var hist [256]int
	for y := range dim {
		for x := range dim {
			px, py := t.apply(float64(x)+0.5, float64(y)+0.5)
			v, ok := s.at(px, py)
			if !ok {
				return nil, false
			}
			lum[y*dim+x] = v
			hist[v]++
		}
	}
	thr := otsu(hist[:], dim*dim)
	g := NewGrid(dim)
	for i, v := range lum {
		g.bits[i] = v <= thr
	}
	return g, true
}

// otsu returns the threshold that maximises the between-class variance.
func otsu(hist []int, total int) int {
	sumAll := 0.0
	for i, h := range hist {
		sumAll += float64(i * h)
	}
	var sumB, wB float64
	best, thr := -1.0, 127
	for i, h := range hist {
		wB += float64(h)
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(i * h)
		mB := sumB / wB
		mF := (sumAll - sumB) / wF
		if between := wB * wF * (mB - mF) * (mB - mF); between > best {
			best, thr = between, i
		}
	}
	return thr
}

// Detect locates and decodes every QR symbol whose finder crossings were
// recorded in segs. img must be a gray image. Triples are sampled best first
// and a finder belongs to at most one decoded symbol.
func Detect(img *raster.Image, segs []Segment, text bool) []*Result {
	finders := FindFinders(img, segs)
	if len(finders) < 3 {
		return nil
	}
	s := sampler{img: img}
	used := make([]bool, len(finders))
	var out []*Result
	for k, c := range candidateTriples(finders) {
		if k >= maxAttempts {
			break
		}
		if used[c.idx[0]] || used[c.idx[1]] || used[c.idx[2]] {
			continue
		}
		if res := s.read(c, text); res != nil {
			out = append(out, res)
			for _, i := range c.idx {
				used[i] = true
			}
		}
	}
	return out
}

func (s sampler) read(c corners, text bool) *Result {
	m := c.moduleSize()
	dims := c.dimensions(m)
	tried := map[int]bool{}
	for i := 0; i < len(dims); i++ {
		dim := dims[i]
		if tried[dim] {
			continue
		}
		tried[dim] = true
		t := s.transform(c, dim, m)
		g, ok := s.sample(t, dim)
		if !ok {
			continue
		}
		res, err := Decode(g, text)
		if err != nil {
			slog.Debug("qrcode candidate rejected", "dimension", dim, "error", err)
			if dim >= dimension(7) {
				if v := readVersion(g); v != 0 && !tried[dimension(v)] {
					dims = append(dims, dimension(v))
				}
			}
			continue
		}
		d := float64(dim)
		for _, p := range [][2]float64{{0, 0}, {d, 0}, {d, d}, {0, d}} {
			x, y := t.apply(p[0], p[1])
			res.Points = append(res.Points, symbol.Point{X: int(math.Round(x)), Y: int(math.Round(y))})
		}
		res.Orientation = c.orientation()
		return res
	}
	return nil
}
