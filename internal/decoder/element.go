package decoder

// Element is one bar or space produced by the scan-line edge detector.
type Element struct {
	// Width in pixels, interpolated to sub-pixel precision.
	Width float64
	// Start is the position of the leading edge along the scan-line.
	Start float64
	Bar   bool
}

// End returns the position of the trailing edge.
func (e Element) End() float64 { return e.Start + e.Width }

// ring keeps the most recent elements of the current scan-line.
type ring struct {
	buf []Element
	n   int // elements pushed since the last reset
}

func newRing(size int) *ring {
	return &ring{buf: make([]Element, size)}
}

func (r *ring) reset() { r.n = 0 }

func (r *ring) push(e Element) {
	r.buf[r.n%len(r.buf)] = e
	r.n++
}

// avail returns how many elements can be addressed with back.
func (r *ring) avail() int { return min(r.n, len(r.buf)) }

// back returns the element pushed i positions before the newest one.
func (r *ring) back(i int) Element {
	return r.buf[(r.n-1-i)%len(r.buf)]
}

// index returns the line-relative sequence number of back(i).
func (r *ring) index(i int) int { return r.n - 1 - i }

// widths copies the widths of back(from+count-1) .. back(from) into dst in line order.
func (r *ring) widths(from, count int, dst []float64) []float64 {
	dst = dst[:0]
	for i := from + count - 1; i >= from; i-- {
		dst = append(dst, r.back(i).Width)
	}
	return dst
}
