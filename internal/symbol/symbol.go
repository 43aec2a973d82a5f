package symbol

import (
	"fmt"
	"image"
	"iter"
	"slices"
)

// Point is an integer point in image coordinates.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Orientation is the reading direction of a symbol relative to the image.
type Orientation int

const (
	OrientUnknown Orientation = iota
	OrientUp
	OrientRight
	OrientDown
	OrientLeft
)

func (o Orientation) String() string {
	switch o {
	case OrientUp:
		return "UP"
	case OrientRight:
		return "RIGHT"
	case OrientDown:
		return "DOWN"
	case OrientLeft:
		return "LEFT"
	}
	return "UNKNOWN"
}

// Symbol is one decoded barcode. Symbols are not modified after they are handed out.
type Symbol struct {
	Type Type
	Data []byte
	// Quality counts the scan-lines that agreed on this decode. It is only
	// comparable between symbols of the same scan.
	Quality int
	// Points traces the location polygon along the scan path.
	Points []Point
	// Count is the inter-frame cache state: <0 unverified, 0 newly verified, >0 duplicates.
	Count       int
	Orientation Orientation
}

// Text returns the payload as a string.
func (s *Symbol) Text() string { return string(s.Data) }

func (s *Symbol) String() string {
	return fmt.Sprintf("%s %s", s.Type, s.Data)
}

// Key identifies a symbol by symbology and payload.
func (s *Symbol) Key() string {
	return fmt.Sprintf("%d:%s", s.Type.Code(), s.Data)
}

// Bounds returns the bounding rectangle of the location polygon.
func (s *Symbol) Bounds() image.Rectangle {
	if len(s.Points) == 0 {
		return image.Rectangle{}
	}
	r := image.Rect(s.Points[0].X, s.Points[0].Y, s.Points[0].X+1, s.Points[0].Y+1)
	for _, p := range s.Points[1:] {
		r = r.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))
	}
	return r
}

// WithCount returns a copy of s carrying the given cache count.
func (s *Symbol) WithCount(count int) *Symbol {
	c := *s
	c.Data = slices.Clone(s.Data)
	c.Points = slices.Clone(s.Points)
	c.Count = count
	return &c
}

// Set is the ordered result of scanning one image.
type Set struct {
	symbols []*Symbol
}

// NewSet returns a set holding symbols in order.
func NewSet(symbols ...*Symbol) *Set {
	return &Set{symbols: symbols}
}

// Add appends a symbol.
func (s *Set) Add(sym *Symbol) { s.symbols = append(s.symbols, sym) }

// Len returns the number of symbols.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.symbols)
}

// At returns the i-th symbol.
func (s *Set) At(i int) *Symbol { return s.symbols[i] }

// All iterates over the symbols in order.
func (s *Set) All() iter.Seq[*Symbol] {
	return func(yield func(*Symbol) bool) {
		if s == nil {
			return
		}
		for _, sym := range s.symbols {
			if !yield(sym) {
				return
			}
		}
	}
}

// Symbols returns a copy of the underlying slice.
func (s *Set) Symbols() []*Symbol {
	if s == nil {
		return nil
	}
	return slices.Clone(s.symbols)
}

// Filter returns a new set with the symbols for which keep returns true.
func (s *Set) Filter(keep func(*Symbol) bool) *Set {
	out := &Set{}
	for sym := range s.All() {
		if keep(sym) {
			out.symbols = append(out.symbols, sym)
		}
	}
	return out
}
