package utils

import (
	"slices"

	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

// ConvexHull computes the convex hull of a set of points using the
// monotone chain algorithm. Returns the hull in CCW order (y up) without
// duplicating the first point at the end.
func ConvexHull(pts []symbol.Point) []symbol.Point {
	p := slices.Clone(pts)
	slices.SortFunc(p, func(a, b symbol.Point) int {
		if a.X != b.X {
			return a.X - b.X
		}
		return a.Y - b.Y
	})
	p = slices.Compact(p)
	if len(p) <= 2 {
		return p
	}
	lower := halfHull(p)
	slices.Reverse(p)
	upper := halfHull(p)
	hull := make([]symbol.Point, 0, len(lower)+len(upper)-2)
	hull = append(hull, lower[:len(lower)-1]...)
	return append(hull, upper[:len(upper)-1]...)
}

func halfHull(p []symbol.Point) []symbol.Point {
	h := make([]symbol.Point, 0, len(p))
	for _, pt := range p {
		for len(h) >= 2 && cross(h[len(h)-2], h[len(h)-1], pt) <= 0 {
			h = h[:len(h)-1]
		}
		h = append(h, pt)
	}
	return h
}

func cross(o, a, b symbol.Point) int {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// Outline returns the hull of a symbol's location polygon. Symbols found in
// both scan directions carry one trace per direction, so the raw point list
// is not a simple polygon.
func Outline(sym *symbol.Symbol) []symbol.Point {
	return ConvexHull(sym.Points)
}
