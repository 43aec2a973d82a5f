package utils

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

func genPoint() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(-100, 100),
		gen.IntRange(-100, 100),
	).Map(func(vals []interface{}) symbol.Point {
		return symbol.Point{X: vals[0].(int), Y: vals[1].(int)}
	})
}

func TestConvexHull_Square(t *testing.T) {
	pts := []symbol.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 10, Y: 0}}
	hull := ConvexHull(pts)
	assert.ElementsMatch(t, []symbol.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}, hull)
}

func TestConvexHull_Degenerate(t *testing.T) {
	assert.Empty(t, ConvexHull(nil))
	assert.Equal(t, []symbol.Point{{X: 1, Y: 2}}, ConvexHull([]symbol.Point{{X: 1, Y: 2}, {X: 1, Y: 2}}))
	assert.Len(t, ConvexHull([]symbol.Point{{X: 0, Y: 0}, {X: 4, Y: 0}}), 2)
}

func TestConvexHull_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every input point lies inside or on the hull", prop.ForAll(
		func(points []symbol.Point) bool {
			hull := ConvexHull(points)
			if len(hull) < 3 {
				return true
			}
			for _, p := range points {
				for i := range hull {
					if cross(hull[i], hull[(i+1)%len(hull)], p) < 0 {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(12, genPoint()),
	))

	properties.Property("hull points are drawn from the input", prop.ForAll(
		func(points []symbol.Point) bool {
			seen := make(map[symbol.Point]bool, len(points))
			for _, p := range points {
				seen[p] = true
			}
			for _, h := range ConvexHull(points) {
				if !seen[h] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(8, genPoint()),
	))

	properties.TestingRun(t)
}

func TestOutline_MergedTraces(t *testing.T) {
	sym := &symbol.Symbol{Points: []symbol.Point{
		{X: 10, Y: 10}, {X: 50, Y: 10}, {X: 50, Y: 40}, {X: 10, Y: 40},
		{X: 12, Y: 8}, {X: 12, Y: 42}, {X: 48, Y: 42}, {X: 48, Y: 8},
	}}
	out := Outline(sym)
	assert.Len(t, out, 8)
}
