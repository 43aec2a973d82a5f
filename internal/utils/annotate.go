package utils

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

var (
	linearColor = color.RGBA{R: 0xe0, G: 0x20, B: 0x20, A: 0xff}
	matrixColor = color.RGBA{R: 0x20, G: 0x60, B: 0xe0, A: 0xff}
)

// Annotate copies src and draws the outline of every located symbol onto it.
func Annotate(src image.Image, set *symbol.Set, thickness int) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	for sym := range set.All() {
		col := linearColor
		if sym.Type.Base.Is2D() {
			col = matrixColor
		}
		outline := Outline(sym)
		switch len(outline) {
		case 0:
		case 1, 2:
			DrawRect(dst, sym.Bounds(), col, thickness)
		default:
			DrawPolygon(dst, outline, col, thickness)
		}
	}
	return dst
}

// DrawRect draws an axis-aligned rectangle outline into dst.
func DrawRect(dst *image.RGBA, rect image.Rectangle, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	for t := range thickness {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, rect.Min.Y+t, col)
			dst.Set(x, rect.Max.Y-1-t, col)
		}
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			dst.Set(rect.Min.X+t, y, col)
			dst.Set(rect.Max.X-1-t, y, col)
		}
	}
}

// DrawPolygon draws connected line segments and closes the polygon.
func DrawPolygon(dst *image.RGBA, pts []symbol.Point, col color.Color, thickness int) {
	if len(pts) < 2 {
		return
	}
	for i, a := range pts {
		b := pts[(i+1)%len(pts)]
		drawLine(dst, image.Pt(a.X, a.Y), image.Pt(b.X, b.Y), col, thickness)
	}
}

// drawLine draws a line between two points using a simple Bresenham variant.
func drawLine(dst *image.RGBA, a, b image.Point, col color.Color, thickness int) {
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		drawThickPoint(dst, x0, y0, col, thickness)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func drawThickPoint(dst *image.RGBA, x, y int, col color.Color, thickness int) {
	r := (max(thickness, 1) - 1) / 2
	for yy := y - r; yy <= y+r; yy++ {
		for xx := x - r; xx <= x+r; xx++ {
			if image.Pt(xx, yy).In(dst.Bounds()) {
				dst.Set(xx, yy, col)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
