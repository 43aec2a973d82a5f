package pdf

import (
	"fmt"

	"github.com/dslipak/pdf"
)

// Letter size, used when a page declares no usable MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// PageSize is a page's extent in PDF points (1/72 inch).
type PageSize struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// PageInfo reads the page count and the MediaBox of every page.
func PageInfo(filename string) (int, map[int]PageSize, error) {
	r, err := pdf.Open(filename)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to open PDF %q: %w", filename, err)
	}

	n := r.NumPage()
	sizes := make(map[int]PageSize, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		sizes[i] = mediaBox(page.V)
	}
	return n, sizes, nil
}

// mediaBox resolves the MediaBox, following the page tree for inherited values.
func mediaBox(v pdf.Value) PageSize {
	for depth := 0; !v.IsNull() && depth < 32; depth++ {
		box := v.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if w > 0 && h > 0 {
				size := PageSize{Width: w, Height: h}
				if rot := int(v.Key("Rotate").Int64()); rot%180 != 0 {
					size.Width, size.Height = size.Height, size.Width
				}
				return size
			}
		}
		v = v.Key("Parent")
	}
	return PageSize{Width: defaultPageWidth, Height: defaultPageHeight}
}

// DPI estimates the resolution of an image drawn across the full page.
func (s PageSize) DPI(imgW, imgH int) float64 {
	if s.Width <= 0 || s.Height <= 0 {
		return 0
	}
	dx := float64(imgW) / (s.Width / 72)
	dy := float64(imgH) / (s.Height / 72)
	return (dx + dy) / 2
}
