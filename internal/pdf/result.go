package pdf

import (
	"fmt"
	"time"

	"github.com/MeKo-Tech/zbargo/internal/batch"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
	"github.com/MeKo-Tech/zbargo/internal/utils"
)

// PageBox is a symbol's bounding box in page points, origin bottom-left.
type PageBox struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	W float64 `json:"w" yaml:"w"`
	H float64 `json:"h" yaml:"h"`
}

// ImageResult holds the symbols found in one embedded image.
type ImageResult struct {
	ImageIndex int             `json:"image_index" yaml:"image_index"`
	Width      int             `json:"width" yaml:"width"`
	Height     int             `json:"height" yaml:"height"`
	Symbols    []symbol.Record `json:"symbols" yaml:"symbols"`
	PageBoxes  []PageBox       `json:"page_boxes,omitempty" yaml:"page_boxes,omitempty"`
	// Scale is the upsampling factor of the pass that found the symbols; 1 for native resolution.
	Scale     float64 `json:"scale" yaml:"scale"`
	ElapsedMs float64 `json:"elapsed_ms" yaml:"elapsed_ms"`

	Set *symbol.Set `json:"-" yaml:"-"`
}

// PageResult holds the results of one page.
type PageResult struct {
	PageNumber int           `json:"page_number" yaml:"page_number"`
	Size       PageSize      `json:"size" yaml:"size"`
	Images     []ImageResult `json:"images" yaml:"images"`
}

// DocumentResult holds the results of a whole document.
type DocumentResult struct {
	Filename   string         `json:"filename" yaml:"filename"`
	TotalPages int            `json:"total_pages" yaml:"total_pages"`
	Encrypted  bool           `json:"encrypted,omitempty" yaml:"encrypted,omitempty"`
	Pages      []PageResult   `json:"pages" yaml:"pages"`
	Processing ProcessingInfo `json:"processing" yaml:"processing"`
}

// ProcessingInfo contains timing information.
type ProcessingInfo struct {
	ExtractionTimeMs int64 `json:"extraction_time_ms" yaml:"extraction_time_ms"`
	ScanTimeMs       int64 `json:"scan_time_ms" yaml:"scan_time_ms"`
	TotalTimeMs      int64 `json:"total_time_ms" yaml:"total_time_ms"`
}

// SymbolCount returns the number of symbols over all pages.
func (d *DocumentResult) SymbolCount() int {
	n := 0
	for _, p := range d.Pages {
		for _, img := range p.Images {
			n += len(img.Symbols)
		}
	}
	return n
}

// BatchResult flattens the document into one batch entry per embedded image
// so the batch formatters can render it. Paths read "<file>#page=<n>".
func (d *DocumentResult) BatchResult() *batch.Result {
	out := &batch.Result{
		Duration:    time.Duration(d.Processing.TotalTimeMs) * time.Millisecond,
		WorkerCount: 1,
	}
	for _, p := range d.Pages {
		path := fmt.Sprintf("%s#page=%d", d.Filename, p.PageNumber)
		for _, img := range p.Images {
			set := img.Set
			if set == nil {
				set = symbol.NewSet()
			}
			out.Images = append(out.Images, batch.ImageResult{
				Path:     path,
				Index:    img.ImageIndex,
				Meta:     utils.ImageMetadata{Path: path, Width: img.Width, Height: img.Height},
				Symbols:  set,
				Duration: time.Duration(img.ElapsedMs * float64(time.Millisecond)),
			})
		}
	}
	return out
}

// pageBox maps an image-space rectangle onto the page, assuming the image
// covers the whole page.
func pageBox(sym *symbol.Symbol, imgW, imgH int, size PageSize) PageBox {
	b := sym.Bounds()
	if imgW <= 0 || imgH <= 0 || b.Empty() {
		return PageBox{}
	}
	sx := size.Width / float64(imgW)
	sy := size.Height / float64(imgH)
	h := float64(b.Dy()) * sy
	return PageBox{
		X: float64(b.Min.X) * sx,
		Y: size.Height - (float64(b.Min.Y)*sy + h),
		W: float64(b.Dx()) * sx,
		H: h,
	}
}
