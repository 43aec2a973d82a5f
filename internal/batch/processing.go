package batch

import (
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/zbargo/internal/common"
	"github.com/MeKo-Tech/zbargo/internal/imagescanner"
	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
	"github.com/MeKo-Tech/zbargo/internal/utils"
)

// ScanFile loads and scans one image file. Failures are reported in the
// result rather than returned.
func ScanFile(scanner *imagescanner.Scanner, path, annotateDir string) ImageResult {
	res := ImageResult{Path: path}
	frame, meta, err := utils.LoadFrame(path)
	if err != nil {
		res.Err = fmt.Errorf("failed to load %s: %w", path, err)
		return res
	}
	res.Meta = meta
	res.Index = frame.Sequence
	return scanFrame(scanner, frame, res, annotateDir)
}

// ScanFrame scans an already decoded frame, for sources such as PDF pages.
func ScanFrame(scanner *imagescanner.Scanner, frame *raster.Image, path string, index int, annotateDir string) ImageResult {
	res := ImageResult{
		Path:  path,
		Index: index,
		Meta:  utils.ImageMetadata{Path: path, Format: frame.Format.String(), Width: frame.Width, Height: frame.Height},
	}
	return scanFrame(scanner, frame, res, annotateDir)
}

func scanFrame(scanner *imagescanner.Scanner, frame *raster.Image, res ImageResult, annotateDir string) ImageResult {
	timer := common.NewTimer()
	set, err := scanner.Scan(frame)
	res.Duration = timer.Stop()
	if err != nil {
		res.Err = fmt.Errorf("scan failed for %s: %w", res.Path, err)
		return res
	}
	res.Symbols = set
	timer.Frame(frame.Width, frame.Height, set.Len())
	slog.Debug("image scanned", "file", res.Path, "timing", timer)

	if annotateDir != "" && set.Len() > 0 {
		if err := saveAnnotation(frame, set, res, annotateDir); err != nil {
			slog.Warn("annotation not written", "file", res.Path, "error", err)
		}
	}
	return res
}

// saveAnnotation writes <base>[_<index>]_symbols.png into dir.
func saveAnnotation(frame *raster.Image, set *symbol.Set, res ImageResult, dir string) error {
	img, err := frame.ToImage()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	base := filepath.Base(res.Path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if res.Index > 0 {
		name = fmt.Sprintf("%s_%d", name, res.Index)
	}
	outPath := filepath.Join(dir, name+"_symbols.png")
	f, err := os.Create(outPath) //nolint:gosec // G304: outPath built from the user's annotate dir
	if err != nil {
		return err
	}
	if err := png.Encode(f, utils.Annotate(img, set, 2)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
