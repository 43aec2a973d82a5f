package pdf

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/zbargo/internal/batch"
	"github.com/MeKo-Tech/zbargo/internal/imagescanner"
	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

// ProcessorConfig controls document scanning.
type ProcessorConfig struct {
	// Decrypt password-protected documents.
	AllowPasswords bool
	// Ask on the terminal when the supplied passwords fail.
	AllowPasswordPrompt bool
	// Images rendered below this resolution get a second, upsampled pass
	// when the native pass finds nothing. Zero disables the second pass.
	TargetDPI int
	// Upper bound for either side of an upsampled image.
	MaxDimension int
	// Page workers; zero means runtime.NumCPU.
	MaxWorkers int
	// Write annotated copies of images with symbols here when set.
	AnnotateDir string
}

// DefaultProcessorConfig returns the default processor configuration.
func DefaultProcessorConfig() *ProcessorConfig {
	return &ProcessorConfig{
		AllowPasswords: true,
		TargetDPI:      150,
		MaxDimension:   3000,
	}
}

// Processor scans the embedded images of PDF documents.
type Processor struct {
	scanner         *imagescanner.Scanner
	config          *ProcessorConfig
	passwordHandler *PasswordHandler
}

// NewProcessor creates a processor with the default configuration.
func NewProcessor(scanner *imagescanner.Scanner) *Processor {
	return NewProcessorWithConfig(scanner, DefaultProcessorConfig())
}

// NewProcessorWithConfig creates a processor with a custom configuration.
func NewProcessorWithConfig(scanner *imagescanner.Scanner, config *ProcessorConfig) *Processor {
	if config == nil {
		config = DefaultProcessorConfig()
	}
	if scanner == nil {
		scanner = imagescanner.New()
	}
	return &Processor{
		scanner:         scanner,
		config:          config,
		passwordHandler: NewPasswordHandler(config.AllowPasswordPrompt),
	}
}

// SetPasswordCredentials sets credentials tried for every encrypted document.
func (p *Processor) SetPasswordCredentials(creds *PasswordCredentials) {
	p.passwordHandler.SetDefaultCredentials(creds)
}

// Config returns the processor configuration.
func (p *Processor) Config() *ProcessorConfig { return p.config }

// ProcessFile scans the selected pages of a document.
func (p *Processor) ProcessFile(ctx context.Context, filename, pageRange string) (*DocumentResult, error) {
	return p.ProcessFileWithCredentials(ctx, filename, pageRange, nil)
}

// ProcessFileWithCredentials scans a document that may be password protected.
func (p *Processor) ProcessFileWithCredentials(ctx context.Context, filename, pageRange string,
	creds *PasswordCredentials,
) (*DocumentResult, error) {
	startTime := time.Now()

	selected, err := parsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}

	workingFilename, err := p.handlePasswordProtection(filename, creds)
	if err != nil {
		return nil, err
	}
	if workingFilename != filename {
		defer func() { _ = p.passwordHandler.CleanupTempFile(workingFilename) }()
	}

	total, sizes, err := PageInfo(workingFilename)
	if err != nil {
		slog.Debug("page info unavailable, assuming letter size", "file", filename, "error", err)
		sizes = map[int]PageSize{}
	}

	extractStart := time.Now()
	pageImages, err := ExtractImages(workingFilename, pageRange)
	if err != nil {
		return nil, err
	}
	extractTime := time.Since(extractStart)

	if total == 0 {
		for n := range pageImages {
			total = max(total, n)
		}
	}

	scanStart := time.Now()
	pages, err := p.processAllPages(ctx, filename, collectPageNumbers(pageImages, selected, total), pageImages, sizes)
	if err != nil {
		return nil, err
	}

	return &DocumentResult{
		Filename:   filename,
		TotalPages: total,
		Encrypted:  workingFilename != filename,
		Pages:      pages,
		Processing: ProcessingInfo{
			ExtractionTimeMs: extractTime.Milliseconds(),
			ScanTimeMs:       time.Since(scanStart).Milliseconds(),
			TotalTimeMs:      time.Since(startTime).Milliseconds(),
		},
	}, nil
}

// ProcessFiles scans several documents with the same page range.
func (p *Processor) ProcessFiles(ctx context.Context, filenames []string, pageRange string) ([]*DocumentResult, error) {
	results := make([]*DocumentResult, 0, len(filenames))
	for _, f := range filenames {
		res, err := p.ProcessFile(ctx, f, pageRange)
		if err != nil {
			return results, fmt.Errorf("%s: %w", f, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (p *Processor) handlePasswordProtection(filename string, creds *PasswordCredentials) (string, error) {
	if !p.config.AllowPasswords {
		return filename, nil
	}

	return p.passwordHandler.DecryptPDF(filename, creds)
}

// collectPageNumbers lists the pages to report: the selection (or every page)
// plus any page pdfcpu returned images for.
func collectPageNumbers(pageImages map[int][]image.Image, selected []int, total int) []int {
	seen := make(map[int]bool)
	if len(selected) == 0 {
		for n := 1; n <= total; n++ {
			seen[n] = true
		}
	}
	for _, n := range selected {
		if n >= 1 && (total == 0 || n <= total) {
			seen[n] = true
		}
	}
	for n := range pageImages {
		seen[n] = true
	}

	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

func (p *Processor) processAllPages(ctx context.Context, filename string, pageList []int,
	pageImages map[int][]image.Image, sizes map[int]PageSize,
) ([]PageResult, error) {
	type out struct {
		page int
		res  PageResult
		err  error
	}

	workers := p.config.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = max(1, min(workers, len(pageList)))

	jobs := make(chan int, len(pageList))
	results := make(chan out, len(pageList))

	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			for pageNum := range jobs {
				if err := ctx.Err(); err != nil {
					results <- out{page: pageNum, err: err}
					continue
				}
				size, ok := sizes[pageNum]
				if !ok {
					size = PageSize{Width: defaultPageWidth, Height: defaultPageHeight}
				}
				res, err := p.processPage(filename, pageNum, pageImages[pageNum], size)
				results <- out{page: pageNum, res: res, err: err}
			}
		})
	}

	for _, n := range pageList {
		jobs <- n
	}
	close(jobs)
	go func() { wg.Wait(); close(results) }()

	byPage := make(map[int]PageResult, len(pageList))
	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to process page %d: %w", r.page, r.err)
			}
			continue
		}
		byPage[r.page] = r.res
	}
	if firstErr != nil {
		return nil, firstErr
	}

	pages := make([]PageResult, 0, len(pageList))
	for _, n := range pageList {
		pages = append(pages, byPage[n])
	}
	return pages, nil
}

func (p *Processor) processPage(filename string, pageNum int, images []image.Image, size PageSize) (PageResult, error) {
	res := PageResult{PageNumber: pageNum, Size: size, Images: make([]ImageResult, 0, len(images))}
	path := fmt.Sprintf("%s#page=%d", filename, pageNum)

	for i, img := range images {
		frame, err := raster.FromImage(img)
		if err != nil {
			return res, fmt.Errorf("image %d: %w", i, err)
		}
		scanned := batch.ScanFrame(p.scanner, frame, path, i, p.config.AnnotateDir)
		if scanned.Err != nil {
			return res, scanned.Err
		}

		ir := ImageResult{
			ImageIndex: i,
			Width:      frame.Width,
			Height:     frame.Height,
			Scale:      1,
			ElapsedMs:  float64(scanned.Duration) / float64(time.Millisecond),
			Set:        scanned.Symbols,
		}
		if ir.Set.Len() == 0 {
			if set, scale, ok := p.upsampledPass(img, size); ok {
				ir.Set, ir.Scale = set, scale
			}
		}
		ir.Symbols = ir.Set.Records()
		for sym := range ir.Set.All() {
			ir.PageBoxes = append(ir.PageBoxes, pageBox(sym, frame.Width, frame.Height, size))
		}
		res.Images = append(res.Images, ir)
	}
	return res, nil
}

// upsampledPass rescans a low resolution image at TargetDPI. Symbol points
// are mapped back into the original image space.
func (p *Processor) upsampledPass(img image.Image, size PageSize) (*symbol.Set, float64, bool) {
	if p.config.TargetDPI <= 0 {
		return nil, 0, false
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	dpi := size.DPI(w, h)
	if dpi <= 0 || dpi >= float64(p.config.TargetDPI) {
		return nil, 0, false
	}

	scale := float64(p.config.TargetDPI) / dpi
	if limit := p.config.MaxDimension; limit > 0 && float64(max(w, h))*scale > float64(limit) {
		scale = float64(limit) / float64(max(w, h))
	}
	if scale <= 1 {
		return nil, 0, false
	}

	newW := int(math.Round(float64(w) * scale))
	newH := int(math.Round(float64(h) * scale))
	frame, err := raster.FromImage(imaging.Resize(img, newW, newH, imaging.Lanczos))
	if err != nil {
		return nil, 0, false
	}
	set, err := p.scanner.Scan(frame)
	if err != nil || set.Len() == 0 {
		return nil, 0, false
	}

	for sym := range set.All() {
		for k, pt := range sym.Points {
			sym.Points[k] = symbol.Point{
				X: int(math.Round(float64(pt.X) / scale)),
				Y: int(math.Round(float64(pt.Y) / scale)),
			}
		}
	}
	slog.Debug("symbols found on upsampled pass", "scale", scale, "symbols", set.Len())
	return set, scale, true
}
