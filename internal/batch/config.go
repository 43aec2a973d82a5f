package batch

import (
	"time"

	"github.com/MeKo-Tech/zbargo/internal/symbol"
	"github.com/MeKo-Tech/zbargo/internal/utils"
)

// Config holds all configuration for batch processing.
type Config struct {
	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// AnnotateDir receives a copy of every image with its symbols outlined.
	AnnotateDir string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ProgressInterval time.Duration
	// Progress overrides the console progress bar chosen by ShowProgress.
	Progress ProgressCallback
}

// ImageResult is the outcome of scanning one image.
type ImageResult struct {
	Path string
	// Index numbers images within one source: PDF page images or video frames.
	Index    int
	Meta     utils.ImageMetadata
	Symbols  *symbol.Set
	Duration time.Duration
	Err      error
}

// Result holds the result of batch processing.
type Result struct {
	Images      []ImageResult
	Duration    time.Duration
	WorkerCount int
}

// SymbolCount is the number of symbols decoded over all images.
func (r *Result) SymbolCount() int {
	n := 0
	for _, img := range r.Images {
		if img.Symbols != nil {
			n += img.Symbols.Len()
		}
	}
	return n
}

// Failed is the number of images that could not be scanned.
func (r *Result) Failed() int {
	n := 0
	for _, img := range r.Images {
		if img.Err != nil {
			n++
		}
	}
	return n
}

// Stats holds throughput figures of a batch run.
type Stats struct {
	TotalImages      int           `json:"total_images" yaml:"total_images"`
	ProcessedImages  int           `json:"processed_images" yaml:"processed_images"`
	FailedImages     int           `json:"failed_images" yaml:"failed_images"`
	Symbols          int           `json:"symbols" yaml:"symbols"`
	WorkerCount      int           `json:"worker_count" yaml:"worker_count"`
	TotalDuration    time.Duration `json:"total_duration_ns" yaml:"total_duration_ns"`
	AveragePerImage  time.Duration `json:"average_per_image_ns" yaml:"average_per_image_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec" yaml:"throughput_per_sec"`
}

// Stats summarises the run.
func (r *Result) Stats() Stats {
	s := Stats{
		TotalImages:   len(r.Images),
		FailedImages:  r.Failed(),
		Symbols:       r.SymbolCount(),
		WorkerCount:   r.WorkerCount,
		TotalDuration: r.Duration,
	}
	s.ProcessedImages = s.TotalImages - s.FailedImages
	if s.ProcessedImages > 0 && r.Duration > 0 {
		s.AveragePerImage = r.Duration / time.Duration(s.ProcessedImages)
		s.ThroughputPerSec = float64(s.ProcessedImages) / r.Duration.Seconds()
	}
	return s
}
