// Package batch scans many image files concurrently and formats the results.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/MeKo-Tech/zbargo/internal/imagescanner"
)

// ErrNoImages is returned when the arguments name no image files.
var ErrNoImages = errors.New("no image files found")

// ProcessBatch scans every image named by paths (files or directories).
// The scanner is shared by all workers and should have its cache disabled.
func ProcessBatch(ctx context.Context, paths []string, scanner *imagescanner.Scanner, config *Config) (*Result, error) {
	files, err := discoverImageFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoImages
	}

	progress := config.Progress
	if progress == nil {
		progress = NoOpProgressCallback{}
		if config.ShowProgress && !config.Quiet {
			progress = NewConsoleProgressCallback(os.Stderr, "Scanning: ").WithUpdateInterval(config.ProgressInterval)
		}
	}

	startTime := time.Now()
	results, err := processFilesParallel(ctx, scanner, files, config, progress)
	duration := time.Since(startTime)
	if err != nil {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}

	return &Result{
		Images:      results,
		Duration:    duration,
		WorkerCount: min(max(config.Workers, 1), len(files)),
	}, nil
}
