package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/zbargo/internal/imagescanner"
)

type fileJob struct {
	index int
	path  string
}

// processFilesParallel scans files on a pool of workers sharing one scanner.
// Results come back in input order and callbacks are serialised. Unless continueOnError is set, the first
// failure cancels the remaining work and is returned.
func processFilesParallel(
	ctx context.Context,
	scanner *imagescanner.Scanner,
	files []string,
	cfg *Config,
	progress ProgressCallback,
) ([]ImageResult, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(files))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progress.OnStart(len(files))
	defer progress.OnComplete()

	jobs := make(chan fileJob)
	results := make([]ImageResult, len(files))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	done := 0

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				res := ScanFile(scanner, job.path, cfg.AnnotateDir)
				results[job.index] = res

				mu.Lock()
				done++
				if res.Err != nil {
					progress.OnError(job.index, res.Err)
					if !cfg.ContinueOnError && firstErr == nil {
						firstErr = fmt.Errorf("image %d: %w", job.index, res.Err)
						cancel()
					}
				}
				progress.OnProgress(done, len(files))
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, path := range files {
			select {
			case jobs <- fileJob{index: i, path: path}:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
