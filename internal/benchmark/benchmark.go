// Package benchmark measures scanner throughput over fixed image sets.
package benchmark

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/zbargo/internal/common"
	"github.com/MeKo-Tech/zbargo/internal/imagescanner"
	"github.com/MeKo-Tech/zbargo/internal/raster"
)

// Benchmark represents a benchmark function.
type Benchmark struct {
	Name string
	Func func() error
}

// Suite manages multiple benchmarks.
type Suite struct {
	benchmarks []Benchmark
	results    []common.BenchmarkResult
	mu         sync.Mutex
}

// NewSuite creates a new benchmark suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add adds a benchmark to the suite.
func (s *Suite) Add(name string, fn func() error) {
	s.benchmarks = append(s.benchmarks, Benchmark{Name: name, Func: fn})
}

// Run runs a single benchmark with the specified number of iterations.
func (s *Suite) Run(name string, iterations int) common.BenchmarkResult {
	for _, b := range s.benchmarks {
		if b.Name == name {
			return runBenchmark(b, iterations)
		}
	}
	return common.BenchmarkResult{Name: name, Error: fmt.Errorf("benchmark '%s' not found", name)}
}

// RunAll runs all benchmarks in the suite.
func (s *Suite) RunAll(iterations int) []common.BenchmarkResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = make([]common.BenchmarkResult, 0, len(s.benchmarks))
	for _, b := range s.benchmarks {
		s.results = append(s.results, runBenchmark(b, iterations))
	}
	return s.results
}

func runBenchmark(b Benchmark, iterations int) common.BenchmarkResult {
	runtime.GC()
	before := common.GetMemoryStats()

	timer := common.NewNamedTimer(b.Name)
	var err error
	done := 0
	for range iterations {
		if err = b.Func(); err != nil {
			break
		}
		done++
	}
	elapsed := timer.Stop()

	return common.BenchmarkResult{
		Name:       b.Name,
		Iterations: done,
		Duration:   elapsed,
		Allocs:     common.GetMemoryStats().Since(before),
		Error:      err,
	}
}

// Results returns the last RunAll results.
func (s *Suite) Results() []common.BenchmarkResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// PrintResults writes one line per result.
func (s *Suite) PrintResults(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Benchmark Results:")
	_, _ = fmt.Fprintln(w, "==================")
	for _, r := range s.Results() {
		_, _ = fmt.Fprintln(w, r.String())
	}
}

// ScanResult extends a benchmark result with what the scans found.
type ScanResult struct {
	common.BenchmarkResult
	Width, Height int
	Symbols       int
	Throughput    common.Throughput
}

// MegapixelsPerSec is the scan throughput.
func (r ScanResult) MegapixelsPerSec() float64 { return r.Throughput.MegapixelsPerSec }

func (r ScanResult) String() string {
	if r.Error != nil {
		return r.BenchmarkResult.String()
	}
	return fmt.Sprintf("%s (%dx%d, %d symbols, %.1f MP/s)", r.BenchmarkResult.String(),
		r.Width, r.Height, r.Symbols, r.MegapixelsPerSec())
}

// ScanBenchmark times a scanner over a set of frames.
type ScanBenchmark struct {
	scanner *imagescanner.Scanner
	names   []string
	frames  []*raster.Image
}

// NewScanBenchmark creates a benchmark for scanner; nil uses a default scanner.
func NewScanBenchmark(scanner *imagescanner.Scanner) *ScanBenchmark {
	if scanner == nil {
		scanner = imagescanner.New()
	}
	return &ScanBenchmark{scanner: scanner}
}

// AddImage registers a frame under name.
func (b *ScanBenchmark) AddImage(name string, frame *raster.Image) {
	b.names = append(b.names, name)
	b.frames = append(b.frames, frame)
}

// Run scans every frame iterations times.
func (b *ScanBenchmark) Run(iterations int) []ScanResult {
	out := make([]ScanResult, 0, len(b.frames))
	for i, frame := range b.frames {
		symbols := 0
		work := common.NewNamedTimer(b.names[i])
		suite := NewSuite()
		suite.Add(b.names[i], func() error {
			set, err := b.scanner.Scan(frame)
			if err != nil {
				return err
			}
			symbols = set.Len()
			work.Frame(frame.Width, frame.Height, symbols)
			return nil
		})
		res := suite.Run(b.names[i], iterations)
		work.Stop()
		out = append(out, ScanResult{
			BenchmarkResult: res,
			Width:           frame.Width,
			Height:          frame.Height,
			Symbols:         symbols,
			Throughput:      work.Throughput(),
		})
	}
	return out
}
