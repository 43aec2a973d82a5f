package common

import (
	"fmt"
	"runtime"
	"time"
)

// MemoryStats is the part of runtime.MemStats the scan benchmarks report.
type MemoryStats struct {
	HeapAlloc  uint64
	HeapInuse  uint64
	TotalAlloc uint64
	Mallocs    uint64
	Sys        uint64
	NumGC      uint32
}

// GetMemoryStats reads the current runtime memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		HeapAlloc:  m.HeapAlloc,
		HeapInuse:  m.HeapInuse,
		TotalAlloc: m.TotalAlloc,
		Mallocs:    m.Mallocs,
		Sys:        m.Sys,
		NumGC:      m.NumGC,
	}
}

func (m MemoryStats) String() string {
	return fmt.Sprintf("heap %s (in use %s), sys %s, %d GCs",
		mib(m.HeapAlloc), mib(m.HeapInuse), mib(m.Sys), m.NumGC)
}

// Allocs is the allocation activity between two MemoryStats readings.
type Allocs struct {
	Bytes   uint64
	Objects uint64
	GCs     uint32
}

// Since returns what was allocated between before and m. The cumulative
// counters never decrease, so the difference is always meaningful.
func (m MemoryStats) Since(before MemoryStats) Allocs {
	return Allocs{
		Bytes:   m.TotalAlloc - before.TotalAlloc,
		Objects: m.Mallocs - before.Mallocs,
		GCs:     m.NumGC - before.NumGC,
	}
}

func mib(n uint64) string { return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20)) }

// BenchmarkResult is the outcome of running one benchmark several times.
type BenchmarkResult struct {
	Name       string
	Iterations int
	Duration   time.Duration
	Allocs     Allocs
	Error      error
}

// PerOp is the mean time of one completed iteration.
func (r BenchmarkResult) PerOp() time.Duration {
	if r.Iterations == 0 {
		return 0
	}
	return r.Duration / time.Duration(r.Iterations)
}

// BytesPerOp and AllocsPerOp spread the allocation totals over the iterations.
func (r BenchmarkResult) BytesPerOp() uint64 {
	if r.Iterations == 0 {
		return 0
	}
	return r.Allocs.Bytes / uint64(r.Iterations) //nolint:gosec // G115: iterations are positive here
}

func (r BenchmarkResult) AllocsPerOp() uint64 {
	if r.Iterations == 0 {
		return 0
	}
	return r.Allocs.Objects / uint64(r.Iterations) //nolint:gosec // G115: iterations are positive here
}

func (r BenchmarkResult) String() string {
	if r.Error != nil {
		return fmt.Sprintf("%s: ERROR after %d iterations - %v", r.Name, r.Iterations, r.Error)
	}
	return fmt.Sprintf("%s: %d iterations, %v/op, %d B/op, %d allocs/op, total %v",
		r.Name, r.Iterations, r.PerOp(), r.BytesPerOp(), r.AllocsPerOp(), r.Duration)
}
