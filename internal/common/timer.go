// Package common holds the timing and memory accounting shared by the scan
// front ends: single images, video streams, batches and benchmarks.
package common

import (
	"fmt"
	"log/slog"
	"time"
)

// Timer measures scanning work. Besides the elapsed time it counts the frames,
// pixels and symbols recorded with Frame, so throughput comes from the same
// measurement as the latency.
type Timer struct {
	label   string
	start   time.Time
	elapsed time.Duration
	stopped bool

	frames  int
	pixels  int
	symbols int
}

// Throughput is the work done per second of elapsed time.
type Throughput struct {
	FramesPerSec     float64
	MegapixelsPerSec float64
	SymbolsPerSec    float64
}

// NewTimer starts an unlabelled timer.
func NewTimer() *Timer { return NewNamedTimer("") }

// NewNamedTimer starts a timer whose String and log output carry label.
func NewNamedTimer(label string) *Timer {
	return &Timer{label: label, start: time.Now()}
}

// Frame records one scanned frame of width x height that yielded symbols.
func (t *Timer) Frame(width, height, symbols int) {
	t.frames++
	t.pixels += width * height
	t.symbols += symbols
}

// Stop freezes the elapsed time. Later calls return the first measurement.
func (t *Timer) Stop() time.Duration {
	if !t.stopped {
		t.elapsed = time.Since(t.start)
		t.stopped = true
	}
	return t.elapsed
}

// Elapsed is the frozen time after Stop and the running time before it.
func (t *Timer) Elapsed() time.Duration {
	if t.stopped {
		return t.elapsed
	}
	return time.Since(t.start)
}

// Label returns the label given to NewNamedTimer.
func (t *Timer) Label() string { return t.label }

// Frames, Pixels and Symbols return the recorded totals.
func (t *Timer) Frames() int  { return t.frames }
func (t *Timer) Pixels() int  { return t.pixels }
func (t *Timer) Symbols() int { return t.symbols }

// Throughput divides the recorded work by the elapsed time. It is zero until
// some time has passed.
func (t *Timer) Throughput() Throughput {
	sec := t.Elapsed().Seconds()
	if sec <= 0 {
		return Throughput{}
	}
	return Throughput{
		FramesPerSec:     float64(t.frames) / sec,
		MegapixelsPerSec: float64(t.pixels) / 1e6 / sec,
		SymbolsPerSec:    float64(t.symbols) / sec,
	}
}

// LogValue implements slog.LogValuer.
func (t *Timer) LogValue() slog.Value {
	tp := t.Throughput()
	return slog.GroupValue(
		slog.Duration("elapsed", t.Elapsed()),
		slog.Int("frames", t.frames),
		slog.Int("symbols", t.symbols),
		slog.Float64("mp_per_sec", tp.MegapixelsPerSec),
	)
}

func (t *Timer) String() string {
	s := fmt.Sprintf("%v", t.Elapsed().Round(time.Microsecond))
	if t.frames > 0 {
		s += fmt.Sprintf(", %d frames, %d symbols, %.1f MP/s",
			t.frames, t.symbols, t.Throughput().MegapixelsPerSec)
	}
	if t.label != "" {
		s = t.label + ": " + s
	}
	return s
}
