// Package decoder holds the scanner configuration and the one-dimensional
// symbology decoders. Each decoder consumes the bar/space elements of one
// scan-line and reports candidates once start, stop and check patterns agree.
package decoder

import (
	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

// Candidate is a decode produced on a single scan-line.
type Candidate struct {
	Type symbol.Type
	Data []byte
	// Start and End delimit the symbol along the scan-line, in pixels.
	Start, End float64
	// Reversed is set when the symbol was read against the scan direction.
	Reversed bool
}

// LineDecoder is a per-symbology state machine fed one scan-line at a time.
// Decode failures never surface as errors; they only reset the decoder's own state.
type LineDecoder interface {
	// Symbology names the decoder's family for logging and statistics.
	Symbology() symbol.Base
	// Reset prepares the decoder for a new scan-line.
	Reset()
	// Push consumes the next element and returns any completed candidates.
	Push(e Element) []Candidate
	// Flush ends the scan-line and returns candidates held back until then.
	Flush() []Candidate
}

// New1D returns the enabled one-dimensional decoders for cfg.
func New1D(cfg *Config) []LineDecoder {
	var out []LineDecoder
	if cfg.AnyEnabled(symbol.EAN13, symbol.EAN8, symbol.UPCA, symbol.UPCE, symbol.ISBN10, symbol.ISBN13) {
		out = append(out, NewEAN(cfg))
	}
	if cfg.Enabled(symbol.Code39) {
		out = append(out, NewCode39(cfg.Settings(symbol.Code39)))
	}
	if cfg.Enabled(symbol.Code128) {
		out = append(out, NewCode128(cfg.Settings(symbol.Code128)))
	}
	if cfg.Enabled(symbol.I25) {
		out = append(out, NewI25(cfg.Settings(symbol.I25)))
	}
	return out
}

func span(r *ring, first, last int) (float64, float64) {
	return r.back(first).Start, r.back(last).End()
}

// State is the progress of a decoder on the current scan-line.
type State int

const (
	StateIdle State = iota
	StateAccumulating
	StateCandidate
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateAccumulating:
		return "accumulating"
	case StateCandidate:
		return "candidate"
	case StateComplete:
		return "complete"
	}
	return "idle"
}

// quietModules is the minimum quiet zone, in modules, on both sides of a 1-D symbol.
const quietModules = 5.0
