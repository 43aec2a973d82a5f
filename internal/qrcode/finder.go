package qrcode

import (
	"math"

	"github.com/MeKo-Tech/zbargo/internal/decoder"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

// Segment is one scan-line crossing of a finder pattern.
type Segment struct {
	Vertical bool
	// Line is the row (or column, when Vertical) that was scanned.
	Line int
	// Start and End bound the whole 1:1:3:1:1 run along the line.
	Start, End float64
	// Center is the middle of the 3 module bar.
	Center float64
	Module float64
}

var finderPattern = [5]float64{1, 1, 3, 1, 1}

// FinderDecoder spots finder pattern crossings on scan-lines. It never
// yields candidates; the segments it records feed the Detector.
type FinderDecoder struct {
	vertical bool
	line     int
	last     [6]decoder.Element
	n        int
	segs     []Segment
}

// NewFinderDecoder returns an empty FinderDecoder.
func NewFinderDecoder() *FinderDecoder { return &FinderDecoder{} }

func (f *FinderDecoder) Symbology() symbol.Base { return symbol.QRCode }

// SetLine names the line fed next.
func (f *FinderDecoder) SetLine(vertical bool, line int) {
	f.vertical, f.line = vertical, line
}

// Reset starts a new line and keeps the recorded segments.
func (f *FinderDecoder) Reset() { f.n = 0 }

func (f *FinderDecoder) Flush() []decoder.Candidate { return nil }

func (f *FinderDecoder) Push(e decoder.Element) []decoder.Candidate {
	copy(f.last[:], f.last[1:])
	f.last[5] = e
	f.n++
	if e.Bar || f.n < 6 {
		return nil
	}
	run := f.last[:5]
	if !run[0].Bar {
		return nil
	}
	total := run[4].End() - run[0].Start
	m := total / 7
	if m < 1 {
		return nil
	}
	for i, el := range run {
		if math.Abs(el.Width-finderPattern[i]*m) > m*finderPattern[i]/2+m/4 {
			return nil
		}
	}
	f.segs = append(f.segs, Segment{
		Vertical: f.vertical,
		Line:     f.line,
		Start:    run[0].Start,
		End:      run[4].End(),
		Center:   run[2].Start + run[2].Width/2,
		Module:   m,
	})
	return nil
}

// Segments returns the crossings recorded since the last Clear.
func (f *FinderDecoder) Segments() []Segment { return f.segs }

// Clear drops the recorded segments.
func (f *FinderDecoder) Clear() { f.segs = f.segs[:0] }
