package raster

import (
	"errors"
	"fmt"
)

// MaxFrameBytes bounds the size of a single frame buffer.
const MaxFrameBytes = 1 << 30

var (
	// ErrUnsupportedFormat is returned when no conversion path exists between two formats.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrAllocation is returned when a frame buffer cannot be allocated.
	ErrAllocation = errors.New("image buffer allocation failed")
	// ErrBufferSize is returned when a caller buffer does not match the declared dimensions.
	ErrBufferSize = errors.New("buffer size does not match image dimensions")
)

// FormatError describes a failed format operation.
type FormatError struct {
	Op   string
	From Format
	To   Format
	Err  error
}

func (e *FormatError) Error() string {
	if e.To == 0 {
		return fmt.Sprintf("raster %s %s: %v", e.Op, e.From, e.Err)
	}
	return fmt.Sprintf("raster %s %s -> %s: %v", e.Op, e.From, e.To, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }
