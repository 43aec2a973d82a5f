package raster

import (
	"fmt"
	"strings"
)

// Format is a four-character sample format code, packed as c0 | c1<<8 | c2<<16 | c3<<24.
type Format uint32

// FourCC packs four ASCII bytes into a Format.
func FourCC(c0, c1, c2, c3 byte) Format {
	return Format(uint32(c0) | uint32(c1)<<8 | uint32(c2)<<16 | uint32(c3)<<24)
}

// Known sample formats.
const (
	Y800 Format = 'Y' | '8'<<8 | '0'<<16 | '0'<<24
	GREY Format = 'G' | 'R'<<8 | 'E'<<16 | 'Y'<<24
	GRAY Format = 'G' | 'R'<<8 | 'A'<<16 | 'Y'<<24
	Y8   Format = 'Y' | '8'<<8 | ' '<<16 | ' '<<24
	RGB3 Format = 'R' | 'G'<<8 | 'B'<<16 | '3'<<24
	BGR3 Format = 'B' | 'G'<<8 | 'R'<<16 | '3'<<24
	RGB4 Format = 'R' | 'G'<<8 | 'B'<<16 | '4'<<24
	BGR4 Format = 'B' | 'G'<<8 | 'R'<<16 | '4'<<24
	I420 Format = 'I' | '4'<<8 | '2'<<16 | '0'<<24
	YU12 Format = 'Y' | 'U'<<8 | '1'<<16 | '2'<<24
	YV12 Format = 'Y' | 'V'<<8 | '1'<<16 | '2'<<24
	YUYV Format = 'Y' | 'U'<<8 | 'Y'<<16 | 'V'<<24
	UYVY Format = 'U' | 'Y'<<8 | 'V'<<16 | 'Y'<<24
)

type layout int

const (
	layoutGray layout = iota
	layoutRGB
	layoutPlanar420
	layoutPacked422
)

// formatInfo describes how samples of a format are laid out in memory.
type formatInfo struct {
	layout layout
	// bytes per pixel for layoutRGB, channel offsets r/g/b
	bpp     int
	r, g, b int
	// planar: V plane precedes U plane
	swapUV bool
	// packed 4:2:2: offsets of Y0, U and V inside a 4-byte macropixel
	y0, u, v int
	// dimension alignment
	xAlign, yAlign int
}

var formats = map[Format]formatInfo{
	Y800: {layout: layoutGray, xAlign: 1, yAlign: 1},
	GREY: {layout: layoutGray, xAlign: 1, yAlign: 1},
	GRAY: {layout: layoutGray, xAlign: 1, yAlign: 1},
	Y8:   {layout: layoutGray, xAlign: 1, yAlign: 1},
	RGB3: {layout: layoutRGB, bpp: 3, r: 0, g: 1, b: 2, xAlign: 1, yAlign: 1},
	BGR3: {layout: layoutRGB, bpp: 3, r: 2, g: 1, b: 0, xAlign: 1, yAlign: 1},
	RGB4: {layout: layoutRGB, bpp: 4, r: 0, g: 1, b: 2, xAlign: 1, yAlign: 1},
	BGR4: {layout: layoutRGB, bpp: 4, r: 2, g: 1, b: 0, xAlign: 1, yAlign: 1},
	I420: {layout: layoutPlanar420, xAlign: 2, yAlign: 2},
	YU12: {layout: layoutPlanar420, xAlign: 2, yAlign: 2},
	YV12: {layout: layoutPlanar420, swapUV: true, xAlign: 2, yAlign: 2},
	YUYV: {layout: layoutPacked422, y0: 0, u: 1, v: 3, xAlign: 2, yAlign: 1},
	UYVY: {layout: layoutPacked422, y0: 1, u: 0, v: 2, xAlign: 2, yAlign: 1},
}

// String renders the code as its four characters, or as hex when any byte is not printable.
func (f Format) String() string {
	b := [4]byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("0x%08x", uint32(f))
		}
	}
	return string(b[:])
}

// IsGray reports whether the scan-line decoder can read f directly.
func (f Format) IsGray() bool {
	info, ok := formats[f]
	return ok && info.layout == layoutGray
}

// Known reports whether f has a registered layout.
func (f Format) Known() bool {
	_, ok := formats[f]
	return ok
}

// ParseFormat converts a textual code such as "Y800" or "RGB3" into a Format.
// Codes shorter than four characters are padded with spaces.
func ParseFormat(s string) (Format, error) {
	if len(s) == 0 || len(s) > 4 {
		return 0, fmt.Errorf("invalid format code %q: %w", s, ErrUnsupportedFormat)
	}
	code := []byte(strings.ToUpper(s) + strings.Repeat(" ", 4-len(s)))
	f := FourCC(code[0], code[1], code[2], code[3])
	if !f.Known() {
		return 0, &FormatError{Op: "parse", From: f, Err: ErrUnsupportedFormat}
	}
	return f, nil
}

// Formats returns every registered format code.
func Formats() []Format {
	out := make([]Format, 0, len(formats))
	for f := range formats {
		out = append(out, f)
	}
	return out
}

// FrameSize returns the number of bytes a width x height frame occupies in format f.
func FrameSize(f Format, width, height int) (int, error) {
	info, ok := formats[f]
	if !ok {
		return 0, &FormatError{Op: "size", From: f, Err: ErrUnsupportedFormat}
	}
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("dimensions %dx%d: %w", width, height, ErrAllocation)
	}
	if width%info.xAlign != 0 || height%info.yAlign != 0 {
		return 0, fmt.Errorf("%s requires dimensions aligned to %dx%d, got %dx%d: %w",
			f, info.xAlign, info.yAlign, width, height, ErrBufferSize)
	}
	pixels := int64(width) * int64(height)
	var n int64
	switch info.layout {
	case layoutGray:
		n = pixels
	case layoutRGB:
		n = pixels * int64(info.bpp)
	case layoutPlanar420:
		n = pixels + pixels/2
	case layoutPacked422:
		n = pixels * 2
	}
	if n > MaxFrameBytes {
		return 0, fmt.Errorf("frame of %d bytes exceeds limit of %d: %w", n, MaxFrameBytes, ErrAllocation)
	}
	return int(n), nil
}

// alignUp rounds width and height up to the block size of f.
func alignUp(f Format, width, height int) (int, int) {
	info := formats[f]
	if r := width % info.xAlign; r != 0 {
		width += info.xAlign - r
	}
	if r := height % info.yAlign; r != 0 {
		height += info.yAlign - r
	}
	return width, height
}
