package raster

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// FrameMagic opens every persisted frame.
const FrameMagic = "ZBF1"

// FrameExt is the conventional file extension of persisted frames.
const FrameExt = ".zbf"

// ErrBadFrame is returned when a persisted frame header is malformed.
var ErrBadFrame = errors.New("malformed frame container")

// header layout: magic[4] fourcc[4] width[4] height[4] sequence[4] payload[4], little-endian.
const headerLen = 24

var zstdEncPool = sync.Pool{
	New: func() any {
		enc, err := zstd.NewWriter(nil,
			zstd.WithEncoderConcurrency(1),
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithLowerEncoderMem(true),
		)
		if err != nil {
			panic(err)
		}
		return enc
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
			zstd.WithDecoderMaxMemory(MaxFrameBytes),
		)
		if err != nil {
			panic(err)
		}
		return dec
	},
}

// WriteFrame persists img as a zstd-compressed frame with its FourCC tag.
func WriteFrame(w io.Writer, img *Image) error {
	enc, _ := zstdEncPool.Get().(*zstd.Encoder)
	payload := enc.EncodeAll(img.data, nil)
	zstdEncPool.Put(enc)

	var hdr [headerLen]byte
	copy(hdr[:4], FrameMagic)
	binary.LittleEndian.PutUint32(hdr[4:], uint32(img.Format))
	binary.LittleEndian.PutUint32(hdr[8:], uint32(img.Width))
	binary.LittleEndian.PutUint32(hdr[12:], uint32(img.Height))
	binary.LittleEndian.PutUint32(hdr[16:], uint32(img.Sequence))
	binary.LittleEndian.PutUint32(hdr[20:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one frame written by WriteFrame. It returns io.EOF when r is exhausted
// before a header starts.
func ReadFrame(r io.Reader) (*Image, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame header: %w", err)
	}
	if string(hdr[:4]) != FrameMagic {
		return nil, fmt.Errorf("magic %q: %w", hdr[:4], ErrBadFrame)
	}
	format := Format(binary.LittleEndian.Uint32(hdr[4:]))
	width := int(binary.LittleEndian.Uint32(hdr[8:]))
	height := int(binary.LittleEndian.Uint32(hdr[12:]))
	seq := int(binary.LittleEndian.Uint32(hdr[16:]))
	n := int64(binary.LittleEndian.Uint32(hdr[20:]))

	size, err := FrameSize(format, width, height)
	if err != nil {
		return nil, err
	}
	if n > MaxFrameBytes {
		return nil, fmt.Errorf("payload of %d bytes: %w", n, ErrBadFrame)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}

	dec, _ := zstdDecPool.Get().(*zstd.Decoder)
	data, err := dec.DecodeAll(payload, make([]byte, 0, size))
	zstdDecPool.Put(dec)
	if err != nil {
		return nil, fmt.Errorf("decompress frame: %w", err)
	}
	if len(data) != size {
		return nil, fmt.Errorf("%s %dx%d holds %d bytes: %w", format, width, height, len(data), ErrBadFrame)
	}
	img := wrap(width, height, format, data)
	img.Sequence = seq
	return img, nil
}
