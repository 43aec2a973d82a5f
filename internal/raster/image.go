package raster

import (
	"fmt"
	"image"
)

// Image is a width x height frame of samples in a four-character format.
// The sample buffer is owned exclusively by the Image and never changes after construction.
type Image struct {
	Width    int
	Height   int
	Format   Format
	Sequence int // frame number assigned by video sources

	data []byte
}

// New creates an image from a copy of data. A nil data slice allocates a zeroed frame.
func New(width, height int, format Format, data []byte) (*Image, error) {
	size, err := FrameSize(format, width, height)
	if err != nil {
		return nil, err
	}
	buf, err := allocate(size)
	if err != nil {
		return nil, err
	}
	if data != nil {
		if len(data) != size {
			return nil, fmt.Errorf("%s %dx%d wants %d bytes, got %d: %w",
				format, width, height, size, len(data), ErrBufferSize)
		}
		copy(buf, data)
	}
	return &Image{Width: width, Height: height, Format: format, data: buf}, nil
}

// wrap adopts buf without copying; used for freshly produced conversion output.
func wrap(width, height int, format Format, buf []byte) *Image {
	return &Image{Width: width, Height: height, Format: format, data: buf}
}

func allocate(size int) (buf []byte, err error) {
	if size <= 0 || size > MaxFrameBytes {
		return nil, fmt.Errorf("frame of %d bytes: %w", size, ErrAllocation)
	}
	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, fmt.Errorf("frame of %d bytes: %v: %w", size, r, ErrAllocation)
		}
	}()
	return make([]byte, size), nil
}

// Data returns a copy of the sample buffer.
func (img *Image) Data() []byte {
	out := make([]byte, len(img.data))
	copy(out, img.data)
	return out
}

// Len returns the sample buffer length in bytes.
func (img *Image) Len() int { return len(img.data) }

// Row returns the luma samples of row y. The slice aliases the image and must not be modified.
// It panics when the image is not a gray format.
func (img *Image) Row(y int) []byte {
	if !img.Format.IsGray() {
		panic(fmt.Sprintf("raster: Row on %s image", img.Format))
	}
	return img.data[y*img.Width : (y+1)*img.Width]
}

// Column copies the luma samples of column x into dst, growing it when needed.
func (img *Image) Column(x int, dst []byte) []byte {
	if !img.Format.IsGray() {
		panic(fmt.Sprintf("raster: Column on %s image", img.Format))
	}
	if cap(dst) < img.Height {
		dst = make([]byte, img.Height)
	}
	dst = dst[:img.Height]
	for y := range img.Height {
		dst[y] = img.data[y*img.Width+x]
	}
	return dst
}

// At returns the luma sample at (x, y) for gray images.
func (img *Image) At(x, y int) byte {
	return img.data[y*img.Width+x]
}

// FromImage converts a Go image into a Y800 frame.
func FromImage(src image.Image) (*Image, error) {
	if src == nil {
		return nil, fmt.Errorf("nil source image: %w", ErrUnsupportedFormat)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	size, err := FrameSize(Y800, w, h)
	if err != nil {
		return nil, err
	}
	buf, err := allocate(size)
	if err != nil {
		return nil, err
	}
	switch s := src.(type) {
	case *image.Gray:
		for y := range h {
			copy(buf[y*w:(y+1)*w], s.Pix[y*s.Stride:y*s.Stride+w])
		}
	case *image.RGBA:
		for y := range h {
			row := s.Pix[y*s.Stride:]
			for x := range w {
				buf[y*w+x] = luma(row[4*x], row[4*x+1], row[4*x+2])
			}
		}
	case *image.NRGBA:
		for y := range h {
			row := s.Pix[y*s.Stride:]
			for x := range w {
				buf[y*w+x] = luma(row[4*x], row[4*x+1], row[4*x+2])
			}
		}
	default:
		for y := range h {
			for x := range w {
				r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
				buf[y*w+x] = luma(byte(r>>8), byte(g>>8), byte(bl>>8))
			}
		}
	}
	return wrap(w, h, Y800, buf), nil
}

// ToImage renders the frame as a Go image: *image.Gray for gray formats, *image.RGBA otherwise.
func (img *Image) ToImage() (image.Image, error) {
	if img.Format.IsGray() {
		g := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
		copy(g.Pix, img.data)
		return g, nil
	}
	rgb, err := Convert(img, RGB4)
	if err != nil {
		return nil, err
	}
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for i := 0; i < img.Width*img.Height; i++ {
		out.Pix[4*i] = rgb.data[4*i]
		out.Pix[4*i+1] = rgb.data[4*i+1]
		out.Pix[4*i+2] = rgb.data[4*i+2]
		out.Pix[4*i+3] = 0xff
	}
	return out, nil
}
