package utils

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// SupportedImageExtensions lists supported file extensions for loading.
var SupportedImageExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp", raster.FrameExt,
}

// ErrUnsupportedFile is returned for paths whose extension no decoder handles.
var ErrUnsupportedFile = errors.New("unsupported image file")

// ImageProcessingError represents errors that can occur while loading images.
type ImageProcessingError struct {
	Operation string
	Path      string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("image processing error in %s %s: %v", e.Operation, e.Path, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// IsSupportedImage reports whether the path has a supported image extension.
func IsSupportedImage(path string) bool {
	return slices.Contains(SupportedImageExtensions, strings.ToLower(filepath.Ext(path)))
}

// ImageMetadata captures lightweight file and pixel information.
type ImageMetadata struct {
	Path      string `json:"path"`
	Format    string `json:"format"`
	SizeBytes int64  `json:"size_bytes"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// LoadImage opens and decodes an image file, applying its EXIF orientation.
func LoadImage(path string) (image.Image, ImageMetadata, error) {
	f, fi, err := open(path)
	if err != nil {
		return nil, ImageMetadata{}, err
	}
	defer closeQuietly(f)

	img, format, err := decodeOriented(bufio.NewReader(f))
	if err != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "decode", Path: path, Err: err}
	}
	b := img.Bounds()
	return img, ImageMetadata{Path: path, Format: format, SizeBytes: fi.Size(), Width: b.Dx(), Height: b.Dy()}, nil
}

// LoadFrame loads a file as a Y800 frame ready for scanning. Frame containers
// keep their sequence number and are converted from their stored format.
func LoadFrame(path string) (*raster.Image, ImageMetadata, error) {
	f, fi, err := open(path)
	if err != nil {
		return nil, ImageMetadata{}, err
	}
	defer closeQuietly(f)

	img, format, err := DecodeFrame(bufio.NewReader(f))
	if err != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "decode", Path: path, Err: err}
	}
	meta := ImageMetadata{Path: path, Format: format, SizeBytes: fi.Size(), Width: img.Width, Height: img.Height}
	return img, meta, nil
}

// DecodeFrame decodes a frame container or any registered image format from r
// into a gray frame. The returned name is the detected container or image format.
func DecodeFrame(r io.Reader) (*raster.Image, string, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	magic, _ := br.Peek(len(raster.FrameMagic))
	if bytes.Equal(magic, []byte(raster.FrameMagic)) {
		img, err := raster.ReadFrame(br)
		if err != nil {
			return nil, "", err
		}
		name := img.Format.String()
		if !img.Format.IsGray() {
			seq := img.Sequence
			if img, err = raster.Convert(img, raster.Y800); err != nil {
				return nil, "", err
			}
			img.Sequence = seq
		}
		return img, name, nil
	}

	src, format, err := decodeOriented(br)
	if err != nil {
		return nil, "", err
	}
	img, err := raster.FromImage(src)
	if err != nil {
		return nil, "", err
	}
	return img, format, nil
}

// decodeOriented decodes r and rotates the result upright per its EXIF tag.
func decodeOriented(r io.Reader) (image.Image, string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, "", err
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, "", err
	}
	img, err := imaging.Decode(bytes.NewReader(buf.Bytes()), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", err
	}
	return img, format, nil
}

func open(path string) (*os.File, os.FileInfo, error) {
	if path == "" {
		return nil, nil, &ImageProcessingError{Operation: "load", Err: errors.New("empty path")}
	}
	if !IsSupportedImage(path) {
		return nil, nil, &ImageProcessingError{
			Operation: "load", Path: path,
			Err: fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(path)),
		}
	}
	f, err := os.Open(path) //nolint:gosec // G304: Reading user-provided image file path is expected
	if err != nil {
		return nil, nil, &ImageProcessingError{Operation: "load", Path: path, Err: err}
	}
	fi, err := f.Stat()
	if err != nil {
		closeQuietly(f)
		return nil, nil, &ImageProcessingError{Operation: "load", Path: path, Err: err}
	}
	return f, fi, nil
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing image file: %v\n", err)
	}
}

// ListImages returns the supported image files of dir in lexical order.
// Subdirectories are descended when recursive is set.
func ListImages(dir string, recursive bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if IsSupportedImage(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, &ImageProcessingError{Operation: "list", Path: dir, Err: err}
	}
	slices.Sort(files)
	return files, nil
}
