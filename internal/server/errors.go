package server

import (
	"errors"
	"image"
	"net/http"

	"github.com/MeKo-Tech/zbargo/internal/decoder"
	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/MeKo-Tech/zbargo/internal/utils"
)

// ErrorCode classifies failures in JSON error payloads.
type ErrorCode string

const (
	CodeUnsupported    ErrorCode = "Unsupported"
	CodeInvalidRequest ErrorCode = "InvalidRequest"
	CodeOutOfMemory    ErrorCode = "OutOfMemory"
	CodeTooLarge       ErrorCode = "TooLarge"
	CodeInternal       ErrorCode = "Internal"
)

var errInvalidRequest = errors.New("invalid request")

// classify maps engine errors onto an error code and HTTP status.
func classify(err error) (ErrorCode, int) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return CodeTooLarge, http.StatusRequestEntityTooLarge
	case errors.Is(err, raster.ErrAllocation):
		return CodeOutOfMemory, http.StatusInsufficientStorage
	case errors.Is(err, raster.ErrUnsupportedFormat),
		errors.Is(err, raster.ErrBadFrame),
		errors.Is(err, raster.ErrBufferSize),
		errors.Is(err, utils.ErrUnsupportedFile),
		errors.Is(err, image.ErrFormat):
		return CodeUnsupported, http.StatusUnsupportedMediaType
	case errors.Is(err, decoder.ErrInvalidConfig), errors.Is(err, errInvalidRequest):
		return CodeInvalidRequest, http.StatusBadRequest
	}
	return CodeInternal, http.StatusInternalServerError
}
