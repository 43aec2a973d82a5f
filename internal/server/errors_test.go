package server

import (
	"errors"
	"fmt"
	"image"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MeKo-Tech/zbargo/internal/decoder"
	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/MeKo-Tech/zbargo/internal/utils"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   ErrorCode
		status int
	}{
		{"body too large", fmt.Errorf("read: %w", &http.MaxBytesError{Limit: 10}), CodeTooLarge, http.StatusRequestEntityTooLarge},
		{"allocation", fmt.Errorf("convert: %w", raster.ErrAllocation), CodeOutOfMemory, http.StatusInsufficientStorage},
		{"unsupported format", raster.ErrUnsupportedFormat, CodeUnsupported, http.StatusUnsupportedMediaType},
		{"bad frame", fmt.Errorf("decode: %w", raster.ErrBadFrame), CodeUnsupported, http.StatusUnsupportedMediaType},
		{"buffer size", raster.ErrBufferSize, CodeUnsupported, http.StatusUnsupportedMediaType},
		{"unsupported file", utils.ErrUnsupportedFile, CodeUnsupported, http.StatusUnsupportedMediaType},
		{"unknown image format", fmt.Errorf("decode: %w", image.ErrFormat), CodeUnsupported, http.StatusUnsupportedMediaType},
		{"bad configuration", fmt.Errorf("set: %w", decoder.ErrInvalidConfig), CodeInvalidRequest, http.StatusBadRequest},
		{"invalid request", fmt.Errorf("%w: empty body", errInvalidRequest), CodeInvalidRequest, http.StatusBadRequest},
		{"anything else", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, status := classify(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, status)
		})
	}
}
