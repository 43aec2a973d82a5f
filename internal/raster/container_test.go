package raster

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameContainer_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	a := grayImage(16, 8, 1)
	a.Sequence = 7
	b, err := Convert(grayImage(4, 4, 2), YUYV)
	require.NoError(t, err)

	require.NoError(t, WriteFrame(&buf, a))
	require.NoError(t, WriteFrame(&buf, b))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, a.Format, got.Format)
	assert.Equal(t, 7, got.Sequence)
	assert.Equal(t, a.data, got.data)

	got, err = ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, YUYV, got.Format)
	assert.Equal(t, b.data, got.data)

	_, err = ReadFrame(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameContainer_BadMagic(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(make([]byte, headerLen)))
	assert.ErrorIs(t, err, ErrBadFrame)
}

func TestFrameContainer_HeaderCarriesFourCC(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, grayImage(2, 2, 0)))
	assert.Equal(t, []byte{'Y', '8', '0', '0'}, buf.Bytes()[4:8])
}
