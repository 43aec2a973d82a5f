package batch

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/zbargo/internal/symbol"
	"github.com/MeKo-Tech/zbargo/internal/utils"
)

func sampleResult() *Result {
	ean := &symbol.Symbol{
		Type:        symbol.Type{Base: symbol.EAN13},
		Data:        []byte("4006381333931"),
		Quality:     12,
		Orientation: symbol.OrientUp,
	}
	qr := &symbol.Symbol{
		Type:        symbol.Type{Base: symbol.QRCode},
		Data:        []byte("hello"),
		Quality:     1,
		Orientation: symbol.OrientRight,
	}
	return &Result{
		Images: []ImageResult{
			{Path: "one.png", Meta: utils.ImageMetadata{Width: 10, Height: 20}, Symbols: symbol.NewSet(ean, qr), Duration: 2 * time.Millisecond},
			{Path: "two.png", Err: errors.New("decode failed")},
		},
		Duration:    time.Second,
		WorkerCount: 2,
	}
}

func TestWrite_Text(t *testing.T) {
	out, err := sampleResult().FormatResults("text", false)
	require.NoError(t, err)
	assert.Equal(t, "EAN-13:4006381333931\nQR-Code:hello\n", out)

	raw, err := sampleResult().FormatResults("", true)
	require.NoError(t, err)
	assert.Equal(t, "4006381333931\nhello\n", raw)
}

func TestWrite_JSON(t *testing.T) {
	out, err := sampleResult().FormatResults("json", false)
	require.NoError(t, err)

	var rep batchReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Images, 2)
	want := []symbol.Record{
		{Type: "EAN-13", Code: symbol.Type{Base: symbol.EAN13}.Code(), Data: "4006381333931", Quality: 12, Orientation: "UP"},
		{Type: "QR-Code", Code: symbol.Type{Base: symbol.QRCode}.Code(), Data: "hello", Quality: 1, Orientation: "RIGHT"},
	}
	if diff := cmp.Diff(want, rep.Images[0].Symbols); diff != "" {
		t.Errorf("symbols mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "decode failed", rep.Images[1].Error)
	assert.Empty(t, rep.Images[1].Symbols)
	require.NotNil(t, rep.Stats)
	assert.Equal(t, 1, rep.Stats.FailedImages)
}

func TestWrite_YAML(t *testing.T) {
	out, err := sampleResult().FormatResults("yaml", false)
	require.NoError(t, err)
	var rep batchReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "one.png", rep.Images[0].File)
	assert.Equal(t, 10, rep.Images[0].Width)
	assert.Len(t, rep.Images[0].Symbols, 2)
}

func TestWrite_XML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleResult().Write(&buf, "xml", false))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `<source href="one.png">`)
	assert.Contains(t, out, `<source href="two.png">`)
	assert.Contains(t, out, "<![CDATA[4006381333931]]>")
}

func TestWrite_UnknownFormat(t *testing.T) {
	_, err := sampleResult().FormatResults("csv", false)
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	sampleResult().PrintStats(&buf)
	assert.Contains(t, buf.String(), "scanned 2 barcode symbols from 1 images")
	assert.Contains(t, buf.String(), "1 images failed")
}

func TestConsoleProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewConsoleProgressCallback(&buf, "Scanning: ").WithUpdateInterval(0)
	p.OnStart(2)
	p.OnProgress(1, 2)
	p.OnError(1, errors.New("boom"))
	p.OnProgress(2, 2)
	p.OnComplete()
	out := buf.String()
	assert.Contains(t, out, "Scanning: 0/2")
	assert.Contains(t, out, "2/2")
	assert.Contains(t, out, "Error at item 1: boom")
	assert.Contains(t, out, "Completed in")
}
