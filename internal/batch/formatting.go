package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

// ErrUnknownFormat is returned for output formats other than text, json, xml and yaml.
var ErrUnknownFormat = errors.New("unknown output format")

// imageReport is the JSON and YAML shape of one image.
type imageReport struct {
	File      string          `json:"file" yaml:"file"`
	Index     int             `json:"index,omitempty" yaml:"index,omitempty"`
	Width     int             `json:"width,omitempty" yaml:"width,omitempty"`
	Height    int             `json:"height,omitempty" yaml:"height,omitempty"`
	Symbols   []symbol.Record `json:"symbols" yaml:"symbols"`
	ElapsedMs float64         `json:"elapsed_ms" yaml:"elapsed_ms"`
	Error     string          `json:"error,omitempty" yaml:"error,omitempty"`
}

type batchReport struct {
	Images []imageReport `json:"images" yaml:"images"`
	Stats  *Stats        `json:"stats,omitempty" yaml:"stats,omitempty"`
}

func (r *Result) report(withStats bool) batchReport {
	out := batchReport{Images: make([]imageReport, 0, len(r.Images))}
	for _, img := range r.Images {
		rep := imageReport{
			File:      img.Path,
			Index:     img.Index,
			Width:     img.Meta.Width,
			Height:    img.Meta.Height,
			Symbols:   []symbol.Record{},
			ElapsedMs: float64(img.Duration) / float64(time.Millisecond),
		}
		if img.Symbols != nil {
			rep.Symbols = img.Symbols.Records()
		}
		if img.Err != nil {
			rep.Error = img.Err.Error()
		}
		out.Images = append(out.Images, rep)
	}
	if withStats {
		st := r.Stats()
		out.Stats = &st
	}
	return out
}

// Write renders the results. Text output prints one "TYPE:data" line per
// symbol, or only the data when raw is set.
func (r *Result) Write(w io.Writer, format string, raw bool) error {
	switch format {
	case "", "text":
		return r.writeText(w, raw)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r.report(len(r.Images) > 1))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r.report(len(r.Images) > 1)); err != nil {
			return err
		}
		return enc.Close()
	case "xml":
		doc := symbol.NewDocument()
		for _, img := range r.Images {
			set := img.Symbols
			if set == nil {
				set = symbol.NewSet()
			}
			doc.Add(img.Path, img.Index, set)
		}
		_, err := doc.WriteTo(w)
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func (r *Result) writeText(w io.Writer, raw bool) error {
	var b strings.Builder
	for _, img := range r.Images {
		if img.Symbols == nil {
			continue
		}
		for sym := range img.Symbols.All() {
			if raw {
				b.Write(sym.Data)
			} else {
				fmt.Fprintf(&b, "%s:%s", sym.Type, sym.Data)
			}
			b.WriteByte('\n')
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// FormatResults renders the results into a string.
func (r *Result) FormatResults(format string, raw bool) (string, error) {
	var b strings.Builder
	if err := r.Write(&b, format, raw); err != nil {
		return "", err
	}
	return b.String(), nil
}

// SaveResults writes the formatted results to outputFile, or stdout when empty.
func (r *Result) SaveResults(format, outputFile string, raw, quiet bool) error {
	output, err := r.FormatResults(format, raw)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile == "" {
		_, _ = fmt.Fprint(os.Stdout, output)
		return nil
	}
	if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if !quiet {
		_, _ = fmt.Fprintf(os.Stderr, "Results written to %s\n", outputFile)
	}
	return nil
}

// PrintStats prints processing statistics in the style of zbarimg's summary.
func (r *Result) PrintStats(w io.Writer) {
	st := r.Stats()
	_, _ = fmt.Fprintf(w, "scanned %d barcode symbols from %d images in %v\n",
		st.Symbols, st.ProcessedImages, st.TotalDuration.Round(time.Millisecond))
	if st.FailedImages > 0 {
		_, _ = fmt.Fprintf(w, "  %d images failed\n", st.FailedImages)
	}
	if st.Symbols == 0 {
		_, _ = fmt.Fprintln(w, "WARNING: barcode data was not detected in some image(s)")
	}
	_, _ = fmt.Fprintf(w, "  workers: %d, throughput: %.1f images/sec\n", st.WorkerCount, st.ThroughputPerSec)
}
