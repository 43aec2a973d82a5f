package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
	"github.com/MeKo-Tech/zbargo/internal/video"
)

// frameReport is one line of JSON video output.
type frameReport struct {
	Sequence  int             `json:"sequence"`
	Symbols   []symbol.Record `json:"symbols"`
	ElapsedMs float64         `json:"elapsed_ms"`
}

func newVideoCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "video <frame directory | recording.zbf | ->",
		Short: "Scan a sequence of frames with result caching",
		Long: `Scan a frame sequence as a video stream. A symbol is reported once it has been
seen in consecutive frames, and is then tracked until it has been missing
for --evict-after frames.

The input is a directory of images (played in name order), a recording of
concatenated .zbf frames, or "-" for a recording on standard input.

Output is one line per symbol ("frame N: TYPE:data") in text mode, or one
JSON object per frame with --format json.

Examples:
  zbarimg video frames/
  zbarimg video capture.zbf --fresh-only --raw
  zbarimg video frames/ --format json`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner, err := a.newScanner(cmd)
			if err != nil {
				return err
			}
			src, closeSrc, err := openVideoSource(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeSrc()

			format, _ := cmd.Flags().GetString("format")
			raw, _ := cmd.Flags().GetBool("raw")
			freshOnly := a.cfg.Video.FreshOnly
			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)

			stream := video.NewStream(src, scanner)
			reported := 0
			err = stream.Run(cmd.Context(), func(f video.Frame) error {
				syms := f.Symbols
				if freshOnly {
					syms = syms.Filter(func(s *symbol.Symbol) bool { return s.Count == 0 })
				}
				reported += syms.Len()
				if format == "json" {
					if freshOnly && syms.Len() == 0 {
						return nil
					}
					return enc.Encode(frameReport{
						Sequence:  f.Sequence,
						Symbols:   syms.Records(),
						ElapsedMs: float64(f.Elapsed.Microseconds()) / 1000,
					})
				}
				return writeFrameText(out, f.Sequence, syms, raw)
			})
			if err != nil {
				return err
			}

			if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "scanned %d frames, reported %d symbols\n", stream.Frames(), reported)
			}
			if reported == 0 {
				return ErrNoSymbols
			}
			return nil
		},
	}
	a.addScannerFlags(cmd)
	cmd.Flags().StringP("format", "f", "text", "output format (text, json)")
	cmd.Flags().Bool("raw", false, "print only the decoded data")
	cmd.Flags().BoolP("quiet", "q", false, "suppress the summary on stderr")
	cmd.Flags().Bool("fresh-only", false, "report each symbol only in the frame it is first verified")
	cmd.Flags().Int("evict-after", 4, "frames a symbol may go unseen before it is forgotten")
	a.bind(cmd,
		flagBinding{"video.fresh_only", "fresh-only"},
		flagBinding{"video.evict_after", "evict-after"},
	)
	return cmd
}

func openVideoSource(cmd *cobra.Command, arg string) (video.Source, func(), error) {
	noop := func() {}
	if arg == stdinPath {
		return video.NewStreamSource(cmd.InOrStdin()), noop, nil
	}
	info, err := os.Stat(arg)
	if err != nil {
		return nil, noop, err
	}
	if info.IsDir() {
		src, err := video.NewDirSource(arg)
		return src, noop, err
	}
	if strings.EqualFold(filepath.Ext(arg), raster.FrameExt) {
		src, err := video.OpenStream(arg)
		if err != nil {
			return nil, noop, err
		}
		return src, func() { _ = src.Close() }, nil
	}
	// a single image plays as a one-frame video
	return video.NewFileSource(arg), noop, nil
}

func writeFrameText(w io.Writer, seq int, syms *symbol.Set, raw bool) error {
	var b strings.Builder
	for sym := range syms.All() {
		if raw {
			b.Write(sym.Data)
		} else {
			fmt.Fprintf(&b, "frame %d: %s:%s", seq, sym.Type, sym.Data)
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
