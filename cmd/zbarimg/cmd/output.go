package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/MeKo-Tech/zbargo/internal/batch"
	"github.com/MeKo-Tech/zbargo/internal/config"
)

type outputOptions struct {
	format      string
	file        string
	raw         bool
	quiet       bool
	annotateDir string
}

func (a *app) addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "text", "output format ("+strings.Join(config.OutputFormats, ", ")+")")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	cmd.Flags().Bool("raw", false, "print only the decoded data, one symbol per line")
	cmd.Flags().BoolP("quiet", "q", false, "suppress the summary on stderr")
	cmd.Flags().String("annotate-dir", "", "directory to write images with decoded symbols outlined")
	a.bind(cmd,
		flagBinding{"output.format", "format"},
		flagBinding{"output.file", "output"},
		flagBinding{"output.raw", "raw"},
		flagBinding{"output.quiet", "quiet"},
		flagBinding{"output.annotate_dir", "annotate-dir"},
	)
}

func (a *app) output() outputOptions {
	o := a.cfg.Output
	return outputOptions{format: o.Format, file: o.File, raw: o.Raw, quiet: o.Quiet, annotateDir: o.AnnotateDir}
}

// writeResult prints res to the output file or stdout and the summary to stderr.
func writeResult(cmd *cobra.Command, res *batch.Result, o outputOptions) error {
	out := cmd.OutOrStdout()
	switch {
	case o.file != "":
		if err := res.SaveResults(o.format, o.file, o.raw, o.quiet); err != nil {
			return err
		}
	case (o.format == "" || o.format == "text") && !o.raw && len(res.Images) > 1 && isTerminal(out):
		if err := writeGrouped(out, res); err != nil {
			return err
		}
	default:
		if err := res.Write(out, o.format, o.raw); err != nil {
			return err
		}
	}

	if !o.quiet {
		res.PrintStats(cmd.ErrOrStderr())
	}
	if res.SymbolCount() == 0 {
		return ErrNoSymbols
	}
	return nil
}

// writeGrouped is the interactive text layout: symbols listed under their file.
func writeGrouped(w io.Writer, res *batch.Result) error {
	var b strings.Builder
	for _, img := range res.Images {
		switch {
		case img.Err != nil:
			fmt.Fprintf(&b, "%s: %v\n", img.Path, img.Err)
			continue
		case img.Symbols == nil || img.Symbols.Len() == 0:
			fmt.Fprintf(&b, "%s: no symbols\n", img.Path)
			continue
		}
		fmt.Fprintf(&b, "%s:\n", img.Path)
		for sym := range img.Symbols.All() {
			fmt.Fprintf(&b, "  %s:%s\n", sym.Type, sym.Data)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: file descriptors fit in int
}
