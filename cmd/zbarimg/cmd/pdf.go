package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/zbargo/internal/batch"
	"github.com/MeKo-Tech/zbargo/internal/pdf"
)

func newPDFCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdf [files...]",
		Short: "Scan the images embedded in PDF documents",
		Long: `Extract the images embedded in PDF pages and scan them for barcodes.
Images found empty at their native resolution are scanned again, upsampled
to --dpi relative to the page size.

Encrypted documents are opened with --password / --owner-password; on a
terminal zbarimg asks for a password when those fail, unless --no-prompt.

Examples:
  zbarimg pdf invoice.pdf
  zbarimg pdf shipment.pdf --pages 1-3,5 --format json
  zbarimg pdf secret.pdf --password hunter2`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner, err := a.newScanner(cmd)
			if err != nil {
				return err
			}
			out := a.output()

			pcfg := pdf.DefaultProcessorConfig()
			noPrompt, _ := cmd.Flags().GetBool("no-prompt")
			pcfg.AllowPasswordPrompt = !noPrompt && isTerminal(os.Stdin)
			pcfg.TargetDPI, _ = cmd.Flags().GetInt("dpi")
			pcfg.MaxDimension, _ = cmd.Flags().GetInt("max-dimension")
			pcfg.MaxWorkers, _ = cmd.Flags().GetInt("workers")
			pcfg.AnnotateDir = out.annotateDir
			proc := pdf.NewProcessorWithConfig(scanner, pcfg)

			user, _ := cmd.Flags().GetString("password")
			owner, _ := cmd.Flags().GetString("owner-password")
			if user != "" || owner != "" {
				proc.SetPasswordCredentials(&pdf.PasswordCredentials{UserPassword: user, OwnerPassword: owner})
			}
			pages, _ := cmd.Flags().GetString("pages")

			var docs []*pdf.DocumentResult
			var failed []batch.ImageResult
			for _, file := range args {
				doc, err := proc.ProcessFile(cmd.Context(), file, pages)
				if err != nil {
					slog.Warn("pdf scan failed", "file", file, "error", err)
					failed = append(failed, batch.ImageResult{Path: file, Err: err})
					continue
				}
				docs = append(docs, doc)
			}
			if len(docs) == 0 && len(failed) > 0 {
				return failed[0].Err
			}

			switch out.format {
			case "json", "yaml":
				if err := writeDocuments(cmd, docs, out); err != nil {
					return err
				}
				if countSymbols(docs) == 0 {
					return ErrNoSymbols
				}
				return nil
			}
			merged := &batch.Result{WorkerCount: max(pcfg.MaxWorkers, 1)}
			for _, doc := range docs {
				br := doc.BatchResult()
				merged.Images = append(merged.Images, br.Images...)
				merged.Duration += br.Duration
			}
			merged.Images = append(merged.Images, failed...)
			return writeResult(cmd, merged, out)
		},
	}
	a.addScannerFlags(cmd)
	a.addOutputFlags(cmd)
	cmd.Flags().StringP("pages", "p", "", "page range, e.g. 1-3,5 (default: all pages)")
	cmd.Flags().String("password", "", "user password for encrypted documents")
	cmd.Flags().String("owner-password", "", "owner password for encrypted documents")
	cmd.Flags().Bool("no-prompt", false, "never ask for a password interactively")
	cmd.Flags().Int("dpi", 150, "target resolution of the upsampled pass (0 disables it)")
	cmd.Flags().Int("max-dimension", 3000, "largest side of an upsampled image in pixels")
	cmd.Flags().Int("workers", 0, "page workers (default: number of CPUs)")
	return cmd
}

func countSymbols(docs []*pdf.DocumentResult) int {
	n := 0
	for _, d := range docs {
		n += d.SymbolCount()
	}
	return n
}

// writeDocuments renders whole document results; a single document is
// written as an object, several as a list.
func writeDocuments(cmd *cobra.Command, docs []*pdf.DocumentResult, o outputOptions) error {
	var v any = docs
	if len(docs) == 1 {
		v = docs[0]
	}

	w := cmd.OutOrStdout()
	var f *os.File
	if o.file != "" {
		var err error
		if f, err = os.Create(o.file); err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		w = f
	}
	if err := encodeDocument(w, o.format, v); err != nil {
		if f != nil {
			_ = f.Close()
		}
		return err
	}
	if f == nil {
		return nil
	}
	if err := f.Close(); err != nil {
		return err
	}
	if !o.quiet {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Results written to %s\n", o.file)
	}
	return nil
}

func encodeDocument(w io.Writer, format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
