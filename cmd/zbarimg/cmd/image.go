package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/zbargo/internal/batch"
	"github.com/MeKo-Tech/zbargo/internal/common"
	"github.com/MeKo-Tech/zbargo/internal/imagescanner"
	"github.com/MeKo-Tech/zbargo/internal/utils"
)

const stdinPath = "-"

func newImageCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image [files...]",
		Short: "Scan image files for barcodes",
		Long: `Scan one or more image files, in order, and print every decoded symbol.
Use "-" to read an image from standard input.

Supported formats: JPEG, PNG, GIF, BMP, TIFF, WebP and .zbf frame containers.
The exit status is 4 when no symbol was found.

Examples:
  zbarimg image label.png
  zbarimg image --raw ticket.jpg
  zbarimg image --format xml *.png
  cat photo.jpg | zbarimg image -`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner, err := a.newScanner(cmd)
			if err != nil {
				return err
			}
			res := scanImages(cmd, scanner, args, a.output().annotateDir)
			return writeResult(cmd, res, a.output())
		},
	}
	a.addScannerFlags(cmd)
	a.addOutputFlags(cmd)
	return cmd
}

// scanImages scans paths one after another. Failures are recorded per image.
func scanImages(cmd *cobra.Command, scanner *imagescanner.Scanner, paths []string, annotateDir string) *batch.Result {
	timer := common.NewTimer()
	res := &batch.Result{WorkerCount: 1}
	for _, path := range paths {
		if err := cmd.Context().Err(); err != nil {
			res.Images = append(res.Images, batch.ImageResult{Path: path, Err: err})
			continue
		}
		var img batch.ImageResult
		if path == stdinPath {
			img = scanStdin(cmd, scanner, annotateDir)
		} else {
			img = batch.ScanFile(scanner, path, annotateDir)
		}
		if img.Err != nil {
			slog.Warn("image scan failed", "path", path, "error", img.Err)
		} else {
			timer.Frame(img.Meta.Width, img.Meta.Height, img.Symbols.Len())
		}
		res.Images = append(res.Images, img)
	}
	res.Duration = timer.Stop()
	slog.Debug("images scanned", "count", len(paths), "timing", timer)
	return res
}

func scanStdin(cmd *cobra.Command, scanner *imagescanner.Scanner, annotateDir string) batch.ImageResult {
	start := time.Now()
	frame, format, err := utils.DecodeFrame(bufio.NewReader(cmd.InOrStdin()))
	if err != nil {
		return batch.ImageResult{Path: stdinPath, Err: fmt.Errorf("decode standard input: %w", err), Duration: time.Since(start)}
	}
	slog.Debug("decoded standard input", "format", format, "width", frame.Width, "height", frame.Height)
	return batch.ScanFrame(scanner, frame, stdinPath, 0, annotateDir)
}
