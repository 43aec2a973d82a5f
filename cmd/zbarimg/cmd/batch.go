package cmd

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/zbargo/internal/batch"
)

func newBatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [files or directories...]",
		Short: "Scan many images in parallel",
		Long: `Scan image files and directories with a pool of workers sharing one scanner.
Directories are expanded to the supported image files they contain.

Examples:
  zbarimg batch *.jpg *.png
  zbarimg batch scans/ --recursive --workers 8
  zbarimg batch scans/ --include '*.png' --format json --output results.json
  zbarimg batch scans/ --progress`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner, err := a.newScanner(cmd)
			if err != nil {
				return err
			}
			out := a.output()
			cfg := &batch.Config{
				Workers:         a.cfg.Batch.Workers,
				ContinueOnError: a.cfg.Batch.ContinueOnError,
				Recursive:       a.cfg.Batch.Recursive,
				IncludePatterns: a.cfg.Batch.Include,
				ExcludePatterns: a.cfg.Batch.Exclude,
				AnnotateDir:     out.annotateDir,
				Quiet:           out.quiet,
			}
			cfg.ShowProgress, _ = cmd.Flags().GetBool("progress")
			cfg.ProgressInterval, _ = cmd.Flags().GetDuration("progress-interval")
			if cfg.ShowProgress && !out.quiet {
				cfg.Progress = batch.NewConsoleProgressCallback(cmd.ErrOrStderr(), "Scanning: ").
					WithUpdateInterval(cfg.ProgressInterval)
			}

			slog.Debug("batch starting", "inputs", len(args), "workers", cfg.Workers, "recursive", cfg.Recursive)
			res, err := batch.ProcessBatch(cmd.Context(), args, scanner, cfg)
			if err != nil {
				return err
			}
			return writeResult(cmd, res, out)
		},
	}
	a.addScannerFlags(cmd)
	a.addOutputFlags(cmd)
	cmd.Flags().IntP("workers", "w", 0, "number of parallel workers (default: number of CPUs)")
	cmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	cmd.Flags().StringSlice("include", nil, "only scan files matching these glob patterns")
	cmd.Flags().StringSlice("exclude", nil, "skip files matching these glob patterns")
	cmd.Flags().Bool("continue-on-error", true, "keep going when an image fails")
	cmd.Flags().Bool("progress", false, "show a progress bar on stderr")
	cmd.Flags().Duration("progress-interval", 100*time.Millisecond, "progress bar refresh interval")
	a.bind(cmd,
		flagBinding{"batch.workers", "workers"},
		flagBinding{"batch.recursive", "recursive"},
		flagBinding{"batch.include", "include"},
		flagBinding{"batch.exclude", "exclude"},
		flagBinding{"batch.continue_on_error", "continue-on-error"},
	)
	return cmd
}
