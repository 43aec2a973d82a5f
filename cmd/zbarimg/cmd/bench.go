package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/zbargo/internal/benchmark"
	"github.com/MeKo-Tech/zbargo/internal/common"
	"github.com/MeKo-Tech/zbargo/internal/utils"
)

func newBenchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench [images...]",
		Short: "Measure scan throughput",
		Long: `Scan each image repeatedly and report timing, throughput and the number of
symbols found. Images are loaded once; only scanning is timed.

Examples:
  zbarimg bench label.png
  zbarimg bench samples/*.png --iterations 200 -S disable -S ean13.enable`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner, err := a.newScanner(cmd)
			if err != nil {
				return err
			}
			iterations, _ := cmd.Flags().GetInt("iterations")
			if iterations < 1 {
				return usageError{fmt.Errorf("--iterations must be positive, got %d", iterations)}
			}

			bench := benchmark.NewScanBenchmark(scanner)
			for _, path := range args {
				frame, _, err := utils.LoadFrame(path)
				if err != nil {
					return err
				}
				bench.AddImage(path, frame)
			}

			slog.Debug("benchmark starting", "images", len(args), "iterations", iterations)
			out := cmd.OutOrStdout()
			for _, r := range bench.Run(iterations) {
				_, _ = fmt.Fprintln(out, r.String())
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "memory: %s\n", common.GetMemoryStats())
			return nil
		},
	}
	a.addScannerFlags(cmd)
	cmd.Flags().IntP("iterations", "n", 50, "scans per image")
	return cmd
}
