package cmd

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/zbargo/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP scan server",
		Long: `Start an HTTP server that scans uploaded images, frame streams and PDFs.

The server provides the following endpoints:
  POST /scan         - Scan an uploaded image or .zbf frame
  POST /scan/pdf     - Scan the pages of an uploaded PDF
  GET  /scan/stream  - WebSocket frame stream with a result cache
  GET  /symbologies  - Effective symbology configuration
  GET  /health       - Health check
  GET  /metrics      - Prometheus metrics

Examples:
  zbarimg serve
  zbarimg serve --port 8080
  zbarimg serve --host 0.0.0.0 --requests-per-minute 120 -S disable -S qrcode.enable`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner, err := a.newScanner(cmd)
			if err != nil {
				return err
			}
			sc := a.cfg.Server
			srv, err := server.NewServer(server.Config{
				Host:              sc.Host,
				Port:              sc.Port,
				CORSOrigin:        sc.CORSOrigin,
				MaxUploadMB:       int64(sc.MaxUploadMB),
				TimeoutSec:        sc.TimeoutSec,
				RequestsPerMinute: sc.RequestsPerMinute,
				RequestsPerHour:   sc.RequestsPerHour,
				MaxRequestsPerDay: sc.MaxRequestsPerDay,
				MaxDataPerDay:     sc.MaxDataPerDay,
				Scanner:           scanner,
				CacheWindow:       a.cfg.Video.EvictAfter,
			})
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}
			defer func() { _ = srv.Close() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			addr := fmt.Sprintf("%s:%d", sc.Host, sc.Port)
			slog.Info("starting scan server", "addr", addr,
				"requests_per_minute", sc.RequestsPerMinute, "requests_per_hour", sc.RequestsPerHour)
			if err := srv.ListenAndServe(ctx, addr, time.Duration(sc.ShutdownTimeout)*time.Second); err != nil {
				return err
			}
			slog.Info("server stopped")
			return nil
		},
	}
	a.addScannerFlags(cmd)
	cmd.Flags().StringP("host", "H", "localhost", "server host")
	cmd.Flags().IntP("port", "p", 8080, "server port")
	cmd.Flags().String("cors-origin", "*", "CORS allowed origin")
	cmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	cmd.Flags().Int("timeout", 30, "request timeout in seconds")
	cmd.Flags().Int("shutdown-timeout", 10, "graceful shutdown timeout in seconds")
	cmd.Flags().Int("requests-per-minute", 0, "maximum requests per minute per client (0 = unlimited)")
	cmd.Flags().Int("requests-per-hour", 0, "maximum requests per hour per client (0 = unlimited)")
	cmd.Flags().Int("max-requests-per-day", 0, "maximum requests per day per client (0 = unlimited)")
	cmd.Flags().Int64("max-data-per-day", 0, "maximum upload bytes per day per client (0 = unlimited)")
	cmd.Flags().Int("cache-window", 0, "frames a streamed symbol may go unseen before it is forgotten")
	a.bind(cmd,
		flagBinding{"server.host", "host"},
		flagBinding{"server.port", "port"},
		flagBinding{"server.cors_origin", "cors-origin"},
		flagBinding{"server.max_upload_mb", "max-upload-size"},
		flagBinding{"server.timeout_sec", "timeout"},
		flagBinding{"server.shutdown_timeout", "shutdown-timeout"},
		flagBinding{"server.requests_per_minute", "requests-per-minute"},
		flagBinding{"server.requests_per_hour", "requests-per-hour"},
		flagBinding{"server.max_requests_per_day", "max-requests-per-day"},
		flagBinding{"server.max_data_per_day", "max-data-per-day"},
		flagBinding{"video.evict_after", "cache-window"},
	)
	return cmd
}
