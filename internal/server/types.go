// Package server exposes the scanner over HTTP: single image scans, PDF
// scans, a websocket frame stream with result caching, and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/zbargo/internal/imagescanner"
	"github.com/MeKo-Tech/zbargo/internal/pdf"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	scanner     *imagescanner.Scanner
	pdf         *pdf.Processor
	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
	cacheWindow int
	rateLimiter *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int

	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64

	// Scanner carries the symbology configuration for every request. Each
	// websocket stream gets its own cache-enabled copy.
	Scanner *imagescanner.Scanner
	// Frames a cached stream symbol may go unseen; zero keeps the default.
	CacheWindow int
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Engine  string `json:"engine,omitempty"`
	Time    string `json:"time"`
}

// SymbologyInfo describes one symbology and its effective options.
type SymbologyInfo struct {
	Name    string         `json:"name"`
	Code    int            `json:"code"`
	TwoD    bool           `json:"two_dimensional"`
	Enabled bool           `json:"enabled"`
	Options map[string]int `json:"options"`
}

// SymbologiesResponse is returned by GET /symbologies.
type SymbologiesResponse struct {
	Symbologies []SymbologyInfo `json:"symbologies"`
	XDensity    int             `json:"x_density"`
	YDensity    int             `json:"y_density"`
}

// ScanResult is the payload of a successful scan.
type ScanResult struct {
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Format    string          `json:"format"`
	Symbols   []symbol.Record `json:"symbols"`
	ElapsedMs float64         `json:"elapsed_ms"`
}

// ScanResponse wraps every /scan reply, successful or not.
type ScanResponse struct {
	Success   bool        `json:"success"`
	Result    *ScanResult `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorCode ErrorCode   `json:"error_code,omitempty"`
}

// NewServer creates a new scan server instance.
func NewServer(config Config) (*Server, error) {
	scanner := config.Scanner
	if scanner == nil {
		scanner = imagescanner.New()
	}
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 50
	}

	s := &Server{
		scanner:     scanner,
		pdf:         pdf.NewProcessor(scanner),
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeout:     time.Duration(config.TimeoutSec) * time.Second,
		cacheWindow: config.CacheWindow,
	}
	if config.RequestsPerMinute > 0 || config.RequestsPerHour > 0 ||
		config.MaxRequestsPerDay > 0 || config.MaxDataPerDay > 0 {
		s.rateLimiter = NewRateLimiter(config.RequestsPerMinute, config.RequestsPerHour,
			config.MaxRequestsPerDay, config.MaxDataPerDay)
	}
	return s, nil
}

// Close releases server resources.
func (s *Server) Close() error { return nil }

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/symbologies", s.corsMiddleware(s.symbologiesHandler))
	mux.HandleFunc("/scan", s.corsMiddleware(s.rateLimitMiddleware(s.scanHandler)))
	mux.HandleFunc("/scan/pdf", s.corsMiddleware(s.rateLimitMiddleware(s.scanPDFHandler)))
	mux.HandleFunc("/scan/stream", s.rateLimitMiddleware(s.streamHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if s.timeout > 0 {
		srv.WriteTimeout = s.timeout + 5*time.Second
	}

	if s.rateLimiter != nil {
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := s.rateLimiter.Prune(); n > 0 {
						slog.Debug("rate limiter pruned idle clients", "clients", n)
					}
				}
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
