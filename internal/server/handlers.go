package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/zbargo/internal/common"
	"github.com/MeKo-Tech/zbargo/internal/decoder"
	"github.com/MeKo-Tech/zbargo/internal/imagescanner"
	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
	"github.com/MeKo-Tech/zbargo/internal/utils"
	"github.com/MeKo-Tech/zbargo/internal/version"
)

const (
	formatText = "text"
	formatXML  = "xml"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Engine:  version.Engine(),
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// symbologiesHandler lists every symbology with its effective options.
func (s *Server) symbologiesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := s.scanner.Config()
	resp := SymbologiesResponse{XDensity: cfg.XDensity, YDensity: cfg.YDensity}
	for _, b := range symbol.Bases {
		info := SymbologyInfo{
			Name:    b.String(),
			Code:    symbol.Type{Base: b}.Code(),
			TwoD:    b.Is2D(),
			Enabled: cfg.Enabled(b),
			Options: map[string]int{},
		}
		for _, opt := range symbologyOptions {
			if v, err := cfg.Get(b, opt); err == nil {
				info.Options[opt.String()] = v
			}
		}
		resp.Symbologies = append(resp.Symbologies, info)
	}
	writeJSON(w, http.StatusOK, resp)
}

var symbologyOptions = []decoder.Option{
	decoder.OptEnable, decoder.OptAddCheck, decoder.OptEmitCheck, decoder.OptASCII,
	decoder.OptMinLength, decoder.OptMaxLength, decoder.OptUncertainty, decoder.OptPosition,
}

// scanHandler scans one uploaded image. The image is either the "image" field
// of a multipart form or the raw request body. Repeated "set" parameters
// ("ean13.disable", "code39.min-length=4") adjust the configuration for this
// request only.
func (s *Server) scanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	frame, err := s.readFrame(w, r)
	if err != nil {
		scanRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeError(w, err)
		return
	}

	scanner, err := s.requestScanner(r.Form["set"])
	if err != nil {
		scanRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeError(w, err)
		return
	}

	timer := common.NewTimer()
	set, err := scanner.Scan(frame)
	elapsed := timer.Stop()
	if err != nil {
		scanRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeError(w, err)
		return
	}
	recordScan("image", elapsed, set)

	switch responseFormat(r) {
	case formatText:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		var b strings.Builder
		for sym := range set.All() {
			fmt.Fprintf(&b, "%s:%s\n", sym.Type, sym.Data)
		}
		_, _ = io.WriteString(w, b.String())
	case formatXML:
		w.Header().Set("Content-Type", "application/xml")
		doc := symbol.NewDocument()
		doc.Add(r.URL.Path, 0, set)
		if _, err := doc.WriteTo(w); err != nil {
			slog.Error("Failed to write XML response", "error", err)
		}
	default:
		writeJSON(w, http.StatusOK, ScanResponse{
			Success: true,
			Result: &ScanResult{
				Width:     frame.Width,
				Height:    frame.Height,
				Format:    frame.Format.String(),
				Symbols:   set.Records(),
				ElapsedMs: float64(elapsed) / float64(time.Millisecond),
			},
		})
	}
}

// readFrame extracts the uploaded image from a multipart form or the raw body.
func (s *Server) readFrame(w http.ResponseWriter, r *http.Request) (*raster.Image, error) {
	limit := s.maxUploadMB * 1024 * 1024
	if r.ContentLength > limit {
		return nil, &http.MaxBytesError{Limit: limit}
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var body io.Reader = r.Body
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(limit); err != nil {
			return nil, fmt.Errorf("failed to parse form data: %w", wrapRequestErr(err))
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			return nil, fmt.Errorf("%w: no image file provided", errInvalidRequest)
		}
		defer func() { _ = file.Close() }()
		uploadSizeBytes.Observe(float64(header.Size))
		body = file
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidRequest, err)
		}
		if r.ContentLength == 0 {
			return nil, fmt.Errorf("%w: empty body", errInvalidRequest)
		}
	}

	frame, format, err := utils.DecodeFrame(bufio.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", wrapRequestErr(err))
	}
	slog.Debug("scan request decoded", "format", format, "width", frame.Width, "height", frame.Height)
	return frame, nil
}

// wrapRequestErr marks truncated bodies as invalid requests and keeps other errors.
func wrapRequestErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: empty body", errInvalidRequest)
	}
	return err
}

// requestScanner returns the shared scanner, or a configured copy when the
// request carries settings.
func (s *Server) requestScanner(settings []string) (*imagescanner.Scanner, error) {
	if len(settings) == 0 {
		return s.scanner, nil
	}
	scanner := imagescanner.NewWithConfig(s.scanner.Config())
	if err := applySettings(scanner, settings); err != nil {
		return nil, err
	}
	return scanner, nil
}

func applySettings(scanner *imagescanner.Scanner, settings []string) error {
	for _, setting := range settings {
		base, opt, val, err := decoder.ParseSetting(setting)
		if err != nil {
			return err
		}
		if err := scanner.SetConfig(base, opt, val); err != nil {
			return err
		}
	}
	return nil
}

func responseFormat(r *http.Request) string {
	if f := r.FormValue("format"); f != "" {
		return f
	}
	return r.URL.Query().Get("format")
}

func recordScan(kind string, elapsed time.Duration, set *symbol.Set) {
	scanRequestsTotal.WithLabelValues(kind, "success").Inc()
	scanDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	for sym := range set.All() {
		symbolsDecoded.WithLabelValues(sym.Type.Base.String()).Inc()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError writes a JSON error response classified by the error chain.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code, status := classify(err)
	if status >= http.StatusInternalServerError {
		slog.Error("scan request failed", "error", err)
	}
	writeJSON(w, status, ScanResponse{Success: false, Error: err.Error(), ErrorCode: code})
}
