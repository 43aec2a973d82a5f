package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/MeKo-Tech/zbargo/internal/pdf"
)

// PDFResponse wraps /scan/pdf replies.
type PDFResponse struct {
	Success   bool                `json:"success"`
	Result    *pdf.DocumentResult `json:"result,omitempty"`
	Error     string              `json:"error,omitempty"`
	ErrorCode ErrorCode           `json:"error_code,omitempty"`
}

// scanPDFHandler scans the images embedded in an uploaded PDF. Form fields:
// "pdf" (file), "pages" (range such as "1-3,5") and "password".
func (s *Server) scanPDFHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		scanRequestsTotal.WithLabelValues("pdf", "error").Inc()
		s.writeError(w, fmt.Errorf("failed to parse form data: %w", wrapRequestErr(err)))
		return
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		scanRequestsTotal.WithLabelValues("pdf", "error").Inc()
		s.writeError(w, fmt.Errorf("%w: no PDF file provided", errInvalidRequest))
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	path, err := spool(file)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer func() { _ = os.Remove(path) }()

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var creds *pdf.PasswordCredentials
	if pw := r.FormValue("password"); pw != "" {
		creds = &pdf.PasswordCredentials{UserPassword: pw, OwnerPassword: pw}
	}

	start := time.Now()
	doc, err := s.pdf.ProcessFileWithCredentials(ctx, path, r.FormValue("pages"), creds)
	if err != nil {
		scanRequestsTotal.WithLabelValues("pdf", "error").Inc()
		if pdf.IsPasswordError(err) {
			err = fmt.Errorf("%w: %v", errInvalidRequest, err)
		}
		code, status := classify(err)
		writeJSON(w, status, PDFResponse{Error: err.Error(), ErrorCode: code})
		return
	}
	doc.Filename = header.Filename

	br := doc.BatchResult()
	for _, img := range br.Images {
		recordScan("pdf", img.Duration, img.Symbols)
	}
	scanDuration.WithLabelValues("pdf_document").Observe(time.Since(start).Seconds())

	if responseFormat(r) == formatText {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := br.Write(w, formatText, false); err != nil {
			slog.Error("Failed to write PDF text response", "error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, PDFResponse{Success: true, Result: doc})
}

// spool copies an upload to a temporary file, as pdfcpu works on paths.
func spool(r io.Reader) (string, error) {
	f, err := os.CreateTemp("", "zbar-upload-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
