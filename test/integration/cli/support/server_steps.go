package support

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/zbargo/internal/server"
)

// startServer runs the scan API in process on a random port.
func (testCtx *TestContext) startServer(cfg server.Config) error {
	testCtx.StopServer()
	s, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	testCtx.HTTPServer = httptest.NewServer(s.Handler())
	return nil
}

func (testCtx *TestContext) theScanServerIsRunning() error {
	return testCtx.startServer(server.Config{CORSOrigin: "*", TimeoutSec: 30})
}

func (testCtx *TestContext) theScanServerIsRunningWithALimitOf(perMinute int) error {
	return testCtx.startServer(server.Config{CORSOrigin: "*", TimeoutSec: 30, RequestsPerMinute: perMinute})
}

// do sends one request and records the response.
func (testCtx *TestContext) do(method, path string, body io.Reader, contentType string) error {
	if testCtx.HTTPServer == nil {
		return errors.New("server is not running")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, testCtx.HTTPServer.URL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := testCtx.HTTPServer.Client().Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(data)
	testCtx.LastHTTPHeaders = resp.Header
	return nil
}

func (testCtx *TestContext) iSendARequestTo(method, path string) error {
	return testCtx.do(method, path, nil, "")
}

// iUploadTo posts a temp file as multipart form data. PDFs go to the "pdf"
// field, everything else to "image".
func (testCtx *TestContext) iUploadTo(name, path string) error {
	data, err := os.ReadFile(testCtx.TempPath(name))
	if err != nil {
		return err
	}
	field := "image"
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		field = "pdf"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	return testCtx.do(http.MethodPost, path, &body, mw.FormDataContentType())
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("status %d, want %d\nBody: %s", testCtx.LastHTTPStatusCode, code, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, value string) error {
	if got := testCtx.LastHTTPHeaders.Get(name); got != value {
		return fmt.Errorf("header %s is %q, want %q", name, got, value)
	}
	return nil
}

// theResponseShouldReportSymbol looks for a decoded symbol in a /scan reply.
func (testCtx *TestContext) theResponseShouldReportSymbol(kind, data string) error {
	var resp server.ScanResponse
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &resp); err != nil {
		return fmt.Errorf("response is not a scan response: %w\nBody: %s", err, testCtx.LastHTTPResponse)
	}
	if !resp.Success || resp.Result == nil {
		return fmt.Errorf("scan failed: %s", resp.Error)
	}
	for _, sym := range resp.Result.Symbols {
		if sym.Type == kind && sym.Data == data {
			return nil
		}
	}
	return fmt.Errorf("symbol %s:%s not reported\nBody: %s", kind, data, testCtx.LastHTTPResponse)
}

// RegisterServerSteps registers HTTP API step definitions.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the scan server is running$`, testCtx.theScanServerIsRunning)
	sc.Step(`^the scan server is running with a limit of (\d+) requests per minute$`,
		testCtx.theScanServerIsRunningWithALimitOf)
	sc.Step(`^I send a (GET|POST|OPTIONS) request to "([^"]*)"$`, testCtx.iSendARequestTo)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)"$`, testCtx.iUploadTo)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response should report ([\w/-]+) "([^"]*)"$`, testCtx.theResponseShouldReportSymbol)
}
