package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/upi-statement-analyzer/internal/config"
	"github.com/insightdelivered/upi-statement-analyzer/internal/pdftest"
	"github.com/insightdelivered/upi-statement-analyzer/internal/pipeline"
)

func TestMain(m *testing.M) {
	decimal.MarshalJSONWithoutQuotes = true
	os.Exit(m.Run())
}

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := config.Default()
	cfg.Extraction.EnablePdftotext = false
	a, err := pipeline.New(cfg)
	if err != nil {
		t.Fatalf("analyzer: %v", err)
	}
	return NewApp(&Handler{Analyzer: a, Log: zerolog.Nop()}, cfg.Server.MaxUploadMB)
}

func uploadRequest(t *testing.T, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if data != nil {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		fw.Write(data)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/api/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to decode response %q: %v", body, err)
	}
	return resp.StatusCode, result
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(t)

	status, result := doRequest(t, app, httptest.NewRequest("GET", "/api/health", nil))
	if status != fiber.StatusOK {
		t.Errorf("expected 200, got %d", status)
	}
	if result["status"] != "ok" {
		t.Errorf("expected status=ok, got %v", result["status"])
	}
	if result["engine"] != "fiber" {
		t.Errorf("expected engine=fiber, got %v", result["engine"])
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	app := setupTestApp(t)
	data := pdftest.Build([]pdftest.Page{pdftest.Lines(
		"Account statement",
		"15 Jan 2024 Paid to Amazon Rs 1,250.00",
		"20 Feb 2024 Received from Jane Rs 500",
	)})

	status, result := doRequest(t, app, uploadRequest(t, "statement.pdf", data, nil))
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, result["error"])
	}
	if result["success"] != true {
		t.Errorf("expected success=true, got %v", result["success"])
	}

	txns, ok := result["transactions"].([]interface{})
	if !ok || len(txns) != 2 {
		t.Fatalf("expected 2 transactions, got %v", result["transactions"])
	}
	first := txns[0].(map[string]interface{})
	if first["amount"] != -1250.0 {
		t.Errorf("expected amount -1250 as a JSON number, got %v", first["amount"])
	}
	if first["category"] != "Shopping" {
		t.Errorf("expected Shopping, got %v", first["category"])
	}

	summary, ok := result["summary"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected summary object, got %v", result["summary"])
	}
	if summary["totalSpent"] != -1250.0 {
		t.Errorf("expected totalSpent -1250, got %v", summary["totalSpent"])
	}
	if _, ok := summary["categoryBreakdown"].(map[string]interface{}); !ok {
		t.Errorf("expected categoryBreakdown object, got %v", summary["categoryBreakdown"])
	}
	if csv, _ := result["csv"].(string); !strings.Contains(csv, "Date,Description") {
		t.Errorf("expected CSV export in response, got %q", csv)
	}
}

func TestAnalyzeEndpointErrors(t *testing.T) {
	app := setupTestApp(t)
	page := []pdftest.Page{pdftest.Lines("Account statement")}

	tests := []struct {
		name   string
		req    func() *http.Request
		status int
	}{
		{
			name: "missing file",
			req: func() *http.Request {
				return uploadRequest(t, "", nil, map[string]string{"bank": "kotak"})
			},
			status: fiber.StatusBadRequest,
		},
		{
			name: "not a pdf",
			req: func() *http.Request {
				return uploadRequest(t, "statement.pdf", []byte("hello"), nil)
			},
			status: fiber.StatusBadRequest,
		},
		{
			name: "unknown bank",
			req: func() *http.Request {
				return uploadRequest(t, "statement.pdf", pdftest.Build(page), map[string]string{"bank": "sbi"})
			},
			status: fiber.StatusBadRequest,
		},
		{
			name: "encrypted",
			req: func() *http.Request {
				return uploadRequest(t, "statement.pdf", pdftest.Build(page, pdftest.Encrypted()), nil)
			},
			status: fiber.StatusUnauthorized,
		},
		{
			name: "too many pages",
			req: func() *http.Request {
				return uploadRequest(t, "statement.pdf", pdftest.Build(page, pdftest.DeclaredPages(900)), nil)
			},
			status: fiber.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, result := doRequest(t, app, tt.req())
			if status != tt.status {
				t.Errorf("expected %d, got %d: %v", tt.status, status, result["error"])
			}
			if result["success"] != false {
				t.Errorf("expected success=false, got %v", result["success"])
			}
			if msg, _ := result["error"].(string); msg == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("expected Go runtime metrics in the exposition")
	}
}
