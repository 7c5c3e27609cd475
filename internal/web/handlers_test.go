package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cinetrack/cinetrack/internal/config"
	"github.com/cinetrack/cinetrack/internal/importer"
	"github.com/cinetrack/cinetrack/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			RequestTimeout: 5 * time.Second,
		},
		Import: config.ImportConfig{
			MaxFileSize: 1 << 20,
		},
	}
}

func newTestServer(mem *store.Memory) (*Server, *importer.Service) {
	im := importer.New(mem, importer.WithLogger(
		slog.New(slog.NewTextHandler(io.Discard, nil))))
	svc := importer.NewService(im)
	return NewServer(svc, testConfig()), svc
}

func doRequest(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(store.NewMemory())

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("status = %v", body["status"])
	}
}

func TestImportLifecycle(t *testing.T) {
	mem := store.NewMemory()
	s, svc := newTestServer(mem)

	csvBody := "type,genre_name\ngenre,Drama\n"
	req := httptest.NewRequest(http.MethodPost, "/api/imports", bytes.NewBufferString(csvBody))
	req.Header.Set("Content-Type", "text/csv")

	rec := doRequest(s, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body)
	}
	var started map[string]string
	decodeBody(t, rec, &started)
	runID := started["runId"]
	if runID == "" {
		t.Fatal("no runId in response")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := svc.Wait(ctx, runID); err != nil {
		t.Fatal(err)
	}

	rec = doRequest(s, httptest.NewRequest(http.MethodGet, "/api/imports/"+runID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d, want 200", rec.Code)
	}
	var status importer.RunStatus
	decodeBody(t, rec, &status)
	if status.State != importer.StateComplete {
		t.Errorf("state = %s, want complete", status.State)
	}
	if status.Result == nil || status.Result.Inserted != 1 {
		t.Errorf("result = %+v, want inserted=1", status.Result)
	}
	if n := mem.Count(store.EntityGenre); n != 1 {
		t.Errorf("genres = %d, want 1", n)
	}
}

func TestMultipartUpload(t *testing.T) {
	s, svc := newTestServer(store.NewMemory())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "batch.csv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("type,genre_name\ngenre,Horror\n")); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/imports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := doRequest(s, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body)
	}
	var started map[string]string
	decodeBody(t, rec, &started)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	final, err := svc.Wait(ctx, started["runId"])
	if err != nil {
		t.Fatal(err)
	}
	if final.FileName != "batch.csv" {
		t.Errorf("fileName = %q, want batch.csv", final.FileName)
	}
}

func TestDiagnosticsEndpoint(t *testing.T) {
	mem := store.NewMemory()
	mem.FailOn = map[string]bool{"genres": true}
	s, svc := newTestServer(mem)

	req := httptest.NewRequest(http.MethodPost, "/api/imports",
		bytes.NewBufferString("type,genre_name\ngenre,Drama\n"))
	rec := doRequest(s, req)
	var started map[string]string
	decodeBody(t, rec, &started)
	runID := started["runId"]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := svc.Wait(ctx, runID); err != nil {
		t.Fatal(err)
	}

	// The status payload carries tallies but not the diagnostic list.
	rec = doRequest(s, httptest.NewRequest(http.MethodGet, "/api/imports/"+runID, nil))
	var status importer.RunStatus
	decodeBody(t, rec, &status)
	if status.State != importer.StateFailed {
		t.Errorf("state = %s, want failed", status.State)
	}
	if status.Result == nil || status.Result.Failed != 1 {
		t.Fatalf("result = %+v, want failed=1", status.Result)
	}
	if len(status.Result.Diagnostics) != 0 {
		t.Error("status payload should not carry diagnostics")
	}

	rec = doRequest(s, httptest.NewRequest(http.MethodGet, "/api/imports/"+runID+"/diagnostics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("diagnostics endpoint = %d, want 200", rec.Code)
	}
	var diags struct {
		RunID       string                `json:"runId"`
		Diagnostics []importer.Diagnostic `json:"diagnostics"`
	}
	decodeBody(t, rec, &diags)
	if len(diags.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %d, want 1", len(diags.Diagnostics))
	}
	if diags.Diagnostics[0].Row != 1 {
		t.Errorf("diagnostic row = %d, want 1", diags.Diagnostics[0].Row)
	}
}

func TestRunNotFound(t *testing.T) {
	s, _ := newTestServer(store.NewMemory())

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/imports/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	rec = doRequest(s, httptest.NewRequest(http.MethodPost, "/api/imports/nope/cancel", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("cancel = %d, want 404", rec.Code)
	}
}

func TestUploadTooLarge(t *testing.T) {
	s, _ := newTestServer(store.NewMemory())
	s.cfg.Import.MaxFileSize = 16

	req := httptest.NewRequest(http.MethodPost, "/api/imports",
		bytes.NewBufferString("type,genre_name\ngenre,Drama\ngenre,Horror\n"))
	rec := doRequest(s, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
