package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/cinetrack/cinetrack/internal/importer"
	"github.com/cinetrack/cinetrack/internal/logging"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"active_runs": s.service.ActiveRuns(),
	})
}

// handleStartImport accepts a CSV source as a multipart "file" part (or a
// raw text/csv body) and starts an asynchronous import run.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	fileName, data, err := readUpload(r, s.cfg.Import.MaxFileSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runID, err := s.service.StartImport(fileName, data)
	if err != nil {
		logger.Error("start import failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not start import")
		return
	}

	logger.Info("import started", "run_id", runID, "file", fileName, "bytes", len(data))
	writeJSON(w, http.StatusAccepted, map[string]string{"runId": runID})
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	status, ok := s.service.Status(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	// Diagnostics have their own endpoint; keep the status payload small.
	if status.Result != nil && len(status.Result.Diagnostics) > 0 {
		trimmed := *status.Result
		trimmed.Diagnostics = nil
		status.Result = &trimmed
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleRunDiagnostics(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	status, ok := s.service.Status(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if status.Result == nil {
		writeError(w, http.StatusConflict, "run still in progress")
		return
	}

	diags := status.Result.Diagnostics
	if diags == nil {
		diags = []importer.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runId":       runID,
		"diagnostics": diags,
	})
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if err := s.service.Cancel(runID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"runId": runID, "status": "cancelling"})
}

// readUpload extracts the CSV payload from a multipart form or a raw body.
func readUpload(r *http.Request, maxSize int64) (string, []byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxSize)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, err
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, err
		}
		return header.Filename, data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, err
	}
	return "upload.csv", data, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
