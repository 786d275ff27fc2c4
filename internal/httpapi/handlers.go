package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/dgnsrekt/lingocast/internal/history"
	"github.com/dgnsrekt/lingocast/internal/job"
	"github.com/dgnsrekt/lingocast/internal/service"
	"github.com/dgnsrekt/lingocast/internal/storage"
)

// Response messages.
const (
	msgCSVSuccess  = "Audio generated successfully from CSV"
	msgCSVFailure  = "Failed to generate audio from CSV"
	msgTextSuccess = "Audio generated successfully"
	msgTextFailure = "Failed to generate audio"
	msgNotFound    = "Audio file not found"
	msgOnlyCSV     = "Only CSV files are supported"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("Could not write response", "err", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, job.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoSentences):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Audio Microservice is running!"})
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Health(r.Context()))
}

func (s *Server) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	langs := s.backend.SupportedLanguages()
	writeJSON(w, http.StatusOK, map[string]any{"languages": langs, "total": len(langs)})
}

func (s *Server) handleCSV(w http.ResponseWriter, r *http.Request) {
	fail := func(status int, err error) {
		writeJSON(w, status, job.Response{Message: msgCSVFailure, Error: err.Error()})
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadMB<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d MB", s.cfg.MaxUploadMB))
			return
		}
		fail(http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("csv_file")
	if err != nil {
		fail(http.StatusBadRequest, errors.New("csv_file is required"))
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		fail(http.StatusBadRequest, errors.New(msgOnlyCSV))
		return
	}

	req, err := job.DecodeRequest(r.FormValue("request"))
	if err != nil {
		fail(http.StatusBadRequest, err)
		return
	}

	log.Info("CSV job received", "file", header.Filename, "size", header.Size,
		"languages", strings.Join(req.Codes(), ","), "request_id", RequestID(r.Context()))

	res, err := s.backend.ProcessCSV(r.Context(), file, req)
	if err != nil {
		log.Error("CSV job failed", "err", err, "request_id", RequestID(r.Context()))
		fail(statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, job.Response{Success: true, Message: msgCSVSuccess, OutputFile: res.OutputFile})
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	fail := func(status int, err error) {
		writeJSON(w, status, job.TextResponse{Message: msgTextFailure, Error: err.Error()})
	}

	var req job.TextRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		fail(http.StatusBadRequest, fmt.Errorf("%w: malformed body: %v", job.ErrInvalidRequest, err))
		return
	}

	res, err := s.backend.TextToAudio(r.Context(), req)
	if err != nil {
		log.Error("Text job failed", "err", err, "request_id", RequestID(r.Context()))
		fail(statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, job.TextResponse{Success: true, Message: msgTextSuccess, AudioFile: res.OutputFile})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.backend.ListFiles(r.Context())
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	if files == nil {
		files = []storage.FileInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files, "total": len(files)})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	rc, info, err := s.backend.OpenFile(r.Context(), name)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidName) {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Filename))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	if _, err := io.Copy(w, rc); err != nil {
		log.Warn("Download interrupted", "file", name, "err", err)
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	err := s.backend.DeleteFile(r.Context(), name)
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidName):
		writeDetail(w, http.StatusNotFound, msgNotFound)
	case err != nil:
		writeDetail(w, http.StatusInternalServerError, "Failed to delete file: "+err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("File %s deleted successfully", name)})
	}
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := s.backend.RecentJobs(r.Context(), limit)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	if jobs == nil {
		jobs = []history.Job{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "total": len(jobs)})
}
