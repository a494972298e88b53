package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/omr/internal/common"
	"github.com/MeKo-Tech/omr/internal/engine"
	"github.com/MeKo-Tech/omr/internal/metrics"
	"github.com/MeKo-Tech/omr/internal/pdf"
	"github.com/MeKo-Tech/omr/internal/template"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, "method_not_allowed", "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   s.version,
		Time:      time.Now().UTC().Format(time.RFC3339),
		UptimeSec: int64(time.Since(s.started).Seconds()),
		Template:  s.engine != nil,
		Memory:    common.GetMemoryStats(),
	})
}

// recognizeHandler runs a recognition over the uploaded "images" files. A
// "template" file overrides the server layout for this request; PDFs are
// expanded into their page images.
func (s *Server) recognizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, "method_not_allowed", "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, "too_large", "Upload exceeds the size limit", http.StatusRequestEntityTooLarge)
			return
		}
		s.writeErrorResponse(w, "invalid_request", "Failed to parse form data", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	rec, err := s.requestRecognizer(r)
	if err != nil {
		s.writeErrorResponse(w, "invalid_template", err.Error(), http.StatusBadRequest)
		return
	}
	if rec == nil {
		s.writeErrorResponse(w, "no_template", "No template configured; upload one as \"template\"", http.StatusBadRequest)
		return
	}

	sources, err := readSources(r.MultipartForm.File["images"])
	if err != nil {
		s.writeErrorResponse(w, "invalid_request", err.Error(), http.StatusBadRequest)
		return
	}
	if len(sources) == 0 {
		s.writeErrorResponse(w, "invalid_request", "No images provided", http.StatusBadRequest)
		return
	}

	in := engine.Input{TaskID: taskID(r.FormValue("task_id")), Sources: sources}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	start := time.Now()
	out, err := rec.Recognize(ctx, in)
	if err != nil {
		metrics.ObserveFailure("recognize")
		s.writeRecognitionError(w, err)
		return
	}
	metrics.ObserveOutput("recognize", out, time.Since(start))
	s.writeJSON(w, http.StatusOK, out)
}

// secondHandler runs a second-pass recognition from a JSON body.
func (s *Server) secondHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, "method_not_allowed", "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.engine == nil {
		s.writeErrorResponse(w, "no_template", "Server has no engine configured", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)
	var in engine.SecondInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, "too_large", "Body exceeds the size limit", http.StatusRequestEntityTooLarge)
			return
		}
		s.writeErrorResponse(w, "invalid_request", fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}
	in.TaskID = taskID(in.TaskID)

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	start := time.Now()
	out, err := s.engine.RecognizeSecond(ctx, in)
	if err != nil {
		metrics.ObserveFailure("second")
		s.writeRecognitionError(w, err)
		return
	}
	metrics.ObserveOutput("second", out, time.Since(start))
	s.writeJSON(w, http.StatusOK, out)
}

// requestRecognizer returns the engine of the uploaded layout, or the server
// engine when none was uploaded.
func (s *Server) requestRecognizer(r *http.Request) (Recognizer, error) {
	files := r.MultipartForm.File["template"]
	if len(files) == 0 {
		return s.engine, nil
	}
	if s.layouts == nil {
		return nil, errors.New("template uploads are disabled")
	}
	data, err := readPart(files[0])
	if err != nil {
		return nil, err
	}
	return s.layouts(data, template.FormatFromPath(files[0].Filename))
}

func readSources(files []*multipart.FileHeader) ([]engine.Source, error) {
	var sources []engine.Source
	for _, fh := range files {
		data, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		uploadSizeBytes.Observe(float64(len(data)))
		if !isPDF(fh.Filename, data) {
			sources = append(sources, engine.Source{Name: fh.Filename, Data: data})
			continue
		}
		pages, err := pdf.Extract(bytes.NewReader(data), pdf.Options{})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fh.Filename, err)
		}
		for _, p := range pages {
			sources = append(sources, engine.Source{Name: fmt.Sprintf("%s#%d", fh.Filename, p.Page), Image: p.Image})
		}
	}
	return sources, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return data, nil
}

func isPDF(name string, data []byte) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf") || bytes.HasPrefix(data, []byte("%PDF-"))
}

// taskID keeps a client-supplied id and generates one otherwise.
func taskID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func (s *Server) writeRecognitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrEmptyBatch):
		s.writeErrorResponse(w, "invalid_request", err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.DeadlineExceeded):
		s.writeErrorResponse(w, "timeout", "Recognition timed out", http.StatusGatewayTimeout)
	default:
		s.writeErrorResponse(w, "processing_error", fmt.Sprintf("Recognition failed: %v", err), http.StatusInternalServerError)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, code, message string, status int) {
	s.writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}
