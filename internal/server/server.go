// Package server exposes the recording pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/xifan2333/gapcapture/internal/pipeline"
	"github.com/xifan2333/gapcapture/pkgs/history"
	"github.com/xifan2333/gapcapture/pkgs/segment"
)

// HealthMessage is returned by GET /api/health.
const HealthMessage = "Portuguese gap-capture backend"

const (
	defaultMaxUpload = 64 << 20
	formMemory       = 32 << 20
	requestIDHeader  = "X-Request-ID"
)

// Processor runs one recording through the pipeline.
type Processor interface {
	Process(ctx context.Context, up pipeline.Upload) (*pipeline.RequestResult, error)
}

// Server holds the handler dependencies.
type Server struct {
	Processor Processor
	History   history.Store

	// StaticDir holds index.html and the /static/ assets.
	StaticDir      string
	AllowedOrigins []string

	// MaxUploadBytes caps the request body. Zero means 64 MiB.
	MaxUploadBytes int64

	Logger *slog.Logger
}

// ErrorResponse is the body of every failed /process-recording request.
type ErrorResponse struct {
	Error      string  `json:"error"`
	Duration   float64 `json:"duration"`
	SpansCount int     `json:"spans_count"`
	RequestID  string  `json:"request_id"`
}

// Handler returns the routed handler wrapped in CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /process-recording", s.processRecording)
	mux.HandleFunc("GET /api/health", s.health)
	mux.HandleFunc("GET /api/history", s.history)
	mux.HandleFunc("GET /{$}", s.index)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.StaticDir))))

	c := cors.New(cors.Options{
		AllowedOrigins:   s.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
	})
	return s.logRequests(c.Handler(mux))
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": HealthMessage})
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.StaticDir, "index.html"))
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	if s.History == nil {
		writeJSON(w, http.StatusOK, []json.RawMessage{})
		return
	}

	docs, err := s.History.List(r.Context(), limit)
	if err != nil {
		s.logger().Error("failed to read history", "error", err, "request_id", requestID(r))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	if docs == nil {
		docs = []json.RawMessage{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) processRecording(w http.ResponseWriter, r *http.Request) {
	id := requestID(r)

	maxBytes := s.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUpload
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	up, status, err := readUpload(r, id)
	if err != nil {
		resp := rejection(err, id, up)
		s.logger().Warn("rejected upload",
			"error", err,
			"request_id", id,
			"duration", resp.Duration,
			"spans_count", resp.SpansCount,
		)
		writeJSON(w, status, resp)
		return
	}

	result, err := s.Processor.Process(r.Context(), up)
	if err != nil {
		writeJSON(w, statusFor(err), envelope(err, id))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// readUpload extracts the multipart fields, returning the status to use
// when they are unusable.
func readUpload(r *http.Request, id string) (pipeline.Upload, int, error) {
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pipeline.Upload{}, http.StatusRequestEntityTooLarge, errors.New("upload too large")
		}
		return pipeline.Upload{}, http.StatusBadRequest, errors.New("expected multipart form data")
	}
	defer r.MultipartForm.RemoveAll()

	up := pipeline.Upload{
		RequestID: id,
		Spans:     r.FormValue("spans"),
		Duration:  r.FormValue("duration"),
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		return up, http.StatusBadRequest, errors.New("audio file is required")
	}
	defer file.Close()

	up.Audio, err = io.ReadAll(file)
	if err != nil {
		return up, http.StatusBadRequest, errors.New("could not read audio file")
	}

	switch {
	case strings.TrimSpace(up.Spans) == "":
		return up, http.StatusBadRequest, errors.New("spans field is required")
	case strings.TrimSpace(up.Duration) == "":
		return up, http.StatusBadRequest, errors.New("duration field is required")
	}
	return up, 0, nil
}

// rejection builds the envelope for an upload refused before processing,
// echoing whatever duration and spans could be read.
func rejection(err error, id string, up pipeline.Upload) ErrorResponse {
	resp := ErrorResponse{Error: "Transcription failed: " + err.Error(), RequestID: id}
	if d, perr := strconv.ParseFloat(strings.TrimSpace(up.Duration), 64); perr == nil && !math.IsNaN(d) && !math.IsInf(d, 0) {
		resp.Duration = d
	}
	if spans, perr := segment.ParseSpans([]byte(up.Spans)); perr == nil {
		resp.SpansCount = len(spans)
	}
	return resp
}

func envelope(err error, id string) ErrorResponse {
	resp := ErrorResponse{Error: "Transcription failed: " + err.Error(), RequestID: id}

	var serr *pipeline.StageError
	if errors.As(err, &serr) {
		resp.Error = "Transcription failed: " + serr.Err.Error()
		resp.Duration = serr.Duration
		resp.SpansCount = serr.SpansCount
		if serr.RequestID != "" {
			resp.RequestID = serr.RequestID
		}
	}
	return resp
}

func statusFor(err error) int {
	switch pipeline.Kind(err) {
	case pipeline.KindValidation:
		return http.StatusBadRequest
	case pipeline.KindDecode:
		return http.StatusUnprocessableEntity
	case pipeline.KindGrammar:
		return http.StatusBadGateway
	case pipeline.KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

type ctxKey struct{}

// requestID returns the id assigned by logRequests.
func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(ctxKey{}).(string); ok {
		return id
	}
	return uuid.NewString()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// logRequests assigns each request an id, echoes it in X-Request-ID and
// logs the outcome.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger().Log(r.Context(), level, "request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start),
		)
	})
}
