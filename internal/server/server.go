// Package server exposes the document-check API over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/doclab-pl/doclab/internal/common"
	"github.com/doclab-pl/doclab/internal/queue"
	"github.com/doclab-pl/doclab/internal/service"
	"github.com/doclab-pl/doclab/internal/translate"
)

// Server holds the handler dependencies.
type Server struct {
	verifier   *service.Verifier
	translator *translate.Translator
	jobs       *queue.Queue
	logger     *slog.Logger
}

// New wires the server. The jobs queue is optional; without it the job
// endpoints answer 503.
func New(verifier *service.Verifier, translator *translate.Translator, jobs *queue.Queue, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{verifier: verifier, translator: translator, jobs: jobs, logger: logger}
}

// Router builds the chi router with the API routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/verify-document", s.handleVerify)
		r.Post("/translate", s.handleTranslate)
		r.Post("/ocr-preview", s.handleOCRPreview)
		r.Post("/jobs", s.handleEnqueueJob)
		r.Get("/jobs/{id}", s.handleJobStatus)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(started))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps sentinel errors to HTTP statuses. Unmatched errors
// become 500 without leaking internals.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrUnsupportedDocument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrExtractionFailed):
		writeError(w, http.StatusUnprocessableEntity, "text not recognized")
	case errors.Is(err, common.ErrRecognitionRefused):
		writeError(w, http.StatusUnprocessableEntity, "recognition refused by the model")
	default:
		s.logger.Error("http.internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
