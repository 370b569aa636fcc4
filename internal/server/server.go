// Package server exposes a materialized record store over HTTP.
//
// The API is read-only: it serves the dataset descriptor, per-split
// counts, raw records, and gathered tensors. Writing happens through the
// CLI, never over the wire.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/patchy/pkg/errors"
	"github.com/matzehuels/patchy/pkg/pipeline"
	"github.com/matzehuels/patchy/pkg/store"
)

// Server serves dataset records over HTTP.
type Server struct {
	store  store.Store
	logger *log.Logger
	router chi.Router
}

// New creates a server over the given store.
func New(st store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{store: st, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/descriptor", s.handleDescriptor)
		r.Route("/splits/{split}", func(r chi.Router) {
			r.Get("/info", s.handleInfo)
			r.Get("/records/{index}", s.handleRecord)
			r.Get("/tensors/{index}", s.handleTensor)
		})
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDescriptor(w http.ResponseWriter, r *http.Request) {
	desc, err := s.store.LoadDescriptor(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, desc)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	split := chi.URLParam(r, "split")
	info, err := s.store.LoadInfo(r.Context(), split)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	split, index, err := recordParams(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rec, err := s.store.Read(r.Context(), split, index)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// tensorResponse is a gathered record: the fixed-shape tensor plus label.
type tensorResponse struct {
	Tensor [][][]float64 `json:"tensor"`
	Label  int           `json:"label"`
}

func (s *Server) handleTensor(w http.ResponseWriter, r *http.Request) {
	split, index, err := recordParams(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	loader, err := pipeline.NewLoader(r.Context(), s.store)
	if err != nil {
		s.writeError(w, err)
		return
	}
	tensor, label, err := loader.Tensor(r.Context(), split, index)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tensorResponse{Tensor: tensor, Label: label})
}

func recordParams(r *http.Request) (string, int, error) {
	split := chi.URLParam(r, "split")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return "", 0, errors.New(errors.ErrCodeInvalidConfig, "index must be an integer")
	}
	return split, index, nil
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound, errors.ErrCodeRecordNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidStrategy, errors.ErrCodeInvalidSplit:
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, errorResponse{
		Code:    string(errors.GetCode(err)),
		Message: errors.UserMessage(err),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}
