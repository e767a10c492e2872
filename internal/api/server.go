// Package api exposes the worker's operational surface: health, metrics,
// and a live snapshot of the pool.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"narration-worker/internal/pool"
	"narration-worker/internal/telemetry"
)

// Server wires the ops HTTP handlers.
type Server struct {
	pool *pool.Pool
}

func New(p *pool.Pool) *Server {
	return &Server{pool: p}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/metrics", telemetry.Handler())

	r.Get("/status", s.handleStatus)
	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.pool.Snapshot()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
