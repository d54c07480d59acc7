// Package http serves the status of a session over HTTP: health, build info,
// Prometheus metrics and a server-sent stream of lifecycle events.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"

	"github.com/aretw0/kvsession/pkg/domain"
	"github.com/aretw0/kvsession/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status reports the session attributes.
type Status interface {
	Stats() session.Stats
}

// Watcher streams encoded lifecycle events until ctx is done.
type Watcher interface {
	Watch(ctx context.Context) (<-chan string, error)
}

// Server holds the collaborators behind the handlers.
type Server struct {
	Status  Status
	Events  Watcher // Optional; /events is not routed without it
	Version string
	Logger  *slog.Logger
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Session session.Stats `json:"session"`
}

// NewHandler creates the status router. /metrics is served from gatherer when it is not nil.
func NewHandler(server *Server, gatherer prometheus.Gatherer) http.Handler {
	if server.Logger == nil {
		server.Logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", server.GetHealth)
	r.Get("/info", server.GetInfo)
	if server.Events != nil {
		r.Get("/events", server.SubscribeEvents)
	}
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// GetHealth handles GET /healthz. It answers 503 unless the session is Ready.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.Status.Stats()
	resp := HealthResponse{Status: "ok", Session: stats}
	code := http.StatusOK
	if stats.State != domain.StateReady {
		resp.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, resp)
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "kvsession",
		"version": s.Version,
	})
}

// SubscribeEvents handles the GET /events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	events, err := s.Events.Watch(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Watch error: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Warn("Failed to encode response", "err", err)
	}
}
