// Package http exposes a running studio over HTTP: journal and activity
// inspection, event injection, studio switching, metrics and a live event stream.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/studio"
	"github.com/aretw0/studio/internal/logging"
	"github.com/aretw0/studio/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Inspector is the concurrent-safe surface of a running studio.
type Inspector interface {
	View() studio.View
	ActivateStudio(name string)
	Emit(ctx context.Context, topic string, id int, payload []byte, delay time.Duration) error
	Undo()
	Redo()
}

var _ Inspector = (*studio.Studio)(nil)

// Server serves the inspector API.
type Server struct {
	App      Inspector
	Streams  *StreamManager
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithGatherer serves gatherer's metrics on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithStreams serves the given stream manager on GET /stream.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) { s.Streams = sm }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// EventRequest is the body of POST /events.
type EventRequest struct {
	Topic   string `json:"topic"`
	ID      int    `json:"id"`
	Payload string `json:"payload,omitempty"`
	DelayMS int64  `json:"delay_ms,omitempty"`
}

const maxEventBody = 1 << 20

// NewHandler creates the HTTP handler for app.
func NewHandler(app Inspector, opts ...Option) http.Handler {
	server := &Server{
		App:     app,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}
	server.logger = logging.Component(server.logger, "http")

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/view", server.GetView)
	r.Get("/journal", server.GetJournal)
	r.Post("/journal/undo", server.PostUndo)
	r.Post("/journal/redo", server.PostRedo)
	r.Get("/activities", server.GetActivities)
	r.Post("/studios/{name}", server.PostStudio)
	r.Post("/events", server.PostEvent)
	r.Get("/stream", server.GetStream)
	r.Get("/openapi.yaml", server.GetOpenAPI)
	if server.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(server.gatherer, promhttp.HandlerOpts{}))
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "studio-http",
		"version": strings.TrimSpace(studio.Version),
	})
}

// GetView handles GET /view.
func (s *Server) GetView(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.App.View())
}

// GetJournal handles GET /journal.
func (s *Server) GetJournal(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.App.View().Journal)
}

// PostUndo handles POST /journal/undo. The undo runs on the next frame.
func (s *Server) PostUndo(w http.ResponseWriter, r *http.Request) {
	s.App.Undo()
	w.WriteHeader(http.StatusAccepted)
}

// PostRedo handles POST /journal/redo. The redo runs on the next frame.
func (s *Server) PostRedo(w http.ResponseWriter, r *http.Request) {
	s.App.Redo()
	w.WriteHeader(http.StatusAccepted)
}

// GetActivities handles GET /activities.
func (s *Server) GetActivities(w http.ResponseWriter, r *http.Request) {
	v := s.App.View()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"studio":     v.Studio,
		"studios":    v.Studios,
		"activities": v.Activities,
	})
}

// PostStudio handles POST /studios/{name}. The switch happens on the next frame.
func (s *Server) PostStudio(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	known := false
	for _, st := range s.App.View().Studios {
		known = known || st == name
	}
	if !known {
		http.Error(w, fmt.Sprintf("unknown studio %q", name), http.StatusNotFound)
		return
	}
	s.App.ActivateStudio(name)
	w.WriteHeader(http.StatusAccepted)
}

// PostEvent handles POST /events.
func (s *Server) PostEvent(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBody))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validateBody("EventRequest", data); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		s.logger.Warn("PostEvent: invalid request body", "err", err)
		return
	}
	var body EventRequest
	if err := json.Unmarshal(data, &body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.ID == 0 {
		http.Error(w, "id 0 is reserved", http.StatusBadRequest)
		return
	}
	if body.DelayMS < 0 {
		http.Error(w, "delay_ms must not be negative", http.StatusBadRequest)
		return
	}

	var payload []byte
	if body.Payload != "" {
		payload = []byte(body.Payload)
	}
	delay := time.Duration(body.DelayMS) * time.Millisecond
	if err := s.App.Emit(r.Context(), body.Topic, body.ID, payload, delay); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrEngineStopped) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		s.logger.Error("PostEvent: emit failed", "topic", body.Topic, "id", body.ID, "err", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// GetStream handles GET /stream (SSE). The optional "types" query parameter is a
// comma-separated list of event types to forward.
func (s *Server) GetStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var filter map[string]bool
	if types := r.URL.Query().Get("types"); types != "" {
		filter = map[string]bool{}
		for _, t := range strings.Split(types, ",") {
			filter[strings.TrimSpace(t)] = true
		}
	}

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if filter != nil && !filter[ev.Type] {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data)
			flusher.Flush()
		}
	}
}
