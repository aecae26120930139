// Package http exposes an engine over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aretw0/taskgraph/internal/presentation/graph"
	"github.com/aretw0/taskgraph/pkg/domain"
	taskgraph "github.com/aretw0/taskgraph/pkg/graph"
	"github.com/aretw0/taskgraph/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine is the part of taskgraph.Engine the server uses.
type Engine interface {
	Execute(ctx context.Context, request domain.ClientRequest, fragments []domain.Fragment) ([]domain.FragmentEvent, error)
	Tasks() []string
	Inspect(name string) (*taskgraph.Export, error)
}

// ProcessRequest is the body of POST /process.
type ProcessRequest struct {
	Request   domain.ClientRequest `json:"request"`
	Fragments []domain.Fragment    `json:"fragments"`
}

// ProcessResponse is the body returned by POST /process.
type ProcessResponse struct {
	Events []domain.FragmentEvent `json:"events"`
	Error  string                 `json:"error,omitempty"`
}

// DefaultMaxBodyBytes bounds the body of POST /process.
const DefaultMaxBodyBytes = 10 << 20

// Server serves the engine.
type Server struct {
	Engine       Engine
	Events       ports.EventLister
	Streams      *StreamManager
	Metrics      http.Handler
	Version      string
	Logger       *slog.Logger
	MaxBodyBytes int64
}

// Option configures a Server.
type Option func(*Server)

// WithEvents serves recent events from l on GET /events.
func WithEvents(l ports.EventLister) Option {
	return func(s *Server) { s.Events = l }
}

// WithStreams serves the events broadcast by sm on GET /events/stream.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) { s.Streams = sm }
}

// WithMetricsHandler replaces the default Prometheus handler.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.Metrics = h }
}

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) { s.Version = v }
}

// WithMaxBodyBytes bounds the body of POST /process.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.MaxBodyBytes = n }
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.Logger = l }
}

// NewHandler creates the HTTP handler for engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:       engine,
		Metrics:      promhttp.Handler(),
		Version:      "dev",
		Logger:       slog.Default(),
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Post("/process", s.Process)
	r.Get("/tasks", s.ListTasks)
	r.Get("/tasks/{name}/graph", s.GetGraph)
	r.Get("/events", s.ListEvents)
	r.Get("/events/stream", s.SubscribeEvents)
	r.Method(http.MethodGet, "/metrics", s.Metrics)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	return r
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

// Process handles POST /process.
// Without an explicit request, the HTTP request's path, method, headers and
// query parameters describe the fragments.
func (s *Server) Process(w http.ResponseWriter, r *http.Request) {
	var body ProcessRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.MaxBodyBytes)).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
		} else {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
		}
		s.Logger.Warn("process: invalid request body", "err", err)
		return
	}
	if body.Request.Path == "" && body.Request.Method == "" {
		body.Request = domain.ClientRequest{
			Path:    r.URL.Path,
			Method:  r.Method,
			Headers: r.Header,
			Params:  r.URL.Query(),
		}
	}

	events, err := s.Engine.Execute(r.Context(), body.Request, body.Fragments)
	resp := ProcessResponse{Events: events}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = statusFor(err)
		s.Logger.Warn("process: fragments not processed", "err", err)
	}
	writeJSON(w, status, resp, s.Logger)
}

// ListTasks handles GET /tasks.
func (s *Server) ListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"tasks": s.Engine.Tasks()}, s.Logger)
}

// GetGraph handles GET /tasks/{name}/graph. ?format=mermaid returns a Mermaid flowchart.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	export, err := s.Engine.Inspect(name)
	if err != nil {
		http.Error(w, fmt.Sprintf("Inspect error: %v", err), statusFor(err))
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, export, s.Logger)
	case "mermaid":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(graph.GenerateMermaid(export, nil)))
	default:
		http.Error(w, "Unknown format", http.StatusBadRequest)
	}
}

// ListEvents handles GET /events.
func (s *Server) ListEvents(w http.ResponseWriter, r *http.Request) {
	if s.Events == nil {
		http.Error(w, "No event store configured", http.StatusNotFound)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": s.Events.Recent(limit)}, s.Logger)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.Logger)
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"app": "taskgraph-http", "version": s.Version}, s.Logger)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "err", err)
	}
}
