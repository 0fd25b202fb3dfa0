// Package http exposes an engine's records and sequences over HTTP, with websocket
// streams for remote watchers.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aretw0/ivy/internal/logging"
	"github.com/aretw0/ivy/pkg/catalog"
	"github.com/aretw0/ivy/pkg/domain"
	jsonpatch "github.com/evanphx/json-patch"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var errBadPatch = errors.New("invalid merge patch")

// Engine is the part of the ivy engine the server needs. Mutate runs a serialized
// mutation scope; View runs fn under the engine lock for reads and watch registration.
type Engine interface {
	Catalog() *catalog.Catalog
	Mutate(ctx context.Context, shard string, fn func(ctx context.Context) error) error
	View(fn func() error) error
}

// Server serves the HTTP surface.
type Server struct {
	Engine   Engine
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	buffer   int
	upgrader websocket.Upgrader
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics serves the gatherer's metrics on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithStreamBuffer sets how many events a slow websocket client may lag behind
// before events are dropped.
func WithStreamBuffer(n int) Option {
	return func(s *Server) {
		s.buffer = n
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine: engine,
		logger: logging.NewNop(),
		buffer: 64,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/records", func(r chi.Router) {
		r.Get("/", s.ListRecords)
		r.Get("/{id}", s.GetRecord)
		r.Patch("/{id}", s.PatchRecord)
		r.Get("/{id}/watch", s.WatchRecord)
		r.Put("/{id}/{key}", s.PutField)
		r.Delete("/{id}/{key}", s.DeleteField)
	})
	r.Route("/sequences", func(r chi.Router) {
		r.Get("/", s.ListSequences)
		r.Get("/{id}", s.GetSequence)
		r.Post("/{id}", s.InsertElement)
		r.Get("/{id}/watch", s.WatchSequence)
		r.Put("/{id}/{offset}", s.SetElement)
		r.Delete("/{id}/{offset}", s.RemoveElement)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Caller")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// requestContext carries the caller named by the X-Caller header.
func requestContext(r *http.Request) context.Context {
	ctx := r.Context()
	if caller := r.Header.Get("X-Caller"); caller != "" {
		ctx = domain.WithCaller(ctx, caller)
	}
	return ctx
}

func shardOf(r *http.Request) string {
	return r.URL.Query().Get("shard")
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

// fail maps engine errors to status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadPatch):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrScopeViolation):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrOffsetOutOfRange):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDisposedTarget):
		status = http.StatusGone
	case errors.Is(err, domain.ErrRemoteShard):
		status = http.StatusMisdirectedRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.logger.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	http.Error(w, err.Error(), status)
}

func decodeBody(r *http.Request, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func offsetParam(r *http.Request) (int, error) {
	offset, err := strconv.Atoi(chi.URLParam(r, "offset"))
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q", chi.URLParam(r, "offset"))
	}
	return offset, nil
}

// patchDocument applies an RFC 7386 merge patch to doc.
func patchDocument(doc map[string]any, patch []byte) (map[string]any, error) {
	original, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	merged, err := jsonpatch.MergePatch(original, patch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadPatch, err)
	}
	out := make(map[string]any)
	if err := json.Unmarshal(merged, &out); err != nil {
		return nil, fmt.Errorf("%w: result is not an object", errBadPatch)
	}
	return out, nil
}
