package server

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/wundergraph/cosmo/composition/pkg/composition"
)

// Artifacts is the set of composed outputs the server exposes. The version is
// used as a strong ETag so pollers can cheaply check for changes.
type Artifacts struct {
	SupergraphSDL string
	APISDL        string
	Version       string

	Entities               []*composition.EntityConfiguration
	ArgumentConfigurations []*composition.ArgumentConfiguration
}

type Options struct {
	Addr   string
	Logger *zap.Logger
}

// Server serves the latest composition artifacts over HTTP. It is safe to
// swap artifacts while the server is running.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger

	mu        sync.RWMutex
	artifacts *Artifacts

	ready atomic.Bool
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", s.handleLiveness)
	r.Get("/health/ready", s.handleReadiness)
	r.Get("/supergraph.graphql", s.handleSupergraph)
	r.Get("/api.graphql", s.handleAPISchema)
	r.Get("/config.json", s.handleConfig)

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	return s
}

// SetArtifacts publishes a new composition result. The server reports ready
// once the first result is published.
func (s *Server) SetArtifacts(artifacts *Artifacts) {
	s.mu.Lock()
	s.artifacts = artifacts
	s.mu.Unlock()

	s.ready.Store(artifacts != nil)
}

func (s *Server) currentArtifacts() *Artifacts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artifacts
}

// ListenAndServe blocks until the server stops. http.ErrServerClosed is
// returned after a clean Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("Artifact server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleSupergraph(w http.ResponseWriter, r *http.Request) {
	s.serveText(w, r, func(a *Artifacts) string { return a.SupergraphSDL })
}

func (s *Server) handleAPISchema(w http.ResponseWriter, r *http.Request) {
	s.serveText(w, r, func(a *Artifacts) string { return a.APISDL })
}

func (s *Server) serveText(w http.ResponseWriter, r *http.Request, body func(*Artifacts) string) {
	artifacts := s.currentArtifacts()
	if artifacts == nil {
		http.Error(w, "no composition available", http.StatusServiceUnavailable)
		return
	}

	if s.notModified(w, r, artifacts) {
		return
	}

	w.Header().Set("Content-Type", "application/graphql; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body(artifacts)))
}

// configPayload mirrors the JSON artifact the CLI writes to disk.
type configPayload struct {
	Version                string                               `json:"version"`
	SupergraphSDL          string                               `json:"supergraphSdl"`
	APISDL                 string                               `json:"apiSdl"`
	Entities               []*composition.EntityConfiguration   `json:"entities,omitempty"`
	ArgumentConfigurations []*composition.ArgumentConfiguration `json:"argumentConfigurations,omitempty"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	artifacts := s.currentArtifacts()
	if artifacts == nil {
		http.Error(w, "no composition available", http.StatusServiceUnavailable)
		return
	}

	if s.notModified(w, r, artifacts) {
		return
	}

	payload := configPayload{
		Version:                artifacts.Version,
		SupergraphSDL:          artifacts.SupergraphSDL,
		APISDL:                 artifacts.APISDL,
		Entities:               artifacts.Entities,
		ArgumentConfigurations: artifacts.ArgumentConfigurations,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode config payload", zap.Error(err))
	}
}

func (s *Server) notModified(w http.ResponseWriter, r *http.Request, artifacts *Artifacts) bool {
	etag := `"` + artifacts.Version + `"`
	w.Header().Set("ETag", etag)

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}
