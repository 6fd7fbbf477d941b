// Package health provides the HTTP server used by serve mode, exposing
// the rotation endpoint alongside Prometheus metrics and a liveness
// probe.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/systmms/sesrotate/internal/rotation"
)

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// MetricsPath is the path to serve Prometheus metrics on.
	MetricsPath string

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout bounds response writes. It must cover a full testSecret
	// invocation, which can sleep through the whole verification budget.
	WriteTimeout time.Duration
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         ":8080",
		MetricsPath:  "/metrics",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}

// Server serves rotation requests and operational endpoints.
type Server struct {
	config ServerConfig
	mux    *http.ServeMux
	server *http.Server
}

// NewServer creates a server with the metrics and liveness endpoints
// already registered.
func NewServer(config ServerConfig) *Server {
	rotation.InitMetrics()

	mux := http.NewServeMux()
	mux.Handle(config.MetricsPath, promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{config: config, mux: mux}
}

// Handle registers an additional handler. Must be called before Start.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// Handler exposes the underlying mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the HTTP server until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.mux,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
