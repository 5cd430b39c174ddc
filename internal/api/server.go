// Package api serves the HTTP query and management API: host registry CRUD,
// sample range queries, health, and Prometheus metrics.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rileyhilliard/loadwatch/internal/logger"
	"github.com/rileyhilliard/loadwatch/internal/store"
	"github.com/rileyhilliard/loadwatch/internal/telemetry"
)

// Store is the registry and sample access the API needs.
type Store interface {
	ListHosts(ctx context.Context) ([]store.Host, error)
	GetHost(ctx context.Context, id int64) (*store.Host, error)
	AddHost(ctx context.Context, h *store.Host) error
	UpdateHost(ctx context.Context, h *store.Host) error
	RemoveHost(ctx context.Context, id int64) error
	QueryRange(ctx context.Context, q store.RangeQuery) ([]store.Sample, error)
	Ping(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	// DefaultLimit applies when a metrics query has no limit parameter.
	DefaultLimit int

	// MaxLimit caps the limit parameter.
	MaxLimit int

	Logger  logger.Logger
	Metrics *telemetry.Metrics
	Version string
}

// Server is the loadwatch HTTP API.
type Server struct {
	httpServer *http.Server
	store      Store
	opts       Options
	log        logger.Logger
	mux        *http.ServeMux
}

// New creates a Server listening on addr once Start is called.
func New(addr string, st Store, opts Options) *Server {
	if opts.DefaultLimit < 1 {
		opts.DefaultLimit = store.DefaultQueryLimit
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = opts.DefaultLimit
	}
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}

	mux := http.NewServeMux()
	s := &Server{
		store: st,
		opts:  opts,
		log:   opts.Logger,
		mux:   mux,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /servers", s.handleListServers)
	s.mux.HandleFunc("POST /servers", s.handleCreateServer)
	s.mux.HandleFunc("GET /servers/{id}", s.handleGetServer)
	s.mux.HandleFunc("PUT /servers/{id}", s.handleUpdateServer)
	s.mux.HandleFunc("DELETE /servers/{id}", s.handleDeleteServer)
	s.mux.HandleFunc("GET /servers/{id}/metrics", s.handleServerMetrics)
	if s.opts.Metrics != nil {
		s.mux.Handle("GET /metrics", s.opts.Metrics.Handler())
	}
}

// Handler returns the routed handler with logging and panic recovery.
func (s *Server) Handler() http.Handler {
	return s.recoverer(s.requestLogger(s.mux))
}

// Start listens and serves until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("API listening on http://%s", ln.Addr())
	if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down API")
	return s.httpServer.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("%s %s -> %d in %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond))
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.log.Error("panic serving %s %s: %v", r.Method, r.URL.Path, v)
				InternalError(w, "unexpected server error", r.URL.Path)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
