// Package server exposes the graph builder over HTTP.
//
// Routes:
//
//	GET  /api/v1/security-groups  graph of the live security groups
//	POST /api/v1/graph            graph of the security groups in the body
//	GET  /healthz                 liveness
//	GET  /metrics                 Prometheus metrics
//
// Failures are answered with {"messages": [...]}.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"vpc-visualizer/internal/cache"
	vverrors "vpc-visualizer/internal/errors"
	"vpc-visualizer/internal/metrics"
	"vpc-visualizer/internal/parser"
)

const (
	tracerName          = "vpc-visualizer/server"
	defaultMaxBodyBytes = 10 << 20
	shutdownTimeout     = 10 * time.Second
)

// Source yields the live batch served by GET /api/v1/security-groups.
type Source interface {
	SecurityGroups(ctx context.Context) ([]parser.SecurityGroup, error)
	Region() string
	AccountIDs() []string
}

// Options configures a Server. Only Logger is required; a nil Source
// disables the live endpoint and a nil Cache disables caching.
type Options struct {
	Source       Source
	Cache        cache.Cache
	Metrics      *metrics.Registry
	Tracer       trace.Tracer
	Logger       *log.Logger
	APIToken     string
	CacheTTL     time.Duration
	MaxBodyBytes int64
}

// Server is the HTTP API.
type Server struct {
	opts   Options
	router chi.Router
}

// New builds the server and its routes.
func New(opts Options) *Server {
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRegistry()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}

	s := &Server{opts: opts}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.recoverer, s.requestID, s.logging, s.instrument, s.cors)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessages(w, http.StatusNotFound, fmt.Sprintf("no route for %s", r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, vverrors.New(vverrors.KindMethodNotAllowed, "method %s is not allowed on %s", r.Method, r.URL.Path))
	})

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.opts.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/security-groups", s.handleSecurityGroups)
		r.Post("/graph", s.handleGraph)
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("Starting HTTP server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.opts.Logger.Info("Shutting down HTTP server", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return <-errCh
}
