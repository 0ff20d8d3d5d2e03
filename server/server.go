// Package server is the apidoc HTTP server: a static hello endpoint and the
// service's OpenAPI document, served until a stop request arrives.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/westshgit/apidoc/logging"
	"github.com/westshgit/apidoc/telemetry"
)

// DefaultShutdownTimeout bounds the drain when no timeout is configured.
const DefaultShutdownTimeout = 10 * time.Second

// Server serves the apidoc routes.
type Server struct {
	// ShutdownTimeout bounds how long ServeUntil waits for in-flight requests.
	ShutdownTimeout time.Duration

	http   *http.Server
	logger *logging.Logger
	tracer *telemetry.Tracer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Default: discard.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		s.logger = l.WithComponent("server")
	}
}

// WithTracer sets the tracer used for request spans. Default: the global tracer.
func WithTracer(t *telemetry.Tracer) Option {
	return func(s *Server) {
		s.tracer = t
	}
}

// WithShutdownTimeout sets ShutdownTimeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.ShutdownTimeout = d
	}
}

// New creates a Server. It does not listen until Serve or ServeUntil.
func New(opts ...Option) *Server {
	s := &Server{
		ShutdownTimeout: DefaultShutdownTimeout,
		logger:          logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = telemetry.GetTracer()
	}
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler with request middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(withRequestID, s.observe)
	r.NotFound(handleNotFound)
	r.MethodNotAllowed(handleMethodNotAllowed)

	r.Get("/", handleHello)
	r.Get("/get-openapi", handleOpenAPI)
	return r
}

// Serve accepts connections on ln until the server is shut down. A clean
// shutdown returns nil.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.ServerStart(ln.Addr().String())
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", ln.Addr(), err)
	}
	return nil
}

// ServeUntil serves on ln until await returns, then stops accepting
// connections and waits up to ShutdownTimeout for in-flight requests.
// If serving fails first, the context passed to await is cancelled.
func (s *Server) ServeUntil(ctx context.Context, ln net.Listener, await func(context.Context)) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.Serve(ln)
	})
	g.Go(func() error {
		await(gctx)

		timeout := s.ShutdownTimeout
		if timeout <= 0 {
			timeout = DefaultShutdownTimeout
		}
		sctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return s.OnShutdown(sctx)
	})

	return g.Wait()
}

// OnShutdown implements shutdown.ShutdownHandler. In-flight requests are
// given until ctx is done; after that remaining connections are closed.
func (s *Server) OnShutdown(ctx context.Context) error {
	start := time.Now()
	err := s.http.Shutdown(ctx)
	if err != nil {
		s.http.Close()
		err = fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.ServerStop(time.Since(start), err)
	return err
}
