package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mcoot/fhecity/internal/config"
)

// Server runs the API over HTTP and drains it on shutdown
type Server struct {
	http            *http.Server
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// NewServer creates a server for handler. Write timeouts are left unset
// because event streams stay open for as long as the client listens.
func NewServer(handler http.Handler, cfg config.ServerConfig, logger *slog.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		logger:          logger.With(slog.String("component", "http-server")),
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// OnShutdown registers fn to run when Shutdown begins. Long-lived handlers
// use it to end their responses so draining does not wait on them.
func (s *Server) OnShutdown(fn func()) {
	s.http.RegisterOnShutdown(fn)
}

// ListenAndServe binds the configured address and serves until Shutdown
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("serving", slog.String("addr", ln.Addr().String()))

	err := s.http.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits up to the configured
// timeout for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("draining connections", slog.Duration("timeout", s.shutdownTimeout))

	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("stopped")
	return nil
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.http.Addr
}
