package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server wraps an [http.Server] whose lifetime is bound to a context.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
	ready           chan struct{}
	addr            string
}

// New creates a Server for the given handler. A default host of
// "127.0.0.1:8080", sensible timeouts, and the default slog logger are
// used unless overridden via options.
func New(handler http.Handler, opts ...Option) *Server {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	srv := &http.Server{
		Addr:         "127.0.0.1:8080",
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if o.host != "" {
		srv.Addr = o.host
	}
	if o.readTimeout != 0 {
		srv.ReadTimeout = o.readTimeout
	}
	if o.writeTimeout != 0 {
		srv.WriteTimeout = o.writeTimeout
	}
	if o.idleTimeout != 0 {
		srv.IdleTimeout = o.idleTimeout
	}

	s := Server{
		srv:             srv,
		shutdownTimeout: 5 * time.Second,
		logger:          slog.Default(),
		ready:           make(chan struct{}),
	}

	if o.shutdownTimeout != 0 {
		s.shutdownTimeout = o.shutdownTimeout
	}
	if o.logger != nil {
		s.logger = o.logger
	}

	srv.ErrorLog = slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn)

	return &s
}

// Run listens on the configured host and serves until ctx is done, then
// drains in-flight requests for at most the shutdown timeout. It returns
// nil on a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.addr = ln.Addr().String()
	close(s.ready)

	serverErrs := make(chan error, 1)
	go func() {
		s.logger.Info("status server started", "addr", s.addr)
		serverErrs <- s.srv.Serve(ln)
	}()

	select {
	case err := <-serverErrs:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()

		if err := s.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}

		s.logger.Info("status server stopped")

		return nil
	}
}

// Ready is closed once Run is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the address Run listens on, resolving a ":0" port. It is
// only valid after Ready is closed.
func (s *Server) Addr() string {
	return s.addr
}

// Shutdown gracefully shuts down the server, closing it outright when
// ctx expires first.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		s.srv.Close()
		return fmt.Errorf("server didn't stop gracefully: %w", err)
	}

	return nil
}
