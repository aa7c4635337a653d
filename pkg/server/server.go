// Package server runs the Kestrel HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"kestrel-hq/kestrel/pkg/config"
)

// Server serves a prebuilt handler until its context ends, a termination
// signal arrives or Shutdown is called.
type Server struct {
	config     *config.ServerConfig
	handler    http.Handler
	httpServer *http.Server
	listening  chan struct{}
	addr       net.Addr
	shutdownCh chan struct{}
	stopOnce   sync.Once
	closeOnce  sync.Once
	mu         sync.RWMutex
	isRunning  bool
	logger     *slog.Logger
}

// NewServer creates a server for handler using the listen address and
// timeouts of cfg.
func NewServer(cfg *config.ServerConfig, handler http.Handler) *Server {
	return &Server{
		config:     cfg,
		handler:    handler,
		listening:  make(chan struct{}),
		shutdownCh: make(chan struct{}),
		logger:     slog.Default().With("component", "server"),
	}
}

// Address returns the configured host:port.
func (s *Server) Address() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Start binds the listen address and serves until shutdown. It returns nil
// after a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.Address())
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.Address(), err)
	}

	s.httpServer = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}
	s.addr = ln.Addr()
	s.isRunning = true
	s.mu.Unlock()
	close(s.listening)

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "address", ln.Addr().String())

		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errChan:
		s.markStopped()
		return err
	case <-s.shutdownCh:
		s.logger.Info("shutdown requested")
	}

	return s.shutdown(context.Background())
}

// Listening is closed once Start has bound its address.
func (s *Server) Listening() <-chan struct{} {
	return s.listening
}

// Addr returns the bound address, or nil before Start has bound one.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Shutdown asks a running Start to stop gracefully. It does not wait for
// Start to return.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() {
		close(s.shutdownCh)
	})
}

func (s *Server) shutdown(ctx context.Context) error {
	var shutdownErr error

	s.closeOnce.Do(func() {
		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.markStopped()
		s.logger.Info("server stopped")
	})

	return shutdownErr
}

func (s *Server) markStopped() {
	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
