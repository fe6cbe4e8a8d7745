// Package api serves the HTTP status endpoints: health probes, the
// performance counters and the Prometheus metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/marmos91/dittodrop/internal/logger"
)

// Server provides the status HTTP server.
//
// Endpoints:
//   - GET /health: Liveness probe
//   - GET /health/ready: Readiness probe
//   - GET /stats: Connection and transfer counters
//   - GET /metrics: Prometheus metrics
type Server struct {
	server       *http.Server
	config       Config
	shutdownOnce sync.Once

	listenerMu sync.RWMutex
	listener   net.Listener
	ready      chan struct{}
}

// NewServer creates a stopped status server. Call Start to serve.
func NewServer(config Config, deps Deps) *Server {
	config.applyDefaults()

	return &Server{
		server: &http.Server{
			Addr:              net.JoinHostPort(config.BindAddress, strconv.Itoa(config.Port)),
			Handler:           NewRouter(deps),
			ReadTimeout:       config.ReadTimeout,
			ReadHeaderTimeout: config.ReadTimeout,
			WriteTimeout:      config.WriteTimeout,
			IdleTimeout:       config.IdleTimeout,
		},
		config: config,
		ready:  make(chan struct{}),
	}
}

// Start serves until ctx is cancelled or the server fails.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the server fails to start or shutdown encounters an error
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		close(s.ready)
		return fmt.Errorf("status server failed to listen on %s: %w", s.server.Addr, err)
	}
	s.listenerMu.Lock()
	s.listener = ln
	s.listenerMu.Unlock()
	close(s.ready)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Status server listening", logger.KeyAddress, ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Debug("Status server shutdown signal received")
		// the parent context is already done
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("status server failed: %w", err)
	}
}

// Stop shuts the server down gracefully. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("status server shutdown error: %w", err)
			logger.Error("Status server shutdown error", logger.KeyError, err)
			return
		}
		logger.Info("Status server stopped")
	})
	return shutdownErr
}

// Addr returns the listening address, blocking until Start has bound the
// port. Returns "" if binding failed.
func (s *Server) Addr() string {
	<-s.ready
	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
