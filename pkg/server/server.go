// Package server accepts TCP connections and runs one session per
// connection on a bounded set of goroutines.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/marmos91/dittodrop/internal/bytesize"
	"github.com/marmos91/dittodrop/internal/logger"
	"github.com/marmos91/dittodrop/internal/sysstats"
	"github.com/marmos91/dittodrop/pkg/metrics"
	"github.com/marmos91/dittodrop/pkg/session"
)

// DefaultMaxWorkers is the number of sessions served concurrently when
// Config.MaxWorkers is zero.
const DefaultMaxWorkers = 10

// Config holds listener and lifecycle settings.
type Config struct {
	// BindAddress is the IP address to bind to.
	// Empty string or "0.0.0.0" binds to all interfaces.
	BindAddress string

	// Port is the TCP port to listen on. 0 picks a free port.
	Port int

	// MaxWorkers bounds concurrent sessions. A slot is taken before Accept,
	// so a saturated server leaves new peers in the kernel backlog.
	MaxWorkers int

	// ShutdownTimeout is how long Stop waits for sessions before
	// force-closing their connections. 0 waits indefinitely.
	ShutdownTimeout time.Duration

	// StatsLogInterval enables periodic logging of the tracker counters.
	// 0 disables it.
	StatsLogInterval time.Duration

	// Session configures every session.
	Session session.Config
}

// Server is the connection server.
//
// Thread safety:
// All exported methods are safe for concurrent use. Shutdown is guarded by
// sync.Once so Stop may be called any number of times.
type Server struct {
	cfg Config
	env session.Env

	listener   net.Listener
	listenerMu sync.RWMutex
	ready      chan struct{}

	// sessions tracks running sessions for graceful shutdown.
	sessions sync.WaitGroup

	// conns maps remote address to *sessionConn for interruption and
	// forced closure.
	conns sync.Map

	// slots is the worker pool: one token per running session.
	slots chan struct{}

	shutdownOnce sync.Once
	shutdown     chan struct{}

	// sessionCtx is cancelled on shutdown and passed to every session.
	sessionCtx    context.Context
	cancelSession context.CancelFunc

	done chan struct{}
}

// New creates a stopped server. env.Tracker is required.
func New(cfg Config, env session.Env) *Server {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if env.Tracker == nil {
		env.Tracker = metrics.NewPerformanceTracker()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:           cfg,
		env:           env,
		ready:         make(chan struct{}),
		slots:         make(chan struct{}, cfg.MaxWorkers),
		shutdown:      make(chan struct{}),
		sessionCtx:    ctx,
		cancelSession: cancel,
		done:          make(chan struct{}),
	}
}

// Tracker returns the counters shared by all sessions.
func (s *Server) Tracker() *metrics.PerformanceTracker {
	return s.env.Tracker
}

// Serve listens and accepts connections until ctx is cancelled or Stop is
// called, then shuts down gracefully.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the listener fails or sessions had to be force-closed
func (s *Server) Serve(ctx context.Context) error {
	defer close(s.done)

	addr := net.JoinHostPort(s.cfg.BindAddress, fmt.Sprint(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		close(s.ready)
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.listenerMu.Lock()
	s.listener = ln
	s.listenerMu.Unlock()
	close(s.ready)

	logger.Info("Server listening",
		logger.KeyAddress, ln.Addr().String(),
		"max_workers", s.cfg.MaxWorkers)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received", logger.KeyError, ctx.Err())
			s.initiateShutdown()
		case <-s.shutdown:
		}
	}()

	if s.cfg.StatsLogInterval > 0 {
		go s.logStats(s.sessionCtx)
	}

	for {
		select {
		case s.slots <- struct{}{}:
		case <-s.shutdown:
			return s.finish()
		}

		conn, err := ln.Accept()
		if err != nil {
			<-s.slots
			select {
			case <-s.shutdown:
				return s.finish()
			default:
				logger.Debug("Error accepting connection", logger.KeyError, err)
				continue
			}
		}

		if tcp, ok := conn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("Failed to set TCP_NODELAY", logger.KeyError, err)
			}
		}

		s.startSession(conn)
	}
}

func (s *Server) startSession(raw net.Conn) {
	addr := raw.RemoteAddr().String()
	conn := newSessionConn(raw)

	s.sessions.Add(1)
	s.conns.Store(addr, conn)
	s.env.Tracker.ConnectionOpened()
	if s.env.Metrics != nil {
		s.env.Metrics.RecordConnectionAccepted()
	}
	logger.Debug("Connection accepted",
		logger.KeyClientAddr, addr,
		logger.KeyActive, s.env.Tracker.Snapshot().ActiveConnections)

	select {
	case <-s.shutdown:
		_ = conn.interrupt(time.Now())
	default:
	}

	sess := session.New(conn, s.cfg.Session, s.env)

	go func() {
		defer func() {
			s.conns.Delete(addr)
			s.env.Tracker.ConnectionClosed()
			if s.env.Metrics != nil {
				s.env.Metrics.RecordConnectionClosed()
			}
			<-s.slots
			s.sessions.Done()
		}()

		// Serve logs its own outcome
		_ = sess.Serve(s.sessionCtx)
	}()
}

// initiateShutdown stops the accept loop, closes the listener, interrupts
// blocking reads and cancels every session context.
func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("Shutdown initiated")
		close(s.shutdown)

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("Error closing listener", logger.KeyError, err)
			}
		}
		s.listenerMu.Unlock()

		s.cancelSession()
		s.interruptBlockingReads()
	})
}

// interruptBlockingReads pins a short read deadline on every connection so
// sessions parked in a read, or in the middle of a transfer, notice the
// cancelled context.
func (s *Server) interruptBlockingReads() {
	deadline := time.Now().Add(100 * time.Millisecond)
	s.conns.Range(func(key, value any) bool {
		if err := value.(*sessionConn).interrupt(deadline); err != nil {
			logger.Debug("Error setting shutdown deadline", logger.KeyClientAddr, key, logger.KeyError, err)
		}
		return true
	})
}

// finish waits for sessions, force-closing them after ShutdownTimeout, and
// logs the final report.
func (s *Server) finish() error {
	err := s.waitSessions()
	s.report()
	return err
}

func (s *Server) waitSessions() error {
	active := s.env.Tracker.Snapshot().ActiveConnections
	logger.Info("Graceful shutdown: waiting for active connections",
		logger.KeyActive, active, "timeout", s.cfg.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	var timeout <-chan time.Time
	if s.cfg.ShutdownTimeout > 0 {
		t := time.NewTimer(s.cfg.ShutdownTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-done:
		logger.Info("Graceful shutdown complete: all connections closed")
		return nil
	case <-timeout:
		remaining := s.env.Tracker.Snapshot().ActiveConnections
		logger.Warn("Shutdown timeout exceeded - forcing closure", logger.KeyActive, remaining)
		s.forceCloseConnections()
		<-done
		return fmt.Errorf("shutdown timeout: %d connections force-closed", remaining)
	}
}

func (s *Server) forceCloseConnections() {
	closed := 0
	s.conns.Range(func(key, value any) bool {
		if err := value.(*sessionConn).Close(); err != nil {
			logger.Debug("Error force-closing connection", logger.KeyClientAddr, key, logger.KeyError, err)
			return true
		}
		closed++
		if s.env.Metrics != nil {
			s.env.Metrics.RecordConnectionForceClosed()
		}
		return true
	})
	logger.Info("Force-closed connections", logger.KeyTotal, closed)
}

// report logs the final counters and a resource sample.
func (s *Server) report() {
	snap := s.env.Tracker.Snapshot()
	args := []any{
		logger.KeyTotal, snap.TotalConnections,
		logger.KeyActive, snap.ActiveConnections,
		logger.KeyTransfers, snap.FileTransfers,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := sysstats.Sample(ctx, 200*time.Millisecond)
	if err != nil {
		logger.Debug("Resource sampling incomplete", logger.KeyError, err)
	}
	args = append(args,
		"cpu_percent", fmt.Sprintf("%.1f", st.CPUPercent),
		"memory_percent", fmt.Sprintf("%.1f", st.MemoryPercent),
		"process_rss", bytesize.ByteSize(st.ProcessRSS))

	logger.Info("Server stopped", args...)
}

// logStats periodically logs the tracker counters.
func (s *Server) logStats(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.StatsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := s.env.Tracker.Snapshot()
			logger.Info("Server stats",
				logger.KeyActive, snap.ActiveConnections,
				logger.KeyTotal, snap.TotalConnections,
				logger.KeyTransfers, snap.FileTransfers)
		}
	}
}

// Stop initiates shutdown and waits for Serve to return or ctx to expire.
func (s *Server) Stop(ctx context.Context) error {
	s.initiateShutdown()

	select {
	case <-s.ready:
	default:
		// Serve was never called
		return nil
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Addr returns the listening address. It blocks until Serve has created
// the listener and returns "" if that failed.
func (s *Server) Addr() string {
	<-s.ready

	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
