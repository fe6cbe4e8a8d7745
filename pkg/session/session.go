// Package session drives one client connection from accept to close:
// the authentication handshake followed by the command loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/dittodrop/internal/logger"
	"github.com/marmos91/dittodrop/internal/telemetry"
	"github.com/marmos91/dittodrop/pkg/credentials"
	"github.com/marmos91/dittodrop/pkg/metrics"
	"github.com/marmos91/dittodrop/pkg/protocol"
	"github.com/marmos91/dittodrop/pkg/storage"
)

// State is the lifecycle position of a session.
type State int

const (
	StateConnected State = iota
	StateAuthenticating
	StateAuthenticated
	StateRejected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateRejected:
		return "REJECTED"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("STATE(%d)", int(s))
	}
}

var (
	// ErrAuthenticationFailed is returned by Serve when the client used up
	// all attempts.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrProtocolViolation marks a well-formed frame that was not the
	// control message expected at this point.
	ErrProtocolViolation = errors.New("protocol violation")
)

// DefaultMaxAuthAttempts is the number of credential pairs a client may
// submit per connection.
const DefaultMaxAuthAttempts = 3

// Config holds per-session limits.
type Config struct {
	// MaxAuthAttempts bounds authentication attempts. Zero means
	// DefaultMaxAuthAttempts.
	MaxAuthAttempts int

	// IdleTimeout bounds every read from the client. Zero disables it.
	IdleTimeout time.Duration
}

// Env holds the collaborators shared by all sessions.
type Env struct {
	Credentials credentials.Store
	Storage     *storage.Storage
	Tracker     *metrics.PerformanceTracker

	// Metrics is optional; nil disables collection.
	Metrics metrics.TransferMetrics
}

// Session is the server side of one connection. It is owned by the
// goroutine running Serve and must not be shared.
type Session struct {
	id     string
	conn   net.Conn
	framer *protocol.Conn
	cfg    Config
	env    Env

	state    State
	username string
	area     *storage.Area
	lc       *logger.LogContext
}

// New creates a session for an accepted connection.
func New(conn net.Conn, cfg Config, env Env) *Session {
	if cfg.MaxAuthAttempts <= 0 {
		cfg.MaxAuthAttempts = DefaultMaxAuthAttempts
	}

	framer := protocol.NewConn(conn)
	framer.SetIdleTimeout(cfg.IdleTimeout)

	id := uuid.NewString()
	return &Session{
		id:     id,
		conn:   conn,
		framer: framer,
		cfg:    cfg,
		env:    env,
		state:  StateConnected,
		lc:     logger.NewLogContext(id, conn.RemoteAddr().String()),
	}
}

// ID returns the session identifier used in logs and traces.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Username returns the authenticated user, empty before authentication.
func (s *Session) Username() string { return s.username }

// Serve runs the session to completion and closes the connection.
//
// It returns nil when the client exits or disconnects at the command
// prompt, ErrAuthenticationFailed when the client used up its attempts,
// the context error when the server is shutting down, and the transport or
// protocol error that ended the session otherwise. A panic in a handler is
// recovered and returned as an error.
func (s *Session) Serve(ctx context.Context) (err error) {
	ctx, span := telemetry.StartSessionSpan(ctx, s.id, s.lc.ClientAddr)
	if traceID := telemetry.TraceID(ctx); traceID != "" {
		s.lc = s.lc.WithTrace(traceID)
	}
	ctx = logger.WithContext(ctx, s.lc)

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "Panic in session",
				logger.KeyError, r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("panic in session: %v", r)
		}
		s.close(ctx, err)
		telemetry.RecordError(ctx, err)
		span.End()
	}()

	logger.InfoCtx(ctx, "Connection established")

	if err := s.authenticate(ctx); err != nil {
		return err
	}
	return s.commandLoop(ctx)
}

func (s *Session) close(ctx context.Context, err error) {
	last := s.state
	s.state = StateClosed
	_ = s.conn.Close()

	args := []any{logger.KeyDurationMs, s.lc.DurationMs(), logger.KeyState, last.String()}
	switch {
	case err == nil:
		logger.InfoCtx(ctx, "Connection closed", args...)
	case errors.Is(err, ErrAuthenticationFailed):
		logger.WarnCtx(ctx, "Connection closed after failed authentication", args...)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.InfoCtx(ctx, "Connection closed by server shutdown", args...)
	case isTimeout(err):
		logger.InfoCtx(ctx, "Connection closed after idle timeout", args...)
	default:
		logger.WarnCtx(ctx, "Connection lost", append(args, logger.KeyError, err)...)
	}
}

// commandLoop serves commands until exit, disconnect or a fatal error.
func (s *Session) commandLoop(ctx context.Context) error {
	for {
		if err := s.send(protocol.PromptCommand); err != nil {
			return err
		}
		cmd, err := s.readToken(ctx)
		switch {
		case errors.Is(err, ErrProtocolViolation):
			cmd = ""
		case errors.Is(err, io.EOF):
			logger.DebugCtx(ctx, "Client disconnected at command prompt")
			return nil
		case err != nil:
			return err
		}

		if cmd == protocol.CommandExit {
			logger.InfoCtx(ctx, "User exited")
			s.recordCommand(protocol.CommandExit, protocol.CommandExit, time.Now())
			return nil
		}
		if err := s.dispatch(ctx, cmd); err != nil {
			return err
		}
	}
}

// handler serves one command and returns the reply token that describes
// its outcome. Only errors that end the session are returned.
type handler func(ctx context.Context) (string, error)

func (s *Session) dispatch(ctx context.Context, cmd string) error {
	var h handler
	switch cmd {
	case protocol.CommandUpload:
		h = s.handleUpload
	case protocol.CommandDownload:
		h = s.handleDownload
	case protocol.CommandDelete:
		h = s.handleDelete
	default:
		logger.DebugCtx(ctx, "Invalid command", logger.KeyCommand, cmd)
		s.recordCommand("invalid", protocol.InvalidCommand, time.Now())
		return s.send(protocol.InvalidCommand)
	}

	start := time.Now()
	lc := s.lc.WithCommand(cmd)
	ctx = logger.WithContext(ctx, lc)
	ctx, span := telemetry.StartCommandSpan(ctx, cmd)
	defer span.End()

	reply, err := h(ctx)
	if err != nil {
		telemetry.RecordError(ctx, err)
		s.recordCommand(cmd, "error", start)
		return err
	}
	telemetry.SetAttributes(ctx, telemetry.Reply(reply))
	s.recordCommand(cmd, reply, start)
	return nil
}

// send writes a control message.
func (s *Session) send(text string) error {
	return s.framer.SendMessage(text)
}

// readToken reads one control message and trims surrounding whitespace.
// A frame other than MESSAGE yields ErrProtocolViolation; the stream is
// still in sync in that case.
func (s *Session) readToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	msg, err := s.framer.ReadMessage()
	if err != nil {
		var remote *protocol.RemoteError
		if errors.Is(err, protocol.ErrUnexpectedFrame) || errors.As(err, &remote) {
			return "", fmt.Errorf("%w: %w", ErrProtocolViolation, err)
		}
		// a read interrupted by shutdown surfaces as a deadline error
		if cerr := ctx.Err(); cerr != nil {
			return "", cerr
		}
		return "", err
	}
	return strings.TrimSpace(msg), nil
}

func (s *Session) recordCommand(cmd, status string, start time.Time) {
	if s.env.Metrics != nil {
		s.env.Metrics.RecordCommand(cmd, status, time.Since(start))
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
