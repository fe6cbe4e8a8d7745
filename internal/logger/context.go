package logger

import (
	"context"
	"time"
)

type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds the per-session fields injected by the *Ctx helpers.
type LogContext struct {
	TraceID    string // OpenTelemetry trace ID of the session span
	SessionID  string
	ClientAddr string    // remote host:port
	Username   string    // empty until authenticated
	Command    string    // command being served (upload, download, ...)
	StartTime  time.Time // session start
}

// WithContext returns a copy of ctx carrying lc.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext returns the LogContext stored in ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a LogContext for a freshly accepted connection.
func NewLogContext(sessionID, clientAddr string) *LogContext {
	return &LogContext{
		SessionID:  sessionID,
		ClientAddr: clientAddr,
		StartTime:  time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

// WithUsername returns a copy with the authenticated user set.
func (lc *LogContext) WithUsername(username string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.Username = username
	}
	return c
}

// WithCommand returns a copy with the current command set.
func (lc *LogContext) WithCommand(command string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.Command = command
	}
	return c
}

// WithTrace returns a copy with the trace id set.
func (lc *LogContext) WithTrace(traceID string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.TraceID = traceID
	}
	return c
}

// DurationMs returns the time since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return Duration(lc.StartTime)
}
