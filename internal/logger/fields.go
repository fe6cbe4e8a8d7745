package logger

import "log/slog"

// Standard field keys. Use these consistently so log lines can be queried
// by field across the server, the admin CLI and the client.
const (
	KeyTraceID    = "trace_id"
	KeySessionID  = "session_id"
	KeyClientAddr = "client_addr"
	KeyUsername   = "username"
	KeyCommand    = "command"
	KeyState      = "state"
	KeyAttempt    = "attempt"

	KeyFilename = "filename"
	KeyPath     = "path"
	KeySize     = "size"
	KeyChunks   = "chunks"
	KeyPreview  = "preview"
	KeyReply    = "reply"

	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyAddress    = "address"
	KeyPort       = "port"

	KeyActive    = "active_connections"
	KeyTotal     = "total_connections"
	KeyTransfers = "file_transfers"
)

// Filename returns a slog attribute for a client-supplied file name.
func Filename(name string) slog.Attr {
	return slog.String(KeyFilename, name)
}

// Size returns a slog attribute for a byte count.
func Size(n int64) slog.Attr {
	return slog.Int64(KeySize, n)
}

// Username returns a slog attribute for the session user.
func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// Err returns a slog attribute for an error; nil yields an empty attribute
// which the handlers skip.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// DurationMs returns a slog attribute for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}
