package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for session and command spans.
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientAddr = "client.address"
	AttrSessionID  = "session.id"

	// ========================================================================
	// Authentication attributes
	// ========================================================================
	AttrUsername    = "user.name"
	AttrAuthAttempt = "auth.attempt"
	AttrAuthResult  = "auth.result"

	// ========================================================================
	// Command attributes
	// ========================================================================
	AttrCommand  = "drop.command"
	AttrFilename = "drop.filename"
	AttrSize     = "drop.size"
	AttrChunks   = "drop.chunks"
	AttrPreview  = "drop.preview"
	AttrReply    = "drop.reply"
)

// Span names.
const (
	SpanSession      = "session"
	SpanAuthenticate = "session.authenticate"
	SpanCommand      = "command"
)

// EventChunkRejected is recorded on upload spans for each chunk that
// failed its checksum.
const EventChunkRejected = "chunk.rejected"

// ClientAddr returns an attribute for the remote address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// SessionID returns an attribute for the session identifier
func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// Username returns an attribute for username
func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

// AuthAttempt returns an attribute for the attempt number (1-based)
func AuthAttempt(n int) attribute.KeyValue {
	return attribute.Int(AttrAuthAttempt, n)
}

// AuthResult returns an attribute for the authentication outcome
func AuthResult(result string) attribute.KeyValue {
	return attribute.String(AttrAuthResult, result)
}

// Command returns an attribute for the command token
func Command(name string) attribute.KeyValue {
	return attribute.String(AttrCommand, name)
}

// Filename returns an attribute for a client-supplied file name
func Filename(name string) attribute.KeyValue {
	return attribute.String(AttrFilename, name)
}

// Size returns an attribute for bytes moved
func Size(n int64) attribute.KeyValue {
	return attribute.Int64(AttrSize, n)
}

// Chunks returns an attribute for the number of chunks
func Chunks(n int) attribute.KeyValue {
	return attribute.Int(AttrChunks, n)
}

// Preview returns an attribute marking a preview download
func Preview(preview bool) attribute.KeyValue {
	return attribute.Bool(AttrPreview, preview)
}

// Reply returns an attribute for the final reply token sent to the client
func Reply(reply string) attribute.KeyValue {
	return attribute.String(AttrReply, reply)
}

// StartSessionSpan starts the root span of a client connection.
func StartSessionSpan(ctx context.Context, sessionID, clientAddr string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanSession,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(SessionID(sessionID), ClientAddr(clientAddr)),
	)
}

// StartCommandSpan starts a span for one command of a session.
func StartCommandSpan(ctx context.Context, command string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{Command(command)}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanCommand+"."+command, trace.WithAttributes(allAttrs...))
}
