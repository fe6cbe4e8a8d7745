package metrics

import "time"

// Authentication outcomes.
const (
	AuthSuccess  = "success"
	AuthFailure  = "failure"
	AuthRejected = "rejected"
)

// Transfer directions.
const (
	DirectionUpload   = "upload"
	DirectionDownload = "download"
)

// Chunk events on the upload path.
const (
	ChunkRejected      = "rejected"
	ChunkRetransmitted = "retransmitted"
)

// TransferMetrics provides observability for sessions and transfers.
//
// It is optional: pass nil to disable collection. Implementations must be
// safe for concurrent use.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	m := prometheus.NewTransferMetrics()
//	srv := server.New(cfg, deps, m)
//
//	// Without metrics
//	srv := server.New(cfg, deps, nil)
type TransferMetrics interface {
	// RecordConnectionAccepted increments the accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed counts connections closed after the
	// shutdown timeout expired.
	RecordConnectionForceClosed()

	// RecordAuthentication counts one authentication attempt.
	//
	// Parameters:
	//   - outcome: AuthSuccess, AuthFailure or AuthRejected (attempts exhausted)
	RecordAuthentication(outcome string)

	// RecordCommand records a completed command.
	//
	// Parameters:
	//   - command: "upload", "download", "delete", "exit" or "invalid"
	//   - status: reply token sent to the client, or "error"
	//   - duration: time spent handling the command
	RecordCommand(command string, status string, duration time.Duration)

	// RecordBytesTransferred records file bytes moved by one transfer.
	//
	// Parameters:
	//   - direction: DirectionUpload or DirectionDownload
	//   - bytes: number of bytes
	RecordBytesTransferred(direction string, bytes int64)

	// RecordChunkEvent counts a rejected or retransmitted chunk.
	RecordChunkEvent(event string, count int)
}
