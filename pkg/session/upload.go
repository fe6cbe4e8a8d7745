package session

import (
	"context"
	"errors"
	"time"

	"github.com/marmos91/dittodrop/internal/bytesize"
	"github.com/marmos91/dittodrop/internal/logger"
	"github.com/marmos91/dittodrop/internal/telemetry"
	"github.com/marmos91/dittodrop/pkg/metrics"
	"github.com/marmos91/dittodrop/pkg/protocol"
	"github.com/marmos91/dittodrop/pkg/storage"
)

// handleUpload receives one file into the user's area.
//
//	server: "Ready to receive the filename."
//	client: <filename> | CANCEL_UPLOAD
//	server: "Ready to receive file data." | "Invalid filename."
//	client: CHUNK ... END   (each CHUNK acknowledged)
//	server: "File upload completed successfully." | "Error: Failed to receive file data."
//
// Data goes to a temporary file that replaces the final name only after
// END, so an aborted upload never leaves a partial file behind.
func (s *Session) handleUpload(ctx context.Context) (string, error) {
	start := time.Now()

	if err := s.send(protocol.UploadReadyName); err != nil {
		return "", err
	}
	name, err := s.readToken(ctx)
	switch {
	case errors.Is(err, ErrProtocolViolation):
		logger.WarnCtx(ctx, "Expected a filename", logger.KeyError, err)
		return protocol.UploadInvalidName, s.send(protocol.UploadInvalidName)
	case err != nil:
		return "", err
	}

	if name == protocol.UploadCancel {
		logger.InfoCtx(ctx, "Upload cancelled by client")
		return protocol.UploadCancel, nil
	}
	telemetry.SetAttributes(ctx, telemetry.Filename(name))

	if err := storage.ValidateName(name); err != nil {
		logger.WarnCtx(ctx, "Rejected upload filename", logger.KeyFilename, name)
		return protocol.UploadInvalidName, s.send(protocol.UploadInvalidName)
	}

	up, err := s.area.Create(name)
	if err != nil {
		logger.ErrorCtx(ctx, "Cannot start upload", logger.KeyFilename, name, logger.KeyError, err)
		telemetry.RecordError(ctx, err)
		return protocol.UploadFailed, s.send(protocol.UploadFailed)
	}
	defer func() { _ = up.Abort() }()

	if err := s.send(protocol.UploadReadyData); err != nil {
		return "", err
	}

	st, err := s.framer.ReceiveAcked(up, s.env.Storage.MaxFileSize())
	s.recordChunks(ctx, st)
	if err != nil {
		return s.uploadAborted(ctx, name, st, err)
	}

	if err := up.Commit(); err != nil {
		logger.ErrorCtx(ctx, "Cannot store uploaded file", logger.KeyFilename, name, logger.KeyError, err)
		telemetry.RecordError(ctx, err)
		return protocol.UploadFailed, s.send(protocol.UploadFailed)
	}

	s.env.Tracker.TransferCompleted()
	if s.env.Metrics != nil {
		s.env.Metrics.RecordBytesTransferred(metrics.DirectionUpload, st.Bytes)
	}
	telemetry.SetAttributes(ctx, telemetry.Size(st.Bytes), telemetry.Chunks(st.Chunks))
	logger.InfoCtx(ctx, "File upload completed",
		logger.KeyFilename, name,
		logger.KeySize, bytesize.ByteSize(st.Bytes),
		logger.KeyChunks, st.Chunks,
		logger.KeyDurationMs, logger.Duration(start))

	return protocol.UploadComplete, s.send(protocol.UploadComplete)
}

// uploadAborted classifies a failed receive. Failures the peer already
// knows about (it sent or received an ERROR frame) keep the session alive.
func (s *Session) uploadAborted(ctx context.Context, name string, st protocol.StreamStats, err error) (string, error) {
	args := []any{
		logger.KeyFilename, name,
		logger.KeySize, bytesize.ByteSize(st.Bytes),
		logger.KeyError, err,
	}

	var remote *protocol.RemoteError
	switch {
	case errors.As(err, &remote):
		logger.WarnCtx(ctx, "Upload aborted by client", args...)
		return remote.Reason, nil
	case errors.Is(err, protocol.ErrStreamLimit):
		logger.WarnCtx(ctx, "Upload exceeds size limit", append(args, "limit", bytesize.ByteSize(s.env.Storage.MaxFileSize()))...)
		return protocol.ReasonFileTooLarge, nil
	case errors.Is(err, protocol.ErrLocalIO):
		logger.ErrorCtx(ctx, "Upload write failed", args...)
		telemetry.RecordError(ctx, err)
		return protocol.ReasonWriteFailed, nil
	case errors.Is(err, protocol.ErrUnexpectedFrame):
		logger.WarnCtx(ctx, "Unexpected frame during upload", args...)
		return protocol.ReasonUnexpected, nil
	case ctx.Err() != nil:
		// shutdown interrupts the read with a deadline
		logger.InfoCtx(ctx, "Upload interrupted by shutdown", args...)
		return "", ctx.Err()
	default:
		return "", err
	}
}

func (s *Session) recordChunks(ctx context.Context, st protocol.StreamStats) {
	if st.Rejected == 0 {
		return
	}
	telemetry.AddEvent(ctx, telemetry.EventChunkRejected)
	logger.WarnCtx(ctx, "Chunks failed checksum verification", "rejected", st.Rejected)
	if s.env.Metrics != nil {
		s.env.Metrics.RecordChunkEvent(metrics.ChunkRejected, st.Rejected)
	}
}
