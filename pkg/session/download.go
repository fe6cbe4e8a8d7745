package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/marmos91/dittodrop/internal/bytesize"
	"github.com/marmos91/dittodrop/internal/logger"
	"github.com/marmos91/dittodrop/internal/telemetry"
	"github.com/marmos91/dittodrop/pkg/metrics"
	"github.com/marmos91/dittodrop/pkg/protocol"
	"github.com/marmos91/dittodrop/pkg/storage"
)

// handleDownload streams a file, or its first chunk in preview mode.
//
//	client: <filename> | "PREVIEW <filename>"
//	server: FILE_NOT_FOUND
//	      | FILE_FOUND   CHUNK ... END
//	      | PREVIEW_MODE [CHUNK] END
//	      | ERROR(READ_FAILED)
//
// There is no prompt: the client sends the request right after the
// command token.
func (s *Session) handleDownload(ctx context.Context) (string, error) {
	start := time.Now()

	req, err := s.readToken(ctx)
	switch {
	case errors.Is(err, ErrProtocolViolation):
		logger.WarnCtx(ctx, "Expected a download request", logger.KeyError, err)
		return protocol.FileNotFound, s.send(protocol.FileNotFound)
	case err != nil:
		return "", err
	}

	name, preview := strings.CutPrefix(req, protocol.PreviewRequestPfx)
	name = strings.TrimSpace(name)
	telemetry.SetAttributes(ctx, telemetry.Filename(name), telemetry.Preview(preview))

	f, size, err := s.area.Open(name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidName) {
			logger.WarnCtx(ctx, "File not found", logger.KeyFilename, name, logger.KeyPreview, preview)
			return protocol.FileNotFound, s.send(protocol.FileNotFound)
		}
		logger.ErrorCtx(ctx, "Cannot open file", logger.KeyFilename, name, logger.KeyError, err)
		telemetry.RecordError(ctx, err)
		return protocol.ReasonReadFailed, s.framer.SendError(protocol.ReasonReadFailed)
	}
	defer func() { _ = f.Close() }()

	logger.DebugCtx(ctx, "Serving file",
		logger.KeyFilename, name,
		logger.KeySize, bytesize.ByteSize(size),
		logger.KeyPreview, preview)

	var (
		reply = protocol.FileFound
		st    protocol.StreamStats
	)
	if preview {
		reply = protocol.PreviewMode
	}
	if err := s.send(reply); err != nil {
		return "", err
	}
	src := &ctxReader{ctx: ctx, r: f}
	if preview {
		st, err = s.framer.SendPreview(src)
	} else {
		st, err = s.framer.SendStream(src)
	}
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			logger.InfoCtx(ctx, "Download interrupted by shutdown",
				logger.KeyFilename, name,
				logger.KeySize, bytesize.ByteSize(st.Bytes))
			return "", cerr
		}
		if errors.Is(err, protocol.ErrLocalIO) {
			logger.ErrorCtx(ctx, "Read failed during download",
				logger.KeyFilename, name,
				logger.KeySize, bytesize.ByteSize(st.Bytes),
				logger.KeyError, err)
			telemetry.RecordError(ctx, err)
			return protocol.ReasonReadFailed, nil
		}
		return "", err
	}

	if s.env.Metrics != nil {
		s.env.Metrics.RecordBytesTransferred(metrics.DirectionDownload, st.Bytes)
	}
	telemetry.SetAttributes(ctx, telemetry.Size(st.Bytes), telemetry.Chunks(st.Chunks))
	logger.InfoCtx(ctx, "File download completed",
		logger.KeyFilename, name,
		logger.KeySize, bytesize.ByteSize(st.Bytes),
		logger.KeyPreview, preview,
		logger.KeyDurationMs, logger.Duration(start))

	return reply, nil
}

// ctxReader fails reads once ctx is done, so a long download stops at the
// next chunk boundary on shutdown.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
