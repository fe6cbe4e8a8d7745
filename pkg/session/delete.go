package session

import (
	"context"
	"errors"

	"github.com/marmos91/dittodrop/internal/logger"
	"github.com/marmos91/dittodrop/internal/telemetry"
	"github.com/marmos91/dittodrop/pkg/protocol"
	"github.com/marmos91/dittodrop/pkg/storage"
)

// handleDelete removes a file from the user's area. Deleting a missing
// file, or a name that could never exist, answers FILE_NOT_FOUND.
func (s *Session) handleDelete(ctx context.Context) (string, error) {
	if err := s.send(protocol.PromptDelete); err != nil {
		return "", err
	}
	name, err := s.readToken(ctx)
	switch {
	case errors.Is(err, ErrProtocolViolation):
		logger.WarnCtx(ctx, "Expected a filename", logger.KeyError, err)
		return protocol.FileNotFound, s.send(protocol.FileNotFound)
	case err != nil:
		return "", err
	}
	telemetry.SetAttributes(ctx, telemetry.Filename(name))

	err = s.area.Remove(name)
	switch {
	case err == nil:
		logger.InfoCtx(ctx, "File deleted", logger.KeyFilename, name)
		return protocol.FileDeleted, s.send(protocol.FileDeleted)
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidName):
		logger.WarnCtx(ctx, "File not found for deletion", logger.KeyFilename, name)
		return protocol.FileNotFound, s.send(protocol.FileNotFound)
	default:
		logger.ErrorCtx(ctx, "File deletion failed", logger.KeyFilename, name, logger.KeyError, err)
		telemetry.RecordError(ctx, err)
		return protocol.DeleteFailed, s.send(protocol.DeleteFailed)
	}
}
