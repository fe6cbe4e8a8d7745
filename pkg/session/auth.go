package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/dittodrop/internal/logger"
	"github.com/marmos91/dittodrop/internal/telemetry"
	"github.com/marmos91/dittodrop/pkg/metrics"
	"github.com/marmos91/dittodrop/pkg/protocol"
)

// authenticate runs the username/password exchange. Each failed attempt is
// answered with AuthFailure; after MaxAuthAttempts failures the session is
// rejected without reading anything else from the client.
func (s *Session) authenticate(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanAuthenticate)
	defer span.End()

	s.state = StateAuthenticating

	var username string
	for attempt := 1; attempt <= s.cfg.MaxAuthAttempts; attempt++ {
		var (
			password string
			err      error
		)
		if username, password, err = s.readCredentials(ctx); err != nil {
			telemetry.RecordError(ctx, err)
			return err
		}

		ok := s.verify(ctx, username, password)
		if ok {
			if err := s.bind(username); err != nil {
				logger.WarnCtx(ctx, "Username cannot be mapped to a storage area",
					logger.KeyUsername, username, logger.KeyError, err)
				ok = false
			}
		}

		if ok {
			s.state = StateAuthenticated
			s.lc = s.lc.WithUsername(username)
			telemetry.SetAttributes(ctx, telemetry.Username(username), telemetry.AuthAttempt(attempt), telemetry.AuthResult(metrics.AuthSuccess))
			s.recordAuth(metrics.AuthSuccess)
			logger.InfoCtx(logger.WithContext(ctx, s.lc), "Authentication successful", logger.KeyAttempt, attempt)
			return s.send(protocol.AuthSuccess)
		}

		s.recordAuth(metrics.AuthFailure)
		telemetry.AddEvent(ctx, "auth.failure", telemetry.AuthAttempt(attempt))
		logger.WarnCtx(ctx, "Authentication failed",
			logger.KeyUsername, username,
			logger.KeyAttempt, attempt)
		if err := s.send(protocol.AuthFailure); err != nil {
			return err
		}
	}

	s.state = StateRejected
	s.recordAuth(metrics.AuthRejected)
	telemetry.SetAttributes(ctx, telemetry.AuthResult(metrics.AuthRejected))
	logger.ErrorCtx(ctx, "Too many failed authentication attempts",
		logger.KeyUsername, username,
		logger.KeyAttempt, s.cfg.MaxAuthAttempts)
	return fmt.Errorf("%w after %d attempts", ErrAuthenticationFailed, s.cfg.MaxAuthAttempts)
}

// readCredentials prompts for and reads one username/password pair.
func (s *Session) readCredentials(ctx context.Context) (string, string, error) {
	if err := s.send(protocol.PromptUsername); err != nil {
		return "", "", err
	}
	username, err := s.readToken(ctx)
	if err != nil {
		return "", "", err
	}
	if err := s.send(protocol.PromptPassword); err != nil {
		return "", "", err
	}
	password, err := s.readToken(ctx)
	if err != nil {
		return "", "", err
	}
	return username, password, nil
}

// verify performs exactly one credential lookup. A store that cannot be
// read counts as a failed attempt.
func (s *Session) verify(ctx context.Context, username, password string) bool {
	if username == "" {
		return false
	}
	secret, found, err := s.env.Credentials.Lookup(username)
	if err != nil {
		logger.ErrorCtx(ctx, "Credential lookup failed", logger.KeyError, err)
		return false
	}
	return found && s.env.Credentials.Match(secret, password)
}

// bind assigns the username and its storage area. Called once.
func (s *Session) bind(username string) error {
	if s.username != "" {
		return errors.New("session already authenticated")
	}
	area, err := s.env.Storage.Area(username)
	if err != nil {
		return err
	}
	s.username = username
	s.area = area
	return nil
}

func (s *Session) recordAuth(outcome string) {
	if s.env.Metrics != nil {
		s.env.Metrics.RecordAuthentication(outcome)
	}
}
