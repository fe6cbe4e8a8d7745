// Package credentials looks up user secrets for the authentication
// handshake.
//
// Secrets are stored and compared as opaque strings. Protecting the
// credential list at rest is left to the deployment.
package credentials

import (
	"crypto/subtle"
	"errors"
	"strings"
)

// Common errors for credential operations.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrDuplicateUser   = errors.New("user already exists")
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidSecret   = errors.New("invalid secret")
)

// Store resolves a username to its secret.
//
// Implementations must be safe for concurrent use: every session goroutine
// authenticates against the same Store.
type Store interface {
	// Lookup returns the secret for username. found is false when the user
	// is unknown; err is only set when the backing data could not be read.
	Lookup(username string) (secret string, found bool, err error)

	// Match reports whether the secret presented by a client is the one
	// stored for the user.
	Match(stored, presented string) bool
}

// Entry is one username/secret pair.
type Entry struct {
	Username string
	Secret   string
}

// Match compares secrets in constant time.
func Match(stored, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

// ValidateUsername checks that a username can be stored in the credential
// file and used as the name of a storage area.
func ValidateUsername(username string) error {
	switch {
	case username == "", username == ".", username == "..":
		return ErrInvalidUsername
	case strings.HasPrefix(username, "#"):
		return ErrInvalidUsername
	case strings.ContainsAny(username, ":/\\\x00\r\n\t "):
		return ErrInvalidUsername
	}
	return nil
}

// ValidateSecret checks that a secret fits on one line of the credential
// file.
func ValidateSecret(secret string) error {
	if secret == "" || strings.ContainsAny(secret, "\x00\r\n") {
		return ErrInvalidSecret
	}
	return nil
}
