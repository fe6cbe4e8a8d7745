// Package cmdutil holds the connection handling shared by dropctl commands.
package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/marmos91/dittodrop/internal/cli/prompt"
	"github.com/marmos91/dittodrop/internal/logger"
	"github.com/marmos91/dittodrop/pkg/client"
)

// maxLoginAttempts matches the server's default attempt limit.
const maxLoginAttempts = 3

// GlobalFlags are the persistent flags of the root command.
type GlobalFlags struct {
	Server   string
	User     string
	Password string
	Timeout  time.Duration
	Verbose  bool
}

// Flags is filled by the root command before any subcommand runs.
var Flags GlobalFlags

// InitLogger sends client logs to stderr so stdout stays usable for file
// content.
func InitLogger() {
	level := "WARN"
	if Flags.Verbose {
		level = "DEBUG"
	}
	_ = logger.Init(logger.Config{Level: level, Format: "text", Output: "stderr"})
}

// Credentials is where a password comes from.
type Credentials struct {
	Username string
	Password string

	// Ask prompts for a password. nil disables retries.
	Ask func() (string, error)
}

// WithSession dials the server, logs in, runs fn and ends the session with
// exit.
func WithSession(ctx context.Context, fn func(*client.Client) error) error {
	creds, err := resolveCredentials()
	if err != nil {
		return err
	}

	c, err := client.Dial(ctx, Flags.Server, client.Options{IdleTimeout: Flags.Timeout})
	if err != nil {
		return err
	}

	if err := login(c, creds); err != nil {
		_ = c.Close()
		return err
	}

	if err := fn(c); err != nil {
		_ = c.Exit()
		return err
	}
	return c.Exit()
}

func resolveCredentials() (Credentials, error) {
	creds := Credentials{Username: Flags.User, Password: Flags.Password}
	if creds.Username == "" {
		user, err := prompt.Input("Username", nil)
		if err != nil {
			return creds, err
		}
		creds.Username = user
	}
	if creds.Password == "" {
		creds.Ask = func() (string, error) {
			return prompt.Password("Password", nil)
		}
	}
	return creds, nil
}

// login answers the prompts, asking again after a rejected password while
// the server still allows attempts.
func login(c *client.Client, creds Credentials) error {
	for attempt := 1; ; attempt++ {
		password := creds.Password
		if creds.Ask != nil {
			p, err := creds.Ask()
			if err != nil {
				return err
			}
			password = p
		}

		err := c.Login(creds.Username, password)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, client.ErrAuthFailed):
			if creds.Ask == nil || attempt >= maxLoginAttempts {
				return err
			}
			fmt.Fprintln(os.Stderr, "Authentication failed, try again.")
		default:
			return err
		}
	}
}
