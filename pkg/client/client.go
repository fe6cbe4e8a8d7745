// Package client implements the client side of the transfer protocol.
//
// A Client owns one connection and is not safe for concurrent use:
//
//	c, err := client.Dial(ctx, "localhost:5000", client.Options{})
//	if err != nil { ... }
//	defer c.Close()
//	if err := c.Login("alice", "secret"); err != nil { ... }
//	err = c.Upload("notes.txt", f)
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/marmos91/dittodrop/internal/logger"
	"github.com/marmos91/dittodrop/pkg/protocol"
)

var (
	// ErrAuthFailed is returned by Login for rejected credentials. The
	// connection stays usable while the server allows more attempts.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrConnectionRejected is returned once the server has closed the
	// connection after too many failed attempts.
	ErrConnectionRejected = errors.New("connection rejected after failed authentication")

	// ErrNotFound is returned for a file the server does not have.
	ErrNotFound = errors.New("file not found on server")

	// ErrInvalidName is returned when the server refuses a filename.
	ErrInvalidName = errors.New("invalid filename")
)

// ServerError carries a failure the server reported in plain text or in
// an ERROR frame.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "server error: " + e.Message
}

// Options tunes a client connection.
type Options struct {
	// DialTimeout bounds connection establishment. Zero means 10s.
	DialTimeout time.Duration

	// IdleTimeout bounds every read. Zero disables it.
	IdleTimeout time.Duration
}

// Client is one authenticated or authenticating connection.
type Client struct {
	conn   net.Conn
	framer *protocol.Conn
	user   string
}

// Dial connects to a server.
func Dial(ctx context.Context, addr string, opts Options) (*Client, error) {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 10 * time.Second
	}
	d := net.Dialer{Timeout: opts.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	logger.Debug("Connected", logger.KeyAddress, addr)
	return NewClient(conn, opts), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn, opts Options) *Client {
	framer := protocol.NewConn(conn)
	framer.SetIdleTimeout(opts.IdleTimeout)
	return &Client{conn: conn, framer: framer}
}

// Close closes the connection without sending exit.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Username returns the authenticated user, empty before Login succeeds.
func (c *Client) Username() string {
	return c.user
}

// Login answers the username and password prompts once.
func (c *Client) Login(username, password string) error {
	if err := c.framer.Expect(protocol.PromptUsername); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrConnectionRejected
		}
		return err
	}
	if err := c.framer.SendMessage(username); err != nil {
		return err
	}
	if err := c.framer.Expect(protocol.PromptPassword); err != nil {
		return err
	}
	if err := c.framer.SendMessage(password); err != nil {
		return err
	}

	reply, err := c.framer.ReadMessage()
	if err != nil {
		return err
	}
	switch reply {
	case protocol.AuthSuccess:
		c.user = username
		logger.Debug("Authenticated", logger.KeyUsername, username)
		return nil
	case protocol.AuthFailure:
		return ErrAuthFailed
	default:
		return &protocol.UnexpectedReplyError{Want: protocol.AuthSuccess, Got: reply}
	}
}

// command waits for the command prompt and sends cmd.
func (c *Client) command(cmd string) error {
	if err := c.framer.Expect(protocol.PromptCommand); err != nil {
		return err
	}
	return c.framer.SendMessage(cmd)
}

// Exit ends the session and closes the connection.
func (c *Client) Exit() error {
	err := c.command(protocol.CommandExit)
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
