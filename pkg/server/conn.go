package server

import (
	"net"
	"sync"
	"time"
)

// sessionConn is the net.Conn handed to a session. Once interrupted, the
// shutdown deadline sticks: the per-read idle deadline set by the framer
// can no longer push it back.
type sessionConn struct {
	net.Conn

	mu          sync.Mutex
	interrupted bool
}

func newSessionConn(c net.Conn) *sessionConn {
	return &sessionConn{Conn: c}
}

// SetReadDeadline is a no-op after interrupt.
func (c *sessionConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interrupted {
		return nil
	}
	return c.Conn.SetReadDeadline(t)
}

// SetDeadline keeps the write half settable after interrupt.
func (c *sessionConn) SetDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interrupted {
		return c.Conn.SetWriteDeadline(t)
	}
	return c.Conn.SetDeadline(t)
}

// interrupt pins the read deadline to deadline.
func (c *sessionConn) interrupt(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interrupted = true
	return c.Conn.SetReadDeadline(deadline)
}
