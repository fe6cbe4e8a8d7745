package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ErrChecksumMismatch is returned for a CHUNK whose data does not match its
// xxhash64 prefix.
var ErrChecksumMismatch = errors.New("chunk checksum mismatch")

// RemoteError is returned when the peer sent an ERROR frame.
type RemoteError struct {
	Reason string
}

func (e *RemoteError) Error() string {
	return "peer aborted: " + e.Reason
}

// UnexpectedReplyError is returned by Expect when the peer answered with a
// different control message.
type UnexpectedReplyError struct {
	Want string
	Got  string
}

func (e *UnexpectedReplyError) Error() string {
	return fmt.Sprintf("unexpected reply %q (want %q)", e.Got, e.Want)
}

// deadliner is implemented by net.Conn.
type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// Conn frames messages over a byte stream. It is not safe for concurrent
// use; a session owns its Conn exclusively.
type Conn struct {
	rw   io.ReadWriter
	rbuf []byte
	wbuf []byte
	idle time.Duration
}

// NewConn wraps rw (usually a net.Conn).
func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{
		rw:   rw,
		rbuf: make([]byte, MaxChunkSize+checksumSize+padding(MaxChunkSize+checksumSize)),
		wbuf: make([]byte, checksumSize+MaxChunkSize),
	}
}

// SetIdleTimeout bounds every read. Zero disables the deadline. Has no
// effect when the underlying stream has no read deadlines.
func (c *Conn) SetIdleTimeout(d time.Duration) {
	c.idle = d
}

// ReadFrame reads the next frame. The payload is valid until the next read.
func (c *Conn) ReadFrame() (Frame, error) {
	if c.idle > 0 {
		if d, ok := c.rw.(deadliner); ok {
			if err := d.SetReadDeadline(time.Now().Add(c.idle)); err != nil {
				return Frame{}, err
			}
		}
	}
	return ReadFrame(c.rw, c.rbuf)
}

// WriteFrame writes a single frame.
func (c *Conn) WriteFrame(f Frame) error {
	return WriteFrame(c.rw, f)
}

// SendMessage sends control text.
func (c *Conn) SendMessage(text string) error {
	return c.WriteFrame(Frame{Kind: KindMessage, Payload: []byte(text)})
}

// SendError sends an ERROR frame aborting the current transfer.
func (c *Conn) SendError(reason string) error {
	return c.WriteFrame(Frame{Kind: KindError, Payload: []byte(reason)})
}

// SendEnd sends the end-of-stream frame.
func (c *Conn) SendEnd() error {
	return c.WriteFrame(Frame{Kind: KindEnd})
}

// SendChunk sends 1..MaxChunkSize bytes of file data.
func (c *Conn) SendChunk(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyChunk
	}
	if len(data) > MaxChunkSize {
		return fmt.Errorf("%w: chunk of %d bytes", ErrFrameTooLarge, len(data))
	}
	payload := c.wbuf[:checksumSize+len(data)]
	binary.BigEndian.PutUint64(payload, xxhash.Sum64(data))
	copy(payload[checksumSize:], data)
	return c.WriteFrame(Frame{Kind: KindChunk, Payload: payload})
}

// ReadMessage reads a MESSAGE frame and returns its text. An ERROR frame
// yields *RemoteError; any other kind yields ErrUnexpectedFrame.
func (c *Conn) ReadMessage() (string, error) {
	f, err := c.ReadFrame()
	if err != nil {
		return "", err
	}
	switch f.Kind {
	case KindMessage:
		return string(f.Payload), nil
	case KindError:
		return "", &RemoteError{Reason: string(f.Payload)}
	default:
		return "", fmt.Errorf("%w: got %s, want %s", ErrUnexpectedFrame, f.Kind, KindMessage)
	}
}

// Expect reads a message and checks that it equals want.
func (c *Conn) Expect(want string) error {
	got, err := c.ReadMessage()
	if err != nil {
		return err
	}
	if got != want {
		return &UnexpectedReplyError{Want: want, Got: got}
	}
	return nil
}

// DecodeChunk verifies a CHUNK payload and returns its data.
func DecodeChunk(payload []byte) ([]byte, error) {
	if len(payload) <= checksumSize {
		return nil, ErrEmptyChunk
	}
	data := payload[checksumSize:]
	if binary.BigEndian.Uint64(payload) != xxhash.Sum64(data) {
		return nil, ErrChecksumMismatch
	}
	return data, nil
}
