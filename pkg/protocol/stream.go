package protocol

import (
	"errors"
	"fmt"
	"io"

	"github.com/marmos91/dittodrop/pkg/bufpool"
)

var (
	// ErrLocalIO wraps a failure of the local reader or writer during a
	// transfer. The peer has been told with an ERROR frame where the
	// protocol allows it.
	ErrLocalIO = errors.New("local i/o failure")

	// ErrStreamLimit is returned by ReceiveAcked when the incoming stream
	// exceeds the caller's size limit.
	ErrStreamLimit = errors.New("stream exceeds size limit")
)

// StreamStats describes a finished or aborted transfer.
type StreamStats struct {
	Bytes  int64 // bytes read from or written to local storage
	Chunks int   // CHUNK frames sent or accepted

	// Upload sender only.
	Retransmits int // chunks sent a second time after a negative ack
	Unconfirmed int // chunks whose retransmission was not acknowledged either

	// Receivers only.
	Rejected int // chunks that failed checksum verification
}

// SendStream streams r as CHUNK frames followed by END, without waiting
// for acknowledgements. If r fails, an ERROR frame is sent instead of END
// and the returned error wraps ErrLocalIO.
func (c *Conn) SendStream(r io.Reader) (StreamStats, error) {
	var st StreamStats

	buf := bufpool.Get(MaxChunkSize)
	defer bufpool.Put(buf)

	for {
		n, rerr := io.ReadFull(r, buf)
		if n > 0 {
			if err := c.SendChunk(buf[:n]); err != nil {
				return st, err
			}
			st.Bytes += int64(n)
			st.Chunks++
		}
		switch {
		case rerr == nil:
			continue
		case errors.Is(rerr, io.EOF), errors.Is(rerr, io.ErrUnexpectedEOF):
			return st, c.SendEnd()
		default:
			if err := c.SendError(ReasonReadFailed); err != nil {
				return st, err
			}
			return st, fmt.Errorf("%w: %w", ErrLocalIO, rerr)
		}
	}
}

// SendPreview sends at most one chunk with the leading bytes of r,
// followed by END. An empty r produces END alone.
func (c *Conn) SendPreview(r io.Reader) (StreamStats, error) {
	return c.SendStream(io.LimitReader(r, MaxChunkSize))
}

// ReceiveStream consumes a stream produced by SendStream and writes it to
// w. It always reads up to the terminating END (or ERROR) so the
// connection stays in sync: a failing w is reported as ErrLocalIO and a
// corrupted chunk as ErrChecksumMismatch, after the stream is drained.
func (c *Conn) ReceiveStream(w io.Writer) (StreamStats, error) {
	var (
		st       StreamStats
		localErr error
	)
	for {
		f, err := c.ReadFrame()
		if err != nil {
			return st, err
		}

		switch f.Kind {
		case KindChunk:
			data, derr := DecodeChunk(f.Payload)
			if derr != nil {
				st.Rejected++
				if localErr == nil {
					localErr = derr
				}
				continue
			}
			st.Chunks++
			if localErr != nil {
				continue
			}
			if _, werr := w.Write(data); werr != nil {
				localErr = fmt.Errorf("%w: %w", ErrLocalIO, werr)
				continue
			}
			st.Bytes += int64(len(data))

		case KindEnd:
			return st, localErr

		case KindError:
			return st, &RemoteError{Reason: string(f.Payload)}

		default:
			return st, fmt.Errorf("%w: got %s inside a stream", ErrUnexpectedFrame, f.Kind)
		}
	}
}

// SendAcked streams r in lock-step: each CHUNK must be answered with
// ChunkReceived before the next one is sent. A negative acknowledgement
// causes exactly one retransmission of that chunk; whatever the second
// answer is, the sender moves on. An ERROR frame from the peer aborts the
// transfer with *RemoteError.
//
// If r fails, an ERROR frame with ReasonUploadError is sent and the
// returned error wraps ErrLocalIO. On success the stream is closed with
// END; reading the receiver's final reply is left to the caller.
func (c *Conn) SendAcked(r io.Reader) (StreamStats, error) {
	var st StreamStats

	buf := bufpool.Get(MaxChunkSize)
	defer bufpool.Put(buf)

	for {
		n, rerr := io.ReadFull(r, buf)
		if n > 0 {
			if err := c.sendChunkAcked(buf[:n], &st); err != nil {
				return st, err
			}
			st.Bytes += int64(n)
		}
		switch {
		case rerr == nil:
			continue
		case errors.Is(rerr, io.EOF), errors.Is(rerr, io.ErrUnexpectedEOF):
			return st, c.SendEnd()
		default:
			if err := c.SendError(ReasonUploadError); err != nil {
				return st, err
			}
			return st, fmt.Errorf("%w: %w", ErrLocalIO, rerr)
		}
	}
}

func (c *Conn) sendChunkAcked(data []byte, st *StreamStats) error {
	if err := c.SendChunk(data); err != nil {
		return err
	}
	st.Chunks++

	ack, err := c.ReadMessage()
	if err != nil {
		return err
	}
	if ack == ChunkReceived {
		return nil
	}

	st.Retransmits++
	if err := c.SendChunk(data); err != nil {
		return err
	}
	ack, err = c.ReadMessage()
	if err != nil {
		return err
	}
	if ack != ChunkReceived {
		st.Unconfirmed++
	}
	return nil
}

// ReceiveAcked is the receiving side of SendAcked. Every verified chunk is
// written to w and acknowledged with ChunkReceived; a chunk failing
// verification is answered with ChunkRejected and not written.
//
// limit > 0 caps the total size: the chunk that would cross it is not
// written, the peer gets ERROR(ReasonFileTooLarge) and ErrStreamLimit is
// returned. A failing w produces ERROR(ReasonWriteFailed) and ErrLocalIO.
// An ERROR frame from the peer returns *RemoteError.
func (c *Conn) ReceiveAcked(w io.Writer, limit int64) (StreamStats, error) {
	var st StreamStats
	for {
		f, err := c.ReadFrame()
		if err != nil {
			return st, err
		}

		switch f.Kind {
		case KindChunk:
			data, derr := DecodeChunk(f.Payload)
			if derr != nil {
				st.Rejected++
				if err := c.SendMessage(ChunkRejected); err != nil {
					return st, err
				}
				continue
			}
			if limit > 0 && st.Bytes+int64(len(data)) > limit {
				if err := c.SendError(ReasonFileTooLarge); err != nil {
					return st, err
				}
				return st, ErrStreamLimit
			}
			if _, werr := w.Write(data); werr != nil {
				if err := c.SendError(ReasonWriteFailed); err != nil {
					return st, err
				}
				return st, fmt.Errorf("%w: %w", ErrLocalIO, werr)
			}
			st.Bytes += int64(len(data))
			st.Chunks++
			if err := c.SendMessage(ChunkReceived); err != nil {
				return st, err
			}

		case KindEnd:
			return st, nil

		case KindError:
			return st, &RemoteError{Reason: string(f.Payload)}

		default:
			if err := c.SendError(ReasonUnexpected); err != nil {
				return st, err
			}
			return st, fmt.Errorf("%w: got %s inside a stream", ErrUnexpectedFrame, f.Kind)
		}
	}
}
