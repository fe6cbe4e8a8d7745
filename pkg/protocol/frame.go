// Package protocol implements the DittoDrop wire format.
//
// Every message exchanged between client and server is a frame encoded as
// an XDR (RFC 4506) structure:
//
//	struct frame {
//	    unsigned int kind;     /* MESSAGE, CHUNK, END, ERROR */
//	    opaque       payload<>;/* length-prefixed, padded to 4 bytes */
//	};
//
// Control text (prompts, replies, command tokens) travels in MESSAGE
// frames. File content travels in CHUNK frames of at most MaxChunkSize
// bytes, each prefixed with the xxhash64 of its data. The end of a stream
// is a dedicated END frame and an aborted transfer is an ERROR frame, so
// payload bytes are never inspected for markers.
package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// Kind identifies the frame type.
type Kind uint32

const (
	KindMessage Kind = 1
	KindChunk   Kind = 2
	KindEnd     Kind = 3
	KindError   Kind = 4
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "MESSAGE"
	case KindChunk:
		return "CHUNK"
	case KindEnd:
		return "END"
	case KindError:
		return "ERROR"
	default:
		return fmt.Sprintf("KIND(%d)", uint32(k))
	}
}

const (
	// MaxChunkSize is the largest file fragment carried by one CHUNK frame
	// and the largest MESSAGE or ERROR text.
	MaxChunkSize = 1024

	// checksumSize is the xxhash64 prefix of a CHUNK payload.
	checksumSize = 8

	// headerSize is kind + opaque length.
	headerSize = 8
)

var (
	// ErrFrameTooLarge means the peer declared a payload longer than the
	// kind allows. The stream cannot be resynchronised after this.
	ErrFrameTooLarge = errors.New("frame payload too large")

	// ErrUnknownKind means the peer sent a frame kind this side does not
	// understand. Also fatal for the stream.
	ErrUnknownKind = errors.New("unknown frame kind")

	// ErrUnexpectedFrame is returned when a well-formed frame of the wrong
	// kind arrives at a point where a specific reply was required.
	ErrUnexpectedFrame = errors.New("unexpected frame")

	// ErrEmptyChunk is returned when asked to send or when receiving a
	// CHUNK with no data. END is the only way to finish a stream.
	ErrEmptyChunk = errors.New("empty chunk")
)

// Frame is one decoded wire message. Payload aliases the reader's buffer
// for frames returned by Conn.ReadFrame and is only valid until the next
// read.
type Frame struct {
	Kind    Kind
	Payload []byte
}

// header is the fixed part of the encoded frame.
type header struct {
	Kind   Kind
	Length uint32
}

// maxPayload returns the payload limit for kind and whether kind is known.
func maxPayload(k Kind) (int, bool) {
	switch k {
	case KindMessage, KindError:
		return MaxChunkSize, true
	case KindChunk:
		return MaxChunkSize + checksumSize, true
	case KindEnd:
		return 0, true
	default:
		return 0, false
	}
}

func padding(n int) int {
	return (4 - n%4) % 4
}

// EncodeFrame serialises f. The frame is built in memory so that it reaches
// the transport in a single Write.
func EncodeFrame(f Frame) ([]byte, error) {
	limit, ok := maxPayload(f.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint32(f.Kind))
	}
	if len(f.Payload) > limit {
		return nil, fmt.Errorf("%w: %s payload %d > %d", ErrFrameTooLarge, f.Kind, len(f.Payload), limit)
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + len(f.Payload) + padding(len(f.Payload)))
	if _, err := xdr.Marshal(&buf, &f); err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.Kind, err)
	}
	return buf.Bytes(), nil
}

// WriteFrame encodes f and writes it to w.
func WriteFrame(w io.Writer, f Frame) error {
	data, err := EncodeFrame(f)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadFrame decodes one frame from r. buf, if large enough, is used as the
// payload storage; otherwise a new slice is allocated. The declared length
// is checked against the kind's limit before anything is allocated.
func ReadFrame(r io.Reader, buf []byte) (Frame, error) {
	var h header
	if _, err := xdr.Unmarshal(r, &h); err != nil {
		return Frame{}, unwrapXDR(err)
	}

	limit, ok := maxPayload(h.Kind)
	if !ok {
		return Frame{}, fmt.Errorf("%w: %d", ErrUnknownKind, uint32(h.Kind))
	}
	if int64(h.Length) > int64(limit) {
		return Frame{}, fmt.Errorf("%w: %s declared %d > %d", ErrFrameTooLarge, h.Kind, h.Length, limit)
	}

	n := int(h.Length)
	total := n + padding(n)
	if cap(buf) < total {
		buf = make([]byte, total)
	}
	buf = buf[:total]
	if _, err := io.ReadFull(r, buf); err != nil {
		return Frame{}, unexpectedEOF(err)
	}
	return Frame{Kind: h.Kind, Payload: buf[:n]}, nil
}

// unwrapXDR surfaces the transport error underneath the XDR decoder so
// callers can classify io.EOF and net errors with errors.Is/As.
func unwrapXDR(err error) error {
	var uerr *xdr.UnmarshalError
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err
	}
	return err
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
