package client

import (
	"errors"
	"io"

	"github.com/marmos91/dittodrop/pkg/protocol"
)

// Result describes a finished transfer.
type Result struct {
	Bytes       int64
	Chunks      int
	Retransmits int
	Unconfirmed int // chunks the server rejected twice
}

// Upload sends r under name. The session stays usable after a
// *ServerError or ErrInvalidName.
func (c *Client) Upload(name string, r io.Reader) (Result, error) {
	if err := c.command(protocol.CommandUpload); err != nil {
		return Result{}, err
	}
	if err := c.framer.Expect(protocol.UploadReadyName); err != nil {
		return Result{}, err
	}
	if err := c.framer.SendMessage(name); err != nil {
		return Result{}, err
	}

	reply, err := c.framer.ReadMessage()
	if err != nil {
		return Result{}, err
	}
	switch reply {
	case protocol.UploadReadyData:
	case protocol.UploadInvalidName:
		return Result{}, ErrInvalidName
	case protocol.UploadFailed:
		return Result{}, &ServerError{Message: reply}
	default:
		return Result{}, &protocol.UnexpectedReplyError{Want: protocol.UploadReadyData, Got: reply}
	}

	st, err := c.framer.SendAcked(r)
	res := Result{Bytes: st.Bytes, Chunks: st.Chunks, Retransmits: st.Retransmits, Unconfirmed: st.Unconfirmed}
	if err != nil {
		var remote *protocol.RemoteError
		if errors.As(err, &remote) {
			return res, &ServerError{Message: remote.Reason}
		}
		return res, err
	}

	reply, err = c.framer.ReadMessage()
	if err != nil {
		return res, err
	}
	if reply != protocol.UploadComplete {
		return res, &ServerError{Message: reply}
	}
	return res, nil
}

// CancelUpload starts an upload and cancels it at the filename prompt.
func (c *Client) CancelUpload() error {
	if err := c.command(protocol.CommandUpload); err != nil {
		return err
	}
	if err := c.framer.Expect(protocol.UploadReadyName); err != nil {
		return err
	}
	return c.framer.SendMessage(protocol.UploadCancel)
}

// Download writes the whole file name to w.
func (c *Client) Download(name string, w io.Writer) (Result, error) {
	return c.download(name, w, false)
}

// Preview writes at most the first chunk of name to w.
func (c *Client) Preview(name string, w io.Writer) (Result, error) {
	return c.download(name, w, true)
}

func (c *Client) download(name string, w io.Writer, preview bool) (Result, error) {
	if err := c.command(protocol.CommandDownload); err != nil {
		return Result{}, err
	}

	req, want := name, protocol.FileFound
	if preview {
		req, want = protocol.PreviewRequestPfx+name, protocol.PreviewMode
	}
	if err := c.framer.SendMessage(req); err != nil {
		return Result{}, err
	}

	reply, err := c.framer.ReadMessage()
	if err != nil {
		var remote *protocol.RemoteError
		if errors.As(err, &remote) {
			return Result{}, &ServerError{Message: remote.Reason}
		}
		return Result{}, err
	}
	switch reply {
	case want:
	case protocol.FileNotFound:
		return Result{}, ErrNotFound
	default:
		return Result{}, &protocol.UnexpectedReplyError{Want: want, Got: reply}
	}

	st, err := c.framer.ReceiveStream(w)
	res := Result{Bytes: st.Bytes, Chunks: st.Chunks}
	if err != nil {
		var remote *protocol.RemoteError
		if errors.As(err, &remote) {
			return res, &ServerError{Message: remote.Reason}
		}
		return res, err
	}
	return res, nil
}

// Delete removes name from the user's area.
func (c *Client) Delete(name string) error {
	if err := c.command(protocol.CommandDelete); err != nil {
		return err
	}
	if err := c.framer.Expect(protocol.PromptDelete); err != nil {
		return err
	}
	if err := c.framer.SendMessage(name); err != nil {
		return err
	}

	reply, err := c.framer.ReadMessage()
	if err != nil {
		return err
	}
	switch reply {
	case protocol.FileDeleted:
		return nil
	case protocol.FileNotFound:
		return ErrNotFound
	default:
		return &ServerError{Message: reply}
	}
}
