package proto

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrClientClosed is returned by Call after Close.
var ErrClientClosed = errors.New("client closed")

// Client executes units of work over a channel, one at a time. Every call
// writes one request frame and blocks until the matching response frame
// arrives. The first channel failure is sticky: the connection is closed
// and every later call returns the same *ChannelError.
type Client struct {
	conn io.ReadWriteCloser
	r    *bufio.Reader
	err  error
	mu   sync.Mutex
	seq  uint32
}

// NewClient wraps conn. The caller must not read or write conn afterwards.
func NewClient(conn io.ReadWriteCloser) *Client {
	return &Client{
		conn: conn,
		r:    bufio.NewReaderSize(conn, 64*1024),
	}
}

// Call sends req as a frame of reqType and decodes the response into resp,
// which must be of respType. A failed unit is returned as *RemoteError; a
// failed channel as *ChannelError. Cancelling ctx while a call is in flight
// breaks the channel, since the outstanding response can no longer be
// paired with its request.
func (c *Client) Call(ctx context.Context, reqType byte, req Message, respType byte, resp Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return c.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := req.MarshalMsg(nil)
	if err != nil {
		return fmt.Errorf("encode request 0x%02x: %w", reqType, err)
	}

	c.seq++
	seq := c.seq

	stop := context.AfterFunc(ctx, func() {
		c.conn.Close() //nolint:errcheck,gosec // unblocks the pending read
	})
	defer stop()

	if err := WriteFrame(c.conn, Frame{Seq: seq, MsgType: reqType, Payload: payload}); err != nil {
		return c.fault(ctx, "write", err)
	}

	f, err := ReadFrame(c.r)
	if err != nil {
		return c.fault(ctx, "read", err)
	}
	if f.Seq != seq {
		return c.fault(ctx, "read", fmt.Errorf("response sequence %d, want %d", f.Seq, seq))
	}

	if f.MsgType == MsgErrorResp {
		var er ErrorResp
		if _, err := er.UnmarshalMsg(f.Payload); err != nil {
			return c.fault(ctx, "decode", fmt.Errorf("error response: %w", err))
		}
		return &RemoteError{Code: er.Code, Message: er.Message, Path: er.Path, Closest: er.Closest}
	}
	if f.MsgType != respType {
		return c.fault(ctx, "read", fmt.Errorf("response type 0x%02x, want 0x%02x", f.MsgType, respType))
	}
	if _, err := resp.UnmarshalMsg(f.Payload); err != nil {
		return c.fault(ctx, "decode", fmt.Errorf("response 0x%02x: %w", respType, err))
	}
	return nil
}

// fault records a channel failure and closes the connection. Must be called
// with c.mu held.
func (c *Client) fault(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	c.err = &ChannelError{Op: op, Err: err}
	c.conn.Close() //nolint:errcheck,gosec // already failed
	return c.err
}

// Close shuts down the channel. Later calls return ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil
	}
	c.err = ErrClientClosed
	return c.conn.Close()
}
