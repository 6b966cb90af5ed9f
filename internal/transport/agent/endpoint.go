// Package agent implements a transport.Endpoint whose filesystem operations
// run as units of work on a remote `ferry agent` process.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/bamsammich/ferry/internal/transport"
	"github.com/bamsammich/ferry/internal/transport/proto"
)

// CloseTimeout bounds the close unit sent for a stream handle.
const CloseTimeout = 30 * time.Second

// Compile-time interface check.
var _ transport.Endpoint = (*Endpoint)(nil)

// Endpoint is a remote filesystem reached through the channel.
type Endpoint struct {
	client *proto.Client
	closer io.Closer // transport beneath the channel, may be nil
	cwd    string
	os     string
}

// New performs the hello handshake over conn and returns the endpoint.
// Closing the endpoint closes conn.
func New(ctx context.Context, conn io.ReadWriteCloser) (*Endpoint, error) {
	client := proto.NewClient(conn)
	var hello proto.HelloResp
	err := client.Call(ctx, proto.MsgHelloReq, &proto.HelloReq{Version: proto.ProtocolVersion},
		proto.MsgHelloResp, &hello)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("agent hello: %w", err)
	}
	if hello.Version != proto.ProtocolVersion {
		client.Close()
		return nil, fmt.Errorf("agent hello: protocol version %d, want %d", hello.Version, proto.ProtocolVersion)
	}
	return &Endpoint{client: client, cwd: hello.Cwd, os: hello.OS}, nil
}

// Cwd reports the agent's working directory, against which relative paths
// are resolved.
func (e *Endpoint) Cwd() string { return e.cwd }

// OS reports the agent's GOOS.
func (e *Endpoint) OS() string { return e.os }

func (e *Endpoint) Resolve(ctx context.Context, p string) (string, error) {
	var resp proto.ResolveResp
	err := e.client.Call(ctx, proto.MsgResolveReq, &proto.ResolveReq{Path: p}, proto.MsgResolveResp, &resp)
	if err != nil {
		var re *proto.RemoteError
		if errors.As(err, &re) && re.Code == proto.CodeNotExist && re.Path != "" {
			return re.Path, &transport.NotFoundError{Path: re.Path, Closest: re.Closest}
		}
		return "", fmt.Errorf("agent resolve %s: %w", p, err)
	}
	return resp.Path, nil
}

func (e *Endpoint) Stat(ctx context.Context, p string) (transport.FileEntry, error) {
	var resp proto.StatResp
	if err := e.client.Call(ctx, proto.MsgStatReq, &proto.StatReq{Path: p}, proto.MsgStatResp, &resp); err != nil {
		return transport.FileEntry{}, fmt.Errorf("agent stat %s: %w", p, err)
	}
	return proto.ToFileEntry(resp.Entry), nil
}

func (e *Endpoint) ReadDir(ctx context.Context, p string) ([]transport.FileEntry, error) {
	var resp proto.ReadDirResp
	if err := e.client.Call(ctx, proto.MsgReadDirReq, &proto.ReadDirReq{Path: p}, proto.MsgReadDirResp, &resp); err != nil {
		return nil, fmt.Errorf("agent readdir %s: %w", p, err)
	}
	return proto.ToFileEntries(resp.Entries), nil
}

func (e *Endpoint) MkdirAll(ctx context.Context, p string) error {
	err := e.client.Call(ctx, proto.MsgMkdirAllReq, &proto.MkdirAllReq{Path: p, Perm: 0o755},
		proto.MsgAckResp, &proto.AckResp{})
	if err != nil {
		return fmt.Errorf("agent mkdir %s: %w", p, err)
	}
	return nil
}

//nolint:ireturn // ReadFile is the endpoint contract
func (e *Endpoint) OpenRead(ctx context.Context, p string) (transport.ReadFile, error) {
	var resp proto.OpenReadResp
	if err := e.client.Call(ctx, proto.MsgOpenReadReq, &proto.OpenReadReq{Path: p}, proto.MsgOpenReadResp, &resp); err != nil {
		return nil, fmt.Errorf("agent open %s: %w", p, err)
	}
	return &remoteReader{ctx: ctx, client: e.client, handle: resp.Handle, size: resp.Size, path: p}, nil
}

//nolint:ireturn // io.WriteCloser is the endpoint contract
func (e *Endpoint) OpenWrite(ctx context.Context, p string, mode transport.WriteMode) (io.WriteCloser, error) {
	var resp proto.OpenWriteResp
	err := e.client.Call(ctx, proto.MsgOpenWriteReq, &proto.OpenWriteReq{Path: p, Mode: int(mode)},
		proto.MsgOpenWriteResp, &resp)
	if err != nil {
		return nil, fmt.Errorf("agent open %s for write: %w", p, err)
	}
	return &remoteWriter{ctx: ctx, client: e.client, handle: resp.Handle, path: p}, nil
}

// Join joins elements with forward slashes, or backslashes when the agent
// runs on Windows.
func (e *Endpoint) Join(elem ...string) string {
	if e.os != "windows" {
		return path.Join(elem...)
	}
	slashed := make([]string, len(elem))
	for i, el := range elem {
		slashed[i] = strings.ReplaceAll(el, `\`, "/")
	}
	return strings.ReplaceAll(path.Join(slashed...), "/", `\`)
}

func (*Endpoint) Protocol() transport.Protocol { return transport.ProtocolAgent }

// Close ends the channel and the transport beneath it.
func (e *Endpoint) Close() error {
	err := e.client.Close()
	if e.closer != nil {
		if cerr := e.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// remoteReader reads a source file through read-buffer units. A single
// Read may return fewer bytes than requested.
//
//nolint:containedctx // the endpoint contract binds a stream to its open context
type remoteReader struct {
	ctx    context.Context
	client *proto.Client
	handle string
	path   string
	size   int64
	eof    bool
	once   sync.Once
}

func (r *remoteReader) Size() int64 { return r.size }

func (r *remoteReader) Read(p []byte) (int, error) {
	if r.eof {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	var resp proto.ReadDataResp
	req := &proto.ReadDataReq{Handle: r.handle, Length: min(len(p), proto.MaxReadSize)}
	if err := r.client.Call(r.ctx, proto.MsgReadDataReq, req, proto.MsgReadDataResp, &resp); err != nil {
		return 0, fmt.Errorf("agent read %s: %w", r.path, err)
	}
	if len(resp.Data) > len(p) {
		return 0, fmt.Errorf("agent read %s: %d bytes returned for %d requested", r.path, len(resp.Data), len(p))
	}

	n := copy(p, resp.Data)
	if resp.EOF {
		r.eof = true
		if n == 0 {
			return 0, io.EOF
		}
	}
	if n == 0 && !resp.EOF {
		return 0, io.ErrNoProgress
	}
	return n, nil
}

func (r *remoteReader) Close() error {
	var err error
	r.once.Do(func() {
		err = closeHandle(r.ctx, r.client, r.handle)
	})
	if err != nil {
		return fmt.Errorf("agent close %s: %w", r.path, err)
	}
	return nil
}

// remoteWriter sends each Write as write-buffer units of at most
// proto.MaxChunkSize bytes, so a chunk no larger than that is exactly one
// unit of work.
//
//nolint:containedctx // the endpoint contract binds a stream to its open context
type remoteWriter struct {
	ctx    context.Context
	client *proto.Client
	handle string
	path   string
	once   sync.Once
}

func (w *remoteWriter) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		chunk := p[written:min(len(p), written+proto.MaxChunkSize)]
		var resp proto.WriteDataResp
		req := &proto.WriteDataReq{Handle: w.handle, Data: chunk}
		if err := w.client.Call(w.ctx, proto.MsgWriteDataReq, req, proto.MsgWriteDataResp, &resp); err != nil {
			return written, fmt.Errorf("agent write %s: %w", w.path, err)
		}
		n := int(resp.Written)
		written += n
		if n < len(chunk) {
			return written, io.ErrShortWrite
		}
	}
	return written, nil
}

func (w *remoteWriter) Close() error {
	var err error
	w.once.Do(func() {
		err = closeHandle(w.ctx, w.client, w.handle)
	})
	if err != nil {
		return fmt.Errorf("agent close %s: %w", w.path, err)
	}
	return nil
}

// closeHandle releases handle on the agent. The close unit is sent even
// after ctx is cancelled, bounded by CloseTimeout.
func closeHandle(ctx context.Context, client *proto.Client, handle string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), CloseTimeout)
	defer cancel()
	return client.Call(ctx, proto.MsgCloseReq, &proto.CloseReq{Handle: handle}, proto.MsgAckResp, &proto.AckResp{})
}
