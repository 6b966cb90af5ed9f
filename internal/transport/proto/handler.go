package proto

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/google/uuid"

	"github.com/bamsammich/ferry/internal/transport"
)

// Handler executes units of work against a local endpoint on the agent
// side of the channel. One Handler serves one channel.
type Handler struct {
	ep      transport.Endpoint
	logger  *slog.Logger
	readers map[string]transport.ReadFile
	writers map[string]io.WriteCloser
	cwd     string
}

// NewHandler creates a handler backed by ep. cwd is reported in the hello
// response so the client can show where relative paths land.
func NewHandler(ep transport.Endpoint, cwd string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		ep:      ep,
		logger:  logger,
		readers: make(map[string]transport.ReadFile),
		writers: make(map[string]io.WriteCloser),
		cwd:     cwd,
	}
}

// Serve reads request frames from r and writes one response frame per
// request to w until r reaches EOF, ctx is done, or the channel fails. All
// handles still open when Serve returns are closed.
func (h *Handler) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	defer h.closeAll()

	br := bufio.NewReaderSize(r, 64*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		f, err := ReadFrame(br)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}

		respType, resp, err := h.dispatch(ctx, f)
		if err != nil {
			h.logger.Debug("unit failed", "type", fmt.Sprintf("0x%02x", f.MsgType), "seq", f.Seq, "error", err)
			er := NewErrorResp(err)
			respType, resp = MsgErrorResp, &er
		}

		payload, err := resp.MarshalMsg(nil)
		if err != nil {
			return fmt.Errorf("encode response 0x%02x: %w", respType, err)
		}
		if err := WriteFrame(w, Frame{Seq: f.Seq, MsgType: respType, Payload: payload}); err != nil {
			return err
		}
	}
}

//nolint:ireturn,gocyclo // dispatcher with one case per message type
func (h *Handler) dispatch(ctx context.Context, f Frame) (byte, Message, error) {
	switch f.MsgType {
	case MsgHelloReq:
		var req HelloReq
		if err := decode(f, &req); err != nil {
			return 0, nil, err
		}
		if req.Version != ProtocolVersion {
			return 0, nil, fmt.Errorf("unsupported protocol version %d (agent speaks %d)", req.Version, ProtocolVersion)
		}
		return MsgHelloResp, &HelloResp{Version: ProtocolVersion, Cwd: h.cwd, OS: runtime.GOOS}, nil

	case MsgResolveReq:
		var req ResolveReq
		if err := decode(f, &req); err != nil {
			return 0, nil, err
		}
		p, err := h.ep.Resolve(ctx, req.Path)
		if err != nil {
			return 0, nil, err
		}
		return MsgResolveResp, &ResolveResp{Path: p}, nil

	case MsgStatReq:
		var req StatReq
		if err := decode(f, &req); err != nil {
			return 0, nil, err
		}
		entry, err := h.ep.Stat(ctx, req.Path)
		if err != nil {
			return 0, nil, err
		}
		return MsgStatResp, &StatResp{Entry: FromFileEntry(entry)}, nil

	case MsgReadDirReq:
		var req ReadDirReq
		if err := decode(f, &req); err != nil {
			return 0, nil, err
		}
		entries, err := h.ep.ReadDir(ctx, req.Path)
		if err != nil {
			return 0, nil, err
		}
		return MsgReadDirResp, &ReadDirResp{Entries: FromFileEntries(entries)}, nil

	case MsgMkdirAllReq:
		var req MkdirAllReq
		if err := decode(f, &req); err != nil {
			return 0, nil, err
		}
		if err := h.ep.MkdirAll(ctx, req.Path); err != nil {
			return 0, nil, err
		}
		return MsgAckResp, &AckResp{}, nil

	case MsgOpenWriteReq:
		return h.openWrite(ctx, f)
	case MsgWriteDataReq:
		return h.writeData(f)
	case MsgOpenReadReq:
		return h.openRead(ctx, f)
	case MsgReadDataReq:
		return h.readData(f)
	case MsgCloseReq:
		return h.closeHandle(f)

	default:
		return 0, nil, fmt.Errorf("unknown message type: 0x%02x", f.MsgType)
	}
}

//nolint:ireturn // dispatcher helper
func (h *Handler) openWrite(ctx context.Context, f Frame) (byte, Message, error) {
	var req OpenWriteReq
	if err := decode(f, &req); err != nil {
		return 0, nil, err
	}
	w, err := h.ep.OpenWrite(ctx, req.Path, transport.WriteMode(req.Mode))
	if err != nil {
		return 0, nil, err
	}
	handle := uuid.NewString()
	h.writers[handle] = w
	h.logger.Debug("opened for write", "path", req.Path, "handle", handle)
	return MsgOpenWriteResp, &OpenWriteResp{Handle: handle}, nil
}

//nolint:ireturn // dispatcher helper
func (h *Handler) writeData(f Frame) (byte, Message, error) {
	var req WriteDataReq
	if err := decode(f, &req); err != nil {
		return 0, nil, err
	}
	w, ok := h.writers[req.Handle]
	if !ok {
		return 0, nil, fmt.Errorf("write %s: %w", req.Handle, ErrBadHandle)
	}
	n, err := w.Write(req.Data)
	if err != nil {
		return 0, nil, fmt.Errorf("write %s: %w", req.Handle, err)
	}
	return MsgWriteDataResp, &WriteDataResp{Written: int64(n)}, nil
}

//nolint:ireturn // dispatcher helper
func (h *Handler) openRead(ctx context.Context, f Frame) (byte, Message, error) {
	var req OpenReadReq
	if err := decode(f, &req); err != nil {
		return 0, nil, err
	}
	rf, err := h.ep.OpenRead(ctx, req.Path)
	if err != nil {
		return 0, nil, err
	}
	handle := uuid.NewString()
	h.readers[handle] = rf
	h.logger.Debug("opened for read", "path", req.Path, "handle", handle, "size", rf.Size())
	return MsgOpenReadResp, &OpenReadResp{Handle: handle, Size: rf.Size()}, nil
}

// readData performs a single Read of at most MaxReadSize bytes, so the
// client may see fewer bytes than it asked for.
//
//nolint:ireturn // dispatcher helper
func (h *Handler) readData(f Frame) (byte, Message, error) {
	var req ReadDataReq
	if err := decode(f, &req); err != nil {
		return 0, nil, err
	}
	rf, ok := h.readers[req.Handle]
	if !ok {
		return 0, nil, fmt.Errorf("read %s: %w", req.Handle, ErrBadHandle)
	}
	if req.Length <= 0 {
		return 0, nil, fmt.Errorf("read %s: invalid length %d", req.Handle, req.Length)
	}

	buf := make([]byte, min(req.Length, MaxReadSize))
	n, err := rf.Read(buf)
	resp := &ReadDataResp{Data: buf[:n]}
	switch {
	case errors.Is(err, io.EOF):
		resp.EOF = true
	case err != nil:
		return 0, nil, fmt.Errorf("read %s: %w", req.Handle, err)
	}
	return MsgReadDataResp, resp, nil
}

//nolint:ireturn // dispatcher helper
func (h *Handler) closeHandle(f Frame) (byte, Message, error) {
	var req CloseReq
	if err := decode(f, &req); err != nil {
		return 0, nil, err
	}
	var c io.Closer
	if rf, ok := h.readers[req.Handle]; ok {
		delete(h.readers, req.Handle)
		c = rf
	} else if w, ok := h.writers[req.Handle]; ok {
		delete(h.writers, req.Handle)
		c = w
	} else {
		return 0, nil, fmt.Errorf("close %s: %w", req.Handle, ErrBadHandle)
	}
	if err := c.Close(); err != nil {
		return 0, nil, fmt.Errorf("close %s: %w", req.Handle, err)
	}
	return MsgAckResp, &AckResp{}, nil
}

// OpenHandles reports how many read and write handles are outstanding.
func (h *Handler) OpenHandles() int {
	return len(h.readers) + len(h.writers)
}

func (h *Handler) closeAll() {
	for id, rf := range h.readers {
		if err := rf.Close(); err != nil {
			h.logger.Warn("closing read handle", "handle", id, "error", err)
		}
		delete(h.readers, id)
	}
	for id, w := range h.writers {
		if err := w.Close(); err != nil {
			h.logger.Warn("closing write handle", "handle", id, "error", err)
		}
		delete(h.writers, id)
	}
}

func decode(f Frame, m Message) error {
	if _, err := m.UnmarshalMsg(f.Payload); err != nil {
		return fmt.Errorf("decode 0x%02x: %w", f.MsgType, err)
	}
	return nil
}
