package proto

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"

	"github.com/bamsammich/ferry/internal/transport"
)

// ErrBadHandle is reported when a unit names a handle the agent does not
// hold.
var ErrBadHandle = errors.New("unknown handle")

// ChannelError is a failure of the channel itself: framing, I/O, an
// out-of-sequence response or an undecodable payload. It matches
// transport.ErrChannelFault.
type ChannelError struct {
	Err error
	Op  string
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %s: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, transport.ErrChannelFault) hold.
func (*ChannelError) Is(target error) bool {
	return target == transport.ErrChannelFault
}

// RemoteError is a unit of work that the agent executed and that failed.
// It unwraps to the matching fs or transport sentinel.
type RemoteError struct {
	Code    ErrorCode
	Message string
	Path    string
	Closest string
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	switch e.Code {
	case CodeNotExist:
		return fs.ErrNotExist
	case CodeExist:
		return fs.ErrExist
	case CodeLocked:
		return transport.ErrLocked
	case CodePermission:
		return fs.ErrPermission
	case CodeBadHandle:
		return ErrBadHandle
	case CodeNotDir:
		return syscall.ENOTDIR
	default:
		return nil
	}
}

// NewErrorResp classifies err for the wire.
func NewErrorResp(err error) ErrorResp {
	resp := ErrorResp{Code: CodeGeneric, Message: err.Error()}

	var nf *transport.NotFoundError
	if errors.As(err, &nf) {
		resp.Code = CodeNotExist
		resp.Path = nf.Path
		resp.Closest = nf.Closest
		return resp
	}

	switch {
	case transport.IsLocked(err):
		resp.Code = CodeLocked
	case errors.Is(err, fs.ErrNotExist):
		resp.Code = CodeNotExist
	case errors.Is(err, fs.ErrExist):
		resp.Code = CodeExist
	case errors.Is(err, fs.ErrPermission):
		resp.Code = CodePermission
	case errors.Is(err, ErrBadHandle):
		resp.Code = CodeBadHandle
	case errors.Is(err, syscall.ENOTDIR):
		resp.Code = CodeNotDir
	}
	return resp
}
