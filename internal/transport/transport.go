package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"
)

// Protocol identifies how an endpoint reaches its filesystem.
type Protocol int

const (
	ProtocolLocal Protocol = iota
	ProtocolAgent
	ProtocolSFTP
)

func (p Protocol) String() string {
	switch p {
	case ProtocolLocal:
		return "local"
	case ProtocolAgent:
		return "agent"
	case ProtocolSFTP:
		return "sftp"
	default:
		return "unknown"
	}
}

// FileEntry describes a single filesystem entry.
type FileEntry struct {
	ModTime   time.Time
	Path      string // path as the endpoint addresses it
	Name      string // final path element
	Size      int64
	Mode      os.FileMode
	IsSymlink bool
	IsDir     bool
}

// WriteMode selects how OpenWrite treats an existing destination.
type WriteMode int

const (
	// WriteCreate creates the file, truncating any prior content.
	WriteCreate WriteMode = iota + 1
	// WriteCreateNew creates the file and fails with fs.ErrExist if it exists.
	WriteCreateNew
	// WriteAppend opens the file for appending, creating it if missing.
	WriteAppend
)

func (m WriteMode) String() string {
	switch m {
	case WriteCreate:
		return "create"
	case WriteCreateNew:
		return "create-new"
	case WriteAppend:
		return "append"
	default:
		return fmt.Sprintf("WriteMode(%d)", int(m))
	}
}

// Flags returns the os.OpenFile flags for the mode.
func (m WriteMode) Flags() (int, error) {
	switch m {
	case WriteCreate:
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, nil
	case WriteCreateNew:
		return os.O_WRONLY | os.O_CREATE | os.O_EXCL, nil
	case WriteAppend:
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, nil
	default:
		return 0, fmt.Errorf("invalid write mode %d", int(m))
	}
}

// ReadFile is an open source stream whose length was fixed at open time.
type ReadFile interface {
	io.ReadCloser
	Size() int64
}

// Endpoint is one side of a transfer. Paths passed to an endpoint are in its
// own syntax; Resolve turns a user-supplied path into the absolute form every
// other method expects.
type Endpoint interface {
	// Resolve returns the absolute, normalized form of p. If p does not
	// exist the error is a *NotFoundError carrying the absolute path and its
	// closest existing ancestor.
	Resolve(ctx context.Context, p string) (string, error)

	// Stat returns metadata for p without following a final symlink.
	Stat(ctx context.Context, p string) (FileEntry, error)

	// ReadDir lists the immediate children of p, sorted by name.
	ReadDir(ctx context.Context, p string) ([]FileEntry, error)

	// MkdirAll creates p and any missing parents. Existing directories
	// are not an error.
	MkdirAll(ctx context.Context, p string) error

	// OpenRead opens p for sequential reading.
	OpenRead(ctx context.Context, p string) (ReadFile, error)

	// OpenWrite opens p for sequential writing according to mode.
	OpenWrite(ctx context.Context, p string, mode WriteMode) (io.WriteCloser, error)

	// Join joins path elements using the endpoint's separator. Elements
	// may use forward slashes.
	Join(elem ...string) string

	// Protocol reports how the endpoint is reached.
	Protocol() Protocol

	// Close releases resources held by the endpoint.
	Close() error
}

var (
	// ErrLocked marks a transient failure to open a file because another
	// process holds a conflicting handle.
	ErrLocked = errors.New("file locked by another process")

	// ErrChannelFault marks a failure of the remote execution channel
	// itself, after which no further units of work can be executed.
	ErrChannelFault = errors.New("remote channel fault")
)

// NotFoundError reports a path that does not exist, together with the
// closest ancestor that does.
type NotFoundError struct {
	Path    string
	Closest string
}

func (e *NotFoundError) Error() string {
	if e.Closest == "" {
		return fmt.Sprintf("%s: no such file or directory", e.Path)
	}
	return fmt.Sprintf("%s: no such file or directory (closest existing: %s)", e.Path, e.Closest)
}

// Is makes errors.Is(err, fs.ErrNotExist) hold for a NotFoundError.
func (*NotFoundError) Is(target error) bool {
	return target == fs.ErrNotExist
}

// IsLocked reports whether err is a transient sharing violation, either
// reported by a remote peer as ErrLocked or raised by the local platform.
func IsLocked(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrLocked) || isSharingViolation(err)
}

// closestAncestor walks up from p until exists reports true, returning ""
// if no ancestor exists.
func closestAncestor(p string, parent func(string) string, exists func(string) bool) string {
	for {
		next := parent(p)
		if next == p {
			if exists(p) {
				return p
			}
			return ""
		}
		p = next
		if exists(p) {
			return p
		}
	}
}
