package engine

import (
	"fmt"

	"github.com/bamsammich/ferry/internal/transport/proto"
)

// DefaultBufferSize is the chunk size used when a request leaves it unset.
const DefaultBufferSize = 4 << 20

// Direction says which side holds the source.
type Direction int

const (
	Push Direction = iota + 1 // local to remote
	Pull                      // remote to local
)

func (d Direction) String() string {
	switch d {
	case Push:
		return "push"
	case Pull:
		return "pull"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Request describes one copy. Source is a path on the source side of
// Direction and Destination a path on the other side; either may be
// relative to that side's working directory.
type Request struct {
	Source      string
	Destination string
	Direction   Direction
	BufferSize  int
	Overwrite   bool // replace existing destination files
	Force       bool // create a missing destination parent chain
}

func (r Request) withDefaults() Request {
	if r.BufferSize == 0 {
		r.BufferSize = DefaultBufferSize
	}
	return r
}

func (r Request) validate() error {
	switch {
	case r.Source == "":
		return &TransferError{Code: InvalidRequest, Err: fmt.Errorf("empty source path")}
	case r.Destination == "":
		return &TransferError{Code: InvalidRequest, Err: fmt.Errorf("empty destination path")}
	case r.Direction != Push && r.Direction != Pull:
		return &TransferError{Code: InvalidRequest, Err: fmt.Errorf("unknown %s", r.Direction)}
	case r.BufferSize <= 0 || r.BufferSize > proto.MaxChunkSize:
		return &TransferError{
			Code: InvalidRequest,
			Err:  fmt.Errorf("buffer size %d outside (0, %d]", r.BufferSize, proto.MaxChunkSize),
		}
	}
	return nil
}

// Job copies one regular file. Both paths are absolute on their own side.
type Job struct {
	Source      string
	Destination string
}

// Kind is the type of a plan entry.
type Kind int

const (
	KindDirectory Kind = iota + 1
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// PlanEntry is one entry beneath the copy root. RelPath is slash separated.
type PlanEntry struct {
	RelPath string
	Kind    Kind
	Size    int64
}

// Summary is the outcome of a copy. It is returned alongside an error too,
// reporting whatever finished.
type Summary struct {
	Completed          []Job
	FilesCopied        int64
	BytesCopied        int64
	DirectoriesCreated int64
	FilesSkipped       int64
}
