package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"go.uber.org/multierr"

	"github.com/bamsammich/ferry/internal/bufpool"
	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/transport"
)

// chunkState tracks one file's progress. bufferSize never exceeds the
// bytes still to read, so the final chunk is exactly the remainder.
type chunkState struct {
	bufferSize  int64
	transferred int64
	length      int64
}

func (s *chunkState) done() bool { return s.transferred >= s.length }

// next returns the size of the next chunk, shrinking bufferSize to the
// remainder once fewer bytes than a full buffer are left.
func (s *chunkState) next() int64 {
	s.bufferSize = min(s.bufferSize, s.length-s.transferred)
	return s.bufferSize
}

// transfer copies job.Source on src to job.Destination on dst one chunk at
// a time. Each filled chunk goes to the sink as a single Write. Both
// streams are closed on every path; a partial destination is left in place.
func (e *Engine) transfer(
	ctx context.Context,
	job Job,
	src, dst transport.Endpoint,
	overwrite bool,
	pool *bufpool.Pool,
) (n int64, err error) {
	r, err := src.OpenRead(ctx, job.Source)
	if err != nil {
		return 0, classify(err, job.Source, SourceNotFound)
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			e.logger.Debug("close source", "path", job.Source, "error", cerr)
		}
	}()

	mode := transport.WriteCreateNew
	if overwrite {
		mode = transport.WriteCreate
	}
	w, err := e.retry.OpenForWrite(ctx, dst, job.Destination, mode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, &TransferError{Code: DestinationExists, Path: job.Destination, Err: err}
		}
		return 0, classify(err, job.Destination, DestinationFolderMissing)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			err = multierr.Append(err, classify(cerr, job.Destination, ""))
		}
	}()

	st := chunkState{bufferSize: int64(pool.Size()), length: r.Size()}
	e.emit(event.Event{Type: event.FileStarted, Source: job.Source, Destination: job.Destination, Total: st.length})
	if st.done() {
		return 0, nil
	}

	buf := pool.Get()
	defer pool.Put(buf)

	for !st.done() {
		if err := ctx.Err(); err != nil {
			return st.transferred, classify(err, job.Destination, "")
		}
		chunk := (*buf)[:st.next()]

		if _, err := io.ReadFull(r, chunk); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return st.transferred, &TransferError{
					Code: TruncatedSource,
					Path: job.Source,
					Err:  fmt.Errorf("ended after %d of %d bytes: %w", st.transferred, st.length, err),
				}
			}
			return st.transferred, classify(err, job.Source, "")
		}
		if err := waitN(ctx, e.limiter, len(chunk)); err != nil {
			return st.transferred, classify(err, job.Destination, "")
		}
		if _, err := w.Write(chunk); err != nil {
			return st.transferred, classify(err, job.Destination, "")
		}

		st.transferred += int64(len(chunk))
		e.emit(event.Event{
			Type:        event.FileProgress,
			Source:      job.Source,
			Destination: job.Destination,
			Bytes:       st.transferred,
			Total:       st.length,
		})
	}
	return st.transferred, nil
}

func (e *Engine) emit(ev event.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	e.events(ev)
}
