// Package engine copies files and directory trees between a local and a
// remote endpoint.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/bamsammich/ferry/internal/bufpool"
	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/filter"
	"github.com/bamsammich/ferry/internal/transport"
)

// Config wires an Engine to its endpoints and collaborators.
type Config struct {
	Local   transport.Endpoint
	Remote  transport.Endpoint
	Filter  *filter.Chain // nil copies every entry
	Events  event.Sink    // nil discards events
	BWLimit *rate.Limiter // nil is unlimited
	Logger  *slog.Logger  // nil uses slog.Default
	Retry   RetryPolicy
}

// Engine runs copies. Copies are sequential; an Engine must not run two
// Copy calls at once over the same endpoints.
type Engine struct {
	local   transport.Endpoint
	remote  transport.Endpoint
	filter  *filter.Chain
	events  event.Sink
	limiter *rate.Limiter
	logger  *slog.Logger
	retry   RetryPolicy
}

// New validates cfg and returns an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Local == nil || cfg.Remote == nil {
		return nil, errors.New("engine: local and remote endpoints are required")
	}
	e := &Engine{
		local:   cfg.Local,
		remote:  cfg.Remote,
		filter:  cfg.Filter,
		events:  cfg.Events,
		limiter: cfg.BWLimit,
		logger:  cfg.Logger,
		retry:   cfg.Retry.withDefaults(),
	}
	if e.events == nil {
		e.events = event.Discard
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e, nil
}

type state int

const (
	stateValidating state = iota
	statePlanning
	stateMaterializing
	stateCopying
	stateDone
	stateFailed
)

func (s state) String() string {
	return [...]string{"validating", "planning", "materializing", "copying", "done", "failed"}[s]
}

// run carries one Copy's working state.
type run struct {
	*Engine
	logger  *slog.Logger
	src     transport.Endpoint
	dst     transport.Endpoint
	pool    *bufpool.Pool
	req     Request
	summary Summary
}

func (r *run) enter(s state) {
	r.logger.Debug("copy state", "state", s.String())
}

func (r *run) fail(err error) (Summary, error) {
	r.enter(stateFailed)
	return r.summary, err
}

// Copy runs req to completion. A single-file copy fails with a
// *TransferError, joined with the destination's close error when closing
// also failed; errors.As finds the *TransferError either way. A tree copy fails with *TreeFailure when some files
// failed, or *AbortError when a fatal error stopped it. The Summary
// reports what finished either way.
func (e *Engine) Copy(ctx context.Context, req Request) (Summary, error) {
	req = req.withDefaults()
	r := &run{
		Engine: e,
		req:    req,
		logger: e.logger.With("direction", req.Direction.String(), "source", req.Source, "destination", req.Destination),
	}
	r.enter(stateValidating)
	if err := req.validate(); err != nil {
		return r.fail(err)
	}
	r.src, r.dst = e.local, e.remote
	if req.Direction == Pull {
		r.src, r.dst = e.remote, e.local
	}
	pool, err := bufpool.New(req.BufferSize)
	if err != nil {
		return r.fail(&TransferError{Code: InvalidRequest, Err: err})
	}
	r.pool = pool

	srcRoot, err := r.src.Resolve(ctx, req.Source)
	if err != nil {
		return r.fail(classify(err, req.Source, SourceNotFound))
	}
	srcEntry, err := r.src.Stat(ctx, srcRoot)
	if err != nil {
		return r.fail(classify(err, srcRoot, SourceNotFound))
	}
	if srcEntry.IsSymlink {
		return r.fail(&TransferError{Code: InvalidRequest, Path: srcRoot, Err: ErrSymlinkSkipped})
	}

	dstRoot, dstEntry, err := r.resolveDestination(ctx)
	if err != nil {
		return r.fail(err)
	}

	if srcEntry.IsDir {
		return r.copyTree(ctx, srcRoot, dstRoot, dstEntry)
	}
	return r.copyFile(ctx, srcRoot, srcEntry, dstRoot, dstEntry)
}

// resolveDestination resolves the destination path. A missing destination
// is allowed when its parent exists or Force creates it; the returned entry
// is nil in that case.
func (r *run) resolveDestination(ctx context.Context) (string, *transport.FileEntry, error) {
	dstRoot, err := r.dst.Resolve(ctx, r.req.Destination)
	if err == nil {
		entry, err := r.dst.Stat(ctx, dstRoot)
		if err != nil {
			return "", nil, classify(err, dstRoot, "")
		}
		return dstRoot, &entry, nil
	}

	var nf *transport.NotFoundError
	if !errors.As(err, &nf) {
		return "", nil, classify(err, r.req.Destination, "")
	}
	parent := r.dst.Join(nf.Path, "..")
	if nf.Closest == parent {
		return nf.Path, nil, nil
	}
	if !r.req.Force {
		return "", nil, &TransferError{
			Code: DestinationFolderMissing,
			Path: nf.Path,
			Err:  fmt.Errorf("closest existing ancestor is %s", nf.Closest),
		}
	}
	if err := r.dst.MkdirAll(ctx, parent); err != nil {
		return "", nil, classify(err, parent, "")
	}
	r.logger.Debug("created destination parent", "path", parent)
	return nf.Path, nil, nil
}

func (r *run) copyFile(
	ctx context.Context,
	srcPath string,
	srcEntry transport.FileEntry,
	dstPath string,
	dstEntry *transport.FileEntry,
) (Summary, error) {
	if !srcEntry.Mode.IsRegular() {
		return r.fail(&TransferError{Code: InvalidRequest, Path: srcPath, Err: ErrUnsupportedEntry})
	}
	if dstEntry != nil && dstEntry.IsDir {
		dstPath = r.dst.Join(dstPath, srcEntry.Name)
	}

	r.enter(stateCopying)
	job := Job{Source: srcPath, Destination: dstPath}
	if err := r.copyJob(ctx, job); err != nil {
		return r.fail(err)
	}
	r.enter(stateDone)
	return r.summary, nil
}

func (r *run) copyTree(ctx context.Context, srcRoot, dstRoot string, dstEntry *transport.FileEntry) (Summary, error) {
	switch {
	case dstEntry == nil:
		if err := r.dst.MkdirAll(ctx, dstRoot); err != nil {
			return r.fail(classify(err, dstRoot, DestinationFolderMissing))
		}
	case !dstEntry.IsDir:
		return r.fail(&TransferError{
			Code: DestinationExists,
			Path: dstRoot,
			Err:  errors.New("destination is not a directory"),
		})
	}

	r.enter(statePlanning)
	plan := newPlan(r.src, srcRoot, r.filter)
	var (
		dirs     []PlanEntry
		files    []PlanEntry
		failures []JobFailure
		total    int64
		extra    int // failures that are not file jobs
	)
	for entry, err := range plan.All(ctx) {
		if err != nil {
			if IsFatal(err) {
				return r.fail(&AbortError{Cause: err})
			}
			var pe *PlanError
			errors.As(err, &pe)
			if errors.Is(err, ErrSymlinkSkipped) || errors.Is(err, ErrUnsupportedEntry) {
				r.logger.Warn("skipping entry", "path", plan.Abs(pe.RelPath), "reason", pe.Err)
				r.summary.FilesSkipped++
				r.emit(event.Event{Type: event.FileSkipped, Source: plan.Abs(pe.RelPath), Error: pe.Err})
				continue
			}
			r.logger.Warn("enumeration failed", "error", err)
			job := Job{Source: srcRoot}
			if pe != nil {
				job = Job{Source: plan.Abs(pe.RelPath), Destination: r.dstPath(dstRoot, pe.RelPath)}
			}
			failures = append(failures, JobFailure{Job: job, Err: err})
			extra++
			continue
		}
		switch entry.Kind {
		case KindDirectory:
			dirs = append(dirs, entry)
		case KindFile:
			files = append(files, entry)
			total += entry.Size
		}
	}
	r.emit(event.Event{Type: event.PlanComplete, Source: srcRoot, Destination: dstRoot, Files: int64(len(files)), Total: total})
	r.logger.Debug("plan complete", "directories", len(dirs), "files", len(files), "bytes", total)

	r.enter(stateMaterializing)
	for _, d := range dirs {
		p := r.dstPath(dstRoot, d.RelPath)
		if err := r.dst.MkdirAll(ctx, p); err != nil {
			if IsFatal(err) {
				return r.fail(&AbortError{Cause: classify(err, p, ""), Completed: r.summary.Completed})
			}
			failures = append(failures, JobFailure{Job: Job{Source: plan.Abs(d.RelPath), Destination: p}, Err: classify(err, p, "")})
			extra++
			continue
		}
		r.summary.DirectoriesCreated++
		r.emit(event.Event{Type: event.DirCreated, Source: plan.Abs(d.RelPath), Destination: p})
	}

	r.enter(stateCopying)
	for _, f := range files {
		job := Job{Source: plan.Abs(f.RelPath), Destination: r.dstPath(dstRoot, f.RelPath)}
		if err := r.copyJob(ctx, job); err != nil {
			if IsFatal(err) {
				r.logger.Debug("aborting copy", "completed", len(r.summary.Completed), "files", len(files))
				return r.fail(&AbortError{Cause: err, Completed: r.summary.Completed})
			}
			failures = append(failures, JobFailure{Job: job, Err: err})
		}
	}

	if len(failures) > 0 {
		return r.fail(&TreeFailure{Failures: failures, Total: len(files) + extra})
	}
	r.enter(stateDone)
	return r.summary, nil
}

// copyJob runs one file transfer and records its outcome.
func (r *run) copyJob(ctx context.Context, job Job) error {
	n, err := r.transfer(ctx, job, r.src, r.dst, r.req.Overwrite, r.pool)
	r.summary.BytesCopied += n
	if err != nil {
		r.logger.Debug("file failed", "source", job.Source, "bytes", n, "error", err)
		r.emit(event.Event{Type: event.FileFailed, Source: job.Source, Destination: job.Destination, Bytes: n, Error: err})
		return err
	}
	r.summary.FilesCopied++
	r.summary.Completed = append(r.summary.Completed, job)
	r.emit(event.Event{Type: event.FileCompleted, Source: job.Source, Destination: job.Destination, Bytes: n, Total: n})
	return nil
}

func (r *run) dstPath(dstRoot, rel string) string {
	return r.dst.Join(append([]string{dstRoot}, splitRel(rel)...)...)
}

func splitRel(rel string) []string {
	if rel == "" {
		return nil
	}
	return strings.Split(rel, "/")
}
