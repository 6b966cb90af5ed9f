package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"path"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/bamsammich/ferry/internal/filter"
	"github.com/bamsammich/ferry/internal/transport"
)

var (
	// ErrSymlinkSkipped marks a symbolic link left out of the plan.
	ErrSymlinkSkipped = errors.New("symbolic link skipped")
	// ErrUnsupportedEntry marks a device, socket or pipe left out of the plan.
	ErrUnsupportedEntry = errors.New("unsupported file type")
	// ErrPlanConsumed is yielded when a plan is ranged a second time.
	ErrPlanConsumed = errors.New("plan already consumed")
)

// PlanError reports an entry the planner could not enumerate or chose to
// leave out. The walk continues past it.
type PlanError struct {
	Err     error
	RelPath string
}

func (e *PlanError) Error() string {
	if e.RelPath == "" {
		return fmt.Sprintf("plan root: %v", e.Err)
	}
	return fmt.Sprintf("plan %s: %v", e.RelPath, e.Err)
}

func (e *PlanError) Unwrap() error { return e.Err }

// Plan walks a source tree top-down, breadth first. Every directory is
// yielded before anything beneath it.
type Plan struct {
	ep       transport.Endpoint
	filter   *filter.Chain
	root     string
	consumed atomic.Bool
}

// NewPlan resolves root on ep and returns a plan over it. root must be a
// directory. A nil chain includes every entry.
func NewPlan(ctx context.Context, ep transport.Endpoint, root string, chain *filter.Chain) (*Plan, error) {
	abs, err := ep.Resolve(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	entry, err := ep.Stat(ctx, abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}
	if !entry.IsDir {
		return nil, fmt.Errorf("plan %s: not a directory", abs)
	}
	return newPlan(ep, abs, chain), nil
}

func newPlan(ep transport.Endpoint, absRoot string, chain *filter.Chain) *Plan {
	return &Plan{ep: ep, root: absRoot, filter: chain}
}

// Root is the resolved absolute root.
func (p *Plan) Root() string { return p.root }

// Abs returns the absolute source path of a plan entry.
func (p *Plan) Abs(relPath string) string {
	if relPath == "" {
		return p.root
	}
	return p.ep.Join(append([]string{p.root}, splitRel(relPath)...)...)
}

// All yields the plan's entries. Failures arrive as *PlanError values
// alongside a zero entry, except context errors, which end the walk. The
// sequence can be ranged once.
func (p *Plan) All(ctx context.Context) iter.Seq2[PlanEntry, error] {
	return func(yield func(PlanEntry, error) bool) {
		if !p.consumed.CompareAndSwap(false, true) {
			yield(PlanEntry{}, ErrPlanConsumed)
			return
		}

		queue := []string{""}
		for len(queue) > 0 {
			dir := queue[0]
			queue = queue[1:]
			if err := ctx.Err(); err != nil {
				yield(PlanEntry{}, err)
				return
			}

			entries, err := p.ep.ReadDir(ctx, p.Abs(dir))
			if err != nil {
				if !yield(PlanEntry{}, &PlanError{RelPath: dir, Err: err}) {
					return
				}
				continue
			}
			slices.SortFunc(entries, func(a, b transport.FileEntry) int { return strings.Compare(a.Name, b.Name) })

			for _, e := range entries {
				rel := path.Join(dir, e.Name)
				entry, include, err := p.classify(rel, e)
				if !include {
					continue
				}
				if !yield(entry, err) {
					return
				}
				if err == nil && entry.Kind == KindDirectory {
					queue = append(queue, rel)
				}
			}
		}
	}
}

// classify maps one listed entry to a plan entry or a PlanError. include
// is false when the filter excludes the entry.
func (p *Plan) classify(rel string, e transport.FileEntry) (PlanEntry, bool, error) {
	switch {
	case e.IsSymlink:
		return PlanEntry{}, true, &PlanError{RelPath: rel, Err: ErrSymlinkSkipped}
	case e.IsDir:
		if !p.filter.Match(rel, true, 0) {
			return PlanEntry{}, false, nil
		}
		return PlanEntry{RelPath: rel, Kind: KindDirectory}, true, nil
	case e.Mode.IsRegular():
		if !p.filter.Match(rel, false, e.Size) {
			return PlanEntry{}, false, nil
		}
		return PlanEntry{RelPath: rel, Kind: KindFile, Size: e.Size}, true, nil
	default:
		return PlanEntry{}, true, &PlanError{RelPath: rel, Err: fmt.Errorf("%w: %s", ErrUnsupportedEntry, e.Mode.Type())}
	}
}
