// Package ui renders transfer progress for the CLI.
package ui

import (
	"io"

	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/stats"
)

// Presenter consumes events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan event.Event) error
	// Summary returns the final summary line.
	Summary() string
}

// Config configures a Presenter.
type Config struct {
	Writer    io.Writer // per-file lines
	ErrWriter io.Writer // progress, the TTY status line
	Stats     *stats.Collector
	DstRoot   string // stripped from displayed paths
	Width     int    // terminal columns; 0 means 80
	IsTTY     bool
	Quiet     bool
}

// NewPresenter creates the appropriate presenter based on configuration.
// Presenters only read the collector; the engine's sink feeds it.
//
//nolint:ireturn // factory function returns interface by design
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return &quietPresenter{stats: cfg.Stats}
	}
	if !cfg.IsTTY {
		return &plainPresenter{
			w:       cfg.Writer,
			errW:    cfg.ErrWriter,
			stats:   cfg.Stats,
			dstRoot: cfg.DstRoot,
		}
	}
	width := cfg.Width
	if width <= 0 {
		width = defaultWidth
	}
	return &linePresenter{
		w:       cfg.ErrWriter,
		stats:   cfg.Stats,
		dstRoot: cfg.DstRoot,
		width:   width,
	}
}
