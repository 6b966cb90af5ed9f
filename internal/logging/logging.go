// Package logging builds the slog loggers used by the CLI and the agent.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/bamsammich/ferry/internal/event"
)

// Level picks the stderr level for the given verbosity flags: debug when
// verbose, warn when quiet, info otherwise.
func Level(verbose, quiet bool) slog.Level {
	switch {
	case verbose:
		return slog.LevelDebug
	case quiet:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// ParseLevel maps "debug", "info", "warn" and "error" to a level. Anything
// else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a logger writing text to w at level. When file is non-nil a
// JSON handler at debug level receives every record as well.
func New(w io.Writer, level slog.Level, file io.Writer) *slog.Logger {
	var h slog.Handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	if file != nil {
		jsonHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
		h = NewMultiHandler(h, jsonHandler)
	}
	return slog.New(h)
}

// EventSink returns a sink that records transfer events on logger at debug
// level. Progress events are not logged.
func EventSink(logger *slog.Logger) event.Sink {
	return func(e event.Event) {
		if e.Type == event.FileProgress {
			return
		}
		attrs := []slog.Attr{slog.String("type", e.Type.String())}
		if e.Source != "" {
			attrs = append(attrs, slog.String("src", e.Source))
		}
		if e.Destination != "" {
			attrs = append(attrs, slog.String("dst", e.Destination))
		}
		switch e.Type {
		case event.PlanComplete:
			attrs = append(attrs, slog.Int64("files", e.Files), slog.Int64("bytes", e.Total))
		case event.FileStarted, event.FileCompleted:
			attrs = append(attrs, slog.Int64("size", e.Total))
		}
		if e.Error != nil {
			attrs = append(attrs, slog.String("error", e.Error.Error()))
		}
		logger.LogAttrs(context.Background(), slog.LevelDebug, "ferry.event", attrs...)
	}
}
