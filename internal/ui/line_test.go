package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/stats"
)

func newLine(out *bytes.Buffer, width int) *linePresenter {
	c := stats.NewCollector()
	c.SetTotals(10, 10240)
	return &linePresenter{w: out, stats: c, dstRoot: "/dst", width: width}
}

func runLine(t *testing.T, p *linePresenter, evs ...event.Event) {
	t.Helper()
	events := make(chan event.Event, len(evs))
	for _, ev := range evs {
		events <- ev
	}
	close(events)
	require.NoError(t, p.Run(events))
}

func TestLinePresenterFeed(t *testing.T) {
	var out bytes.Buffer
	p := newLine(&out, 120)
	runLine(t, p,
		event.Event{Type: event.FileCompleted, Destination: "/dst/some/dir/file.txt", Total: 1024},
		event.Event{Type: event.FileFailed, Destination: "/dst/bad.bin", Error: assert.AnError},
		event.Event{Type: event.FileSkipped, Source: "/src/link"},
	)

	s := out.String()
	assert.Contains(t, s, "✓")
	assert.Contains(t, s, "dir/")
	assert.Contains(t, s, "file.txt")
	assert.Contains(t, s, "1.0 KiB")
	assert.Contains(t, s, "✗")
	assert.Contains(t, s, assert.AnError.Error())
	assert.Contains(t, s, "skipped")
	assert.Equal(t, 3, strings.Count(s, "\n"), "one feed line per file")
}

func TestLinePresenterClearsStatusOnExit(t *testing.T) {
	var out bytes.Buffer
	p := newLine(&out, 120)
	runLine(t, p, event.Event{Type: event.FileCompleted, Destination: "/dst/a.txt", Total: 3})

	assert.True(t, strings.HasSuffix(out.String(), "\r\033[K"))
	assert.False(t, p.drawn)
}

func TestLinePresenterNoClearWhenNothingDrawn(t *testing.T) {
	var out bytes.Buffer
	p := newLine(&out, 120)
	p.clearLine()
	assert.Empty(t, out.String())
}

func TestLinePresenterStatusFitsWidth(t *testing.T) {
	for _, width := range []int{20, 40, 60, 200} {
		var out bytes.Buffer
		p := newLine(&out, width)
		p.stats.AddBytesCopied(5120)
		p.stats.AddFilesCopied(5)

		line := p.statusText()
		assert.Less(t, lipgloss.Width(line), width, "width %d: %q", width, line)
		assert.True(t, strings.HasPrefix(line, " 50%"), line)
	}
}

func TestLinePresenterStatusWideShowsEverything(t *testing.T) {
	var out bytes.Buffer
	p := newLine(&out, 200)
	line := p.statusText()
	assert.Contains(t, line, "0 / 10 files")
	assert.Contains(t, line, "eta --")
}

func TestLinePresenterStyledPath(t *testing.T) {
	var out bytes.Buffer
	p := newLine(&out, 120)
	assert.Equal(t, "a.txt", p.styledPath("/dst/a.txt"))
	assert.True(t, strings.HasSuffix(p.styledPath("/dst/x/y/b.txt"), "b.txt"))
	assert.Contains(t, p.styledPath("/dst/x/y/b.txt"), "x/y/")
}

func TestLinePresenterSummary(t *testing.T) {
	var out bytes.Buffer
	p := newLine(&out, 80)
	p.stats.AddFilesCopied(3)
	p.stats.AddDirsCreated(2)
	assert.Contains(t, p.Summary(), "files 3")
	assert.Contains(t, p.Summary(), "dirs 2")
	assert.Contains(t, p.Summary(), "errors 0")
}
