package ui

import (
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/stats"
)

const (
	sparklineWidth   = 12
	progressBarWidth = 16
	lineMinInterval  = 50 * time.Millisecond
)

// linePresenter prints a feed line per finished file and keeps a single
// status line at the bottom of the terminal, redrawn in place.
type linePresenter struct {
	w       io.Writer
	stats   *stats.Collector
	dstRoot string
	width   int

	drawn    bool
	lastDraw time.Time
}

func (p *linePresenter) Run(events <-chan event.Event) error {
	// Fire the first tick quickly to seed the speed samples, then every second.
	secTicker := time.NewTicker(250 * time.Millisecond)
	defer secTicker.Stop()
	firstTickDone := false

	// Redraw while a large file is in flight and no events arrive.
	redrawTicker := time.NewTicker(100 * time.Millisecond)
	defer redrawTicker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				p.clearLine()
				return nil
			}
			p.handleEvent(ev)
		case <-redrawTicker.C:
			p.drawStatus()
		case <-secTicker.C:
			p.stats.Tick()
			if !firstTickDone {
				firstTickDone = true
				secTicker.Reset(time.Second)
			}
		}
	}
}

func (p *linePresenter) handleEvent(ev event.Event) {
	switch ev.Type {
	case event.FileCompleted:
		p.feed(styleIconDone.Render("✓"), ev, p.sizeAndSpeed(ev))
	case event.FileFailed:
		msg := "error"
		if ev.Error != nil {
			msg = ev.Error.Error()
		}
		p.feed(styleIconFailed.Render("✗"), ev, styleError.Render(msg))
	case event.FileSkipped:
		p.feed(styleIconSkipped.Render("–"), ev, styleFileSize.Render("skipped"))
	default:
		if time.Since(p.lastDraw) >= lineMinInterval {
			p.drawStatus()
		}
	}
}

func (p *linePresenter) sizeAndSpeed(ev event.Event) string {
	size := styleFileSize.Render(fmt.Sprintf("%10s", FormatBytes(ev.Total)))
	if speed := p.stats.RollingSpeed(5); speed > 0 {
		return size + "  " + styleFileSpeed.Render(FormatRate(speed))
	}
	return size
}

// feed prints one finished-file line above the status line.
func (p *linePresenter) feed(icon string, ev event.Event, detail string) {
	p.clearLine()
	fmt.Fprintf(p.w, "%s  %s  %s\n", icon, p.styledPath(displayPath(ev)), detail)
	p.drawStatus()
}

// statusText renders the unstyled status line, dropping the least useful
// fields until it fits the terminal.
func (p *linePresenter) statusText() string {
	snap := p.stats.Snapshot()
	var pct float64
	if snap.BytesTotal > 0 {
		pct = float64(snap.BytesCopied) / float64(snap.BytesTotal)
	}

	fields := []string{
		fmt.Sprintf("%3.0f%%", pct*100),
		ProgressBar(pct, progressBarWidth),
		FormatBytes(snap.BytesCopied) + " / " + FormatBytes(snap.BytesTotal),
		FormatCount(snap.FilesCopied) + " / " + FormatCount(snap.FilesTotal) + " files",
		FormatRate(p.stats.RollingSpeed(10)),
		"eta " + FormatETA(p.stats.ETA()),
		Sparkline(p.stats.SparklineData(sparklineWidth), sparklineWidth),
	}
	for len(fields) > 1 {
		line := strings.Join(fields, "  ")
		if lipgloss.Width(line) < p.width {
			return line
		}
		fields = fields[:len(fields)-1]
	}
	return truncPath(fields[0], p.width-1)
}

func (p *linePresenter) drawStatus() {
	p.clearLine()
	fmt.Fprint(p.w, styleStatus.Render(p.statusText()))
	p.drawn = true
	p.lastDraw = time.Now()
}

func (p *linePresenter) clearLine() {
	if !p.drawn {
		return
	}
	fmt.Fprint(p.w, "\r\033[K")
	p.drawn = false
}

// styledPath dims the directory portion so the file name stands out.
func (p *linePresenter) styledPath(full string) string {
	rel := truncPath(StripRoot(p.dstRoot, full), max(p.width/2, 20))
	rel = strings.ReplaceAll(rel, `\`, "/")
	dir, base := path.Split(rel)
	if dir == "" {
		return base
	}
	return styleFileDir.Render(dir) + base
}

func (p *linePresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}
