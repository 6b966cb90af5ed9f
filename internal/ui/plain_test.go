package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/stats"
)

func runPlain(t *testing.T, dstRoot string, evs ...event.Event) (string, *plainPresenter) {
	t.Helper()
	var out, errOut bytes.Buffer
	p := &plainPresenter{w: &out, errW: &errOut, stats: stats.NewCollector(), dstRoot: dstRoot}

	events := make(chan event.Event, len(evs))
	for _, ev := range evs {
		events <- ev
	}
	close(events)
	require.NoError(t, p.Run(events))
	return out.String(), p
}

func TestPlainPresenterFileCompleted(t *testing.T) {
	out, _ := runPlain(t, "/dst",
		event.Event{Type: event.FileCompleted, Source: "/src/dir/file.txt", Destination: "/dst/dir/file.txt", Total: 1024},
		event.Event{Type: event.FileCompleted, Source: "/src/big.bin", Destination: "/dst/big.bin", Total: 100 << 20},
	)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "dir/file.txt  1.0 KiB"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "big.bin  100.0 MiB"), lines[1])
}

func TestPlainPresenterFileFailed(t *testing.T) {
	out, _ := runPlain(t, "/dst",
		event.Event{Type: event.FileFailed, Destination: "/dst/fail.txt", Error: assert.AnError},
	)
	assert.Contains(t, out, "fail.txt  failed: "+assert.AnError.Error())
}

func TestPlainPresenterFileSkippedUsesSource(t *testing.T) {
	out, _ := runPlain(t, "/dst",
		event.Event{Type: event.FileSkipped, Source: "/src/link"},
	)
	assert.Equal(t, "/src/link  skipped\n", out)
}

func TestPlainPresenterDirCreated(t *testing.T) {
	out, _ := runPlain(t, "/dst",
		event.Event{Type: event.DirCreated, Destination: "/dst/a/deep"},
	)
	assert.Equal(t, "a/deep/\n", out)
}

func TestPlainPresenterIgnoresProgress(t *testing.T) {
	out, _ := runPlain(t, "/dst",
		event.Event{Type: event.PlanComplete, Files: 2, Total: 10},
		event.Event{Type: event.FileStarted, Destination: "/dst/a", Total: 10},
		event.Event{Type: event.FileProgress, Destination: "/dst/a", Bytes: 5, Total: 10},
	)
	assert.Empty(t, out)
}

func TestPlainPresenterProgressLine(t *testing.T) {
	var errOut bytes.Buffer
	c := stats.NewCollector()
	c.SetTotals(4, 2048)
	c.AddBytesCopied(1024)
	c.AddFilesCopied(2)

	p := &plainPresenter{errW: &errOut, stats: c}
	p.printProgress()
	assert.Contains(t, errOut.String(), "progress: 50% 1.0 KiB/2.0 KiB 2/4 files")
}

func TestPlainPresenterSummary(t *testing.T) {
	c := stats.NewCollector()
	c.AddFilesCopied(100)
	c.AddBytesCopied(1024 * 1024)
	c.AddFilesFailed(1)

	p := &plainPresenter{stats: c}
	s := p.Summary()
	assert.Contains(t, s, "done ✗")
	assert.Contains(t, s, "files 100")
	assert.Contains(t, s, "size 1.0 MiB")
	assert.Contains(t, s, "errors 1")
}
