package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/ferry/internal/event"
)

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	const goroutines = 100
	const opsPerGoroutine = 1000

	var wg sync.WaitGroup
	for range goroutines {
		wg.Go(func() {
			for range opsPerGoroutine {
				c.AddFilesCopied(1)
				c.AddFilesFailed(1)
				c.AddFilesSkipped(1)
				c.AddBytesCopied(256)
				c.AddDirsCreated(1)
			}
		})
	}
	wg.Wait()

	s := c.Snapshot()
	expected := int64(goroutines * opsPerGoroutine)
	assert.Equal(t, expected, s.FilesCopied)
	assert.Equal(t, expected, s.FilesFailed)
	assert.Equal(t, expected, s.FilesSkipped)
	assert.Equal(t, expected*256, s.BytesCopied)
	assert.Equal(t, expected, s.DirsCreated)
}

func TestSnapshotString(t *testing.T) {
	s := Snapshot{
		FilesCopied:  8,
		FilesFailed:  1,
		FilesSkipped: 1,
		BytesCopied:  4096,
		DirsCreated:  3,
	}
	expected := "copied=8 failed=1 skipped=1 bytes=4096 dirs=3"
	assert.Equal(t, expected, s.String())
}

func TestObserve(t *testing.T) {
	c := NewCollector()
	c.Observe(event.Event{Type: event.PlanComplete, Files: 2, Total: 300})
	c.Observe(event.Event{Type: event.DirCreated})

	c.Observe(event.Event{Type: event.FileStarted, Total: 200})
	c.Observe(event.Event{Type: event.FileProgress, Bytes: 64})
	c.Observe(event.Event{Type: event.FileProgress, Bytes: 128})
	assert.Equal(t, int64(128), c.Snapshot().BytesCopied)
	c.Observe(event.Event{Type: event.FileCompleted, Bytes: 200})

	c.Observe(event.Event{Type: event.FileStarted, Total: 100})
	c.Observe(event.Event{Type: event.FileProgress, Bytes: 50})
	c.Observe(event.Event{Type: event.FileFailed})
	c.Observe(event.Event{Type: event.FileSkipped})

	s := c.Snapshot()
	assert.Equal(t, int64(2), s.FilesTotal)
	assert.Equal(t, int64(300), s.BytesTotal)
	assert.Equal(t, int64(1), s.FilesCopied)
	assert.Equal(t, int64(1), s.FilesFailed)
	assert.Equal(t, int64(1), s.FilesSkipped)
	assert.Equal(t, int64(1), s.DirsCreated)
	assert.Equal(t, int64(250), s.BytesCopied)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
		{1073741824, "1.0 GiB"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			require.Equal(t, tt.expected, FormatBytes(tt.input))
		})
	}
}

func TestNewCollector(t *testing.T) {
	c := NewCollector()
	assert.False(t, c.startTime.IsZero())
	assert.InDelta(t, 0, c.Elapsed().Seconds(), 1)
}

func TestSetTotals(t *testing.T) {
	c := NewCollector()
	c.SetTotals(100, 1024*1024)
	s := c.Snapshot()
	assert.Equal(t, int64(100), s.FilesTotal)
	assert.Equal(t, int64(1024*1024), s.BytesTotal)
}

func TestTickAndRollingSpeed(t *testing.T) {
	c := NewCollector()

	// Simulate 5 seconds of 1000 bytes/sec.
	for range 5 {
		c.AddBytesCopied(1000)
		c.Tick()
	}

	speed := c.RollingSpeed(5)
	assert.InDelta(t, 1000.0, speed, 0.01)
}

func TestRollingSpeedPartialWindow(t *testing.T) {
	c := NewCollector()

	// Only 2 samples.
	c.AddBytesCopied(500)
	c.Tick()
	c.AddBytesCopied(500)
	c.Tick()

	// Ask for 10 but only have 2.
	speed := c.RollingSpeed(10)
	assert.InDelta(t, 500.0, speed, 0.01)
}

func TestRollingSpeedNoSamples(t *testing.T) {
	c := NewCollector()
	assert.Equal(t, 0.0, c.RollingSpeed(5))
}

func TestRingWraparound(t *testing.T) {
	c := NewCollector()

	// Fill past the ring buffer with a constant rate.
	for range ringSize + 10 {
		c.AddBytesCopied(10)
		c.Tick()
	}

	assert.InDelta(t, 10.0, c.RollingSpeed(ringSize*2), 0.01)
}

func TestSparklineData(t *testing.T) {
	c := NewCollector()
	assert.Nil(t, c.SparklineData(5))

	for i := range 3 {
		c.AddBytesCopied(int64(i+1) * 100)
		c.Tick()
	}
	assert.Equal(t, []float64{100, 200, 300}, c.SparklineData(5))
	assert.Equal(t, []float64{200, 300}, c.SparklineData(2))
}

func TestSparklineDataAfterWraparound(t *testing.T) {
	c := NewCollector()
	for i := range ringSize + 5 {
		c.AddBytesCopied(int64(i))
		c.Tick()
	}
	got := c.SparklineData(3)
	require.Len(t, got, 3)
	assert.Equal(t, []float64{ringSize + 2, ringSize + 3, ringSize + 4}, got)
}

func TestETA(t *testing.T) {
	c := NewCollector()
	c.SetTotals(100, 10000)

	// Simulate copying 5000 bytes at 1000/sec.
	for range 5 {
		c.AddBytesCopied(1000)
		c.Tick()
	}

	eta := c.ETA()
	assert.InDelta(t, 5.0, eta.Seconds(), 1.0)
}

func TestETANoSpeed(t *testing.T) {
	c := NewCollector()
	c.SetTotals(100, 10000)
	assert.Equal(t, time.Duration(0), c.ETA())
}

func TestETAComplete(t *testing.T) {
	c := NewCollector()
	c.SetTotals(1, 1000)
	c.AddBytesCopied(1000)
	c.Tick()
	assert.Equal(t, time.Duration(0), c.ETA())
}

func TestSnapshotIncludesElapsed(t *testing.T) {
	c := NewCollector()
	time.Sleep(10 * time.Millisecond)
	s := c.Snapshot()
	assert.Greater(t, s.Elapsed, time.Duration(0))
}
