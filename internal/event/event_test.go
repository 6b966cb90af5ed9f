package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeString(t *testing.T) {
	tests := []struct {
		want string
		typ  Type
	}{
		{want: "PlanComplete", typ: PlanComplete},
		{want: "FileStarted", typ: FileStarted},
		{want: "FileProgress", typ: FileProgress},
		{want: "FileCompleted", typ: FileCompleted},
		{want: "FileFailed", typ: FileFailed},
		{want: "FileSkipped", typ: FileSkipped},
		{want: "DirCreated", typ: DirCreated},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestTypeStringUnknown(t *testing.T) {
	assert.Equal(t, "Unknown", Type(999).String())
	assert.Equal(t, "Unknown", Type(0).String())
	assert.Equal(t, "Unknown", Type(-1).String())
}

func TestEventZeroValue(t *testing.T) {
	var e Event
	assert.Equal(t, Type(0), e.Type)
	assert.True(t, e.Timestamp.IsZero())
	assert.Empty(t, e.Source)
	assert.Empty(t, e.Destination)
	assert.Zero(t, e.Bytes)
	assert.Zero(t, e.Total)
	require.NoError(t, e.Error)
}

func TestMulti(t *testing.T) {
	var a, b []Type
	sink := Multi(
		func(e Event) { a = append(a, e.Type) },
		nil,
		func(e Event) { b = append(b, e.Type) },
	)
	sink(Event{Type: FileStarted})
	sink(Event{Type: FileCompleted})

	assert.Equal(t, []Type{FileStarted, FileCompleted}, a)
	assert.Equal(t, a, b)
}

func TestToChannelDropsProgressWhenFull(t *testing.T) {
	ch := make(chan Event, 1)
	sink := ToChannel(ch)

	sink(Event{Type: FileProgress, Bytes: 1})
	sink(Event{Type: FileProgress, Bytes: 2}) // dropped, channel full

	got := <-ch
	assert.Equal(t, int64(1), got.Bytes)

	done := make(chan struct{})
	go func() {
		sink(Event{Type: FileCompleted})
		close(done)
	}()
	assert.Equal(t, FileCompleted, (<-ch).Type)
	<-done
}
