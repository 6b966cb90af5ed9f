package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	PlanComplete Type = iota + 1
	FileStarted
	FileProgress
	FileCompleted
	FileFailed
	FileSkipped
	DirCreated
)

var typeNames = [...]string{
	PlanComplete:  "PlanComplete",
	FileStarted:   "FileStarted",
	FileProgress:  "FileProgress",
	FileCompleted: "FileCompleted",
	FileFailed:    "FileFailed",
	FileSkipped:   "FileSkipped",
	DirCreated:    "DirCreated",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the engine.
type Event struct {
	Timestamp   time.Time
	Error       error
	Source      string // absolute source path
	Destination string // absolute destination path
	Type        Type
	Bytes       int64 // bytes transferred so far for this file (FileProgress, FileCompleted)
	Total       int64 // file length, or total bytes planned (PlanComplete)
	Files       int64 // files planned (PlanComplete)
}

// Sink receives events synchronously on the engine's goroutine. A sink
// must not block for long; it paces the transfer.
type Sink func(Event)

// Discard drops every event.
func Discard(Event) {}

// Multi fans each event out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	return func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s(e)
			}
		}
	}
}

// ToChannel returns a sink that forwards events to ch. Progress events are
// dropped rather than blocking when ch is full; all other events block.
func ToChannel(ch chan<- Event) Sink {
	return func(e Event) {
		if e.Type == FileProgress {
			select {
			case ch <- e:
			default:
			}
			return
		}
		ch <- e
	}
}
