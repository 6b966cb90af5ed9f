package proto

import (
	"os"
	"time"

	"github.com/bamsammich/ferry/internal/transport"
)

// ToFileEntry converts a wire FileEntryMsg to a transport.FileEntry.
func ToFileEntry(m FileEntryMsg) transport.FileEntry {
	return transport.FileEntry{
		Path:      m.Path,
		Name:      m.Name,
		Size:      m.Size,
		Mode:      os.FileMode(m.Mode),
		ModTime:   time.Unix(0, m.ModTime),
		IsDir:     m.IsDir,
		IsSymlink: m.IsSymlink,
	}
}

// FromFileEntry converts a transport.FileEntry to a wire FileEntryMsg.
func FromFileEntry(e transport.FileEntry) FileEntryMsg {
	return FileEntryMsg{
		Path:      e.Path,
		Name:      e.Name,
		Size:      e.Size,
		Mode:      uint32(e.Mode),
		ModTime:   e.ModTime.UnixNano(),
		IsDir:     e.IsDir,
		IsSymlink: e.IsSymlink,
	}
}

// ToFileEntries converts a wire listing.
func ToFileEntries(msgs []FileEntryMsg) []transport.FileEntry {
	out := make([]transport.FileEntry, len(msgs))
	for i, m := range msgs {
		out[i] = ToFileEntry(m)
	}
	return out
}

// FromFileEntries converts a listing for the wire.
func FromFileEntries(entries []transport.FileEntry) []FileEntryMsg {
	out := make([]FileEntryMsg, len(entries))
	for i, e := range entries {
		out[i] = FromFileEntry(e)
	}
	return out
}
