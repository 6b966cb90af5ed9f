package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// Compile-time interface check.
var _ Endpoint = (*Local)(nil)

// Local is an Endpoint over a billy filesystem addressed with absolute,
// OS-native paths.
type Local struct {
	fs  billy.Filesystem
	cwd string
}

// NewLocal creates a local endpoint over fsys. Relative paths given to
// Resolve are interpreted against cwd.
func NewLocal(fsys billy.Filesystem, cwd string) *Local {
	return &Local{fs: fsys, cwd: filepath.Clean(cwd)}
}

// NewOSLocal creates a local endpoint over the host filesystem, resolving
// relative paths against the process working directory.
func NewOSLocal() (*Local, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return NewLocal(osfs.New("/"), cwd), nil
}

func (l *Local) Resolve(_ context.Context, p string) (string, error) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(l.cwd, p)
	}
	p = filepath.Clean(p)

	_, err := l.fs.Lstat(p)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return p, fmt.Errorf("resolve %s: %w", p, err)
	}
	return p, &NotFoundError{
		Path:    p,
		Closest: closestAncestor(p, filepath.Dir, l.exists),
	}
}

func (l *Local) exists(p string) bool {
	_, err := l.fs.Lstat(p)
	return err == nil
}

func (l *Local) Stat(_ context.Context, p string) (FileEntry, error) {
	info, err := l.fs.Lstat(p)
	if err != nil {
		return FileEntry{}, fmt.Errorf("stat %s: %w", p, err)
	}
	return entryFromInfo(p, info), nil
}

func (l *Local) ReadDir(_ context.Context, p string) ([]FileEntry, error) {
	infos, err := l.fs.ReadDir(p)
	if err != nil {
		return nil, fmt.Errorf("readdir %s: %w", p, err)
	}
	entries := make([]FileEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, entryFromInfo(filepath.Join(p, info.Name()), info))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (l *Local) MkdirAll(_ context.Context, p string) error {
	if err := l.fs.MkdirAll(p, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", p, err)
	}
	return nil
}

//nolint:ireturn // ReadFile is the endpoint contract
func (l *Local) OpenRead(_ context.Context, p string) (ReadFile, error) {
	info, err := l.fs.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open %s: is a directory", p)
	}
	f, err := l.fs.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	return &localFile{File: f, size: info.Size()}, nil
}

//nolint:ireturn // io.WriteCloser is the endpoint contract
func (l *Local) OpenWrite(_ context.Context, p string, mode WriteMode) (io.WriteCloser, error) {
	flags, err := mode.Flags()
	if err != nil {
		return nil, err
	}
	f, err := l.fs.OpenFile(p, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s for write: %w", p, err)
	}
	return f, nil
}

func (l *Local) Join(elem ...string) string {
	native := make([]string, len(elem))
	for i, e := range elem {
		native[i] = filepath.FromSlash(e)
	}
	return filepath.Join(native...)
}

func (*Local) Protocol() Protocol { return ProtocolLocal }

func (*Local) Close() error { return nil }

type localFile struct {
	billy.File
	size int64
}

func (f *localFile) Size() int64 { return f.size }

func entryFromInfo(p string, info os.FileInfo) FileEntry {
	mode := info.Mode()
	return FileEntry{
		Path:      p,
		Name:      info.Name(),
		Size:      info.Size(),
		Mode:      mode,
		ModTime:   info.ModTime(),
		IsDir:     mode.IsDir(),
		IsSymlink: mode&os.ModeSymlink != 0,
	}
}
