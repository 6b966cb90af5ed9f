package transport_test

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/ferry/internal/transport"
)

func setupMemTree(t *testing.T) *transport.Local {
	t.Helper()
	fsys := memfs.New()
	require.NoError(t, fsys.MkdirAll("/data/sub/deep", 0o755))
	require.NoError(t, util.WriteFile(fsys, "/data/file.txt", []byte("hello"), 0o644))
	require.NoError(t, util.WriteFile(fsys, "/data/sub/nested.txt", []byte("nested content"), 0o644))
	require.NoError(t, util.WriteFile(fsys, "/data/.hidden", []byte("h"), 0o644))
	return transport.NewLocal(fsys, "/data")
}

func TestLocal_Resolve(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ep := setupMemTree(t)

	got, err := ep.Resolve(ctx, "sub/../file.txt")
	require.NoError(t, err)
	assert.Equal(t, "/data/file.txt", got)

	got, err = ep.Resolve(ctx, "/data/sub/")
	require.NoError(t, err)
	assert.Equal(t, "/data/sub", got)
}

func TestLocal_ResolveMissingReportsClosest(t *testing.T) {
	t.Parallel()
	ep := setupMemTree(t)

	got, err := ep.Resolve(context.Background(), "sub/missing/deeper/file")
	require.Error(t, err)
	assert.Equal(t, "/data/sub/missing/deeper/file", got)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	var nf *transport.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "/data/sub", nf.Closest)
	assert.Contains(t, nf.Error(), "/data/sub")
}

func TestLocal_StatAndReadDir(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ep := setupMemTree(t)

	entry, err := ep.Stat(ctx, "/data/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "file.txt", entry.Name)
	assert.Equal(t, int64(5), entry.Size)
	assert.False(t, entry.IsDir)

	entries, err := ep.ReadDir(ctx, "/data")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{".hidden", "file.txt", "sub"}, names)
	assert.Equal(t, "/data/sub", entries[2].Path)
	assert.True(t, entries[2].IsDir)

	_, err = ep.Stat(ctx, "/data/nope")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLocal_ReadWrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ep := setupMemTree(t)

	rf, err := ep.OpenRead(ctx, "/data/sub/nested.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(14), rf.Size())
	data, err := io.ReadAll(rf)
	require.NoError(t, err)
	require.NoError(t, rf.Close())
	assert.Equal(t, "nested content", string(data))

	w, err := ep.OpenWrite(ctx, "/data/out.txt", transport.WriteCreateNew)
	require.NoError(t, err)
	_, err = w.Write([]byte("first"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = ep.OpenWrite(ctx, "/data/out.txt", transport.WriteCreateNew)
	assert.ErrorIs(t, err, fs.ErrExist)

	w, err = ep.OpenWrite(ctx, "/data/out.txt", transport.WriteAppend)
	require.NoError(t, err)
	_, err = w.Write([]byte("+more"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	rf, err = ep.OpenRead(ctx, "/data/out.txt")
	require.NoError(t, err)
	data, err = io.ReadAll(rf)
	require.NoError(t, err)
	require.NoError(t, rf.Close())
	assert.Equal(t, "first+more", string(data))

	w, err = ep.OpenWrite(ctx, "/data/out.txt", transport.WriteCreate)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	entry, err := ep.Stat(ctx, "/data/out.txt")
	require.NoError(t, err)
	assert.Zero(t, entry.Size)
}

func TestLocal_OpenReadDirectory(t *testing.T) {
	t.Parallel()
	ep := setupMemTree(t)

	_, err := ep.OpenRead(context.Background(), "/data/sub")
	assert.Error(t, err)
}

func TestLocal_OSSymlinkIsLstat(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "target"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink("target", filepath.Join(root, "link")))

	ep, err := transport.NewOSLocal()
	require.NoError(t, err)

	entry, err := ep.Stat(context.Background(), filepath.Join(root, "link"))
	require.NoError(t, err)
	assert.True(t, entry.IsSymlink)
	assert.False(t, entry.IsDir)
}

func TestLocal_Join(t *testing.T) {
	t.Parallel()
	ep := transport.NewLocal(memfs.New(), "/")
	elems := []string{"/a", "b/c", "d"}
	assert.Equal(t, filepath.Join("/a", "b", "c", "d"), ep.Join(elems...))
	assert.Equal(t, []string{"/a", "b/c", "d"}, elems)
}

func TestIsLocked(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", transport.ErrLocked, true},
		{"wrapped sentinel", errors.Join(errors.New("open"), transport.ErrLocked), true},
		{"busy errno", &fs.PathError{Op: "open", Path: "/x", Err: syscall.EBUSY}, true},
		{"not exist", fs.ErrNotExist, false},
		{"permission", &fs.PathError{Op: "open", Path: "/x", Err: syscall.EACCES}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, transport.IsLocked(tt.err))
		})
	}
}

func TestWriteModeFlags(t *testing.T) {
	t.Parallel()
	flags, err := transport.WriteCreateNew.Flags()
	require.NoError(t, err)
	assert.NotZero(t, flags&os.O_EXCL)

	flags, err = transport.WriteCreate.Flags()
	require.NoError(t, err)
	assert.NotZero(t, flags&os.O_TRUNC)

	_, err = transport.WriteMode(0).Flags()
	assert.Error(t, err)
}
