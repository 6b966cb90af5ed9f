package transport_test

import (
	"context"
	"io"
	"io/fs"
	"testing"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/ferry/internal/transport"
)

type pipeConn struct {
	io.Reader
	io.WriteCloser
}

// newMemSFTP starts an in-memory SFTP server and returns an endpoint
// connected to it.
func newMemSFTP(t *testing.T) *transport.SFTP {
	t.Helper()
	ep, _ := newSeverableSFTP(t)
	return ep
}

// newSeverableSFTP is newMemSFTP plus a func that drops the connection
// from the server side.
func newSeverableSFTP(t *testing.T) (*transport.SFTP, func()) {
	t.Helper()
	clientRead, serverWrite := io.Pipe()
	serverRead, clientWrite := io.Pipe()

	server := sftp.NewRequestServer(pipeConn{serverRead, serverWrite}, sftp.InMemHandler())
	go server.Serve() //nolint:errcheck // returns when the pipe closes

	client, err := sftp.NewClientPipe(clientRead, clientWrite)
	require.NoError(t, err)

	ep, err := transport.NewSFTPFromClient(client)
	require.NoError(t, err)
	t.Cleanup(func() {
		ep.Close()
		server.Close()
	})
	return ep, func() {
		serverRead.Close()
		serverWrite.Close()
	}
}

func TestSFTP_WriteReadRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ep := newMemSFTP(t)

	require.NoError(t, ep.MkdirAll(ctx, "/remote/dir"))

	w, err := ep.OpenWrite(ctx, "/remote/dir/a.txt", transport.WriteCreateNew)
	require.NoError(t, err)
	_, err = w.Write([]byte("over the wire"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	rf, err := ep.OpenRead(ctx, "/remote/dir/a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(13), rf.Size())
	data, err := io.ReadAll(rf)
	require.NoError(t, err)
	require.NoError(t, rf.Close())
	assert.Equal(t, "over the wire", string(data))

	_, err = ep.OpenWrite(ctx, "/remote/dir/a.txt", transport.WriteCreateNew)
	assert.ErrorIs(t, err, fs.ErrExist)
}

func TestSFTP_ResolveAndList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ep := newMemSFTP(t)

	require.NoError(t, ep.MkdirAll(ctx, "/remote/b"))
	require.NoError(t, ep.MkdirAll(ctx, "/remote/a"))

	got, err := ep.Resolve(ctx, "/remote/b/../a")
	require.NoError(t, err)
	assert.Equal(t, "/remote/a", got)

	_, err = ep.Resolve(ctx, "/remote/a/missing/file")
	require.ErrorIs(t, err, fs.ErrNotExist)
	var nf *transport.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "/remote/a", nf.Closest)

	entries, err := ep.ReadDir(ctx, "/remote")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, "/remote/a", entries[0].Path)
	assert.True(t, entries[0].IsDir)

	assert.Equal(t, "/remote/a/b.txt", ep.Join("/remote", "a", "b.txt"))
	assert.Equal(t, transport.ProtocolSFTP, ep.Protocol())
}

func TestSFTP_ConnectionLossIsChannelFault(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ep, sever := newSeverableSFTP(t)

	require.NoError(t, ep.MkdirAll(ctx, "/remote"))
	w, err := ep.OpenWrite(ctx, "/remote/a.txt", transport.WriteCreate)
	require.NoError(t, err)
	sever()

	_, err = w.Write([]byte("lost"))
	assert.ErrorIs(t, err, transport.ErrChannelFault)

	_, err = ep.Stat(ctx, "/remote/a.txt")
	assert.ErrorIs(t, err, transport.ErrChannelFault)
	_, err = ep.OpenWrite(ctx, "/remote/b.txt", transport.WriteCreateNew)
	assert.ErrorIs(t, err, transport.ErrChannelFault)
	err = ep.MkdirAll(ctx, "/remote/c")
	assert.ErrorIs(t, err, transport.ErrChannelFault)
}
