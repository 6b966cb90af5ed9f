package engine_test

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pkg/sftp"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"

	"github.com/bamsammich/ferry/internal/engine"
	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/transport"
	"github.com/bamsammich/ferry/internal/transport/agent"
	"github.com/bamsammich/ferry/internal/transport/proto"
)

var quietLogger = slog.New(slog.DiscardHandler)

func writeFile(t *testing.T, fsys billy.Filesystem, name string, data []byte) {
	t.Helper()
	require.NoError(t, util.WriteFile(fsys, name, data, 0o644))
}

func digest(t *testing.T, fsys billy.Filesystem, name string) [32]byte {
	t.Helper()
	data, err := util.ReadFile(fsys, name)
	require.NoError(t, err, "read %s", name)
	return blake3.Sum256(data)
}

// patterned returns n bytes that differ across chunk boundaries.
func patterned(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i/4096)
	}
	return b
}

// recorder collects events. The engine emits from the calling goroutine,
// the lock only guards reads made by the test afterwards.
type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) sink(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(typ event.Type) []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// writeRecorder wraps an endpoint and records the size of every Write made
// to the streams it opens.
type writeRecorder struct {
	transport.Endpoint
	mu     sync.Mutex
	writes map[string][]int
}

func newWriteRecorder(ep transport.Endpoint) *writeRecorder {
	return &writeRecorder{Endpoint: ep, writes: make(map[string][]int)}
}

//nolint:ireturn // test double
func (w *writeRecorder) OpenWrite(ctx context.Context, p string, mode transport.WriteMode) (io.WriteCloser, error) {
	wc, err := w.Endpoint.OpenWrite(ctx, p, mode)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.writes[p] = []int{}
	w.mu.Unlock()
	return &recordingWriter{WriteCloser: wc, rec: w, path: p}, nil
}

func (w *writeRecorder) sizes(p string) []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes[p]
}

type recordingWriter struct {
	io.WriteCloser
	rec  *writeRecorder
	path string
}

func (r *recordingWriter) Write(p []byte) (int, error) {
	r.rec.mu.Lock()
	r.rec.writes[r.path] = append(r.rec.writes[r.path], len(p))
	r.rec.mu.Unlock()
	return r.WriteCloser.Write(p)
}

// lockedEndpoint fails the first failures OpenWrite calls with a lock fault.
type lockedEndpoint struct {
	transport.Endpoint
	failures int
	calls    int
}

//nolint:ireturn // test double
func (l *lockedEndpoint) OpenWrite(ctx context.Context, p string, mode transport.WriteMode) (io.WriteCloser, error) {
	l.calls++
	if l.calls <= l.failures {
		return nil, fmt.Errorf("open %s: %w", p, transport.ErrLocked)
	}
	return l.Endpoint.OpenWrite(ctx, p, mode)
}

// brokenEndpoint loses its channel once after OpenWrite calls have
// succeeded.
type brokenEndpoint struct {
	transport.Endpoint
	after int
	calls int
}

//nolint:ireturn // test double
func (b *brokenEndpoint) OpenWrite(ctx context.Context, p string, mode transport.WriteMode) (io.WriteCloser, error) {
	b.calls++
	if b.calls > b.after {
		return nil, &proto.ChannelError{Op: "write", Err: io.ErrClosedPipe}
	}
	return b.Endpoint.OpenWrite(ctx, p, mode)
}

// failingOpen fails OpenWrite for one path with a non-lock error.
type failingOpen struct {
	transport.Endpoint
	path string
}

//nolint:ireturn // test double
func (f *failingOpen) OpenWrite(ctx context.Context, p string, mode transport.WriteMode) (io.WriteCloser, error) {
	if p == f.path {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrPermission}
	}
	return f.Endpoint.OpenWrite(ctx, p, mode)
}

func newLocal(fsys billy.Filesystem) *transport.Local {
	return transport.NewLocal(fsys, "/")
}

// agentEndpoint serves fsys through the channel over a net.Pipe. The
// agent's working directory is /home/ops.
func agentEndpoint(t *testing.T, fsys billy.Filesystem) *agent.Endpoint {
	t.Helper()
	require.NoError(t, fsys.MkdirAll("/home/ops", 0o755))
	ep, _ := serveAgent(t, transport.NewLocal(fsys, "/home/ops"))
	return ep
}

// serveAgent runs a handler for local on one end of a net.Pipe and returns
// the client endpoint together with the handler.
func serveAgent(t *testing.T, local transport.Endpoint) (*agent.Endpoint, *proto.Handler) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	h := proto.NewHandler(local, "/home/ops", quietLogger)
	go func() {
		_ = h.Serve(context.Background(), serverConn, serverConn)
		serverConn.Close()
	}()
	ep, err := agent.New(context.Background(), clientConn)
	require.NoError(t, err)
	t.Cleanup(func() { ep.Close() })
	return ep, h
}

type pipeConn struct {
	io.Reader
	io.WriteCloser
}

// sftpEndpoint connects to an in-memory SFTP server. sever drops the
// connection from the server side.
func sftpEndpoint(t *testing.T) (ep *transport.SFTP, sever func()) {
	t.Helper()
	clientRead, serverWrite := io.Pipe()
	serverRead, clientWrite := io.Pipe()
	server := sftp.NewRequestServer(pipeConn{serverRead, serverWrite}, sftp.InMemHandler())
	go server.Serve() //nolint:errcheck // returns when the pipe closes

	client, err := sftp.NewClientPipe(clientRead, clientWrite)
	require.NoError(t, err)
	ep, err = transport.NewSFTPFromClient(client)
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

// oversized reports every source file as extra bytes longer than it is.
type oversized struct {
	transport.Endpoint
	extra int64
}

//nolint:ireturn // test double
func (o *oversized) OpenRead(ctx context.Context, p string) (transport.ReadFile, error) {
	rf, err := o.Endpoint.OpenRead(ctx, p)
	if err != nil {
		return nil, err
	}
	return &sizedReader{ReadFile: rf, size: rf.Size() + o.extra}, nil
}

type sizedReader struct {
	transport.ReadFile
	size int64
}

func (s *sizedReader) Size() int64 { return s.size }

func newEngine(t *testing.T, local, remote transport.Endpoint, rec *recorder) *engine.Engine {
	t.Helper()
	cfg := engine.Config{Local: local, Remote: remote, Logger: quietLogger}
	if rec != nil {
		cfg.Events = rec.sink
	}
	e, err := engine.New(cfg)
	require.NoError(t, err)
	return e
}

// buildTree creates:
//
//	/src/root.txt
//	/src/a/one.bin
//	/src/a/deep/two.txt
//	/src/b/three.txt
func buildTree(t *testing.T, fsys billy.Filesystem) {
	t.Helper()
	writeFile(t, fsys, "/src/root.txt", []byte("root file content"))
	writeFile(t, fsys, "/src/a/one.bin", patterned(300_000))
	writeFile(t, fsys, "/src/a/deep/two.txt", []byte("two"))
	writeFile(t, fsys, "/src/b/three.txt", []byte("three"))
}

var treeFiles = []string{"root.txt", "a/one.bin", "a/deep/two.txt", "b/three.txt"}

// newMem returns an in-memory filesystem whose root already exists.
func newMem() billy.Filesystem {
	fsys := memfs.New()
	_ = fsys.MkdirAll("/tmp", 0o755)
	return fsys
}

// funcOpen consults fail before each OpenWrite.
type funcOpen struct {
	transport.Endpoint
	fail func() error
}

//nolint:ireturn // test double
func (f *funcOpen) OpenWrite(ctx context.Context, p string, mode transport.WriteMode) (io.WriteCloser, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.Endpoint.OpenWrite(ctx, p, mode)
}
