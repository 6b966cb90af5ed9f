package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"path"
	"sort"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Compile-time interface check.
var _ Endpoint = (*SFTP)(nil)

// SFTP status codes the client library does not export.
const (
	sshFxNoConnection   = 6
	sshFxConnectionLost = 7
	// Used by v6 servers for byte-range and sharing-mode conflicts.
	sshFxLockConflict = 17
)

// SFTP is an Endpoint over a remote filesystem reached with the SFTP
// subsystem. Paths use forward slashes.
type SFTP struct {
	client *sftp.Client
	ssh    *ssh.Client // nil when the client was supplied directly
	cwd    string
}

// NewSFTP opens an SFTP session on sshClient. Closing the endpoint closes
// the SSH connection as well.
func NewSFTP(sshClient *ssh.Client) (*SFTP, error) {
	client, err := sftp.NewClient(sshClient)
	if err != nil {
		return nil, fmt.Errorf("sftp client: %w", err)
	}
	ep, err := NewSFTPFromClient(client)
	if err != nil {
		client.Close()
		return nil, err
	}
	ep.ssh = sshClient
	return ep, nil
}

// NewSFTPFromClient wraps an established SFTP client. Relative paths are
// resolved against the server's working directory.
func NewSFTPFromClient(client *sftp.Client) (*SFTP, error) {
	cwd, err := client.Getwd()
	if err != nil {
		return nil, fmt.Errorf("sftp getwd: %w", err)
	}
	return &SFTP{client: client, cwd: cwd}, nil
}

func (e *SFTP) Resolve(_ context.Context, p string) (string, error) {
	if !path.IsAbs(p) {
		p = path.Join(e.cwd, p)
	}
	p = path.Clean(p)

	_, err := e.client.Lstat(p)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return p, fmt.Errorf("sftp resolve %s: %w", p, classifySFTP(err))
	}
	return p, &NotFoundError{
		Path:    p,
		Closest: closestAncestor(p, path.Dir, e.exists),
	}
}

func (e *SFTP) exists(p string) bool {
	_, err := e.client.Lstat(p)
	return err == nil
}

func (e *SFTP) Stat(_ context.Context, p string) (FileEntry, error) {
	info, err := e.client.Lstat(p)
	if err != nil {
		return FileEntry{}, fmt.Errorf("sftp stat %s: %w", p, classifySFTP(err))
	}
	return entryFromInfo(p, info), nil
}

func (e *SFTP) ReadDir(_ context.Context, p string) ([]FileEntry, error) {
	infos, err := e.client.ReadDir(p)
	if err != nil {
		return nil, fmt.Errorf("sftp readdir %s: %w", p, classifySFTP(err))
	}
	entries := make([]FileEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, entryFromInfo(path.Join(p, info.Name()), info))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (e *SFTP) MkdirAll(_ context.Context, p string) error {
	if err := e.client.MkdirAll(p); err != nil {
		return fmt.Errorf("sftp mkdir %s: %w", p, classifySFTP(err))
	}
	return nil
}

//nolint:ireturn // ReadFile is the endpoint contract
func (e *SFTP) OpenRead(_ context.Context, p string) (ReadFile, error) {
	info, err := e.client.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("sftp open %s: %w", p, classifySFTP(err))
	}
	if info.IsDir() {
		return nil, fmt.Errorf("sftp open %s: is a directory", p)
	}
	f, err := e.client.Open(p)
	if err != nil {
		return nil, fmt.Errorf("sftp open %s: %w", p, classifySFTP(err))
	}
	return &sftpFile{File: f, size: info.Size()}, nil
}

//nolint:ireturn // io.WriteCloser is the endpoint contract
func (e *SFTP) OpenWrite(_ context.Context, p string, mode WriteMode) (io.WriteCloser, error) {
	flags, err := mode.Flags()
	if err != nil {
		return nil, err
	}
	// Not every server honours O_EXCL, so check first.
	if mode == WriteCreateNew {
		switch _, err := e.client.Lstat(p); {
		case err == nil:
			return nil, fmt.Errorf("sftp open %s for write: %w", p, fs.ErrExist)
		case connLost(err):
			return nil, fmt.Errorf("sftp open %s for write: %w", p, classifySFTP(err))
		}
	}
	f, err := e.client.OpenFile(p, flags)
	if err != nil {
		if mode == WriteCreateNew && e.exists(p) {
			return nil, fmt.Errorf("sftp open %s for write: %w", p, fs.ErrExist)
		}
		return nil, fmt.Errorf("sftp open %s for write: %w", p, classifySFTP(err))
	}
	return &sftpWriter{File: f}, nil
}

func (*SFTP) Join(elem ...string) string { return path.Join(elem...) }

func (*SFTP) Protocol() Protocol { return ProtocolSFTP }

func (e *SFTP) Close() error {
	err := e.client.Close()
	if e.ssh != nil {
		if sshErr := e.ssh.Close(); sshErr != nil && err == nil {
			err = sshErr
		}
	}
	return err
}

type sftpFile struct {
	*sftp.File
	size int64
}

func (f *sftpFile) Size() int64 { return f.size }

func (f *sftpFile) Read(p []byte) (int, error) {
	n, err := f.File.Read(p)
	return n, classifyStream(err)
}

func (f *sftpFile) Close() error { return classifyStream(f.File.Close()) }

type sftpWriter struct {
	*sftp.File
}

func (w *sftpWriter) Write(p []byte) (int, error) {
	n, err := w.File.Write(p)
	return n, classifyStream(err)
}

func (w *sftpWriter) Close() error { return classifyStream(w.File.Close()) }

// classifySFTP maps a lost session onto ErrChannelFault and server
// lock-conflict statuses onto ErrLocked. A bare io.EOF from a request
// means the server went away.
func classifySFTP(err error) error {
	if connLost(err) || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", ErrChannelFault, err)
	}
	var se *sftp.StatusError
	if errors.As(err, &se) && se.Code == sshFxLockConflict {
		return fmt.Errorf("%w: %w", ErrLocked, err)
	}
	return err
}

// classifyStream is classifySFTP for stream reads and writes, where io.EOF
// is not a connection failure.
func classifyStream(err error) error {
	if err == nil || !connLost(err) {
		return err
	}
	return classifySFTP(err)
}

// connLost reports whether err means the SFTP session is gone.
func connLost(err error) bool {
	var se *sftp.StatusError
	if errors.As(err, &se) && (se.Code == sshFxNoConnection || se.Code == sshFxConnectionLost) {
		return true
	}
	return errors.Is(err, sftp.ErrSSHFxConnectionLost) ||
		errors.Is(err, sftp.ErrSSHFxNoConnection) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed)
}
