package agent

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/crypto/ssh"
)

// DefaultCommand starts the agent on the remote host.
const DefaultCommand = "ferry agent"

// Session is a remote `ferry agent` process whose stdin and stdout carry
// the channel. Its stderr is forwarded to the logger.
type Session struct {
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
	done    chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// Compile-time interface check.
var _ io.ReadWriteCloser = (*Session)(nil)

// StartSession runs command on sshClient and returns the connected
// session.
func StartSession(sshClient *ssh.Client, command string, logger *slog.Logger) (*Session, error) {
	if command == "" {
		command = DefaultCommand
	}
	if logger == nil {
		logger = slog.Default()
	}

	sess, err := sshClient.NewSession()
	if err != nil {
		return nil, fmt.Errorf("ssh session: %w", err)
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("agent stdin: %w", err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("agent stdout: %w", err)
	}
	stderr, err := sess.StderrPipe()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("agent stderr: %w", err)
	}
	if err := sess.Start(command); err != nil {
		sess.Close()
		return nil, fmt.Errorf("start %q: %w", command, err)
	}

	s := &Session{session: sess, stdin: stdin, stdout: stdout, done: make(chan struct{})}
	go s.forwardStderr(stderr, logger.With("remote", "agent"))
	return s, nil
}

func (s *Session) forwardStderr(r io.Reader, logger *slog.Logger) {
	defer close(s.done)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logger.Debug(scanner.Text())
	}
}

func (s *Session) Read(p []byte) (int, error)  { return s.stdout.Read(p) }
func (s *Session) Write(p []byte) (int, error) { return s.stdin.Write(p) }

// Close ends the agent's input and then the session. It is safe to call
// more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.stdin.Close()
		if err := s.session.Close(); err != nil && !errors.Is(err, io.EOF) && s.closeErr == nil {
			s.closeErr = err
		}
		<-s.done
	})
	return s.closeErr
}
