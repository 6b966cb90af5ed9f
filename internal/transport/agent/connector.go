package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/bamsammich/ferry/internal/transport"
)

// HandshakeTimeout bounds the wait for the agent's hello response.
const HandshakeTimeout = 30 * time.Second

// Options configures Connect.
type Options struct {
	Logger  *slog.Logger
	Command string // remote agent command; empty = DefaultCommand
	SSH     transport.SSHOpts
	NoAgent bool // go straight to SFTP
}

// Connect dials the host named by loc and returns an endpoint for it. The
// agent channel is preferred; if the agent cannot be started or fails the
// handshake, the connection falls back to SFTP on the same SSH client.
// Closing the endpoint closes the SSH connection.
//
//nolint:ireturn // either an agent or an SFTP endpoint
func Connect(ctx context.Context, loc transport.Location, opts Options) (transport.Endpoint, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sshClient, err := transport.DialLocation(loc, opts.SSH)
	if err != nil {
		return nil, fmt.Errorf("ssh connect to %s: %w", loc.Host, err)
	}

	if !opts.NoAgent {
		ep, agentErr := startAgent(ctx, sshClient, opts.Command, logger)
		if agentErr == nil {
			logger.Info("using agent channel", "host", loc.Host, "remote_cwd", ep.Cwd(), "remote_os", ep.OS())
			return ep, nil
		}
		logger.Info("agent unavailable, using SFTP", "host", loc.Host, "error", agentErr)
	}

	ep, err := transport.NewSFTP(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, err
	}
	logger.Debug("using sftp", "host", loc.Host)
	return ep, nil
}

func startAgent(ctx context.Context, sshClient *ssh.Client, command string, logger *slog.Logger) (*Endpoint, error) {
	sess, err := StartSession(sshClient, command, logger)
	if err != nil {
		return nil, err
	}
	helloCtx, cancel := context.WithTimeout(ctx, HandshakeTimeout)
	defer cancel()
	ep, err := New(helloCtx, sess)
	if err != nil {
		// New closed the session.
		return nil, err
	}
	ep.closer = sshClient
	return ep, nil
}
