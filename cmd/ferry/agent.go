package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bamsammich/ferry/internal/logging"
	"github.com/bamsammich/ferry/internal/transport"
	"github.com/bamsammich/ferry/internal/transport/proto"
)

func newAgentCmd() *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Serve the remote execution channel on stdin and stdout",
		Long: "agent is started by ferry on the remote host over SSH. It executes the\n" +
			"units of work it reads on stdin and writes their results to stdout.\n" +
			"Logs go to stderr, which SSH forwards to the client.",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logging.New(os.Stderr, logging.ParseLevel(logLevel), nil).With("pid", os.Getpid())
			// Nothing but frames may reach stdout.
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			local, err := transport.NewOSLocal()
			if err != nil {
				return err
			}
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			return serveAgent(ctx, local, cwd, os.Stdin, os.Stdout, logger)
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "agent log level (debug, info, warn, error)")
	return cmd
}

// serveAgent runs the channel handler over r and w until the client hangs
// up or ctx is cancelled.
func serveAgent(
	ctx context.Context,
	ep transport.Endpoint,
	cwd string,
	r io.Reader,
	w io.Writer,
	logger *slog.Logger,
) error {
	logger.Debug("agent started", "cwd", cwd)
	h := proto.NewHandler(ep, cwd, logger)
	if err := h.Serve(ctx, r, w); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	logger.Debug("agent finished")
	return nil
}
