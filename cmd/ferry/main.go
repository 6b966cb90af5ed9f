package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/bamsammich/ferry/internal/config"
	"github.com/bamsammich/ferry/internal/engine"
	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/filter"
	"github.com/bamsammich/ferry/internal/logging"
	"github.com/bamsammich/ferry/internal/stats"
	"github.com/bamsammich/ferry/internal/transport"
	"github.com/bamsammich/ferry/internal/transport/agent"
	"github.com/bamsammich/ferry/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

// filterFlag is a custom pflag.Value that preserves CLI ordering of
// --exclude and --include rules by appending to a shared filter.Chain.
type filterFlag struct {
	chain   *filter.Chain
	include bool
}

func (*filterFlag) String() string { return "" }
func (*filterFlag) Type() string   { return "string" }

func (f *filterFlag) Set(val string) error {
	if f.include {
		return f.chain.AddInclude(val)
	}
	return f.chain.AddExclude(val)
}

// copyOptions holds the copy command's flag values.
type copyOptions struct {
	overwrite   bool
	force       bool
	bufferSize  string
	maxTries    int
	retryDelay  time.Duration
	bwLimit     string
	filterFile  string
	minSize     string
	maxSize     string
	sshPort     int
	sshKeyFile  string
	sshUser     string
	noAgent     bool
	agentCmd    string
	verbose     bool
	quiet       bool
	logFile     string
	showVersion bool
}

func run() int {
	var opts copyOptions
	chain := filter.NewChain()

	rootCmd := &cobra.Command{
		Use:   "ferry [flags] <source> <destination>",
		Short: "Copy files and trees to or from a host reachable over SSH",
		Long: "ferry copies a file or a directory tree between this machine and a remote\n" +
			"host. Exactly one of source and destination is remote, written as\n" +
			"[user@]host:path or ssh://[user@]host[:port]/path. The remote side runs\n" +
			"`ferry agent`; when the agent is unavailable ferry falls back to SFTP.",
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				return nil
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				fmt.Fprintf(os.Stdout, "ferry %s\n", version)
				return nil
			}
			return runCopy(cmd, args, &opts, chain)
		},
	}

	registerCopyFlags(rootCmd.Flags(), &opts, chain)

	rootCmd.AddCommand(newAgentCmd())
	rootCmd.AddCommand(docsCmd)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

func registerCopyFlags(flags *pflag.FlagSet, opts *copyOptions, chain *filter.Chain) {
	flags.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	flags.BoolVarP(&opts.overwrite, "overwrite", "f", false, "replace existing destination files")
	flags.BoolVar(&opts.force, "force", false, "create missing destination parent directories")
	flags.StringVar(&opts.bufferSize, "buffer-size", "4M", "chunk size per unit of work (e.g. 1M, 512K)")
	flags.IntVar(&opts.maxTries, "max-tries", engine.DefaultMaxTries, "attempts to open a locked destination file")
	flags.DurationVar(&opts.retryDelay, "retry-delay", engine.DefaultRetryDelay, "delay between locked-file attempts")
	flags.StringVar(&opts.bwLimit, "bwlimit", "", "bandwidth limit in bytes per second (e.g. 100M, 1G)")
	flags.Var(&filterFlag{chain: chain}, "exclude", "exclude files matching PATTERN")
	flags.Var(&filterFlag{chain: chain, include: true}, "include", "include files matching PATTERN")
	flags.StringVar(&opts.filterFile, "filter", "", "read filter rules from FILE")
	flags.StringVar(&opts.minSize, "min-size", "", "skip files smaller than SIZE (e.g. 1M, 100K)")
	flags.StringVar(&opts.maxSize, "max-size", "", "skip files larger than SIZE (e.g. 1G, 500M)")
	flags.IntVar(&opts.sshPort, "ssh-port", transport.DefaultSSHPort, "SSH port")
	flags.StringVar(&opts.sshKeyFile, "ssh-key", "", "SSH private key file (default: auto-detect)")
	flags.BoolVar(&opts.noAgent, "sftp", false, "skip the remote agent and use SFTP")
	flags.StringVar(&opts.agentCmd, "agent-cmd", agent.DefaultCommand, "command that starts the agent on the remote host")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug detail to stderr")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "print only errors")
	flags.StringVar(&opts.logFile, "log", "", "write structured JSON log to FILE")
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: CLI entry point wires every collaborator
func runCopy(cmd *cobra.Command, args []string, opts *copyOptions, chain *filter.Chain) error {
	srcLoc := transport.ParseLocation(args[0])
	dstLoc := transport.ParseLocation(args[1])
	direction, remoteLoc, err := directionFor(srcLoc, dstLoc)
	if err != nil {
		return err
	}

	var logSink io.Writer
	if opts.logFile != "" {
		lf, lfErr := os.Create(opts.logFile)
		if lfErr != nil {
			return fmt.Errorf("open log file: %w", lfErr)
		}
		defer lf.Close()
		logSink = lf
	}
	logger := logging.New(os.Stderr, logging.Level(opts.verbose, opts.quiet), logSink)
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("failed to load config", "error", err)
	}
	if err := applyConfigDefaults(cmd, cfg, opts); err != nil {
		return err
	}
	ui.ApplyTheme(cfg.Theme)
	if remoteLoc.User == "" {
		remoteLoc.User = opts.sshUser
	}

	req, err := buildRequest(opts, direction, srcLoc.Path, dstLoc.Path)
	if err != nil {
		return err
	}
	if err := configureFilter(chain, opts); err != nil {
		return err
	}
	var limiter *rate.Limiter
	if opts.bwLimit != "" {
		n, perr := filter.ParseSize(opts.bwLimit)
		if perr != nil {
			return fmt.Errorf("invalid --bwlimit: %w", perr)
		}
		if n > 0 {
			limiter = engine.NewBWLimiter(n)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	local, err := transport.NewOSLocal()
	if err != nil {
		return err
	}
	remote, err := agent.Connect(ctx, remoteLoc, agent.Options{
		Logger:  logger,
		Command: opts.agentCmd,
		NoAgent: opts.noAgent,
		SSH: transport.SSHOpts{
			Port:    opts.sshPort,
			KeyFile: opts.sshKeyFile,
		},
	})
	if err != nil {
		return fmt.Errorf("connect %s: %w", remoteLoc.Host, err)
	}
	defer remote.Close()
	logger.Debug("connected", "host", remoteLoc.Host, "protocol", remote.Protocol().String())

	collector := stats.NewCollector()
	events := make(chan event.Event, 256)
	sinks := []event.Sink{collector.Observe, event.ToChannel(events)}
	if opts.logFile != "" {
		sinks = append(sinks, logging.EventSink(logger))
	}

	dstRoot := dstLoc.Path
	if direction == engine.Pull {
		if abs, absErr := filepath.Abs(dstRoot); absErr == nil {
			dstRoot = abs
		}
	}
	presenter := ui.NewPresenter(ui.Config{
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		Stats:     collector,
		DstRoot:   dstRoot,
		Width:     ui.TermWidth(os.Stderr),
		IsTTY:     ui.IsTTY(os.Stderr),
		Quiet:     opts.quiet,
	})

	eng, err := engine.New(engine.Config{
		Local:   local,
		Remote:  remote,
		Filter:  filterOrNil(chain),
		Events:  event.Multi(sinks...),
		BWLimit: limiter,
		Logger:  logger,
		Retry: engine.RetryPolicy{
			MaxTries: opts.maxTries,
			Delay:    opts.retryDelay,
		},
	})
	if err != nil {
		return err
	}

	logger.Debug("starting copy",
		"source", srcLoc.String(),
		"destination", dstLoc.String(),
		"direction", direction.String(),
		"buffer_size", req.BufferSize,
		"filter", chain.String(),
	)

	// Presenter runs in the background, the engine in the foreground.
	var presenterErr error
	var presenterWg sync.WaitGroup
	presenterWg.Go(func() {
		presenterErr = presenter.Run(events)
	})

	summary, copyErr := eng.Copy(ctx, req)
	stop()
	close(events)
	presenterWg.Wait()
	if presenterErr != nil {
		fmt.Fprintf(os.Stderr, "presenter: %v\n", presenterErr)
	}

	if line := presenter.Summary(); line != "" {
		fmt.Fprintln(os.Stderr, line)
	}

	if copyErr != nil {
		logger.Error("copy failed", "error", copyErr)
		return &exitError{code: exitCodeFor(summary, copyErr)}
	}
	return nil
}

// directionFor requires exactly one remote side and returns the transfer
// direction with the remote location.
func directionFor(src, dst transport.Location) (engine.Direction, transport.Location, error) {
	switch {
	case src.IsRemote() && dst.IsRemote():
		return 0, transport.Location{}, errors.New("remote-to-remote transfers are not supported; one side must be local")
	case dst.IsRemote():
		return engine.Push, dst, nil
	case src.IsRemote():
		return engine.Pull, src, nil
	default:
		return 0, transport.Location{}, errors.New("one of source and destination must be remote ([user@]host:path)")
	}
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
//
//nolint:gocyclo // one branch per flag
func applyConfigDefaults(cmd *cobra.Command, cfg config.Config, opts *copyOptions) error {
	changed := cmd.Flags().Changed
	d := cfg.Defaults
	if !changed("overwrite") && d.Overwrite != nil {
		opts.overwrite = *d.Overwrite
	}
	if !changed("force") && d.Force != nil {
		opts.force = *d.Force
	}
	if !changed("buffer-size") && d.BufferSize != nil {
		opts.bufferSize = *d.BufferSize
	}
	if !changed("max-tries") && d.MaxTries != nil {
		opts.maxTries = *d.MaxTries
	}
	if !changed("retry-delay") && d.RetryDelay != nil {
		delay, err := d.RetryDelayDuration()
		if err != nil {
			return err
		}
		opts.retryDelay = delay
	}
	if !changed("bwlimit") && d.BWLimit != nil {
		opts.bwLimit = *d.BWLimit
	}

	s := cfg.SSH
	if !changed("ssh-port") && s.Port != nil {
		opts.sshPort = *s.Port
	}
	if !changed("ssh-key") && s.KeyFile != nil {
		opts.sshKeyFile = *s.KeyFile
	}
	if !changed("agent-cmd") && s.AgentCommand != nil {
		opts.agentCmd = *s.AgentCommand
	}
	if !changed("sftp") && s.NoAgent != nil {
		opts.noAgent = *s.NoAgent
	}
	if s.User != nil {
		opts.sshUser = *s.User
	}
	return nil
}

func buildRequest(opts *copyOptions, dir engine.Direction, src, dst string) (engine.Request, error) {
	bufSize, err := filter.ParseSize(opts.bufferSize)
	if err != nil {
		return engine.Request{}, fmt.Errorf("invalid --buffer-size: %w", err)
	}
	if opts.maxTries <= 0 {
		return engine.Request{}, fmt.Errorf("invalid --max-tries %d: must be positive", opts.maxTries)
	}
	if opts.retryDelay < 0 {
		return engine.Request{}, fmt.Errorf("invalid --retry-delay %s: must not be negative", opts.retryDelay)
	}
	return engine.Request{
		Source:      src,
		Destination: dst,
		Direction:   dir,
		BufferSize:  int(bufSize),
		Overwrite:   opts.overwrite,
		Force:       opts.force,
	}, nil
}

func configureFilter(chain *filter.Chain, opts *copyOptions) error {
	if opts.filterFile != "" {
		abs, err := filepath.Abs(opts.filterFile)
		if err != nil {
			return fmt.Errorf("filter file: %w", err)
		}
		if err := chain.LoadFile(osfs.New("/"), abs); err != nil {
			return err
		}
	}
	if opts.minSize != "" {
		n, err := filter.ParseSize(opts.minSize)
		if err != nil {
			return fmt.Errorf("invalid --min-size: %w", err)
		}
		chain.SetMinSize(n)
	}
	if opts.maxSize != "" {
		n, err := filter.ParseSize(opts.maxSize)
		if err != nil {
			return fmt.Errorf("invalid --max-size: %w", err)
		}
		chain.SetMaxSize(n)
	}
	return nil
}

func filterOrNil(chain *filter.Chain) *filter.Chain {
	if chain.Empty() {
		return nil
	}
	return chain
}

// exitCodeFor maps a failed copy to 1 when something was copied before the
// failure and 2 when nothing was.
func exitCodeFor(summary engine.Summary, err error) int {
	if err == nil {
		return 0
	}
	if summary.FilesCopied > 0 || len(summary.Completed) > 0 {
		return 1
	}
	return 2
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
