package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grovetools/claude-sessions/cli"
	"github.com/grovetools/claude-sessions/config"
	"github.com/grovetools/claude-sessions/internal/daemon/manager"
	"github.com/grovetools/claude-sessions/internal/daemon/pidfile"
	"github.com/grovetools/claude-sessions/internal/daemon/server"
	"github.com/grovetools/claude-sessions/internal/daemon/store"
	"github.com/grovetools/claude-sessions/internal/daemon/supervisor"
	"github.com/grovetools/claude-sessions/internal/daemon/watcher"
	"github.com/grovetools/claude-sessions/logging"
	"github.com/grovetools/claude-sessions/pkg/paths"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// daemonOptions locates everything the daemon reads and writes.
type daemonOptions struct {
	SocketPath string
	StatePath  string
	PidPath    string
	ConfigDir  string
	ConfigFile string
	// Verbose forces debug logging over whatever the config file says.
	Verbose bool
}

// effectiveLogging applies the --verbose override to a logging config.
func effectiveLogging(cfg config.LoggingConfig, verbose bool) config.LoggingConfig {
	if verbose {
		cfg.Level = "debug"
	}
	return cfg
}

// NewDaemonCmd returns the command that runs the daemon in the foreground.
func NewDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the session daemon in the foreground",
		Long: `Run the session daemon in the foreground.

On start the daemon recovers sessions recorded by a previous run. Their agents
cannot be reattached, so each is listed as stale (no pid recorded), crashed
(process gone) or orphaned (process still alive, not owned). Stop them to
clear them from the list.

The daemon exits on SIGINT, SIGTERM or 'claude-sessions stop-daemon'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			logging.Configure(effectiveLogging(cfg.Logging, opts.Verbose))

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("failed to create data directories: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runDaemon(ctx, cfg, daemonOptions{
				SocketPath: opts.SocketPath,
				StatePath:  paths.StateFilePath(),
				PidPath:    paths.PidFilePath(),
				ConfigDir:  paths.ConfigDir(),
				ConfigFile: opts.ConfigFile,
				Verbose:    opts.Verbose,
			})
		},
	}
}

// runDaemon binds the socket, recovers persisted sessions and serves until
// ctx is cancelled or a client requests shutdown. Live sessions are disposed
// on the way out.
func runDaemon(ctx context.Context, cfg *config.Config, opts daemonOptions) error {
	logger := logging.NewLogger("daemon")

	spawner := supervisor.NewPTYSpawner(supervisor.OptionsFromConfig(cfg), logging.NewLogger("supervisor"))
	st := store.New(opts.StatePath, logging.NewLogger("store"))
	mgr := manager.New(spawner, st, logging.NewLogger("manager"))
	srv := server.New(mgr, logging.NewLogger("server"))

	// Bind first so a refused second daemon never touches the state file.
	if err := srv.Listen(opts.SocketPath); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	if err := pidfile.Write(opts.PidPath); err != nil {
		logger.WithError(err).Warn("Failed to write pid file")
	}
	defer func() {
		if err := pidfile.Release(opts.PidPath); err != nil {
			logger.Errorf("Failed to release pidfile: %v", err)
		}
	}()

	report := mgr.RecoverSessions()
	if report.Total() > 0 {
		logger.WithField("recovered", report.Total()).Info("Previous sessions recovered without their agents")
	}

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	w, err := watcher.New(opts.ConfigDir, opts.ConfigFile, 200*time.Millisecond,
		reloadFunc(spawner, opts.Verbose), logging.NewLogger("watcher"))
	if err != nil {
		logger.WithError(err).Warn("Config watcher disabled")
	} else {
		go w.Start(watchCtx)
	}

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("Received stop signal")
			srv.Shutdown()
		case <-srv.Done():
		}
	}()

	logger.WithFields(logrus.Fields{
		"pid":    os.Getpid(),
		"agent":  cfg.Agent.Command,
		"socket": opts.SocketPath,
	}).Info("Starting daemon")

	serveErr := srv.Serve()
	mgr.DisposeAll()
	logger.Info("Daemon stopped")

	if serveErr != nil {
		return fmt.Errorf("server error: %w", serveErr)
	}
	return nil
}

// reloadFunc applies a reloaded config to the running daemon. Sessions that
// are already running keep their spawn options.
func reloadFunc(spawner *supervisor.PTYSpawner, verbose bool) func(*config.Config) {
	return func(c *config.Config) {
		logging.Configure(effectiveLogging(c.Logging, verbose))
		spawner.SetOptions(supervisor.OptionsFromConfig(c))
	}
}
