package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/grovetools/claude-sessions/cli"
	"github.com/grovetools/claude-sessions/internal/daemon/pidfile"
	"github.com/grovetools/claude-sessions/internal/daemon/store"
	"github.com/grovetools/claude-sessions/pkg/paths"
	"github.com/grovetools/claude-sessions/pkg/process"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

// NewStatusCmd creates the `status` command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)
			client := cli.NewClient(cmd)

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
			defer cancel()

			if err := client.Ping(ctx); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Stopped")
				os.Exit(1) // Return non-zero for stopped state (useful for scripts)
			}

			sessions, err := client.ListSessions(ctx)
			if err != nil {
				return err
			}
			running := 0
			for _, s := range sessions {
				if !s.Status.IsRecovered() {
					running++
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Running")
			if ok, pid, err := pidfile.IsRunning(paths.PidFilePath()); err == nil && ok {
				fmt.Fprintf(cmd.OutOrStdout(), "PID:      %d\n", pid)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Socket:   %s\n", opts.SocketPath)
			fmt.Fprintf(cmd.OutOrStdout(), "Sessions: %d (%d running)\n", len(sessions), running)
			return nil
		},
	}
}

// NewStopDaemonCmd creates the `stop-daemon` command.
func NewStopDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop-daemon",
		Short: "Stop the running daemon",
		Long: `Ask the running daemon to shut down. Live sessions are closed and their
agents terminated; they show up as crashed or orphaned on the next start.

With --signal, SIGTERM is sent to the pid recorded in the pid file instead,
which helps when the daemon no longer answers on its socket.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			useSignal, _ := cmd.Flags().GetBool("signal")
			if useSignal {
				running, pid, err := pidfile.IsRunning(paths.PidFilePath())
				if err != nil {
					return fmt.Errorf("error checking status: %w", err)
				}
				if !running {
					fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
					return nil
				}
				cli.GetLogger(cmd).WithField("pid", pid).Debug("Sending SIGTERM to daemon")
				if err := process.Signal(pid, unix.SIGTERM); err != nil {
					return fmt.Errorf("failed to send stop signal: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sent SIGTERM to process %d\n", pid)
				return nil
			}

			if err := cli.NewClient(cmd).Shutdown(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopping")
			return nil
		},
	}
	cmd.Flags().Bool("signal", false, "Send SIGTERM to the pid in the pid file instead of using the socket")
	return cmd
}

// NewResetStateCmd creates the `reset-state` command.
func NewResetStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-state",
		Short: "Delete the persisted session list (daemon must be stopped)",
		Long: `Delete the persisted session list so the next daemon start recovers nothing.
Session log files are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
			defer cancel()
			if err := cli.NewClient(cmd).Ping(ctx); err == nil {
				return fmt.Errorf("daemon is running; stop it first with 'claude-sessions stop-daemon'")
			}

			st := store.New(paths.StateFilePath(), cli.GetLogger(cmd))
			if err := st.DeleteState(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", st.Path())
			return nil
		},
	}
}
