// Package cmd implements the claude-sessions command tree.
package cmd

import (
	"github.com/grovetools/claude-sessions/cli"
	"github.com/grovetools/claude-sessions/version"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand(
		"claude-sessions",
		"Run and manage concurrent Claude sessions through a local daemon",
	)
	root.Long = `claude-sessions runs a background daemon that supervises interactive Claude
sessions, one per working directory, each in its own pseudo-terminal. Session
output is captured to per-session log files and session metadata survives
daemon restarts.`
	cli.SetVersionTemplate(root, version.GetInfo())

	root.AddCommand(
		NewDaemonCmd(),
		NewStartCmd(),
		NewListCmd(),
		NewStopCmd(),
		NewSendCmd(),
		NewAttachCmd(),
		NewLogsCmd(),
		NewStatusCmd(),
		NewStopDaemonCmd(),
		NewResetStateCmd(),
		NewConfigCmd(),
		NewPathsCmd(),
		cli.NewVersionCommand("claude-sessions"),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		verbose, _ := root.PersistentFlags().GetBool("verbose")
		_ = cli.NewErrorHandler(verbose).Handle(err)
		return 1
	}
	return 0
}
