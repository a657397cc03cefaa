package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/claude-sessions/cli"
	"github.com/grovetools/claude-sessions/pkg/paths"
	"github.com/spf13/cobra"
)

// PathsOutput lists the per-user files the daemon uses.
type PathsOutput struct {
	Root      string `json:"root"`
	ConfigDir string `json:"config_dir"`
	Socket    string `json:"socket"`
	StateFile string `json:"state_file"`
	PidFile   string `json:"pid_file"`
	LogDir    string `json:"log_dir"`
}

func NewPathsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the paths used by claude-sessions",
		Long: `Print the paths used by claude-sessions.

This command outputs the paths in JSON format, making it easy to parse from
scripts and other tools. Set CLAUDE_SESSIONS_HOME to relocate everything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := PathsOutput{
				Root:      paths.Root(),
				ConfigDir: paths.ConfigDir(),
				Socket:    cli.GetOptions(cmd).SocketPath,
				StateFile: paths.StateFilePath(),
				PidFile:   paths.PidFilePath(),
				LogDir:    paths.LogDir(),
			}

			jsonData, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal paths to JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
			return nil
		},
	}

	return cmd
}
