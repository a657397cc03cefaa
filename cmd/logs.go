package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/claude-sessions/cli"
	daemonerrors "github.com/grovetools/claude-sessions/errors"
	"github.com/grovetools/claude-sessions/pkg/models"
	"github.com/grovetools/claude-sessions/pkg/paths"
	"github.com/grovetools/claude-sessions/pkg/sessionlog"
	"github.com/spf13/cobra"
)

var inputStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs <session-id>",
		Short: "Show the captured terminal traffic of a session",
		Long: `Show the captured terminal traffic of a session.

Output chunks are written as the agent produced them, control sequences
included. Input lines are shown prefixed with "> ". Logs outlive their
sessions, so this also works for stopped sessions.

Examples:
  # Follow a session's output
  claude-sessions logs -f 3f1c...

  # Dump the raw JSON Lines entries
  claude-sessions logs --raw 3f1c...`,
		Args: cobra.ExactArgs(1),
		RunE: runLogsE,
	}

	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	cmd.Flags().Bool("raw", false, "Print the stored JSON Lines entries")
	cmd.Flags().Bool("output-only", false, "Hide input entries")
	cmd.Flags().Int("offset", 0, "Skip this many entries")

	return cmd
}

func runLogsE(cmd *cobra.Command, args []string) error {
	id, err := models.ParseSessionID(args[0])
	if err != nil {
		return daemonerrors.InvalidSessionID(args[0])
	}
	follow, _ := cmd.Flags().GetBool("follow")
	raw, _ := cmd.Flags().GetBool("raw")
	outputOnly, _ := cmd.Flags().GetBool("output-only")
	offset, _ := cmd.Flags().GetInt("offset")
	raw = raw || cli.GetOptions(cmd).JSONOutput

	path := resolveLogPath(cmd, id)
	out := cmd.OutOrStdout()
	emit := func(entry models.LogEntry) error {
		return printEntry(out, entry, raw, outputOnly)
	}

	if follow {
		seen := 0
		return sessionlog.Follow(cmd.Context(), path, func(entry models.LogEntry) error {
			seen++
			if seen <= offset {
				return nil
			}
			return emit(entry)
		})
	}

	entries, err := sessionlog.ReadEntries(path, offset)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no log for session %s at %s", id, path)
		}
		return err
	}
	for _, entry := range entries {
		if err := emit(entry); err != nil {
			return err
		}
	}
	return nil
}

// resolveLogPath asks the daemon where the session logs, falling back to the
// default location when the daemon is down or no longer knows the session.
func resolveLogPath(cmd *cobra.Command, id models.SessionID) string {
	client := cli.NewClient(cmd)
	if client.IsDaemonRunning() {
		if sessions, err := client.ListSessions(cmd.Context()); err == nil {
			for _, s := range sessions {
				if s.ID == id.String() && s.LogPath != "" {
					return s.LogPath
				}
			}
		}
	}
	return paths.SessionLogPath(id)
}

func printEntry(w io.Writer, entry models.LogEntry, raw, outputOnly bool) error {
	if outputOnly && entry.Direction == models.DirectionInput {
		return nil
	}
	if raw {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	if entry.Direction == models.DirectionInput {
		text := strings.TrimRight(string(entry.Data), "\r\n")
		_, err := fmt.Fprintf(w, "%s %s\n", inputStyle.Render(">"), text)
		return err
	}
	_, err := w.Write(entry.Data)
	return err
}
