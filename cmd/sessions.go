package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/claude-sessions/cli"
	daemonerrors "github.com/grovetools/claude-sessions/errors"
	"github.com/grovetools/claude-sessions/pkg/models"
	"github.com/grovetools/claude-sessions/util/pathutil"
	"github.com/spf13/cobra"
)

var (
	runningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	crashedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	orphanedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// NewStartCmd creates the `start` command.
func NewStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start [dir]",
		Short: "Start a new session in a working directory (default: current directory)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			abs, err := pathutil.Expand(dir)
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", dir, err)
			}

			id, logPath, err := cli.NewClient(cmd).StartSession(cmd.Context(), abs)
			if err != nil {
				return err
			}

			if cli.GetOptions(cmd).JSONOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"session_id": id, "log_path": logPath})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started session %s\n", id)
			fmt.Fprintf(cmd.OutOrStdout(), "  Directory: %s\n", abs)
			fmt.Fprintf(cmd.OutOrStdout(), "  Log:       %s\n", logPath)
			return nil
		},
	}
}

// NewListCmd creates the `list` command.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := cli.NewClient(cmd).ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				if sessions == nil {
					sessions = []models.SessionInfo{}
				}
				return writeJSON(cmd.OutOrStdout(), sessions)
			}
			renderSessions(cmd.OutOrStdout(), sessions)
			return nil
		},
	}
}

func renderSessions(w io.Writer, sessions []models.SessionInfo) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No sessions."))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCREATED\tDIRECTORY")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, styleStatus(s.Status), s.CreatedAt, s.WorkingDir)
	}
	tw.Flush()
}

func styleStatus(status models.Status) string {
	switch status {
	case models.StatusRunning:
		return runningStyle.Render(string(status))
	case models.StatusCrashed:
		return crashedStyle.Render(string(status))
	case models.StatusOrphaned:
		return orphanedStyle.Render(string(status))
	default:
		return mutedStyle.Render(string(status))
	}
}

// NewStopCmd creates the `stop` command.
func NewStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <session-id>",
		Short: "Stop a session and remove it from the list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionArg(args[0])
			if err != nil {
				return err
			}
			if err := cli.NewClient(cmd).StopSession(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped session %s\n", id)
			return nil
		},
	}
}

// NewSendCmd creates the `send` command.
func NewSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <session-id> <text>...",
		Short: "Send a line of input to a running session",
		Long: `Send a line of input to a running session. Remaining arguments are joined
with spaces. Use "-" to read the text from stdin.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionArg(args[0])
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			if text == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = string(data)
			}
			return cli.NewClient(cmd).SendInput(cmd.Context(), id, text)
		},
	}
}

// NewAttachCmd creates the `attach` command.
func NewAttachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attach <session-id>",
		Short: "Attach to a session's live output (not implemented yet)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionArg(args[0])
			if err != nil {
				return err
			}
			err = cli.NewClient(cmd).AttachSession(cmd.Context(), id)
			if err != nil && daemonerrors.GetCode(err) == daemonerrors.ErrCodeRemote {
				fmt.Fprintf(cmd.ErrOrStderr(), "Use 'claude-sessions logs -f %s' to follow the session output.\n", id)
			}
			return err
		},
	}
}

func parseSessionArg(raw string) (string, error) {
	id, err := models.ParseSessionID(raw)
	if err != nil {
		return "", daemonerrors.InvalidSessionID(raw)
	}
	return id.String(), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
