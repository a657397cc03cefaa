package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/claude-sessions/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle provides user-friendly error messages based on error type
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeUnavailable:
		fmt.Fprintf(h.Out, "❌ Daemon is not running.\n")
		fmt.Fprintf(h.Out, "Start it with 'claude-sessions daemon'.\n")

	case errors.ErrCodeRemote:
		fmt.Fprintf(h.Out, "❌ Daemon error: %v\n", err)

	case errors.ErrCodeProtocol:
		fmt.Fprintf(h.Out, "❌ Unexpected reply from daemon: %v\n", err)
		fmt.Fprintf(h.Out, "The daemon and CLI may be different versions.\n")

	case errors.ErrCodeConfigInvalid:
		fmt.Fprintf(h.Out, "❌ %v\n", err)
		fmt.Fprintf(h.Out, "Run 'claude-sessions config schema' to see the accepted fields.\n")

	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(h.Out, "❌ %v\n", err)

	case errors.ErrCodeInvalidSessionID:
		fmt.Fprintf(h.Out, "❌ %v\n", err)
		fmt.Fprintf(h.Out, "Run 'claude-sessions list' to see session ids.\n")

	default:
		fmt.Fprintf(h.Out, "❌ Error: %v\n", err)
	}

	if h.Verbose {
		if daemonErr, ok := err.(*errors.DaemonError); ok {
			fmt.Fprintf(h.Out, "\nError details:\n%s\n", daemonErr.ToJSON())
		}
	}
	return err
}
