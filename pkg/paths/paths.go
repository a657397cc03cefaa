// Package paths resolves the fixed per-user locations used by the daemon and
// its clients.
//
// Resolution order for the root directory:
// 1. CLAUDE_SESSIONS_HOME (portable root, also used by tests)
// 2. ~/.claude-sessions
//
// The config directory additionally honours XDG_CONFIG_HOME when no portable
// root is set.
package paths

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	// HomeEnv overrides the root directory.
	HomeEnv = "CLAUDE_SESSIONS_HOME"

	appName = "claude-sessions"
)

// Root returns the directory holding the socket, state file and logs.
func Root() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, "."+appName)
	}
	return "." + appName
}

// ConfigDir returns the directory searched for config.yml / config.toml.
func ConfigDir() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	return Root()
}

// SocketPath returns the daemon's unix socket.
func SocketPath() string {
	return filepath.Join(Root(), "daemon.sock")
}

// StateFilePath returns the persisted session map.
func StateFilePath() string {
	return filepath.Join(Root(), "sessions.json")
}

// PidFilePath returns the daemon pid record.
func PidFilePath() string {
	return filepath.Join(Root(), "daemon.pid")
}

// LogDir returns the directory holding per-session log files.
func LogDir() string {
	return filepath.Join(Root(), "logs")
}

// SessionLogPath returns the JSON Lines log file for a session.
func SessionLogPath(id uuid.UUID) string {
	return filepath.Join(LogDir(), id.String()+".jsonl")
}

// EnsureDirs creates the root and log directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{Root(), LogDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
