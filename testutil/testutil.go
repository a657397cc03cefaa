package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// TempHome points the daemon's per-user root at a fresh temp directory for the
// duration of the test and returns it.
func TempHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CLAUDE_SESSIONS_HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	return dir
}

// ShortSocketPath returns a socket path short enough for the sun_path limit.
// t.TempDir paths are often too long on macOS.
func ShortSocketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "cs")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "d.sock")
}

// RequireCommand skips the test if name is not on PATH.
func RequireCommand(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

// NewLogger returns a logger that discards output unless the test is verbose.
func NewLogger(component string) *logrus.Entry {
	logger := logrus.New()
	if !testing.Verbose() {
		logger.SetOutput(io.Discard)
	}
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", component)
}

// RandomString generates a random string of the specified length
func RandomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return hex.EncodeToString(bytes)[:length]
}
