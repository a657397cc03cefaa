package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	assert.Equal(t, home, Root())
	assert.Equal(t, home, ConfigDir())
	assert.Equal(t, filepath.Join(home, "daemon.sock"), SocketPath())
	assert.Equal(t, filepath.Join(home, "sessions.json"), StateFilePath())
	assert.Equal(t, filepath.Join(home, "daemon.pid"), PidFilePath())
}

func TestDefaultRootUnderHome(t *testing.T) {
	t.Setenv(HomeEnv, "")
	t.Setenv("XDG_CONFIG_HOME", "")

	root := Root()
	assert.True(t, strings.HasSuffix(root, ".claude-sessions"), root)
	assert.True(t, strings.HasSuffix(SocketPath(), filepath.Join(".claude-sessions", "daemon.sock")))
	assert.Equal(t, root, ConfigDir())
}

func TestConfigDirHonoursXDG(t *testing.T) {
	t.Setenv(HomeEnv, "")
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	assert.Equal(t, filepath.Join(xdg, "claude-sessions"), ConfigDir())
}

func TestSessionLogPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	id := uuid.New()
	assert.Equal(t, filepath.Join(home, "logs", id.String()+".jsonl"), SessionLogPath(id))
}

func TestEnsureDirs(t *testing.T) {
	home := filepath.Join(t.TempDir(), "nested")
	t.Setenv(HomeEnv, home)

	require.NoError(t, EnsureDirs())
	info, err := os.Stat(LogDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
