package process

import (
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestIsProcessAlive(t *testing.T) {
	t.Run("current process", func(t *testing.T) {
		assert.True(t, IsProcessAlive(os.Getpid()))
	})

	t.Run("invalid pids", func(t *testing.T) {
		assert.False(t, IsProcessAlive(0))
		assert.False(t, IsProcessAlive(-1))
	})

	t.Run("reaped child", func(t *testing.T) {
		cmd := exec.Command("true")
		require.NoError(t, cmd.Run())
		assert.False(t, IsProcessAlive(cmd.Process.Pid))
	})
}

func TestSignal(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid

	require.NoError(t, Signal(pid, unix.SIGTERM))
	_ = cmd.Wait()
	assert.False(t, IsProcessAlive(pid))

	// Already gone.
	assert.NoError(t, Signal(pid, unix.SIGTERM))
	assert.Error(t, Signal(0, unix.SIGTERM))
}
