package supervisor

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	daemonerrors "github.com/grovetools/claude-sessions/errors"
	"github.com/grovetools/claude-sessions/pkg/models"
	"github.com/grovetools/claude-sessions/pkg/process"
	"github.com/grovetools/claude-sessions/pkg/sessionlog"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger.WithField("component", "supervisor-test")
}

func requireCommand(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

func outputContains(path string, want []byte) bool {
	entries, err := sessionlog.ReadEntries(path, 0)
	if err != nil {
		return false
	}
	var all []byte
	for _, e := range entries {
		if e.Direction == models.DirectionOutput {
			all = append(all, e.Data...)
		}
	}
	return bytes.Contains(all, want)
}

func TestSpawnCapturesOutputAndInput(t *testing.T) {
	requireCommand(t, "cat")

	spawner := NewPTYSpawner(Options{Command: "cat", GracePeriod: 500 * time.Millisecond}, testLogger())
	id := models.NewSessionID()
	logPath := filepath.Join(t.TempDir(), "logs", id.String()+".jsonl")

	proc, err := spawner.Spawn(id, t.TempDir(), logPath)
	require.NoError(t, err)
	defer proc.Close()

	assert.Greater(t, proc.Pid(), 0)
	assert.True(t, process.IsProcessAlive(proc.Pid()))

	require.NoError(t, proc.WriteInput([]byte("hello-pty")))

	require.Eventually(t, func() bool {
		return outputContains(logPath, []byte("hello-pty"))
	}, 5*time.Second, 20*time.Millisecond)

	entries, err := sessionlog.ReadEntries(logPath, 0)
	require.NoError(t, err)
	var inputs []models.LogEntry
	for _, e := range entries {
		if e.Direction == models.DirectionInput {
			inputs = append(inputs, e)
		}
		assert.Equal(t, id.String(), e.SessionID)
		assert.Equal(t, len(e.Data), e.Size)
	}
	require.Len(t, inputs, 1)
	assert.Equal(t, []byte("hello-pty\n"), inputs[0].Data)
}

func TestCloseTerminatesAgent(t *testing.T) {
	requireCommand(t, "cat")

	spawner := NewPTYSpawner(Options{Command: "cat", GracePeriod: 200 * time.Millisecond}, testLogger())
	id := models.NewSessionID()
	proc, err := spawner.Spawn(id, t.TempDir(), filepath.Join(t.TempDir(), "s.jsonl"))
	require.NoError(t, err)

	handle := proc.(*Handle)
	require.NoError(t, proc.Close())
	// Closing twice is harmless.
	assert.NoError(t, proc.Close())

	select {
	case <-handle.Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("agent was not terminated after close")
	}
	assert.False(t, process.IsProcessAlive(handle.Pid()))

	err = proc.WriteInput([]byte("late"))
	require.Error(t, err)
	assert.True(t, daemonerrors.Is(err, daemonerrors.ErrCodePtyWriteFailed))
}

func TestCaptureStopsWhenAgentExits(t *testing.T) {
	requireCommand(t, "sh")

	spawner := NewPTYSpawner(Options{Command: "sh", Args: []string{"-c", "echo done-now"}}, testLogger())
	id := models.NewSessionID()
	logPath := filepath.Join(t.TempDir(), "s.jsonl")
	proc, err := spawner.Spawn(id, t.TempDir(), logPath)
	require.NoError(t, err)
	defer proc.Close()

	select {
	case <-proc.(*Handle).Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("agent did not exit")
	}
	require.Eventually(t, func() bool {
		return outputContains(logPath, []byte("done-now"))
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSpawnWorkingDirectoryAndEnv(t *testing.T) {
	requireCommand(t, "sh")

	dir := t.TempDir()
	spawner := NewPTYSpawner(Options{
		Command: "sh",
		Args:    []string{"-c", "pwd; echo marker=$SESSION_MARKER"},
		Env:     map[string]string{"SESSION_MARKER": "xyz"},
	}, testLogger())
	id := models.NewSessionID()
	logPath := filepath.Join(t.TempDir(), "s.jsonl")
	proc, err := spawner.Spawn(id, dir, logPath)
	require.NoError(t, err)
	defer proc.Close()

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return outputContains(logPath, []byte("marker=xyz")) &&
			(outputContains(logPath, []byte(dir)) || outputContains(logPath, []byte(resolved)))
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSpawnFailure(t *testing.T) {
	spawner := NewPTYSpawner(Options{Command: "definitely-not-a-real-agent-binary"}, testLogger())
	logPath := filepath.Join(t.TempDir(), "s.jsonl")
	_, err := spawner.Spawn(models.NewSessionID(), t.TempDir(), logPath)
	require.Error(t, err)
	assert.True(t, daemonerrors.Is(err, daemonerrors.ErrCodeSpawnFailed))

	_, statErr := os.Stat(logPath)
	assert.True(t, os.IsNotExist(statErr), "failed spawn left a log file behind")
}

func TestCloseHangsUpAgentWithoutGraceKill(t *testing.T) {
	requireCommand(t, "cat")

	spawner := NewPTYSpawner(Options{Command: "cat"}, testLogger())
	logPath := filepath.Join(t.TempDir(), "s.jsonl")
	proc, err := spawner.Spawn(models.NewSessionID(), t.TempDir(), logPath)
	require.NoError(t, err)
	handle := proc.(*Handle)

	// Let the capture loop park in Read.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, proc.Close())

	select {
	case <-handle.Exited():
	case <-time.After(3 * time.Second):
		t.Fatalf("agent still alive after close with no grace kill; pid %d", handle.Pid())
	}
	assert.False(t, process.IsProcessAlive(handle.Pid()))
}

func TestWriteInputAfterAgentExit(t *testing.T) {
	requireCommand(t, "sh")

	spawner := NewPTYSpawner(Options{Command: "sh", Args: []string{"-c", "exit 0"}}, testLogger())
	logPath := filepath.Join(t.TempDir(), "s.jsonl")
	proc, err := spawner.Spawn(models.NewSessionID(), t.TempDir(), logPath)
	require.NoError(t, err)
	defer proc.Close()

	select {
	case <-proc.(*Handle).Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("agent did not exit")
	}

	err = proc.WriteInput([]byte("after-exit"))
	require.Error(t, err)
	assert.True(t, daemonerrors.Is(err, daemonerrors.ErrCodePtyWriteFailed))

	entries, err := sessionlog.ReadEntries(logPath, 0)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, models.DirectionInput, e.Direction, "rejected input was logged")
	}
}

func TestWriteInputKeepsExistingNewline(t *testing.T) {
	requireCommand(t, "cat")

	spawner := NewPTYSpawner(Options{Command: "cat", GracePeriod: 200 * time.Millisecond}, testLogger())
	id := models.NewSessionID()
	logPath := filepath.Join(t.TempDir(), "s.jsonl")
	proc, err := spawner.Spawn(id, t.TempDir(), logPath)
	require.NoError(t, err)
	defer proc.Close()

	require.NoError(t, proc.WriteInput([]byte("one\n")))

	entries, err := sessionlog.ReadEntries(logPath, 0)
	require.NoError(t, err)
	var inputs [][]byte
	for _, e := range entries {
		if e.Direction == models.DirectionInput {
			inputs = append(inputs, e.Data)
		}
	}
	assert.Equal(t, [][]byte{[]byte("one\n")}, inputs)
}

func TestSetOptionsAffectsNewSpawns(t *testing.T) {
	requireCommand(t, "cat")

	spawner := NewPTYSpawner(Options{Command: "cat", GracePeriod: 200 * time.Millisecond}, testLogger())
	proc, err := spawner.Spawn(models.NewSessionID(), t.TempDir(), filepath.Join(t.TempDir(), "a.jsonl"))
	require.NoError(t, err)
	defer proc.Close()

	spawner.SetOptions(Options{Command: "definitely-not-a-real-agent-binary"})
	_, err = spawner.Spawn(models.NewSessionID(), t.TempDir(), filepath.Join(t.TempDir(), "b.jsonl"))
	assert.True(t, daemonerrors.Is(err, daemonerrors.ErrCodeSpawnFailed))

	// The running session is unaffected.
	assert.NoError(t, proc.WriteInput([]byte("still here")))
}
