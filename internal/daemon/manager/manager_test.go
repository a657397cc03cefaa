package manager

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	daemonerrors "github.com/grovetools/claude-sessions/errors"
	"github.com/grovetools/claude-sessions/internal/daemon/store"
	"github.com/grovetools/claude-sessions/pkg/models"
	"github.com/grovetools/claude-sessions/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	manager *Manager
	spawner *testutil.FakeSpawner
	store   *store.Store
	logDir  string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	root := t.TempDir()
	logDir := filepath.Join(root, "logs")
	st := store.New(filepath.Join(root, "sessions.json"), testutil.NewLogger("store"))
	spawner := testutil.NewFakeSpawner()
	opts = append([]Option{WithLogPath(func(id models.SessionID) string {
		return filepath.Join(logDir, id.String()+".jsonl")
	})}, opts...)
	return &fixture{
		manager: New(spawner, st, testutil.NewLogger("manager"), opts...),
		spawner: spawner,
		store:   st,
		logDir:  logDir,
	}
}

func TestStartSession(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()

	session, err := f.manager.StartSession(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, session.WorkingDir)
	assert.Equal(t, filepath.Join(f.logDir, session.ID.String()+".jsonl"), session.LogPath)
	assert.NotEmpty(t, session.CreatedAt)

	list := f.manager.ListSessions()
	require.Len(t, list, 1)
	assert.Equal(t, session.ID.String(), list[0].ID)
	assert.Equal(t, dir, list[0].WorkingDir)
	assert.Equal(t, models.StatusRunning, list[0].Status)

	state := f.store.LoadState()
	require.Contains(t, state, session.ID)
	assert.Equal(t, models.StatusRunning, state[session.ID].Status)
	require.NotNil(t, state[session.ID].PID)
	assert.Equal(t, f.spawner.Process(session.ID).Pid(), *state[session.ID].PID)
}

func TestStartSessionFreshIDs(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	seen := make(map[models.SessionID]bool)
	for i := 0; i < 5; i++ {
		session, err := f.manager.StartSession(dir)
		require.NoError(t, err)
		assert.False(t, seen[session.ID])
		seen[session.ID] = true
	}
	assert.Len(t, f.manager.ListSessions(), 5)
}

func TestStartSessionMissingDirectory(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.StartSession(t.TempDir())
	require.NoError(t, err)
	before := f.manager.ListSessions()

	_, err = f.manager.StartSession(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
	assert.True(t, daemonerrors.IsValidation(err))
	assert.True(t, daemonerrors.Is(err, daemonerrors.ErrCodeDirectoryNotFound))
	assert.Equal(t, before, f.manager.ListSessions())
}

func TestStartSessionOnFile(t *testing.T) {
	f := newFixture(t)
	file := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := f.manager.StartSession(file)
	assert.True(t, daemonerrors.Is(err, daemonerrors.ErrCodeDirectoryNotFound))
}

func TestStartSessionSpawnFailure(t *testing.T) {
	f := newFixture(t)
	f.spawner.Err = errors.New("no pty for you")

	_, err := f.manager.StartSession(t.TempDir())
	require.Error(t, err)
	assert.True(t, daemonerrors.Is(err, daemonerrors.ErrCodeSpawnFailed))
	assert.Empty(t, f.manager.ListSessions())
}

func TestStopSession(t *testing.T) {
	f := newFixture(t)
	dirA, dirB := t.TempDir(), t.TempDir()

	a, err := f.manager.StartSession(dirA)
	require.NoError(t, err)
	b, err := f.manager.StartSession(dirB)
	require.NoError(t, err)

	list := f.manager.ListSessions()
	require.Len(t, list, 2)
	assert.NotEqual(t, list[0].ID, list[1].ID)

	require.NoError(t, f.manager.StopSession(a.ID))
	assert.True(t, f.spawner.Process(a.ID).Closed())
	assert.False(t, f.spawner.Process(b.ID).Closed())

	list = f.manager.ListSessions()
	require.Len(t, list, 1)
	assert.Equal(t, b.ID.String(), list[0].ID)
	assert.Equal(t, dirB, list[0].WorkingDir)

	state := f.store.LoadState()
	assert.NotContains(t, state, a.ID)
	assert.Contains(t, state, b.ID)
}

func TestStopSessionUnknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.StartSession(t.TempDir())
	require.NoError(t, err)
	before := f.manager.ListSessions()

	err = f.manager.StopSession(models.NewSessionID())
	require.Error(t, err)
	assert.True(t, daemonerrors.Is(err, daemonerrors.ErrCodeSessionNotFound))
	assert.Equal(t, before, f.manager.ListSessions())
}

func TestSendInput(t *testing.T) {
	f := newFixture(t)
	session, err := f.manager.StartSession(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, f.manager.SendInput(session.ID, "hello"))
	assert.Equal(t, []string{"hello"}, f.spawner.Process(session.ID).Inputs())

	err = f.manager.SendInput(models.NewSessionID(), "nobody")
	assert.True(t, daemonerrors.Is(err, daemonerrors.ErrCodeSessionNotFound))
}

func TestPersistenceFailureIsNotFatal(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("file, not a dir"), 0644))

	// The state file's parent is a regular file, so every write fails.
	st := store.New(filepath.Join(blocker, "sessions.json"), testutil.NewLogger("store"))
	m := New(testutil.NewFakeSpawner(), st, testutil.NewLogger("manager"),
		WithLogPath(func(id models.SessionID) string { return filepath.Join(root, id.String()) }))

	session, err := m.StartSession(t.TempDir())
	require.NoError(t, err)
	assert.Len(t, m.ListSessions(), 1)
	require.NoError(t, m.StopSession(session.ID))
	assert.Empty(t, m.ListSessions())
}

func TestClassify(t *testing.T) {
	alive := func(int) bool { return true }
	dead := func(int) bool { return false }

	tests := []struct {
		name  string
		pid   *int
		probe func(int) bool
		want  models.Status
	}{
		{"no pid is stale", nil, alive, models.StatusStale},
		{"no pid ignores probe", nil, dead, models.StatusStale},
		{"dead pid is crashed", models.IntPtr(12345), dead, models.StatusCrashed},
		{"live pid is orphaned", models.IntPtr(12345), alive, models.StatusOrphaned},
		{"current process is orphaned", models.IntPtr(os.Getpid()), nil, models.StatusOrphaned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := tt.probe
			if probe == nil {
				probe = func(pid int) bool { return pid == os.Getpid() }
			}
			assert.Equal(t, tt.want, Classify(tt.pid, probe))
			// Deterministic.
			assert.Equal(t, tt.want, Classify(tt.pid, probe))
		})
	}
}

func TestRecoverSessions(t *testing.T) {
	f := newFixture(t, WithProbe(func(pid int) bool { return pid == 1111 }))

	mk := func(dir string) models.Session {
		return models.NewSession(dir, func(id models.SessionID) string { return "/logs/" + id.String() })
	}
	stale, crashed, orphaned := mk("/a"), mk("/b"), mk("/c")
	require.NoError(t, f.store.WriteState(store.State{
		stale.ID:    stale.Persist(nil, models.StatusRunning),
		crashed.ID:  crashed.Persist(models.IntPtr(2222), models.StatusRunning),
		orphaned.ID: orphaned.Persist(models.IntPtr(1111), models.StatusRunning),
	}))

	report := f.manager.RecoverSessions()
	assert.Equal(t, RecoveryReport{Stale: 1, Crashed: 1, Orphaned: 1}, report)
	assert.Equal(t, 3, report.Total())

	statuses := make(map[string]models.Status)
	for _, info := range f.manager.ListSessions() {
		statuses[info.ID] = info.Status
		assert.NotEqual(t, models.StatusRunning, info.Status)
	}
	assert.Equal(t, models.StatusStale, statuses[stale.ID.String()])
	assert.Equal(t, models.StatusCrashed, statuses[crashed.ID.String()])
	assert.Equal(t, models.StatusOrphaned, statuses[orphaned.ID.String()])

	// No process handles are created during recovery.
	assert.Nil(t, f.spawner.Process(stale.ID))
	err := f.manager.SendInput(orphaned.ID, "hi")
	assert.True(t, daemonerrors.Is(err, daemonerrors.ErrCodeSessionNotFound))

	// Statuses are re-persisted, pids kept.
	state := f.store.LoadState()
	assert.Equal(t, models.StatusCrashed, state[crashed.ID].Status)
	require.NotNil(t, state[crashed.ID].PID)
	assert.Equal(t, 2222, *state[crashed.ID].PID)
	assert.Equal(t, models.StatusStale, state[stale.ID].Status)
}

func TestStopRecoveredSession(t *testing.T) {
	f := newFixture(t, WithProbe(func(int) bool { return false }))
	s := models.NewSession("/a", func(id models.SessionID) string { return "/logs/" + id.String() })
	require.NoError(t, f.store.WriteState(store.State{s.ID: s.Persist(models.IntPtr(5), models.StatusRunning)}))
	f.manager.RecoverSessions()

	require.NoError(t, f.manager.StopSession(s.ID))
	assert.Empty(t, f.manager.ListSessions())
	assert.Empty(t, f.store.LoadState())
}

func TestRecoverEmptyState(t *testing.T) {
	f := newFixture(t)
	report := f.manager.RecoverSessions()
	assert.Equal(t, 0, report.Total())
	assert.Empty(t, f.manager.ListSessions())
}

func TestDisposeAllKeepsRegistry(t *testing.T) {
	f := newFixture(t)
	a, err := f.manager.StartSession(t.TempDir())
	require.NoError(t, err)

	f.manager.DisposeAll()
	assert.True(t, f.spawner.Process(a.ID).Closed())

	state := f.store.LoadState()
	require.Contains(t, state, a.ID)
	assert.Equal(t, models.StatusRunning, state[a.ID].Status)
	assert.NotNil(t, state[a.ID].PID)
}
