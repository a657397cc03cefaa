// Package manager orchestrates session lifecycle for the daemon: it owns the
// session registry and the live process table, drives startup recovery and
// persists the registry after every mutation.
package manager

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	daemonerrors "github.com/grovetools/claude-sessions/errors"
	"github.com/grovetools/claude-sessions/internal/daemon/store"
	"github.com/grovetools/claude-sessions/internal/daemon/supervisor"
	"github.com/grovetools/claude-sessions/pkg/models"
	"github.com/grovetools/claude-sessions/pkg/paths"
	"github.com/grovetools/claude-sessions/pkg/process"
	"github.com/sirupsen/logrus"
)

// entry is a registry row. pid and status only matter for recovered sessions;
// live sessions take both from their process handle.
type entry struct {
	session models.Session
	status  models.Status
	pid     *int
}

// Manager is the session orchestrator.
//
// Lock order is always sessionsMu then processesMu. Neither lock is held
// across spawning, disposal or persistence.
type Manager struct {
	sessionsMu sync.Mutex
	sessions   map[models.SessionID]*entry

	processesMu sync.Mutex
	processes   map[models.SessionID]supervisor.Process

	spawner    supervisor.Spawner
	store      *store.Store
	probe      process.Probe
	logPathFor func(models.SessionID) string
	logger     *logrus.Entry
}

// Option customizes a Manager.
type Option func(*Manager)

// WithProbe replaces the process liveness probe used by recovery.
func WithProbe(probe process.Probe) Option {
	return func(m *Manager) { m.probe = probe }
}

// WithLogPath replaces how session log paths are derived from ids.
func WithLogPath(fn func(models.SessionID) string) Option {
	return func(m *Manager) { m.logPathFor = fn }
}

// New creates a new Manager instance.
func New(spawner supervisor.Spawner, st *store.Store, logger *logrus.Entry, opts ...Option) *Manager {
	m := &Manager{
		sessions:   make(map[models.SessionID]*entry),
		processes:  make(map[models.SessionID]supervisor.Process),
		spawner:    spawner,
		store:      st,
		probe:      process.IsProcessAlive,
		logPathFor: paths.SessionLogPath,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartSession spawns an agent in workingDir and registers it.
func (m *Manager) StartSession(workingDir string) (models.Session, error) {
	dir, err := filepath.Abs(workingDir)
	if err != nil {
		return models.Session{}, daemonerrors.DirectoryNotFound(workingDir)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return models.Session{}, daemonerrors.DirectoryNotFound(workingDir)
	}

	session := models.NewSession(dir, m.logPathFor)

	proc, err := m.spawner.Spawn(session.ID, session.WorkingDir, session.LogPath)
	if err != nil {
		if daemonerrors.GetCode(err) == "" {
			err = daemonerrors.SpawnFailed(dir, err)
		}
		m.logger.WithError(err).WithField("working_dir", dir).Error("Failed to spawn agent")
		return models.Session{}, err
	}

	m.sessionsMu.Lock()
	m.sessions[session.ID] = &entry{session: session, status: models.StatusRunning}
	m.sessionsMu.Unlock()

	m.processesMu.Lock()
	m.processes[session.ID] = proc
	m.processesMu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"session_id":  session.ID.String(),
		"working_dir": dir,
		"pid":         proc.Pid(),
	}).Info("Session started")

	m.save()
	return session, nil
}

// StopSession removes a session from the registry, disposing its process if
// it has one. The session is deleted, not demoted; its log file is kept.
func (m *Manager) StopSession(id models.SessionID) error {
	m.sessionsMu.Lock()
	_, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.sessionsMu.Unlock()
	if !ok {
		return daemonerrors.SessionNotFound(id.String())
	}

	m.processesMu.Lock()
	proc := m.processes[id]
	delete(m.processes, id)
	m.processesMu.Unlock()

	if proc != nil {
		if err := proc.Close(); err != nil {
			m.logger.WithError(err).WithField("session_id", id.String()).Debug("Error closing terminal")
		}
	}

	m.logger.WithField("session_id", id.String()).Info("Session stopped")
	m.save()
	return nil
}

// ListSessions reports every registered session. A session with a live
// handle is running; a recovered one keeps its classification.
func (m *Manager) ListSessions() []models.SessionInfo {
	m.sessionsMu.Lock()
	rows := make([]entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		rows = append(rows, *e)
	}
	m.sessionsMu.Unlock()

	m.processesMu.Lock()
	live := make(map[models.SessionID]bool, len(m.processes))
	for id := range m.processes {
		live[id] = true
	}
	m.processesMu.Unlock()

	infos := make([]models.SessionInfo, 0, len(rows))
	for _, e := range rows {
		status := e.status
		if live[e.session.ID] {
			status = models.StatusRunning
		} else if status == models.StatusRunning {
			status = models.StatusStale
		}
		infos = append(infos, e.session.Info(status))
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt != infos[j].CreatedAt {
			return infos[i].CreatedAt < infos[j].CreatedAt
		}
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// SendInput forwards text to a live session's agent.
func (m *Manager) SendInput(id models.SessionID, text string) error {
	m.processesMu.Lock()
	proc := m.processes[id]
	m.processesMu.Unlock()
	if proc == nil {
		return daemonerrors.SessionNotFound(id.String())
	}
	return proc.WriteInput([]byte(text))
}

// DisposeAll closes every live process handle without touching the registry
// or the state file, so the next start can classify what was left behind.
func (m *Manager) DisposeAll() {
	m.processesMu.Lock()
	procs := m.processes
	m.processes = make(map[models.SessionID]supervisor.Process)
	m.processesMu.Unlock()

	for id, proc := range procs {
		if err := proc.Close(); err != nil {
			m.logger.WithError(err).WithField("session_id", id.String()).Debug("Error closing terminal")
		}
	}
	if len(procs) > 0 {
		m.logger.WithField("count", len(procs)).Info("Disposed live sessions")
	}
}

// save writes a snapshot of the registry. Failures are logged and swallowed.
func (m *Manager) save() {
	m.sessionsMu.Lock()
	rows := make([]entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		rows = append(rows, *e)
	}
	m.sessionsMu.Unlock()

	m.processesMu.Lock()
	pids := make(map[models.SessionID]int, len(m.processes))
	for id, proc := range m.processes {
		pids[id] = proc.Pid()
	}
	m.processesMu.Unlock()

	state := make(store.State, len(rows))
	for _, e := range rows {
		if pid, ok := pids[e.session.ID]; ok {
			state[e.session.ID] = e.session.Persist(models.IntPtr(pid), models.StatusRunning)
			continue
		}
		state[e.session.ID] = e.session.Persist(e.pid, e.status)
	}

	if err := m.store.WriteState(state); err != nil {
		m.logger.WithError(err).Warn("Failed to persist session state")
	}
}
