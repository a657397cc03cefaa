// Package store persists the daemon's session records to a JSON state file.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	daemonerrors "github.com/grovetools/claude-sessions/errors"
	"github.com/grovetools/claude-sessions/pkg/models"
	"github.com/sirupsen/logrus"
)

// State maps session ids to their durable records. Keys serialize as the
// canonical string form of the id.
type State map[models.SessionID]models.PersistedSession

// Store is the durable state file. It is thread-safe; writes are last-writer-wins.
// An advisory lock on a sibling ".lock" file orders writers across processes,
// so reset-state never interleaves with a daemon save.
type Store struct {
	mu     sync.Mutex
	path   string
	lock   *flock.Flock
	logger *logrus.Entry
}

// New creates a Store backed by the file at path.
func New(path string, logger *logrus.Entry) *Store {
	return &Store{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logger,
	}
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// WriteState serializes the full map and atomically replaces the state file.
// A crash mid-write leaves either the previous or the new complete file.
func (s *Store) WriteState(state State) error {
	if state == nil {
		state = State{}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return daemonerrors.IOFailure("encode state", s.path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return daemonerrors.IOFailure("create state directory", dir, err)
	}

	if err := s.lock.Lock(); err != nil {
		return daemonerrors.IOFailure("lock state file", s.lock.Path(), err)
	}
	defer func() { _ = s.lock.Unlock() }()

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return daemonerrors.IOFailure("create temp state file", dir, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return daemonerrors.IOFailure("write temp state file", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return daemonerrors.IOFailure("sync temp state file", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return daemonerrors.IOFailure("close temp state file", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		cleanup()
		return daemonerrors.IOFailure("replace state file", s.path, err)
	}
	return nil
}

// LoadState reads the state file. A missing file yields an empty map; an
// unreadable or unparseable one yields an empty map and a warning. It never
// fails.
func (s *Store) LoadState() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.RLock(); err == nil {
		defer func() { _ = s.lock.Unlock() }()
	} else if !errors.Is(err, os.ErrNotExist) {
		s.logger.WithError(err).Debug("Reading state without lock")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).WithField("path", s.path).Warn("Failed to read state file, starting empty")
		}
		return State{}
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.WithError(err).WithField("path", s.path).Warn("State file is corrupt, starting empty")
		return State{}
	}
	if state == nil {
		state = State{}
	}
	return state
}

// DeleteState removes the state file. A missing file is not an error.
func (s *Store) DeleteState() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return daemonerrors.IOFailure("lock state file", s.lock.Path(), err)
	}
	defer func() { _ = s.lock.Unlock() }()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return daemonerrors.IOFailure("remove state file", s.path, err)
	}
	return nil
}
