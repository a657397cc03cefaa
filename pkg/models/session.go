package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionID identifies a session across the in-memory registry, the persisted
// state file and the per-session log file name.
type SessionID = uuid.UUID

// NewSessionID returns a fresh random session id.
func NewSessionID() SessionID {
	return uuid.New()
}

// ParseSessionID parses the canonical string form of a session id.
func ParseSessionID(s string) (SessionID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session id %q: %w", s, err)
	}
	return id, nil
}

// Status is the lifecycle state of a session as reported to clients and
// written to the state file.
type Status string

const (
	StatusRunning  Status = "running"
	StatusStopped  Status = "stopped"
	StatusCrashed  Status = "crashed"
	StatusStale    Status = "stale"
	StatusOrphaned Status = "orphaned"
)

// IsRecovered reports whether the status can only be reached through startup
// recovery.
func (s Status) IsRecovered() bool {
	switch s {
	case StatusStale, StatusCrashed, StatusOrphaned:
		return true
	}
	return false
}

// Session is the live, in-memory description of one agent session.
type Session struct {
	ID         SessionID `json:"id"`
	WorkingDir string    `json:"working_dir"`
	CreatedAt  string    `json:"created_at"` // RFC3339, UTC
	LogPath    string    `json:"log_path"`
}

// NewSession creates session metadata for workingDir with a fresh id. The log
// path is derived from the id by logPathFor.
func NewSession(workingDir string, logPathFor func(SessionID) string) Session {
	id := NewSessionID()
	return Session{
		ID:         id,
		WorkingDir: workingDir,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		LogPath:    logPathFor(id),
	}
}

// PersistedSession is the durable record written to the state file.
//
// PID may be stale: the process may have exited, been killed externally, or
// the pid may have been reused after a reboot. Always probe before trusting it.
type PersistedSession struct {
	ID         SessionID `json:"id"`
	WorkingDir string    `json:"working_dir"`
	CreatedAt  string    `json:"created_at"`
	LogPath    string    `json:"log_path"`
	PID        *int      `json:"pid"`
	Status     Status    `json:"status"`
}

// Persist converts a live session into its durable record.
func (s Session) Persist(pid *int, status Status) PersistedSession {
	return PersistedSession{
		ID:         s.ID,
		WorkingDir: s.WorkingDir,
		CreatedAt:  s.CreatedAt,
		LogPath:    s.LogPath,
		PID:        pid,
		Status:     status,
	}
}

// Session rebuilds the metadata-only session from a durable record.
func (p PersistedSession) Session() Session {
	return Session{
		ID:         p.ID,
		WorkingDir: p.WorkingDir,
		CreatedAt:  p.CreatedAt,
		LogPath:    p.LogPath,
	}
}

// SessionInfo is the client-facing view returned by list operations.
type SessionInfo struct {
	ID         string `json:"id"`
	WorkingDir string `json:"working_dir"`
	CreatedAt  string `json:"created_at"`
	Status     Status `json:"status"`
	LogPath    string `json:"log_path"`
}

// Info builds the client-facing view of s with the given status.
func (s Session) Info(status Status) SessionInfo {
	return SessionInfo{
		ID:         s.ID.String(),
		WorkingDir: s.WorkingDir,
		CreatedAt:  s.CreatedAt,
		Status:     status,
		LogPath:    s.LogPath,
	}
}

// IntPtr returns a pointer to v. Handy for optional pid fields.
func IntPtr(v int) *int {
	return &v
}
