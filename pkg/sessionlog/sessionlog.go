// Package sessionlog records the terminal traffic of a session as JSON Lines,
// one entry per read or write.
package sessionlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	daemonerrors "github.com/grovetools/claude-sessions/errors"
	"github.com/grovetools/claude-sessions/pkg/models"
)

// Logger appends log entries for one session. It is safe for concurrent use
// by the output capture loop and input writers.
type Logger struct {
	mu     sync.Mutex
	id     models.SessionID
	path   string
	file   *os.File
	closed bool
}

// New opens (creating if needed) the log file at path in append mode.
// Existing content is never truncated.
func New(id models.SessionID, path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, daemonerrors.IOFailure("create log directory", filepath.Dir(path), err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, daemonerrors.IOFailure("open session log", path, err)
	}
	return &Logger{id: id, path: path, file: file}, nil
}

// Log writes one entry and syncs it before returning.
func (l *Logger) Log(direction models.Direction, data []byte) error {
	entry := models.NewLogEntry(l.id, direction, data)
	line, err := json.Marshal(entry)
	if err != nil {
		return daemonerrors.IOFailure("encode log entry", l.path, err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return daemonerrors.IOFailure("write session log", l.path, os.ErrClosed)
	}
	// A single write per line keeps entries whole under O_APPEND.
	if _, err := l.file.Write(line); err != nil {
		return daemonerrors.IOFailure("write session log", l.path, err)
	}
	if err := l.file.Sync(); err != nil {
		return daemonerrors.IOFailure("sync session log", l.path, err)
	}
	return nil
}

// Path returns the log file location.
func (l *Logger) Path() string {
	return l.path
}

// Close closes the underlying file. Subsequent Log calls fail.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}
