package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/grovetools/claude-sessions/internal/daemon/supervisor"
	"github.com/grovetools/claude-sessions/pkg/models"
)

var nextFakePid int32 = 100000

// FakeProcess records the input written to it.
type FakeProcess struct {
	mu     sync.Mutex
	pid    int
	inputs []string
	closed bool
}

// WriteInput implements supervisor.Process.
func (p *FakeProcess) WriteInput(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("fake process closed")
	}
	p.inputs = append(p.inputs, string(data))
	return nil
}

// Pid implements supervisor.Process.
func (p *FakeProcess) Pid() int {
	return p.pid
}

// Close implements supervisor.Process.
func (p *FakeProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Inputs returns everything written so far.
func (p *FakeProcess) Inputs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.inputs...)
}

// Closed reports whether Close was called.
func (p *FakeProcess) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// FakeSpawner hands out FakeProcesses. Set Err to make spawning fail.
type FakeSpawner struct {
	mu        sync.Mutex
	Err       error
	processes map[models.SessionID]*FakeProcess
}

// NewFakeSpawner creates an empty FakeSpawner.
func NewFakeSpawner() *FakeSpawner {
	return &FakeSpawner{processes: make(map[models.SessionID]*FakeProcess)}
}

// Spawn implements supervisor.Spawner.
func (s *FakeSpawner) Spawn(id models.SessionID, workingDir, logPath string) (supervisor.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p := &FakeProcess{pid: int(atomic.AddInt32(&nextFakePid, 1))}
	s.processes[id] = p
	return p, nil
}

// Process returns the fake spawned for id, or nil.
func (s *FakeSpawner) Process(id models.SessionID) *FakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processes[id]
}
