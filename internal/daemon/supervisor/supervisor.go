// Package supervisor spawns the agent inside a pseudo-terminal, captures its
// output into the session log and owns the terminal until the session ends.
package supervisor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/grovetools/claude-sessions/config"
	daemonerrors "github.com/grovetools/claude-sessions/errors"
	"github.com/grovetools/claude-sessions/pkg/models"
	"github.com/grovetools/claude-sessions/pkg/sessionlog"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Process is a running agent owned by the daemon.
type Process interface {
	// WriteInput sends data to the agent, adding a trailing newline if
	// missing, and records it in the session log.
	WriteInput(data []byte) error
	// Pid returns the OS process id of the agent.
	Pid() int
	// Close signals the capture loop to stop and releases the terminal.
	// It never blocks on the agent.
	Close() error
}

// Spawner starts agent processes. The manager depends on this interface so
// tests can substitute a fake.
type Spawner interface {
	Spawn(id models.SessionID, workingDir, logPath string) (Process, error)
}

// Options control how agents are spawned.
type Options struct {
	Command     string
	Args        []string
	Env         map[string]string
	Rows        uint16
	Cols        uint16
	BufferSize  int
	RetryDelay  time.Duration
	GracePeriod time.Duration
}

// OptionsFromConfig derives spawn options from the daemon config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Command:     cfg.Agent.Command,
		Args:        cfg.Agent.Args,
		Env:         cfg.Agent.Env,
		Rows:        cfg.Terminal.Rows,
		Cols:        cfg.Terminal.Cols,
		BufferSize:  cfg.Capture.BufferSize,
		RetryDelay:  cfg.Capture.RetryDelay(),
		GracePeriod: cfg.Shutdown.GracePeriod(),
	}
}

// PTYSpawner spawns agents attached to a fresh pseudo-terminal.
type PTYSpawner struct {
	mu     sync.RWMutex
	opts   Options
	logger *logrus.Entry
}

// NewPTYSpawner creates a spawner using opts.
func NewPTYSpawner(opts Options, logger *logrus.Entry) *PTYSpawner {
	return &PTYSpawner{opts: withDefaults(opts), logger: logger}
}

// SetOptions replaces the options used for sessions spawned from now on.
// Running sessions keep the options they were started with.
func (s *PTYSpawner) SetOptions(opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = withDefaults(opts)
}

func withDefaults(opts Options) Options {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 8192
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 10 * time.Millisecond
	}
	if opts.Rows == 0 {
		opts.Rows = 24
	}
	if opts.Cols == 0 {
		opts.Cols = 80
	}
	return opts
}

// Spawn starts the agent in workingDir and begins capturing its output to
// the log at logPath.
func (s *PTYSpawner) Spawn(id models.SessionID, workingDir, logPath string) (Process, error) {
	s.mu.RLock()
	opts := s.opts
	s.mu.RUnlock()

	cmd := exec.Command(opts.Command, opts.Args...)
	cmd.Dir = workingDir
	cmd.Env = os.Environ()
	for k, v := range opts.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	log, err := sessionlog.New(id, logPath)
	if err != nil {
		return nil, err
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: opts.Rows, Cols: opts.Cols})
	if err != nil {
		_ = log.Close()
		_ = os.Remove(logPath)
		return nil, daemonerrors.SpawnFailed(workingDir, err)
	}

	ptmx, err = pollable(ptmx)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		_ = log.Close()
		_ = os.Remove(logPath)
		return nil, daemonerrors.SpawnFailed(workingDir, err)
	}

	h := &Handle{
		id:       id,
		cmd:      cmd,
		ptmx:     ptmx,
		log:      log,
		opts:     opts,
		logger:   s.logger.WithField("session_id", id.String()),
		shutdown: make(chan struct{}, 1),
		exited:   make(chan struct{}),
	}

	// The log stays open until both the capture loop and Close are done.
	h.logUsers.Add(2)
	go func() {
		h.logUsers.Wait()
		if err := h.log.Close(); err != nil {
			h.logger.WithError(err).Debug("Failed to close session log")
		}
	}()

	go h.capture()
	go h.reap()

	h.logger.WithFields(logrus.Fields{
		"pid":         cmd.Process.Pid,
		"working_dir": workingDir,
		"log_path":    log.Path(),
	}).Info("Spawned agent")

	return h, nil
}

// pollable returns the terminal master in non-blocking mode, registered with
// the runtime poller, so Close interrupts a pending Read.
func pollable(ptmx *os.File) (*os.File, error) {
	fd, err := unix.Dup(int(ptmx.Fd()))
	if err != nil {
		_ = ptmx.Close()
		return nil, fmt.Errorf("failed to dup terminal: %w", err)
	}
	_ = ptmx.Close()
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("failed to set terminal non-blocking: %w", err)
	}
	return os.NewFile(uintptr(fd), "/dev/ptmx"), nil
}

// Handle is a live agent attached to a pseudo-terminal.
type Handle struct {
	id     models.SessionID
	cmd    *exec.Cmd
	ptmx   *os.File
	log    *sessionlog.Logger
	opts   Options
	logger *logrus.Entry

	writeMu sync.Mutex

	closeOnce sync.Once
	closed    bool
	closedMu  sync.Mutex

	// shutdown holds at most one pending stop request for the capture loop.
	shutdown chan struct{}
	exited   chan struct{}
	logUsers sync.WaitGroup
}

// WriteInput writes data to the terminal, newline-terminated, then logs the
// bytes as an input entry.
func (h *Handle) WriteInput(data []byte) error {
	h.closedMu.Lock()
	closed := h.closed
	h.closedMu.Unlock()
	if closed {
		return daemonerrors.PtyWriteFailed(h.id.String(), os.ErrClosed)
	}
	select {
	case <-h.exited:
		return daemonerrors.PtyWriteFailed(h.id.String(), os.ErrProcessDone)
	default:
	}

	payload := make([]byte, 0, len(data)+1)
	payload = append(payload, data...)
	if len(payload) == 0 || payload[len(payload)-1] != '\n' {
		payload = append(payload, '\n')
	}

	h.writeMu.Lock()
	_, err := h.ptmx.Write(payload)
	h.writeMu.Unlock()
	if err != nil {
		return daemonerrors.PtyWriteFailed(h.id.String(), err)
	}

	if err := h.log.Log(models.DirectionInput, payload); err != nil {
		h.logger.WithError(err).Warn("Failed to log input")
	}
	return nil
}

// Pid returns the agent's process id.
func (h *Handle) Pid() int {
	return h.cmd.Process.Pid
}

// Exited is closed once the agent has been reaped.
func (h *Handle) Exited() <-chan struct{} {
	return h.exited
}

// Close stops capture and closes the terminal master, which hangs up the
// agent. If the agent is still alive after the grace period it is killed.
func (h *Handle) Close() error {
	var err error
	h.closeOnce.Do(func() {
		h.closedMu.Lock()
		h.closed = true
		h.closedMu.Unlock()

		select {
		case h.shutdown <- struct{}{}:
		default:
		}

		// Closing the master hangs up the terminal and interrupts a
		// pending Read in the capture loop.
		err = h.ptmx.Close()
		h.logUsers.Done()

		select {
		case <-h.exited:
		default:
			if serr := h.cmd.Process.Signal(syscall.SIGHUP); serr != nil && !errors.Is(serr, os.ErrProcessDone) {
				h.logger.WithError(serr).Debug("Failed to send SIGHUP")
			}
		}

		if h.opts.GracePeriod > 0 {
			go h.killAfterGrace()
		}
	})
	return err
}

func (h *Handle) killAfterGrace() {
	timer := time.NewTimer(h.opts.GracePeriod)
	defer timer.Stop()
	select {
	case <-h.exited:
	case <-timer.C:
		h.logger.WithField("pid", h.Pid()).Warn("Agent outlived its terminal, killing")
		if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			h.logger.WithError(err).Warn("Failed to kill agent")
		}
	}
}

// capture copies terminal output into the session log until the terminal
// reaches EOF, fails, or Close is called.
func (h *Handle) capture() {
	defer h.logUsers.Done()
	buf := make([]byte, h.opts.BufferSize)
	for {
		select {
		case <-h.shutdown:
			h.logger.Debug("Output capture stopped")
			return
		default:
		}

		n, err := h.ptmx.Read(buf)
		if n > 0 {
			if lerr := h.log.Log(models.DirectionOutput, buf[:n]); lerr != nil {
				h.logger.WithError(lerr).Warn("Failed to log output")
			}
		}
		if err != nil {
			switch {
			case errors.Is(err, syscall.EAGAIN):
				time.Sleep(h.opts.RetryDelay)
				continue
			case errors.Is(err, io.EOF), errors.Is(err, syscall.EIO), errors.Is(err, os.ErrClosed):
				// EIO is how Linux reports a hung-up terminal.
				h.logger.Debug("Terminal closed")
			default:
				h.logger.WithError(err).Warn("Error reading from terminal")
			}
			return
		}
		if n == 0 {
			return
		}
	}
}

// reap waits for the agent so it never lingers as a zombie.
func (h *Handle) reap() {
	err := h.cmd.Wait()
	fields := logrus.Fields{"pid": h.Pid()}
	if h.cmd.ProcessState != nil {
		fields["exit_code"] = h.cmd.ProcessState.ExitCode()
	}
	if err != nil {
		h.logger.WithFields(fields).WithError(err).Info("Agent exited")
	} else {
		h.logger.WithFields(fields).Info("Agent exited")
	}
	close(h.exited)
}
