// Package process provides best-effort checks on OS processes.
package process

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Probe reports whether a pid might still belong to a live process.
// Implementations must be conservative: returning true for a dead-but-unreaped
// or reused pid is acceptable, returning false is only allowed when the pid is
// certainly unused.
type Probe func(pid int) bool

// IsProcessAlive checks if a process with the given PID exists.
//
// Signal 0 performs the permission and existence checks without delivering a
// signal. ESRCH is the only answer that proves the pid is unused; EPERM means
// the process exists but belongs to someone else. Any other error is treated
// as alive.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return !errors.Is(err, unix.ESRCH)
}

// Signal delivers sig to pid. A process that is already gone is not an error.
func Signal(pid int, sig unix.Signal) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	if err := unix.Kill(pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}
