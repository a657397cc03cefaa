package errors

import (
	"fmt"
)

// DirectoryNotFound is returned when a session is requested for a missing
// working directory.
func DirectoryNotFound(dir string) *DaemonError {
	return New(ErrCodeDirectoryNotFound, fmt.Sprintf("working directory does not exist: %s", dir)).
		WithDetail("working_dir", dir)
}

// InvalidSessionID is returned for ids that don't parse.
func InvalidSessionID(raw string) *DaemonError {
	return New(ErrCodeInvalidSessionID, fmt.Sprintf("invalid session id format: %q", raw)).
		WithDetail("session_id", raw)
}

// SessionNotFound is returned for unknown ids, or ids without a live terminal
// when one is needed.
func SessionNotFound(id string) *DaemonError {
	return New(ErrCodeSessionNotFound, fmt.Sprintf("session not found: %s", id)).
		WithDetail("session_id", id)
}

// SpawnFailed wraps terminal allocation or process start failures.
func SpawnFailed(dir string, err error) *DaemonError {
	return Wrap(err, ErrCodeSpawnFailed, fmt.Sprintf("failed to spawn agent in %s", dir)).
		WithDetail("working_dir", dir)
}

// PtyWriteFailed wraps a failed write to a session's terminal.
func PtyWriteFailed(id string, err error) *DaemonError {
	return Wrap(err, ErrCodePtyWriteFailed, "failed to write to terminal").
		WithDetail("session_id", id)
}

// IOFailure wraps log or state file errors.
func IOFailure(op, path string, err error) *DaemonError {
	return Wrap(err, ErrCodeIO, fmt.Sprintf("failed to %s %s", op, path)).
		WithDetail("path", path)
}

// ProtocolFailure wraps malformed framing or undecodable messages.
func ProtocolFailure(err error) *DaemonError {
	return Wrap(err, ErrCodeProtocol, "malformed message")
}

// DaemonUnavailable is returned by clients that cannot reach the daemon.
func DaemonUnavailable(socket string, err error) *DaemonError {
	return Wrap(err, ErrCodeUnavailable, "failed to connect to daemon, is it running?").
		WithDetail("socket", socket)
}

// NotImplemented marks a documented placeholder operation.
func NotImplemented(feature string) *DaemonError {
	return New(ErrCodeNotImplemented, fmt.Sprintf("%s not implemented yet", feature)).
		WithDetail("feature", feature)
}

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *DaemonError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *DaemonError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// RemoteError carries an Error response returned by the daemon. The daemon
// answered, so this is never an availability problem.
func RemoteError(message string) *DaemonError {
	return New(ErrCodeRemote, message)
}
