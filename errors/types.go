package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Validation errors
	ErrCodeValidation        ErrorCode = "VALIDATION"
	ErrCodeDirectoryNotFound ErrorCode = "DIRECTORY_NOT_FOUND"
	ErrCodeInvalidSessionID  ErrorCode = "INVALID_SESSION_ID"

	// Lookup errors
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"

	// Process and terminal errors
	ErrCodeSpawnFailed    ErrorCode = "SPAWN_FAILED"
	ErrCodePtyWriteFailed ErrorCode = "PTY_WRITE_FAILED"

	// I/O errors (log files, state file)
	ErrCodeIO ErrorCode = "IO_FAILURE"

	// Transport errors
	ErrCodeProtocol    ErrorCode = "PROTOCOL"
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE"
	ErrCodeRemote      ErrorCode = "DAEMON_ERROR"

	// Configuration errors
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"

	// General errors
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// DaemonError represents a structured error with context
type DaemonError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *DaemonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap implements the errors.Unwrap interface
func (e *DaemonError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *DaemonError) WithDetail(key string, value interface{}) *DaemonError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *DaemonError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new DaemonError
func New(code ErrorCode, message string) *DaemonError {
	return &DaemonError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a DaemonError
func Wrap(err error, code ErrorCode, message string) *DaemonError {
	return &DaemonError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error carries a specific code anywhere in its chain
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	daemonErr, ok := err.(*DaemonError)
	if !ok || daemonErr.Code != code {
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	return true
}

// GetCode extracts the outermost error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	daemonErr, ok := err.(*DaemonError)
	if !ok {
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return daemonErr.Code
}

// IsValidation reports whether err is any kind of validation failure.
func IsValidation(err error) bool {
	switch GetCode(err) {
	case ErrCodeValidation, ErrCodeDirectoryNotFound, ErrCodeInvalidSessionID:
		return true
	}
	return false
}
