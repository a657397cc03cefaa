package models

import "time"

// Direction is the flow of bytes through a session's terminal.
type Direction string

const (
	// DirectionInput is data written by a client to the agent.
	DirectionInput Direction = "input"
	// DirectionOutput is data produced by the agent.
	DirectionOutput Direction = "output"
)

// LogEntry is one line of a session log file. Data is raw terminal bytes;
// encoding/json stores it base64-encoded, which keeps arbitrary control
// sequences safe inside a JSON line.
type LogEntry struct {
	Timestamp string    `json:"timestamp"`
	SessionID string    `json:"session_id"`
	Direction Direction `json:"direction"`
	Data      []byte    `json:"data"`
	Size      int       `json:"size"`
}

// NewLogEntry stamps data with the current UTC time.
func NewLogEntry(id SessionID, dir Direction, data []byte) LogEntry {
	return LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		SessionID: id.String(),
		Direction: dir,
		Data:      data,
		Size:      len(data),
	}
}
