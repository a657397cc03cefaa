// Package ipc defines the line-delimited JSON protocol spoken over the daemon
// socket and a connection-per-request client for it.
//
// Every exchange is one request line followed by one response line on a fresh
// connection. Messages are objects tagged by a "type" field.
package ipc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/grovetools/claude-sessions/pkg/models"
)

// MaxLineSize bounds a single protocol line.
const MaxLineSize = 1 << 20

// RequestType tags a Request.
type RequestType string

const (
	RequestStartSession  RequestType = "start_session"
	RequestListSessions  RequestType = "list_sessions"
	RequestStopSession   RequestType = "stop_session"
	RequestSendInput     RequestType = "send_input"
	RequestAttachSession RequestType = "attach_session"
	RequestPing          RequestType = "ping"
	RequestShutdown      RequestType = "shutdown"
)

// Request is a client command. Only the fields belonging to Type are sent.
type Request struct {
	Type       RequestType
	WorkingDir string
	SessionID  string
	Text       string
}

// StartSession requests a new session in workingDir.
func StartSession(workingDir string) Request {
	return Request{Type: RequestStartSession, WorkingDir: workingDir}
}

// ListSessions requests every registered session.
func ListSessions() Request { return Request{Type: RequestListSessions} }

// StopSession requests removal of a session.
func StopSession(id string) Request {
	return Request{Type: RequestStopSession, SessionID: id}
}

// SendInput requests text be written to a session's agent.
func SendInput(id, text string) Request {
	return Request{Type: RequestSendInput, SessionID: id, Text: text}
}

// AttachSession requests a live output stream. Not implemented by the daemon.
func AttachSession(id string) Request {
	return Request{Type: RequestAttachSession, SessionID: id}
}

// Ping checks that the daemon is answering.
func Ping() Request { return Request{Type: RequestPing} }

// Shutdown asks the daemon to exit.
func Shutdown() Request { return Request{Type: RequestShutdown} }

type requestWire struct {
	Type       RequestType `json:"type"`
	WorkingDir *string     `json:"working_dir,omitempty"`
	SessionID  *string     `json:"session_id,omitempty"`
	Text       *string     `json:"text,omitempty"`
}

// MarshalJSON emits the tag and exactly the fields of the request kind.
func (r Request) MarshalJSON() ([]byte, error) {
	w := requestWire{Type: r.Type}
	switch r.Type {
	case RequestStartSession:
		w.WorkingDir = &r.WorkingDir
	case RequestStopSession, RequestAttachSession:
		w.SessionID = &r.SessionID
	case RequestSendInput:
		w.SessionID = &r.SessionID
		w.Text = &r.Text
	case RequestListSessions, RequestPing, RequestShutdown:
	default:
		return nil, fmt.Errorf("unknown request type %q", r.Type)
	}
	return json.Marshal(w)
}

// UnmarshalJSON rejects unknown tags and missing fields.
func (r *Request) UnmarshalJSON(data []byte) error {
	var w requestWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	need := func(name string, v *string) (string, error) {
		if v == nil {
			return "", fmt.Errorf("%s request missing field %q", w.Type, name)
		}
		return *v, nil
	}

	out := Request{Type: w.Type}
	var err error
	switch w.Type {
	case RequestStartSession:
		out.WorkingDir, err = need("working_dir", w.WorkingDir)
	case RequestStopSession, RequestAttachSession:
		out.SessionID, err = need("session_id", w.SessionID)
	case RequestSendInput:
		if out.SessionID, err = need("session_id", w.SessionID); err == nil {
			out.Text, err = need("text", w.Text)
		}
	case RequestListSessions, RequestPing, RequestShutdown:
	case "":
		return errors.New("missing request type")
	default:
		return fmt.Errorf("unknown request type %q", w.Type)
	}
	if err != nil {
		return err
	}
	*r = out
	return nil
}

// ResponseType tags a Response.
type ResponseType string

const (
	ResponseSessionStarted ResponseType = "session_started"
	ResponseSessionList    ResponseType = "session_list"
	ResponseSessionStopped ResponseType = "session_stopped"
	// ResponseLogChunk is reserved for streaming attach.
	ResponseLogChunk ResponseType = "log_chunk"
	ResponsePong     ResponseType = "pong"
	ResponseOK       ResponseType = "ok"
	ResponseError    ResponseType = "error"
)

// Response is the daemon's answer to a Request.
type Response struct {
	Type      ResponseType
	SessionID string
	LogPath   string
	Sessions  []models.SessionInfo
	Data      []byte
	Message   string
}

// SessionStarted reports a new session.
func SessionStarted(id, logPath string) Response {
	return Response{Type: ResponseSessionStarted, SessionID: id, LogPath: logPath}
}

// SessionList carries the result of ListSessions.
func SessionList(sessions []models.SessionInfo) Response {
	return Response{Type: ResponseSessionList, Sessions: sessions}
}

// SessionStopped confirms a stop.
func SessionStopped(id string) Response {
	return Response{Type: ResponseSessionStopped, SessionID: id}
}

// LogChunk carries a piece of session output.
func LogChunk(id string, data []byte) Response {
	return Response{Type: ResponseLogChunk, SessionID: id, Data: data}
}

// Pong answers Ping.
func Pong() Response { return Response{Type: ResponsePong} }

// OK is a bare success.
func OK() Response { return Response{Type: ResponseOK} }

// ErrorResponse reports a failed request.
func ErrorResponse(message string) Response {
	return Response{Type: ResponseError, Message: message}
}

// IsError reports whether the daemon rejected the request.
func (r Response) IsError() bool {
	return r.Type == ResponseError
}

type responseWire struct {
	Type      ResponseType          `json:"type"`
	SessionID *string               `json:"session_id,omitempty"`
	LogPath   *string               `json:"log_path,omitempty"`
	Sessions  *[]models.SessionInfo `json:"sessions,omitempty"`
	Data      *[]byte               `json:"data,omitempty"`
	Message   *string               `json:"message,omitempty"`
}

// MarshalJSON emits the tag and exactly the fields of the response kind.
func (r Response) MarshalJSON() ([]byte, error) {
	w := responseWire{Type: r.Type}
	switch r.Type {
	case ResponseSessionStarted:
		w.SessionID = &r.SessionID
		w.LogPath = &r.LogPath
	case ResponseSessionList:
		sessions := r.Sessions
		if sessions == nil {
			sessions = []models.SessionInfo{}
		}
		w.Sessions = &sessions
	case ResponseSessionStopped:
		w.SessionID = &r.SessionID
	case ResponseLogChunk:
		w.SessionID = &r.SessionID
		w.Data = &r.Data
	case ResponseError:
		w.Message = &r.Message
	case ResponsePong, ResponseOK:
	default:
		return nil, fmt.Errorf("unknown response type %q", r.Type)
	}
	return json.Marshal(w)
}

// UnmarshalJSON rejects unknown tags.
func (r *Response) UnmarshalJSON(data []byte) error {
	var w responseWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Type {
	case ResponseSessionStarted, ResponseSessionList, ResponseSessionStopped,
		ResponseLogChunk, ResponsePong, ResponseOK, ResponseError:
	case "":
		return errors.New("missing response type")
	default:
		return fmt.Errorf("unknown response type %q", w.Type)
	}

	out := Response{Type: w.Type}
	if w.SessionID != nil {
		out.SessionID = *w.SessionID
	}
	if w.LogPath != nil {
		out.LogPath = *w.LogPath
	}
	if w.Sessions != nil {
		out.Sessions = *w.Sessions
	}
	if w.Data != nil {
		out.Data = *w.Data
	}
	if w.Message != nil {
		out.Message = *w.Message
	}
	*r = out
	return nil
}

// WriteMessage encodes v as one newline-terminated line.
func WriteMessage(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// ReadLine reads one protocol line. The newline is optional when the peer
// closes its side instead. An empty stream yields io.EOF.
func ReadLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > MaxLineSize {
			return nil, fmt.Errorf("line exceeds %d bytes", MaxLineSize)
		}
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) && len(line) > 0 {
			break
		}
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

// DecodeRequest parses a single request line.
func DecodeRequest(line []byte) (Request, error) {
	var req Request
	if len(bytes.TrimSpace(line)) == 0 {
		return req, errors.New("empty request")
	}
	err := json.Unmarshal(line, &req)
	return req, err
}

// DecodeResponse parses a single response line.
func DecodeResponse(line []byte) (Response, error) {
	var resp Response
	if len(bytes.TrimSpace(line)) == 0 {
		return resp, errors.New("empty response")
	}
	err := json.Unmarshal(line, &resp)
	return resp, err
}
