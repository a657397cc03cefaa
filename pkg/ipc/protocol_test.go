package ipc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/grovetools/claude-sessions/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestWireFormat(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"start", StartSession("/tmp/x"), `{"type":"start_session","working_dir":"/tmp/x"}`},
		{"list", ListSessions(), `{"type":"list_sessions"}`},
		{"stop", StopSession("abc"), `{"type":"stop_session","session_id":"abc"}`},
		{"send with empty text", SendInput("abc", ""), `{"type":"send_input","session_id":"abc","text":""}`},
		{"attach", AttachSession("abc"), `{"type":"attach_session","session_id":"abc"}`},
		{"ping", Ping(), `{"type":"ping"}`},
		{"shutdown", Shutdown(), `{"type":"shutdown"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.req)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			decoded, err := DecodeRequest(data)
			require.NoError(t, err)
			assert.Equal(t, tt.req, decoded)
		})
	}
}

func TestDecodeRequestRejects(t *testing.T) {
	bad := []string{
		``,
		`   `,
		`not json`,
		`{}`,
		`{"type":"launch_missiles"}`,
		`{"type":"start_session"}`,
		`{"type":"send_input","session_id":"abc"}`,
		`{"type":"stop_session"}`,
		`[1,2,3]`,
	}
	for _, line := range bad {
		_, err := DecodeRequest([]byte(line))
		assert.Error(t, err, "line %q", line)
	}
}

func TestResponseWireFormat(t *testing.T) {
	info := models.SessionInfo{ID: "abc", WorkingDir: "/w", CreatedAt: "2024-01-01T00:00:00Z", Status: models.StatusRunning, LogPath: "/l"}

	tests := []struct {
		name string
		resp Response
		want string
	}{
		{"started", SessionStarted("abc", "/l"), `{"type":"session_started","session_id":"abc","log_path":"/l"}`},
		{"empty list", SessionList(nil), `{"type":"session_list","sessions":[]}`},
		{"list", SessionList([]models.SessionInfo{info}), `{"type":"session_list","sessions":[{"id":"abc","working_dir":"/w","created_at":"2024-01-01T00:00:00Z","status":"running","log_path":"/l"}]}`},
		{"stopped", SessionStopped("abc"), `{"type":"session_stopped","session_id":"abc"}`},
		{"chunk", LogChunk("abc", []byte("hi")), `{"type":"log_chunk","session_id":"abc","data":"aGk="}`},
		{"pong", Pong(), `{"type":"pong"}`},
		{"ok", OK(), `{"type":"ok"}`},
		{"error", ErrorResponse("boom"), `{"type":"error","message":"boom"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.resp)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			decoded, err := DecodeResponse(data)
			require.NoError(t, err)
			assert.Equal(t, tt.resp.Type, decoded.Type)
			assert.Equal(t, tt.resp.Message, decoded.Message)
			assert.Equal(t, tt.resp.SessionID, decoded.SessionID)
		})
	}
}

func TestDecodeResponseUnknownType(t *testing.T) {
	_, err := DecodeResponse([]byte(`{"type":"surprise"}`))
	assert.Error(t, err)
}

func TestReadLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("{\"type\":\"ping\"}\n{\"type\":\"list_sessions\"}\n"))
	line, err := ReadLine(r)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"ping"}`, string(line))

	// Without a trailing newline the line ends at EOF.
	line, err = ReadLine(bufio.NewReader(strings.NewReader(`{"type":"ping"}`)))
	require.NoError(t, err)
	assert.Equal(t, `{"type":"ping"}`, string(line))

	_, err = ReadLine(bufio.NewReader(strings.NewReader("")))
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadLineLongAndOversized(t *testing.T) {
	long := strings.Repeat("a", 10000)
	line, err := ReadLine(bufio.NewReaderSize(strings.NewReader(long+"\n"), 16))
	require.NoError(t, err)
	assert.Len(t, line, 10000)

	huge := bytes.Repeat([]byte("a"), MaxLineSize+10)
	_, err = ReadLine(bufio.NewReader(bytes.NewReader(huge)))
	assert.Error(t, err)
}

func TestWriteMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, Ping()))
	assert.Equal(t, "{\"type\":\"ping\"}\n", buf.String())
}
