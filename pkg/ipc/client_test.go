package ipc

import (
	"bufio"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	daemonerrors "github.com/grovetools/claude-sessions/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortSocket(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "cs")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "d.sock")
}

// serveOnce answers a single connection with reply.
func serveOnce(t *testing.T, socket string, reply string) <-chan []byte {
	t.Helper()
	ln, err := net.Listen("unix", socket)
	require.NoError(t, err)
	got := make(chan []byte, 1)
	go func() {
		defer ln.Close()
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := ReadLine(bufio.NewReader(conn))
		got <- line
		_, _ = conn.Write([]byte(reply))
	}()
	return got
}

func TestClientUnavailable(t *testing.T) {
	client := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	assert.False(t, client.IsDaemonRunning())

	_, err := client.Send(context.Background(), Ping())
	require.Error(t, err)
	assert.True(t, daemonerrors.Is(err, daemonerrors.ErrCodeUnavailable))
}

func TestClientSendsOneLine(t *testing.T) {
	socket := shortSocket(t)
	got := serveOnce(t, socket, "{\"type\":\"pong\"}\n")

	client := NewClient(socket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(ctx))
	assert.Equal(t, `{"type":"ping"}`, string(<-got))
}

func TestClientProtocolFailure(t *testing.T) {
	socket := shortSocket(t)
	serveOnce(t, socket, "this is not json\n")

	_, err := NewClient(socket).Send(context.Background(), ListSessions())
	require.Error(t, err)
	assert.True(t, daemonerrors.Is(err, daemonerrors.ErrCodeProtocol))
}

func TestClientRemoteError(t *testing.T) {
	socket := shortSocket(t)
	serveOnce(t, socket, "{\"type\":\"error\",\"message\":\"session not found: x\"}\n")

	err := NewClient(socket).StopSession(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, daemonerrors.Is(err, daemonerrors.ErrCodeRemote))
	assert.False(t, daemonerrors.Is(err, daemonerrors.ErrCodeUnavailable))
	assert.Contains(t, err.Error(), "session not found")
}

func TestClientUnexpectedResponse(t *testing.T) {
	socket := shortSocket(t)
	serveOnce(t, socket, "{\"type\":\"ok\"}\n")

	err := NewClient(socket).Ping(context.Background())
	assert.True(t, daemonerrors.Is(err, daemonerrors.ErrCodeProtocol))
}
