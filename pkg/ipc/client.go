package ipc

import (
	"bufio"
	"context"
	"net"
	"os"
	"time"

	daemonerrors "github.com/grovetools/claude-sessions/errors"
	"github.com/grovetools/claude-sessions/pkg/models"
)

// DefaultTimeout bounds an exchange when the context has no deadline.
const DefaultTimeout = 10 * time.Second

// Client talks to the daemon over its Unix socket, one connection per request.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the daemon listening on socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: DefaultTimeout}
}

// SocketPath returns the socket the client dials.
func (c *Client) SocketPath() string {
	return c.socketPath
}

// IsDaemonRunning reports whether the socket exists and accepts connections.
func (c *Client) IsDaemonRunning() bool {
	if _, err := os.Stat(c.socketPath); err != nil {
		return false
	}
	conn, err := net.DialTimeout("unix", c.socketPath, 100*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Send performs one exchange. Connection failures are UNAVAILABLE errors and
// undecodable replies are PROTOCOL errors; an Error response is returned as a
// response, not an error.
func (c *Client) Send(ctx context.Context, req Request) (Response, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return Response{}, daemonerrors.DaemonUnavailable(c.socketPath, err)
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	_ = conn.SetDeadline(deadline)

	if err := WriteMessage(conn, req); err != nil {
		return Response{}, daemonerrors.DaemonUnavailable(c.socketPath, err)
	}

	line, err := ReadLine(bufio.NewReader(conn))
	if err != nil {
		return Response{}, daemonerrors.ProtocolFailure(err)
	}
	resp, err := DecodeResponse(line)
	if err != nil {
		return Response{}, daemonerrors.ProtocolFailure(err)
	}
	return resp, nil
}

// call sends req and turns an Error response or an unexpected kind into an error.
func (c *Client) call(ctx context.Context, req Request, want ResponseType) (Response, error) {
	resp, err := c.Send(ctx, req)
	if err != nil {
		return resp, err
	}
	if resp.IsError() {
		return resp, daemonerrors.RemoteError(resp.Message)
	}
	if resp.Type != want {
		return resp, daemonerrors.New(daemonerrors.ErrCodeProtocol,
			"unexpected response "+string(resp.Type)+" to "+string(req.Type))
	}
	return resp, nil
}

// StartSession starts a session in workingDir and returns its id and log path.
func (c *Client) StartSession(ctx context.Context, workingDir string) (string, string, error) {
	resp, err := c.call(ctx, StartSession(workingDir), ResponseSessionStarted)
	if err != nil {
		return "", "", err
	}
	return resp.SessionID, resp.LogPath, nil
}

// ListSessions returns every session known to the daemon.
func (c *Client) ListSessions(ctx context.Context) ([]models.SessionInfo, error) {
	resp, err := c.call(ctx, ListSessions(), ResponseSessionList)
	if err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// StopSession stops and removes a session.
func (c *Client) StopSession(ctx context.Context, id string) error {
	_, err := c.call(ctx, StopSession(id), ResponseSessionStopped)
	return err
}

// SendInput writes text to a session's agent.
func (c *Client) SendInput(ctx context.Context, id, text string) error {
	_, err := c.call(ctx, SendInput(id, text), ResponseOK)
	return err
}

// AttachSession asks for a live stream. The daemon currently always refuses.
func (c *Client) AttachSession(ctx context.Context, id string) error {
	_, err := c.call(ctx, AttachSession(id), ResponseLogChunk)
	return err
}

// Ping checks the daemon answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, Ping(), ResponsePong)
	return err
}

// Shutdown asks the daemon to exit.
func (c *Client) Shutdown(ctx context.Context) error {
	_, err := c.call(ctx, Shutdown(), ResponseOK)
	return err
}
