// Package server serves the daemon's line-JSON protocol over a Unix socket.
package server

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	daemonerrors "github.com/grovetools/claude-sessions/errors"
	"github.com/grovetools/claude-sessions/pkg/ipc"
	"github.com/grovetools/claude-sessions/pkg/models"
	"github.com/sirupsen/logrus"
)

// connTimeout bounds how long one client may hold the sequential accept loop.
const connTimeout = 30 * time.Second

// SessionManager is the part of the manager the server dispatches to.
type SessionManager interface {
	StartSession(workingDir string) (models.Session, error)
	StopSession(id models.SessionID) error
	ListSessions() []models.SessionInfo
	SendInput(id models.SessionID, text string) error
}

// Server answers one request per connection, one connection at a time.
type Server struct {
	logger     *logrus.Entry
	manager    SessionManager
	listener   net.Listener
	socketPath string

	mu           sync.Mutex
	shutdownOnce sync.Once
	done         chan struct{}
}

// New creates a new Server instance.
func New(manager SessionManager, logger *logrus.Entry) *Server {
	return &Server{
		logger:  logger,
		manager: manager,
		done:    make(chan struct{}),
	}
}

// Done is closed once shutdown has been requested.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// ListenAndServe binds socketPath and serves until Shutdown is called or a
// Shutdown request arrives. The socket file is removed on return.
func (s *Server) ListenAndServe(socketPath string) error {
	if err := s.Listen(socketPath); err != nil {
		return err
	}
	return s.Serve()
}

// Listen binds the socket without serving. Connections queue in the backlog
// until Serve is called, which lets the daemon finish recovery first.
func (s *Server) Listen(socketPath string) error {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	if err := clearStaleSocket(socketPath); err != nil {
		return err
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	// Set restrictive permissions on socket
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		_ = os.Remove(socketPath)
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.socketPath = socketPath
	s.mu.Unlock()

	// Shutdown may have raced ahead of the bind.
	select {
	case <-s.done:
		_ = listener.Close()
	default:
	}
	return nil
}

// Serve runs the accept loop on the socket bound by Listen.
func (s *Server) Serve() error {
	s.mu.Lock()
	listener, socketPath := s.listener, s.socketPath
	s.mu.Unlock()
	if listener == nil {
		return errors.New("server is not listening")
	}

	s.logger.WithField("socket", socketPath).Info("Daemon listening")
	err := s.serve(listener)

	if rmErr := os.Remove(socketPath); rmErr != nil && !os.IsNotExist(rmErr) {
		s.logger.WithError(rmErr).Warn("Failed to remove socket")
	}
	s.logger.Info("Server stopped")
	return err
}

func (s *Server) serve(listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		s.handleConn(conn)
	}
}

// Shutdown interrupts the accept loop. It is safe to call more than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.logger.Info("Shutting down server...")
		close(s.done)
		s.mu.Lock()
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.mu.Unlock()
	})
}

// handleConn reads exactly one request and writes exactly one response.
// Anything after the first line is ignored.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(connTimeout))

	var resp ipc.Response
	shutdown := false

	line, err := ipc.ReadLine(bufio.NewReader(conn))
	if err != nil {
		s.logger.WithError(err).Debug("Failed to read request")
		resp = ipc.ErrorResponse(daemonerrors.ProtocolFailure(err).Error())
	} else if req, err := ipc.DecodeRequest(line); err != nil {
		s.logger.WithError(err).Warn("Malformed request")
		resp = ipc.ErrorResponse(daemonerrors.ProtocolFailure(err).Error())
	} else {
		resp, shutdown = s.Handle(req)
	}

	if err := ipc.WriteMessage(conn, resp); err != nil {
		s.logger.WithError(err).Debug("Failed to write response")
	}

	if shutdown {
		s.Shutdown()
	}
}

// Handle dispatches a decoded request. The boolean is true when the daemon
// should stop after answering.
func (s *Server) Handle(req ipc.Request) (ipc.Response, bool) {
	log := s.logger.WithField("request", string(req.Type))

	switch req.Type {
	case ipc.RequestStartSession:
		session, err := s.manager.StartSession(req.WorkingDir)
		if err != nil {
			log.WithError(err).Warn("Start failed")
			return ipc.ErrorResponse(err.Error()), false
		}
		return ipc.SessionStarted(session.ID.String(), session.LogPath), false

	case ipc.RequestListSessions:
		return ipc.SessionList(s.manager.ListSessions()), false

	case ipc.RequestStopSession:
		id, err := parseID(req.SessionID)
		if err == nil {
			err = s.manager.StopSession(id)
		}
		if err != nil {
			log.WithError(err).Warn("Stop failed")
			return ipc.ErrorResponse(err.Error()), false
		}
		return ipc.SessionStopped(id.String()), false

	case ipc.RequestSendInput:
		id, err := parseID(req.SessionID)
		if err == nil {
			err = s.manager.SendInput(id, req.Text)
		}
		if err != nil {
			log.WithError(err).Warn("Send input failed")
			return ipc.ErrorResponse(err.Error()), false
		}
		return ipc.OK(), false

	case ipc.RequestAttachSession:
		return ipc.ErrorResponse(daemonerrors.NotImplemented("attach").Error()), false

	case ipc.RequestPing:
		return ipc.Pong(), false

	case ipc.RequestShutdown:
		log.Info("Shutdown requested by client")
		return ipc.OK(), true
	}

	return ipc.ErrorResponse(fmt.Sprintf("unsupported request type %q", req.Type)), false
}

func parseID(raw string) (models.SessionID, error) {
	id, err := models.ParseSessionID(raw)
	if err != nil {
		return id, daemonerrors.InvalidSessionID(raw)
	}
	return id, nil
}

// clearStaleSocket removes a socket left by a dead daemon. A socket that still
// accepts connections belongs to a live daemon and is reported as in use.
func clearStaleSocket(socketPath string) error {
	if _, err := os.Stat(socketPath); err != nil {
		return nil
	}
	conn, err := net.DialTimeout("unix", socketPath, 200*time.Millisecond)
	if err == nil {
		conn.Close()
		return fmt.Errorf("failed to listen on socket %s: %w", socketPath, syscall.EADDRINUSE)
	}
	if err := os.Remove(socketPath); err != nil {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}
	return nil
}
