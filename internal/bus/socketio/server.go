package socketio

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/zishang520/socket.io/v2/socket"
)

// ErrNotConnected is returned by Send while no UI process is attached.
var ErrNotConnected = errors.New("socketio: no ui connected")

// Server is the host side transport. It serves one UI connection at a
// time; a newer connection replaces the older one.
type Server struct {
	io     *socket.Server
	inbox  *inbox
	logger *slog.Logger

	mu        sync.Mutex
	conn      *socket.Socket
	onConnect []func()
}

// NewServer creates the socket.io server. Mount Handler() on an HTTP mux.
func NewServer(logger *slog.Logger) *Server {
	s := &Server{
		io:     socket.NewServer(nil, nil),
		inbox:  newInbox(),
		logger: logger.With("component", "socketio_server"),
	}
	s.io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		s.attach(client)
	})
	return s
}

// Handler returns the socket.io endpoint, by default served under /socket.io/.
func (s *Server) Handler() http.Handler {
	return s.io.ServeHandler(nil)
}

// OnConnect registers fn to run each time a UI process attaches.
func (s *Server) OnConnect(fn func()) {
	s.mu.Lock()
	s.onConnect = append(s.onConnect, fn)
	s.mu.Unlock()
}

// Connected reports whether a UI process is attached.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

func (s *Server) attach(client *socket.Socket) {
	logger := s.logger.With("sid", client.Id())

	s.mu.Lock()
	previous := s.conn
	s.conn = client
	hooks := append([]func(){}, s.onConnect...)
	s.mu.Unlock()

	if previous != nil {
		logger.Info("Replacing previous UI connection.", "previous_sid", previous.Id())
		previous.Disconnect(true)
	}
	logger.Info("🔌 UI connected.")

	client.On(EventName, func(args ...any) {
		if err := s.inbox.push(args); err != nil {
			logger.Warn("Dropping inbound frame.", "error", err)
		}
	})
	client.On("disconnect", func(reason ...any) {
		s.mu.Lock()
		if s.conn == client {
			s.conn = nil
		}
		s.mu.Unlock()
		logger.Info("🔌 UI disconnected.", "reason", reason)
	})

	for _, fn := range hooks {
		fn()
	}
}

// Send emits frame to the attached UI.
func (s *Server) Send(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.Emit(EventName, string(frame))
}

// Receive returns the next frame sent by the UI.
func (s *Server) Receive(ctx context.Context) ([]byte, error) {
	return s.inbox.receive(ctx)
}

// Close disconnects the UI and stops the server.
func (s *Server) Close() error {
	s.inbox.close()
	done := make(chan error, 1)
	s.io.Close(func(err error) { done <- err })
	return <-done
}
