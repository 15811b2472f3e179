// Package presence publishes the launcher's activity to a local Discord
// client over its IPC socket.
package presence

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	opHandshake uint32 = 0
	opFrame     uint32 = 1
	opClose     uint32 = 2
)

// ErrDisabled is returned when no client id is configured.
var ErrDisabled = errors.New("presence: no client id configured")

// Dialer opens the IPC connection.
type Dialer func(ctx context.Context) (net.Conn, error)

// Service keeps one IPC connection open once enabled.
type Service struct {
	clientID string
	dial     Dialer
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	conn    net.Conn
	started time.Time
}

// New returns a service for the Discord application clientID.
func New(clientID string, logger *slog.Logger) *Service {
	return &Service{
		clientID: clientID,
		dial:     dialIPC,
		logger:   logger.With("component", "presence"),
		now:      time.Now,
	}
}

// WithDialer replaces the IPC dialer.
func (s *Service) WithDialer(d Dialer) *Service {
	s.dial = d
	return s
}

// Enabled reports whether a connection is open.
func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Enable connects, performs the handshake and publishes the idle
// activity. Calling it again while connected does nothing.
func (s *Service) Enable(ctx context.Context) error {
	if s.clientID == "" {
		return ErrDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return nil
	}

	conn, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("presence: connecting: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if err := writeFrame(conn, opHandshake, map[string]any{"v": 1, "client_id": s.clientID}); err != nil {
		conn.Close()
		return fmt.Errorf("presence: handshake: %w", err)
	}
	if _, _, err := readFrame(conn); err != nil {
		conn.Close()
		return fmt.Errorf("presence: handshake reply: %w", err)
	}
	_ = conn.SetDeadline(time.Time{})

	s.conn = conn
	s.started = s.now()
	s.logger.Info("Presence enabled.")
	return s.setActivity("In the launcher")
}

// SetActivity replaces the published activity details.
func (s *Service) SetActivity(details string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.setActivity(details)
}

func (s *Service) setActivity(details string) error {
	cmd := map[string]any{
		"cmd":   "SET_ACTIVITY",
		"nonce": uuid.NewString(),
		"args": map[string]any{
			"pid": os.Getpid(),
			"activity": map[string]any{
				"details":    details,
				"timestamps": map[string]any{"start": s.started.Unix()},
			},
		},
	}
	if err := writeFrame(s.conn, opFrame, cmd); err != nil {
		return fmt.Errorf("presence: set activity: %w", err)
	}
	return nil
}

// Close ends the connection.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	_ = writeFrame(s.conn, opClose, map[string]any{})
	err := s.conn.Close()
	s.conn = nil
	return err
}

func writeFrame(w io.Writer, op uint32, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], op)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(body)))
	_, err = w.Write(append(header, body...))
	return err
}

func readFrame(r io.Reader) (uint32, []byte, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}
	op := binary.LittleEndian.Uint32(header[0:4])
	size := binary.LittleEndian.Uint32(header[4:8])
	if size > 1<<20 {
		return 0, nil, fmt.Errorf("frame too large: %d", size)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}
	return op, body, nil
}

func dialIPC(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	var lastErr error
	for _, dir := range ipcDirs() {
		for i := 0; i < 10; i++ {
			conn, err := d.DialContext(ctx, "unix", filepath.Join(dir, fmt.Sprintf("discord-ipc-%d", i)))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no ipc directory")
	}
	return nil, lastErr
}

func ipcDirs() []string {
	var dirs []string
	for _, key := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if v := os.Getenv(key); v != "" {
			dirs = append(dirs, v)
		}
	}
	return append(dirs, "/tmp")
}
