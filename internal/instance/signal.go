package instance

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"
)

// Launch describes a second launch that was turned away.
type Launch struct {
	Argv []string `json:"argv"`
	Cwd  string   `json:"cwd,omitempty"`
}

// URL returns the first argument that uses scheme, for example
// "launcher://open?instance=x".
func (l Launch) URL(scheme string) (string, bool) {
	if scheme == "" {
		return "", false
	}
	prefix := strings.ToLower(scheme) + "://"
	for _, arg := range l.Argv {
		if strings.HasPrefix(strings.ToLower(arg), prefix) {
			return arg, true
		}
	}
	return "", false
}

// Listen accepts second-launch notifications on the unix socket at path
// and calls fn for each, in arrival order. Only the lock holder may call
// it; a leftover socket file from a crashed holder is removed first. It
// returns when ctx ends.
func Listen(ctx context.Context, path string, logger *slog.Logger, fn func(Launch)) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing stale socket: %w", err)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", path)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", path, err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	defer os.Remove(path)

	logger.Debug("Listening for second launches.", "socket", path)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accepting second launch: %w", err)
		}
		launch, err := readLaunch(conn)
		conn.Close()
		if err != nil {
			logger.Warn("Ignoring malformed second launch.", "error", err)
			continue
		}
		logger.Info("Second launch received.", "argv", launch.Argv)
		fn(launch)
	}
}

func readLaunch(conn net.Conn) (Launch, error) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return Launch{}, err
	}
	var launch Launch
	if err := json.Unmarshal(line, &launch); err != nil {
		return Launch{}, fmt.Errorf("decoding launch: %w", err)
	}
	return launch, nil
}

// Notify hands launch to the running instance listening at path.
func Notify(ctx context.Context, path string, launch Launch) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return fmt.Errorf("dialing running instance: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	raw, err := json.Marshal(launch)
	if err != nil {
		return fmt.Errorf("encoding launch: %w", err)
	}
	if _, err := conn.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("writing launch: %w", err)
	}
	return nil
}
