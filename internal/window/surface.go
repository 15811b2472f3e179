package window

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
)

// BusURLEnv tells the UI process where the host bus listens.
const BusURLEnv = "LAUNCHER_BUS_URL"

// ProcessOpener starts command as the UI process for each new window.
func ProcessOpener(command []string, busURL func() string, logger *slog.Logger) Opener {
	return func(ctx context.Context) (Surface, error) {
		if len(command) == 0 {
			return nil, errors.New("window: empty ui command")
		}
		cmd := exec.Command(command[0], command[1:]...)
		cmd.Env = append(os.Environ(), BusURLEnv+"="+busURL())
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("starting ui process: %w", err)
		}
		logger.Info("UI process started.", "pid", cmd.Process.Pid, "command", command[0])

		p := &processSurface{cmd: cmd, done: make(chan struct{})}
		go func() {
			err := cmd.Wait()
			logger.Info("UI process exited.", "pid", cmd.Process.Pid, "error", err)
			close(p.done)
		}()
		return p, nil
	}
}

type processSurface struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func (p *processSurface) Done() <-chan struct{} { return p.done }

func (p *processSurface) Close() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
		return p.cmd.Process.Kill()
	}
	return nil
}

// DetachedOpener is used when the UI process is started by other means
// and connects to the bus on its own. Its surface only ends on Close.
func DetachedOpener() Opener {
	return func(ctx context.Context) (Surface, error) {
		return &detachedSurface{done: make(chan struct{})}, nil
	}
}

type detachedSurface struct {
	once sync.Once
	done chan struct{}
}

func (d *detachedSurface) Done() <-chan struct{} { return d.done }

func (d *detachedSurface) Close() error {
	d.once.Do(func() { close(d.done) })
	return nil
}
