// Package window tracks the launcher's single main window. In this
// process model the window is the UI process; the manager creates it,
// restores and focuses it for second launches, and reports size changes
// to the UI over the bus.
package window

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/specialistvlad/launcher/internal/bus"
)

// Surface is one live main window.
type Surface interface {
	// Done is closed when the window goes away on its own.
	Done() <-chan struct{}
	Close() error
}

// Opener creates a new Surface.
type Opener func(ctx context.Context) (Surface, error)

// Emitter sends a notification to the UI.
type Emitter func(ev bus.Event, payload any) error

// Manager owns at most one Surface.
type Manager struct {
	open   Opener
	emit   Emitter
	logger *slog.Logger

	mu          sync.Mutex
	surface     Surface
	minimized   bool
	maximized   bool
	onAllClosed []func()
	quitting    bool
}

// NewManager returns a manager without a window.
func NewManager(open Opener, emit Emitter, logger *slog.Logger) *Manager {
	return &Manager{open: open, emit: emit, logger: logger.With("component", "window")}
}

// OnAllClosed registers fn to run when the window closes by itself.
func (m *Manager) OnAllClosed(fn func()) {
	m.mu.Lock()
	m.onAllClosed = append(m.onAllClosed, fn)
	m.mu.Unlock()
}

// Open creates the window when none exists. It reports whether a window
// was created.
func (m *Manager) Open(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openLocked(ctx)
}

// Activate is the dock/taskbar activation path: it only creates a
// missing window.
func (m *Manager) Activate(ctx context.Context) error {
	_, err := m.Open(ctx)
	return err
}

// SecondInstance handles a later launch: create the window when absent,
// otherwise restore it from minimized and focus it.
func (m *Manager) SecondInstance(ctx context.Context) error {
	m.mu.Lock()
	created, err := m.openLocked(ctx)
	if err != nil || created {
		m.mu.Unlock()
		return err
	}
	wasMinimized := m.minimized
	m.minimized = false
	state := m.stateLocked()
	m.mu.Unlock()

	if wasMinimized {
		m.notify(bus.WindowMinimized, state)
	}
	m.notify(bus.FocusWindow, bus.Empty{})
	return nil
}

// Exists reports whether a window is open.
func (m *Manager) Exists() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.surface != nil
}

// State returns the current size state.
func (m *Manager) State() bus.WindowState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// Maximize marks the window maximized and tells the UI.
func (m *Manager) Maximize() bus.WindowState {
	state := m.update(func() { m.maximized, m.minimized = true, false })
	m.notify(bus.WindowMaximized, state)
	return state
}

// Unmaximize restores the window from maximized and tells the UI.
func (m *Manager) Unmaximize() bus.WindowState {
	state := m.update(func() { m.maximized = false })
	m.notify(bus.WindowMinimized, state)
	return state
}

// Minimize marks the window minimized and tells the UI.
func (m *Manager) Minimize() bus.WindowState {
	state := m.update(func() { m.minimized = true })
	m.notify(bus.WindowMinimized, state)
	return state
}

// Close tears the window down before quitting. The all-closed callbacks
// do not run.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.quitting = true
	s := m.surface
	m.surface = nil
	m.mu.Unlock()
	if s == nil {
		return nil
	}
	m.logger.Debug("Closing main window.")
	return s.Close()
}

// Register installs the window request handlers on b.
func (m *Manager) Register(b *bus.Bus) {
	bus.HandleFunc(b, bus.MaximizeWindow, func(ctx context.Context, _ *bus.Empty) (any, error) {
		return m.Maximize(), nil
	})
	bus.HandleFunc(b, bus.UnmaximizeWindow, func(ctx context.Context, _ *bus.Empty) (any, error) {
		return m.Unmaximize(), nil
	})
	bus.HandleFunc(b, bus.MinimizeWindow, func(ctx context.Context, _ *bus.Empty) (any, error) {
		return m.Minimize(), nil
	})
}

func (m *Manager) openLocked(ctx context.Context) (bool, error) {
	if m.surface != nil {
		return false, nil
	}
	if m.quitting {
		return false, errors.New("window: quitting")
	}
	s, err := m.open(ctx)
	if err != nil {
		return false, fmt.Errorf("opening main window: %w", err)
	}
	m.surface = s
	m.minimized, m.maximized = false, false
	m.logger.Info("🪟 Main window created.")
	go m.watch(s)
	return true, nil
}

func (m *Manager) watch(s Surface) {
	<-s.Done()

	m.mu.Lock()
	if m.surface != s {
		m.mu.Unlock()
		return
	}
	m.surface = nil
	hooks := append([]func(){}, m.onAllClosed...)
	m.mu.Unlock()

	m.logger.Info("🪟 Main window closed.")
	for _, fn := range hooks {
		fn()
	}
}

func (m *Manager) update(fn func()) bus.WindowState {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
	return m.stateLocked()
}

func (m *Manager) stateLocked() bus.WindowState {
	return bus.WindowState{Maximized: m.maximized, Minimized: m.minimized}
}

func (m *Manager) notify(ev bus.Event, payload any) {
	if m.emit == nil {
		return
	}
	if err := m.emit(ev, payload); err != nil {
		m.logger.Debug("Window notification not delivered.", "event", ev, "error", err)
	}
}
