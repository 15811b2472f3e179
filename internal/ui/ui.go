// Package ui is the UI process side of the bus: it renders host
// notifications and turns user commands into bus requests. The terminal
// shell in cmd/launcher-ui drives it; a graphical shell would do the same.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/specialistvlad/launcher/internal/bus"
)

// RequestTimeout bounds every request the shell issues.
const RequestTimeout = 10 * time.Second

// ErrQuit is returned by Exec after the host was asked to quit.
var ErrQuit = errors.New("ui: quit")

// View is what the UI currently shows.
type View struct {
	Route    string
	Startup  bus.StartupSnapshot
	Modals   []bus.ModalView
	Window   bus.WindowState
	Update   *bus.Update
	Protocol []bus.ProtocolEvent
}

// Shell mirrors host state and sends user commands.
type Shell struct {
	bus    *bus.Bus
	out    io.Writer
	logger *slog.Logger

	mu   sync.Mutex
	view View
}

// NewShell renders into out.
func NewShell(b *bus.Bus, out io.Writer, logger *slog.Logger) *Shell {
	return &Shell{bus: b, out: out, logger: logger.With("component", "ui")}
}

// Attach subscribes to every host notification.
func (s *Shell) Attach() {
	bus.OnFunc(s.bus, bus.StartupState, func(_ context.Context, v *bus.StartupSnapshot) {
		s.update(func(view *View) { view.Startup = *v })
		s.printf("startup: phase=%s checking=%t account=%q runtime=%t\n", v.Phase, v.LoginChecking, v.CurrentAccount, v.RuntimeValid)
	})
	bus.OnFunc(s.bus, bus.ModalsChanged, func(_ context.Context, v *bus.ModalList) {
		s.update(func(view *View) { view.Modals = v.Modals })
		kinds := make([]string, 0, len(v.Modals))
		for _, m := range v.Modals {
			kinds = append(kinds, m.Kind)
		}
		s.printf("modals: [%s]\n", strings.Join(kinds, ", "))
	})
	bus.OnFunc(s.bus, bus.Navigate, func(_ context.Context, v *bus.Route) {
		s.update(func(view *View) { view.Route = v.Path })
		s.printf("navigate: %s\n", v.Path)
	})
	bus.OnFunc(s.bus, bus.CustomProtocolEvent, func(_ context.Context, v *bus.ProtocolEvent) {
		s.update(func(view *View) { view.Protocol = append(view.Protocol, *v) })
		s.printf("protocol: %s %v\n", v.Action, v.Params)
	})
	onWindow := func(_ context.Context, v *bus.WindowState) {
		s.update(func(view *View) { view.Window = *v })
		s.printf("window: maximized=%t minimized=%t\n", v.Maximized, v.Minimized)
	}
	bus.OnFunc(s.bus, bus.WindowMaximized, onWindow)
	bus.OnFunc(s.bus, bus.WindowMinimized, onWindow)
	bus.OnFunc(s.bus, bus.FocusWindow, func(context.Context, *bus.Empty) {
		s.printf("window: focus\n")
	})
	bus.OnFunc(s.bus, bus.UpdateAvailable, func(_ context.Context, v *bus.Update) {
		s.update(func(view *View) { u := *v; view.Update = &u })
		s.printf("update: %s -> %s\n", v.Current, v.Latest)
	})
}

// Bootstrap asks the host for the basics the UI shows in its frame.
func (s *Shell) Bootstrap(ctx context.Context) (bus.UserData, error) {
	data, err := bus.CallTimeout[bus.UserData](ctx, s.bus, bus.GetUserData, bus.Empty{}, RequestTimeout)
	if err != nil {
		return bus.UserData{}, fmt.Errorf("getting user data: %w", err)
	}
	s.printf("launcher %s (%s), data in %s\n", data.AppVersion, data.ReleaseType, data.DataDir)
	return data, nil
}

// View returns a copy of the mirrored state.
func (s *Shell) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.view
	v.Modals = append([]bus.ModalView(nil), s.view.Modals...)
	v.Protocol = append([]bus.ProtocolEvent(nil), s.view.Protocol...)
	return v
}

// Exec runs one command line:
//
//	close [kind|all]   close the top modal, a kind, or every modal
//	open <kind>        open a modal
//	max | unmax | min  change the window state
//	presence           enable the presence integration
//	version            print the host version
//	quit               ask the host to quit
func (s *Shell) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	var err error
	switch fields[0] {
	case "close":
		req := bus.CloseModalRequest{Kind: arg}
		if arg == "all" {
			req = bus.CloseModalRequest{All: true}
		}
		_, err = bus.CallTimeout[bus.Empty](ctx, s.bus, bus.CloseModal, req, RequestTimeout)
	case "open":
		if arg == "" {
			return errors.New("open: kind is required")
		}
		_, err = bus.CallTimeout[bus.Empty](ctx, s.bus, bus.OpenModal, bus.OpenModalRequest{Kind: arg}, RequestTimeout)
	case "max":
		_, err = bus.CallTimeout[bus.WindowState](ctx, s.bus, bus.MaximizeWindow, bus.Empty{}, RequestTimeout)
	case "unmax":
		_, err = bus.CallTimeout[bus.WindowState](ctx, s.bus, bus.UnmaximizeWindow, bus.Empty{}, RequestTimeout)
	case "min":
		_, err = bus.CallTimeout[bus.WindowState](ctx, s.bus, bus.MinimizeWindow, bus.Empty{}, RequestTimeout)
	case "presence":
		_, err = bus.CallTimeout[bus.Empty](ctx, s.bus, bus.InitPresence, bus.Empty{}, RequestTimeout)
	case "version":
		var v bus.AppVersion
		v, err = bus.CallTimeout[bus.AppVersion](ctx, s.bus, bus.GetAppVersion, bus.Empty{}, RequestTimeout)
		if err == nil {
			s.printf("version: %s\n", v.Version)
		}
	case "quit":
		if _, err := bus.CallTimeout[bus.Empty](ctx, s.bus, bus.QuitApp, bus.Empty{}, RequestTimeout); err != nil {
			s.logger.Debug("Quit request did not complete.", "error", err)
		}
		return ErrQuit
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
	return err
}

func (s *Shell) update(fn func(*View)) {
	s.mu.Lock()
	fn(&s.view)
	s.mu.Unlock()
}

func (s *Shell) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}
