package app

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/specialistvlad/launcher/internal/bus"
	"github.com/specialistvlad/launcher/internal/bus/socketio"
	"github.com/specialistvlad/launcher/internal/store"
)

// uiBridge pushes store changes to the UI and carries navigation requests
// from the startup sequence.
type uiBridge struct {
	bus    *bus.Bus
	store  *store.Store
	logger *slog.Logger
}

func newUIBridge(b *bus.Bus, st *store.Store, logger *slog.Logger) *uiBridge {
	return &uiBridge{bus: b, store: st, logger: logger.With("component", "ui_bridge")}
}

func snapshotOf(s store.State) bus.StartupSnapshot {
	return bus.StartupSnapshot{
		Phase:          string(s.Phase),
		LoginChecking:  s.LoginChecking,
		CurrentAccount: s.CurrentAccount,
		RuntimeValid:   s.RuntimeValid,
		Warnings:       s.Warnings,
	}
}

func modalsOf(s store.State) bus.ModalList {
	list := bus.ModalList{Modals: make([]bus.ModalView, 0, len(s.Modals))}
	for _, m := range s.Modals {
		list.Modals = append(list.Modals, bus.ModalView{Kind: m.Kind, Props: m.Props, Blocking: m.Blocking})
	}
	return list
}

func snapshotChanged(prev, next store.State) bool {
	return prev.Phase != next.Phase ||
		prev.LoginChecking != next.LoginChecking ||
		prev.CurrentAccount != next.CurrentAccount ||
		prev.RuntimeValid != next.RuntimeValid ||
		!slices.Equal(prev.Warnings, next.Warnings)
}

// publish is a store listener.
func (u *uiBridge) publish(prev, next store.State) {
	if snapshotChanged(prev, next) {
		u.emit(bus.StartupState, snapshotOf(next))
	}
	if store.ModalsChanged(prev, next) {
		u.emit(bus.ModalsChanged, modalsOf(next))
	}
}

// resync sends the full current state, for a UI that just connected.
func (u *uiBridge) resync() {
	st := u.store.State()
	u.emit(bus.StartupState, snapshotOf(st))
	u.emit(bus.ModalsChanged, modalsOf(st))
}

func (u *uiBridge) emit(ev bus.Event, payload any) {
	err := u.bus.Emit(ev, payload)
	switch {
	case err == nil:
	case errors.Is(err, socketio.ErrNotConnected):
		u.logger.Debug("UI not connected, notification skipped.", "event", ev)
	default:
		u.logger.Warn("Notification failed.", "event", ev, "error", err)
	}
}

// Navigate implements startup.Navigator.
func (u *uiBridge) Navigate(_ context.Context, path string) error {
	return u.bus.Emit(bus.Navigate, bus.Route{Path: path})
}

// ForwardProtocol implements startup.Navigator.
func (u *uiBridge) ForwardProtocol(_ context.Context, ev bus.ProtocolEvent) error {
	return u.bus.Emit(bus.CustomProtocolEvent, ev)
}
