package app

import (
	"context"
	"errors"

	"github.com/specialistvlad/launcher/internal/bus"
	"github.com/specialistvlad/launcher/internal/store"
)

// errQuitRequested is the cancel cause when the UI asks the host to quit.
var errQuitRequested = errors.New("quit requested by ui")

// presenceEnabler is the part of the presence service the UI may trigger.
type presenceEnabler interface {
	Enable(ctx context.Context) error
}

// registerHandlers installs the host's request handlers on b.
func (a *App) registerHandlers(b *bus.Bus, presence presenceEnabler) {
	bus.HandleFunc(b, bus.GetUserData, func(ctx context.Context, _ *bus.Empty) (any, error) {
		return bus.UserData{
			DataDir:     a.config.DataDir,
			AppVersion:  a.appConfig.Version,
			ReleaseType: a.config.ReleaseType,
		}, nil
	})

	bus.HandleFunc(b, bus.GetAppVersion, func(ctx context.Context, _ *bus.Empty) (any, error) {
		return bus.AppVersion{Version: a.appConfig.Version}, nil
	})

	enablePresence := func(ctx context.Context) error {
		if presence == nil {
			return errors.New("presence integration is not configured")
		}
		return presence.Enable(ctx)
	}
	bus.HandleFunc(b, bus.InitPresence, func(ctx context.Context, _ *bus.Empty) (any, error) {
		if err := enablePresence(ctx); err != nil {
			return nil, err
		}
		return bus.Empty{}, nil
	})
	// The UI usually fires this without waiting for an answer.
	bus.OnFunc(b, bus.InitPresence, func(ctx context.Context, _ *bus.Empty) {
		if err := enablePresence(ctx); err != nil {
			a.logger.Warn("Could not enable presence.", "error", err)
		}
	})

	bus.HandleFunc(b, bus.OpenModal, func(ctx context.Context, req *bus.OpenModalRequest) (any, error) {
		if req.Kind == "" {
			return nil, errors.New("open-modal: kind is required")
		}
		a.store.Dispatch(store.OpenModal{Kind: req.Kind, Props: req.Props, Blocking: req.PreventClose})
		return bus.Empty{}, nil
	})

	bus.HandleFunc(b, bus.CloseModal, func(ctx context.Context, req *bus.CloseModalRequest) (any, error) {
		switch {
		case req.All:
			a.store.Dispatch(store.CloseAllModals{})
		case req.Kind != "":
			a.store.Dispatch(store.CloseModalKind{Kind: req.Kind})
		default:
			a.store.Dispatch(store.CloseModal{})
		}
		return bus.Empty{}, nil
	})

	bus.HandleFunc(b, bus.QuitApp, func(ctx context.Context, _ *bus.Empty) (any, error) {
		a.logger.Info("Quit requested by UI.")
		a.requestQuit(errQuitRequested)
		return bus.Empty{}, nil
	})
}

func (a *App) requestQuit(cause error) {
	a.mu.Lock()
	quit := a.quit
	a.mu.Unlock()
	if quit != nil {
		quit(cause)
	}
}
