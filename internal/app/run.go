package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/specialistvlad/launcher/internal/account"
	"github.com/specialistvlad/launcher/internal/apiclient"
	"github.com/specialistvlad/launcher/internal/bus"
	"github.com/specialistvlad/launcher/internal/bus/socketio"
	"github.com/specialistvlad/launcher/internal/ctxlog"
	"github.com/specialistvlad/launcher/internal/deps"
	"github.com/specialistvlad/launcher/internal/hooks"
	"github.com/specialistvlad/launcher/internal/instance"
	"github.com/specialistvlad/launcher/internal/metadata"
	"github.com/specialistvlad/launcher/internal/persist"
	"github.com/specialistvlad/launcher/internal/presence"
	"github.com/specialistvlad/launcher/internal/runtime"
	"github.com/specialistvlad/launcher/internal/startup"
	"github.com/specialistvlad/launcher/internal/window"
	"golang.org/x/sync/errgroup"
)

// errWindowClosed is the cancel cause when the last window went away.
var errWindowClosed = errors.New("main window closed")

// Run starts the host and blocks until the user quits, ctx ends or startup
// aborts. A second instance hands its arguments to the running one and
// returns instance.ErrAlreadyRunning.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	ctx, quit := context.WithCancelCause(ctx)
	defer quit(nil)
	a.mu.Lock()
	a.quit = quit
	a.mu.Unlock()
	a.logger.Debug("App.Run method started.")
	a.logger.Info("🚀 Launcher starting.", "version", a.appConfig.Version, "release_type", a.config.ReleaseType, "data_dir", a.config.DataDir)

	cwd, _ := os.Getwd()
	launch := instance.Launch{Argv: a.appConfig.Args, Cwd: cwd}

	// The lock is taken before anything else is bound, so a losing
	// instance leaves no trace. Startup's lock check sees the cached result.
	guard := instance.NewGuard(a.config.LockPath())
	held, err := guard.Acquire()
	if err != nil {
		return fmt.Errorf("acquiring instance lock: %w", err)
	}
	if !held {
		a.logger.Info("Launcher is already running, handing over.", "lock", guard.Path())
		if err := instance.Notify(ctx, a.config.SocketPath(), launch); err != nil {
			a.logger.Warn("Could not reach the running instance.", "error", err)
		}
		return instance.ErrAlreadyRunning
	}
	defer guard.Release()

	server := socketio.NewServer(a.logger)
	b := bus.New(server,
		bus.WithLogger(a.logger.With("component", "bus")),
		bus.WithObserver(a.metrics.ObserveBus),
	)
	win := window.NewManager(a.opener(), b.Emit, a.logger)
	if err := a.startControlServer(a.controlMux(server.Handler(), server.Connected, win)); err != nil {
		return err
	}
	defer a.closeControlServer()
	defer server.Close()
	defer win.Close()
	if a.config.UI.QuitOnClose {
		win.OnAllClosed(func() { quit(errWindowClosed) })
	}
	win.Register(b)

	ui := newUIBridge(b, a.store, a.logger)
	defer a.store.Subscribe(a.metrics.ObserveState)()
	defer a.store.Subscribe(ui.publish)()
	server.OnConnect(ui.resync)

	var enabler presenceEnabler
	var presenceDep startup.Presence
	if id := a.config.Presence.ClientID; id != "" {
		svc := presence.New(id, a.logger)
		defer svc.Close()
		enabler, presenceDep = svc, svc
	}
	a.registerHandlers(b, enabler)

	orch := startup.New(a.store, startup.Options{
		DataDir:         a.config.DataDir,
		DevMode:         a.config.DevMode,
		RuntimeMajor:    a.config.Runtime.Major,
		RuntimeRequired: a.config.Runtime.Required,
	}, a.startupDeps(guard, win, ui, presenceDep))
	defer orch.Stop()

	a.protocol.PublishArgs(launch.Argv)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Run(gctx)
	})
	g.Go(func() error {
		return instance.Listen(gctx, a.config.SocketPath(), a.logger, func(l instance.Launch) {
			a.onSecondLaunch(gctx, win, l)
		})
	})
	g.Go(func() error {
		if err := orch.Run(gctx); err != nil {
			if gctx.Err() != nil {
				return nil
			}
			return err
		}
		hooks.Fire(gctx, a.logger, a.crashes, a.startupHooks(b)...)
		<-gctx.Done()
		return nil
	})

	err = g.Wait()
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		a.logger.Info("Launcher shutting down.", "reason", cause)
	}
	a.logger.Debug("App.Run method finished.")
	return err
}

// startupDeps builds the collaborators of the startup sequence.
func (a *App) startupDeps(guard *instance.Guard, win *window.Manager, ui *uiBridge, presenceDep startup.Presence) startup.Deps {
	cfg := a.config
	userAgent := "launcher/" + a.appConfig.Version
	api := apiclient.New(apiclient.Options{Timeout: cfg.Endpoints.Timeout, Retries: 2, UserAgent: userAgent}, a.logger)
	auth := apiclient.New(apiclient.Options{BaseURL: cfg.Endpoints.Auth, Timeout: cfg.Endpoints.Timeout, UserAgent: userAgent}, a.logger)
	session := persist.Open(cfg.DataDir)

	d := startup.Deps{
		Guard: guard,
		Extractor: deps.NewStage(deps.Options{
			Archive: cfg.Dependencies.Archive,
			Target:  cfg.Dependencies.Target,
			Version: cfg.Dependencies.Version,
		}, a.logger),
		Session:   session,
		Validator: runtime.NewValidator(a.logger),
		Accounts:  account.NewService(session, account.NewHTTPAuthenticator(auth), a.logger),
		Presence:  presenceDep,
		Navigator: ui,
		Window:    win,
		Protocol:  a.protocol,
	}
	if cfg.Endpoints.RuntimeManifest != "" {
		d.Manifests = runtime.NewManifestStore(api, cfg.Endpoints.RuntimeManifest, cfg.ManifestCachePath(), a.logger)
	}
	if cfg.Endpoints.Metadata != "" {
		d.Metadata = metadata.New(api, cfg.Endpoints.Metadata)
	}
	return d
}

// startupHooks are the fire-and-forget tasks started once Ready.
func (a *App) startupHooks(b *bus.Bus) []hooks.Hook {
	if a.config.Endpoints.Updates == "" {
		return nil
	}
	api := apiclient.New(apiclient.Options{Timeout: a.config.Endpoints.Timeout}, a.logger)
	updater := hooks.NewUpdater(api, a.config.Endpoints.Updates, a.appConfig.Version, func(u bus.Update) {
		a.logger.Info("A newer launcher release is available.", "current", u.Current, "latest", u.Latest)
		if err := b.Emit(bus.UpdateAvailable, u); err != nil {
			a.logger.Debug("Could not announce update.", "error", err)
		}
	})
	return []hooks.Hook{updater.Hook()}
}

// opener picks how windows are created.
func (a *App) opener() window.Opener {
	if len(a.config.UI.Command) == 0 {
		return window.DetachedOpener()
	}
	return window.ProcessOpener(a.config.UI.Command, func() string {
		base, _ := a.ControlURL(context.Background())
		return base + "/socket.io/"
	}, a.logger)
}

// onSecondLaunch focuses the window and forwards any protocol URL. While
// startup has not opened the window yet, it is left to startup.
func (a *App) onSecondLaunch(ctx context.Context, win *window.Manager, l instance.Launch) {
	if win.Exists() || a.store.State().Phase.Terminal() {
		if err := win.SecondInstance(ctx); err != nil {
			a.logger.Warn("Could not focus window for second launch.", "error", err)
		}
	}
	a.protocol.PublishArgs(l.Argv)
}
