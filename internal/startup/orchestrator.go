package startup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/specialistvlad/launcher/internal/bus"
	"github.com/specialistvlad/launcher/internal/ctxlog"
	"github.com/specialistvlad/launcher/internal/instance"
	"github.com/specialistvlad/launcher/internal/modal"
	"github.com/specialistvlad/launcher/internal/runtime"
	"github.com/specialistvlad/launcher/internal/store"
)

// JavaSetupModal is the modal kind opened when the runtime is missing.
const JavaSetupModal = "JavaSetup"

// Navigation targets.
const (
	RouteLanding = "/"
	RouteHome    = "/home"
)

// Options are the fixed inputs of a startup run.
type Options struct {
	DataDir         string
	DevMode         bool
	RuntimeMajor    int
	RuntimeRequired bool
}

// Deps are the collaborators of a startup run. Presence, Metadata,
// Protocol and Window may be nil.
type Deps struct {
	Guard     Guard
	Extractor Extractor
	Session   SessionStore
	Manifests ManifestSource
	Validator RuntimeValidator
	Gate      ModalGate
	Accounts  Accounts
	Metadata  MetadataSource
	Presence  Presence
	Navigator Navigator
	Window    WindowOpener
	Protocol  ProtocolSource
}

// Orchestrator runs the startup sequence once.
type Orchestrator struct {
	opts  Options
	deps  Deps
	store *store.Store

	once    sync.Once
	err     error
	mu      sync.Mutex
	stopFns []func()
}

// New returns an orchestrator publishing into st. A nil deps.Gate uses
// modal.Gate on st.
func New(st *store.Store, opts Options, deps Deps) *Orchestrator {
	if deps.Gate == nil {
		deps.Gate = func(ctx context.Context, kind string, props modal.Props) error {
			return modal.Gate(ctx, st, kind, props)
		}
	}
	return &Orchestrator{opts: opts, deps: deps, store: st}
}

// Run executes the sequence. It returns nil once Ready is reached and an
// *Error wrapping the cause when startup aborts. Later calls return the
// first result.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.once.Do(func() {
		o.err = o.run(ctx)
	})
	return o.err
}

// Stop removes the long-lived handlers registered at Ready.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	fns := o.stopFns
	o.stopFns = nil
	o.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (o *Orchestrator) run(ctx context.Context) (err error) {
	ctx, logger := ctxlog.With(ctx, "component", "startup")
	logger.Info("Startup sequence started.", "dev_mode", o.opts.DevMode)

	defer func() {
		if err != nil {
			o.enter(store.PhaseAborted)
			logger.Error("Startup aborted.", "error", err)
		}
	}()

	// LockCheck
	o.enter(store.PhaseLockCheck)
	held, lockErr := o.deps.Guard.Acquire()
	if lockErr != nil {
		return o.fatal(store.PhaseLockCheck, fmt.Errorf("acquiring instance lock: %w", lockErr))
	}
	if !held {
		return o.fatal(store.PhaseLockCheck, instance.ErrAlreadyRunning)
	}

	// Extracting
	o.enter(store.PhaseExtracting)
	if err := o.deps.Extractor.Extract(ctx); err != nil {
		return o.fatal(store.PhaseExtracting, fmt.Errorf("extracting dependencies: %w", err))
	}
	if o.deps.Window != nil {
		if _, err := o.deps.Window.Open(ctx); err != nil {
			return o.fatal(store.PhaseExtracting, fmt.Errorf("opening window: %w", err))
		}
	}

	// SessionBootstrap through AccountResolve run with login checking on.
	release := o.beginLoginCheck()
	defer release()

	persisted, err := o.bootstrap(ctx, logger)
	if err != nil {
		return err
	}

	o.enter(store.PhaseRuntimeCheck)
	if err := o.checkRuntime(ctx, logger, persisted); err != nil {
		return err
	}

	o.enter(store.PhaseAccountResolve)
	if err := o.resolveAccount(ctx, logger); err != nil {
		return err
	}
	release()

	o.enter(store.PhaseMetadataSync)
	o.syncMetadata(ctx, logger)

	o.enter(store.PhaseReady)
	o.ready(ctx, logger)
	logger.Info("Startup sequence complete.", "account", o.store.State().CurrentAccount)
	return nil
}

// beginLoginCheck enters SessionBootstrap with the login-checking flag
// already set.
func (o *Orchestrator) beginLoginCheck() (release func()) {
	o.store.Dispatch(store.Batch{
		store.SetPhase{Phase: store.PhaseSessionBootstrap},
		store.SetLoginChecking{Checking: true},
	})
	var once sync.Once
	return func() {
		once.Do(func() {
			o.store.Dispatch(store.SetLoginChecking{Checking: false})
		})
	}
}

func (o *Orchestrator) bootstrap(ctx context.Context, logger *slog.Logger) (store.UserData, error) {
	persisted, err := o.deps.Session.Load()
	if err != nil {
		return store.UserData{}, o.fatal(store.PhaseSessionBootstrap, fmt.Errorf("loading user data: %w", err))
	}
	token, err := o.deps.Session.EnsureClientToken()
	if err != nil {
		return store.UserData{}, o.fatal(store.PhaseSessionBootstrap, fmt.Errorf("ensuring client token: %w", err))
	}
	data := store.UserData{
		DataDir:     o.opts.DataDir,
		ClientToken: token,
		DiscordRPC:  persisted.Settings.DiscordRPC,
		RuntimePath: persisted.Settings.JavaPath,
	}
	o.store.Dispatch(store.SetUserData{Data: data})
	logger.Debug("User data loaded.", "accounts", len(persisted.Accounts), "selected", persisted.SelectedAccount)
	return data, nil
}

func (o *Orchestrator) checkRuntime(ctx context.Context, logger *slog.Logger, data store.UserData) error {
	var manifest *runtime.Manifest
	if o.deps.Manifests != nil {
		m, err := o.deps.Manifests.Load(ctx)
		if err != nil {
			o.recoverable(logger, store.PhaseRuntimeCheck, fmt.Errorf("loading runtime manifest: %w", err))
		} else {
			manifest = m
		}
	}

	res := o.deps.Validator.IsRuntimeReady(manifest, runtime.UserContext{
		DataDir:        data.DataDir,
		ConfiguredPath: data.RuntimePath,
	}, o.opts.RuntimeRequired, o.opts.RuntimeMajor)
	if res.IsValid {
		o.store.Dispatch(store.SetRuntimeValid{Valid: true})
		logger.Info("Runtime ready.", "path", res.Path)
		return nil
	}

	o.store.Dispatch(store.SetRuntimeValid{Valid: false})
	o.enter(store.PhaseRuntimeGate)
	logger.Info("Runtime missing, waiting for setup.", "major", o.opts.RuntimeMajor, "expected", res.Expected)
	err := o.deps.Gate(ctx, JavaSetupModal, modal.Props{
		PreventClose: true,
		Values: map[string]any{
			"major":             o.opts.RuntimeMajor,
			"expected":          res.Expected,
			"needs_acquisition": res.NeedsAcquisition,
		},
	})
	if err != nil {
		return o.fatal(store.PhaseRuntimeGate, fmt.Errorf("waiting for runtime setup: %w", err))
	}
	// The closed gate is taken as completion; the runtime is not checked again.
	o.store.Dispatch(store.SetRuntimeValid{Valid: true, Trusted: true})
	logger.Info("Runtime setup finished.")
	return nil
}

func (o *Orchestrator) resolveAccount(ctx context.Context, logger *slog.Logger) error {
	selected, err := o.deps.Accounts.Selected()
	if err != nil {
		o.recoverable(logger, store.PhaseAccountResolve, fmt.Errorf("reading selected account: %w", err))
		return nil
	}
	if selected == "" {
		logger.Debug("No account selected.")
		return nil
	}

	if o.opts.DevMode {
		o.store.Dispatch(store.SetCurrentAccount{ID: selected})
		o.navigate(ctx, logger, RouteHome)
		return nil
	}

	id, err := o.deps.Accounts.LoginWithAccessToken(ctx)
	if err == nil {
		o.store.Dispatch(store.SetCurrentAccount{ID: id})
		return nil
	}
	if ctx.Err() != nil {
		return o.fatal(store.PhaseAccountResolve, ctx.Err())
	}
	logger.Debug("Silent re-authentication failed.", "account", selected, "error", err, "kind", SilentFallback)

	o.enter(store.PhaseAuthRetry)
	id, err = o.deps.Accounts.SwitchToFirstValidAccount(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return o.fatal(store.PhaseAuthRetry, ctx.Err())
		}
		logger.Info("No stored account has a valid session.", "error", err)
		o.store.Dispatch(store.SetCurrentAccount{ID: ""})
		return nil
	}
	o.store.Dispatch(store.SetCurrentAccount{ID: id})
	o.navigate(ctx, logger, RouteHome)
	return nil
}

func (o *Orchestrator) syncMetadata(ctx context.Context, logger *slog.Logger) {
	if o.deps.Metadata == nil {
		return
	}
	md, err := o.deps.Metadata.Fetch(ctx)
	if err != nil {
		o.recoverable(logger, store.PhaseMetadataSync, fmt.Errorf("syncing metadata: %w", err))
		return
	}
	o.store.Dispatch(store.SetServerMetadata{Metadata: md})
}

func (o *Orchestrator) ready(ctx context.Context, logger *slog.Logger) {
	st := o.store.State()

	if st.UserData.DiscordRPC && o.deps.Presence != nil {
		if err := o.deps.Presence.Enable(ctx); err != nil {
			o.recoverable(logger, store.PhaseReady, fmt.Errorf("enabling presence: %w", err))
		}
	}

	if o.deps.Protocol != nil && o.deps.Navigator != nil {
		// Handlers outlive Run, so they must not use its context.
		handlerCtx := ctxlog.WithLogger(context.WithoutCancel(ctx), logger)
		off := o.deps.Protocol.Subscribe(func(ev bus.ProtocolEvent) {
			logger.Info("Protocol event received.", "action", ev.Action, "url", ev.URL)
			if err := o.deps.Navigator.ForwardProtocol(handlerCtx, ev); err != nil {
				logger.Warn("Forwarding protocol event failed.", "error", err)
			}
		})
		o.mu.Lock()
		o.stopFns = append(o.stopFns, off)
		o.mu.Unlock()
	}

	if st.CurrentAccount == "" {
		o.navigate(ctx, logger, RouteLanding)
	}
}

func (o *Orchestrator) navigate(ctx context.Context, logger *slog.Logger, path string) {
	if o.deps.Navigator == nil {
		return
	}
	if err := o.deps.Navigator.Navigate(ctx, path); err != nil {
		logger.Warn("Navigation failed.", "path", path, "error", err)
	}
}

func (o *Orchestrator) enter(p store.Phase) {
	o.store.Dispatch(store.SetPhase{Phase: p})
}

func (o *Orchestrator) fatal(p store.Phase, err error) error {
	return &Error{Phase: p, Kind: Fatal, Err: err}
}

func (o *Orchestrator) recoverable(logger *slog.Logger, p store.Phase, err error) {
	e := &Error{Phase: p, Kind: RecoverableLogged, Err: err}
	logger.Warn("Startup step failed, continuing.", "phase", p, "error", err)
	o.store.Dispatch(store.AddWarning{Message: e.Error()})
}
