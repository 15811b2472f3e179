package startup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/specialistvlad/launcher/internal/bus"
	"github.com/specialistvlad/launcher/internal/instance"
	"github.com/specialistvlad/launcher/internal/modal"
	"github.com/specialistvlad/launcher/internal/persist"
	"github.com/specialistvlad/launcher/internal/runtime"
	"github.com/specialistvlad/launcher/internal/store"
	"github.com/specialistvlad/launcher/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type fakeGuard struct {
	held bool
	err  error
}

func (g fakeGuard) Acquire() (bool, error) { return g.held, g.err }

type fakeExtractor struct{ err error }

func (e fakeExtractor) Extract(context.Context) error { return e.err }

type fakeSession struct{ state persist.State }

func (s fakeSession) Load() (persist.State, error)       { return s.state, nil }
func (s fakeSession) EnsureClientToken() (string, error) { return "client-token", nil }

type fakeManifests struct{ err error }

func (m fakeManifests) Load(context.Context) (*runtime.Manifest, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &runtime.Manifest{}, nil
}

type fakeValidator struct {
	valid bool
	calls atomic.Int32
}

func (v *fakeValidator) IsRuntimeReady(_ *runtime.Manifest, uc runtime.UserContext, _ bool, _ int) runtime.Result {
	v.calls.Add(1)
	if v.valid || uc.ConfiguredPath != "" {
		return runtime.Result{IsValid: true, Path: "/java"}
	}
	return runtime.Result{NeedsAcquisition: true, Expected: "17.0.2"}
}

type fakeAccounts struct {
	selected    string
	loginErr    error
	switchID    string
	loginCalls  atomic.Int32
	switchCalls atomic.Int32
}

func (a *fakeAccounts) Selected() (string, error) { return a.selected, nil }

func (a *fakeAccounts) LoginWithAccessToken(context.Context) (string, error) {
	a.loginCalls.Add(1)
	if a.loginErr != nil {
		return "", a.loginErr
	}
	return a.selected, nil
}

func (a *fakeAccounts) SwitchToFirstValidAccount(context.Context) (string, error) {
	a.switchCalls.Add(1)
	if a.switchID == "" {
		return "", errors.New("no valid account")
	}
	return a.switchID, nil
}

type fakeMetadata struct{ err error }

func (m fakeMetadata) Fetch(context.Context) (map[string]any, error) {
	if m.err != nil {
		return nil, m.err
	}
	return map[string]any{"motd": "hi"}, nil
}

type fakeNavigator struct {
	mu        sync.Mutex
	paths     []string
	forwarded []bus.ProtocolEvent
}

func (n *fakeNavigator) Navigate(_ context.Context, path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
	return nil
}

func (n *fakeNavigator) ForwardProtocol(_ context.Context, ev bus.ProtocolEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.forwarded = append(n.forwarded, ev)
	return nil
}

func (n *fakeNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

type fakePresence struct{ enabled atomic.Int32 }

func (p *fakePresence) Enable(context.Context) error {
	p.enabled.Add(1)
	return nil
}

type fakeProtocol struct {
	mu  sync.Mutex
	fns []func(bus.ProtocolEvent)
}

func (p *fakeProtocol) Subscribe(fn func(bus.ProtocolEvent)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fns = append(p.fns, fn)
	i := len(p.fns) - 1
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.fns[i] = nil
	}
}

func (p *fakeProtocol) Publish(ev bus.ProtocolEvent) {
	p.mu.Lock()
	fns := append([]func(bus.ProtocolEvent){}, p.fns...)
	p.mu.Unlock()
	for _, fn := range fns {
		if fn != nil {
			fn(ev)
		}
	}
}

type harness struct {
	st        *store.Store
	validator *fakeValidator
	accounts  *fakeAccounts
	navigator *fakeNavigator
	presence  *fakePresence
	protocol  *fakeProtocol
	deps      Deps
	opts      Options

	mu       sync.Mutex
	checking []bool
	phases   []store.Phase
	// flag values seen when SessionBootstrap and RuntimeCheck were entered
	checkingAtBootstrap bool
	checkingAtRuntime   bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		st:        store.New(),
		validator: &fakeValidator{valid: true},
		accounts:  &fakeAccounts{},
		navigator: &fakeNavigator{},
		presence:  &fakePresence{},
		protocol:  &fakeProtocol{},
		opts:      Options{DataDir: t.TempDir(), RuntimeMajor: 17, RuntimeRequired: true},
	}
	h.deps = Deps{
		Guard:     fakeGuard{held: true},
		Extractor: fakeExtractor{},
		Session:   fakeSession{},
		Manifests: fakeManifests{},
		Validator: h.validator,
		Accounts:  h.accounts,
		Metadata:  fakeMetadata{},
		Presence:  h.presence,
		Navigator: h.navigator,
		Protocol:  h.protocol,
	}
	h.st.Subscribe(func(prev, next store.State) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if prev.LoginChecking != next.LoginChecking {
			h.checking = append(h.checking, next.LoginChecking)
		}
		if prev.Phase != next.Phase {
			h.phases = append(h.phases, next.Phase)
			switch next.Phase {
			case store.PhaseSessionBootstrap:
				h.checkingAtBootstrap = next.LoginChecking
			case store.PhaseRuntimeCheck:
				h.checkingAtRuntime = next.LoginChecking
			}
		}
	})
	return h
}

// completeSetupWhenOpened closes the setup modal shortly after the gate
// opens it, the way the UI does when the user finishes.
func (h *harness) completeSetupWhenOpened() {
	h.st.Subscribe(func(prev, next store.State) {
		if !prev.HasModal(JavaSetupModal) && next.HasModal(JavaSetupModal) {
			go h.st.Dispatch(store.CloseModalKind{Kind: JavaSetupModal})
		}
	})
}

func (h *harness) run(t *testing.T) (*Orchestrator, error) {
	t.Helper()
	ctx, _ := testutil.Context(t)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	o := New(h.st, h.opts, h.deps)
	t.Cleanup(o.Stop)
	return o, o.Run(ctx)
}

func (h *harness) snapshot() ([]bool, []store.Phase, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]bool(nil), h.checking...), append([]store.Phase(nil), h.phases...), h.checkingAtRuntime
}

func (h *harness) checkingAtBootstrapSeen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.checkingAtBootstrap
}

func TestRun_LoginCheckingReleasedOnEveryBranch(t *testing.T) {
	t.Parallel()
	for _, runtimeValid := range []bool{true, false} {
		for _, account := range []string{"", "steve"} {
			for _, authFails := range []bool{false, true} {
				for _, metadataFails := range []bool{false, true} {
					if account == "" && authFails {
						continue
					}
					name := fmt.Sprintf("runtime=%t/account=%q/authFails=%t/metadataFails=%t", runtimeValid, account, authFails, metadataFails)
					t.Run(name, func(t *testing.T) {
						t.Parallel()
						// Arrange
						h := newHarness(t)
						h.validator.valid = runtimeValid
						h.accounts.selected = account
						if authFails {
							h.accounts.loginErr = errBoom
						}
						if metadataFails {
							h.deps.Metadata = fakeMetadata{err: errBoom}
						}
						if !runtimeValid {
							h.completeSetupWhenOpened()
						}

						// Act
						_, err := h.run(t)

						// Assert
						require.NoError(t, err)
						checking, phases, atRuntime := h.snapshot()
						assert.Equal(t, []bool{true, false}, checking)
						assert.True(t, atRuntime)
						assert.True(t, h.checkingAtBootstrapSeen(), "flag set when SessionBootstrap begins")
						assert.Equal(t, store.PhaseReady, phases[len(phases)-1])
						final := h.st.State()
						assert.False(t, final.LoginChecking)
						assert.True(t, final.RuntimeValid)
						assert.Equal(t, !metadataFails, final.MetadataSynced)
					})
				}
			}
		}
	}
}

func TestRun_AbortsOnFatalFailures(t *testing.T) {
	t.Parallel()
	cases := map[string]struct {
		mutate      func(h *harness)
		wantPhase   store.Phase
		wantIs      error
		wantChecked []bool
	}{
		"second instance": {
			mutate:    func(h *harness) { h.deps.Guard = fakeGuard{held: false} },
			wantPhase: store.PhaseLockCheck,
			wantIs:    instance.ErrAlreadyRunning,
		},
		"lock error": {
			mutate:    func(h *harness) { h.deps.Guard = fakeGuard{err: errBoom} },
			wantPhase: store.PhaseLockCheck,
			wantIs:    errBoom,
		},
		"extraction failure": {
			mutate:    func(h *harness) { h.deps.Extractor = fakeExtractor{err: errBoom} },
			wantPhase: store.PhaseExtracting,
			wantIs:    errBoom,
		},
		"gate cancelled": {
			mutate: func(h *harness) {
				h.validator.valid = false
				h.deps.Gate = func(context.Context, string, modal.Props) error { return context.Canceled }
			},
			wantPhase:   store.PhaseRuntimeGate,
			wantIs:      context.Canceled,
			wantChecked: []bool{true, false},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			tc.mutate(h)

			_, err := h.run(t)

			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantIs)
			var se *Error
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.wantPhase, se.Phase)
			assert.Equal(t, Fatal, se.Kind)

			checking, _, _ := h.snapshot()
			assert.Equal(t, tc.wantChecked, checking)
			assert.Equal(t, store.PhaseAborted, h.st.State().Phase)
			assert.False(t, h.st.State().LoginChecking)
		})
	}
}

func TestRun_NoAccountConfiguredRuntime(t *testing.T) {
	t.Parallel()
	// Arrange
	h := newHarness(t)
	h.validator.valid = false
	h.deps.Session = fakeSession{state: persist.State{Settings: persist.Settings{JavaPath: "/opt/java/bin/java"}}}

	// Act
	_, err := h.run(t)

	// Assert
	require.NoError(t, err)
	_, phases, _ := h.snapshot()
	assert.NotContains(t, phases, store.PhaseRuntimeGate)
	assert.NotContains(t, phases, store.PhaseAuthRetry)
	assert.Zero(t, h.accounts.loginCalls.Load())
	assert.Zero(t, h.accounts.switchCalls.Load())
	assert.Equal(t, store.PhaseReady, h.st.State().Phase)
	assert.Empty(t, h.st.State().CurrentAccount)
	assert.Equal(t, []string{RouteLanding}, h.navigator.Paths())
}

func TestRun_AuthFailsAndNoFallback(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.accounts.selected = "steve"
	h.accounts.loginErr = errBoom

	_, err := h.run(t)

	require.NoError(t, err)
	_, phases, _ := h.snapshot()
	assert.Contains(t, phases, store.PhaseAuthRetry)
	assert.Equal(t, int32(1), h.accounts.switchCalls.Load())
	assert.Equal(t, store.PhaseReady, h.st.State().Phase)
	assert.Empty(t, h.st.State().CurrentAccount)
	assert.NotContains(t, h.navigator.Paths(), RouteHome)
}

func TestRun_AuthFailsFallbackSelectsAnotherAccount(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.accounts.selected = "steve"
	h.accounts.loginErr = errBoom
	h.accounts.switchID = "alex"

	_, err := h.run(t)

	require.NoError(t, err)
	assert.Equal(t, "alex", h.st.State().CurrentAccount)
	assert.Equal(t, []string{RouteHome}, h.navigator.Paths())
}

func TestRun_RuntimeGateIsTrustedWithoutRevalidation(t *testing.T) {
	t.Parallel()
	// Arrange
	h := newHarness(t)
	h.validator.valid = false
	h.accounts.selected = "steve"
	h.completeSetupWhenOpened()

	// Act
	_, err := h.run(t)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int32(1), h.validator.calls.Load())
	_, phases, _ := h.snapshot()
	assert.Contains(t, phases, store.PhaseRuntimeGate)
	assert.Contains(t, phases, store.PhaseAccountResolve)
	final := h.st.State()
	assert.True(t, final.RuntimeValid)
	assert.True(t, final.RuntimeGateTrusted)
	assert.False(t, final.HasModal(JavaSetupModal))
	assert.Equal(t, "steve", final.CurrentAccount)
}

func TestRun_ManifestFailureIsRecoverable(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.deps.Manifests = fakeManifests{err: errBoom}

	_, err := h.run(t)

	require.NoError(t, err)
	warnings := h.st.State().Warnings
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "runtime manifest")
	assert.Equal(t, int32(1), h.validator.calls.Load())
}

func TestRun_DevModeSkipsReauth(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.opts.DevMode = true
	h.accounts.selected = "steve"

	_, err := h.run(t)

	require.NoError(t, err)
	assert.Zero(t, h.accounts.loginCalls.Load())
	assert.Equal(t, "steve", h.st.State().CurrentAccount)
	assert.Equal(t, []string{RouteHome}, h.navigator.Paths())
}

func TestRun_ReadySideEffects(t *testing.T) {
	t.Parallel()
	// Arrange
	h := newHarness(t)
	h.accounts.selected = "steve"
	h.deps.Session = fakeSession{state: persist.State{Settings: persist.Settings{DiscordRPC: true}}}

	// Act
	o, err := h.run(t)
	require.NoError(t, err)
	h.protocol.Publish(bus.ProtocolEvent{URL: "launcher://join?server=a", Action: "join"})
	o.Stop()
	h.protocol.Publish(bus.ProtocolEvent{URL: "launcher://ignored", Action: "join"})

	// Assert
	assert.Equal(t, int32(1), h.presence.enabled.Load())
	h.navigator.mu.Lock()
	defer h.navigator.mu.Unlock()
	require.Len(t, h.navigator.forwarded, 1)
	assert.Equal(t, "join", h.navigator.forwarded[0].Action)
	assert.Empty(t, h.navigator.paths)
}

func TestRun_PresenceDisabledByPreference(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, err := h.run(t)

	require.NoError(t, err)
	assert.Zero(t, h.presence.enabled.Load())
}

func TestRun_IsIdempotent(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	o, err := h.run(t)
	require.NoError(t, err)

	ctx, _ := testutil.Context(t)
	require.NoError(t, o.Run(ctx))
	assert.Equal(t, int32(1), h.validator.calls.Load())
}
