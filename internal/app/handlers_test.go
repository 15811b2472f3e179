package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/specialistvlad/launcher/internal/bus"
	"github.com/specialistvlad/launcher/internal/ctxlog"
	"github.com/specialistvlad/launcher/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return ctxlog.Discard()
}

type fakeEnabler struct {
	calls atomic.Int32
	err   error
}

func (f *fakeEnabler) Enable(context.Context) error {
	f.calls.Add(1)
	return f.err
}

func TestHandlers_UserDataAndVersion(t *testing.T) {
	t.Parallel()
	a, _ := setupApp(t, testModel(t))
	host, ui := startBuses(t)
	a.registerHandlers(host, nil)
	ctx := context.Background()

	data, err := bus.Call[bus.UserData](ctx, ui, bus.GetUserData, bus.Empty{})
	require.NoError(t, err)
	assert.Equal(t, a.Config().DataDir, data.DataDir)
	assert.Equal(t, "1.4.0", data.AppVersion)
	assert.Equal(t, "stable", data.ReleaseType)

	v, err := bus.Call[bus.AppVersion](ctx, ui, bus.GetAppVersion, bus.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", v.Version)
}

func TestHandlers_Modals(t *testing.T) {
	t.Parallel()
	// Arrange
	a, _ := setupApp(t, testModel(t))
	host, ui := startBuses(t)
	a.registerHandlers(host, nil)
	ctx := context.Background()

	// Act / Assert
	for _, kind := range []string{"A", "B", "C", "B"} {
		_, err := bus.Call[bus.Empty](ctx, ui, bus.OpenModal, bus.OpenModalRequest{Kind: kind})
		require.NoError(t, err)
	}
	assert.Len(t, a.Store().State().Modals, 4)

	_, err := bus.Call[bus.Empty](ctx, ui, bus.CloseModal, bus.CloseModalRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, kinds(a.Store().State()))

	_, err = bus.Call[bus.Empty](ctx, ui, bus.CloseModal, bus.CloseModalRequest{Kind: "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, kinds(a.Store().State()))

	_, err = bus.Call[bus.Empty](ctx, ui, bus.CloseModal, bus.CloseModalRequest{All: true})
	require.NoError(t, err)
	assert.Empty(t, a.Store().State().Modals)

	_, err = bus.Call[bus.Empty](ctx, ui, bus.OpenModal, bus.OpenModalRequest{})
	var remote *bus.RemoteError
	require.ErrorAs(t, err, &remote)
}

func kinds(s store.State) []string {
	out := make([]string, 0, len(s.Modals))
	for _, m := range s.Modals {
		out = append(out, m.Kind)
	}
	return out
}

func TestHandlers_Presence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()
		a, _ := setupApp(t, testModel(t))
		host, ui := startBuses(t)
		a.registerHandlers(host, nil)

		_, err := bus.Call[bus.Empty](ctx, ui, bus.InitPresence, bus.Empty{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not configured")
	})

	t.Run("enabled", func(t *testing.T) {
		t.Parallel()
		a, _ := setupApp(t, testModel(t))
		host, ui := startBuses(t)
		enabler := &fakeEnabler{}
		a.registerHandlers(host, enabler)

		_, err := bus.Call[bus.Empty](ctx, ui, bus.InitPresence, bus.Empty{})
		require.NoError(t, err)
		assert.Equal(t, int32(1), enabler.calls.Load())
	})

	t.Run("fire and forget", func(t *testing.T) {
		t.Parallel()
		a, logs := setupApp(t, testModel(t))
		host, ui := startBuses(t)
		enabler := &fakeEnabler{err: errors.New("discord not running")}
		a.registerHandlers(host, enabler)

		require.NoError(t, ui.Emit(bus.InitPresence, bus.Empty{}))
		require.Eventually(t, func() bool { return enabler.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
		require.Eventually(t, func() bool {
			return strings.Contains(logs.String(), "Could not enable presence.")
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("failure is returned", func(t *testing.T) {
		t.Parallel()
		a, _ := setupApp(t, testModel(t))
		host, ui := startBuses(t)
		a.registerHandlers(host, &fakeEnabler{err: errors.New("discord not running")})

		_, err := bus.Call[bus.Empty](ctx, ui, bus.InitPresence, bus.Empty{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "discord not running")
	})
}

func TestHandlers_QuitCancelsRun(t *testing.T) {
	t.Parallel()
	a, _ := setupApp(t, testModel(t))
	host, ui := startBuses(t)
	a.registerHandlers(host, nil)

	ctx, quit := context.WithCancelCause(context.Background())
	a.mu.Lock()
	a.quit = quit
	a.mu.Unlock()

	_, err := bus.Call[bus.Empty](context.Background(), ui, bus.QuitApp, bus.Empty{})
	require.NoError(t, err)
	<-ctx.Done()
	assert.ErrorIs(t, context.Cause(ctx), errQuitRequested)
}
