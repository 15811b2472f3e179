package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/specialistvlad/launcher/internal/bus"
	"github.com/specialistvlad/launcher/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_FollowStoreAndBus(t *testing.T) {
	t.Parallel()
	m := New()
	st := store.New()
	st.Subscribe(m.ObserveState)

	st.Dispatch(store.SetPhase{Phase: store.PhaseSessionBootstrap})
	st.Dispatch(store.SetLoginChecking{Checking: true})
	st.Dispatch(store.OpenModal{Kind: "JavaSetup"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.phase.WithLabelValues("SessionBootstrap")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.phase.WithLabelValues("Idle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loginCheck))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.openModals))

	m.ObserveBus(bus.GetUserData, bus.Request, "sent")
	m.ObserveBus(bus.GetUserData, bus.Request, "sent")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.busMessages.WithLabelValues("getUserData", "request", "sent")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "launcher_bus_messages_total")
	assert.Contains(t, string(body), "launcher_startup_phase_duration_seconds")
}
