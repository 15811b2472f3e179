package account

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/specialistvlad/launcher/internal/apiclient"
	"github.com/specialistvlad/launcher/internal/ctxlog"
	"github.com/specialistvlad/launcher/internal/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuth accepts the tokens listed in valid.
type fakeAuth struct {
	valid map[string]bool
	calls []string
}

func (f *fakeAuth) Refresh(ctx context.Context, a persist.Account, clientToken string) (persist.Account, error) {
	f.calls = append(f.calls, a.ID)
	if !f.valid[a.AccessToken] {
		return persist.Account{}, ErrInvalidToken
	}
	a.AccessToken += "-new"
	return a, nil
}

func seed(t *testing.T, st persist.State) *persist.Store {
	t.Helper()
	store := persist.Open(t.TempDir())
	_, err := store.Update(func(s *persist.State) error {
		*s = st
		return nil
	})
	require.NoError(t, err)
	return store
}

func TestService_LoginWithAccessToken(t *testing.T) {
	t.Parallel()
	store := seed(t, persist.State{
		SelectedAccount: "a",
		Accounts:        []persist.Account{{ID: "a", AccessToken: "ta"}},
	})
	svc := NewService(store, &fakeAuth{valid: map[string]bool{"ta": true}}, ctxlog.Discard())

	id, err := svc.LoginWithAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", id)

	st, err := store.Load()
	require.NoError(t, err)
	acc, _ := st.Account("a")
	assert.Equal(t, "ta-new", acc.AccessToken)
}

func TestService_LoginWithoutSelection(t *testing.T) {
	t.Parallel()
	svc := NewService(seed(t, persist.State{}), &fakeAuth{}, ctxlog.Discard())

	selected, err := svc.Selected()
	require.NoError(t, err)
	assert.Empty(t, selected)

	_, err = svc.LoginWithAccessToken(context.Background())
	require.ErrorIs(t, err, ErrNoAccount)
}

func TestService_SwitchToFirstValidAccount(t *testing.T) {
	t.Parallel()
	store := seed(t, persist.State{
		SelectedAccount: "a",
		Accounts: []persist.Account{
			{ID: "a", AccessToken: "bad"},
			{ID: "b", AccessToken: "tb"},
			{ID: "c", AccessToken: "tc"},
		},
	})
	auth := &fakeAuth{valid: map[string]bool{"tb": true, "tc": true}}
	svc := NewService(store, auth, ctxlog.Discard())

	id, err := svc.SwitchToFirstValidAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", id)
	assert.Equal(t, []string{"b"}, auth.calls, "the failed selection is not retried")

	selected, err := svc.Selected()
	require.NoError(t, err)
	assert.Equal(t, "b", selected)
}

func TestService_SwitchWithNoValidAccount(t *testing.T) {
	t.Parallel()
	store := seed(t, persist.State{
		SelectedAccount: "a",
		Accounts:        []persist.Account{{ID: "a", AccessToken: "bad"}},
	})
	auth := &fakeAuth{}
	svc := NewService(store, auth, ctxlog.Discard())

	_, err := svc.SwitchToFirstValidAccount(context.Background())
	require.ErrorIs(t, err, ErrNoValidAccount)
	assert.Empty(t, auth.calls)

	selected, err := svc.Selected()
	require.NoError(t, err)
	assert.Empty(t, selected)
}

func TestHTTPAuthenticator_Refresh(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if r.URL.Path != "/refresh" || json.NewDecoder(r.Body).Decode(&req) != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.AccessToken != "good" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(refreshResponse{
			AccessToken:     "fresh",
			ClientToken:     req.ClientToken,
			SelectedProfile: profile{ID: "p", Name: "Renamed"},
			ExpiresIn:       60,
		})
	}))
	t.Cleanup(srv.Close)

	client := apiclient.New(apiclient.Options{BaseURL: srv.URL}, ctxlog.Discard())
	auth := NewHTTPAuthenticator(client)
	fixed := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return fixed }

	got, err := auth.Refresh(context.Background(), persist.Account{ID: "a", Name: "Old", AccessToken: "good"}, "ct")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.AccessToken)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, fixed.Add(time.Minute), got.ExpiresAt)

	_, err = auth.Refresh(context.Background(), persist.Account{ID: "a", AccessToken: "stale"}, "ct")
	require.True(t, errors.Is(err, ErrInvalidToken))
}

func TestHTTPAuthenticator_NotConfigured(t *testing.T) {
	t.Parallel()
	auth := NewHTTPAuthenticator(apiclient.New(apiclient.Options{}, ctxlog.Discard()))
	_, err := auth.Refresh(context.Background(), persist.Account{ID: "a"}, "ct")
	require.ErrorIs(t, err, apiclient.ErrNotConfigured)
}
