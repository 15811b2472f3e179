// Package account resolves which stored account the launcher starts with.
package account

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/specialistvlad/launcher/internal/apiclient"
	"github.com/specialistvlad/launcher/internal/persist"
	"resty.dev/v3"
)

// ErrInvalidToken is returned when the auth service rejects a token.
var ErrInvalidToken = errors.New("account: token rejected")

// Authenticator talks to the auth service.
type Authenticator interface {
	// Refresh exchanges the account's access token for a fresh one.
	Refresh(ctx context.Context, a persist.Account, clientToken string) (persist.Account, error)
}

type refreshRequest struct {
	AccessToken string `json:"accessToken"`
	ClientToken string `json:"clientToken"`
	RequestUser bool   `json:"requestUser"`
}

type profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type refreshResponse struct {
	AccessToken     string  `json:"accessToken"`
	ClientToken     string  `json:"clientToken"`
	SelectedProfile profile `json:"selectedProfile"`
	ExpiresIn       int     `json:"expiresIn,omitempty"`
}

// HTTPAuthenticator is the resty implementation of Authenticator.
type HTTPAuthenticator struct {
	client *resty.Client
	now    func() time.Time
}

// NewHTTPAuthenticator returns an authenticator whose client has the auth
// service as base URL.
func NewHTTPAuthenticator(client *resty.Client) *HTTPAuthenticator {
	return &HTTPAuthenticator{client: client, now: time.Now}
}

// Refresh implements Authenticator.
func (h *HTTPAuthenticator) Refresh(ctx context.Context, a persist.Account, clientToken string) (persist.Account, error) {
	if h.client.BaseURL() == "" {
		return persist.Account{}, fmt.Errorf("refresh: %w", apiclient.ErrNotConfigured)
	}
	result := &refreshResponse{}
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(refreshRequest{AccessToken: a.AccessToken, ClientToken: clientToken, RequestUser: true}).
		SetResult(result).
		Post("/refresh")
	if err != nil {
		return persist.Account{}, fmt.Errorf("refresh %s: %w", a.ID, err)
	}
	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return persist.Account{}, fmt.Errorf("refresh %s: %w", a.ID, ErrInvalidToken)
	}
	if err := apiclient.CheckResponse(resp); err != nil {
		return persist.Account{}, fmt.Errorf("refresh %s: %w", a.ID, err)
	}
	if result.AccessToken == "" {
		return persist.Account{}, fmt.Errorf("refresh %s: %w", a.ID, ErrInvalidToken)
	}

	refreshed := a
	refreshed.AccessToken = result.AccessToken
	if result.SelectedProfile.Name != "" {
		refreshed.Name = result.SelectedProfile.Name
	}
	if result.ExpiresIn > 0 {
		refreshed.ExpiresAt = h.now().Add(time.Duration(result.ExpiresIn) * time.Second).UTC()
	}
	return refreshed, nil
}
