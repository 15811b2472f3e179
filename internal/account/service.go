package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/specialistvlad/launcher/internal/persist"
)

var (
	// ErrNoAccount is returned when no account is selected.
	ErrNoAccount = errors.New("account: none selected")
	// ErrNoValidAccount is returned when every stored account failed to
	// refresh.
	ErrNoValidAccount = errors.New("account: no valid account")
)

// Service re-authenticates stored accounts and keeps the selection in the
// state file current.
type Service struct {
	state  *persist.Store
	auth   Authenticator
	logger *slog.Logger
}

// NewService returns a service over state and auth.
func NewService(state *persist.Store, auth Authenticator, logger *slog.Logger) *Service {
	return &Service{state: state, auth: auth, logger: logger.With("component", "account")}
}

// Selected returns the id of the selected account, or "" when none is.
func (s *Service) Selected() (string, error) {
	st, err := s.state.Load()
	if err != nil {
		return "", err
	}
	if _, ok := st.Account(st.SelectedAccount); !ok {
		return "", nil
	}
	return st.SelectedAccount, nil
}

// LoginWithAccessToken silently refreshes the selected account.
func (s *Service) LoginWithAccessToken(ctx context.Context) (string, error) {
	st, err := s.state.Load()
	if err != nil {
		return "", err
	}
	acc, ok := st.Account(st.SelectedAccount)
	if !ok {
		return "", ErrNoAccount
	}

	refreshed, err := s.auth.Refresh(ctx, acc, st.ClientToken)
	if err != nil {
		return "", err
	}
	if _, err := s.state.Update(func(st *persist.State) error {
		st.PutAccount(refreshed)
		return nil
	}); err != nil {
		return "", fmt.Errorf("saving refreshed account: %w", err)
	}
	s.logger.Info("Account re-authenticated.", "account", refreshed.ID)
	return refreshed.ID, nil
}

// SwitchToFirstValidAccount refreshes stored accounts in order and selects
// the first that succeeds. The selected account is skipped since it is the
// one that just failed to re-authenticate. When none succeeds the selection
// is cleared and ErrNoValidAccount is returned.
func (s *Service) SwitchToFirstValidAccount(ctx context.Context) (string, error) {
	st, err := s.state.Load()
	if err != nil {
		return "", err
	}

	for _, acc := range st.Accounts {
		if acc.ID == st.SelectedAccount {
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		refreshed, err := s.auth.Refresh(ctx, acc, st.ClientToken)
		if err != nil {
			s.logger.Debug("Stored account failed to refresh.", "account", acc.ID, "error", err)
			continue
		}
		if _, err := s.state.Update(func(st *persist.State) error {
			st.PutAccount(refreshed)
			st.SelectedAccount = refreshed.ID
			return nil
		}); err != nil {
			return "", fmt.Errorf("selecting account: %w", err)
		}
		s.logger.Info("Switched to first valid account.", "account", refreshed.ID)
		return refreshed.ID, nil
	}

	if _, err := s.state.Update(func(st *persist.State) error {
		st.SelectedAccount = ""
		return nil
	}); err != nil {
		return "", fmt.Errorf("clearing account selection: %w", err)
	}
	return "", ErrNoValidAccount
}
