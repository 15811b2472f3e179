// Package persist keeps the user's launcher state in a TOML file under
// the data directory: settings, known accounts and the client token used
// when talking to the auth service.
package persist

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

// FileName is the state file inside the data directory.
const FileName = "state.toml"

// Settings are user preferences.
type Settings struct {
	// JavaPath points at a user-chosen runtime executable.
	JavaPath   string `toml:"java_path,omitempty"`
	DiscordRPC bool   `toml:"discord_rpc"`
}

// Account is a stored login.
type Account struct {
	ID           string    `toml:"id"`
	Name         string    `toml:"name"`
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token,omitempty"`
	ExpiresAt    time.Time `toml:"expires_at,omitempty"`
}

// State is the whole persisted document.
type State struct {
	ClientToken     string    `toml:"client_token,omitempty"`
	SelectedAccount string    `toml:"selected_account,omitempty"`
	Settings        Settings  `toml:"settings"`
	Accounts        []Account `toml:"accounts,omitempty"`
}

// Account returns the stored account with id.
func (s State) Account(id string) (Account, bool) {
	for _, a := range s.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

// PutAccount inserts or replaces a by id.
func (s *State) PutAccount(a Account) {
	for i := range s.Accounts {
		if s.Accounts[i].ID == a.ID {
			s.Accounts[i] = a
			return
		}
	}
	s.Accounts = append(s.Accounts, a)
}

// Store reads and writes the state file. Writes replace the file
// atomically.
type Store struct {
	path string
	mu   sync.Mutex
}

// Open returns a store for the state file in dataDir.
func Open(dataDir string) *Store {
	return &Store{path: filepath.Join(dataDir, FileName)}
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the state. A missing file yields the zero State.
func (s *Store) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Update applies fn to the current state and saves the result. Nothing is
// written when fn fails.
func (s *Store) Update(fn func(*State) error) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return State{}, err
	}
	if err := fn(&st); err != nil {
		return State{}, err
	}
	if err := s.save(st); err != nil {
		return State{}, err
	}
	return st, nil
}

// EnsureClientToken returns the stored client token, generating and
// saving one when none exists.
func (s *Store) EnsureClientToken() (string, error) {
	st, err := s.Update(func(st *State) error {
		if st.ClientToken == "" {
			st.ClientToken = uuid.NewString()
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return st.ClientToken, nil
}

func (s *Store) load() (State, error) {
	var st State
	if _, err := toml.DecodeFile(s.path, &st); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("load state: %w", err)
	}
	return st, nil
}

func (s *Store) save(st State) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(st); err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
