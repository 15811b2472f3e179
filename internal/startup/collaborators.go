package startup

import (
	"context"

	"github.com/specialistvlad/launcher/internal/bus"
	"github.com/specialistvlad/launcher/internal/modal"
	"github.com/specialistvlad/launcher/internal/persist"
	"github.com/specialistvlad/launcher/internal/runtime"
)

// Guard is the single-instance lock.
type Guard interface {
	Acquire() (bool, error)
}

// Extractor unpacks bundled dependencies.
type Extractor interface {
	Extract(ctx context.Context) error
}

// SessionStore is the persisted user state.
type SessionStore interface {
	Load() (persist.State, error)
	EnsureClientToken() (string, error)
}

// ManifestSource supplies the runtime manifest.
type ManifestSource interface {
	Load(ctx context.Context) (*runtime.Manifest, error)
}

// RuntimeValidator decides whether the runtime is usable.
type RuntimeValidator interface {
	IsRuntimeReady(manifest *runtime.Manifest, uc runtime.UserContext, required bool, major int) runtime.Result
}

// ModalGate opens a modal and blocks until it is gone.
type ModalGate func(ctx context.Context, kind string, props modal.Props) error

// Accounts resolves the account session.
type Accounts interface {
	Selected() (string, error)
	LoginWithAccessToken(ctx context.Context) (string, error)
	SwitchToFirstValidAccount(ctx context.Context) (string, error)
}

// MetadataSource fetches server metadata.
type MetadataSource interface {
	Fetch(ctx context.Context) (map[string]any, error)
}

// Presence is the optional status integration.
type Presence interface {
	Enable(ctx context.Context) error
}

// Navigator drives the UI.
type Navigator interface {
	Navigate(ctx context.Context, path string) error
	ForwardProtocol(ctx context.Context, ev bus.ProtocolEvent) error
}

// WindowOpener creates the UI window.
type WindowOpener interface {
	Open(ctx context.Context) (bool, error)
}

// ProtocolSource delivers out-of-band protocol events.
type ProtocolSource interface {
	Subscribe(fn func(bus.ProtocolEvent)) (unsubscribe func())
}
