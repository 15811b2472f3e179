package startup

import (
	"fmt"

	"github.com/specialistvlad/launcher/internal/store"
)

// Kind classifies how a startup failure is handled.
type Kind int

const (
	// Fatal failures abort startup before the UI may proceed.
	Fatal Kind = iota
	// RecoverableLogged failures are logged and startup continues.
	RecoverableLogged
	// UserGated outcomes are routed to a modal instead of failing.
	UserGated
	// SilentFallback failures trigger a fallback path without surfacing.
	SilentFallback
)

func (k Kind) String() string {
	switch k {
	case Fatal:
		return "fatal"
	case RecoverableLogged:
		return "recoverable"
	case UserGated:
		return "user-gated"
	case SilentFallback:
		return "silent-fallback"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a failure attributed to a startup phase.
type Error struct {
	Phase store.Phase
	Kind  Kind
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("startup %s (%s): %v", e.Phase, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
