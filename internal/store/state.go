// Package store holds the launcher's shared state behind a single writer.
//
// All mutations go through Dispatch, which applies actions one at a time
// in the order they were dispatched and then tells every subscriber about
// the transition. Nothing else writes the open modal list, the startup
// phase or the current account; other components subscribe.
package store

import "slices"

// Phase is a step of the startup sequence.
type Phase string

const (
	PhaseIdle             Phase = "Idle"
	PhaseLockCheck        Phase = "LockCheck"
	PhaseExtracting       Phase = "Extracting"
	PhaseSessionBootstrap Phase = "SessionBootstrap"
	PhaseRuntimeCheck     Phase = "RuntimeCheck"
	PhaseRuntimeGate      Phase = "RuntimeGate"
	PhaseAccountResolve   Phase = "AccountResolve"
	PhaseAuthRetry        Phase = "AuthRetry"
	PhaseMetadataSync     Phase = "MetadataSync"
	PhaseReady            Phase = "Ready"
	PhaseAborted          Phase = "Aborted"
)

var phaseOrder = map[Phase]int{
	PhaseIdle:             0,
	PhaseLockCheck:        1,
	PhaseExtracting:       2,
	PhaseSessionBootstrap: 3,
	PhaseRuntimeCheck:     4,
	PhaseRuntimeGate:      5,
	PhaseAccountResolve:   6,
	PhaseAuthRetry:        7,
	PhaseMetadataSync:     8,
	PhaseReady:            9,
}

// Terminal reports whether no further transition may leave p.
func (p Phase) Terminal() bool {
	return p == PhaseReady || p == PhaseAborted
}

// CanAdvance reports whether the sequence may move from p to next.
// Phases only move forward; any non-terminal phase may abort.
func (p Phase) CanAdvance(next Phase) bool {
	if p.Terminal() {
		return false
	}
	if next == PhaseAborted {
		return true
	}
	from, okFrom := phaseOrder[p]
	to, okTo := phaseOrder[next]
	return okFrom && okTo && to > from
}

// Modal is one entry of the open modal list.
type Modal struct {
	Kind     string
	Props    map[string]any
	Blocking bool
}

// UserData is the session data loaded during bootstrap.
type UserData struct {
	DataDir     string
	ClientToken string
	DiscordRPC  bool
	RuntimePath string
}

// State is a snapshot of everything the store owns. Slices in a snapshot
// must not be modified.
type State struct {
	Phase              Phase
	LoginChecking      bool
	CurrentAccount     string
	RuntimeValid       bool
	RuntimeGateTrusted bool
	MetadataSynced     bool
	ServerMetadata     map[string]any
	UserData           UserData
	Modals             []Modal
	Warnings           []string
}

// HasModal reports whether a modal of kind is open.
func (s State) HasModal(kind string) bool {
	return slices.ContainsFunc(s.Modals, func(m Modal) bool { return m.Kind == kind })
}

// TopModal returns the most recently opened modal.
func (s State) TopModal() (Modal, bool) {
	if len(s.Modals) == 0 {
		return Modal{}, false
	}
	return s.Modals[len(s.Modals)-1], true
}

// ModalsChanged reports whether the open modal list differs between a and b.
func ModalsChanged(a, b State) bool {
	if len(a.Modals) != len(b.Modals) {
		return true
	}
	for i := range a.Modals {
		if a.Modals[i].Kind != b.Modals[i].Kind {
			return true
		}
	}
	return false
}
