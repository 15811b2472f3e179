package store

import "slices"

// Action is a state transition. The set of actions is closed.
type Action interface {
	apply(State) State
}

// OpenModal pushes a modal onto the open list.
type OpenModal struct {
	Kind     string
	Props    map[string]any
	Blocking bool
}

func (a OpenModal) apply(s State) State {
	s.Modals = append(slices.Clone(s.Modals), Modal(a))
	return s
}

// CloseModal pops the topmost modal.
type CloseModal struct{}

func (CloseModal) apply(s State) State {
	if len(s.Modals) == 0 {
		return s
	}
	s.Modals = slices.Clone(s.Modals[:len(s.Modals)-1])
	return s
}

// CloseModalKind removes the most recently opened modal of Kind.
type CloseModalKind struct {
	Kind string
}

func (a CloseModalKind) apply(s State) State {
	for i := len(s.Modals) - 1; i >= 0; i-- {
		if s.Modals[i].Kind == a.Kind {
			s.Modals = slices.Delete(slices.Clone(s.Modals), i, i+1)
			return s
		}
	}
	return s
}

// CloseAllModals force-closes every modal.
type CloseAllModals struct{}

func (CloseAllModals) apply(s State) State {
	if len(s.Modals) == 0 {
		return s
	}
	s.Modals = nil
	return s
}

// SetPhase moves the startup sequence. Transitions that would move
// backwards or leave a terminal phase are ignored.
type SetPhase struct {
	Phase Phase
}

func (a SetPhase) apply(s State) State {
	if s.Phase == "" {
		s.Phase = PhaseIdle
	}
	if s.Phase.CanAdvance(a.Phase) {
		s.Phase = a.Phase
	}
	return s
}

// SetLoginChecking toggles the login-in-progress flag.
type SetLoginChecking struct {
	Checking bool
}

func (a SetLoginChecking) apply(s State) State {
	s.LoginChecking = a.Checking
	return s
}

// SetCurrentAccount selects an account id; empty means unauthenticated.
type SetCurrentAccount struct {
	ID string
}

func (a SetCurrentAccount) apply(s State) State {
	s.CurrentAccount = a.ID
	return s
}

// SetRuntimeValid records the runtime check outcome.
type SetRuntimeValid struct {
	Valid bool
	// Trusted marks validity assumed from a closed setup gate rather than
	// a check.
	Trusted bool
}

func (a SetRuntimeValid) apply(s State) State {
	s.RuntimeValid = a.Valid
	s.RuntimeGateTrusted = a.Trusted
	return s
}

// SetUserData stores the bootstrapped session data.
type SetUserData struct {
	Data UserData
}

func (a SetUserData) apply(s State) State {
	s.UserData = a.Data
	return s
}

// SetServerMetadata stores the metadata fetched at startup.
type SetServerMetadata struct {
	Metadata map[string]any
}

func (a SetServerMetadata) apply(s State) State {
	s.ServerMetadata = a.Metadata
	s.MetadataSynced = true
	return s
}

// AddWarning records a non-fatal startup problem.
type AddWarning struct {
	Message string
}

func (a AddWarning) apply(s State) State {
	s.Warnings = append(slices.Clone(s.Warnings), a.Message)
	return s
}

// Batch applies its actions in order as a single transition, so
// subscribers never observe the intermediate states.
type Batch []Action

func (b Batch) apply(s State) State {
	for _, a := range b {
		s = a.apply(s)
	}
	return s
}
