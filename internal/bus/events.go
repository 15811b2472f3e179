package bus

import "fmt"

// Event names a message kind.
type Event string

const (
	GetUserData         Event = "getUserData"
	GetAppVersion       Event = "getAppVersion"
	InitPresence        Event = "init-discord-rpc"
	CustomProtocolEvent Event = "custom-protocol-event"
	WindowMaximized     Event = "window-maximized"
	WindowMinimized     Event = "window-minimized"
	MaximizeWindow      Event = "maximize-window"
	MinimizeWindow      Event = "minimize-window"
	UnmaximizeWindow    Event = "unmaximize-window"
	FocusWindow         Event = "focus-window"
	QuitApp             Event = "quit-app"
	OpenModal           Event = "open-modal"
	CloseModal          Event = "close-modal"
	ModalsChanged       Event = "modals-changed"
	StartupState        Event = "startup-state"
	Navigate            Event = "navigate"
	UpdateAvailable     Event = "update-available"
)

// Empty is the payload of events that carry no data.
type Empty struct{}

// UserData answers GetUserData.
type UserData struct {
	DataDir     string `json:"dataDir"`
	AppVersion  string `json:"appVersion"`
	ReleaseType string `json:"releaseType"`
}

// AppVersion answers GetAppVersion.
type AppVersion struct {
	Version string `json:"version"`
}

// ProtocolEvent is an out-of-band request that reached the host through a
// custom URL scheme.
type ProtocolEvent struct {
	URL    string            `json:"url"`
	Action string            `json:"action"`
	Params map[string]string `json:"params,omitempty"`
}

// WindowState is pushed whenever the main window changes size state.
type WindowState struct {
	Maximized bool `json:"maximized"`
	Minimized bool `json:"minimized"`
}

// OpenModalRequest asks the host to push a modal onto the open list.
type OpenModalRequest struct {
	Kind         string         `json:"kind"`
	Props        map[string]any `json:"props,omitempty"`
	PreventClose bool           `json:"preventClose,omitempty"`
}

// CloseModalRequest removes modals. An empty Kind pops the topmost modal;
// All removes every modal.
type CloseModalRequest struct {
	Kind string `json:"kind,omitempty"`
	All  bool   `json:"all,omitempty"`
}

// ModalView is one entry of the open modal list as the UI sees it.
type ModalView struct {
	Kind     string         `json:"kind"`
	Props    map[string]any `json:"props,omitempty"`
	Blocking bool           `json:"blocking,omitempty"`
}

// ModalList is pushed after every change of the open modal list.
type ModalList struct {
	Modals []ModalView `json:"modals"`
}

// StartupSnapshot is pushed after every startup state transition.
type StartupSnapshot struct {
	Phase          string   `json:"phase"`
	LoginChecking  bool     `json:"loginChecking"`
	CurrentAccount string   `json:"currentAccount,omitempty"`
	RuntimeValid   bool     `json:"runtimeValid"`
	Warnings       []string `json:"warnings,omitempty"`
}

// Route asks the UI to show a view.
type Route struct {
	Path string `json:"path"`
}

// Update announces a newer release.
type Update struct {
	Current string `json:"current"`
	Latest  string `json:"latest"`
	URL     string `json:"url,omitempty"`
}

// Spec declares the payload types of one event kind. A nil constructor
// means the event cannot travel in that direction.
type Spec struct {
	Request  func() any
	Response func() any
	Notify   func() any
}

// Allows reports whether the event may be sent in direction d.
func (s Spec) Allows(d Direction) bool {
	switch d {
	case Request, Response:
		return s.Request != nil
	case Notify:
		return s.Notify != nil
	}
	return false
}

// Catalog is the closed set of events a Bus accepts.
type Catalog map[Event]Spec

// Lookup returns the spec of ev checked against direction d.
func (c Catalog) Lookup(ev Event, d Direction) (Spec, error) {
	spec, ok := c[ev]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownEvent, ev)
	}
	if !spec.Allows(d) {
		return Spec{}, fmt.Errorf("%w: %s %q", ErrDirection, d, ev)
	}
	return spec, nil
}

func newOf[T any]() func() any {
	return func() any { return new(T) }
}

// DefaultCatalog lists every event exchanged by the launcher processes.
func DefaultCatalog() Catalog {
	return Catalog{
		GetUserData:         {Request: newOf[Empty](), Response: newOf[UserData]()},
		GetAppVersion:       {Request: newOf[Empty](), Response: newOf[AppVersion]()},
		InitPresence:        {Request: newOf[Empty](), Response: newOf[Empty](), Notify: newOf[Empty]()},
		CustomProtocolEvent: {Notify: newOf[ProtocolEvent]()},
		WindowMaximized:     {Notify: newOf[WindowState]()},
		WindowMinimized:     {Notify: newOf[WindowState]()},
		MaximizeWindow:      {Request: newOf[Empty](), Response: newOf[WindowState]()},
		MinimizeWindow:      {Request: newOf[Empty](), Response: newOf[WindowState]()},
		UnmaximizeWindow:    {Request: newOf[Empty](), Response: newOf[WindowState]()},
		FocusWindow:         {Notify: newOf[Empty]()},
		QuitApp:             {Request: newOf[Empty](), Response: newOf[Empty]()},
		OpenModal:           {Request: newOf[OpenModalRequest](), Response: newOf[Empty]()},
		CloseModal:          {Request: newOf[CloseModalRequest](), Response: newOf[Empty]()},
		ModalsChanged:       {Notify: newOf[ModalList]()},
		StartupState:        {Notify: newOf[StartupSnapshot]()},
		Navigate:            {Notify: newOf[Route]()},
		UpdateAvailable:     {Notify: newOf[Update]()},
	}
}
