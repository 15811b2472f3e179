package bus

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned once the transport has shut down.
	ErrClosed = errors.New("bus: closed")
	// ErrUnknownEvent is returned for event kinds missing from the catalog.
	ErrUnknownEvent = errors.New("bus: unknown event")
	// ErrDirection is returned when an event is used in a direction its
	// catalog entry does not allow.
	ErrDirection = errors.New("bus: direction not allowed for event")
	// ErrDuplicateID is returned when a request id is already pending.
	ErrDuplicateID = errors.New("bus: duplicate request id")
	// ErrNoHandler is reported to the caller when the receiver has no
	// handler for a request.
	ErrNoHandler = errors.New("bus: no handler registered")
)

// RemoteError is the failure a responder reported for a request.
type RemoteError struct {
	Event   Event
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: remote error: %s", e.Event, e.Message)
}
