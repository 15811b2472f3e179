// Package socketio carries bus frames over socket.io. The host mounts a
// Server on its control HTTP server; the UI process connects with Dial.
// Both sides exchange JSON frames as string arguments of a single event.
package socketio

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/launcher/internal/bus"
)

// EventName is the socket.io event every bus frame travels on.
const EventName = "bus"

const inboxSize = 1024

// inbox buffers inbound frames between socket.io callbacks and Receive.
type inbox struct {
	frames    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newInbox() *inbox {
	return &inbox{frames: make(chan []byte, inboxSize), done: make(chan struct{})}
}

func (in *inbox) push(args []any) error {
	if len(args) == 0 {
		return fmt.Errorf("empty %q event", EventName)
	}
	var frame []byte
	switch v := args[0].(type) {
	case string:
		frame = []byte(v)
	case []byte:
		frame = v
	default:
		return fmt.Errorf("unexpected %q argument type %T", EventName, args[0])
	}
	select {
	case in.frames <- frame:
		return nil
	case <-in.done:
		return bus.ErrClosed
	}
}

func (in *inbox) receive(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-in.frames:
		return frame, nil
	case <-in.done:
		return nil, bus.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (in *inbox) close() {
	in.closeOnce.Do(func() { close(in.done) })
}
