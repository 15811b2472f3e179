package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/launcher/internal/ctxlog"
)

// Handler answers a request. payload is a pointer to the request type the
// catalog declares for the event.
type Handler func(ctx context.Context, payload any) (any, error)

// Listener receives a notification. payload is a pointer to the notify
// type the catalog declares for the event.
type Listener func(ctx context.Context, payload any)

// Observer is told about every frame the bus handles. outcome is one of
// "sent", "received", "rejected", "dropped" or "failed".
type Observer func(ev Event, dir Direction, outcome string)

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for dropped and rejected frames.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) { b.logger = logger }
}

// WithCatalog replaces DefaultCatalog.
func WithCatalog(c Catalog) Option {
	return func(b *Bus) { b.catalog = c }
}

// WithIDGenerator replaces the UUID request id generator.
func WithIDGenerator(fn func() string) Option {
	return func(b *Bus) { b.newID = fn }
}

// WithObserver installs a frame observer.
func WithObserver(o Observer) Option {
	return func(b *Bus) { b.observer = o }
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// Bus is one endpoint of the message bus.
type Bus struct {
	transport Transport
	catalog   Catalog
	pending   *PendingTable
	logger    *slog.Logger
	newID     func() string
	observer  Observer

	mu        sync.RWMutex
	handlers  map[Event]Handler
	listeners map[Event][]listenerEntry
	nextID    uint64

	closed    chan struct{}
	closeOnce sync.Once
}

// New creates a Bus on top of t. Run must be called to process inbound
// frames.
func New(t Transport, opts ...Option) *Bus {
	b := &Bus{
		transport: t,
		catalog:   DefaultCatalog(),
		pending:   NewPendingTable(),
		logger:    ctxlog.Discard(),
		newID:     uuid.NewString,
		handlers:  make(map[Event]Handler),
		listeners: make(map[Event][]listenerEntry),
		closed:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handle registers the responder for requests of ev, replacing any
// previous one.
func (b *Bus) Handle(ev Event, h Handler) {
	if _, err := b.catalog.Lookup(ev, Request); err != nil {
		panic(err)
	}
	b.mu.Lock()
	b.handlers[ev] = h
	b.mu.Unlock()
}

// On registers a listener for notifications of ev. The returned function
// removes it.
func (b *Bus) On(ev Event, l Listener) (off func()) {
	if _, err := b.catalog.Lookup(ev, Notify); err != nil {
		panic(err)
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners[ev] = append(b.listeners[ev], listenerEntry{id: id, fn: l})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			entries := b.listeners[ev]
			for i, e := range entries {
				if e.id == id {
					b.listeners[ev] = append(entries[:i:i], entries[i+1:]...)
					break
				}
			}
		})
	}
}

// Send issues a request and waits for its response. The decoded response
// is a pointer to the catalog's response type for ev. Send does not time
// out; ctx bounds the wait and, once done, removes the pending entry.
func (b *Bus) Send(ctx context.Context, ev Event, payload any) (any, error) {
	spec, err := b.catalog.Lookup(ev, Request)
	if err != nil {
		return nil, err
	}
	raw, err := encodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ev, err)
	}

	id := b.newID()
	respCh, err := b.pending.Insert(id)
	if err != nil {
		return nil, err
	}

	if err := b.write(ctx, Message{ID: id, Event: ev, Payload: raw, Direction: Request}); err != nil {
		b.pending.Remove(id)
		return nil, err
	}

	select {
	case resp := <-respCh:
		if resp.Error != "" {
			return nil, &RemoteError{Event: ev, Message: resp.Error}
		}
		v, err := decodePayload(resp.Payload, spec.Response)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ev, err)
		}
		return v, nil
	case <-ctx.Done():
		b.pending.Remove(id)
		return nil, ctx.Err()
	case <-b.closed:
		b.pending.Remove(id)
		return nil, ErrClosed
	}
}

// Emit sends a notification without waiting for anything in return.
func (b *Bus) Emit(ev Event, payload any) error {
	if _, err := b.catalog.Lookup(ev, Notify); err != nil {
		return err
	}
	raw, err := encodePayload(payload)
	if err != nil {
		return fmt.Errorf("%s: %w", ev, err)
	}
	return b.write(context.Background(), Message{Event: ev, Payload: raw, Direction: Notify})
}

// Pending returns the number of requests awaiting a response.
func (b *Bus) Pending() int {
	return b.pending.Len()
}

// Done is closed once Run has returned.
func (b *Bus) Done() <-chan struct{} {
	return b.closed
}

// Close closes the transport. Run returns shortly after.
func (b *Bus) Close() error {
	return b.transport.Close()
}

// Run reads frames until the transport closes or ctx ends. Notifications
// are delivered in arrival order on this goroutine; each request is
// handled on its own goroutine.
func (b *Bus) Run(ctx context.Context) error {
	defer b.closeOnce.Do(func() { close(b.closed) })

	for {
		frame, err := b.transport.Receive(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("bus receive: %w", err)
		}

		msg, err := decodeMessage(frame)
		if err != nil {
			b.logger.Warn("Dropping malformed frame.", "error", err)
			continue
		}

		switch msg.Direction {
		case Response:
			if !b.pending.Resolve(msg) {
				b.logger.Debug("Dropping response with no pending request.", "id", msg.ID, "event", msg.Event)
				b.observe(msg.Event, Response, "dropped")
				continue
			}
			b.observe(msg.Event, Response, "received")
		case Notify:
			b.dispatchNotify(ctx, msg)
		case Request:
			go b.serveRequest(ctx, msg)
		}
	}
}

func (b *Bus) dispatchNotify(ctx context.Context, msg Message) {
	spec, err := b.catalog.Lookup(msg.Event, Notify)
	if err != nil {
		b.logger.Warn("Rejecting notification.", "event", msg.Event, "error", err)
		b.observe(msg.Event, Notify, "rejected")
		return
	}
	payload, err := decodePayload(msg.Payload, spec.Notify)
	if err != nil {
		b.logger.Warn("Rejecting notification.", "event", msg.Event, "error", err)
		b.observe(msg.Event, Notify, "rejected")
		return
	}
	b.observe(msg.Event, Notify, "received")

	b.mu.RLock()
	entries := append([]listenerEntry(nil), b.listeners[msg.Event]...)
	b.mu.RUnlock()

	for _, e := range entries {
		b.callListener(ctx, msg.Event, e.fn, payload)
	}
}

func (b *Bus) callListener(ctx context.Context, ev Event, fn Listener, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Notification listener panicked.", "event", ev, "panic", r)
		}
	}()
	fn(ctx, payload)
}

func (b *Bus) serveRequest(ctx context.Context, msg Message) {
	reply := Message{ID: msg.ID, Event: msg.Event, Direction: Response}

	result, err := b.handle(ctx, msg)
	if err == nil {
		reply.Payload, err = encodePayload(result)
	}
	if err != nil {
		reply.Payload = nil
		reply.Error = err.Error()
		b.observe(msg.Event, Request, "failed")
	} else {
		b.observe(msg.Event, Request, "received")
	}

	if err := b.write(ctx, reply); err != nil {
		b.logger.Debug("Could not deliver response.", "id", msg.ID, "event", msg.Event, "error", err)
	}
}

func (b *Bus) handle(ctx context.Context, msg Message) (result any, err error) {
	spec, err := b.catalog.Lookup(msg.Event, Request)
	if err != nil {
		b.logger.Warn("Rejecting request.", "event", msg.Event, "error", err)
		return nil, err
	}
	payload, err := decodePayload(msg.Payload, spec.Request)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	h, ok := b.handlers[msg.Event]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, msg.Event)
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Request handler panicked.", "event", msg.Event, "panic", r)
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h(ctx, payload)
}

func (b *Bus) write(ctx context.Context, msg Message) error {
	frame, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	if err := b.transport.Send(ctx, frame); err != nil {
		return fmt.Errorf("%s %s: %w", msg.Direction, msg.Event, err)
	}
	if msg.Direction != Response {
		b.observe(msg.Event, msg.Direction, "sent")
	}
	return nil
}

func (b *Bus) observe(ev Event, dir Direction, outcome string) {
	if b.observer != nil {
		b.observer(ev, dir, outcome)
	}
}

// HandleFunc registers a typed request handler.
func HandleFunc[Req any](b *Bus, ev Event, fn func(ctx context.Context, req *Req) (any, error)) {
	b.Handle(ev, func(ctx context.Context, payload any) (any, error) {
		req, ok := payload.(*Req)
		if !ok {
			return nil, fmt.Errorf("%s: unexpected payload type %T", ev, payload)
		}
		return fn(ctx, req)
	})
}

// OnFunc registers a typed notification listener.
func OnFunc[T any](b *Bus, ev Event, fn func(ctx context.Context, v *T)) (off func()) {
	return b.On(ev, func(ctx context.Context, payload any) {
		v, ok := payload.(*T)
		if !ok {
			b.logger.Warn("Unexpected notification payload.", "event", ev, "type", fmt.Sprintf("%T", payload))
			return
		}
		fn(ctx, v)
	})
}

// Call sends a request and returns the typed response.
func Call[T any](ctx context.Context, b *Bus, ev Event, payload any) (T, error) {
	var zero T
	resp, err := b.Send(ctx, ev, payload)
	if err != nil {
		return zero, err
	}
	v, ok := resp.(*T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected response type %T", ev, resp)
	}
	return *v, nil
}

// CallTimeout is Call bounded by d.
func CallTimeout[T any](ctx context.Context, b *Bus, ev Event, payload any, d time.Duration) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return Call[T](ctx, b, ev, payload)
}
