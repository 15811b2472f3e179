package app

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/specialistvlad/launcher/internal/bus"
)

// parseProtocolURL turns launcher://action/rest?k=v into an event.
func parseProtocolURL(scheme, raw string) (bus.ProtocolEvent, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return bus.ProtocolEvent{}, fmt.Errorf("parsing protocol url: %w", err)
	}
	if !strings.EqualFold(u.Scheme, scheme) {
		return bus.ProtocolEvent{}, fmt.Errorf("protocol url %q: scheme is not %q", raw, scheme)
	}
	action := u.Host
	if action == "" {
		action, _, _ = strings.Cut(strings.TrimPrefix(u.Opaque+u.Path, "/"), "/")
	}
	if action == "" {
		return bus.ProtocolEvent{}, fmt.Errorf("protocol url %q: missing action", raw)
	}

	ev := bus.ProtocolEvent{URL: raw, Action: action}
	if q := u.Query(); len(q) > 0 {
		ev.Params = make(map[string]string, len(q))
		for k := range q {
			ev.Params[k] = q.Get(k)
		}
	}
	return ev, nil
}

// protocolHub fans protocol events out to subscribers. Events published
// while nobody listens are kept and handed to the first subscriber, so a
// URL that launched the process is not lost before startup is ready.
type protocolHub struct {
	scheme string
	logger *slog.Logger

	mu      sync.Mutex
	subs    map[int]func(bus.ProtocolEvent)
	next    int
	backlog []bus.ProtocolEvent
}

func newProtocolHub(scheme string, logger *slog.Logger) *protocolHub {
	return &protocolHub{
		scheme: scheme,
		logger: logger.With("component", "protocol"),
		subs:   make(map[int]func(bus.ProtocolEvent)),
	}
}

// Subscribe implements startup.ProtocolSource.
func (h *protocolHub) Subscribe(fn func(bus.ProtocolEvent)) (unsubscribe func()) {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = fn
	backlog := h.backlog
	h.backlog = nil
	h.mu.Unlock()

	for _, ev := range backlog {
		fn(ev)
	}
	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Publish delivers ev to every subscriber.
func (h *protocolHub) Publish(ev bus.ProtocolEvent) {
	h.mu.Lock()
	if len(h.subs) == 0 {
		h.backlog = append(h.backlog, ev)
		h.mu.Unlock()
		h.logger.Debug("Protocol event queued until startup is ready.", "action", ev.Action)
		return
	}
	fns := make([]func(bus.ProtocolEvent), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// PublishArgs publishes the first protocol URL found in args.
func (h *protocolHub) PublishArgs(args []string) {
	prefix := strings.ToLower(h.scheme) + "://"
	for _, arg := range args {
		if !strings.HasPrefix(strings.ToLower(arg), prefix) {
			continue
		}
		ev, err := parseProtocolURL(h.scheme, arg)
		if err != nil {
			h.logger.Warn("Ignoring protocol url.", "url", arg, "error", err)
			return
		}
		h.Publish(ev)
		return
	}
}
