package app

import (
	"sync"
	"testing"

	"github.com/specialistvlad/launcher/internal/bus"
	"github.com/specialistvlad/launcher/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProtocolURL(t *testing.T) {
	t.Parallel()
	cases := []struct {
		raw     string
		action  string
		params  map[string]string
		wantErr bool
	}{
		{raw: "launcher://join?server=play.example&port=25565", action: "join", params: map[string]string{"server": "play.example", "port": "25565"}},
		{raw: "LAUNCHER://open", action: "open"},
		{raw: "launcher:install/pack", action: "install"},
		{raw: "other://join", wantErr: true},
		{raw: "launcher://", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			t.Parallel()
			ev, err := parseProtocolURL("launcher", tc.raw)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.raw, ev.URL)
			assert.Equal(t, tc.action, ev.Action)
			assert.Equal(t, tc.params, ev.Params)
		})
	}
}

type recorder struct {
	mu  sync.Mutex
	got []string
}

func (r *recorder) add(ev bus.ProtocolEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ev.Action)
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func TestProtocolHub_BacklogGoesToFirstSubscriber(t *testing.T) {
	t.Parallel()
	// Arrange
	hub := newProtocolHub("launcher", ctxlog.Discard())
	hub.PublishArgs([]string{"--flag", "launcher://join?server=a"})
	hub.PublishArgs([]string{"nothing here"})

	// Act
	first, second := &recorder{}, &recorder{}
	hub.Subscribe(first.add)
	hub.Subscribe(second.add)
	hub.Publish(bus.ProtocolEvent{Action: "open"})

	// Assert
	assert.Equal(t, []string{"join", "open"}, first.actions())
	assert.Equal(t, []string{"open"}, second.actions())
}

func TestProtocolHub_Unsubscribe(t *testing.T) {
	t.Parallel()
	hub := newProtocolHub("launcher", ctxlog.Discard())
	rec := &recorder{}
	off := hub.Subscribe(rec.add)
	keep := &recorder{}
	hub.Subscribe(keep.add)

	off()
	hub.Publish(bus.ProtocolEvent{Action: "open"})

	assert.Empty(t, rec.actions())
	assert.Equal(t, []string{"open"}, keep.actions())
}
