package presence

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/specialistvlad/launcher/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	op   uint32
	body map[string]any
}

// fakeDiscord answers the handshake and records every frame after it.
func fakeDiscord(t *testing.T, conn net.Conn) <-chan frame {
	t.Helper()
	frames := make(chan frame, 8)
	go func() {
		defer close(frames)
		for {
			op, body, err := readFrame(conn)
			if err != nil {
				return
			}
			var decoded map[string]any
			_ = json.Unmarshal(body, &decoded)
			frames <- frame{op: op, body: decoded}
			if op == opHandshake {
				_ = writeFrame(conn, opFrame, map[string]any{"cmd": "DISPATCH", "evt": "READY"})
			}
		}
	}()
	return frames
}

func next(t *testing.T, frames <-chan frame) frame {
	t.Helper()
	select {
	case f := <-frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return frame{}
	}
}

func TestService_EnablePublishesActivity(t *testing.T) {
	t.Parallel()
	client, server := net.Pipe()
	frames := fakeDiscord(t, server)
	t.Cleanup(func() { _ = server.Close() })

	dials := 0
	svc := New("1234", ctxlog.Discard()).WithDialer(func(ctx context.Context) (net.Conn, error) {
		dials++
		return client, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Enable(ctx))
	require.NoError(t, svc.Enable(ctx))
	assert.Equal(t, 1, dials)
	assert.True(t, svc.Enabled())

	hs := next(t, frames)
	assert.Equal(t, opHandshake, hs.op)
	assert.Equal(t, "1234", hs.body["client_id"])

	act := next(t, frames)
	assert.Equal(t, opFrame, act.op)
	assert.Equal(t, "SET_ACTIVITY", act.body["cmd"])

	require.NoError(t, svc.SetActivity("Playing"))
	act = next(t, frames)
	args := act.body["args"].(map[string]any)
	assert.Equal(t, "Playing", args["activity"].(map[string]any)["details"])

	require.NoError(t, svc.Close())
	assert.False(t, svc.Enabled())
}

func TestService_DisabledWithoutClientID(t *testing.T) {
	t.Parallel()
	svc := New("", ctxlog.Discard())
	require.ErrorIs(t, svc.Enable(context.Background()), ErrDisabled)
	require.NoError(t, svc.SetActivity("x"))
	require.NoError(t, svc.Close())
}
