package socketio

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const dialTimeout = 15 * time.Second

// Client is the UI side transport.
type Client struct {
	io     *socket.Socket
	inbox  *inbox
	logger *slog.Logger
}

// Dial connects to the host bus at rawURL, for example
// http://127.0.0.1:7400/socket.io/.
func Dial(ctx context.Context, rawURL string, logger *slog.Logger) (*Client, error) {
	logger = logger.With("component", "socketio_client", "url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		opts.SetPath(parsedURL.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket("/", opts)

	c := &Client{io: io, inbox: newInbox(), logger: logger}
	io.On(types.EventName(EventName), func(args ...any) {
		if err := c.inbox.push(args); err != nil {
			logger.Warn("Dropping inbound frame.", "error", err)
		}
	})

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to host bus.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		logger.Debug("Connection attempt failed.", "error", err)
		select {
		case connectChan <- err:
		default:
		}
	})

	logger.Debug("Initiating connection...")
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return c, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(dialTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", dialTimeout)
	}
}

// Send emits frame to the host.
func (c *Client) Send(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.io.Emit(EventName, string(frame))
}

// Receive returns the next frame sent by the host.
func (c *Client) Receive(ctx context.Context) ([]byte, error) {
	return c.inbox.receive(ctx)
}

// Close disconnects from the host.
func (c *Client) Close() error {
	c.inbox.close()
	c.io.Disconnect()
	return nil
}
