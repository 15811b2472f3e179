// Package apiclient builds the resty clients the launcher uses to talk to
// its web services.
package apiclient

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"resty.dev/v3"
)

// DefaultTimeout bounds a single HTTP exchange when none is configured.
const DefaultTimeout = 15 * time.Second

// ErrNotConfigured is returned by clients whose endpoint URL is empty.
var ErrNotConfigured = errors.New("apiclient: endpoint not configured")

// Options configure a client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Retries   int
	UserAgent string
}

// New returns a resty client that logs through logger.
func New(opts Options, logger *slog.Logger) *resty.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(250 * time.Millisecond).
		SetLogger(slogAdapter{logger: logger}).
		SetHeader("Accept", "application/json")
	if opts.BaseURL != "" {
		c.SetBaseURL(opts.BaseURL)
	}
	if opts.UserAgent != "" {
		c.SetHeader("User-Agent", opts.UserAgent)
	}
	return c
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.URL, e.Status, e.Body)
}

// CheckResponse turns an error status into a *StatusError.
func CheckResponse(resp *resty.Response) error {
	if resp.IsError() {
		return &StatusError{URL: resp.Request.URL, Status: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Errorf(format string, v ...any) {
	a.logger.Error(fmt.Sprintf(format, v...), "component", "http")
}

func (a slogAdapter) Warnf(format string, v ...any) {
	a.logger.Warn(fmt.Sprintf(format, v...), "component", "http")
}

func (a slogAdapter) Debugf(format string, v ...any) {
	a.logger.Debug(fmt.Sprintf(format, v...), "component", "http")
}
