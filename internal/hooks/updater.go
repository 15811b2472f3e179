package hooks

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-version"
	"github.com/specialistvlad/launcher/internal/apiclient"
	"github.com/specialistvlad/launcher/internal/bus"
	"resty.dev/v3"
)

type release struct {
	Version string `json:"version"`
	URL     string `json:"url"`
}

// Updater checks the release feed for a newer launcher version.
type Updater struct {
	client  *resty.Client
	url     string
	current string
	notify  func(bus.Update)
}

// NewUpdater returns an updater comparing the feed at url with current.
// notify is called when a newer release exists.
func NewUpdater(client *resty.Client, url, current string, notify func(bus.Update)) *Updater {
	return &Updater{client: client, url: url, current: current, notify: notify}
}

// Check fetches the feed and reports whether it offers a newer version.
func (u *Updater) Check(ctx context.Context) (bus.Update, bool, error) {
	if u.url == "" {
		return bus.Update{}, false, fmt.Errorf("update feed: %w", apiclient.ErrNotConfigured)
	}
	current, err := version.NewVersion(u.current)
	if err != nil {
		return bus.Update{}, false, fmt.Errorf("parsing current version %q: %w", u.current, err)
	}

	latest := &release{}
	resp, err := u.client.R().SetContext(ctx).SetResult(latest).Get(u.url)
	if err != nil {
		return bus.Update{}, false, fmt.Errorf("fetching update feed: %w", err)
	}
	if err := apiclient.CheckResponse(resp); err != nil {
		return bus.Update{}, false, fmt.Errorf("fetching update feed: %w", err)
	}
	lv, err := version.NewVersion(latest.Version)
	if err != nil {
		return bus.Update{}, false, fmt.Errorf("parsing feed version %q: %w", latest.Version, err)
	}

	update := bus.Update{Current: current.String(), Latest: lv.String(), URL: latest.URL}
	return update, lv.GreaterThan(current), nil
}

// Hook wraps Check as a startup hook.
func (u *Updater) Hook() Hook {
	return Hook{Name: "auto-update", Run: func(ctx context.Context) error {
		update, newer, err := u.Check(ctx)
		if err != nil {
			return err
		}
		if newer && u.notify != nil {
			u.notify(update)
		}
		return nil
	}}
}
