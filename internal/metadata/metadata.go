// Package metadata fetches the service metadata the UI shows once startup
// completes: game version lists, loader versions and similar catalogs.
package metadata

import (
	"context"
	"fmt"

	"github.com/specialistvlad/launcher/internal/apiclient"
	"resty.dev/v3"
)

// Client fetches the metadata document.
type Client struct {
	client *resty.Client
	url    string
}

// New returns a client for the document at url.
func New(client *resty.Client, url string) *Client {
	return &Client{client: client, url: url}
}

// Fetch downloads and decodes the metadata document.
func (c *Client) Fetch(ctx context.Context) (map[string]any, error) {
	if c.url == "" {
		return nil, fmt.Errorf("metadata: %w", apiclient.ErrNotConfigured)
	}
	doc := map[string]any{}
	resp, err := c.client.R().SetContext(ctx).SetResult(&doc).Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("fetching metadata: %w", err)
	}
	if err := apiclient.CheckResponse(resp); err != nil {
		return nil, fmt.Errorf("fetching metadata: %w", err)
	}
	return doc, nil
}
