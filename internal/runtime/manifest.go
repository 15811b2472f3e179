package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/specialistvlad/launcher/internal/apiclient"
	"resty.dev/v3"
)

// Release describes the runtime build expected for one major version.
type Release struct {
	Version     string `json:"version"`
	ReleaseName string `json:"release_name"`
	URL         string `json:"url,omitempty"`
	SHA256      string `json:"sha256,omitempty"`
}

// Manifest lists the expected runtime release per major version.
type Manifest struct {
	Runtimes map[string]Release `json:"runtimes"`
}

// Release returns the entry for major.
func (m *Manifest) Release(major int) (Release, bool) {
	if m == nil {
		return Release{}, false
	}
	r, ok := m.Runtimes[strconv.Itoa(major)]
	return r, ok
}

// ManifestStore fetches the runtime manifest and keeps the last good copy
// on disk.
type ManifestStore struct {
	client    *resty.Client
	url       string
	cachePath string
	logger    *slog.Logger
}

// NewManifestStore returns a store fetching from url and caching at
// cachePath. An empty url makes Load read the cache only.
func NewManifestStore(client *resty.Client, url, cachePath string, logger *slog.Logger) *ManifestStore {
	return &ManifestStore{client: client, url: url, cachePath: cachePath, logger: logger.With("component", "manifest")}
}

// Load fetches the manifest, falling back to the cached copy when the
// fetch fails.
func (s *ManifestStore) Load(ctx context.Context) (*Manifest, error) {
	m, fetchErr := s.fetch(ctx)
	if fetchErr == nil {
		if err := s.save(m); err != nil {
			s.logger.Warn("Could not cache runtime manifest.", "error", err)
		}
		return m, nil
	}

	cached, cacheErr := s.readCache()
	if cacheErr != nil {
		return nil, errors.Join(fetchErr, cacheErr)
	}
	s.logger.Warn("Using cached runtime manifest.", "error", fetchErr)
	return cached, nil
}

func (s *ManifestStore) fetch(ctx context.Context) (*Manifest, error) {
	if s.url == "" {
		return nil, fmt.Errorf("runtime manifest: %w", apiclient.ErrNotConfigured)
	}
	m := &Manifest{}
	resp, err := s.client.R().SetContext(ctx).SetResult(m).Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("fetching runtime manifest: %w", err)
	}
	if err := apiclient.CheckResponse(resp); err != nil {
		return nil, fmt.Errorf("fetching runtime manifest: %w", err)
	}
	return m, nil
}

func (s *ManifestStore) readCache() (*Manifest, error) {
	raw, err := os.ReadFile(s.cachePath)
	if err != nil {
		return nil, fmt.Errorf("reading cached runtime manifest: %w", err)
	}
	m := &Manifest{}
	if err := json.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("decoding cached runtime manifest: %w", err)
	}
	return m, nil
}

func (s *ManifestStore) save(m *Manifest) error {
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.cachePath), 0o755); err != nil {
		return err
	}
	tmp := s.cachePath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.cachePath)
}
