package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads the configuration file at path over the defaults. A
	// missing file is not an error.
	Load(ctx context.Context, path string) (*Model, error)
}
