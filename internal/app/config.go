package app

import (
	"errors"
	"strings"
)

// Config holds everything an App instance needs that comes from the
// command line rather than from the config file.
type Config struct {
	ConfigPath string // launcher.hcl
	DataDir    string // overrides data_dir from the file

	LogFormat   string
	LogLevel    string
	ControlAddr string
	Version     string

	// Args are the launch arguments, scanned for protocol URLs.
	Args []string
}

// NewConfig validates cfg and fills defaults.
func NewConfig(cfg Config) (*Config, error) {
	if strings.TrimSpace(cfg.ControlAddr) == "" {
		return nil, errors.New("ControlAddr is a required configuration field and cannot be empty")
	}
	if cfg.Version == "" {
		cfg.Version = "0.0.0-dev"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return &cfg, nil
}
