package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Model is the complete launcher configuration.
type Model struct {
	DataDir        string
	ReleaseType    string
	DevMode        bool
	ProtocolScheme string

	Runtime      Runtime
	Dependencies Dependencies
	Endpoints    Endpoints
	UI           UI
	Presence     Presence
}

// Runtime selects the Java runtime the launcher requires.
type Runtime struct {
	Major    int
	Required bool
}

// Dependencies locate the bundled helper archive.
type Dependencies struct {
	Archive string
	Target  string
	Version string
}

// Endpoints are the web services the launcher talks to.
type Endpoints struct {
	Metadata        string
	RuntimeManifest string
	Auth            string
	Updates         string
	Timeout         time.Duration
}

// UI describes how the UI process is started.
type UI struct {
	// Command starts the UI process. Empty means the UI is started
	// separately and connects to the bus on its own.
	Command     []string
	QuitOnClose bool
}

// Presence configures the Discord integration.
type Presence struct {
	ClientID string
}

// Default returns the configuration used when no file is present.
func Default(home string) *Model {
	dataDir := filepath.Join(home, ".launcher")
	return &Model{
		DataDir:        dataDir,
		ReleaseType:    "stable",
		ProtocolScheme: "launcher",
		Runtime:        Runtime{Major: 17, Required: true},
		Dependencies:   Dependencies{Target: filepath.Join(dataDir, "deps"), Version: "1"},
		Endpoints:      Endpoints{Timeout: 15 * time.Second},
		UI:             UI{QuitOnClose: true},
	}
}

// Validate checks the model for values the launcher cannot run with.
func (m *Model) Validate() error {
	var errs []error
	if strings.TrimSpace(m.DataDir) == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if m.Runtime.Major <= 0 {
		errs = append(errs, fmt.Errorf("runtime.major must be positive, got %d", m.Runtime.Major))
	}
	switch m.ReleaseType {
	case "stable", "beta", "alpha":
	default:
		errs = append(errs, fmt.Errorf("release_type must be stable, beta or alpha, got %q", m.ReleaseType))
	}
	if m.Dependencies.Archive != "" && m.Dependencies.Version == "" {
		errs = append(errs, errors.New("dependencies.version is required when an archive is set"))
	}
	if m.Endpoints.Timeout <= 0 {
		errs = append(errs, errors.New("endpoints.timeout must be positive"))
	}
	return errors.Join(errs...)
}

// LockPath is the instance lock file.
func (m *Model) LockPath() string {
	return filepath.Join(m.DataDir, "launcher.lock")
}

// SocketPath is where the running instance listens for second launches.
func (m *Model) SocketPath() string {
	return filepath.Join(m.DataDir, "launcher.sock")
}

// ManifestCachePath is the cached runtime manifest.
func (m *Model) ManifestCachePath() string {
	return filepath.Join(m.DataDir, "manifests", "runtime.json")
}

// CrashDir holds crash reports.
func (m *Model) CrashDir() string {
	return filepath.Join(m.DataDir, "crashes")
}
