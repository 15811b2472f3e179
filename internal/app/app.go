package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/specialistvlad/launcher/internal/config"
	"github.com/specialistvlad/launcher/internal/ctxlog"
	"github.com/specialistvlad/launcher/internal/hooks"
	"github.com/specialistvlad/launcher/internal/metrics"
	"github.com/specialistvlad/launcher/internal/store"
)

// App encapsulates the host's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	appConfig *Config
	config    *config.Model

	store    *store.Store
	metrics  *metrics.Metrics
	crashes  *hooks.CrashReporter
	protocol *protocolHub

	mu         sync.Mutex
	httpServer *http.Server
	controlURL string
	listening  chan struct{}
	quit       context.CancelCauseFunc
}

// NewApp is the constructor for the host application. It loads the config
// file through loader and panics when the configuration is unusable.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	cfgModel, err := loader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		// A failure to load config is a fatal startup error.
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	if appConfig.DataDir != "" {
		overrideDataDir(cfgModel, appConfig.DataDir)
	}
	if err := cfgModel.Validate(); err != nil {
		panic(fmt.Errorf("invalid configuration: %w", err))
	}
	logger.Debug("Configuration loaded.", "data_dir", cfgModel.DataDir, "release_type", cfgModel.ReleaseType)

	return &App{
		outW:      outW,
		logger:    logger,
		appConfig: appConfig,
		config:    cfgModel,
		store:     store.New(),
		metrics:   metrics.New(),
		crashes:   hooks.NewCrashReporter(cfgModel.CrashDir(), logger),
		protocol:  newProtocolHub(cfgModel.ProtocolScheme, logger),
		listening: make(chan struct{}),
	}
}

// overrideDataDir moves data_dir and anything configured beneath it.
func overrideDataDir(m *config.Model, dir string) {
	old := m.DataDir
	m.DataDir = dir
	if rel, err := filepath.Rel(old, m.Dependencies.Target); err == nil && !strings.HasPrefix(rel, "..") {
		m.Dependencies.Target = filepath.Join(dir, rel)
	}
}

// Config returns the loaded configuration model.
func (a *App) Config() *config.Model {
	return a.config
}

// Store returns the shared state store.
func (a *App) Store() *store.Store {
	return a.store
}

// ControlURL returns the base URL of the control server once it listens.
func (a *App) ControlURL(ctx context.Context) (string, error) {
	select {
	case <-a.listening:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.controlURL, nil
}
