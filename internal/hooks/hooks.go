// Package hooks runs fire-and-forget startup tasks such as the update
// check. A hook's outcome never affects startup; failures and panics are
// logged and, for panics, written to a crash report.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"
)

// Hook is a named background task.
type Hook struct {
	Name string
	Run  func(ctx context.Context) error
}

// CrashReporter writes panic reports into a directory.
type CrashReporter struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// NewCrashReporter returns a reporter writing into dir. An empty dir
// only logs.
func NewCrashReporter(dir string, logger *slog.Logger) *CrashReporter {
	return &CrashReporter{dir: dir, logger: logger, now: time.Now}
}

// Recover is deferred by goroutines that must not take the process down.
func (c *CrashReporter) Recover(name string) {
	r := recover()
	if r == nil {
		return
	}
	c.Report(name, r, debug.Stack())
}

// Report logs a panic and writes it to a crash file.
func (c *CrashReporter) Report(name string, value any, stack []byte) string {
	c.logger.Error("💥 Recovered from panic.", "source", name, "panic", value)
	if c.dir == "" {
		return ""
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.logger.Warn("Could not create crash directory.", "error", err)
		return ""
	}
	path := filepath.Join(c.dir, fmt.Sprintf("crash-%s-%s.log", c.now().UTC().Format("20060102T150405.000"), name))
	body := fmt.Sprintf("source: %s\npanic: %v\n\n%s", name, value, stack)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		c.logger.Warn("Could not write crash report.", "error", err)
		return ""
	}
	return path
}

// Fire starts every hook on its own goroutine and returns immediately.
// The returned WaitGroup lets tests wait for completion.
func Fire(ctx context.Context, logger *slog.Logger, crashes *CrashReporter, hooks ...Hook) *sync.WaitGroup {
	var wg sync.WaitGroup
	for _, h := range hooks {
		wg.Add(1)
		go func(h Hook) {
			defer wg.Done()
			defer crashes.Recover(h.Name)
			logger.Debug("Startup hook started.", "hook", h.Name)
			if err := h.Run(ctx); err != nil {
				logger.Warn("Startup hook failed.", "hook", h.Name, "error", err)
				return
			}
			logger.Debug("Startup hook finished.", "hook", h.Name)
		}(h)
	}
	return &wg
}
