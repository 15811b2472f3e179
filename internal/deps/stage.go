// Package deps unpacks the native helper binaries bundled with the
// launcher into the data directory before the first window is created.
//
// The payload is a zstd-compressed tar archive. A version stamp written
// next to the extracted files makes the stage idempotent across runs:
// when the stamp matches the bundled version nothing is touched.
package deps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-version"
)

// StampFile is the name of the version stamp inside the target directory.
const StampFile = ".deps-version"

// ErrUnsafePath is returned for archive entries that would land outside
// the target directory.
var ErrUnsafePath = errors.New("deps: archive entry escapes target directory")

// Options locate the bundled archive and where it is unpacked.
type Options struct {
	Archive string
	Target  string
	Version string
}

// Stage runs the extraction at most once per process.
type Stage struct {
	opts   Options
	logger *slog.Logger

	once sync.Once
	done chan struct{}
	err  error
}

// NewStage returns a stage for opts.
func NewStage(opts Options, logger *slog.Logger) *Stage {
	return &Stage{
		opts:   opts,
		logger: logger.With("component", "deps"),
		done:   make(chan struct{}),
	}
}

// Extract unpacks the archive unless the stamp already matches. Only the
// first call does any work; every call returns its result.
func (s *Stage) Extract(ctx context.Context) error {
	s.once.Do(func() {
		defer close(s.done)
		s.err = s.extract(ctx)
	})
	return s.err
}

// Wait blocks until Extract has finished and returns its result.
func (s *Stage) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dir returns the directory the helpers are unpacked into.
func (s *Stage) Dir() string {
	return s.opts.Target
}

func (s *Stage) extract(ctx context.Context) error {
	if s.opts.Archive == "" {
		s.logger.Debug("No dependency archive configured, skipping extraction.")
		return nil
	}
	if s.opts.Target == "" {
		return errors.New("deps: target directory not configured")
	}

	current, err := ReadStamp(s.opts.Target)
	if err != nil {
		return err
	}
	if current != "" && sameVersion(current, s.opts.Version) {
		s.logger.Debug("Dependencies already extracted.", "version", current, "target", s.opts.Target)
		return nil
	}

	s.logger.Info("📦 Extracting dependencies...", "archive", s.opts.Archive, "version", s.opts.Version)
	parent := filepath.Dir(s.opts.Target)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", parent, err)
	}
	tmp, err := os.MkdirTemp(parent, ".deps-*")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	files, err := extractArchive(ctx, s.opts.Archive, tmp)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(tmp, StampFile), []byte(s.opts.Version+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing version stamp: %w", err)
	}
	if err := os.RemoveAll(s.opts.Target); err != nil {
		return fmt.Errorf("removing previous dependencies: %w", err)
	}
	if err := os.Rename(tmp, s.opts.Target); err != nil {
		return fmt.Errorf("moving dependencies into place: %w", err)
	}

	s.logger.Info("📦 Dependencies extracted.", "files", files, "target", s.opts.Target)
	return nil
}

// ReadStamp returns the version recorded in dir, or "" when none is.
func ReadStamp(dir string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(dir, StampFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading version stamp: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// sameVersion compares semantically when both sides parse, so "1.2"
// matches "1.2.0".
func sameVersion(a, b string) bool {
	va, errA := version.NewVersion(a)
	vb, errB := version.NewVersion(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return va.Equal(vb)
}
