// Package runtime decides whether the Java runtime the launcher needs is
// present. It only inspects the filesystem and the manifest; acquiring a
// missing runtime is left to the setup flow the caller triggers.
package runtime

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"

	"github.com/hashicorp/go-version"
)

// UserContext carries the per-user facts the check depends on.
type UserContext struct {
	DataDir string
	// ConfiguredPath is a runtime the user pointed at explicitly. It is
	// trusted without inspection.
	ConfiguredPath string
}

// Result is the outcome of a readiness check.
type Result struct {
	IsValid          bool
	NeedsAcquisition bool
	Path             string
	Expected         string
}

// Validator checks runtime installations under <data_dir>/runtime.
type Validator struct {
	logger *slog.Logger
	goos   string
}

// NewValidator returns a validator for the current platform.
func NewValidator(logger *slog.Logger) *Validator {
	return &Validator{logger: logger.With("component", "runtime"), goos: goruntime.GOOS}
}

// InstallRoot returns where managed runtimes are unpacked.
func InstallRoot(dataDir string) string {
	return filepath.Join(dataDir, "runtime")
}

// IsRuntimeReady reports whether a runtime of major is usable. When
// required is set the installed build must match the manifest version
// exactly; otherwise any build of the same major is accepted. A nil
// manifest falls back to scanning the install root.
func (v *Validator) IsRuntimeReady(manifest *Manifest, uc UserContext, required bool, major int) Result {
	logger := v.logger.With("major", major, "required", required)

	if uc.ConfiguredPath != "" {
		logger.Debug("Using configured runtime.", "path", uc.ConfiguredPath)
		return Result{IsValid: true, Path: uc.ConfiguredPath}
	}

	release, ok := manifest.Release(major)
	if !ok {
		if required {
			logger.Info("No manifest entry for runtime, acquisition needed.")
			return Result{NeedsAcquisition: true}
		}
		if path, found := v.scan(uc.DataDir, major); found {
			logger.Debug("Found runtime without manifest.", "path", path)
			return Result{IsValid: true, Path: path}
		}
		return Result{NeedsAcquisition: true}
	}

	home := filepath.Join(InstallRoot(uc.DataDir), release.ReleaseName)
	result := Result{Expected: release.Version, NeedsAcquisition: true}

	installed, ok := v.installedVersion(home)
	if !ok {
		logger.Info("Runtime not installed.", "expected", release.Version, "home", home)
		return result
	}
	if !versionMatches(installed, release.Version, required, major) {
		logger.Info("Installed runtime is outdated.", "installed", installed, "expected", release.Version)
		return result
	}

	return Result{IsValid: true, Path: v.executable(home), Expected: release.Version}
}

func (v *Validator) scan(dataDir string, major int) (string, bool) {
	entries, err := os.ReadDir(InstallRoot(dataDir))
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		home := filepath.Join(InstallRoot(dataDir), e.Name())
		installed, ok := v.installedVersion(home)
		if ok && versionMatches(installed, "", false, major) {
			return v.executable(home), true
		}
	}
	return "", false
}

func (v *Validator) executable(home string) string {
	name := "java"
	if v.goos == "windows" {
		name = "java.exe"
	}
	return filepath.Join(home, "bin", name)
}

// installedVersion reads JAVA_VERSION from the release file of a runtime
// home whose executable exists.
func (v *Validator) installedVersion(home string) (string, bool) {
	if _, err := os.Stat(v.executable(home)); err != nil {
		return "", false
	}
	f, err := os.Open(filepath.Join(home, "release"))
	if err != nil {
		return "", false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), "=")
		if ok && strings.TrimSpace(key) == "JAVA_VERSION" {
			return strings.Trim(strings.TrimSpace(value), `"`), true
		}
	}
	return "", false
}

func versionMatches(installed, expected string, required bool, major int) bool {
	iv, err := version.NewVersion(installed)
	if err != nil {
		return false
	}
	if required {
		ev, err := version.NewVersion(expected)
		if err != nil {
			return false
		}
		return iv.Core().Equal(ev.Core())
	}
	segments := iv.Segments()
	return len(segments) > 0 && segments[0] == major
}
