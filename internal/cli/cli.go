package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/launcher/internal/app"
)

// Version is the launcher version, set at build time with -ldflags.
var Version = "0.0.0-dev"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// DefaultConfigPath is where launcher.hcl is looked up when -config is not
// given.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "launcher.hcl"
	}
	return filepath.Join(dir, "launcher", "launcher.hcl")
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("launcher", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
Launcher - host process of the game launcher.

Usage:
  launcher [options] [URL...]

Arguments:
  URL
    Optional launcher:// links to hand to the UI once startup is ready.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", DefaultConfigPath(), "Path to launcher.hcl. A missing file means defaults.")
	cFlag := flagSet.String("c", "", "Path to launcher.hcl (shorthand).")
	dataDirFlag := flagSet.String("data-dir", "", "Override data_dir from the config file.")
	controlAddrFlag := flagSet.String("control-addr", "127.0.0.1:0", "Listen address of the control server (health, metrics, UI bus).")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	versionFlag := flagSet.Bool("version", false, "Print the version and exit.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if *versionFlag {
		fmt.Fprintf(output, "launcher %s\n", Version)
		return nil, true, nil
	}

	path := *configFlag
	if *cFlag != "" {
		path = *cFlag
	}
	slog.Debug("Config path determined.", "path", path)

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ConfigPath:  path,
		DataDir:     *dataDirFlag,
		ControlAddr: *controlAddrFlag,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
		Version:     Version,
		Args:        flagSet.Args(),
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
