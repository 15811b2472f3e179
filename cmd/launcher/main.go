package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/specialistvlad/launcher/internal/app"
	"github.com/specialistvlad/launcher/internal/cli"
	"github.com/specialistvlad/launcher/internal/hcl_adapter"
	"github.com/specialistvlad/launcher/internal/instance"
)

// main is the entrypoint for the launcher host process.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The real main function handles errors and exit codes.
	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			stop()
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW io.Writer, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// The app panics on critical config errors, so we recover here to provide
	// a clean exit message to the user.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	home, _ := os.UserHomeDir()
	exeDir := "."
	if exe, exeErr := os.Executable(); exeErr == nil {
		exeDir = filepath.Dir(exe)
	}

	// Instantiate the concrete HCL loader to pass to the app.
	loader := hcl_adapter.NewLoader(home, exeDir)
	host := app.NewApp(outW, appConfig, loader)

	err = host.Run(ctx)
	if errors.Is(err, instance.ErrAlreadyRunning) {
		// The running instance took over this launch.
		return nil
	}
	return err
}
