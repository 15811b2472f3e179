// Command launcher-ui is a terminal UI process for the launcher host. It
// connects to the host bus, prints what the host publishes and sends the
// commands typed on stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialistvlad/launcher/internal/bus"
	"github.com/specialistvlad/launcher/internal/bus/socketio"
	"github.com/specialistvlad/launcher/internal/ui"
	"github.com/specialistvlad/launcher/internal/window"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, in io.Reader, out, errW io.Writer, args []string) error {
	flagSet := flag.NewFlagSet("launcher-ui", flag.ContinueOnError)
	flagSet.SetOutput(errW)
	busURL := flagSet.String("bus", os.Getenv(window.BusURLEnv), "URL of the host bus. Defaults to $"+window.BusURLEnv+".")
	logLevel := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *busURL == "" {
		return fmt.Errorf("no host bus: pass -bus or set %s", window.BusURLEnv)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		return fmt.Errorf("invalid log-level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(errW, &slog.HandlerOptions{Level: level})).With("process", "ui")

	client, err := socketio.Dial(ctx, *busURL, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	b := bus.New(client, bus.WithLogger(logger))
	shell := ui.NewShell(b, out, logger)
	shell.Attach()

	runErr := make(chan error, 1)
	go func() { runErr <- b.Run(ctx) }()

	if _, err := shell.Bootstrap(ctx); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-runErr:
			return err
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := shell.Exec(ctx, line); err != nil {
				if errors.Is(err, ui.ErrQuit) {
					return nil
				}
				fmt.Fprintln(out, "error:", err)
			}
		}
	}
}
