package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/specialistvlad/launcher/internal/store"
)

type healthResponse struct {
	Status        string      `json:"status"`
	Phase         store.Phase `json:"phase"`
	LoginChecking bool        `json:"loginChecking"`
	UIConnected   bool        `json:"uiConnected"`
}

// healthHandler reports liveness together with the startup phase.
func (a *App) healthHandler(connected func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
		st := a.store.State()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(healthResponse{
			Status:        "ok",
			Phase:         st.Phase,
			LoginChecking: st.LoginChecking,
			UIConnected:   connected(),
		})
	}
}

// readyHandler answers 200 once startup reached Ready.
func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	phase := a.store.State().Phase
	if phase != store.PhaseReady {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, phase)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// activator re-creates the main window when none exists.
type activator interface {
	Activate(ctx context.Context) error
}

// activateHandler is the dock/taskbar activation path. Before Ready the
// window belongs to startup, so the request is refused.
func (a *App) activateHandler(win activator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phase := a.store.State().Phase
		if phase != store.PhaseReady {
			w.WriteHeader(http.StatusConflict)
			fmt.Fprintln(w, phase)
			return
		}
		if err := win.Activate(r.Context()); err != nil {
			a.logger.Warn("Could not activate window.", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// controlMux routes the control server endpoints.
func (a *App) controlMux(busHandler http.Handler, connected func() bool, win activator) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler(connected))
	mux.HandleFunc("/ready", a.readyHandler)
	mux.HandleFunc("POST /activate", a.activateHandler(win))
	mux.Handle("/metrics", a.metrics.Handler())
	mux.Handle("/socket.io/", busHandler)
	return mux
}

// startControlServer binds the control address and serves mux.
func (a *App) startControlServer(mux http.Handler) error {
	a.logger.Debug("Configuring control server.", "address", a.appConfig.ControlAddr)
	ln, err := net.Listen("tcp", a.appConfig.ControlAddr)
	if err != nil {
		return fmt.Errorf("binding control server: %w", err)
	}

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	a.mu.Lock()
	a.httpServer = srv
	a.controlURL = "http://" + ln.Addr().String()
	a.mu.Unlock()
	close(a.listening)

	go func() {
		a.logger.Info("🩺 Control server starting", "address", a.controlURL+"/health")
		// Serve returns ErrServerClosed on graceful shutdown.
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Control server failed unexpectedly", "error", err)
		}
	}()
	return nil
}

func (a *App) closeControlServer() error {
	a.mu.Lock()
	srv := a.httpServer
	a.mu.Unlock()
	if srv == nil {
		a.logger.Debug("Control server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.logger.Info("🩺 Shutting down control server...")
	if err := srv.Shutdown(ctx); err != nil {
		a.logger.Error("Control server shutdown failed", "error", err)
		return err
	}
	a.logger.Debug("Control server shut down gracefully.")
	return nil
}
