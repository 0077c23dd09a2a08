// Package daemon provides the fabric daemon's process lifecycle: a
// state machine, a PID file, an HTTP health/status/metrics server, and
// systemd readiness/watchdog integration, wrapped around one assembled
// pkg/fabric.Fabric instance.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	sysdnotify "github.com/coreos/go-systemd/v22/daemon"
)

// DaemonState represents the lifecycle state of the daemon.
type DaemonState string

const (
	// DaemonStateStarting indicates the daemon is initializing.
	DaemonStateStarting DaemonState = "starting"

	// DaemonStateRunning indicates all subsystems are healthy and serving.
	DaemonStateRunning DaemonState = "running"

	// DaemonStateDegraded indicates some non-critical subsystem has failed.
	DaemonStateDegraded DaemonState = "degraded"

	// DaemonStateStopping indicates graceful shutdown is in progress.
	DaemonStateStopping DaemonState = "stopping"

	// DaemonStateStopped indicates the daemon has terminated.
	DaemonStateStopped DaemonState = "stopped"
)

// IsTerminal returns true if this state is a terminal state (no further transitions).
func (s DaemonState) IsTerminal() bool {
	return s == DaemonStateStopped
}

// CanTransitionTo returns true if transitioning to the target state is valid.
func (s DaemonState) CanTransitionTo(target DaemonState) bool {
	switch s {
	case DaemonStateStarting:
		return target == DaemonStateRunning || target == DaemonStateStopped
	case DaemonStateRunning:
		return target == DaemonStateDegraded || target == DaemonStateStopping
	case DaemonStateDegraded:
		return target == DaemonStateRunning || target == DaemonStateStopping
	case DaemonStateStopping:
		return target == DaemonStateStopped
	case DaemonStateStopped:
		return false
	default:
		return false
	}
}

// Config holds the configuration values for the daemon process.
type Config struct {
	// HTTPPort is the port for the HTTP health/status/metrics server.
	HTTPPort int

	// HTTPBind is the address to bind the HTTP server.
	HTTPBind string

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration

	// PIDFile is the path to the PID file.
	PIDFile string
}

// DefaultConfig returns the default daemon configuration.
func DefaultConfig() Config {
	return Config{
		HTTPPort:        7700,
		HTTPBind:        "127.0.0.1",
		ShutdownTimeout: 30 * time.Second,
		PIDFile:         "~/.config/fabric/daemon.pid",
	}
}

// ShutdownFunc stops any background work the daemon itself does not own
// directly (the caller wires this to (*fabric.Fabric).Shutdown).
type ShutdownFunc func(ctx context.Context) error

// Daemon is the fabric daemon process manager. It is safe for
// concurrent use.
type Daemon struct {
	mu       sync.RWMutex
	config   Config
	state    DaemonState
	server   *Server
	health   *HealthManager
	pidFile  *PIDFile
	shutdown ShutdownFunc
	logger   *slog.Logger
}

// NewDaemon creates a new Daemon instance with the given configuration.
// shutdown is called during Stop to release resources owned by the
// assembled Fabric (the event bus and the integration-health poller).
func NewDaemon(cfg Config, shutdown ShutdownFunc, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	health := NewHealthManager()
	server := NewServer(health, ServerConfig{
		Port: cfg.HTTPPort,
		Bind: cfg.HTTPBind,
	})
	pidFile := NewPIDFile(cfg.PIDFile)

	return &Daemon{
		config:   cfg,
		state:    DaemonStateStopped,
		server:   server,
		health:   health,
		pidFile:  pidFile,
		shutdown: shutdown,
		logger:   logger,
	}
}

// Server exposes the HTTP server for route/handler wiring.
func (d *Daemon) Server() *Server { return d.server }

// Health exposes the health manager for subsystem reporting.
func (d *Daemon) Health() *HealthManager { return d.health }

// State returns the current daemon state.
func (d *Daemon) State() DaemonState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

func (d *Daemon) setState(state DaemonState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = state
}

// Start claims the PID file, starts the HTTP server, notifies systemd
// readiness (a no-op outside a unit with Type=notify), and blocks until
// ctx is canceled.
func (d *Daemon) Start(ctx context.Context) error {
	d.setState(DaemonStateStarting)

	if err := d.pidFile.CheckAndClaim(); err != nil {
		d.setState(DaemonStateStopped)
		return fmt.Errorf("failed to claim PID file; %w", err)
	}
	defer func() { _ = d.pidFile.Remove() }()

	d.setState(DaemonStateRunning)
	d.logger.Info("daemon started", "state", d.State())

	if ok, err := sysdnotify.SdNotify(false, sysdnotify.SdNotifyReady); err != nil {
		d.logger.Warn("systemd notify failed", "error", err)
	} else if ok {
		d.logger.Debug("systemd notified ready")
	}

	watchdogDone := d.startWatchdog(ctx)
	defer func() {
		if watchdogDone != nil {
			watchdogDone()
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		if err := d.server.Start(ctx); err != nil {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		d.logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			d.logger.Error("http server error", "error", err)
		}
	}

	return d.Stop()
}

// startWatchdog, when running under a systemd unit with WatchdogSec set,
// pings the watchdog at half the configured interval so systemd does not
// consider the daemon hung. Returns a cancel func; a nil interval (not
// running under watchdog supervision) returns a no-op func.
func (d *Daemon) startWatchdog(ctx context.Context) func() {
	interval, err := sysdnotify.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return func() {}
	}

	watchdogCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval / 2)
		defer ticker.Stop()
		for {
			select {
			case <-watchdogCtx.Done():
				return
			case <-ticker.C:
				if _, err := sysdnotify.SdNotify(false, sysdnotify.SdNotifyWatchdog); err != nil {
					d.logger.Warn("systemd watchdog notify failed", "error", err)
				}
			}
		}
	}()
	return cancel
}

// Stop performs graceful shutdown of the daemon: the HTTP server first,
// then any fabric-owned background work via the shutdown callback.
func (d *Daemon) Stop() error {
	d.setState(DaemonStateStopping)
	d.logger.Info("stopping daemon")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.config.ShutdownTimeout)
	defer cancel()

	if err := d.server.Shutdown(shutdownCtx); err != nil {
		d.logger.Error("failed to shutdown http server", "error", err)
	}

	if d.shutdown != nil {
		if err := d.shutdown(shutdownCtx); err != nil {
			d.logger.Error("failed to shut down fabric", "error", err)
		}
	}

	d.setState(DaemonStateStopped)
	d.logger.Info("daemon stopped")

	return nil
}
