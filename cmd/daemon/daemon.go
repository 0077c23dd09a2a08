// Package daemon provides the fabric daemon command: a single long-lived
// foreground process wiring every fabric component via internal/bootstrap
// and serving /healthz, /readyz, /status, and /metrics.
package daemon

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/campusforge/fabric/internal/bootstrap"
	"github.com/campusforge/fabric/internal/config"
)

// DaemonCmd runs the fabric as a foreground process until it receives
// SIGINT/SIGTERM.
var DaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the fabric daemon",
	Long: "Run the fabric daemon.\n\n" +
		"The daemon assembles the component registry, event bus, status tracker, " +
		"service health dashboard, status adapter, integration health monitor, " +
		"transaction logger, and interface registry into one process, and serves " +
		"a JSON health/status API and a Prometheus metrics endpoint until it " +
		"receives a termination signal.",
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	config.SetupSignalHandler()
	defer config.StopSignalHandler()

	if path := config.ConfigFilePath(); path != "" {
		watcher, err := config.NewWatcher(path)
		if err != nil {
			slog.Warn("config file watch unavailable; SIGHUP still reloads", "error", err)
		} else if err := watcher.Start(ctx); err != nil {
			slog.Warn("config file watch failed to start; SIGHUP still reloads", "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	return bootstrap.Run(ctx, cfg, slog.Default())
}
