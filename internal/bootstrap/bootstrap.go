// Package bootstrap wires the eight fabric components into one
// pkg/fabric.Fabric instance, attaches Prometheus collection and the HTTP
// health/status server, and hands back an internal/daemon.Daemon ready to
// run.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusforge/fabric/internal/config"
	"github.com/campusforge/fabric/internal/daemon"
	"github.com/campusforge/fabric/internal/fabric/component"
	"github.com/campusforge/fabric/internal/fabric/events"
	"github.com/campusforge/fabric/internal/fabric/integrationhealth"
	"github.com/campusforge/fabric/internal/fabric/txlog"
	"github.com/campusforge/fabric/internal/metrics"
	"github.com/campusforge/fabric/pkg/fabric"
)

// Bootstrapped bundles the assembled fabric together with the daemon
// wrapping its process lifecycle.
type Bootstrapped struct {
	Fabric    *fabric.Fabric
	Daemon    *daemon.Daemon
	Collector *metrics.Collector
}

// Run assembles a Fabric from cfg, wires it into a Daemon, and blocks
// until ctx is canceled or the HTTP server fails.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	b, err := New(cfg, logger)
	if err != nil {
		return err
	}
	return b.Daemon.Start(ctx)
}

// New assembles the Fabric and its daemon wrapper and starts the
// integration-health poller and the metrics collector; the daemon itself
// (HTTP server, PID file) is not started until Start is called.
func New(cfg *config.Config, logger *slog.Logger) (*Bootstrapped, error) {
	if logger == nil {
		logger = slog.Default()
	}

	busOpts := []events.Option{events.WithBufferSize(cfg.EventBus.BufferSize)}
	if path := config.ExpandPath(cfg.EventBus.PersistencePath); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("bootstrap: create event store directory: %w", err)
		}
		store, err := events.NewFileStore(path)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: open event store: %w", err)
		}
		busOpts = append(busOpts, events.WithStore(store))
	}

	healthOpts := []integrationhealth.Option{
		integrationhealth.WithPollingInterval(time.Duration(cfg.IntegrationHealth.PollingIntervalSeconds) * time.Second),
	}

	txOpts := []txlog.Option{
		txlog.WithMaxTransactions(cfg.TransactionLogger.MaxTransactions),
		txlog.WithAutoPrune(cfg.TransactionLogger.AutoPrune),
	}
	if path := config.ExpandPath(cfg.TransactionLogger.ArchivePath); path != "" {
		archive, err := txlog.OpenSQLiteArchive(context.Background(), path)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: open transaction archive: %w", err)
		}
		txOpts = append(txOpts, txlog.WithArchive(archive))
	}

	f := fabric.New(fabric.Options{
		Logger:        logger,
		BusOptions:    busOpts,
		StatusHistory: cfg.Status.HistoryLimit,
		HealthOptions: healthOpts,
		TxLogOptions:  txOpts,
	})

	daemonCfg := daemon.Config{
		HTTPPort:        cfg.Daemon.HTTPPort,
		HTTPBind:        cfg.Daemon.HTTPBind,
		ShutdownTimeout: time.Duration(cfg.Daemon.ShutdownTimeout) * time.Second,
		PIDFile:         config.ExpandPath(cfg.Daemon.PIDFile),
	}

	collector := metrics.NewCollector(time.Duration(cfg.Daemon.Metrics.CollectionInterval) * time.Second)

	shutdown := func(ctx context.Context) error {
		_ = collector.Stop(ctx)
		return f.Shutdown(ctx)
	}

	d := daemon.NewDaemon(daemonCfg, shutdown, logger)
	wireServer(d, f, logger)
	wireCollector(collector, d, f)
	config.SetEventBus(f.Bus)
	startBackgroundWork(f)

	if err := collector.Start(context.Background()); err != nil {
		return nil, fmt.Errorf("bootstrap: start metrics collector: %w", err)
	}

	return &Bootstrapped{Fabric: f, Daemon: d, Collector: collector}, nil
}

// wireCollector registers the daemon-owned subsystems as periodic metric
// sources; a sustained drop rate on the event bus is treated as degraded.
func wireCollector(c *metrics.Collector, d *daemon.Daemon, f *fabric.Fabric) {
	c.Register("event_bus", busHealthProvider{bus: f.Bus, health: d.Health()})
}

// busHealthProvider reports the event bus stopped once the bus has been
// stopped, and degraded while it is dropping events.
type busHealthProvider struct {
	bus    events.Bus
	health *daemon.HealthManager
}

func (p busHealthProvider) CollectMetrics(ctx context.Context) error {
	stats := p.bus.Stats()
	health := daemon.ComponentHealth{
		Status:      daemon.ComponentStatusRunning,
		LastChecked: time.Now(),
		Details: map[string]any{
			"subscribers": stats.SubscriberCount,
			"dropped":     stats.Dropped,
		},
	}
	if stats.Stopped {
		health.Status = daemon.ComponentStatusStopped
	} else if stats.DropRatePerSec > 0 {
		health.Status = daemon.ComponentStatusDegraded
		health.Error = fmt.Sprintf("dropping events at %.2f/s", stats.DropRatePerSec)
	}
	p.health.UpdateComponent("event_bus", health)
	if health.Status == daemon.ComponentStatusDegraded {
		return fmt.Errorf("event bus degraded: %s", health.Error)
	}
	return nil
}

// wireServer attaches the Prometheus handler and the /status snapshot
// function, and registers the health daemon subsystems the fabric itself
// owns (event bus, integration health poller).
func wireServer(d *daemon.Daemon, f *fabric.Fabric, logger *slog.Logger) {
	d.Server().SetMetricsHandler(promhttp.Handler())
	d.Server().SetEventBus(f.Bus)
	d.Server().SetStatusFunc(func(ctx context.Context) (any, error) {
		return statusSnapshot(f), nil
	})

	d.Health().UpdateComponent("event_bus", daemon.ComponentHealth{
		Status:      daemon.ComponentStatusRunning,
		LastChecked: time.Now(),
	})
	d.Health().UpdateComponent("integration_health", daemon.ComponentHealth{
		Status:      daemon.ComponentStatusRunning,
		LastChecked: time.Now(),
	})

	f.Health.RegisterProvider(component.ID("daemon"), daemonSelfProvider{health: d.Health()})
}

// statusPayload is the payload served at /status: component states, the
// dependency graph, and the integration-health visualization data.
type statusPayload struct {
	Components        map[string]any `json:"components"`
	DependencyGraph   map[string]any `json:"dependency_graph"`
	IntegrationHealth any            `json:"integration_health"`
}

func statusSnapshot(f *fabric.Fabric) any {
	statuses := f.Dashboard.GetAllComponentStatuses()
	components := make(map[string]any, len(statuses))
	for id, s := range statuses {
		components[string(id)] = s
	}

	graph := f.Dashboard.GetDependencyGraph()
	deps := make(map[string]any, len(graph))
	for id, dependents := range graph {
		deps[string(id)] = dependents
	}

	return statusPayload{
		Components:        components,
		DependencyGraph:   deps,
		IntegrationHealth: f.Health.GetVisualizationData(),
	}
}

// startBackgroundWork starts goroutines the Fabric owns but does not
// start itself: the integration-health poller.
func startBackgroundWork(f *fabric.Fabric) {
	f.Health.StartPolling(context.Background())
}

// daemonSelfProvider reports the daemon process's own HTTP-facing health
// as one more integration-health provider, so its state flows into the
// same visualization the rest of the fabric's dependencies use.
type daemonSelfProvider struct {
	health *daemon.HealthManager
}

func (p daemonSelfProvider) HealthMetrics() []integrationhealth.Metric {
	status := p.health.Status()
	value := 0.0
	if status.Status != "healthy" {
		value = 1.0
	}
	return []integrationhealth.Metric{
		{
			Name:      "daemon_degraded",
			Type:      integrationhealth.MetricCustom,
			Value:     value,
			Timestamp: time.Now(),
		},
	}
}

func (p daemonSelfProvider) HealthStatus() integrationhealth.Status {
	if p.health.Status().Status == "healthy" {
		return integrationhealth.StatusHealthy
	}
	return integrationhealth.StatusDegraded
}
