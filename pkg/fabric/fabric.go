// Package fabric is the thin exported facade over the process-local
// integration fabric: the component registry, event bus, status tracker,
// health dashboard, status adapter, integration health monitor,
// transaction logger, and interface registry, assembled as one value that
// an embedding program can construct without reaching into internal/.
package fabric

import (
	"context"
	"log/slog"

	"github.com/campusforge/fabric/internal/fabric/adapter"
	"github.com/campusforge/fabric/internal/fabric/dashboard"
	"github.com/campusforge/fabric/internal/fabric/events"
	"github.com/campusforge/fabric/internal/fabric/iface"
	"github.com/campusforge/fabric/internal/fabric/integrationhealth"
	"github.com/campusforge/fabric/internal/fabric/registry"
	"github.com/campusforge/fabric/internal/fabric/status"
	"github.com/campusforge/fabric/internal/fabric/txlog"
)

// Fabric bundles the eight core components of one process-local instance.
type Fabric struct {
	Registry   *registry.Registry
	Bus        events.Bus
	Tracker    *status.Tracker
	Dashboard  *dashboard.Dashboard
	Adapter    *adapter.Adapter
	Health     *integrationhealth.Monitor
	Tx         *txlog.Logger
	Interfaces *iface.Registry
}

// Options configures the pieces of a Fabric that callers commonly need to
// override; everything else is wired with sensible in-process defaults.
type Options struct {
	Logger            *slog.Logger
	BusOptions        []events.Option
	StatusHistory     int
	HealthOptions     []integrationhealth.Option
	TxLogOptions      []txlog.Option
}

// New assembles one Fabric instance, wiring the event bus into every
// component that publishes to it.
func New(opts Options) *Fabric {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bus := events.NewBus(append([]events.Option{events.WithLogger(logger)}, opts.BusOptions...)...)

	reg := registry.New(logger)

	historyLimit := opts.StatusHistory
	if historyLimit <= 0 {
		historyLimit = status.DefaultHistoryLimit
	}
	tracker := status.New(historyLimit)

	dash := dashboard.New(tracker, reg.Graph())

	adp := adapter.New(reg, tracker, dash, bus)

	health := integrationhealth.New(append([]integrationhealth.Option{integrationhealth.WithBus(bus)}, opts.HealthOptions...)...)

	txOpts := append([]txlog.Option{txlog.WithBus(bus)}, opts.TxLogOptions...)
	tx := txlog.New(txOpts...)

	ifaceRegistry := iface.New(bus)

	return &Fabric{
		Registry:   reg,
		Bus:        bus,
		Tracker:    tracker,
		Dashboard:  dash,
		Adapter:    adp,
		Health:     health,
		Tx:         tx,
		Interfaces: ifaceRegistry,
	}
}

// Shutdown stops background work owned directly by the facade (the health
// monitor's polling loop and the event bus's dispatch goroutines). Component
// lifecycle (StartAll/StopAll) is the caller's responsibility via Registry.
func (f *Fabric) Shutdown(ctx context.Context) error {
	f.Health.Stop()
	return f.Bus.Stop()
}
