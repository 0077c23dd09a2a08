// Package adapter implements the fabric's ComponentStatusAdapter: the
// glue between the registry, the status tracker, and the health
// dashboard.
package adapter

import (
	"context"
	"fmt"

	"github.com/campusforge/fabric/internal/fabric/component"
	"github.com/campusforge/fabric/internal/fabric/dashboard"
	"github.com/campusforge/fabric/internal/fabric/events"
	"github.com/campusforge/fabric/internal/fabric/registry"
	"github.com/campusforge/fabric/internal/fabric/status"
)

// Adapter binds a Registry, Tracker, and Dashboard together and publishes
// status-change notifications on the event bus.
type Adapter struct {
	registry  *registry.Registry
	tracker   *status.Tracker
	dashboard *dashboard.Dashboard
	bus       events.Bus
}

// New constructs an adapter over the given registry, tracker, dashboard,
// and (optional) bus; a nil bus disables event publication.
func New(reg *registry.Registry, tracker *status.Tracker, dash *dashboard.Dashboard, bus events.Bus) *Adapter {
	return &Adapter{registry: reg, tracker: tracker, dashboard: dash, bus: bus}
}

// componentProvider bridges a live component record into a status.Provider,
// so the tracker's provider-fallback path can read the component's own
// state when no explicit new state is supplied.
type componentProvider struct {
	c *component.Component
}

func (p componentProvider) ProvideStatus() (component.State, map[string]any) {
	return p.c.State(), nil
}

// RegisterComponent registers id with the registry, binds a status
// provider for it, and publishes an initial force=true status update.
func (a *Adapter) RegisterComponent(id component.ID, opts ...registry.RegisterOption) (*component.Component, error) {
	c, err := a.registry.Register(id, opts...)
	if err != nil {
		return nil, err
	}

	a.tracker.RegisterProvider(id, componentProvider{c: c})
	a.dashboard.WatchComponent(id)

	if _, err := a.dashboard.UpdateStatus(id, c.State(), nil, true); err != nil {
		return c, fmt.Errorf("adapter: initial status update for %s: %w", id, err)
	}

	a.publish(events.TypeComponentRegistered, id, map[string]any{"state": string(c.State())})
	return c, nil
}

// UnregisterComponent removes id from the registry and tracker, including
// its provider binding.
func (a *Adapter) UnregisterComponent(id component.ID) bool {
	a.tracker.UnregisterProvider(id)
	ok := a.registry.Unregister(id)
	if ok {
		a.publish(events.TypeComponentUnregistered, id, nil)
	}
	return ok
}

// UpdateComponentStatus validates (unless force) and records a status
// update, firing listeners, alert callbacks, and cascading to dependents
// via the dashboard, then publishes a status.changed event.
func (a *Adapter) UpdateComponentStatus(id component.ID, newState component.State, details map[string]any, force bool) (bool, error) {
	ok, err := a.dashboard.UpdateStatus(id, newState, details, force)
	if err != nil {
		return ok, err
	}

	// An empty newState means the tracker resolved it via the provider;
	// read back what was actually recorded.
	recorded, _ := a.tracker.GetStatus(id)
	if c := a.registry.GetComponent(id); c != nil {
		c.SetState(recorded)
	}

	a.publish(events.TypeStatusChanged, id, map[string]any{"state": string(recorded)})
	return ok, nil
}

func (a *Adapter) publish(t events.EventType, source component.ID, data map[string]any) {
	if a.bus == nil {
		return
	}
	e := events.New(t, events.CategoryIntegration, string(source), data, events.PriorityNormal, false)
	_ = a.bus.Publish(context.Background(), e)
}

// RegisterAlertCallback delegates to the dashboard.
func (a *Adapter) RegisterAlertCallback(cb dashboard.AlertCallback) {
	a.dashboard.RegisterAlertCallback(cb)
}

// RegisterStatusListener delegates to the dashboard.
func (a *Adapter) RegisterStatusListener(cb dashboard.StatusListener) {
	a.dashboard.RegisterStatusListener(cb)
}

// Dashboard exposes the underlying dashboard for read-only queries.
func (a *Adapter) Dashboard() *dashboard.Dashboard { return a.dashboard }

// Registry exposes the underlying registry.
func (a *Adapter) Registry() *registry.Registry { return a.registry }
