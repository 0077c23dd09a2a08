package config

import (
	"context"
	"log/slog"
	"reflect"
	"sync"

	"github.com/campusforge/fabric/internal/fabric/events"
)

// eventBusMu protects eventBus
var eventBusMu sync.RWMutex

// eventBus is the event bus instance for publishing config events. Set
// via SetEventBus().
var eventBus events.Bus

// SetEventBus sets the event bus instance for publishing config reload events.
// Must be called before config reload events will be published.
func SetEventBus(bus events.Bus) {
	eventBusMu.Lock()
	defer eventBusMu.Unlock()
	eventBus = bus
}

// ReloadableSections lists the config sections that can be hot-reloaded.
// Changes to other sections require a daemon restart.
var ReloadableSections = []string{"log_level", "log_file", "integration_health", "transaction_logger"}

// detectChangedSections compares old and new configs and returns a list of changed sections.
func detectChangedSections(old, new *Config) []string {
	var changed []string

	if old.LogLevel != new.LogLevel {
		changed = append(changed, "log_level")
	}
	if old.LogFile != new.LogFile {
		changed = append(changed, "log_file")
	}
	if !reflect.DeepEqual(old.Daemon, new.Daemon) {
		changed = append(changed, "daemon")
	}
	if !reflect.DeepEqual(old.EventBus, new.EventBus) {
		changed = append(changed, "event_bus")
	}
	if !reflect.DeepEqual(old.IntegrationHealth, new.IntegrationHealth) {
		changed = append(changed, "integration_health")
	}
	if !reflect.DeepEqual(old.TransactionLogger, new.TransactionLogger) {
		changed = append(changed, "transaction_logger")
	}
	if !reflect.DeepEqual(old.Status, new.Status) {
		changed = append(changed, "status")
	}

	return changed
}

// isReloadable checks if all changed sections are hot-reloadable.
func isReloadable(changedSections []string) bool {
	reloadableSet := make(map[string]bool)
	for _, s := range ReloadableSections {
		reloadableSet[s] = true
	}

	for _, section := range changedSections {
		if !reloadableSet[section] {
			return false
		}
	}

	return true
}

// publishConfigReloaded publishes a config.reloaded event when every
// changed section is hot-reloadable. A change touching a non-reloadable
// section publishes config.reload_failed instead and logs a warning
// that a restart is required.
func publishConfigReloaded(old, new *Config) {
	changedSections := detectChangedSections(old, new)

	if !isReloadable(changedSections) {
		slog.Warn("config changed in non-reloadable sections; daemon restart required",
			"changed_sections", changedSections)
		publishEvent(events.New(events.TypeConfigReloadFailed, events.CategorySystem, "config",
			map[string]any{"changed_sections": changedSections, "restart_required": true}, events.PriorityHigh, false))
		return
	}

	publishEvent(events.New(events.TypeConfigReloaded, events.CategorySystem, "config",
		map[string]any{"changed_sections": changedSections, "reloadable": true}, events.PriorityNormal, false))
}

// publishConfigReloadFailed publishes a config.reload_failed event for a
// reload that failed to read, parse, or validate.
func publishConfigReloadFailed(err error) {
	publishEvent(events.New(events.TypeConfigReloadFailed, events.CategorySystem, "config",
		map[string]any{"error": err.Error()}, events.PriorityHigh, false))
}

func publishEvent(event events.Event) {
	eventBusMu.RLock()
	bus := eventBus
	eventBusMu.RUnlock()

	if bus == nil {
		return
	}
	if err := bus.Publish(context.Background(), event); err != nil {
		slog.Error("failed to publish config event", "event_type", event.Type, "error", err)
	}
}
