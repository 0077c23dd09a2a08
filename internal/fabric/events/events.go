// Package events implements the fabric's EventBus: a process-local,
// single-instance dispatcher that routes typed events to filtered
// subscribers, with durable persistence and replay for critical events.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Category is the coarse classification of an event's origin.
type Category string

const (
	CategorySystem      Category = "system"
	CategoryContent     Category = "content"
	CategoryUser        Category = "user"
	CategoryAI          Category = "ai"
	CategoryUI          Category = "ui"
	CategoryIntegration Category = "integration"
)

// Priority orders events for filtering; CRITICAL events are always
// persisted regardless of the IsPersistent flag.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// EventType is a "category.action" string, e.g. "status.changed".
type EventType string

const (
	TypeStatusChanged        EventType = "status.changed"
	TypeInterfaceRegistered  EventType = "interface.registered"
	TypeContentChanged       EventType = "content.changed"
	TypeComponentRegistered  EventType = "component.registered"
	TypeComponentUnregistered EventType = "component.unregistered"
	TypeTransactionStage     EventType = "transaction.stage_changed"
	TypeConfigReloaded       EventType = "config.reloaded"
	TypeConfigReloadFailed   EventType = "config.reload_failed"
	TypeHealthMetricUpdated  EventType = "health.metric_updated"
)

// Event is immutable after publication.
type Event struct {
	EventID         uuid.UUID      `json:"event_id"`
	Type            EventType      `json:"event_type"`
	Category        Category       `json:"category"`
	SourceComponent string         `json:"source_component"`
	Data            map[string]any `json:"data"`
	Priority        Priority       `json:"priority"`
	Timestamp       time.Time      `json:"timestamp"`
	IsPersistent    bool           `json:"is_persistent"`
}

// New constructs an Event, stamping a fresh id and timestamp.
func New(eventType EventType, category Category, sourceComponent string, data map[string]any, priority Priority, persistent bool) Event {
	if data == nil {
		data = make(map[string]any)
	}
	return Event{
		EventID:         uuid.New(),
		Type:            eventType,
		Category:        category,
		SourceComponent: sourceComponent,
		Data:            data,
		Priority:        priority,
		Timestamp:       time.Now(),
		IsPersistent:    persistent,
	}
}

// ShouldPersist reports whether an event must be durably recorded:
// explicitly marked persistent, or at CRITICAL priority.
func (e Event) ShouldPersist() bool {
	return e.IsPersistent || e.Priority == PriorityCritical
}

// EventHandler processes a single event. Handlers are invoked with panic
// recovery; a panic is converted into a logged SubscriberHandlerError.
type EventHandler func(Event)

// Handler is the object form of EventHandler, for subscribers that carry
// state or their own filter (see FilterProvider).
type Handler interface {
	HandleEvent(Event)
}

// Filter restricts delivery by event type, category, and a minimum
// priority. Absent fields match all events.
type Filter struct {
	EventTypes  []EventType
	Categories  []Category
	MinPriority *Priority
}

// Matches reports true iff every specified facet of f matches e.
func (f Filter) Matches(e Event) bool {
	if len(f.EventTypes) > 0 && !containsType(f.EventTypes, e.Type) {
		return false
	}
	if len(f.Categories) > 0 && !containsCategory(f.Categories, e.Category) {
		return false
	}
	if f.MinPriority != nil && e.Priority < *f.MinPriority {
		return false
	}
	return true
}

func containsType(types []EventType, t EventType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func containsCategory(cats []Category, c Category) bool {
	for _, candidate := range cats {
		if candidate == c {
			return true
		}
	}
	return false
}

// FilterProvider is the optional capability a subscriber may expose; when
// present, its Filter() supersedes any externally supplied filter.
type FilterProvider interface {
	Filter() Filter
}
