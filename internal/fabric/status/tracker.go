// Package status implements the fabric's StatusTracker: the authoritative
// current status per component plus its bounded append-only history, and
// transition validation against the legal-transition table.
package status

import (
	"fmt"
	"sync"
	"time"

	"github.com/campusforge/fabric/internal/fabric/component"
	"github.com/campusforge/fabric/internal/metrics"
)

// DefaultHistoryLimit is the default bound on a component's history ring.
const DefaultHistoryLimit = 1000

// Record is an immutable entry in a component's status history.
type Record struct {
	ComponentID component.ID
	State       component.State
	Timestamp   time.Time
	Metrics     map[string]any
	Message     string
	Forced      bool
}

// ComponentStatus is the current-status view returned by the tracker.
type ComponentStatus struct {
	ComponentID component.ID
	State       component.State
	Details     map[string]any
	UpdatedAt   time.Time
}

// IllegalTransitionError is returned when an update violates the legal
// transition table and force was not set.
type IllegalTransitionError struct {
	From, To component.State
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("status: illegal transition %s -> %s", e.From, e.To)
}

// Provider is polled by the tracker to determine a component's current
// status when the caller does not supply one explicitly.
type Provider interface {
	ProvideStatus() (component.State, map[string]any)
}

type record struct {
	current Record
	history []Record
}

// Tracker owns the authoritative current status per component and its
// bounded history. All operations are guarded by a single mutex; locks
// are never held across a provider poll or callback, by design (a
// registered provider is polled before the lock is taken).
type Tracker struct {
	mu           sync.RWMutex
	records      map[component.ID]*record
	providers    map[component.ID]Provider
	historyLimit int
}

// New creates a tracker with the given history bound (DefaultHistoryLimit
// if limit <= 0).
func New(limit int) *Tracker {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Tracker{
		records:      make(map[component.ID]*record),
		providers:    make(map[component.ID]Provider),
		historyLimit: limit,
	}
}

// RegisterProvider attaches a status provider for id, consulted by
// UpdateStatus when no explicit new state is given.
func (t *Tracker) RegisterProvider(id component.ID, p Provider) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.providers[id] = p
}

// UnregisterProvider removes id's status provider.
func (t *Tracker) UnregisterProvider(id component.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.providers, id)
}

// UpdateOption configures an UpdateStatus call.
type UpdateOption func(*updateOpts)

type updateOpts struct {
	force   bool
	details map[string]any
	message string
}

// WithForce bypasses the transition table, for cascaded updates and
// initial seeding.
func WithForce() UpdateOption { return func(o *updateOpts) { o.force = true } }

// WithDetails attaches arbitrary metrics/details to the recorded entry.
func WithDetails(d map[string]any) UpdateOption {
	return func(o *updateOpts) { o.details = d }
}

// WithMessage attaches a human-readable message to the recorded entry.
func WithMessage(msg string) UpdateOption {
	return func(o *updateOpts) { o.message = msg }
}

// UpdateStatus validates and records a transition for id. If newState is
// the zero value, the tracker consults the registered provider for id.
// On an illegal transition without force, returns IllegalTransitionError
// and leaves state unchanged.
func (t *Tracker) UpdateStatus(id component.ID, newState component.State, opts ...UpdateOption) (bool, error) {
	var o updateOpts
	for _, opt := range opts {
		opt(&o)
	}

	if newState == "" {
		t.mu.RLock()
		p, ok := t.providers[id]
		t.mu.RUnlock()
		if ok {
			state, details := p.ProvideStatus()
			newState = state
			if o.details == nil {
				o.details = details
			}
		}
	}
	if newState == "" {
		newState = component.Unknown
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	rec, exists := t.records[id]
	from := component.Unknown
	if exists {
		from = rec.current.State
	}

	if !o.force && !component.IsLegalTransition(from, newState) {
		return false, &IllegalTransitionError{From: from, To: newState}
	}

	if o.details != nil && o.force {
		if _, ok := o.details["forced"]; !ok {
			o.details = mergeDetails(o.details, map[string]any{"forced": true})
		}
	}

	entry := Record{
		ComponentID: id,
		State:       newState,
		Timestamp:   time.Now(),
		Metrics:     o.details,
		Message:     o.message,
		Forced:      o.force,
	}

	if !exists {
		rec = &record{}
		t.records[id] = rec
	}
	rec.current = entry
	rec.history = append(rec.history, entry)
	if len(rec.history) > t.historyLimit {
		rec.history = rec.history[len(rec.history)-t.historyLimit:]
	}

	metrics.StatusTransitions.WithLabelValues(string(from), string(newState), boolLabel(o.force)).Inc()
	metrics.ComponentStatus.WithLabelValues(string(id), string(newState)).Set(1)

	return true, nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func mergeDetails(base, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// GetStatus returns the current state and details for id, or
// component.Unknown with nil details if id is unknown to the tracker.
func (t *Tracker) GetStatus(id component.ID) (component.State, map[string]any) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[id]
	if !ok {
		return component.Unknown, nil
	}
	return rec.current.State, rec.current.Metrics
}

// GetComponentStatus returns the ComponentStatus view for id.
func (t *Tracker) GetComponentStatus(id component.ID) (ComponentStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[id]
	if !ok {
		return ComponentStatus{}, false
	}
	return ComponentStatus{
		ComponentID: id,
		State:       rec.current.State,
		Details:     rec.current.Metrics,
		UpdatedAt:   rec.current.Timestamp,
	}, true
}

// TimeRange optionally bounds GetHistory by [Start, End).
type TimeRange struct {
	Start, End time.Time
}

// GetHistory returns id's history, oldest first, optionally bounded by a
// time range.
func (t *Tracker) GetHistory(id component.ID, tr ...TimeRange) []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[id]
	if !ok {
		return nil
	}
	if len(tr) == 0 {
		return append([]Record(nil), rec.history...)
	}
	r := tr[0]
	out := make([]Record, 0, len(rec.history))
	for _, entry := range rec.history {
		if !r.Start.IsZero() && entry.Timestamp.Before(r.Start) {
			continue
		}
		if !r.End.IsZero() && !entry.Timestamp.Before(r.End) {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// GetAllStatuses returns the current ComponentStatus for every tracked
// component.
func (t *Tracker) GetAllStatuses() map[component.ID]ComponentStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[component.ID]ComponentStatus, len(t.records))
	for id, rec := range t.records {
		out[id] = ComponentStatus{
			ComponentID: id,
			State:       rec.current.State,
			Details:     rec.current.Metrics,
			UpdatedAt:   rec.current.Timestamp,
		}
	}
	return out
}

// GetStatusSummary rolls current statuses up into counts by state, for a
// one-line summary display.
func (t *Tracker) GetStatusSummary() map[component.State]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[component.State]int)
	for _, rec := range t.records {
		out[rec.current.State]++
	}
	return out
}
