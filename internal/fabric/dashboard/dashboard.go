// Package dashboard implements the fabric's ServiceHealthDashboard: a
// read-mostly facade over the status tracker, enriched with listener and
// alert callbacks and dependency-aware cascading of non-nominal states.
package dashboard

import (
	"sync"

	"github.com/campusforge/fabric/internal/fabric/component"
	"github.com/campusforge/fabric/internal/fabric/status"
	"github.com/campusforge/fabric/internal/metrics"
)

// DependentsGraph is the subset of the dependency graph the dashboard
// needs: direct dependents of a component, and the full adjacency map for
// visualization.
type DependentsGraph interface {
	DependentsOf(id component.ID) []component.ID
	AllEdges() map[component.ID][]component.ID
}

// StatusListener is invoked on every status update, after the state has
// been written.
type StatusListener func(id component.ID, status status.ComponentStatus)

// AlertCallback fires on a transition into an alert state.
type AlertCallback func(id component.ID, status status.ComponentStatus)

// Dashboard is a read-mostly facade over a Tracker. Callback lists are
// copied before iteration so a callback may safely register or
// unregister another callback.
type Dashboard struct {
	mu sync.Mutex

	tracker *status.Tracker
	graph   DependentsGraph

	watched map[component.ID]struct{}

	globalListeners     []StatusListener
	perComponentListener map[component.ID][]StatusListener
	lastNotified        map[component.ID]component.State

	alertCallbacks []AlertCallback
	lastAlerted    map[component.ID]component.State
}

// New constructs a dashboard over tracker, using graph for cascading.
func New(tracker *status.Tracker, graph DependentsGraph) *Dashboard {
	return &Dashboard{
		tracker:              tracker,
		graph:                graph,
		watched:              make(map[component.ID]struct{}),
		perComponentListener: make(map[component.ID][]StatusListener),
		lastNotified:         make(map[component.ID]component.State),
		lastAlerted:          make(map[component.ID]component.State),
	}
}

// WatchComponent adds id to the watch set, records its initial state into
// history, and optionally registers a per-component listener.
func (d *Dashboard) WatchComponent(id component.ID, listener ...StatusListener) {
	d.mu.Lock()
	d.watched[id] = struct{}{}
	if len(listener) > 0 {
		d.perComponentListener[id] = append(d.perComponentListener[id], listener[0])
	}
	d.mu.Unlock()

	state, _ := d.tracker.GetStatus(id)
	d.tracker.UpdateStatus(id, state, status.WithForce())
}

// StatusFor returns id's current state.
func (d *Dashboard) StatusFor(id component.ID) component.State {
	state, _ := d.tracker.GetStatus(id)
	return state
}

// GetAllComponentStatuses pulls current statuses via the tracker, firing
// watch listeners for any component whose state differs from what was
// last notified.
func (d *Dashboard) GetAllComponentStatuses() map[component.ID]status.ComponentStatus {
	all := d.tracker.GetAllStatuses()
	for id, cs := range all {
		d.notifyIfChanged(id, cs)
	}
	return all
}

func (d *Dashboard) notifyIfChanged(id component.ID, cs status.ComponentStatus) {
	d.mu.Lock()
	last, seen := d.lastNotified[id]
	if seen && last == cs.State {
		d.mu.Unlock()
		return
	}
	d.lastNotified[id] = cs.State
	listeners := append([]StatusListener(nil), d.perComponentListener[id]...)
	d.mu.Unlock()

	for _, l := range listeners {
		l(id, cs)
	}
}

// GetDependencyGraph returns the full adjacency map, id -> ordered
// dependency list.
func (d *Dashboard) GetDependencyGraph() map[component.ID][]component.ID {
	return d.graph.AllEdges()
}

// GetStatusHistory returns id's history, oldest first.
func (d *Dashboard) GetStatusHistory(id component.ID, tr ...status.TimeRange) []status.Record {
	return d.tracker.GetHistory(id, tr...)
}

// RegisterAlertCallback registers cb to fire on a transition into
// {DEGRADED, DOWN, FAILED, IMPAIRED}; repeated updates with the same
// alert state do not re-fire until the component transitions out and
// back in.
func (d *Dashboard) RegisterAlertCallback(cb AlertCallback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alertCallbacks = append(d.alertCallbacks, cb)
}

// RegisterStatusListener registers cb to fire on every status update.
func (d *Dashboard) RegisterStatusListener(cb StatusListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.globalListeners = append(d.globalListeners, cb)
}

// UpdateStatus validates (unless force) and records a status update via
// the tracker, fires listeners and alert callbacks, then cascades the
// new state to dependents if it is non-nominal. This is the single entry
// point the adapter drives.
func (d *Dashboard) UpdateStatus(id component.ID, newState component.State, details map[string]any, force bool) (bool, error) {
	opts := []status.UpdateOption{status.WithDetails(details)}
	if force {
		opts = append(opts, status.WithForce())
	}
	ok, err := d.tracker.UpdateStatus(id, newState, opts...)
	if err != nil {
		return ok, err
	}

	cs, _ := d.tracker.GetComponentStatus(id)
	d.fireListeners(id, cs)
	d.fireAlertIfNeeded(id, cs)

	visited := map[component.ID]bool{id: true}
	d.cascade(id, cs.State, visited)

	return ok, nil
}

func (d *Dashboard) fireListeners(id component.ID, cs status.ComponentStatus) {
	d.mu.Lock()
	d.lastNotified[id] = cs.State
	global := append([]StatusListener(nil), d.globalListeners...)
	perComponent := append([]StatusListener(nil), d.perComponentListener[id]...)
	d.mu.Unlock()

	for _, l := range global {
		l(id, cs)
	}
	for _, l := range perComponent {
		l(id, cs)
	}
}

func (d *Dashboard) fireAlertIfNeeded(id component.ID, cs status.ComponentStatus) {
	if !component.AlertStates[cs.State] {
		d.mu.Lock()
		delete(d.lastAlerted, id)
		d.mu.Unlock()
		return
	}

	d.mu.Lock()
	last, alerted := d.lastAlerted[id]
	if alerted && last == cs.State {
		d.mu.Unlock()
		return
	}
	d.lastAlerted[id] = cs.State
	callbacks := append([]AlertCallback(nil), d.alertCallbacks...)
	d.mu.Unlock()

	metrics.AlertCallbackFires.Inc()
	for _, cb := range callbacks {
		cb(id, cs)
	}
}

// cascade propagates a non-nominal state to dependents in breadth-first
// order, so direct dependents are written before transitive ones. The
// per-top-level-update visited set guarantees each node is touched at
// most once, which also makes dependency cycles terminate.
func (d *Dashboard) cascade(id component.ID, newState component.State, visited map[component.ID]bool) {
	type frontier struct {
		source component.ID
		state  component.State
	}
	queue := []frontier{{source: id, state: newState}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		cascadeState, ok := component.CascadeState(cur.state)
		if !ok {
			continue
		}

		for _, dep := range d.graph.DependentsOf(cur.source) {
			if visited[dep] {
				continue
			}
			visited[dep] = true

			depState, _ := d.tracker.GetStatus(dep)
			if !component.IsBetterThan(depState, cascadeState) {
				// dependent is already as bad or worse; never heal.
				continue
			}

			details := map[string]any{
				"cascaded": string(cur.source),
				"reason":   "depends on " + string(cur.source) + " which is " + string(cur.state),
			}
			_, _ = d.tracker.UpdateStatus(dep, cascadeState, status.WithForce(), status.WithDetails(details))
			metrics.CascadeCount.WithLabelValues(string(cascadeState)).Inc()

			cs, _ := d.tracker.GetComponentStatus(dep)
			d.fireListeners(dep, cs)
			d.fireAlertIfNeeded(dep, cs)

			queue = append(queue, frontier{source: dep, state: cascadeState})
		}
	}
}

// ResetForTest wipes all dashboard state. Test-only.
func (d *Dashboard) ResetForTest() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.watched = make(map[component.ID]struct{})
	d.globalListeners = nil
	d.perComponentListener = make(map[component.ID][]StatusListener)
	d.lastNotified = make(map[component.ID]component.State)
	d.alertCallbacks = nil
	d.lastAlerted = make(map[component.ID]component.State)
}
