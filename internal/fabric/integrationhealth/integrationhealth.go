// Package integrationhealth implements the fabric's IntegrationHealth
// monitor: threshold-derived per-component health status rolled up from
// periodically collected metrics, with an overall system status and a
// visualization payload for dashboards.
package integrationhealth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/campusforge/fabric/internal/fabric/component"
	"github.com/campusforge/fabric/internal/fabric/events"
	"github.com/campusforge/fabric/internal/metrics"
)

// Status is the health classification derived from a component's metrics.
type Status string

const (
	StatusHealthy  Status = "HEALTHY"
	StatusDegraded Status = "DEGRADED"
	StatusFailing  Status = "FAILING"
	StatusCritical Status = "CRITICAL"
	StatusUnknown  Status = "UNKNOWN"
)

var statusRank = map[Status]int{
	StatusHealthy:  0,
	StatusDegraded: 1,
	StatusFailing:  2,
	StatusCritical: 3,
	StatusUnknown:  4,
}

// MetricType classifies what a Metric measures.
type MetricType string

const (
	MetricResponseTime  MetricType = "response_time"
	MetricErrorRate     MetricType = "error_rate"
	MetricThroughput    MetricType = "throughput"
	MetricResourceUsage MetricType = "resource_usage"
	MetricAvailability  MetricType = "availability"
	MetricCustom        MetricType = "custom"
)

// Metric is a single health measurement for a component.
type Metric struct {
	Name             string
	Value            float64
	Type             MetricType
	ComponentID      component.ID
	Timestamp        time.Time
	ThresholdWarning *float64
	ThresholdCritical *float64
	Metadata         map[string]any
}

// EvaluatedStatus derives a status from the metric's value against its
// thresholds. A metric with no thresholds is always HEALTHY.
func (m Metric) EvaluatedStatus() Status {
	if m.ThresholdCritical != nil && m.Value >= *m.ThresholdCritical {
		return StatusCritical
	}
	if m.ThresholdWarning != nil && m.Value >= *m.ThresholdWarning {
		return StatusDegraded
	}
	return StatusHealthy
}

// Provider is the capability a component exposes to be polled for health
// metrics and an overall self-reported status.
type Provider interface {
	HealthMetrics() []Metric
	HealthStatus() Status
}

// Monitor collects health metrics from registered providers, tracks
// bounded per-component history, derives a per-component and overall
// system Status, and exposes a visualization payload.
type Monitor struct {
	mu sync.RWMutex

	pollingInterval time.Duration
	historyLimit    int

	providers map[component.ID]Provider
	history   map[component.ID][]Metric
	latest    map[component.ID]map[string]Metric
	cache     map[component.ID]Status

	bus events.Bus

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// DefaultHistoryLimit bounds per-component metric history, matching the
// 1000-entry trim policy metrics are collected under.
const DefaultHistoryLimit = 1000

// Option configures a Monitor.
type Option func(*Monitor)

// WithPollingInterval overrides the default 60s poll period.
func WithPollingInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.pollingInterval = d
		}
	}
}

// WithBus attaches an event bus; a health.metric_updated event is
// published whenever a component's rolled-up status changes.
func WithBus(bus events.Bus) Option {
	return func(m *Monitor) { m.bus = bus }
}

// New constructs a Monitor.
func New(opts ...Option) *Monitor {
	m := &Monitor{
		pollingInterval: 60 * time.Second,
		historyLimit:    DefaultHistoryLimit,
		providers:       make(map[component.ID]Provider),
		history:         make(map[component.ID][]Metric),
		latest:          make(map[component.ID]map[string]Metric),
		cache:           make(map[component.ID]Status),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterProvider registers id's health provider.
func (m *Monitor) RegisterProvider(id component.ID, p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[id] = p
	if _, ok := m.history[id]; !ok {
		m.history[id] = nil
		m.latest[id] = make(map[string]Metric)
		m.cache[id] = StatusUnknown
	}
}

// UnregisterProvider removes id's provider binding; accumulated history
// and cached status are kept for reference.
func (m *Monitor) UnregisterProvider(id component.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.providers, id)
}

// CollectAll polls every registered provider. A provider that panics or
// whose metrics cannot be obtained yields a synthetic error metric
// rather than aborting collection for the rest.
func (m *Monitor) CollectAll() {
	m.mu.RLock()
	ids := make([]component.ID, 0, len(m.providers))
	for id := range m.providers {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.collectOne(id)
	}
}

func (m *Monitor) collectOne(id component.ID) {
	m.mu.RLock()
	provider, ok := m.providers[id]
	m.mu.RUnlock()
	if !ok {
		return
	}

	metrics := safeCollect(id, provider)
	m.update(id, metrics)
}

func safeCollect(id component.ID, p Provider) (result []Metric) {
	defer func() {
		if r := recover(); r != nil {
			result = []Metric{{
				Name:        "health_collection_error",
				Value:       1,
				Type:        MetricErrorRate,
				ComponentID: id,
				Timestamp:   time.Now(),
				Metadata:    map[string]any{"error": fmt.Sprintf("%v", r)},
			}}
		}
	}()
	return p.HealthMetrics()
}

func (m *Monitor) update(id component.ID, newMetrics []Metric) {
	m.mu.Lock()
	for _, metric := range newMetrics {
		if metric.Timestamp.IsZero() {
			metric.Timestamp = time.Now()
		}
		m.history[id] = append(m.history[id], metric)
		m.latest[id][metric.Name] = metric
	}
	if len(m.history[id]) > m.historyLimit {
		m.history[id] = append([]Metric(nil), m.history[id][len(m.history[id])-m.historyLimit:]...)
	}

	old := m.cache[id]
	newStatus := m.rollupLocked(id)
	m.cache[id] = newStatus
	m.mu.Unlock()

	metrics.IntegrationHealthOverall.WithLabelValues(string(id)).Set(float64(statusRank[newStatus]))
	metrics.IntegrationHealthSystemOverall.Set(float64(statusRank[m.OverallStatus()]))
	for _, metric := range newMetrics {
		metrics.IntegrationHealthMetric.WithLabelValues(string(id), metric.Name).Set(metric.Value)
	}

	if newStatus != old {
		m.publishChange(id, old, newStatus)
	}
}

// rollupLocked derives a component's status as the worst of its latest
// per-metric statuses; callers must hold m.mu.
func (m *Monitor) rollupLocked(id component.ID) Status {
	latest := m.latest[id]
	if len(latest) == 0 {
		if provider, ok := m.providers[id]; ok {
			return provider.HealthStatus()
		}
		return StatusUnknown
	}
	worst := StatusHealthy
	for _, metric := range latest {
		if s := metric.EvaluatedStatus(); statusRank[s] > statusRank[worst] {
			worst = s
		}
	}
	return worst
}

func (m *Monitor) publishChange(id component.ID, old, newStatus Status) {
	if m.bus == nil {
		return
	}
	priority := events.PriorityNormal
	if newStatus == StatusFailing || newStatus == StatusCritical {
		priority = events.PriorityHigh
	}
	e := events.New(events.TypeHealthMetricUpdated, events.CategoryIntegration, string(id),
		map[string]any{"old_status": string(old), "new_status": string(newStatus)}, priority, false)
	_ = m.bus.Publish(context.Background(), e)
}

// ComponentStatus returns id's cached rolled-up status.
func (m *Monitor) ComponentStatus(id component.ID) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.providers[id]; !ok {
		if s, ok := m.cache[id]; ok {
			return s
		}
		return StatusUnknown
	}
	return m.cache[id]
}

// OverallStatus is the worst status across every tracked component.
func (m *Monitor) OverallStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.cache) == 0 {
		return StatusUnknown
	}
	worst := StatusHealthy
	for _, s := range m.cache {
		if statusRank[s] > statusRank[worst] {
			worst = s
		}
	}
	return worst
}

// VisualizationData is the JSON-serializable payload returned to
// dashboard consumers.
type VisualizationData struct {
	OverallStatus    string                           `json:"overall_status"`
	ComponentStatus  map[string]string                `json:"component_status"`
	MetricsSummary   map[string]map[string]MetricView `json:"metrics_summary"`
	Timestamp        time.Time                        `json:"timestamp"`
}

// MetricView is a single metric's summarized current value.
type MetricView struct {
	Value     float64   `json:"value"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// GetVisualizationData snapshots current status and metrics for
// rendering.
func (m *Monitor) GetVisualizationData() VisualizationData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data := VisualizationData{
		ComponentStatus: make(map[string]string, len(m.cache)),
		MetricsSummary:  make(map[string]map[string]MetricView, len(m.latest)),
		Timestamp:       time.Now(),
	}
	worst := StatusHealthy
	for id, s := range m.cache {
		data.ComponentStatus[string(id)] = string(s)
		if statusRank[s] > statusRank[worst] {
			worst = s
		}
	}
	if len(m.cache) == 0 {
		worst = StatusUnknown
	}
	data.OverallStatus = string(worst)

	for id, metrics := range m.latest {
		view := make(map[string]MetricView, len(metrics))
		for name, metric := range metrics {
			view[name] = MetricView{
				Value:     metric.Value,
				Status:    string(metric.EvaluatedStatus()),
				Timestamp: metric.Timestamp,
			}
		}
		data.MetricsSummary[string(id)] = view
	}
	return data
}

// StopTimer stops a running duration timer, yielding a response-time
// Metric with the given optional thresholds.
type StopTimer func(thresholdWarning, thresholdCritical *float64, metadata map[string]any) Metric

// CreateTimerMetric starts a timer for an in-flight operation and
// returns a function that, when called, yields the elapsed-duration
// metric.
func CreateTimerMetric(name string, id component.ID) StopTimer {
	start := time.Now()
	return func(thresholdWarning, thresholdCritical *float64, metadata map[string]any) Metric {
		return Metric{
			Name:              name,
			Value:             time.Since(start).Seconds(),
			Type:              MetricResponseTime,
			ComponentID:       id,
			Timestamp:         time.Now(),
			ThresholdWarning:  thresholdWarning,
			ThresholdCritical: thresholdCritical,
			Metadata:          metadata,
		}
	}
}

// StartPolling runs CollectAll on pollingInterval until ctx is canceled
// or Stop is called.
func (m *Monitor) StartPolling(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.pollingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CollectAll()
			}
		}
	}()
}

// Stop halts background polling and waits for the poll goroutine to exit.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
