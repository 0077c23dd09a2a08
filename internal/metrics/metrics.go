// Package metrics provides Prometheus metrics for the fabric process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fabric"

// Event bus metrics track publish/subscribe throughput and backpressure.
var (
	// EventBusDroppedEvents counts events dropped due to a full
	// subscriber mailbox, labeled by event type.
	EventBusDroppedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_bus_dropped_events_total",
		Help:      "Events dropped because a subscriber mailbox was full",
	}, []string{"event_type"})

	// EventBusPersistenceFailures counts failed durable-store appends.
	EventBusPersistenceFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_bus_persistence_failures_total",
		Help:      "Failures appending a persistent or critical event to the durable store",
	})

	// EventBusSubscriberCount tracks the live subscriber count.
	EventBusSubscriberCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "event_bus_subscribers",
		Help:      "Current number of event bus subscribers",
	})
)

// Status and dashboard metrics track the state machine and cascading.
var (
	// ComponentStatus reports each component's current state, one label
	// value active (1) at a time per component.
	ComponentStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "component_state",
		Help:      "Current state of a component (1 = active state, labeled by state name)",
	}, []string{"component", "state"})

	// StatusTransitions counts transitions recorded by the tracker.
	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_transitions_total",
		Help:      "Status transitions recorded by the tracker, labeled by from/to state",
	}, []string{"from", "to", "forced"})

	// CascadeCount counts cascaded status writes performed by the
	// dashboard.
	CascadeCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dashboard_cascades_total",
		Help:      "Cascaded status updates applied to dependents",
	}, []string{"cascade_state"})

	// AlertCallbackFires counts alert callback invocations.
	AlertCallbackFires = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dashboard_alert_callbacks_total",
		Help:      "Alert callback invocations fired on transition into an alert state",
	})
)

// Transaction logger metrics.
var (
	// TransactionStage counts transaction stage transitions.
	TransactionStage = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "txlog_stage_total",
		Help:      "Transaction stage transitions, labeled by stage",
	}, []string{"stage"})

	// TransactionDuration observes completed transaction durations.
	TransactionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "txlog_duration_seconds",
		Help:      "Duration of terminal transactions",
		Buckets:   prometheus.DefBuckets,
	})
)

// Integration health metrics.
var (
	// IntegrationHealthMetric mirrors the latest value of every
	// collected health metric.
	IntegrationHealthMetric = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "integration_health_metric_value",
		Help:      "Latest value of a collected health metric",
	}, []string{"component", "metric"})

	// IntegrationHealthOverall reports each component's rolled-up health
	// as an enumerated gauge (0=healthy .. 4=unknown, see HealthStatus
	// order).
	IntegrationHealthOverall = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "integration_health_component_status",
		Help:      "Per-component rolled-up health status priority (0=healthy, 4=unknown)",
	}, []string{"component"})

	// IntegrationHealthSystemOverall reports the system-wide worst
	// component status using the same priority scale.
	IntegrationHealthSystemOverall = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "integration_health_overall_status",
		Help:      "Overall system health status priority (0=healthy, 4=unknown)",
	})
)

// Daemon metrics track process-level health and uptime, in the shape the
// rest of this component family already expects from /metrics.
var (
	// DaemonInfo provides process version and build information.
	DaemonInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "daemon_info",
		Help:      "Daemon version and build information",
	}, []string{"version", "go_version"})

	// DaemonStartTime is the unix timestamp when the daemon started.
	DaemonStartTime = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "daemon_start_time_seconds",
		Help:      "Unix timestamp when the daemon started",
	})
)
