package integrationhealth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusforge/fabric/internal/fabric/component"
)

type stubProvider struct {
	metrics []Metric
	status  Status
}

func (s stubProvider) HealthMetrics() []Metric { return s.metrics }
func (s stubProvider) HealthStatus() Status    { return s.status }

func warn(v float64) *float64 { return &v }

func TestMetric_EvaluatedStatus(t *testing.T) {
	crit := warn(90)
	warnT := warn(50)

	require.Equal(t, StatusHealthy, Metric{Value: 10, ThresholdWarning: warnT, ThresholdCritical: crit}.EvaluatedStatus())
	require.Equal(t, StatusDegraded, Metric{Value: 60, ThresholdWarning: warnT, ThresholdCritical: crit}.EvaluatedStatus())
	require.Equal(t, StatusCritical, Metric{Value: 95, ThresholdWarning: warnT, ThresholdCritical: crit}.EvaluatedStatus())
}

func TestMonitor_RollupWorstMetric(t *testing.T) {
	m := New()
	m.RegisterProvider("db", stubProvider{
		metrics: []Metric{
			{Name: "latency", Value: 10, ThresholdWarning: warn(50), ThresholdCritical: warn(90)},
			{Name: "error_rate", Value: 95, ThresholdWarning: warn(50), ThresholdCritical: warn(90)},
		},
	})

	m.CollectAll()
	require.Equal(t, StatusCritical, m.ComponentStatus("db"))
}

func TestMonitor_OverallStatusIsWorstComponent(t *testing.T) {
	m := New()
	m.RegisterProvider("db", stubProvider{metrics: []Metric{{Name: "x", Value: 0}}})
	m.RegisterProvider("api", stubProvider{metrics: []Metric{{Name: "y", Value: 95, ThresholdCritical: warn(90)}}})

	m.CollectAll()
	require.Equal(t, StatusHealthy, m.ComponentStatus("db"))
	require.Equal(t, StatusCritical, m.ComponentStatus("api"))
	require.Equal(t, StatusCritical, m.OverallStatus())
}

func TestMonitor_ProviderPanicYieldsErrorMetric(t *testing.T) {
	m := New()
	m.RegisterProvider("flaky", panicProvider{})

	require.NotPanics(t, m.CollectAll)
	require.Equal(t, StatusHealthy, m.ComponentStatus("flaky")) // error metric carries no thresholds
}

type panicProvider struct{}

func (panicProvider) HealthMetrics() []Metric {
	panic("boom")
}
func (panicProvider) HealthStatus() Status { return StatusUnknown }

func TestGetVisualizationData(t *testing.T) {
	m := New()
	m.RegisterProvider("db", stubProvider{metrics: []Metric{{Name: "latency", Value: 12}}})
	m.CollectAll()

	data := m.GetVisualizationData()
	require.Equal(t, "HEALTHY", data.OverallStatus)
	require.Equal(t, "HEALTHY", data.ComponentStatus["db"])
	require.Contains(t, data.MetricsSummary["db"], "latency")
}

func TestCreateTimerMetric(t *testing.T) {
	stop := CreateTimerMetric("op_duration", component.ID("db"))
	metric := stop(nil, nil, nil)
	require.Equal(t, "op_duration", metric.Name)
	require.GreaterOrEqual(t, metric.Value, 0.0)
	require.Equal(t, MetricResponseTime, metric.Type)
}

func TestUnregisterProvider_KeepsHistory(t *testing.T) {
	m := New()
	m.RegisterProvider("db", stubProvider{metrics: []Metric{{Name: "x", Value: 1}}})
	m.CollectAll()

	m.UnregisterProvider("db")
	require.Equal(t, StatusHealthy, m.ComponentStatus("db"))
}
