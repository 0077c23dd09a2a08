package dashboard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusforge/fabric/internal/fabric/component"
	"github.com/campusforge/fabric/internal/fabric/graph"
	"github.com/campusforge/fabric/internal/fabric/status"
)

func setup(ids ...component.ID) (*Dashboard, *graph.Graph, *status.Tracker) {
	g := graph.New()
	for _, id := range ids {
		g.AddNode(id)
	}
	tr := status.New(0)
	return New(tr, g), g, tr
}

// TestCascadingFailure: a DB outage drives its transitive dependents
// into a cascaded non-nominal state.
func TestCascadingFailure(t *testing.T) {
	d, g, tr := setup("DB", "API", "UI")
	g.AddEdge("API", "DB")
	g.AddEdge("UI", "API")

	for _, id := range []component.ID{"DB", "API", "UI"} {
		tr.UpdateStatus(id, component.Running, status.WithForce())
	}

	var mu sync.Mutex
	alerted := map[component.ID]int{}
	d.RegisterAlertCallback(func(id component.ID, cs status.ComponentStatus) {
		mu.Lock()
		alerted[id]++
		mu.Unlock()
	})

	ok, err := d.UpdateStatus("DB", component.Down, map[string]any{"reason": "conn lost"}, false)
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, component.Down, d.StatusFor("DB"))

	apiState := d.StatusFor("API")
	require.Contains(t, []component.State{component.Impaired, component.Degraded}, apiState)

	uiState := d.StatusFor("UI")
	require.Contains(t, []component.State{component.Impaired, component.Degraded}, uiState)

	apiHistory := d.GetStatusHistory("API")
	last := apiHistory[len(apiHistory)-1]
	require.Equal(t, "DB", last.Metrics["cascaded"])

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, alerted["DB"])
	require.Equal(t, 1, alerted["API"])
	require.Equal(t, 1, alerted["UI"])
}

// TestCascadeFloor_NeverHealsWorseState: cascading never improves a
// dependent that is already worse than the cascade state.
func TestCascadeFloor_NeverHealsWorseState(t *testing.T) {
	d, g, tr := setup("A", "B")
	g.AddEdge("B", "A")

	tr.UpdateStatus("A", component.Running, status.WithForce())
	tr.UpdateStatus("B", component.Failed, status.WithForce())

	_, err := d.UpdateStatus("A", component.Down, nil, false)
	require.NoError(t, err)

	require.Equal(t, component.Failed, d.StatusFor("B"))
}

// TestCascadeAcyclicity: a dependency cycle
// terminates and each node is visited at most once.
func TestCascadeAcyclicity(t *testing.T) {
	d, g, tr := setup("A", "B", "C")
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("C", "A")

	for _, id := range []component.ID{"A", "B", "C"} {
		tr.UpdateStatus(id, component.Running, status.WithForce())
	}

	done := make(chan struct{})
	go func() {
		d.UpdateStatus("A", component.Down, nil, false)
		close(done)
	}()

	<-done // if cascade doesn't terminate this test hangs, caught by go test -timeout

	history := d.GetStatusHistory("B")
	require.LessOrEqual(t, len(history), 2)
}

// TestAlertDedup: repeated updates with the same alert state fire the
// alert callback once until the component transitions out and back in.
func TestAlertDedup(t *testing.T) {
	d, _, tr := setup("A")
	tr.UpdateStatus("A", component.Running, status.WithForce())

	var fires int
	d.RegisterAlertCallback(func(component.ID, status.ComponentStatus) { fires++ })

	d.UpdateStatus("A", component.Degraded, nil, false)
	d.UpdateStatus("A", component.Degraded, nil, true) // same alert state, no-op-ish re-record
	require.Equal(t, 1, fires)

	d.UpdateStatus("A", component.Recovering, nil, false)
	d.UpdateStatus("A", component.Healthy, nil, false)
	d.UpdateStatus("A", component.Degraded, nil, false)
	require.Equal(t, 2, fires)
}

// TestListenerFanOut: every registered status listener fires exactly
// once per update.
func TestListenerFanOut(t *testing.T) {
	d, _, tr := setup("A")
	tr.UpdateStatus("A", component.Running, status.WithForce())

	var calls int
	d.RegisterStatusListener(func(id component.ID, cs status.ComponentStatus) {
		calls++
		require.Equal(t, component.ID("A"), id)
	})

	d.UpdateStatus("A", component.Degraded, nil, false)
	require.Equal(t, 1, calls)
}
