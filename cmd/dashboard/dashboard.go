// Package dashboard provides the `fabric dashboard` command: a terminal
// UI polling the running daemon's /status endpoint and rendering
// component states alongside each component's declared dependencies.
package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/campusforge/fabric/internal/config"
	"github.com/campusforge/fabric/internal/tui/styles"
)

// DashboardCmd launches the terminal dashboard.
var DashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Watch component health in a terminal dashboard",
	Long: "Watch component health in a terminal dashboard.\n\n" +
		"Polls the running daemon's /status endpoint every second and renders " +
		"a live table of component states and their declared dependencies; " +
		"the integration-health part of the payload is not displayed. " +
		"Press q or Ctrl+C to exit.",
	RunE: runDashboard,
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	url := fmt.Sprintf("http://%s:%d/status", cfg.Daemon.HTTPBind, cfg.Daemon.HTTPPort)

	p := tea.NewProgram(newModel(url))
	_, err := p.Run()
	return err
}

type statusPayload struct {
	Components        map[string]struct{ State string } `json:"components"`
	DependencyGraph    map[string][]string `json:"dependency_graph"`
	IntegrationHealth  any               `json:"integration_health"`
}

type tickMsg time.Time

type fetchedMsg struct {
	payload *statusPayload
	err     error
}

type model struct {
	url     string
	table   table.Model
	err     error
	overall string
}

func newModel(url string) model {
	columns := []table.Column{
		{Title: "Component", Width: 28},
		{Title: "State", Width: 16},
		{Title: "Dependencies", Width: 30},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(false),
		table.WithHeight(12),
	)
	t.SetStyles(table.DefaultStyles())
	return model{url: url, table: t}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(fetch(m.url), tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func fetch(url string) tea.Cmd {
	return func() tea.Msg {
		client := &http.Client{Timeout: 3 * time.Second}
		resp, err := client.Get(url)
		if err != nil {
			return fetchedMsg{err: err}
		}
		defer resp.Body.Close()

		var payload statusPayload
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return fetchedMsg{err: err}
		}
		return fetchedMsg{payload: &payload}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		return m, tea.Batch(fetch(m.url), tick())
	case fetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.table.SetRows(rowsFromPayload(msg.payload))
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func rowsFromPayload(payload *statusPayload) []table.Row {
	ids := make([]string, 0, len(payload.Components))
	for id := range payload.Components {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]table.Row, 0, len(ids))
	for _, id := range ids {
		dependencies := payload.DependencyGraph[id]
		rows = append(rows, table.Row{id, payload.Components[id].State, fmt.Sprintf("%v", dependencies)})
	}
	return rows
}

func (m model) View() string {
	if m.err != nil {
		return styles.Container.Render(
			styles.Title.Render("fabric dashboard") + "\n" +
				styles.ErrorText.Render(fmt.Sprintf("failed to reach daemon: %v", m.err)) + "\n" +
				styles.HelpText.Render("retrying every second, press q to quit"),
		)
	}

	header := styles.Title.Render("fabric dashboard")
	body := styles.Panel.Render(m.table.View())
	footer := styles.HelpText.Render("q: quit")

	return styles.Container.Render(lipgloss.JoinVertical(lipgloss.Left, header, body, footer))
}
