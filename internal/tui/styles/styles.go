// Package styles provides shared lipgloss styles for the fabric dashboard TUI.
package styles

import "github.com/charmbracelet/lipgloss"

// Color palette using ANSI colors for broad terminal compatibility.
var (
	Primary   = lipgloss.Color("4")   // Blue
	Secondary = lipgloss.Color("245") // Light gray
	Success   = lipgloss.Color("2")   // Green
	Warning   = lipgloss.Color("3")   // Yellow
	Error     = lipgloss.Color("1")   // Red
	Highlight = lipgloss.Color("12")  // Bright blue
	Muted     = lipgloss.Color("245")
)

// Text styles.
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(Secondary).
			Italic(true)

	ErrorText = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	MutedText = lipgloss.NewStyle().
			Foreground(Muted)

	HelpText = lipgloss.NewStyle().
			Foreground(Secondary).
			Italic(true)
)

// StateColor maps a component state name to the color its row is
// rendered in, matching the cascade severity this family of states uses.
func StateColor(state string) lipgloss.Color {
	switch state {
	case "HEALTHY", "RUNNING", "RECOVERING":
		return Success
	case "DEGRADED":
		return Warning
	case "FAILED", "DOWN", "CRITICAL", "IMPAIRED":
		return Error
	default:
		return Muted
	}
}

// Container frames the dashboard body.
var Container = lipgloss.NewStyle().
	PaddingTop(1).
	PaddingLeft(2).
	PaddingRight(2)

// Panel frames one bordered section (the dashboard's component table).
var Panel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Secondary).
	Padding(0, 1).
	MarginBottom(1)
