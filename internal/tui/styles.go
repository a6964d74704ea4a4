package tui

import "github.com/charmbracelet/lipgloss"

const (
	primaryColor = "#2563EB" // Blue
	passColor    = "#16A34A" // Green
	failColor    = "#DC2626" // Red
	dimColor     = "#6B7280" // Gray
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(primaryColor)).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(primaryColor)).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(dimColor))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(failColor))

	passStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(passColor)).
			Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(failColor)).
			Bold(true)

	buttonStyle = lipgloss.NewStyle().
			Padding(0, 3).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color(dimColor))

	selectedButtonStyle = buttonStyle.
				BorderForeground(lipgloss.Color(primaryColor)).
				Foreground(lipgloss.Color(primaryColor)).
				Bold(true)

	verdictPassStyle = lipgloss.NewStyle().
				Background(lipgloss.Color(passColor)).
				Foreground(lipgloss.Color("#FFFFFF")).
				Bold(true).
				Padding(0, 2)

	verdictFailStyle = verdictPassStyle.
				Background(lipgloss.Color(failColor))
)
