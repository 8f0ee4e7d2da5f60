package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorCyan    = lipgloss.Color("#00FFFF")
	colorGreen   = lipgloss.Color("#00FF00")
	colorRed     = lipgloss.Color("#FF5555")
	colorGray    = lipgloss.Color("#666666")
	colorMagenta = lipgloss.Color("#FF00FF")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	interviewerStyle = lipgloss.NewStyle().
				Foreground(colorMagenta)

	respondentStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorCyan).
			Padding(0, 1)
)
