package tui

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	accentColor = lipgloss.Color("#7DD3FC")
	textColor   = lipgloss.Color("#E2E8F0")
	mutedColor  = lipgloss.Color("#94A3B8")
	errorColor  = lipgloss.Color("#F87171")
	selectColor = lipgloss.Color("#1E293B")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	countStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	itemTitleStyle = lipgloss.NewStyle().
			Foreground(textColor)

	selectedTitleStyle = lipgloss.NewStyle().
				Foreground(accentColor).
				Background(selectColor).
				Bold(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Faint(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	spinnerStyle = lipgloss.NewStyle().Foreground(accentColor)
)
