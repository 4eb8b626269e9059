// Package theme holds the shared lipgloss palette and styles.
package theme

import "github.com/charmbracelet/lipgloss"

var (
	Bg      = lipgloss.Color("#14161f")
	Panel   = lipgloss.Color("#1b1e2b")
	Border  = lipgloss.Color("#3b4261")
	Text    = lipgloss.Color("#c8d3f5")
	Faded   = lipgloss.Color("#828bb8")
	Blue    = lipgloss.Color("#82aaff")
	Cyan    = lipgloss.Color("#86e1fc")
	Green   = lipgloss.Color("#c3e88d")
	Red     = lipgloss.Color("#ff757f")
	Yellow  = lipgloss.Color("#ffc777")
	Magenta = lipgloss.Color("#c099ff")

	Title  = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	Muted  = lipgloss.NewStyle().Foreground(Faded)
	Accent = lipgloss.NewStyle().Foreground(Yellow).Bold(true)

	Correct    = lipgloss.NewStyle().Foreground(Green)
	Incorrect  = lipgloss.NewStyle().Foreground(Red)
	Answered   = lipgloss.NewStyle().Foreground(Blue)
	Unanswered = lipgloss.NewStyle().Foreground(Faded)

	Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	PaneActive = Pane.BorderForeground(Blue)

	Banner = lipgloss.NewStyle().
		Foreground(Red).
		Background(Panel).
		Padding(0, 1)
)
