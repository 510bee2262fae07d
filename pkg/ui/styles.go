package ui

import "github.com/charmbracelet/lipgloss"

// Palette follows the Solana brand colours.
var (
	ColorPrimary   = lipgloss.Color("#9945FF")
	ColorSecondary = lipgloss.Color("#14F195")
	ColorDanger    = lipgloss.Color("#FF5C5C")
	ColorWarning   = lipgloss.Color("#FFB547")
	ColorMuted     = lipgloss.Color("#8A8F98")
	ColorBorder    = lipgloss.Color("#2A2D35")
)

var (
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1).
			Width(34)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(ColorPrimary).
			Padding(0, 2)

	StatusOK = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)

	StatusFailed = lipgloss.NewStyle().
			Foreground(ColorDanger).
			Bold(true)

	StatusRunning = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Width(16)

	MutedValue = lipgloss.NewStyle().
			Foreground(ColorMuted)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(0, 1)
)
