package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keybindings for the dashboard.
type KeyMap struct {
	Quit  key.Binding
	All   key.Binding
	Plan  key.Binding
	Risk  key.Binding
	Curve key.Binding
	Help  key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		All: key.NewBinding(
			key.WithKeys("r", "enter"),
			key.WithHelp("r", "run all"),
		),
		Plan: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "plan"),
		),
		Risk: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "risk score"),
		),
		Curve: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "curve eval"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// ShortHelp returns keybindings to be shown in the mini help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.All, k.Quit, k.Help}
}

// FullHelp returns keybindings for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.All, k.Plan, k.Risk, k.Curve},
		{k.Help, k.Quit},
	}
}
