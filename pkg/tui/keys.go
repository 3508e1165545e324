package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds all inspector key bindings.
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Output  key.Binding
	PgUp    key.Binding
	PgDown  key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "browse up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "browse down"),
	),
	Output: key.NewBinding(
		key.WithKeys("o", "enter"),
		key.WithHelp("o", "toggle output preview"),
	),
	PgUp: key.NewBinding(
		key.WithKeys("pgup", "b"),
		key.WithHelp("pgup", "scroll preview up"),
	),
	PgDown: key.NewBinding(
		key.WithKeys("pgdown", "f"),
		key.WithHelp("pgdn", "scroll preview down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
