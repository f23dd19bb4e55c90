package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Pass       key.Binding
	Smash      key.Binding
	PickLeft   key.Binding
	PickRight  key.Binding
	Tournament key.Binding
	Results    key.Binding
	Restart    key.Binding
	Redo       key.Binding
	Abort      key.Binding
	Faction    key.Binding
	Type       key.Binding
	Tab        key.Binding
	Reload     key.Binding
	Quit       key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Pass:       key.NewBinding(key.WithKeys("a", "left"), key.WithHelp("a/←", "pass")),
		Smash:      key.NewBinding(key.WithKeys("d", "right"), key.WithHelp("d/→", "smash")),
		PickLeft:   key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "pick left")),
		PickRight:  key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "pick right")),
		Tournament: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tournament")),
		Results:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "results")),
		Restart:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "restart")),
		Redo:       key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "redo bracket")),
		Abort:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back to results")),
		Faction:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "faction")),
		Type:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "type")),
		Tab:        key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "smash/pass list")),
		Reload:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "retry load")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}
