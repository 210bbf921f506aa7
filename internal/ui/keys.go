package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the key bindings. Like and Nope both commit the front card.
type keyMap struct {
	Like   key.Binding
	Nope   key.Binding
	Skip   key.Binding
	Cancel key.Binding
	Debug  key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Like: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "like"),
		),
		Nope: key.NewBinding(
			key.WithKeys("n", "left"),
			key.WithHelp("n/←", "nope"),
		),
		Skip: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "swipe"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel drag"),
		),
		Debug: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "debug"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) statusHints() []key.Binding {
	return []key.Binding{k.Like, k.Nope, k.Skip, k.Debug, k.Quit}
}
