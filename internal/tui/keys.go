package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Learn     key.Binding
	Skip      key.Binding
	Flip      key.Binding
	Face      key.Binding
	Shuffle   key.Binding
	Start     key.Binding
	Reset     key.Binding
	Help      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Learn:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "learned")),
		Skip:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "skip")),
		Flip:      key.NewBinding(key.WithKeys(" ", "up", "down"), key.WithHelp("space", "flip")),
		Face:      key.NewBinding(key.WithKeys("1", "2", "3", "4", "5"), key.WithHelp("1-5", "face")),
		Shuffle:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
		Start:     key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "first card")),
		Reset:     key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reset set")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:      key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Learn, k.Skip, k.Flip, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Learn, k.Skip, k.Flip, k.Face},
		{k.Shuffle, k.Start, k.Reset},
		{k.Help, k.Quit},
	}
}
