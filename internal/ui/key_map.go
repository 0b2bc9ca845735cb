package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	enter    key.Binding
	back     key.Binding
	search   key.Binding
	sort     key.Binding
	play     key.Binding
	complete key.Binding
	stats    key.Binding
	reset    key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		sort:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "cycle sort")),
		play:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		complete: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "mark complete")),
		stats:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "progress")),
		reset:    key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reset progress")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.back, k.search, k.sort},
		{k.play, k.complete, k.stats},
		{k.reset, k.quit},
	}
}
