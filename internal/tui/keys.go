package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Add       key.Binding
	Toggle    key.Binding
	Edit      key.Binding
	Delete    key.Binding
	History   key.Binding
	HistPrev  key.Binding
	HistNext  key.Binding
	Filter    key.Binding
	Status    key.Binding
	Category  key.Binding
	Reset     key.Binding
	SortDue   key.Binding
	SortTitle key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Add:       key.NewBinding(key.WithKeys("a", "n"), key.WithHelp("a", "add")),
		Toggle:    key.NewBinding(key.WithKeys(" ", "x", "enter"), key.WithHelp("space", "toggle")),
		Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete:    key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		History:   key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "history")),
		HistPrev:  key.NewBinding(key.WithKeys("left", "["), key.WithHelp("←", "older")),
		HistNext:  key.NewBinding(key.WithKeys("right", "]"), key.WithHelp("→", "newer")),
		Filter:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Status:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "status filter")),
		Category:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "category filter")),
		Reset:     key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset filters")),
		SortDue:   key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "sort by due")),
		SortTitle: key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "sort by title")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Toggle, k.Edit, k.Delete, k.History, k.Filter, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Add, k.Toggle, k.Edit, k.Delete},
		{k.History, k.HistPrev, k.HistNext},
		{k.Filter, k.Status, k.Category, k.Reset},
		{k.SortDue, k.SortTitle, k.Help, k.Quit},
	}
}
