package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding
	Open key.Binding
	Back key.Binding
	Quit key.Binding

	// Paging
	NextPage key.Binding
	PrevPage key.Binding

	// Query
	Search         key.Binding
	StatusFilter   key.Binding
	PriorityFilter key.Binding
	CycleSort      key.Binding
	Refresh        key.Binding

	// Single todo
	New    key.Binding
	Edit   key.Binding
	Rename key.Binding
	Toggle key.Binding
	Delete key.Binding

	// Ordering
	MoveUp   key.Binding
	MoveDown key.Binding

	// Selection and bulk actions
	Select         key.Binding
	SelectAll      key.Binding
	BulkComplete   key.Binding
	BulkIncomplete key.Binding
	BulkDelete     key.Binding

	Command key.Binding
	Help    key.Binding
	Logout  key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open detail"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("]", "right"),
			key.WithHelp("]/→", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("[", "left"),
			key.WithHelp("[/←", "previous page"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		StatusFilter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "cycle status filter"),
		),
		PriorityFilter: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "cycle priority filter"),
		),
		CycleSort: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "cycle priority sort"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new todo"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Rename: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "rename inline"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "toggle done"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		MoveUp: key.NewBinding(
			key.WithKeys("K", "shift+up"),
			key.WithHelp("K", "move up"),
		),
		MoveDown: key.NewBinding(
			key.WithKeys("J", "shift+down"),
			key.WithHelp("J", "move down"),
		),
		Select: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "select"),
		),
		SelectAll: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "select all"),
		),
		BulkComplete: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "complete selected"),
		),
		BulkIncomplete: key.NewBinding(
			key.WithKeys("U"),
			key.WithHelp("U", "reopen selected"),
		),
		BulkDelete: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "delete selected"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Logout: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "log out"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Open, k.New,
		k.Toggle, k.Search, k.Help, k.Quit,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.Back, k.NextPage, k.PrevPage, k.Quit},
		{k.Search, k.StatusFilter, k.PriorityFilter, k.CycleSort, k.Refresh},
		{k.New, k.Edit, k.Rename, k.Toggle, k.Delete, k.MoveUp, k.MoveDown},
		{k.Select, k.SelectAll, k.BulkComplete, k.BulkIncomplete, k.BulkDelete},
		{k.Command, k.Help, k.Logout},
	}
}
