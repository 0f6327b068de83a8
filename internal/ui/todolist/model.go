package todolist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoctl/internal/keys"
	"github.com/nhle/todoctl/internal/model"
	"github.com/nhle/todoctl/internal/theme"
	"github.com/nhle/todoctl/internal/todos"
)

// ChangedMsg is sent when a controller call started by the list finishes.
// The list redraws from a fresh snapshot on receipt.
type ChangedMsg struct {
	Err error
}

// OpenMsg asks the root model to show the detail view of a todo.
type OpenMsg struct {
	ID int
}

// EditMsg asks the root model to open the edit panel for a todo.
type EditMsg struct {
	ID int
}

// NewMsg asks the root model to open the create form.
type NewMsg struct{}

// Model is the main todo list view component.
type Model struct {
	ctx         context.Context
	ctrl        *todos.Controller
	list        list.Model
	keys        *keys.KeyMap
	snap        todos.Snapshot
	selected    map[int]bool
	searchMode  bool
	searchInput textinput.Model
	renameMode  bool
	renameID    int
	renameInput textinput.Model
	flash       string
	width       int
	height      int
}

// New creates a todo list bound to ctrl. Calls made on behalf of the list
// use ctx.
func New(ctx context.Context, ctrl *todos.Controller, k *keys.KeyMap, width, height int) Model {
	selected := make(map[int]bool)
	delegate := ItemDelegate{selected: selected}

	l := list.New([]list.Item{}, delegate, width, height-3)
	l.Title = "Todos"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.Styles.Title = theme.HeaderStyle
	// Server pages are navigated with the list's own keys; keep the
	// list's paging on pgup/pgdown only.
	l.KeyMap.NextPage = key.NewBinding(key.WithKeys("pgdown"))
	l.KeyMap.PrevPage = key.NewBinding(key.WithKeys("pgup"))

	si := textinput.New()
	si.Placeholder = "search todos..."
	si.Prompt = "/ "
	si.Width = width - 4

	ri := textinput.New()
	ri.Prompt = "title: "
	ri.CharLimit = 200
	ri.Width = width - 10

	return Model{
		ctx:         ctx,
		ctrl:        ctrl,
		list:        l,
		keys:        k,
		selected:    selected,
		searchInput: si,
		renameInput: ri,
		width:       width,
		height:      height,
	}
}

// Init returns a command that loads the first page.
func (m Model) Init() tea.Cmd {
	return m.Fetch()
}

// Fetch returns a command that reloads the current page.
func (m Model) Fetch() tea.Cmd {
	return m.run(m.ctrl.Fetch)
}

// run wraps a controller call into a tea.Cmd reporting ChangedMsg.
func (m Model) run(fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return ChangedMsg{Err: fn(ctx)}
	}
}

// Update handles messages for the list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ChangedMsg:
		m.flash = localProblem(msg.Err)
		m.Refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case m.searchMode:
			return m.handleSearchKeys(msg)
		case m.renameMode:
			return m.handleRenameKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// localProblem turns errors raised before any request into a one-line
// hint. Request failures are already reported through notifications.
func localProblem(err error) string {
	switch {
	case errors.Is(err, todos.ErrReorderDisabled):
		return "Reordering is off while sorting by priority."
	case errors.Is(err, todos.ErrValidation):
		return strings.TrimPrefix(err.Error(), todos.ErrValidation.Error()+": ")
	}
	return ""
}

// Refresh redraws the list from the controller's current state, keeping
// the cursor on the same todo when it is still displayed.
func (m *Model) Refresh() {
	cursorID, hadCursor := m.cursorID()
	m.snap = m.ctrl.Snapshot()

	clear(m.selected)
	for _, id := range m.snap.Selected {
		m.selected[id] = true
	}

	items := make([]list.Item, len(m.snap.Todos))
	for i, t := range m.snap.Todos {
		items[i] = Item{Todo: t}
	}
	m.list.SetItems(items)
	m.list.Title = m.title()

	if hadCursor {
		for i, t := range m.snap.Todos {
			if t.ID == cursorID {
				m.list.Select(i)
				break
			}
		}
	}
}

func (m Model) cursorID() (int, bool) {
	it, ok := m.list.SelectedItem().(Item)
	if !ok {
		return 0, false
	}
	return it.Todo.ID, true
}

// SelectedTodo returns the todo under the cursor.
func (m Model) SelectedTodo() (model.Todo, bool) {
	it, ok := m.list.SelectedItem().(Item)
	return it.Todo, ok
}

// Typing reports whether a text input owns the keyboard.
func (m Model) Typing() bool {
	return m.searchMode || m.renameMode
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.searchInput.Blur()
		search := m.searchInput.Value()
		return m, m.run(func(ctx context.Context) error {
			return m.ctrl.SetSearch(ctx, search)
		})

	case "esc":
		m.searchMode = false
		m.searchInput.Blur()
		m.searchInput.Reset()
		return m, m.run(func(ctx context.Context) error {
			return m.ctrl.SetSearch(ctx, "")
		})
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) handleRenameKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		title := m.renameInput.Value()
		if strings.TrimSpace(title) == "" {
			m.flash = todos.MsgTitleRequired
			return m, nil
		}
		m.renameMode = false
		m.renameInput.Blur()
		m.flash = ""
		id := m.renameID
		return m, m.run(func(ctx context.Context) error {
			_, err := m.ctrl.EditTitle(ctx, id, title)
			return err
		})

	case "esc":
		m.renameMode = false
		m.renameInput.Blur()
		m.flash = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.renameInput, cmd = m.renameInput.Update(msg)
	return m, cmd
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	cur, hasCur := m.SelectedTodo()
	m.flash = ""

	switch {
	case key.Matches(msg, m.keys.Open):
		if !hasCur {
			return m, nil
		}
		return m, func() tea.Msg { return OpenMsg{ID: cur.ID} }

	case key.Matches(msg, m.keys.New):
		return m, func() tea.Msg { return NewMsg{} }

	case key.Matches(msg, m.keys.Edit):
		if !hasCur {
			return m, nil
		}
		return m, func() tea.Msg { return EditMsg{ID: cur.ID} }

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.snap.Query.Search)
		m.searchInput.CursorEnd()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.Rename):
		if !hasCur {
			return m, nil
		}
		m.renameMode = true
		m.renameID = cur.ID
		m.renameInput.SetValue(cur.Title)
		m.renameInput.CursorEnd()
		return m, m.renameInput.Focus()

	case key.Matches(msg, m.keys.StatusFilter):
		return m, m.run(m.ctrl.CycleStatusFilter)

	case key.Matches(msg, m.keys.PriorityFilter):
		return m, m.run(m.ctrl.CyclePriorityFilter)

	case key.Matches(msg, m.keys.CycleSort):
		return m, m.run(m.ctrl.CycleSort)

	case key.Matches(msg, m.keys.NextPage):
		return m, m.run(m.ctrl.NextPage)

	case key.Matches(msg, m.keys.PrevPage):
		return m, m.run(m.ctrl.PrevPage)

	case key.Matches(msg, m.keys.Refresh):
		return m, m.Fetch()

	case key.Matches(msg, m.keys.Toggle):
		if !hasCur {
			return m, nil
		}
		return m, m.run(func(ctx context.Context) error {
			_, err := m.ctrl.ToggleComplete(ctx, cur.ID)
			return err
		})

	case key.Matches(msg, m.keys.Delete):
		if !hasCur {
			return m, nil
		}
		return m, m.run(func(ctx context.Context) error {
			return m.ctrl.Delete(ctx, cur.ID)
		})

	case key.Matches(msg, m.keys.MoveUp):
		return m.move(-1)

	case key.Matches(msg, m.keys.MoveDown):
		return m.move(1)

	case key.Matches(msg, m.keys.Select):
		if !hasCur {
			return m, nil
		}
		m.ctrl.ToggleSelected(cur.ID)
		m.Refresh()
		return m, nil

	case key.Matches(msg, m.keys.SelectAll):
		m.ctrl.SelectAll(!m.snap.AllSelected)
		m.Refresh()
		return m, nil

	case key.Matches(msg, m.keys.BulkComplete):
		return m, m.bulk(model.BulkComplete)

	case key.Matches(msg, m.keys.BulkIncomplete):
		return m, m.bulk(model.BulkIncomplete)

	case key.Matches(msg, m.keys.BulkDelete):
		return m, m.bulk(model.BulkDelete)
	}

	// Delegate to the list for navigation keys.
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// move shifts the todo under the cursor by delta rows. The new order is
// shown straight away; the request runs in the background.
func (m Model) move(delta int) (Model, tea.Cmd) {
	from := m.list.Index()
	to := from + delta
	if to < 0 || to >= len(m.snap.Todos) {
		return m, nil
	}
	if !m.snap.CanReorder {
		m.flash = localProblem(todos.ErrReorderDisabled)
		return m, nil
	}

	moved, err := todos.Move(m.snap.Todos, from, to)
	if err != nil {
		return m, nil
	}
	items := make([]list.Item, len(moved))
	for i, t := range moved {
		items[i] = Item{Todo: t}
	}
	m.list.SetItems(items)
	m.list.Select(to)

	return m, m.run(func(ctx context.Context) error {
		return m.ctrl.Reorder(ctx, from, to)
	})
}

func (m Model) bulk(action model.BulkAction) tea.Cmd {
	return m.run(func(ctx context.Context) error {
		return m.ctrl.Bulk(ctx, action)
	})
}

// title summarizes the active query for the list header.
func (m Model) title() string {
	q := m.snap.Query
	parts := []string{"Todos"}
	if q.Search != "" {
		parts = append(parts, fmt.Sprintf("search %q", q.Search))
	}
	parts = append(parts,
		"status: "+string(q.Status),
		"priority: "+string(q.Priority),
		"sort: "+q.Sort.Label(),
	)
	return strings.Join(parts, " · ")
}

// footer renders pagination, loading and error state under the list.
func (m Model) footer() string {
	pages := max(m.snap.TotalPages, 1)
	line := fmt.Sprintf("Page %d of %d · %d todos", m.snap.CurrentPage, pages, m.snap.Total)
	if n := len(m.snap.Selected); n > 0 {
		line += fmt.Sprintf(" · %d selected", n)
	}
	if m.snap.Loading {
		line += " · loading…"
	}
	out := []string{theme.HelpStyle.Render(line)}

	if m.snap.Error != "" {
		out = append(out, theme.ErrorTextStyle.Render(m.snap.Error))
	}
	if m.flash != "" {
		out = append(out, theme.ErrorTextStyle.Render(m.flash))
	}
	return lipgloss.JoinVertical(lipgloss.Left, out...)
}

// View renders the list view.
func (m Model) View() string {
	var body string
	if len(m.list.Items()) == 0 {
		body = m.renderEmptyState()
	} else {
		body = m.list.View()
	}

	rows := []string{}
	if m.searchMode {
		rows = append(rows, lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View()))
	}
	rows = append(rows, body)
	if m.renameMode {
		rows = append(rows, lipgloss.NewStyle().Padding(0, 1).Render(m.renameInput.View()))
	}
	rows = append(rows, m.footer())
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderEmptyState shows guidance text when no todos are displayed.
func (m Model) renderEmptyState() string {
	q := m.snap.Query
	hasFilters := q.Search != "" ||
		q.Status != model.StatusAll ||
		q.Priority != model.PriorityFilterAll

	style := lipgloss.NewStyle().
		Width(m.width).
		Height(max(m.height-3, 1)).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.snap.Loading:
		return style.Render("Loading todos…")
	case hasFilters:
		return style.Render("No matching todos.\nTry adjusting your filters.")
	}
	return style.Render("No todos yet.\n\nPress n to add one.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, max(height-3, 1))
	m.searchInput.Width = width - 4
	m.renameInput.Width = width - 10
}
