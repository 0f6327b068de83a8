package detail

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoctl/internal/keys"
	"github.com/nhle/todoctl/internal/model"
	"github.com/nhle/todoctl/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// Action names something the user asked to do with the shown todo.
type Action string

const (
	ActionEdit   Action = "edit"
	ActionToggle Action = "toggle"
	ActionDelete Action = "delete"
)

// ActionMsg signals the parent to execute an action on the current todo.
type ActionMsg struct {
	Action Action
	ID     int
}

// Model is the todo detail view component.
type Model struct {
	todo     *model.Todo
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }
		case key.Matches(msg, m.keys.Edit):
			return m, m.action(ActionEdit)
		case key.Matches(msg, m.keys.Toggle):
			return m, m.action(ActionToggle)
		case key.Matches(msg, m.keys.Delete):
			return m, m.action(ActionDelete)
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) action(a Action) tea.Cmd {
	if m.todo == nil {
		return nil
	}
	id := m.todo.ID
	return func() tea.Msg { return ActionMsg{Action: a, ID: id} }
}

// View renders the detail view.
func (m Model) View() string {
	if m.todo == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("This todo is no longer on the current page.")
	}
	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.todo == nil {
		return ""
	}
	t := m.todo
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(t.Title))

	status := lipgloss.NewStyle().Foreground(theme.ColorYellow).Render("Open")
	if t.Completed {
		status = lipgloss.NewStyle().Foreground(theme.ColorGreen).Render("Completed")
	}
	pri := theme.PriorityStyle(t.Priority).Render(t.Priority.String())
	sections = append(sections,
		lipgloss.JoinHorizontal(lipgloss.Top, status, "  ", pri),
		"",
	)

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	sections = append(sections, fmt.Sprintf("%s       %s",
		metaStyle.Render("ID:"), valStyle.Render(fmt.Sprint(t.ID))))
	sections = append(sections, fmt.Sprintf("%s %s",
		metaStyle.Render("Position:"), valStyle.Render(fmt.Sprint(t.Position))))
	if due := t.DueDay(); due != "" {
		dueText := valStyle.Render(due)
		if t.IsOverdue(time.Now()) {
			dueText = theme.OverdueStyle.Render(due + " (overdue)")
		}
		sections = append(sections, fmt.Sprintf("%s      %s", metaStyle.Render("Due:"), dueText))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "")

	descHeaderStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	sections = append(sections, descHeaderStyle.Render("Description"))

	body := renderMarkdown(t.Description, min(m.width-4, 100))
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No description")
	}
	sections = append(sections, body)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetTodo updates the todo being displayed. nil shows a placeholder.
// The scroll position is kept when the same todo is shown again.
func (m *Model) SetTodo(t *model.Todo) {
	same := t != nil && m.todo != nil && m.todo.ID == t.ID
	m.todo = t
	m.viewport.SetContent(m.renderContent())
	if !same {
		m.viewport.GotoTop()
	}
}

// TodoID returns the id of the shown todo, or 0.
func (m Model) TodoID() int {
	if m.todo == nil {
		return 0
	}
	return m.todo.ID
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.viewport.SetContent(m.renderContent())
}
