package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoctl/internal/keys"
	"github.com/nhle/todoctl/internal/model"
	"github.com/nhle/todoctl/internal/theme"
)

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(k *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   k,
		help:   h,
		width:  width,
		height: height,
	}
}

// legend explains the marks used in list rows.
func legend() string {
	mark := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	desc := theme.HelpStyle

	rows := []string{
		mark.Render(theme.SelectedMarkStyle.Render("[x]")) + desc.Render("  selected for bulk actions"),
		mark.Render("✓  ") + desc.Render("  completed, ○ open"),
		theme.PriorityStyle(model.PriorityHigh).Render("H") + " " +
			theme.PriorityStyle(model.PriorityMedium).Render("M") + " " +
			theme.PriorityStyle(model.PriorityLow).Render("L") + desc.Render("  priority"),
		theme.OverdueStyle.Render("OVERDUE") + desc.Render("  open and past its due date"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	m.help.Width = m.width - 4
	m.help.ShowAll = true

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
		"",
		titleStyle.Render("List Marks"),
		legend(),
		"",
		theme.HelpStyle.Render("Reordering only works while the priority sort is off."),
	)

	return theme.PanelStyle.
		Width(max(m.width-4, 0)).
		Height(max(m.height-4, 0)).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
