package todolist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/todoctl/internal/model"
	"github.com/nhle/todoctl/internal/theme"
)

// Item wraps a model.Todo so it can be used in a bubbles/list.
type Item struct {
	Todo model.Todo
}

// FilterValue returns the string used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Todo.Title }

// Title returns the todo title for the list.
func (i Item) Title() string { return i.Todo.Title }

// Description returns a short summary line for the list.
func (i Item) Description() string {
	parts := []string{i.Todo.Priority.String()}
	if due := i.Todo.DueDay(); due != "" {
		parts = append(parts, "due "+due)
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering todo rows.
type ItemDelegate struct {
	// selected holds the ids ticked for bulk actions. Shared by reference
	// with the list Model so updates are visible.
	selected map[int]bool
	now      func() time.Time
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single todo row.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}
	fmt.Fprint(w, d.renderRow(it.Todo, index == m.Index()))
}

func (d ItemDelegate) renderRow(t model.Todo, isCursor bool) string {
	box := "[ ]"
	if d.selected[t.ID] {
		box = theme.SelectedMarkStyle.Render("[x]")
	}

	done := "○"
	if t.Completed {
		done = "✓"
	}

	pri := theme.PriorityStyle(t.Priority).Render(priorityLabel(t.Priority))

	title := t.Title
	if t.Completed {
		title = theme.DimmedStyle.Render(title)
	}

	due := ""
	if day := t.DueDay(); day != "" {
		due = theme.DueDateStyle.Render(" " + day)
	}

	overdue := ""
	now := time.Now
	if d.now != nil {
		now = d.now
	}
	if t.IsOverdue(now()) {
		overdue = theme.OverdueStyle.Render(" OVERDUE")
	}

	line := fmt.Sprintf("%s %s %s %s%s%s", box, done, pri, title, due, overdue)
	if isCursor {
		return theme.CursorItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// priorityLabel returns a one-letter label for the given priority.
func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "H"
	case model.PriorityMedium:
		return "M"
	case model.PriorityLow:
		return "L"
	default:
		return "?"
	}
}
