package app

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/todoctl/internal/notify"
	"github.com/nhle/todoctl/internal/todos"
	"github.com/nhle/todoctl/internal/ui/command"
	"github.com/nhle/todoctl/internal/ui/todolist"
)

// formResultMsg is sent after a create or an edit save finishes.
type formResultMsg struct {
	editID int
	draft  todos.Draft
	err    error
}

// run wraps a controller call into a tea.Cmd whose result redraws the list.
func (m Model) run(fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return todolist.ChangedMsg{Err: fn(ctx)}
	}
}

// createTodo posts a new todo built from the create form.
func (m Model) createTodo(d todos.Draft) tea.Cmd {
	ctrl, ctx := m.todos, m.ctx
	return func() tea.Msg {
		_, err := ctrl.Create(ctx, d)
		return formResultMsg{draft: d, err: err}
	}
}

// saveEdit copies the form into the open editor and saves it.
func (m Model) saveEdit(d todos.Draft) tea.Cmd {
	ctrl, ctx := m.todos, m.ctx
	return func() tea.Msg {
		ed, ok := ctrl.Editor()
		if !ok {
			return formResultMsg{draft: d, err: todos.ErrNoEditor}
		}
		if err := ctrl.EditDraft(func(draft *todos.Draft) error {
			*draft = d
			return nil
		}); err != nil {
			return formResultMsg{editID: ed.ID, draft: d, err: err}
		}
		_, err := ctrl.SaveEdit(ctx)
		return formResultMsg{editID: ed.ID, draft: d, err: err}
	}
}

// handleFormResult refreshes the list on success. On failure the form is
// reopened with what the user typed.
func (m Model) handleFormResult(msg formResultMsg) (tea.Model, tea.Cmd) {
	var listCmd tea.Cmd
	m.todoList, listCmd = m.todoList.Update(todolist.ChangedMsg{})
	if m.currentView == ViewDetail {
		m.detail.SetTodo(m.lookup(m.detail.TodoID()))
	}
	if msg.err == nil {
		return m, listCmd
	}

	errText := "Could not save the todo. Your changes are kept."
	if errors.Is(msg.err, todos.ErrValidation) {
		errText = todos.MsgTitleRequired
		if v := m.todos.Snapshot().ValidationError; v != "" {
			errText = v
		}
	}

	var formCmd tea.Cmd
	if msg.editID != 0 {
		ed, ok := m.todos.Editor()
		if !ok {
			// The editor closed meanwhile, e.g. on logout.
			return m, listCmd
		}
		formCmd = m.todoForm.StartEdit(ed)
	} else {
		formCmd = m.todoForm.StartCreate(msg.draft)
	}
	m.todoForm.SetError(errText)

	if m.currentView != ViewForm {
		m.previousView = m.currentView
	}
	m.currentView = ViewForm
	return m, tea.Batch(listCmd, formCmd)
}

// openEditor opens the edit panel for a displayed todo.
func (m *Model) openEditor(id int) tea.Cmd {
	ed, err := m.todos.StartEdit(id)
	if err != nil {
		m.relay.Notify(notify.KindWarning, "That todo is no longer on this page.")
		return nil
	}
	m.todoForm.SetError("")
	if m.currentView != ViewForm {
		m.previousView = m.currentView
	}
	m.currentView = ViewForm
	return m.todoForm.StartEdit(ed)
}

func (m Model) toggleTodo(id int) tea.Cmd {
	return m.run(func(ctx context.Context) error {
		_, err := m.todos.ToggleComplete(ctx, id)
		return err
	})
}

func (m Model) deleteTodo(id int) tea.Cmd {
	return m.run(func(ctx context.Context) error {
		return m.todos.Delete(ctx, id)
	})
}

// executeCommand handles a line from the command palette.
func (m *Model) executeCommand(line string) tea.Cmd {
	c, err := command.Parse(line)
	if err != nil {
		m.relay.Notify(notify.KindWarning, err.Error())
		return nil
	}

	ctrl := m.todos
	switch c.Kind {
	case command.Refresh:
		return m.run(ctrl.Fetch)

	case command.NewTodo:
		m.currentView = ViewList
		return func() tea.Msg { return todolist.NewMsg{} }

	case command.Search:
		return m.run(func(ctx context.Context) error { return ctrl.SetSearch(ctx, c.Text) })

	case command.Status:
		return m.run(func(ctx context.Context) error { return ctrl.SetStatusFilter(ctx, c.Status) })

	case command.Priority:
		return m.run(func(ctx context.Context) error { return ctrl.SetPriorityFilter(ctx, c.Priority) })

	case command.Sort:
		return m.run(func(ctx context.Context) error { return ctrl.SetSort(ctx, c.Sort) })

	case command.Page:
		return m.run(func(ctx context.Context) error { return ctrl.SetPage(ctx, c.N) })

	case command.PageSize:
		return m.run(func(ctx context.Context) error { return ctrl.SetPageSize(ctx, c.N) })

	case command.Select:
		ctrl.SelectAll(c.All)
		return func() tea.Msg { return todolist.ChangedMsg{} }

	case command.Bulk:
		return m.run(func(ctx context.Context) error { return ctrl.Bulk(ctx, c.Action) })

	case command.ClearFilters:
		return m.run(ctrl.ClearFilters)

	case command.Logout:
		mgr := m.session
		return func() tea.Msg {
			mgr.Logout()
			return nil
		}

	case command.Quit:
		m.relay.Stop()
		return tea.Quit
	}
	return nil
}
