package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/todoctl/internal/keys"
	"github.com/nhle/todoctl/internal/model"
	"github.com/nhle/todoctl/internal/notify"
	"github.com/nhle/todoctl/internal/session"
	appsync "github.com/nhle/todoctl/internal/sync"
	"github.com/nhle/todoctl/internal/todos"
	"github.com/nhle/todoctl/internal/ui"
	"github.com/nhle/todoctl/internal/ui/auth"
	"github.com/nhle/todoctl/internal/ui/command"
	"github.com/nhle/todoctl/internal/ui/detail"
	helpview "github.com/nhle/todoctl/internal/ui/help"
	"github.com/nhle/todoctl/internal/ui/todoform"
	"github.com/nhle/todoctl/internal/ui/todolist"
)

// noteTTL is how long a notification stays in the status bar.
const noteTTL = 4 * time.Second

// sessionEndedStatus is shown on the login form after a forced logout.
const sessionEndedStatus = "Your session has ended. Please log in again."

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLoading ViewState = iota
	ViewAuth
	ViewList
	ViewDetail
	ViewForm
	ViewHelp
	ViewCommand
)

// sessionRestoredMsg is sent once the cached session has been checked.
type sessionRestoredMsg struct {
	err error
}

// noteExpiredMsg clears the status bar notification created at at.
type noteExpiredMsg struct {
	at time.Time
}

// Model is the root Bubble Tea model that manages view routing, layout,
// and the session and todo controllers.
type Model struct {
	ctx          context.Context
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	session      *session.Manager
	todos        *todos.Controller
	relay        *appsync.Relay
	state        session.State
	note         *notify.Notification
	authView     auth.Model
	todoList     todolist.Model
	detail       detail.Model
	todoForm     todoform.Model
	helpView     helpview.Model
	commandView  command.Model
	ready        bool
}

// New creates the root model. The relay must already be the notifier of
// the gateway and controller, and must be watching mgr.
func New(ctx context.Context, mgr *session.Manager, ctrl *todos.Controller, relay *appsync.Relay) Model {
	k := keys.DefaultKeyMap()

	return Model{
		ctx:         ctx,
		currentView: ViewLoading,
		keys:        k,
		session:     mgr,
		todos:       ctrl,
		relay:       relay,
		state:       mgr.State(),
		authView:    auth.New(ctx, mgr, 80, 24),
		todoList:    todolist.New(ctx, ctrl, k, 80, 24),
		detail:      detail.New(k, 80, 24),
		todoForm:    todoform.New(80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
	}
}

// Init starts listening to the relay and restores the cached session.
func (m Model) Init() tea.Cmd {
	mgr, ctx := m.session, m.ctx
	return tea.Batch(
		m.relay.Start(),
		func() tea.Msg {
			return sessionRestoredMsg{err: mgr.Initialize(ctx)}
		},
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.authView.SetSize(w, h)
		m.todoList.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.todoForm.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case appsync.SessionMsg:
		cmd := m.applySession(msg.State)
		return m, tea.Batch(cmd, m.relay.WaitForNextEvent())

	case appsync.NotificationMsg:
		n := msg.Notification
		m.note = &n
		at := n.CreatedAt
		return m, tea.Batch(
			m.relay.WaitForNextEvent(),
			tea.Tick(noteTTL, func(time.Time) tea.Msg { return noteExpiredMsg{at: at} }),
		)

	case noteExpiredMsg:
		if m.note != nil && m.note.CreatedAt.Equal(msg.at) {
			m.note = nil
		}
		return m, nil

	case sessionRestoredMsg:
		if msg.err != nil {
			m.authView.SetStatus("Your saved session could not be restored. Please log in.")
		}
		return m, nil

	case auth.DoneMsg:
		if msg.Registered {
			m.relay.Notify(notify.KindSuccess, session.MsgRegistered)
		} else {
			m.relay.Notify(notify.KindSuccess, session.MsgLoggedIn)
		}
		return m, nil

	case todolist.ChangedMsg:
		var cmd tea.Cmd
		m.todoList, cmd = m.todoList.Update(msg)
		if m.currentView == ViewDetail {
			m.detail.SetTodo(m.lookup(m.detail.TodoID()))
		}
		return m, cmd

	case todolist.OpenMsg:
		m.detail.SetTodo(m.lookup(msg.ID))
		m.previousView = m.currentView
		m.currentView = ViewDetail
		return m, nil

	case todolist.NewMsg:
		m.todos.ClearValidationError()
		m.todoForm.SetError("")
		m.previousView = m.currentView
		m.currentView = ViewForm
		return m, m.todoForm.StartCreate(todos.NewDraft())

	case todolist.EditMsg:
		return m, m.openEditor(msg.ID)

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case detail.ActionMsg:
		switch msg.Action {
		case detail.ActionEdit:
			return m, m.openEditor(msg.ID)
		case detail.ActionToggle:
			return m, m.toggleTodo(msg.ID)
		case detail.ActionDelete:
			m.currentView = ViewList
			return m, m.deleteTodo(msg.ID)
		}
		return m, nil

	case todoform.SubmitMsg:
		m.currentView = m.previousView
		if msg.EditID != 0 {
			return m, m.saveEdit(msg.Draft)
		}
		return m, m.createTodo(msg.Draft)

	case todoform.CancelMsg:
		m.todos.CancelEdit()
		m.todos.ClearValidationError()
		m.currentView = m.previousView
		return m, nil

	case formResultMsg:
		return m.handleFormResult(msg)

	case command.CommandMsg:
		m.commandView.Blur()
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleGlobalKey processes keys that work across views. handled is false
// when the key belongs to the active view.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		m.relay.Stop()
		return tea.Quit, true
	}

	switch m.currentView {
	case ViewLoading, ViewAuth, ViewForm:
		return nil, false
	case ViewList:
		if m.todoList.Typing() {
			return nil, false
		}
	}

	switch msg.String() {
	case "q":
		if m.currentView == ViewList {
			m.relay.Stop()
			return tea.Quit, true
		}

	case "?":
		if m.currentView == ViewCommand {
			return nil, false
		}
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil, true

	case ":":
		if m.currentView == ViewCommand {
			return nil, false
		}
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m.commandView.Focus(), true

	case "esc":
		if m.currentView == ViewHelp || m.currentView == ViewCommand {
			m.commandView.Blur()
			m.currentView = m.previousView
			return nil, true
		}

	case "ctrl+l":
		if m.currentView == ViewList || m.currentView == ViewDetail {
			mgr := m.session
			return func() tea.Msg {
				mgr.Logout()
				return nil
			}, true
		}
	}
	return nil, false
}

// applySession routes between the login screen and the todo views as the
// session changes.
func (m *Model) applySession(s session.State) tea.Cmd {
	wasAuthenticated := m.state.IsAuthenticated()
	m.state = s

	switch {
	case s.Loading:
		return nil

	case s.IsAuthenticated():
		if m.currentView == ViewLoading || m.currentView == ViewAuth {
			m.authView.SetStatus("")
			m.currentView = ViewList
			return m.todoList.Init()
		}
		return nil

	default:
		if m.currentView == ViewAuth {
			return nil
		}
		m.todos.Reset()
		m.todoList, _ = m.todoList.Update(todolist.ChangedMsg{})
		if wasAuthenticated {
			m.authView.SetStatus(sessionEndedStatus)
		}
		m.currentView = ViewAuth
		return m.authView.Init()
	}
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewAuth:
		m.authView, cmd = m.authView.Update(msg)
	case ViewList:
		m.todoList, cmd = m.todoList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewForm:
		m.todoForm, cmd = m.todoForm.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("todoctl", m.sessionStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.note)

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLoading:
		return "Restoring session..."
	case ViewAuth:
		return m.authView.View()
	case ViewList:
		return m.todoList.View()
	case ViewDetail:
		return m.detail.View()
	case ViewForm:
		return m.todoForm.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// sessionStatus returns the right-hand side of the header.
func (m Model) sessionStatus() string {
	switch {
	case m.state.Loading:
		return "signing in..."
	case m.state.User != nil:
		return m.state.User.Email
	default:
		return "signed out"
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewAuth:
		return "enter next/submit | ctrl+r switch form | ctrl+c quit"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewDetail:
		return "esc back | e edit | x toggle | d delete | j/k scroll"
	case ViewForm:
		return "enter next/submit | esc cancel"
	case ViewList:
		if m.todoList.Typing() {
			return "enter apply | esc cancel"
		}
		return "q quit | ? help | n new | x toggle | space select | / search | tab sort | [ ] page"
	default:
		return "ctrl+c quit"
	}
}

// lookup returns the displayed todo with id, or nil.
func (m Model) lookup(id int) *model.Todo {
	for _, t := range m.todos.Todos() {
		if t.ID == id {
			return &t
		}
	}
	return nil
}
