package auth

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoctl/internal/session"
	"github.com/nhle/todoctl/internal/theme"
)

// Mode represents the current state of the authentication view.
type Mode int

const (
	ModeLogin      Mode = iota // Login form
	ModeRegister               // Registration form
	ModeSubmitting             // Waiting for the server
)

// DoneMsg signals a successful login or registration.
type DoneMsg struct {
	Registered bool
}

// resultMsg carries the outcome of a login or registration attempt.
type resultMsg struct {
	register bool
	err      error
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	email    string
	password string
	confirm  string
}

// Model is the Bubble Tea model for the login and registration screens.
type Model struct {
	ctx       context.Context
	session   *session.Manager
	mode      Mode
	returnTo  Mode
	form      *huh.Form
	fb        *formBindings
	spinner   spinner.Model
	statusMsg string
	width     int
	height    int
}

// New creates an authentication view driving mgr.
func New(ctx context.Context, mgr *session.Manager, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:     ctx,
		session: mgr,
		fb:      &formBindings{},
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Init opens the login form. A status set with SetStatus is kept.
func (m *Model) Init() tea.Cmd {
	m.fb.password = ""
	m.fb.confirm = ""
	return m.open(ModeLogin)
}

// SetStatus shows msg above the form, e.g. why the session ended.
func (m *Model) SetStatus(msg string) {
	m.statusMsg = msg
}

// Mode returns the current mode.
func (m Model) Mode() Mode {
	return m.mode
}

func (m *Model) open(mode Mode) tea.Cmd {
	m.mode = mode
	if mode == ModeRegister {
		m.form = m.buildRegisterForm()
	} else {
		m.form = m.buildLoginForm()
	}
	return m.form.Init()
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		return m.handleResult(msg)

	case spinner.TickMsg:
		if m.mode == ModeSubmitting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if m.mode == ModeSubmitting {
			return m, nil
		}
		if msg.String() == "ctrl+r" {
			m.statusMsg = ""
			m.fb.password = ""
			m.fb.confirm = ""
			if m.mode == ModeLogin {
				return m, m.open(ModeRegister)
			}
			return m, m.open(ModeLogin)
		}
	}

	return m.updateForm(msg)
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil || m.mode == ModeSubmitting {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m.submit()
	case huh.StateAborted:
		return m, tea.Quit
	}
	return m, cmd
}

// submit validates the form locally and starts the request.
func (m Model) submit() (Model, tea.Cmd) {
	register := m.mode == ModeRegister
	email, password := m.fb.email, m.fb.password

	var err error
	if register {
		err = session.ValidateRegistration(email, password, m.fb.confirm)
	} else {
		err = session.ValidateLogin(email, password)
	}
	if err != nil {
		m.statusMsg = m.errorMessage(register, err)
		return m, m.open(m.mode)
	}

	m.returnTo = m.mode
	m.mode = ModeSubmitting
	m.statusMsg = ""

	mgr, ctx := m.session, m.ctx
	return m, tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			if register {
				return resultMsg{register: true, err: mgr.Register(ctx, email, password)}
			}
			return resultMsg{err: mgr.Login(ctx, email, password)}
		},
	)
}

func (m Model) handleResult(msg resultMsg) (Model, tea.Cmd) {
	m.fb.password = ""
	m.fb.confirm = ""

	if msg.err != nil {
		m.statusMsg = m.errorMessage(msg.register, msg.err)
		return m, m.open(m.returnTo)
	}

	m.statusMsg = ""
	cmd := m.open(ModeLogin)
	return m, tea.Batch(cmd, func() tea.Msg { return DoneMsg{Registered: msg.register} })
}

func (m Model) errorMessage(register bool, err error) string {
	if register {
		return session.RegisterErrorMessage(err)
	}
	return session.LoginErrorMessage(err)
}

func (m *Model) buildLoginForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&m.fb.email),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password),
		),
	).WithWidth(m.formWidth())
}

func (m *Model) buildRegisterForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&m.fb.email),
			huh.NewInput().
				Title("Password").
				Description("At least 6 characters").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password),
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth())
}

// View renders the active form or the waiting spinner.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	var title, body string
	if m.form != nil {
		body = m.form.View()
	}
	switch m.mode {
	case ModeSubmitting:
		title = "Signing in"
		body = m.spinner.View() + " Contacting the server..."
	case ModeRegister:
		title = "Create an account"
	default:
		title = "Log in"
	}

	parts := []string{titleStyle.Render(title)}
	if m.statusMsg != "" {
		parts = append(parts, theme.ErrorTextStyle.Render(m.statusMsg), "")
	}
	parts = append(parts, body)
	if m.mode != ModeSubmitting {
		switchTo := "ctrl+r: create an account"
		if m.mode == ModeRegister {
			switchTo = "ctrl+r: back to log in"
		}
		parts = append(parts, "", theme.HelpStyle.Render(switchTo))
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 30), 60)
}
