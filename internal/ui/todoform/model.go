package todoform

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoctl/internal/model"
	"github.com/nhle/todoctl/internal/theme"
	"github.com/nhle/todoctl/internal/todos"
)

// SubmitMsg is dispatched when the form is completed. EditID is zero for
// a new todo.
type SubmitMsg struct {
	Draft  todos.Draft
	EditID int
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	priority    model.Priority
	dueDate     string
}

// Model is the Bubble Tea model for the create form and the edit panel.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	editID int
	errMsg string
	width  int
	height int
}

// New creates a new todo form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{priority: model.PriorityMedium},
		width:  width,
		height: height,
	}
}

// StartCreate opens the create form filled from d, usually
// todos.NewDraft().
func (m *Model) StartCreate(d todos.Draft) tea.Cmd {
	return m.start(0, d)
}

// StartEdit opens the edit panel on the editor's draft.
func (m *Model) StartEdit(ed todos.Editor) tea.Cmd {
	return m.start(ed.ID, ed.Draft)
}

func (m *Model) start(editID int, d todos.Draft) tea.Cmd {
	m.editID = editID
	m.fb.title = d.Title()
	m.fb.description = d.Description()
	m.fb.priority = d.Priority()
	m.fb.dueDate = d.DueDate()
	m.form = m.buildForm()
	return m.form.Init()
}

// SetError shows msg above the form; "" hides it.
func (m *Model) SetError(msg string) {
	m.errMsg = msg
}

// Editing reports whether the form is the edit panel.
func (m Model) Editing() bool {
	return m.editID != 0
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Todo"
	if m.Editing() {
		titleText = "Edit Todo"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n"
	if m.errMsg != "" {
		content += theme.ErrorTextStyle.Render(m.errMsg) + "\n\n"
	}
	content += m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("What needs to be done?").
				Value(&m.fb.title).
				Validate(validateTitle),
			huh.NewText().
				Title("Description").
				Placeholder("Optional details, markdown welcome...").
				Value(&m.fb.description),
			huh.NewSelect[model.Priority]().
				Title("Priority").
				Options(
					huh.NewOption("High", model.PriorityHigh),
					huh.NewOption("Medium", model.PriorityMedium),
					huh.NewOption("Low", model.PriorityLow),
				).
				Value(&m.fb.priority),
			huh.NewInput().
				Title("Due Date").
				Placeholder("YYYY-MM-DD (optional)").
				Value(&m.fb.dueDate).
				Validate(validateDueDate),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

// Draft returns the form contents as a draft. Field values were validated
// by the form; setter errors are impossible here.
func (m Model) Draft() todos.Draft {
	d := todos.NewDraft()
	d.SetTitle(m.fb.title)
	d.SetDescription(m.fb.description)
	_ = d.SetPriority(m.fb.priority)
	_ = d.SetDueDate(m.fb.dueDate)
	return d
}

func (m Model) handleSubmit() tea.Cmd {
	msg := SubmitMsg{Draft: m.Draft(), EditID: m.editID}
	return func() tea.Msg { return msg }
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-6, 10)
}

func validateTitle(s string) error {
	d := todos.NewDraft()
	d.SetTitle(s)
	if err := d.Validate(); err != nil {
		return plain(err)
	}
	return nil
}

func validateDueDate(s string) error {
	d := todos.NewDraft()
	return plain(d.SetDueDate(s))
}

// plain drops the sentinel prefix so the form shows only the message.
func plain(err error) error {
	if err == nil {
		return nil
	}
	return formError(strings.TrimPrefix(err.Error(), todos.ErrValidation.Error()+": "))
}

type formError string

func (e formError) Error() string { return string(e) }
