package todos

import (
	"fmt"
	"strings"
	"time"

	"github.com/nhle/todoctl/internal/model"
)

// Draft is the editable form of a todo, used both for new todos and for
// the edit panel.
type Draft struct {
	title       string
	description string
	priority    model.Priority
	dueDate     string
}

// NewDraft returns an empty draft with Medium priority.
func NewDraft() Draft {
	return Draft{priority: model.PriorityMedium}
}

// DraftFrom fills a draft with t's editable fields.
func DraftFrom(t model.Todo) Draft {
	return Draft{
		title:       t.Title,
		description: t.Description,
		priority:    t.Priority,
		dueDate:     t.DueDay(),
	}
}

func (d *Draft) SetTitle(title string)             { d.title = title }
func (d *Draft) SetDescription(description string) { d.description = description }

// SetPriority rejects values outside High..Low.
func (d *Draft) SetPriority(p model.Priority) error {
	if !p.Valid() {
		return fmt.Errorf("%w: unknown priority %d", ErrValidation, int(p))
	}
	d.priority = p
	return nil
}

// SetDueDate takes a YYYY-MM-DD date, or "" to clear it.
func (d *Draft) SetDueDate(date string) error {
	date = strings.TrimSpace(date)
	if date != "" {
		if _, err := time.Parse(model.DateLayout, date); err != nil {
			return fmt.Errorf("%w: due date must be YYYY-MM-DD", ErrValidation)
		}
	}
	d.dueDate = date
	return nil
}

func (d Draft) Title() string            { return d.title }
func (d Draft) Description() string      { return d.description }
func (d Draft) Priority() model.Priority { return d.priority }
func (d Draft) DueDate() string          { return d.dueDate }

// Validate reports the first problem that keeps the draft from being sent.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.title) == "" {
		return fmt.Errorf("%w: %s", ErrValidation, MsgTitleRequired)
	}
	return nil
}

func (d Draft) due() *string {
	if d.dueDate == "" {
		return nil
	}
	due := d.dueDate
	return &due
}

// NewTodo is the create request for the draft.
func (d Draft) NewTodo() model.NewTodo {
	return model.NewTodo{
		Title:       strings.TrimSpace(d.title),
		Description: d.description,
		Completed:   false,
		Priority:    d.priority,
		DueDate:     d.due(),
	}
}

// ApplyTo merges the draft into existing. Id, completion and position are
// carried over unchanged.
func (d Draft) ApplyTo(existing model.Todo) model.Todo {
	out := existing
	out.Title = strings.TrimSpace(d.title)
	out.Description = d.description
	out.Priority = d.priority
	out.DueDate = d.due()
	return out
}
