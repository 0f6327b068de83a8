package model

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the todo priority level (lower number = higher priority).
type Priority int

// Priority constants as understood by the API.
const (
	PriorityHigh   Priority = 0
	PriorityMedium Priority = 1
	PriorityLow    Priority = 2
)

// String returns the human-readable label for p.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	return p >= PriorityHigh && p <= PriorityLow
}

// ParsePriority accepts "high", "medium", "low" or their numeric forms.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "0":
		return PriorityHigh, nil
	case "medium", "1":
		return PriorityMedium, nil
	case "low", "2":
		return PriorityLow, nil
	}
	return 0, fmt.Errorf("unknown priority %q (want high, medium or low)", s)
}

// DateLayout is the wire format for due dates.
const DateLayout = "2006-01-02"

// Todo is a single task record owned by the signed-in user.
type Todo struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Completed   bool     `json:"completed"`
	Position    int      `json:"position"`
	Priority    Priority `json:"priority"`
	DueDate     *string  `json:"due_date"`
}

// DueDay returns the date part of the due date, or "" when unset.
// The server may answer with a full datetime; only the day is kept.
func (t Todo) DueDay() string {
	if t.DueDate == nil {
		return ""
	}
	d := strings.TrimSpace(*t.DueDate)
	if len(d) > len(DateLayout) {
		d = d[:len(DateLayout)]
	}
	return d
}

// IsOverdue reports whether an open todo's due day lies before now.
func (t Todo) IsOverdue(now time.Time) bool {
	if t.Completed {
		return false
	}
	day, err := time.ParseInLocation(DateLayout, t.DueDay(), now.Location())
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return day.Before(today)
}

// NewTodo is the request body for creating a todo.
type NewTodo struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Completed   bool     `json:"completed"`
	Priority    Priority `json:"priority"`
	DueDate     *string  `json:"due_date"`
}

// TodoPage is one page of todos as returned by GET /api/todos.
type TodoPage struct {
	Data       []Todo `json:"data"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"total_pages"`
}

// BulkAction names an operation applied to a set of todos at once.
type BulkAction string

// Bulk action constants.
const (
	BulkComplete   BulkAction = "complete"
	BulkIncomplete BulkAction = "incomplete"
	BulkDelete     BulkAction = "delete"
)

// ParseBulkAction validates a bulk action name.
func ParseBulkAction(s string) (BulkAction, error) {
	switch a := BulkAction(strings.ToLower(strings.TrimSpace(s))); a {
	case BulkComplete, BulkIncomplete, BulkDelete:
		return a, nil
	}
	return "", fmt.Errorf("unknown bulk action %q (want complete, incomplete or delete)", s)
}

// BulkRequest is the body of PUT /api/todos/bulk.
type BulkRequest struct {
	TodoIDs []int      `json:"todo_ids"`
	Action  BulkAction `json:"action"`
}

// BulkResult is the confirmation returned by the bulk endpoint.
type BulkResult struct {
	Message      string `json:"message"`
	UpdatedTodos []Todo `json:"updated_todos,omitempty"`
}

// ReorderRequest is the body of PUT /api/todos/reorder.
type ReorderRequest struct {
	TodoIDs []int `json:"todo_ids"`
}
