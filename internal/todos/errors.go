package todos

import "errors"

var (
	// ErrValidation means input was rejected locally; nothing was sent.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound means the todo is not on the displayed page.
	ErrNotFound = errors.New("todo not displayed")

	// ErrReorderDisabled is returned while a priority sort is active.
	ErrReorderDisabled = errors.New("reordering is disabled while sorting by priority")

	// ErrEmptySelection is returned by bulk actions with nothing selected.
	ErrEmptySelection = errors.New("no todos selected")

	// ErrInvalidMove is returned for out-of-range reorder indices.
	ErrInvalidMove = errors.New("invalid move")

	// ErrNoEditor is returned when no edit is in progress.
	ErrNoEditor = errors.New("no todo is being edited")
)

// User-facing messages.
const (
	MsgTitleRequired  = "Title is required."
	MsgFetchFailed    = "Failed to load todos."
	MsgAdded          = "Todo added successfully!"
	MsgAddFailed      = "Failed to add todo."
	MsgUpdated        = "Todo updated successfully!"
	MsgUpdateFailed   = "Failed to update todo."
	MsgDeleted        = "Todo deleted successfully!"
	MsgDeleteFailed   = "Failed to delete todo."
	MsgReorderFailed  = "Failed to reorder todos."
	MsgSelectOne      = "Please select at least one todo."
	MsgBulkFailed     = "Bulk action failed."
	msgBulkUpdatedFmt = "Updated %d todos successfully!"
	msgBulkDeletedFmt = "Deleted %d todos successfully!"
)
