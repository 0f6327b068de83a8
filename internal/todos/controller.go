// Package todos keeps the local page of todos in step with the API. The
// Controller owns the query (search, filters, sort, page), refetches the
// page whenever it changes, and applies mutations from server responses.
package todos

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/nhle/todoctl/internal/logging"
	"github.com/nhle/todoctl/internal/model"
	"github.com/nhle/todoctl/internal/notify"
)

// API is the part of the gateway the controller calls.
type API interface {
	ListTodos(ctx context.Context, q model.Query) (model.TodoPage, error)
	CreateTodo(ctx context.Context, in model.NewTodo) (model.Todo, error)
	UpdateTodo(ctx context.Context, t model.Todo) (model.Todo, error)
	DeleteTodo(ctx context.Context, id int) error
	ReorderTodos(ctx context.Context, ids []int) (model.BulkResult, error)
	BulkUpdate(ctx context.Context, ids []int, action model.BulkAction) (model.BulkResult, error)
}

// Editor is an open edit panel.
type Editor struct {
	ID    int
	Draft Draft
}

// Snapshot is a copy of the controller state for rendering.
type Snapshot struct {
	Todos           []model.Todo
	Query           model.Query
	CurrentPage     int
	TotalPages      int
	Total           int
	Loading         bool
	Error           string
	ValidationError string
	Selected        []int
	AllSelected     bool
	Editor          *Editor
	CanReorder      bool
}

// IsSelected reports whether id is in the snapshot's selection.
func (s Snapshot) IsSelected(id int) bool {
	return slices.Contains(s.Selected, id)
}

// Controller is safe for concurrent use. Network calls are made without
// holding the lock.
type Controller struct {
	api      API
	notifier notify.Notifier
	log      *slog.Logger
	refetch  bool
	initial  model.Query

	mu            sync.Mutex
	todos         []model.Todo
	query         model.Query
	currentPage   int
	totalPages    int
	total         int
	errMsg        string
	validationErr string
	selection     *Selection
	editor        *Editor
	issued        uint64
	inflight      int
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier sets where success and failure messages go.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) { c.notifier = notify.OrDiscard(n) }
}

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = logging.Component(l, "todos") }
}

// WithPageSize sets the initial page size.
func WithPageSize(n int) Option {
	return func(c *Controller) { c.query = model.DefaultQuery(n) }
}

// WithRefetchAfterMutation makes create and bulk actions refetch the page
// instead of patching the local list.
func WithRefetchAfterMutation(on bool) Option {
	return func(c *Controller) { c.refetch = on }
}

// New creates a controller with the default query. Nothing is fetched
// until Fetch or a query change.
func New(api API, opts ...Option) *Controller {
	c := &Controller{
		api:         api,
		notifier:    notify.Discard,
		log:         logging.Discard(),
		query:       model.DefaultQuery(model.DefaultPageSize),
		currentPage: 1,
		selection:   NewSelection(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.initial = c.query
	return c
}

// Reset drops everything tied to the previous user: the page, the
// selection, the editor and the query. In-flight fetches are discarded
// when they return.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	c.todos = nil
	c.query = c.initial
	c.currentPage = 1
	c.totalPages = 0
	c.total = 0
	c.errMsg = ""
	c.validationErr = ""
	c.selection.Reset(nil)
	c.editor = nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Todos:           slices.Clone(c.todos),
		Query:           c.query,
		CurrentPage:     c.currentPage,
		TotalPages:      c.totalPages,
		Total:           c.total,
		Loading:         c.inflight > 0,
		Error:           c.errMsg,
		ValidationError: c.validationErr,
		Selected:        c.selection.IDs(),
		AllSelected:     c.selection.AllSelected(),
		CanReorder:      c.query.Sort == model.SortNone,
	}
	if c.editor != nil {
		ed := *c.editor
		s.Editor = &ed
	}
	return s
}

// Query returns the current query.
func (c *Controller) Query() model.Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Todos returns a copy of the displayed page.
func (c *Controller) Todos() []model.Todo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.todos)
}

// CanReorder reports whether manual ordering is allowed, which is only
// while no priority sort is active.
func (c *Controller) CanReorder() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query.Sort == model.SortNone
}

func (c *Controller) indexOf(id int) int {
	return slices.IndexFunc(c.todos, func(t model.Todo) bool { return t.ID == id })
}

func (c *Controller) ids() []int {
	ids := make([]int, len(c.todos))
	for i, t := range c.todos {
		ids[i] = t.ID
	}
	return ids
}

// --- fetch cycle ---

// Fetch loads the page for the current query. Only the response to the
// most recently issued fetch is applied; older ones are dropped. On
// failure the displayed list and the selection are kept.
func (c *Controller) Fetch(ctx context.Context) error {
	c.mu.Lock()
	seq, q := c.beginFetch()
	c.mu.Unlock()
	return c.runFetch(ctx, seq, q)
}

// beginFetch numbers a new fetch. Caller holds mu.
func (c *Controller) beginFetch() (uint64, model.Query) {
	c.issued++
	c.inflight++
	return c.issued, c.query
}

func (c *Controller) runFetch(ctx context.Context, seq uint64, q model.Query) error {
	page, err := c.api.ListTodos(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--

	if seq != c.issued {
		c.log.Debug("dropping stale page", "seq", seq, "latest", c.issued, "err", err)
		return nil
	}

	if err != nil {
		c.errMsg = MsgFetchFailed
		c.log.Error("fetching todos", "page", q.Page, "err", err)
		return fmt.Errorf("fetching todos: %w", err)
	}

	c.todos = slices.Clone(page.Data)
	c.total = page.Total
	c.totalPages = page.TotalPages
	if page.Page >= 1 {
		c.currentPage = page.Page
		c.query.Page = page.Page
	}
	c.errMsg = ""
	c.selection.Reset(c.ids())
	return nil
}

// changeQuery applies update and fetches when the query actually changed.
func (c *Controller) changeQuery(ctx context.Context, update func(q *model.Query)) error {
	c.mu.Lock()
	before := c.query
	update(&c.query)
	if c.query == before {
		c.mu.Unlock()
		return nil
	}
	seq, q := c.beginFetch()
	c.mu.Unlock()

	return c.runFetch(ctx, seq, q)
}

// SetSearch changes the search text.
func (c *Controller) SetSearch(ctx context.Context, search string) error {
	return c.changeQuery(ctx, func(q *model.Query) { q.Search = search })
}

// SetStatusFilter changes the completion filter.
func (c *Controller) SetStatusFilter(ctx context.Context, f model.StatusFilter) error {
	return c.changeQuery(ctx, func(q *model.Query) { q.Status = f })
}

// CycleStatusFilter moves to the next status filter.
func (c *Controller) CycleStatusFilter(ctx context.Context) error {
	return c.changeQuery(ctx, func(q *model.Query) { q.Status = q.Status.Next() })
}

// SetPriorityFilter changes the priority filter.
func (c *Controller) SetPriorityFilter(ctx context.Context, f model.PriorityFilter) error {
	return c.changeQuery(ctx, func(q *model.Query) { q.Priority = f })
}

// CyclePriorityFilter moves to the next priority filter.
func (c *Controller) CyclePriorityFilter(ctx context.Context) error {
	return c.changeQuery(ctx, func(q *model.Query) { q.Priority = q.Priority.Next() })
}

// SetSort changes the priority sort.
func (c *Controller) SetSort(ctx context.Context, s model.SortOrder) error {
	return c.changeQuery(ctx, func(q *model.Query) { q.Sort = s })
}

// CycleSort advances none -> ascending -> descending -> none.
func (c *Controller) CycleSort(ctx context.Context) error {
	return c.changeQuery(ctx, func(q *model.Query) { q.Sort = q.Sort.Next() })
}

// ClearFilters drops the search text, both filters and the sort in one
// fetch. Page and page size are kept.
func (c *Controller) ClearFilters(ctx context.Context) error {
	return c.changeQuery(ctx, func(q *model.Query) {
		q.Search = ""
		q.Status = model.StatusAll
		q.Priority = model.PriorityFilterAll
		q.Sort = model.SortNone
	})
}

// SetPage jumps to page n (at least 1).
func (c *Controller) SetPage(ctx context.Context, n int) error {
	return c.changeQuery(ctx, func(q *model.Query) { q.Page = max(n, 1) })
}

// NextPage always requests the following page; the server reports where
// the list actually ends.
func (c *Controller) NextPage(ctx context.Context) error {
	return c.changeQuery(ctx, func(q *model.Query) { q.Page++ })
}

// PrevPage requests the previous page, never going below 1.
func (c *Controller) PrevPage(ctx context.Context) error {
	return c.changeQuery(ctx, func(q *model.Query) { q.Page = max(q.Page-1, 1) })
}

// SetPageSize changes how many todos a page holds.
func (c *Controller) SetPageSize(ctx context.Context, n int) error {
	if n < 1 {
		return fmt.Errorf("%w: page size must be positive", ErrValidation)
	}
	return c.changeQuery(ctx, func(q *model.Query) { q.PageSize = n })
}

// --- selection ---

// Select adds or removes id from the bulk selection.
func (c *Controller) Select(id int, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.Select(id, on)
}

// ToggleSelected flips id's selection.
func (c *Controller) ToggleSelected(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.Select(id, !c.selection.IsSelected(id))
}

// SelectAll selects every displayed todo, or none.
func (c *Controller) SelectAll(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.SelectAll(on)
}

// --- mutations ---

// ClearValidationError dismisses the create form's validation message.
func (c *Controller) ClearValidationError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.validationErr = ""
}

// Create posts a new todo from d. An empty title sets the validation error
// and sends nothing.
func (c *Controller) Create(ctx context.Context, d Draft) (model.Todo, error) {
	if err := d.Validate(); err != nil {
		c.mu.Lock()
		c.validationErr = MsgTitleRequired
		c.mu.Unlock()
		return model.Todo{}, err
	}

	c.mu.Lock()
	c.validationErr = ""
	c.mu.Unlock()

	created, err := c.api.CreateTodo(ctx, d.NewTodo())
	if err != nil {
		c.log.Error("creating todo", "err", err)
		c.notifier.Notify(notify.KindError, MsgAddFailed)
		return model.Todo{}, fmt.Errorf("creating todo: %w", err)
	}

	c.notifier.Notify(notify.KindSuccess, MsgAdded)
	if c.refetch {
		c.refetchAfter(ctx, "create")
		return created, nil
	}

	c.mu.Lock()
	c.todos = append(c.todos, created)
	c.selection.Add(created.ID)
	c.mu.Unlock()
	return created, nil
}

// put sends the full record and swaps the server's version into the list.
func (c *Controller) put(ctx context.Context, t model.Todo) (model.Todo, error) {
	updated, err := c.api.UpdateTodo(ctx, t)
	if err != nil {
		return model.Todo{}, err
	}

	c.mu.Lock()
	if i := c.indexOf(updated.ID); i >= 0 {
		c.todos[i] = updated
	}
	c.mu.Unlock()
	return updated, nil
}

func (c *Controller) lookup(id int) (model.Todo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return model.Todo{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return c.todos[i], nil
}

// ToggleComplete flips the completed flag of a displayed todo.
func (c *Controller) ToggleComplete(ctx context.Context, id int) (model.Todo, error) {
	t, err := c.lookup(id)
	if err != nil {
		return model.Todo{}, err
	}
	t.Completed = !t.Completed

	updated, err := c.put(ctx, t)
	if err != nil {
		c.log.Error("toggling todo", "id", id, "err", err)
		c.notifier.Notify(notify.KindError, MsgUpdateFailed)
		return model.Todo{}, fmt.Errorf("toggling todo %d: %w", id, err)
	}
	return updated, nil
}

// EditTitle renames a displayed todo in place, keeping its other fields.
func (c *Controller) EditTitle(ctx context.Context, id int, title string) (model.Todo, error) {
	if strings.TrimSpace(title) == "" {
		return model.Todo{}, fmt.Errorf("%w: %s", ErrValidation, MsgTitleRequired)
	}
	t, err := c.lookup(id)
	if err != nil {
		return model.Todo{}, err
	}
	t.Title = strings.TrimSpace(title)

	updated, err := c.put(ctx, t)
	if err != nil {
		c.log.Error("renaming todo", "id", id, "err", err)
		c.notifier.Notify(notify.KindError, MsgUpdateFailed)
		return model.Todo{}, fmt.Errorf("renaming todo %d: %w", id, err)
	}
	return updated, nil
}

// Update applies d to a displayed todo.
func (c *Controller) Update(ctx context.Context, id int, d Draft) (model.Todo, error) {
	if err := d.Validate(); err != nil {
		return model.Todo{}, err
	}
	t, err := c.lookup(id)
	if err != nil {
		return model.Todo{}, err
	}

	updated, err := c.put(ctx, d.ApplyTo(t))
	if err != nil {
		c.log.Error("updating todo", "id", id, "err", err)
		c.notifier.Notify(notify.KindError, MsgUpdateFailed)
		return model.Todo{}, fmt.Errorf("updating todo %d: %w", id, err)
	}
	c.notifier.Notify(notify.KindSuccess, MsgUpdated)
	return updated, nil
}

// Delete removes a todo.
func (c *Controller) Delete(ctx context.Context, id int) error {
	if err := c.api.DeleteTodo(ctx, id); err != nil {
		c.log.Error("deleting todo", "id", id, "err", err)
		c.notifier.Notify(notify.KindError, MsgDeleteFailed)
		return fmt.Errorf("deleting todo %d: %w", id, err)
	}

	c.mu.Lock()
	if i := c.indexOf(id); i >= 0 {
		c.todos = slices.Delete(c.todos, i, i+1)
	}
	c.selection.Remove(id)
	c.mu.Unlock()

	c.notifier.Notify(notify.KindSuccess, MsgDeleted)
	return nil
}

// Reorder moves the todo at index from to index to, shows the new order
// right away and then sends it. A failed request is reported but the local
// order is kept.
func (c *Controller) Reorder(ctx context.Context, from, to int) error {
	c.mu.Lock()
	if c.query.Sort != model.SortNone {
		c.mu.Unlock()
		return ErrReorderDisabled
	}
	moved, err := Move(c.todos, from, to)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.todos = moved
	ids := c.ids()
	c.mu.Unlock()

	if _, err := c.api.ReorderTodos(ctx, ids); err != nil {
		c.log.Error("reordering todos", "ids", ids, "err", err)
		c.notifier.Notify(notify.KindError, MsgReorderFailed)
		return fmt.Errorf("reordering todos: %w", err)
	}
	return nil
}

// Bulk applies action to the selected todos.
func (c *Controller) Bulk(ctx context.Context, action model.BulkAction) error {
	c.mu.Lock()
	ids := c.selection.IDs()
	c.mu.Unlock()

	if len(ids) == 0 {
		c.notifier.Notify(notify.KindWarning, MsgSelectOne)
		return ErrEmptySelection
	}

	if _, err := c.api.BulkUpdate(ctx, ids, action); err != nil {
		c.log.Error("bulk action", "action", action, "ids", ids, "err", err)
		c.notifier.Notify(notify.KindError, MsgBulkFailed)
		return fmt.Errorf("bulk %s: %w", action, err)
	}

	c.mu.Lock()
	switch action {
	case model.BulkDelete:
		c.todos = slices.DeleteFunc(c.todos, func(t model.Todo) bool {
			return slices.Contains(ids, t.ID)
		})
		for _, id := range ids {
			c.selection.Remove(id)
		}
	default:
		done := action == model.BulkComplete
		for i := range c.todos {
			if slices.Contains(ids, c.todos[i].ID) {
				c.todos[i].Completed = done
			}
		}
	}
	c.selection.Clear()
	c.mu.Unlock()

	if action == model.BulkDelete {
		c.notifier.Notify(notify.KindSuccess, fmt.Sprintf(msgBulkDeletedFmt, len(ids)))
	} else {
		c.notifier.Notify(notify.KindSuccess, fmt.Sprintf(msgBulkUpdatedFmt, len(ids)))
	}

	if c.refetch {
		c.refetchAfter(ctx, "bulk")
	}
	return nil
}

// refetchAfter reloads the page once a mutation has been saved. A failed
// reload is kept in the error state like any fetch; the mutation itself
// still succeeded.
func (c *Controller) refetchAfter(ctx context.Context, op string) {
	if err := c.Fetch(ctx); err != nil {
		c.log.Warn("refetch after mutation failed", "op", op, "err", err)
	}
}

// --- edit panel ---

// StartEdit opens the editor on a displayed todo.
func (c *Controller) StartEdit(id int) (Editor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return Editor{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	c.editor = &Editor{ID: id, Draft: DraftFrom(c.todos[i])}
	return *c.editor, nil
}

// Editor returns the open editor, if any.
func (c *Controller) Editor() (Editor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editor == nil {
		return Editor{}, false
	}
	return *c.editor, true
}

// EditDraft changes the open editor's draft through fn.
func (c *Controller) EditDraft(fn func(d *Draft) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editor == nil {
		return ErrNoEditor
	}
	d := c.editor.Draft
	if err := fn(&d); err != nil {
		return err
	}
	c.editor.Draft = d
	return nil
}

// CancelEdit closes the editor without saving.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editor = nil
}

// SaveEdit sends the open draft. On success the editor closes; on failure
// it stays open with the draft intact.
func (c *Controller) SaveEdit(ctx context.Context) (model.Todo, error) {
	ed, ok := c.Editor()
	if !ok {
		return model.Todo{}, ErrNoEditor
	}

	updated, err := c.Update(ctx, ed.ID, ed.Draft)
	if err != nil {
		return model.Todo{}, err
	}

	c.mu.Lock()
	if c.editor != nil && c.editor.ID == ed.ID {
		c.editor = nil
	}
	c.mu.Unlock()
	return updated, nil
}
