package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/nhle/todoctl/internal/model"
)

// ErrMissingTodos is returned by ReorderTodos when some ids do not belong
// to the user.
var ErrMissingTodos = errors.New("some todos not found")

// TodoFilter selects a page of a user's todos.
type TodoFilter struct {
	Search    string
	Completed *bool
	Priority  *model.Priority
	Sort      model.SortOrder
	Page      int
	Limit     int
}

type todoRow struct {
	ID          int            `db:"id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Completed   bool           `db:"completed"`
	Position    int            `db:"position"`
	Priority    int            `db:"priority"`
	DueDate     sql.NullString `db:"due_date"`
}

func (r todoRow) todo() model.Todo {
	t := model.Todo{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
		Position:    r.Position,
		Priority:    model.Priority(r.Priority),
	}
	if r.DueDate.Valid {
		d := r.DueDate.String
		t.DueDate = &d
	}
	return t
}

var todoColumns = []string{
	"id", "title", "description", "completed", "position", "priority", "due_date",
}

func nullableDate(d *string) any {
	if d == nil || strings.TrimSpace(*d) == "" {
		return nil
	}
	return strings.TrimSpace(*d)
}

// CreateTodo inserts a todo at the end of the user's manual order.
func (s *SQLiteStore) CreateTodo(ctx context.Context, userID int, in model.NewTodo) (model.Todo, error) {
	if strings.TrimSpace(in.Title) == "" {
		return model.Todo{}, fmt.Errorf("todo title must not be empty")
	}

	var maxPos sql.NullInt64
	if err := s.db.GetContext(ctx, &maxPos,
		"SELECT MAX(position) FROM todos WHERE user_id = ?", userID); err != nil {
		return model.Todo{}, fmt.Errorf("reading max position: %w", err)
	}
	position := 0
	if maxPos.Valid {
		position = int(maxPos.Int64) + 1
	}

	now := time.Now().UTC()
	query, args, err := builder.
		Insert("todos").
		Columns("user_id", "title", "description", "completed", "position", "priority", "due_date", "created_at", "updated_at").
		Values(userID, in.Title, in.Description, boolToInt(in.Completed), position, int(in.Priority), nullableDate(in.DueDate), now, now).
		ToSql()
	if err != nil {
		return model.Todo{}, fmt.Errorf("building todo insert: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return model.Todo{}, fmt.Errorf("creating todo: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Todo{}, fmt.Errorf("reading todo id: %w", err)
	}

	return s.GetTodo(ctx, userID, int(id))
}

// GetTodo retrieves a single todo owned by userID.
func (s *SQLiteStore) GetTodo(ctx context.Context, userID, id int) (model.Todo, error) {
	query, args, err := builder.
		Select(todoColumns...).
		From("todos").
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return model.Todo{}, fmt.Errorf("building todo query: %w", err)
	}

	var row todoRow
	err = s.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Todo{}, fmt.Errorf("todo %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Todo{}, fmt.Errorf("getting todo %d: %w", id, err)
	}
	return row.todo(), nil
}

// UpdateTodo overwrites every editable field of a todo. Position is left
// alone; only ReorderTodos moves todos.
func (s *SQLiteStore) UpdateTodo(ctx context.Context, userID int, t model.Todo) (model.Todo, error) {
	if strings.TrimSpace(t.Title) == "" {
		return model.Todo{}, fmt.Errorf("todo title must not be empty")
	}

	update := builder.
		Update("todos").
		Set("title", t.Title).
		Set("description", t.Description).
		Set("completed", boolToInt(t.Completed)).
		Set("priority", int(t.Priority)).
		Set("due_date", nullableDate(t.DueDate)).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": t.ID, "user_id": userID})

	query, args, err := update.ToSql()
	if err != nil {
		return model.Todo{}, fmt.Errorf("building todo update: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return model.Todo{}, fmt.Errorf("updating todo %d: %w", t.ID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return model.Todo{}, fmt.Errorf("todo %d: %w", t.ID, ErrNotFound)
	}

	return s.GetTodo(ctx, userID, t.ID)
}

// DeleteTodo removes a todo and returns its last state.
func (s *SQLiteStore) DeleteTodo(ctx context.Context, userID, id int) (model.Todo, error) {
	existing, err := s.GetTodo(ctx, userID, id)
	if err != nil {
		return model.Todo{}, err
	}

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM todos WHERE id = ? AND user_id = ?", id, userID); err != nil {
		return model.Todo{}, fmt.Errorf("deleting todo %d: %w", id, err)
	}
	return existing, nil
}

// ListTodos returns one page of the user's todos. Results are ordered by
// priority when a sort is requested, otherwise by position then id.
func (s *SQLiteStore) ListTodos(ctx context.Context, userID int, f TodoFilter) (model.TodoPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = model.DefaultPageSize
	}

	where := sq.And{sq.Eq{"user_id": userID}}
	if q := strings.TrimSpace(f.Search); q != "" {
		like := "%" + q + "%"
		where = append(where, sq.Or{
			sq.Like{"title": like},
			sq.Like{"description": like},
		})
	}
	if f.Completed != nil {
		where = append(where, sq.Eq{"completed": boolToInt(*f.Completed)})
	}
	if f.Priority != nil {
		where = append(where, sq.Eq{"priority": int(*f.Priority)})
	}

	countQuery, countArgs, err := builder.Select("COUNT(*)").From("todos").Where(where).ToSql()
	if err != nil {
		return model.TodoPage{}, fmt.Errorf("building todo count: %w", err)
	}
	var total int
	if err := s.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return model.TodoPage{}, fmt.Errorf("counting todos: %w", err)
	}

	sel := builder.Select(todoColumns...).From("todos").Where(where)
	switch f.Sort {
	case model.SortAscending:
		sel = sel.OrderBy("priority ASC", "position", "id")
	case model.SortDescending:
		sel = sel.OrderBy("priority DESC", "position", "id")
	default:
		sel = sel.OrderBy("position", "id")
	}
	sel = sel.Limit(uint64(f.Limit)).Offset(uint64((f.Page - 1) * f.Limit))

	query, args, err := sel.ToSql()
	if err != nil {
		return model.TodoPage{}, fmt.Errorf("building todo list: %w", err)
	}

	var rows []todoRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return model.TodoPage{}, fmt.Errorf("querying todos: %w", err)
	}

	page := model.TodoPage{
		Data:       make([]model.Todo, 0, len(rows)),
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: (total + f.Limit - 1) / f.Limit,
	}
	for _, r := range rows {
		page.Data = append(page.Data, r.todo())
	}
	return page, nil
}

// ReorderTodos assigns the positions currently held by ids, taken in
// position order, to ids in the given order. Todos outside ids keep their
// positions.
func (s *SQLiteStore) ReorderTodos(ctx context.Context, userID int, ids []int) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query, args, err := builder.
		Select("position").
		From("todos").
		Where(sq.Eq{"user_id": userID, "id": ids}).
		OrderBy("position", "id").
		ToSql()
	if err != nil {
		return fmt.Errorf("building reorder query: %w", err)
	}

	var positions []int
	if err := tx.SelectContext(ctx, &positions, query, args...); err != nil {
		return fmt.Errorf("reading positions: %w", err)
	}
	if len(positions) != len(ids) {
		return ErrMissingTodos
	}

	for i, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"UPDATE todos SET position = ? WHERE id = ? AND user_id = ?",
			positions[i], id, userID,
		); err != nil {
			return fmt.Errorf("updating position of todo %d: %w", id, err)
		}
	}

	return tx.Commit()
}

// BulkUpdate applies action to the user's todos among ids. It returns the
// affected todos as they were before a delete, or after a completion
// change. ErrNotFound is returned when none of the ids match.
func (s *SQLiteStore) BulkUpdate(ctx context.Context, userID int, ids []int, action model.BulkAction) ([]model.Todo, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	where := sq.Eq{"user_id": userID, "id": ids}

	var stmt sq.Sqlizer
	switch action {
	case model.BulkDelete:
		stmt = builder.Delete("todos").Where(where)
	case model.BulkComplete, model.BulkIncomplete:
		stmt = builder.Update("todos").
			Set("completed", boolToInt(action == model.BulkComplete)).
			Set("updated_at", time.Now().UTC()).
			Where(where)
	default:
		return nil, fmt.Errorf("unknown bulk action %q", action)
	}

	selQuery, selArgs, err := builder.Select(todoColumns...).From("todos").Where(where).OrderBy("position", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building bulk select: %w", err)
	}
	var rows []todoRow
	if err := tx.SelectContext(ctx, &rows, selQuery, selArgs...); err != nil {
		return nil, fmt.Errorf("querying bulk targets: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("bulk %s: %w", action, ErrNotFound)
	}

	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building bulk %s: %w", action, err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("applying bulk %s: %w", action, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing bulk %s: %w", action, err)
	}

	out := make([]model.Todo, 0, len(rows))
	for _, r := range rows {
		t := r.todo()
		if action != model.BulkDelete {
			t.Completed = action == model.BulkComplete
		}
		out = append(out, t)
	}
	return out, nil
}
