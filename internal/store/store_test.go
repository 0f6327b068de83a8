package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todoctl/internal/credential"
	"github.com/nhle/todoctl/internal/model"
	"github.com/nhle/todoctl/internal/store"
	"github.com/nhle/todoctl/tests/testutil"
)

func strPtr(s string) *string { return &s }

func newUser(t *testing.T, s *store.SQLiteStore, email string) model.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), email, "hash")
	require.NoError(t, err)
	return u
}

func TestMigrationsApplied(t *testing.T) {
	s := testutil.NewTestStore(t)

	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestSessionStoreRoundTrip(t *testing.T) {
	sessions := testutil.NewTestStore(t).Sessions()

	sess, err := sessions.Load()
	require.NoError(t, err)
	assert.False(t, sess.Complete())

	user := model.User{ID: 7, Email: "a@example.com", IsActive: true, CreatedAt: "2025-01-01T00:00:00"}
	require.NoError(t, sessions.Save("tok-1", user))

	token, err := sessions.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	sess, err = sessions.Load()
	require.NoError(t, err)
	require.True(t, sess.Complete())
	assert.Equal(t, user, *sess.User)

	// Saving again overwrites both entries.
	user.Email = "b@example.com"
	require.NoError(t, sessions.Save("tok-2", user))
	sess, err = sessions.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-2", sess.Token)
	assert.Equal(t, "b@example.com", sess.User.Email)

	require.NoError(t, sessions.Clear())
	require.NoError(t, sessions.Clear())

	sess, err = sessions.Load()
	require.NoError(t, err)
	assert.Empty(t, sess.Token)
	assert.Nil(t, sess.User)
}

var _ credential.Store = (*store.SessionStore)(nil)

func TestUsersAndTokens(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	u := newUser(t, s, "a@example.com")
	assert.True(t, u.IsActive)
	assert.NotEmpty(t, u.CreatedAt)

	_, err := s.CreateUser(ctx, "a@example.com", "other")
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)

	got, hash, err := s.UserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", hash)

	_, _, err = s.UserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	token, err := s.IssueToken(ctx, u.ID, time.Hour)
	require.NoError(t, err)
	owner, err := s.UserByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.Email, owner.Email)

	expired, err := s.IssueToken(ctx, u.ID, -time.Hour)
	require.NoError(t, err)
	_, err = s.UserByToken(ctx, expired)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.RevokeTokens(ctx, u.ID))
	_, err = s.UserByToken(ctx, token)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateTodoAppendsPosition(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	u := newUser(t, s, "a@example.com")

	first, err := s.CreateTodo(ctx, u.ID, model.NewTodo{Title: "one", Priority: model.PriorityMedium})
	require.NoError(t, err)
	second, err := s.CreateTodo(ctx, u.ID, model.NewTodo{Title: "two", DueDate: strPtr("2025-03-01")})
	require.NoError(t, err)

	assert.Equal(t, 0, first.Position)
	assert.Equal(t, 1, second.Position)
	assert.Nil(t, first.DueDate)
	require.NotNil(t, second.DueDate)
	assert.Equal(t, "2025-03-01", *second.DueDate)

	_, err = s.CreateTodo(ctx, u.ID, model.NewTodo{Title: "   "})
	assert.Error(t, err)
}

func TestUpdateAndDeleteTodo(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	u := newUser(t, s, "a@example.com")
	other := newUser(t, s, "b@example.com")

	todo, err := s.CreateTodo(ctx, u.ID, model.NewTodo{Title: "draft"})
	require.NoError(t, err)

	todo.Title = "final"
	todo.Completed = true
	todo.Priority = model.PriorityHigh
	updated, err := s.UpdateTodo(ctx, u.ID, todo)
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Title)
	assert.True(t, updated.Completed)
	assert.Equal(t, model.PriorityHigh, updated.Priority)

	_, err = s.UpdateTodo(ctx, other.ID, todo)
	assert.ErrorIs(t, err, store.ErrNotFound)

	deleted, err := s.DeleteTodo(ctx, u.ID, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", deleted.Title)

	_, err = s.GetTodo(ctx, u.ID, todo.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListTodosFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	u := newUser(t, s, "a@example.com")

	seed := []model.NewTodo{
		{Title: "buy milk", Priority: model.PriorityLow},
		{Title: "write report", Priority: model.PriorityHigh, Completed: true},
		{Title: "buy bread", Priority: model.PriorityMedium},
		{Title: "call mom", Priority: model.PriorityHigh},
	}
	for _, in := range seed {
		_, err := s.CreateTodo(ctx, u.ID, in)
		require.NoError(t, err)
	}

	page, err := s.ListTodos(ctx, u.ID, store.TodoFilter{Page: 1, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 3)
	assert.Equal(t, "buy milk", page.Data[0].Title)

	page, err = s.ListTodos(ctx, u.ID, store.TodoFilter{Page: 2, Limit: 3})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "call mom", page.Data[0].Title)

	page, err = s.ListTodos(ctx, u.ID, store.TodoFilter{Search: "buy", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	done := true
	page, err = s.ListTodos(ctx, u.ID, store.TodoFilter{Completed: &done, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "write report", page.Data[0].Title)

	high := model.PriorityHigh
	page, err = s.ListTodos(ctx, u.ID, store.TodoFilter{Priority: &high, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)

	page, err = s.ListTodos(ctx, u.ID, store.TodoFilter{Sort: model.SortDescending, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Data, 4)
	assert.Equal(t, model.PriorityLow, page.Data[0].Priority)
	assert.Equal(t, model.PriorityHigh, page.Data[3].Priority)

	empty, err := s.ListTodos(ctx, newUser(t, s, "c@example.com").ID, store.TodoFilter{})
	require.NoError(t, err)
	assert.Empty(t, empty.Data)
	assert.Equal(t, 0, empty.TotalPages)
}

func TestReorderTodosReassignsPositionsAmongTargets(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	u := newUser(t, s, "a@example.com")

	var ids []int
	for _, title := range []string{"a", "b", "c", "d"} {
		todo, err := s.CreateTodo(ctx, u.ID, model.NewTodo{Title: title})
		require.NoError(t, err)
		ids = append(ids, todo.ID)
	}

	// Reverse b and c only; a and d keep their positions.
	require.NoError(t, s.ReorderTodos(ctx, u.ID, []int{ids[2], ids[1]}))

	page, err := s.ListTodos(ctx, u.ID, store.TodoFilter{Limit: 10})
	require.NoError(t, err)
	var titles []string
	for _, todo := range page.Data {
		titles = append(titles, todo.Title)
	}
	assert.Equal(t, []string{"a", "c", "b", "d"}, titles)

	err = s.ReorderTodos(ctx, u.ID, []int{ids[0], 9999})
	assert.ErrorIs(t, err, store.ErrMissingTodos)
}

func TestBulkUpdate(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	u := newUser(t, s, "a@example.com")

	var ids []int
	for _, title := range []string{"a", "b", "c"} {
		todo, err := s.CreateTodo(ctx, u.ID, model.NewTodo{Title: title})
		require.NoError(t, err)
		ids = append(ids, todo.ID)
	}

	updated, err := s.BulkUpdate(ctx, u.ID, ids[:2], model.BulkComplete)
	require.NoError(t, err)
	require.Len(t, updated, 2)
	for _, todo := range updated {
		assert.True(t, todo.Completed)
	}

	deleted, err := s.BulkUpdate(ctx, u.ID, []int{ids[0], ids[2]}, model.BulkDelete)
	require.NoError(t, err)
	assert.Len(t, deleted, 2)

	page, err := s.ListTodos(ctx, u.ID, store.TodoFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, ids[1], page.Data[0].ID)

	_, err = s.BulkUpdate(ctx, u.ID, []int{9999}, model.BulkIncomplete)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
