package todolist

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/99designs/keyring"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todoctl/internal/api"
	"github.com/nhle/todoctl/internal/credential"
	"github.com/nhle/todoctl/internal/keys"
	"github.com/nhle/todoctl/internal/model"
	"github.com/nhle/todoctl/internal/todos"
	"github.com/nhle/todoctl/tests/testutil"
)

func newList(t *testing.T, titles ...string) (Model, *todos.Controller) {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	user, token := fake.SeedUser(t, "dev@example.com", "secret1")
	fake.SeedTodos(t, user.ID, titles...)

	creds := credential.NewKeyringStore(keyring.NewArrayKeyring(nil))
	require.NoError(t, creds.Save(token, user))
	ctrl := todos.New(api.NewClient(fake.URL, creds))

	m := New(context.Background(), ctrl, keys.DefaultKeyMap(), 80, 24)
	m = settle(t, m, m.Init())
	return m, ctrl
}

// settle runs cmd and feeds a resulting ChangedMsg back into m.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	msg := cmd()
	if _, ok := msg.(ChangedMsg); ok {
		m, _ = m.Update(msg)
	}
	return m
}

func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	m, cmd := m.Update(msg)
	if m.Typing() {
		// Input focus and blink commands; nothing to apply.
		return m
	}
	return settle(t, m, cmd)
}

func cursorTitle(t *testing.T, m Model) string {
	t.Helper()
	td, ok := m.SelectedTodo()
	require.True(t, ok)
	return td.Title
}

func TestInitLoadsFirstPage(t *testing.T) {
	m, _ := newList(t, "a", "b", "c")

	assert.Equal(t, "a", cursorTitle(t, m))
	assert.Contains(t, m.View(), "Page 1 of 1")
}

func TestSelectAndToggleUnderCursor(t *testing.T) {
	m, ctrl := newList(t, "a", "b")

	m = press(t, m, "j")
	require.Equal(t, "b", cursorTitle(t, m))

	m = press(t, m, " ")
	cur, _ := m.SelectedTodo()
	assert.True(t, ctrl.Snapshot().IsSelected(cur.ID))
	assert.True(t, m.selected[cur.ID])

	m = press(t, m, "x")
	cur, _ = m.SelectedTodo()
	assert.True(t, cur.Completed)
	assert.Equal(t, "b", cur.Title)
}

func TestSelectAllTwiceClears(t *testing.T) {
	m, ctrl := newList(t, "a", "b")

	m = press(t, m, "a")
	assert.True(t, ctrl.Snapshot().AllSelected)
	m = press(t, m, "a")
	assert.Empty(t, ctrl.Snapshot().Selected)
	assert.Empty(t, m.selected)
}

func TestMoveDownReorders(t *testing.T) {
	m, ctrl := newList(t, "a", "b", "c")

	m = press(t, m, "J")
	assert.Equal(t, "a", cursorTitle(t, m))

	var got []string
	for _, td := range ctrl.Todos() {
		got = append(got, td.Title)
	}
	assert.Equal(t, []string{"b", "a", "c"}, got)
}

func TestMoveWhileSortedShowsHint(t *testing.T) {
	m, ctrl := newList(t, "a", "b")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = settle(t, m, cmd)
	require.Equal(t, model.SortAscending, ctrl.Query().Sort)

	m = press(t, m, "J")
	assert.Contains(t, m.View(), "Reordering is off")
}

func TestSearchModeAppliesOnEnter(t *testing.T) {
	m, ctrl := newList(t, "milk", "bread")

	m = press(t, m, "/")
	require.True(t, m.Typing())
	m = press(t, m, "bre")
	m = press(t, m, "enter")

	assert.False(t, m.Typing())
	assert.Equal(t, "bre", ctrl.Query().Search)
	assert.Equal(t, "bread", cursorTitle(t, m))
}

func TestRenameRejectsEmptyTitle(t *testing.T) {
	m, ctrl := newList(t, "a")

	m = press(t, m, "R")
	require.True(t, m.Typing())
	m.renameInput.SetValue("   ")
	m = press(t, m, "enter")

	assert.Contains(t, m.View(), todos.MsgTitleRequired)
	assert.Equal(t, "a", ctrl.Todos()[0].Title)
}

func TestOpenEmitsOpenMsg(t *testing.T) {
	m, _ := newList(t, "a")
	cur, _ := m.SelectedTodo()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, OpenMsg{ID: cur.ID}, cmd())
}

func TestLocalProblem(t *testing.T) {
	assert.Equal(t, "Reordering is off while sorting by priority.", localProblem(todos.ErrReorderDisabled))
	assert.Equal(t, todos.MsgTitleRequired, localProblem(todos.NewDraft().Validate()))
	assert.Empty(t, localProblem(errors.New("boom")))
	assert.Empty(t, localProblem(nil))
}

func TestRenderRow(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	due := "2025-03-01"
	td := model.Todo{ID: 7, Title: "pay rent", Priority: model.PriorityHigh, DueDate: &due}

	d := ItemDelegate{selected: map[int]bool{}, now: func() time.Time { return now }}
	row := d.renderRow(td, false)
	assert.Contains(t, row, "[ ]")
	assert.Contains(t, row, "○")
	assert.Contains(t, row, "H")
	assert.Contains(t, row, "pay rent")
	assert.Contains(t, row, "2025-03-01")
	assert.Contains(t, row, "OVERDUE")

	d.selected[7] = true
	td.Completed = true
	row = d.renderRow(td, true)
	assert.Contains(t, row, "[x]")
	assert.Contains(t, row, "✓")
	assert.False(t, strings.Contains(row, "OVERDUE"))
}
