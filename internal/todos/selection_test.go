package todos_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/todoctl/internal/todos"
)

func TestSelectionIgnoresHiddenIDs(t *testing.T) {
	s := todos.NewSelection([]int{1, 2, 3})

	s.Select(2, true)
	s.Select(42, true)
	assert.Equal(t, []int{2}, s.IDs())
	assert.False(t, s.IsSelected(42))

	s.Select(2, false)
	assert.Zero(t, s.Len())
}

func TestSelectionSelectAll(t *testing.T) {
	s := todos.NewSelection([]int{3, 1, 2})
	assert.False(t, s.AllSelected())

	s.SelectAll(true)
	assert.True(t, s.AllSelected())
	assert.Equal(t, []int{1, 2, 3}, s.IDs())

	s.SelectAll(false)
	assert.Zero(t, s.Len())
	assert.False(t, s.AllSelected())
}

func TestSelectionEmptyPageIsNeverAllSelected(t *testing.T) {
	s := todos.NewSelection(nil)
	s.SelectAll(true)
	assert.False(t, s.AllSelected())
}

func TestSelectionRemoveAndAdd(t *testing.T) {
	s := todos.NewSelection([]int{1, 2})
	s.SelectAll(true)

	s.Remove(1)
	assert.Equal(t, []int{2}, s.IDs())
	assert.True(t, s.AllSelected())

	s.Add(5)
	assert.False(t, s.AllSelected())
	s.Select(5, true)
	assert.Equal(t, []int{2, 5}, s.IDs())

	s.Clear()
	assert.Zero(t, s.Len())
	s.Select(5, true)
	assert.True(t, s.IsSelected(5))
}

func TestSelectionReset(t *testing.T) {
	s := todos.NewSelection([]int{1, 2})
	s.Select(1, true)

	s.Reset([]int{7, 8})
	assert.Zero(t, s.Len())
	s.Select(1, true)
	assert.Zero(t, s.Len())
	s.Select(8, true)
	assert.Equal(t, []int{8}, s.IDs())
}
