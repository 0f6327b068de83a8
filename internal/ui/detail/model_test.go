package detail

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todoctl/internal/keys"
	"github.com/nhle/todoctl/internal/model"
)

func TestRenderMarkdown(t *testing.T) {
	assert.Empty(t, renderMarkdown("   \n", 60))

	out := renderMarkdown("# Groceries\n\n- milk\n- bread", 60)
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "milk")
	assert.Contains(t, out, "bread")
}

func TestViewShowsTodo(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 30)
	m.SetTodo(&model.Todo{ID: 3, Title: "Pay rent", Description: "before **friday**", Priority: model.PriorityHigh})

	view := m.View()
	assert.Contains(t, view, "Pay rent")
	assert.Contains(t, view, "Open")
	assert.Contains(t, view, "High")
	assert.Contains(t, view, "friday")
	assert.Equal(t, 3, m.TodoID())
}

func TestViewWithoutTodo(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 30)
	m.SetTodo(nil)

	assert.Contains(t, m.View(), "no longer on the current page")
	assert.Zero(t, m.TodoID())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Nil(t, cmd)
}

func TestKeysEmitActions(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 30)
	m.SetTodo(&model.Todo{ID: 9, Title: "a"})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	require.NotNil(t, cmd)
	assert.Equal(t, ActionMsg{Action: ActionToggle, ID: 9}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	require.NotNil(t, cmd)
	assert.Equal(t, ActionMsg{Action: ActionDelete, ID: 9}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, BackMsg{}, cmd())
}
