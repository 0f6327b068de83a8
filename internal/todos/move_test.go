package todos_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todoctl/internal/todos"
)

func TestMove(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{"down one", 1, 2, []string{"a", "c", "b", "d"}},
		{"up one", 2, 1, []string{"a", "c", "b", "d"}},
		{"to end", 0, 3, []string{"b", "c", "d", "a"}},
		{"to front", 3, 0, []string{"d", "a", "b", "c"}},
		{"in place", 2, 2, []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := []string{"a", "b", "c", "d"}
			got, err := todos.Move(in, tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []string{"a", "b", "c", "d"}, in, "input must not change")
		})
	}
}

func TestMoveOutOfRange(t *testing.T) {
	for _, idx := range [][2]int{{-1, 0}, {0, -1}, {4, 0}, {0, 4}} {
		_, err := todos.Move([]int{1, 2, 3, 4}, idx[0], idx[1])
		require.ErrorIs(t, err, todos.ErrInvalidMove)
	}

	_, err := todos.Move([]int{}, 0, 0)
	require.ErrorIs(t, err, todos.ErrInvalidMove)
}
