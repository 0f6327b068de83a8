package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/todoctl/internal/model"
)

func TestDueDay(t *testing.T) {
	full := "2030-01-02T15:04:05"
	assert.Equal(t, "2030-01-02", model.Todo{DueDate: &full}.DueDay())
	assert.Empty(t, model.Todo{}.DueDay())
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2030, 1, 10, 9, 0, 0, 0, time.UTC)
	past := "2030-01-09"
	today := "2030-01-10"

	assert.True(t, model.Todo{DueDate: &past}.IsOverdue(now))
	assert.False(t, model.Todo{DueDate: &today}.IsOverdue(now))
	assert.False(t, model.Todo{DueDate: &past, Completed: true}.IsOverdue(now))
	assert.False(t, model.Todo{}.IsOverdue(now))
}

func TestPriorityString(t *testing.T) {
	assert.Equal(t, "High", model.PriorityHigh.String())
	assert.Equal(t, "Low", model.PriorityLow.String())
	assert.False(t, model.Priority(3).Valid())
}
