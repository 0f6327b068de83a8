package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todoctl/internal/model"
)

func TestDefaultQueryValues(t *testing.T) {
	v := model.DefaultQuery(0).Values()
	assert.Equal(t, "1", v.Get("page"))
	assert.Equal(t, "10", v.Get("limit"))
	for _, key := range []string{"search", "status", "priority", "sort_by"} {
		assert.False(t, v.Has(key), key)
	}
}

func TestQueryValues(t *testing.T) {
	q := model.Query{
		Search:   "  milk ",
		Status:   model.StatusIncomplete,
		Priority: model.PriorityFilterLow,
		Sort:     model.SortDescending,
		Page:     3,
		PageSize: 25,
	}
	v := q.Values()
	assert.Equal(t, "3", v.Get("page"))
	assert.Equal(t, "25", v.Get("limit"))
	assert.Equal(t, "milk", v.Get("search"))
	assert.Equal(t, "incomplete", v.Get("status"))
	assert.Equal(t, "2", v.Get("priority"))
	assert.Equal(t, "desc", v.Get("sort_by"))
}

func TestCycles(t *testing.T) {
	assert.Equal(t, model.SortAscending, model.SortNone.Next())
	assert.Equal(t, model.SortDescending, model.SortAscending.Next())
	assert.Equal(t, model.SortNone, model.SortDescending.Next())

	assert.Equal(t, model.StatusCompleted, model.StatusAll.Next())
	assert.Equal(t, model.StatusIncomplete, model.StatusCompleted.Next())
	assert.Equal(t, model.StatusAll, model.StatusIncomplete.Next())

	assert.Equal(t, model.PriorityFilterHigh, model.PriorityFilterAll.Next())
	assert.Equal(t, model.PriorityFilterAll, model.PriorityFilterLow.Next())
}

func TestParseFilters(t *testing.T) {
	s, err := model.ParseSortOrder("Ascending")
	require.NoError(t, err)
	assert.Equal(t, model.SortAscending, s)
	_, err = model.ParseSortOrder("title")
	assert.Error(t, err)

	st, err := model.ParseStatusFilter("")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAll, st)

	pf, err := model.ParsePriorityFilter("HIGH")
	require.NoError(t, err)
	assert.Equal(t, model.PriorityFilterHigh, pf)

	p, err := model.ParsePriority("2")
	require.NoError(t, err)
	assert.Equal(t, model.PriorityLow, p)

	_, err = model.ParseBulkAction("archive")
	assert.Error(t, err)
}
