package model

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// StatusFilter restricts the list by completion state.
type StatusFilter string

const (
	StatusAll        StatusFilter = "all"
	StatusCompleted  StatusFilter = "completed"
	StatusIncomplete StatusFilter = "incomplete"
)

// statusCycle is the order used when the status filter is toggled.
var statusCycle = []StatusFilter{StatusAll, StatusCompleted, StatusIncomplete}

// Next returns the following status filter in the cycle.
func (s StatusFilter) Next() StatusFilter {
	for i, v := range statusCycle {
		if v == s {
			return statusCycle[(i+1)%len(statusCycle)]
		}
	}
	return StatusAll
}

// ParseStatusFilter validates a status filter name.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return StatusAll, nil
	case StatusAll, StatusCompleted, StatusIncomplete:
		return f, nil
	}
	return "", fmt.Errorf("unknown status filter %q", s)
}

// PriorityFilter restricts the list to a single priority level.
type PriorityFilter string

const (
	PriorityFilterAll    PriorityFilter = "all"
	PriorityFilterHigh   PriorityFilter = "high"
	PriorityFilterMedium PriorityFilter = "medium"
	PriorityFilterLow    PriorityFilter = "low"
)

var priorityCycle = []PriorityFilter{
	PriorityFilterAll, PriorityFilterHigh, PriorityFilterMedium, PriorityFilterLow,
}

// Next returns the following priority filter in the cycle.
func (p PriorityFilter) Next() PriorityFilter {
	for i, v := range priorityCycle {
		if v == p {
			return priorityCycle[(i+1)%len(priorityCycle)]
		}
	}
	return PriorityFilterAll
}

// Priority maps the filter to the API priority value. ok is false for "all".
func (p PriorityFilter) Priority() (Priority, bool) {
	switch p {
	case PriorityFilterHigh:
		return PriorityHigh, true
	case PriorityFilterMedium:
		return PriorityMedium, true
	case PriorityFilterLow:
		return PriorityLow, true
	}
	return 0, false
}

// ParsePriorityFilter validates a priority filter name.
func ParsePriorityFilter(s string) (PriorityFilter, error) {
	switch f := PriorityFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return PriorityFilterAll, nil
	case PriorityFilterAll, PriorityFilterHigh, PriorityFilterMedium, PriorityFilterLow:
		return f, nil
	}
	return "", fmt.Errorf("unknown priority filter %q", s)
}

// SortOrder is the priority sort state. SortNone keeps the server's
// position ordering.
type SortOrder string

const (
	SortNone       SortOrder = "none"
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// Next advances the sort toggle: none -> asc -> desc -> none.
func (s SortOrder) Next() SortOrder {
	switch s {
	case SortNone:
		return SortAscending
	case SortAscending:
		return SortDescending
	default:
		return SortNone
	}
}

// Label is the display name used by the sort toggle.
func (s SortOrder) Label() string {
	switch s {
	case SortAscending:
		return "Ascending"
	case SortDescending:
		return "Descending"
	default:
		return "None"
	}
}

// ParseSortOrder validates a sort order name.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return SortNone, nil
	case "asc", "ascending":
		return SortAscending, nil
	case "desc", "descending":
		return SortDescending, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 10

// Query is the client-side state that selects which page of todos is shown.
type Query struct {
	Search   string
	Status   StatusFilter
	Priority PriorityFilter
	Sort     SortOrder
	Page     int
	PageSize int
}

// DefaultQuery returns the initial query state for a given page size.
func DefaultQuery(pageSize int) Query {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return Query{
		Status:   StatusAll,
		Priority: PriorityFilterAll,
		Sort:     SortNone,
		Page:     1,
		PageSize: pageSize,
	}
}

// Values encodes the query as GET /api/todos parameters.
// Filters at their "all"/"none" value are omitted.
func (q Query) Values() url.Values {
	v := url.Values{}
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.PageSize
	if limit < 1 {
		limit = DefaultPageSize
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	if q.Status != "" && q.Status != StatusAll {
		v.Set("status", string(q.Status))
	}
	if p, ok := q.Priority.Priority(); ok {
		v.Set("priority", strconv.Itoa(int(p)))
	}
	if q.Sort == SortAscending || q.Sort == SortDescending {
		v.Set("sort_by", string(q.Sort))
	}
	return v
}
