package todos

import "sort"

// Selection tracks the ids chosen for a bulk action. It only ever holds
// ids of the todos currently displayed. Not safe for concurrent use; the
// controller guards it.
type Selection struct {
	displayed map[int]struct{}
	selected  map[int]struct{}
}

// NewSelection returns an empty tracker over the displayed ids.
func NewSelection(displayed []int) *Selection {
	s := &Selection{}
	s.Reset(displayed)
	return s
}

// Reset replaces the displayed ids and empties the selection.
func (s *Selection) Reset(displayed []int) {
	s.displayed = make(map[int]struct{}, len(displayed))
	for _, id := range displayed {
		s.displayed[id] = struct{}{}
	}
	s.selected = make(map[int]struct{})
}

// Select adds or removes id. Ids that are not displayed are ignored.
func (s *Selection) Select(id int, on bool) {
	if _, ok := s.displayed[id]; !ok {
		return
	}
	if on {
		s.selected[id] = struct{}{}
	} else {
		delete(s.selected, id)
	}
}

// SelectAll selects every displayed id, or clears the selection.
func (s *Selection) SelectAll(on bool) {
	s.selected = make(map[int]struct{}, len(s.displayed))
	if !on {
		return
	}
	for id := range s.displayed {
		s.selected[id] = struct{}{}
	}
}

// Remove forgets id entirely, e.g. after it was deleted.
func (s *Selection) Remove(id int) {
	delete(s.displayed, id)
	delete(s.selected, id)
}

// Add makes id selectable, e.g. after it was created on this page.
func (s *Selection) Add(id int) {
	s.displayed[id] = struct{}{}
}

// Clear empties the selection and keeps the displayed ids.
func (s *Selection) Clear() {
	s.selected = make(map[int]struct{})
}

// IsSelected reports whether id is selected.
func (s *Selection) IsSelected(id int) bool {
	_, ok := s.selected[id]
	return ok
}

// Len is the number of selected ids.
func (s *Selection) Len() int { return len(s.selected) }

// AllSelected is the select-all checkbox state: every displayed todo is
// selected and there is at least one.
func (s *Selection) AllSelected() bool {
	return len(s.displayed) > 0 && len(s.selected) == len(s.displayed)
}

// IDs returns the selected ids in ascending order.
func (s *Selection) IDs() []int {
	ids := make([]int, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
