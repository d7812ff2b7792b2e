package dashboard

import (
	"sort"

	"mliang-listings/internal/domain"
)

// Selection is a set of listing ids.
type Selection struct {
	ids map[int64]struct{}
}

func NewSelection(ids ...int64) *Selection {
	s := &Selection{ids: map[int64]struct{}{}}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Toggle flips one id and reports whether it is now selected.
func (s *Selection) Toggle(id int64) bool {
	if s.ids == nil {
		s.ids = map[int64]struct{}{}
	}
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *Selection) has(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int {
	return len(s.ids)
}

func (s *Selection) Clear() {
	s.ids = map[int64]struct{}{}
}

// SelectAll replaces the selection with the ids of the filtered rows only.
func (s *Selection) SelectAll(filtered []domain.Record) {
	s.Clear()
	for _, r := range filtered {
		if id, ok := r.PropertyID(); ok {
			s.ids[id] = struct{}{}
		}
	}
}

// AllSelected reports whether every filtered row is selected.
func (s *Selection) AllSelected(filtered []domain.Record) bool {
	if len(filtered) == 0 {
		return false
	}
	for _, r := range filtered {
		id, ok := r.PropertyID()
		if !ok || !s.has(id) {
			return false
		}
	}
	return true
}

// IDs returns the selected ids in ascending order.
func (s *Selection) IDs() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
