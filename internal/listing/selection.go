package listing

import "sort"

// Selection is the set of IDs picked for a bulk action. The zero value is
// an empty selection ready to use.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection returns a selection holding ids. Empty IDs are skipped.
func NewSelection(ids ...string) *Selection {
	s := &Selection{ids: make(map[string]struct{}, len(ids))}
	s.Select(ids...)
	return s
}

func (s *Selection) init() {
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
}

// Toggle flips id and reports whether it is now selected.
func (s *Selection) Toggle(id string) bool {
	s.init()
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	if id == "" {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *Selection) Select(ids ...string) {
	s.init()
	for _, id := range ids {
		if id == "" {
			continue
		}
		s.ids[id] = struct{}{}
	}
}

func (s *Selection) Deselect(ids ...string) {
	for _, id := range ids {
		delete(s.ids, id)
	}
}

// SelectAll selects every id in visible, or clears them all when every one
// is already selected.
func (s *Selection) SelectAll(visible []string) {
	for _, id := range visible {
		if !s.Has(id) {
			s.Select(visible...)
			return
		}
	}
	s.Deselect(visible...)
}

func (s *Selection) Clear() {
	s.ids = make(map[string]struct{})
}

func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int {
	return len(s.ids)
}

func (s *Selection) Empty() bool {
	return len(s.ids) == 0
}

// IDs returns the selected IDs in sorted order.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
