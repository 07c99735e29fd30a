package tag

import (
	"slices"
)

// Set is a multiset of tags that also counts every prefix of each member:
// adding "a.b.c" increments "a", "a.b" and "a.b.c". A tag is present when its
// count is positive.
//
// Counts never go below zero. Removing more copies of a tag than were added
// removes only the copies that exist, and a tag whose count reaches zero is
// dropped. The zero value is ready to use.
type Set struct {
	counts  map[Tag]int
	primary map[Tag]int
}

// NewSet returns a set holding one copy of each tag.
func NewSet(tags ...Tag) *Set {
	s := &Set{}
	for _, t := range tags {
		s.Add(t)
	}
	return s
}

// Add inserts one copy of t.
func (s *Set) Add(t Tag) {
	s.AddCount(t, 1)
}

// AddCount inserts n copies of t. Non-positive n is a no-op.
func (s *Set) AddCount(t Tag, n int) {
	if n <= 0 || t.IsZero() {
		return
	}
	if s.counts == nil {
		s.counts = map[Tag]int{}
		s.primary = map[Tag]int{}
	}
	s.primary[t] += n
	for _, p := range t.Prefixes() {
		s.counts[p] += n
	}
}

// Remove removes one copy of t and reports how many were removed.
func (s *Set) Remove(t Tag) int {
	return s.RemoveCount(t, 1)
}

// RemoveCount removes up to n copies of t as added through Add/AddCount and
// returns the number actually removed.
func (s *Set) RemoveCount(t Tag, n int) int {
	have := s.primary[t]
	n = min(n, have)
	if n <= 0 {
		return 0
	}
	if have == n {
		delete(s.primary, t)
	} else {
		s.primary[t] = have - n
	}
	for _, p := range t.Prefixes() {
		if c := s.counts[p] - n; c > 0 {
			s.counts[p] = c
		} else {
			delete(s.counts, p)
		}
	}
	return n
}

// Count returns how many members equal t or live underneath it.
func (s *Set) Count(t Tag) int {
	return s.counts[t]
}

// Has reports whether t or any tag underneath it is present.
func (s *Set) Has(t Tag) bool {
	return s.counts[t] > 0
}

// PrimaryCount returns how many copies of exactly t were added.
func (s *Set) PrimaryCount(t Tag) int {
	return s.primary[t]
}

// Primary returns the tags as added, sorted.
func (s *Set) Primary() []Tag {
	out := make([]Tag, 0, len(s.primary))
	for t := range s.primary {
		out = append(out, t)
	}
	slices.SortFunc(out, Compare)
	return out
}

// Len returns the number of distinct primary tags.
func (s *Set) Len() int {
	return len(s.primary)
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	out := &Set{}
	for t, n := range s.primary {
		out.AddCount(t, n)
	}
	return out
}
