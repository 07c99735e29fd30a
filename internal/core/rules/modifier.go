package rules

import (
	"iter"
	"maps"
	"slices"

	"github.com/louisbranch/rulesheet/internal/core/tag"
)

// Change is the amount a modifier adds to its target: BasicValue or
// FromOtherValue.
type Change interface {
	isChange()
}

// BasicValue adds a fixed amount.
type BasicValue struct {
	Value float32
}

// FromOtherValue adds the resolved value of another tag.
type FromOtherValue struct {
	Source tag.Tag
}

func (BasicValue) isChange()     {}
func (FromOtherValue) isChange() {}

// Modifier adds Change to Target while the conditional named Condition
// holds.
type Modifier struct {
	Name      tag.Tag
	Target    tag.Tag
	Condition tag.Tag
	Change    Change
}

// ModifierSet maps names to modifiers and indexes them by target.
type ModifierSet struct {
	items    map[tag.Tag]Modifier
	byTarget map[tag.Tag]map[tag.Tag]struct{}
}

func NewModifierSet(mods ...Modifier) *ModifierSet {
	s := &ModifierSet{}
	for _, m := range mods {
		s.Insert(m)
	}
	return s
}

// Insert stores m, replacing any modifier with the same name.
func (s *ModifierSet) Insert(m Modifier) {
	if s.items == nil {
		s.items = map[tag.Tag]Modifier{}
		s.byTarget = map[tag.Tag]map[tag.Tag]struct{}{}
	}
	s.Remove(m.Name)
	s.items[m.Name] = m
	names, ok := s.byTarget[m.Target]
	if !ok {
		names = map[tag.Tag]struct{}{}
		s.byTarget[m.Target] = names
	}
	names[m.Name] = struct{}{}
}

// Remove deletes the modifier named name and drops it from the target index.
func (s *ModifierSet) Remove(name tag.Tag) (Modifier, bool) {
	m, ok := s.items[name]
	if !ok {
		return Modifier{}, false
	}
	delete(s.items, name)
	if names := s.byTarget[m.Target]; names != nil {
		delete(names, name)
		if len(names) == 0 {
			delete(s.byTarget, m.Target)
		}
	}
	return m, true
}

func (s *ModifierSet) Get(name tag.Tag) (Modifier, bool) {
	m, ok := s.items[name]
	return m, ok
}

func (s *ModifierSet) Len() int { return len(s.items) }

// Targets reports whether any modifier targets t.
func (s *ModifierSet) Targets(t tag.Tag) bool {
	return len(s.byTarget[t]) > 0
}

// For returns the modifiers targeting t in name order.
func (s *ModifierSet) For(t tag.Tag) []Modifier {
	names := s.byTarget[t]
	if len(names) == 0 {
		return nil
	}
	out := make([]Modifier, 0, len(names))
	for name := range names {
		out = append(out, s.items[name])
	}
	slices.SortFunc(out, func(a, b Modifier) int { return tag.Compare(a.Name, b.Name) })
	return out
}

// All yields modifiers in name order.
func (s *ModifierSet) All() iter.Seq2[tag.Tag, Modifier] {
	return sortedSeq(s.items)
}

func (s *ModifierSet) Clone() *ModifierSet {
	out := &ModifierSet{
		items:    maps.Clone(s.items),
		byTarget: make(map[tag.Tag]map[tag.Tag]struct{}, len(s.byTarget)),
	}
	for t, names := range s.byTarget {
		out.byTarget[t] = maps.Clone(names)
	}
	return out
}
