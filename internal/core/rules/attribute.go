package rules

import (
	"iter"
	"maps"
	"slices"

	"github.com/louisbranch/rulesheet/internal/core/tag"
)

// Attribute is a named base number.
type Attribute struct {
	Name  tag.Tag
	Value float32
}

// AttributeSet maps names to attributes.
type AttributeSet struct {
	items map[tag.Tag]Attribute
}

// NewAttributeSet returns a set holding attrs; later duplicates win.
func NewAttributeSet(attrs ...Attribute) *AttributeSet {
	s := &AttributeSet{items: make(map[tag.Tag]Attribute, len(attrs))}
	for _, a := range attrs {
		s.Insert(a)
	}
	return s
}

// Insert stores a, replacing any attribute with the same name.
func (s *AttributeSet) Insert(a Attribute) {
	if s.items == nil {
		s.items = map[tag.Tag]Attribute{}
	}
	s.items[a.Name] = a
}

// Remove deletes the attribute named name and returns it.
func (s *AttributeSet) Remove(name tag.Tag) (Attribute, bool) {
	a, ok := s.items[name]
	delete(s.items, name)
	return a, ok
}

func (s *AttributeSet) Get(name tag.Tag) (Attribute, bool) {
	a, ok := s.items[name]
	return a, ok
}

func (s *AttributeSet) Len() int {
	return len(s.items)
}

// All yields attributes in name order.
func (s *AttributeSet) All() iter.Seq2[tag.Tag, Attribute] {
	return sortedSeq(s.items)
}

// WithPrefix returns a copy whose names are prefixed with prefix, so that
// "day" becomes "lhs.day" for prefix "lhs".
func (s *AttributeSet) WithPrefix(prefix tag.Tag) *AttributeSet {
	out := &AttributeSet{items: make(map[tag.Tag]Attribute, len(s.items))}
	for name, a := range s.items {
		a.Name = name.AddPrefix(prefix)
		out.items[a.Name] = a
	}
	return out
}

// Merge copies every attribute of other into s.
func (s *AttributeSet) Merge(other *AttributeSet) {
	for _, a := range other.items {
		s.Insert(a)
	}
}

func (s *AttributeSet) Clone() *AttributeSet {
	return &AttributeSet{items: maps.Clone(s.items)}
}

// sortedSeq iterates m in tag order.
func sortedSeq[V any](m map[tag.Tag]V) iter.Seq2[tag.Tag, V] {
	return func(yield func(tag.Tag, V) bool) {
		for _, k := range sortedKeys(m) {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}

func sortedKeys[V any](m map[tag.Tag]V) []tag.Tag {
	keys := slices.Collect(maps.Keys(m))
	slices.SortFunc(keys, tag.Compare)
	return keys
}
