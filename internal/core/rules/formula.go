package rules

import (
	"iter"
	"maps"

	"github.com/louisbranch/rulesheet/internal/core/formula"
	"github.com/louisbranch/rulesheet/internal/core/tag"
	apperrors "github.com/louisbranch/rulesheet/internal/platform/errors"
)

// Equation is a named numeric formula. Its tree is parsed from Source at
// construction and never changes independently.
type Equation struct {
	Name tag.Tag
	tree *formula.Tree
}

// NewEquation parses source into an equation named name.
func NewEquation(name tag.Tag, source string) (*Equation, error) {
	tree, err := parseDefinition("equation", name, source)
	if err != nil {
		return nil, err
	}
	return &Equation{Name: name, tree: tree}, nil
}

// MustEquation is NewEquation for definitions known to be valid.
func MustEquation(name, source string) *Equation {
	eq, err := NewEquation(tag.MustParse(name), source)
	if err != nil {
		panic(err)
	}
	return eq
}

func (e *Equation) Source() string      { return e.tree.Source() }
func (e *Equation) Tree() *formula.Tree { return e.tree }
func (e *Equation) String() string      { return e.Name.String() + " = " + e.tree.Source() }

// Conditional is a named boolean formula.
type Conditional struct {
	Name tag.Tag
	tree *formula.Tree
}

// NewConditional parses source into a conditional named name.
func NewConditional(name tag.Tag, source string) (*Conditional, error) {
	tree, err := parseDefinition("conditional", name, source)
	if err != nil {
		return nil, err
	}
	return &Conditional{Name: name, tree: tree}, nil
}

// MustConditional is NewConditional for definitions known to be valid.
func MustConditional(name, source string) *Conditional {
	c, err := NewConditional(tag.MustParse(name), source)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Conditional) Source() string      { return c.tree.Source() }
func (c *Conditional) Tree() *formula.Tree { return c.tree }
func (c *Conditional) String() string      { return c.Name.String() + " = " + c.tree.Source() }

func parseDefinition(kind string, name tag.Tag, source string) (*formula.Tree, error) {
	if name.IsZero() {
		return nil, apperrors.InvalidState(kind + " name is empty")
	}
	tree, err := formula.Parse(source)
	if err != nil {
		return nil, apperrors.WrapWithMetadata(apperrors.CodeParsing,
			"parse "+kind+" "+name.String()+": "+err.Error(),
			map[string]string{apperrors.MetaKind: kind, apperrors.MetaTag: name.String()}, err)
	}
	return tree, nil
}

// EquationSet maps names to equations.
type EquationSet struct {
	items map[tag.Tag]*Equation
}

func NewEquationSet(eqs ...*Equation) *EquationSet {
	s := &EquationSet{items: make(map[tag.Tag]*Equation, len(eqs))}
	for _, eq := range eqs {
		s.Insert(eq)
	}
	return s
}

// Insert stores eq, replacing any equation with the same name.
func (s *EquationSet) Insert(eq *Equation) {
	if s.items == nil {
		s.items = map[tag.Tag]*Equation{}
	}
	s.items[eq.Name] = eq
}

func (s *EquationSet) Remove(name tag.Tag) (*Equation, bool) {
	eq, ok := s.items[name]
	delete(s.items, name)
	return eq, ok
}

func (s *EquationSet) Get(name tag.Tag) (*Equation, bool) {
	eq, ok := s.items[name]
	return eq, ok
}

func (s *EquationSet) Len() int { return len(s.items) }

// All yields equations in name order.
func (s *EquationSet) All() iter.Seq2[tag.Tag, *Equation] {
	return sortedSeq(s.items)
}

// Clone copies the set. Equations are immutable and shared.
func (s *EquationSet) Clone() *EquationSet {
	return &EquationSet{items: maps.Clone(s.items)}
}

// ConditionalSet maps names to conditionals.
type ConditionalSet struct {
	items map[tag.Tag]*Conditional
}

func NewConditionalSet(conds ...*Conditional) *ConditionalSet {
	s := &ConditionalSet{items: make(map[tag.Tag]*Conditional, len(conds))}
	for _, c := range conds {
		s.Insert(c)
	}
	return s
}

// Insert stores c, replacing any conditional with the same name.
func (s *ConditionalSet) Insert(c *Conditional) {
	if s.items == nil {
		s.items = map[tag.Tag]*Conditional{}
	}
	s.items[c.Name] = c
}

func (s *ConditionalSet) Remove(name tag.Tag) (*Conditional, bool) {
	c, ok := s.items[name]
	delete(s.items, name)
	return c, ok
}

func (s *ConditionalSet) Get(name tag.Tag) (*Conditional, bool) {
	c, ok := s.items[name]
	return c, ok
}

func (s *ConditionalSet) Len() int { return len(s.items) }

// All yields conditionals in name order.
func (s *ConditionalSet) All() iter.Seq2[tag.Tag, *Conditional] {
	return sortedSeq(s.items)
}

// Clone copies the set. Conditionals are immutable and shared.
func (s *ConditionalSet) Clone() *ConditionalSet {
	return &ConditionalSet{items: maps.Clone(s.items)}
}
