package rules

import (
	"github.com/louisbranch/rulesheet/internal/core/tag"
	apperrors "github.com/louisbranch/rulesheet/internal/platform/errors"
)

// Context is the full state of a ruleset. It is not safe for concurrent
// mutation; readers may evaluate concurrently while nothing writes.
type Context struct {
	tags         *tag.Set
	attributes   *AttributeSet
	modifiers    *ModifierSet
	equations    *EquationSet
	conditionals *ConditionalSet
	limits       Limits
}

// Option configures a Context.
type Option func(*Context)

// WithLimits overrides DefaultLimits.
func WithLimits(l Limits) Option {
	return func(c *Context) {
		c.limits = l.normalized()
	}
}

// NewContext returns an empty Context.
func NewContext(opts ...Option) *Context {
	c := &Context{
		tags:         tag.NewSet(),
		attributes:   NewAttributeSet(),
		modifiers:    NewModifierSet(),
		equations:    NewEquationSet(),
		conditionals: NewConditionalSet(),
		limits:       DefaultLimits(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Context) StateTags() *tag.Set           { return c.tags }
func (c *Context) Attributes() *AttributeSet     { return c.attributes }
func (c *Context) Modifiers() *ModifierSet       { return c.modifiers }
func (c *Context) Equations() *EquationSet       { return c.equations }
func (c *Context) Conditionals() *ConditionalSet { return c.conditionals }
func (c *Context) Limits() Limits                { return c.limits }

// Clone returns a deep copy sharing only immutable formula trees.
func (c *Context) Clone() *Context {
	return &Context{
		tags:         c.tags.Clone(),
		attributes:   c.attributes.Clone(),
		modifiers:    c.modifiers.Clone(),
		equations:    c.equations.Clone(),
		conditionals: c.conditionals.Clone(),
		limits:       c.limits,
	}
}

func (c *Context) AddStateTag(t tag.Tag) {
	c.tags.Add(t)
}

// RemoveStateTag removes one occurrence of t and returns how many were
// removed.
func (c *Context) RemoveStateTag(t tag.Tag) int {
	return c.tags.Remove(t)
}

func (c *Context) InsertAttribute(a Attribute) {
	c.attributes.Insert(a)
}

func (c *Context) RemoveAttribute(name tag.Tag) (Attribute, bool) {
	return c.attributes.Remove(name)
}

func (c *Context) InsertModifier(m Modifier) {
	c.modifiers.Insert(m)
}

func (c *Context) RemoveModifier(name tag.Tag) (Modifier, bool) {
	return c.modifiers.Remove(name)
}

func (c *Context) InsertEquation(eq *Equation) {
	c.equations.Insert(eq)
}

func (c *Context) RemoveEquation(name tag.Tag) (*Equation, bool) {
	return c.equations.Remove(name)
}

func (c *Context) InsertConditional(cond *Conditional) {
	c.conditionals.Insert(cond)
}

func (c *Context) RemoveConditional(name tag.Tag) (*Conditional, bool) {
	return c.conditionals.Remove(name)
}

// ModifiersFor returns the modifiers targeting t in name order.
func (c *Context) ModifiersFor(t tag.Tag) []Modifier {
	return c.modifiers.For(t)
}

// GetValue returns the attribute t plus every active modifier targeting it.
// An attribute that was never inserted has base value 0.
func (c *Context) GetValue(t tag.Tag) (float32, error) {
	return c.evaluator().value(t)
}

// EvalEquation evaluates the equation named t.
func (c *Context) EvalEquation(t tag.Tag) (float32, error) {
	return c.evaluator().equation(t)
}

// EvalConditional evaluates the conditional named t.
func (c *Context) EvalConditional(t tag.Tag) (bool, error) {
	return c.evaluator().conditional(t)
}

// ModifierValue returns what the modifier named t currently adds to its
// target: its change when the condition holds, otherwise 0.
func (c *Context) ModifierValue(t tag.Tag) (float32, error) {
	m, ok := c.modifiers.Get(t)
	if !ok {
		return 0, apperrors.DoesNotExist(KindModifier.String(), t.String())
	}
	return c.evaluator().modifier(m)
}

// Compare evaluates cond against two attribute sets exposed as "lhs.*" and
// "rhs.*", layered over the rest of the context.
func (c *Context) Compare(cond *Conditional, lhs, rhs *AttributeSet) (bool, error) {
	scratch := c.Clone()
	scratch.attributes.Merge(lhs.WithPrefix(lhsPrefix))
	scratch.attributes.Merge(rhs.WithPrefix(rhsPrefix))
	return cond.tree.EvalBool(scratch.evaluator())
}

var (
	lhsPrefix = tag.MustParse("lhs")
	rhsPrefix = tag.MustParse("rhs")
)
