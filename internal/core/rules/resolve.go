package rules

import (
	"github.com/louisbranch/rulesheet/internal/core/formula"
	"github.com/louisbranch/rulesheet/internal/core/tag"
	apperrors "github.com/louisbranch/rulesheet/internal/platform/errors"
)

// frame identifies one entry being resolved.
type frame struct {
	kind Kind
	tag  tag.Tag
}

// evaluator resolves tags against a Context for a single top-level call. It
// tracks the chain of entries in progress to report cycles and runaway
// nesting.
type evaluator struct {
	ctx   *Context
	stack []frame
}

var _ formula.Resolver = (*evaluator)(nil)

func (c *Context) evaluator() *evaluator {
	return &evaluator{ctx: c}
}

func (e *evaluator) enter(kind Kind, t tag.Tag) error {
	for _, f := range e.stack {
		if f == (frame{kind, t}) {
			return apperrors.CyclicReference(t.String(), e.chain(t))
		}
	}
	if len(e.stack) >= e.ctx.limits.MaxDepth {
		return apperrors.DepthExceeded(t.String(), e.ctx.limits.MaxDepth)
	}
	e.stack = append(e.stack, frame{kind, t})
	return nil
}

func (e *evaluator) leave() {
	e.stack = e.stack[:len(e.stack)-1]
}

func (e *evaluator) chain(last tag.Tag) []string {
	out := make([]string, 0, len(e.stack)+1)
	for _, f := range e.stack {
		out = append(out, f.tag.String())
	}
	return append(out, last.String())
}

// value is the permissive base-plus-modifiers lookup. The base is the
// attribute, else the equation of the same name, else 0.
func (e *evaluator) value(t tag.Tag) (float32, error) {
	if err := e.enter(KindValue, t); err != nil {
		return 0, err
	}
	defer e.leave()

	var total float32
	if a, ok := e.ctx.attributes.Get(t); ok {
		total = a.Value
	} else if _, ok := e.ctx.equations.Get(t); ok {
		v, err := e.equation(t)
		if err != nil {
			return 0, err
		}
		total = v
	}
	for _, m := range e.ctx.modifiers.For(t) {
		v, err := e.modifier(m)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

func (e *evaluator) modifier(m Modifier) (float32, error) {
	active, err := e.conditional(m.Condition)
	if err != nil || !active {
		return 0, err
	}
	switch ch := m.Change.(type) {
	case BasicValue:
		return ch.Value, nil
	case FromOtherValue:
		return e.value(ch.Source)
	}
	return 0, apperrors.InvalidState("modifier " + m.Name.String() + " has no change")
}

func (e *evaluator) equation(t tag.Tag) (float32, error) {
	eq, ok := e.ctx.equations.Get(t)
	if !ok {
		return 0, apperrors.DoesNotExist(KindEquation.String(), t.String())
	}
	if err := e.enter(KindEquation, t); err != nil {
		return 0, err
	}
	defer e.leave()
	return eq.tree.EvalNum(e)
}

func (e *evaluator) conditional(t tag.Tag) (bool, error) {
	cond, ok := e.ctx.conditionals.Get(t)
	if !ok {
		return false, apperrors.DoesNotExist(KindCondition.String(), t.String())
	}
	if err := e.enter(KindCondition, t); err != nil {
		return false, err
	}
	defer e.leave()
	return cond.tree.EvalBool(e)
}

// hasValue reports whether t names an attribute or a modifier target.
func (e *evaluator) hasValue(t tag.Tag) bool {
	_, ok := e.ctx.attributes.Get(t)
	return ok || e.ctx.modifiers.Targets(t)
}

// ResolveNum resolves a numeric formula leaf: attributes and modifier
// targets first, then equations. An equation that is also a modifier target
// is the base its modifiers add to.
func (e *evaluator) ResolveNum(t tag.Tag) (float32, error) {
	v, found, err := e.number(t)
	if err == nil && !found {
		err = apperrors.DoesNotExist(KindValue.String(), t.String())
	}
	return v, err
}

// Value is ResolveNum with missing tags read as 0.
func (e *evaluator) Value(t tag.Tag) (float32, error) {
	v, _, err := e.number(t)
	return v, err
}

func (e *evaluator) number(t tag.Tag) (float32, bool, error) {
	if e.hasValue(t) {
		v, err := e.value(t)
		return v, true, err
	}
	if _, ok := e.ctx.equations.Get(t); ok {
		v, err := e.equation(t)
		return v, true, err
	}
	if _, ok := e.ctx.conditionals.Get(t); ok {
		return 0, true, apperrors.ConflictingExpectedType(t.String(), formula.KindNumber.String(), formula.KindBool.String())
	}
	return 0, false, nil
}

// ResolveBool resolves a boolean formula leaf: conditionals first, then
// state tags. A state tag that is not set is false.
func (e *evaluator) ResolveBool(t tag.Tag) (bool, error) {
	if _, ok := e.ctx.conditionals.Get(t); ok {
		return e.conditional(t)
	}
	if _, ok := e.ctx.equations.Get(t); ok || e.hasValue(t) {
		return false, apperrors.ConflictingExpectedType(t.String(), formula.KindBool.String(), formula.KindNumber.String())
	}
	return e.ctx.tags.Has(t), nil
}
