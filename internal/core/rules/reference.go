package rules

import (
	"encoding/json"
	"strings"

	"github.com/louisbranch/rulesheet/internal/core/formula"
	"github.com/louisbranch/rulesheet/internal/core/tag"
	apperrors "github.com/louisbranch/rulesheet/internal/platform/errors"
	"github.com/louisbranch/rulesheet/internal/platform/jsonwire"
)

// Kind names the kind of entry a Reference addresses.
type Kind int

const (
	KindTag Kind = iota + 1
	KindAttribute
	KindCondition
	KindModifier
	KindEquation
	KindValue
)

var kindNames = map[Kind]string{
	KindTag:       "tag",
	KindAttribute: "attribute",
	KindCondition: "condition",
	KindModifier:  "modifier",
	KindEquation:  "equation",
	KindValue:     "value",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind maps a kind name to its Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Reference addresses one entry of a Context, written "kind:path" as in
// "equation:attack.bonus".
type Reference struct {
	Kind Kind
	Path tag.Tag
}

// ParseReference parses the "kind:path" form.
func ParseReference(s string) (Reference, error) {
	kindText, path, ok := strings.Cut(s, ":")
	if !ok {
		return Reference{}, apperrors.WithMetadata(apperrors.CodeTagParse,
			"reference "+s+" is missing a kind", map[string]string{apperrors.MetaTag: s})
	}
	kind, ok := ParseKind(strings.TrimSpace(kindText))
	if !ok {
		return Reference{}, apperrors.WithMetadata(apperrors.CodeTagParse,
			"unknown reference kind "+kindText, map[string]string{apperrors.MetaKind: kindText})
	}
	t, err := tag.Parse(path)
	if err != nil {
		return Reference{}, apperrors.WrapWithMetadata(apperrors.CodeTagParse,
			"reference path: "+err.Error(), map[string]string{apperrors.MetaTag: path}, err)
	}
	return Reference{Kind: kind, Path: t}, nil
}

func (r Reference) String() string {
	return r.Kind.String() + ":" + r.Path.String()
}

func (r Reference) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Reference) UnmarshalText(text []byte) error {
	parsed, err := ParseReference(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Reference) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Reference) UnmarshalJSON(data []byte) error {
	s, err := jsonwire.String(data, "reference")
	if err != nil {
		return err
	}
	parsed, err := ParseReference(s)
	if err != nil {
		out := apperrors.MalformedJSON("", err.Error())
		out.Cause = err
		return out
	}
	*r = parsed
	return nil
}

// Result is the outcome of evaluating a Reference: a number or a boolean.
type Result struct {
	Kind   formula.Kind
	Number float32
	Bool   bool
}

// Evaluate resolves ref. Tags and conditions produce booleans; attributes
// report their base value; modifiers report their current contribution;
// equations and values produce numbers.
func (c *Context) Evaluate(ref Reference) (Result, error) {
	num := func(v float32, err error) (Result, error) {
		return Result{Kind: formula.KindNumber, Number: v}, err
	}
	switch ref.Kind {
	case KindTag:
		return Result{Kind: formula.KindBool, Bool: c.tags.Has(ref.Path)}, nil
	case KindAttribute:
		a, ok := c.attributes.Get(ref.Path)
		if !ok {
			return Result{}, apperrors.DoesNotExist(ref.Kind.String(), ref.Path.String())
		}
		return num(a.Value, nil)
	case KindCondition:
		v, err := c.EvalConditional(ref.Path)
		return Result{Kind: formula.KindBool, Bool: v}, err
	case KindModifier:
		return num(c.ModifierValue(ref.Path))
	case KindEquation:
		return num(c.EvalEquation(ref.Path))
	case KindValue:
		return num(c.GetValue(ref.Path))
	}
	return Result{}, apperrors.InvalidState("unknown reference kind")
}

// Exists reports whether ref addresses something present. A value exists
// when an attribute, modifier target or equation carries its name.
func (c *Context) Exists(ref Reference) bool {
	switch ref.Kind {
	case KindTag:
		return c.tags.Has(ref.Path)
	case KindAttribute:
		_, ok := c.attributes.Get(ref.Path)
		return ok
	case KindCondition:
		_, ok := c.conditionals.Get(ref.Path)
		return ok
	case KindModifier:
		_, ok := c.modifiers.Get(ref.Path)
		return ok
	case KindEquation:
		_, ok := c.equations.Get(ref.Path)
		return ok
	case KindValue:
		_, ok := c.equations.Get(ref.Path)
		return ok || c.evaluator().hasValue(ref.Path)
	}
	return false
}

// Remove deletes the entry ref addresses. Values are derived and cannot be
// removed.
func (c *Context) Remove(ref Reference) error {
	var ok bool
	switch ref.Kind {
	case KindTag:
		ok = c.tags.Remove(ref.Path) > 0
	case KindAttribute:
		_, ok = c.attributes.Remove(ref.Path)
	case KindCondition:
		_, ok = c.conditionals.Remove(ref.Path)
	case KindModifier:
		_, ok = c.modifiers.Remove(ref.Path)
	case KindEquation:
		_, ok = c.equations.Remove(ref.Path)
	case KindValue:
		return apperrors.InvalidState("value " + ref.Path.String() + " is derived and cannot be removed")
	default:
		return apperrors.InvalidState("unknown reference kind")
	}
	if !ok {
		return apperrors.DoesNotExist(ref.Kind.String(), ref.Path.String())
	}
	return nil
}
