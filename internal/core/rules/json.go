package rules

import (
	"encoding/json"
	"iter"

	"github.com/louisbranch/rulesheet/internal/core/tag"
	apperrors "github.com/louisbranch/rulesheet/internal/platform/errors"
	"github.com/louisbranch/rulesheet/internal/platform/jsonwire"
)

type attributeJSON struct {
	Name  tag.Tag `json:"name"`
	Value float32 `json:"value"`
}

type equationJSON struct {
	Name     tag.Tag `json:"name"`
	Equation string  `json:"equation"`
}

type conditionalJSON struct {
	Tag         tag.Tag `json:"tag"`
	Conditional string  `json:"conditional"`
}

type changeJSON struct {
	BasicValue     *float32 `json:"basic_value,omitempty"`
	FromOtherValue *tag.Tag `json:"from_other_value,omitempty"`
}

type modifierJSON struct {
	Name      tag.Tag    `json:"name"`
	Target    tag.Tag    `json:"target"`
	Condition tag.Tag    `json:"condition"`
	Change    changeJSON `json:"change"`
}

type contextJSON struct {
	StateTags  *tag.Set        `json:"state_tags"`
	Attributes *AttributeSet   `json:"attributes"`
	Modifiers  *ModifierSet    `json:"modifiers"`
	Equations  *EquationSet    `json:"equations"`
	Conditions *ConditionalSet `json:"conditions"`
}

func (a Attribute) MarshalJSON() ([]byte, error) {
	return json.Marshal(attributeJSON{Name: a.Name, Value: a.Value})
}

func (a *Attribute) UnmarshalJSON(data []byte) error {
	m, err := member(data, "attribute", "name", "value")
	if err != nil {
		return err
	}
	name, err := tagMember(m, "name")
	if err != nil {
		return err
	}
	v, err := m.Value("value")
	if err != nil {
		return err
	}
	value, err := jsonwire.Float32Of("value", v)
	if err != nil {
		return err
	}
	*a = Attribute{Name: name, Value: value}
	return nil
}

func (e *Equation) MarshalJSON() ([]byte, error) {
	return json.Marshal(equationJSON{Name: e.Name, Equation: e.Source()})
}

func (e *Equation) UnmarshalJSON(data []byte) error {
	m, err := member(data, "equation", "name", "equation")
	if err != nil {
		return err
	}
	name, err := tagMember(m, "name")
	if err != nil {
		return err
	}
	src, err := m.String("equation")
	if err != nil {
		return err
	}
	eq, err := NewEquation(name, src)
	if err != nil {
		return invalidMember("equation", err)
	}
	*e = *eq
	return nil
}

func (c *Conditional) MarshalJSON() ([]byte, error) {
	return json.Marshal(conditionalJSON{Tag: c.Name, Conditional: c.Source()})
}

func (c *Conditional) UnmarshalJSON(data []byte) error {
	m, err := member(data, "conditional", "tag", "conditional")
	if err != nil {
		return err
	}
	name, err := tagMember(m, "tag")
	if err != nil {
		return err
	}
	src, err := m.String("conditional")
	if err != nil {
		return err
	}
	cond, err := NewConditional(name, src)
	if err != nil {
		return invalidMember("conditional", err)
	}
	*c = *cond
	return nil
}

func (m Modifier) MarshalJSON() ([]byte, error) {
	out := modifierJSON{Name: m.Name, Target: m.Target, Condition: m.Condition}
	switch ch := m.Change.(type) {
	case BasicValue:
		out.Change.BasicValue = &ch.Value
	case FromOtherValue:
		out.Change.FromOtherValue = &ch.Source
	default:
		return nil, apperrors.InvalidState("modifier " + m.Name.String() + " has no change")
	}
	return json.Marshal(out)
}

func (m *Modifier) UnmarshalJSON(data []byte) error {
	members, err := member(data, "modifier", "name", "target", "condition", "change")
	if err != nil {
		return err
	}
	var out Modifier
	tags := []struct {
		key string
		dst *tag.Tag
	}{
		{"name", &out.Name},
		{"target", &out.Target},
		{"condition", &out.Condition},
	}
	for _, f := range tags {
		if *f.dst, err = tagMember(members, f.key); err != nil {
			return err
		}
	}
	raw, err := members.Raw("change")
	if err != nil {
		return err
	}
	if out.Change, err = unmarshalChange(raw); err != nil {
		return jsonwire.Within("change", err)
	}
	*m = out
	return nil
}

func unmarshalChange(data []byte) (Change, error) {
	m, err := member(data, "change", "basic_value", "from_other_value")
	if err != nil {
		return nil, err
	}
	switch {
	case len(m) != 1:
		return nil, apperrors.MalformedJSON("", "change: expected exactly one of basic_value, from_other_value")
	case m.Has("basic_value"):
		v, _ := m.Value("basic_value")
		n, err := jsonwire.Float32Of("basic_value", v)
		if err != nil {
			return nil, err
		}
		return BasicValue{Value: n}, nil
	default:
		t, err := tagMember(m, "from_other_value")
		if err != nil {
			return nil, err
		}
		return FromOtherValue{Source: t}, nil
	}
}

func (s *AttributeSet) MarshalJSON() ([]byte, error) {
	return marshalSeq(s.All())
}

func (s *AttributeSet) UnmarshalJSON(data []byte) error {
	out := NewAttributeSet()
	err := unmarshalSet(data, "attributes", decodeValue[Attribute], func(a Attribute) tag.Tag { return a.Name }, out.Insert)
	if err != nil {
		return err
	}
	*s = *out
	return nil
}

func (s *EquationSet) MarshalJSON() ([]byte, error) {
	return marshalSeq(s.All())
}

func (s *EquationSet) UnmarshalJSON(data []byte) error {
	out := NewEquationSet()
	err := unmarshalSet(data, "equations", decodePtr[Equation], func(e *Equation) tag.Tag { return e.Name }, out.Insert)
	if err != nil {
		return err
	}
	*s = *out
	return nil
}

func (s *ConditionalSet) MarshalJSON() ([]byte, error) {
	return marshalSeq(s.All())
}

func (s *ConditionalSet) UnmarshalJSON(data []byte) error {
	out := NewConditionalSet()
	err := unmarshalSet(data, "conditions", decodePtr[Conditional], func(c *Conditional) tag.Tag { return c.Name }, out.Insert)
	if err != nil {
		return err
	}
	*s = *out
	return nil
}

func (s *ModifierSet) MarshalJSON() ([]byte, error) {
	return marshalSeq(s.All())
}

func (s *ModifierSet) UnmarshalJSON(data []byte) error {
	out := NewModifierSet()
	err := unmarshalSet(data, "modifiers", decodeValue[Modifier], func(m Modifier) tag.Tag { return m.Name }, out.Insert)
	if err != nil {
		return err
	}
	*s = *out
	return nil
}

func (c *Context) MarshalJSON() ([]byte, error) {
	return json.Marshal(contextJSON{
		StateTags:  c.tags,
		Attributes: c.attributes,
		Modifiers:  c.modifiers,
		Equations:  c.equations,
		Conditions: c.conditionals,
	})
}

// UnmarshalJSON replaces the context contents. Limits are kept.
func (c *Context) UnmarshalJSON(data []byte) error {
	m, err := member(data, "context", "state_tags", "attributes", "modifiers", "equations", "conditions")
	if err != nil {
		return err
	}
	limits := c.limits
	if limits.MaxDepth == 0 {
		limits = DefaultLimits()
	}
	out := NewContext(WithLimits(limits))
	fields := []struct {
		key string
		dst json.Unmarshaler
	}{
		{"state_tags", out.tags},
		{"attributes", out.attributes},
		{"modifiers", out.modifiers},
		{"equations", out.equations},
		{"conditions", out.conditionals},
	}
	for _, f := range fields {
		raw, err := m.Raw(f.key)
		if err != nil {
			return err
		}
		if err := f.dst.UnmarshalJSON(raw); err != nil {
			return jsonwire.Within(f.key, err)
		}
	}
	*c = *out
	return nil
}

// member validates data as an object holding exactly the allowed keys.
func member(data []byte, what string, keys ...string) (jsonwire.Members, error) {
	m, err := jsonwire.Object(data, what)
	if err != nil {
		return nil, err
	}
	if err := m.Only(keys...); err != nil {
		return nil, err
	}
	return m, nil
}

func tagMember(m jsonwire.Members, key string) (tag.Tag, error) {
	s, err := m.String(key)
	if err != nil {
		return tag.Tag{}, err
	}
	t, err := tag.Parse(s)
	if err != nil {
		return tag.Tag{}, invalidMember(key, err)
	}
	return t, nil
}

func invalidMember(key string, err error) error {
	out := apperrors.MalformedJSON(key, err.Error())
	out.Cause = err
	return out
}

func marshalSeq[V any](seq iter.Seq2[tag.Tag, V]) ([]byte, error) {
	out := []V{}
	for _, v := range seq {
		out = append(out, v)
	}
	return json.Marshal(out)
}

// unmarshalSet decodes a JSON array element by element, rejecting two
// entries with the same name.
func unmarshalSet[V any](data []byte, what string, decode func([]byte) (V, error), name func(V) tag.Tag, insert func(V)) error {
	elems, err := jsonwire.Array(data, what)
	if err != nil {
		return err
	}
	seen := make(map[tag.Tag]struct{}, len(elems))
	for i, elem := range elems {
		v, err := decode([]byte(elem.Raw))
		if err != nil {
			return jsonwire.Within(jsonwire.Index(i), err)
		}
		n := name(v)
		if _, dup := seen[n]; dup {
			return apperrors.MalformedJSON(jsonwire.Index(i), "duplicate entry "+n.String())
		}
		seen[n] = struct{}{}
		insert(v)
	}
	return nil
}

func decodeValue[V any, P interface {
	*V
	json.Unmarshaler
}](data []byte) (V, error) {
	var v V
	err := P(&v).UnmarshalJSON(data)
	return v, err
}

func decodePtr[V any, P interface {
	*V
	json.Unmarshaler
}](data []byte) (P, error) {
	p := P(new(V))
	if err := p.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return p, nil
}
