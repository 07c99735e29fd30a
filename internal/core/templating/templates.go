package templating

import (
	"maps"
	"slices"

	"github.com/louisbranch/rulesheet/internal/core/formula"
	"github.com/louisbranch/rulesheet/internal/core/rules"
	"github.com/louisbranch/rulesheet/internal/core/tag"
	apperrors "github.com/louisbranch/rulesheet/internal/platform/errors"
)

// TagTemplate completes a single tag.
type TagTemplate struct {
	tmpl *tag.Template
}

func NewTagTemplate(s string) (*TagTemplate, error) {
	t, err := parseTag(s)
	if err != nil {
		return nil, err
	}
	return &TagTemplate{tmpl: t}, nil
}

func (t *TagTemplate) RequiredInputs() []string {
	return t.tmpl.RequiredInputs()
}

func (t *TagTemplate) MissingInputs() []string {
	return t.tmpl.MissingInputs()
}

func (t *TagTemplate) Fill(name string, value tag.Tag) (tag.Tag, bool, error) {
	out, ok, err := t.tmpl.Fill(name, value)
	return out, ok, tagError(err)
}

func (t *TagTemplate) TryComplete() (tag.Tag, bool, error) {
	out, ok, err := t.tmpl.TryComplete()
	return out, ok, tagError(err)
}

func (t *TagTemplate) String() string {
	return t.tmpl.String()
}

// FormulaTemplate completes a named formula. Placeholders may appear in the
// name and in any tag of the source; the completed source is parsed again
// so the tree always matches the text.
type FormulaTemplate[C any] struct {
	name   *tag.Template
	source *source
	build  func(tag.Tag, string) (C, error)
}

type (
	EquationTemplate    = FormulaTemplate[*rules.Equation]
	ConditionalTemplate = FormulaTemplate[*rules.Conditional]
)

// NewEquationTemplate validates an equation definition with placeholders.
func NewEquationTemplate(name, src string) (*EquationTemplate, error) {
	return newFormulaTemplate(name, src, rules.NewEquation)
}

// NewConditionalTemplate validates a conditional definition with
// placeholders.
func NewConditionalTemplate(name, src string) (*ConditionalTemplate, error) {
	return newFormulaTemplate(name, src, rules.NewConditional)
}

func newFormulaTemplate[C any](name, src string, build func(tag.Tag, string) (C, error)) (*FormulaTemplate[C], error) {
	n, err := parseTag(name)
	if err != nil {
		return nil, err
	}
	if _, err := formula.Parse(src); err != nil {
		return nil, apperrors.WrapWithMetadata(apperrors.CodeParsing, "parse template "+name+": "+err.Error(),
			map[string]string{apperrors.MetaTag: name}, err)
	}
	s, err := newSource(src)
	if err != nil {
		return nil, err
	}
	return &FormulaTemplate[C]{name: n, source: s, build: build}, nil
}

func (t *FormulaTemplate[C]) RequiredInputs() []string {
	return union(t.name.RequiredInputs(), t.source.required())
}

func (t *FormulaTemplate[C]) MissingInputs() []string {
	return union(t.name.MissingInputs(), t.source.missing())
}

func (t *FormulaTemplate[C]) Fill(name string, value tag.Tag) (C, bool, error) {
	var zero C
	if _, _, err := t.name.Fill(name, value); err != nil {
		return zero, false, tagError(err)
	}
	t.source.fill(name, value)
	if len(t.RequiredInputs()) > 0 {
		return zero, false, nil
	}
	return t.complete()
}

func (t *FormulaTemplate[C]) TryComplete() (C, bool, error) {
	if len(t.MissingInputs()) > 0 {
		var zero C
		return zero, false, nil
	}
	return t.complete()
}

func (t *FormulaTemplate[C]) complete() (C, bool, error) {
	var zero C
	name, _, err := t.name.TryComplete()
	if err != nil {
		return zero, false, tagError(err)
	}
	out, err := t.build(name, t.source.text())
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

// ModifierSource is the text of a modifier whose tags may hold
// placeholders. FromOtherValue, when set, replaces BasicValue.
type ModifierSource struct {
	Name           string
	Target         string
	Condition      string
	BasicValue     float32
	FromOtherValue string
}

// ModifierTemplate completes a modifier.
type ModifierTemplate struct {
	name, target, condition *tag.Template
	from                    *tag.Template
	basic                   float32
}

func NewModifierTemplate(src ModifierSource) (*ModifierTemplate, error) {
	t := &ModifierTemplate{basic: src.BasicValue}
	fields := []struct {
		text string
		dst  **tag.Template
	}{
		{src.Name, &t.name},
		{src.Target, &t.target},
		{src.Condition, &t.condition},
	}
	if src.FromOtherValue != "" {
		fields = append(fields, struct {
			text string
			dst  **tag.Template
		}{src.FromOtherValue, &t.from})
	}
	for _, f := range fields {
		parsed, err := parseTag(f.text)
		if err != nil {
			return nil, err
		}
		*f.dst = parsed
	}
	return t, nil
}

func (t *ModifierTemplate) parts() []*tag.Template {
	parts := []*tag.Template{t.name, t.target, t.condition}
	if t.from != nil {
		parts = append(parts, t.from)
	}
	return parts
}

func (t *ModifierTemplate) RequiredInputs() []string {
	var names [][]string
	for _, p := range t.parts() {
		names = append(names, p.RequiredInputs())
	}
	return union(names...)
}

func (t *ModifierTemplate) MissingInputs() []string {
	var names [][]string
	for _, p := range t.parts() {
		names = append(names, p.MissingInputs())
	}
	return union(names...)
}

func (t *ModifierTemplate) Fill(name string, value tag.Tag) (rules.Modifier, bool, error) {
	for _, p := range t.parts() {
		if _, _, err := p.Fill(name, value); err != nil {
			return rules.Modifier{}, false, tagError(err)
		}
	}
	if len(t.RequiredInputs()) > 0 {
		return rules.Modifier{}, false, nil
	}
	return t.complete()
}

func (t *ModifierTemplate) TryComplete() (rules.Modifier, bool, error) {
	if len(t.MissingInputs()) > 0 {
		return rules.Modifier{}, false, nil
	}
	return t.complete()
}

func (t *ModifierTemplate) complete() (rules.Modifier, bool, error) {
	tags := make([]tag.Tag, 0, 4)
	for _, p := range t.parts() {
		out, _, err := p.TryComplete()
		if err != nil {
			return rules.Modifier{}, false, tagError(err)
		}
		tags = append(tags, out)
	}
	m := rules.Modifier{Name: tags[0], Target: tags[1], Condition: tags[2], Change: rules.BasicValue{Value: t.basic}}
	if t.from != nil {
		m.Change = rules.FromOtherValue{Source: tags[3]}
	}
	return m, true, nil
}

// source is formula text with placeholders inside its tag references.
type source struct {
	raw          string
	placeholders []tag.Placeholder
	filled       map[string]string
}

func newSource(raw string) (*source, error) {
	placeholders, err := tag.ScanPlaceholders(raw)
	if err != nil {
		return nil, tagError(err)
	}
	return &source{raw: raw, placeholders: placeholders, filled: map[string]string{}}, nil
}

func (s *source) fill(name string, value tag.Tag) {
	for _, p := range s.placeholders {
		if p.Name == name {
			s.filled[name] = value.String()
			return
		}
	}
}

func (s *source) required() []string {
	var out []string
	for _, p := range s.placeholders {
		if _, ok := s.filled[p.Name]; !ok {
			out = append(out, p.Name)
		}
	}
	return union(out)
}

func (s *source) missing() []string {
	withDefault := map[string]bool{}
	for _, p := range s.placeholders {
		if p.HasDefault {
			withDefault[p.Name] = true
		}
	}
	var out []string
	for _, name := range s.required() {
		if !withDefault[name] {
			out = append(out, name)
		}
	}
	return out
}

// text substitutes filled values and, for the rest, defaults.
func (s *source) text() string {
	defaults := map[string]string{}
	for _, p := range s.placeholders {
		if _, ok := defaults[p.Name]; p.HasDefault && !ok {
			defaults[p.Name] = p.Default
		}
	}
	return tag.Substitute(s.raw, s.placeholders, func(name string) (string, bool) {
		if v, ok := s.filled[name]; ok {
			return v, true
		}
		v, ok := defaults[name]
		return v, ok
	})
}

func union(lists ...[]string) []string {
	set := map[string]struct{}{}
	for _, l := range lists {
		for _, name := range l {
			set[name] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

func parseTag(s string) (*tag.Template, error) {
	t, err := tag.ParseTemplate(s)
	if err != nil {
		return nil, apperrors.WrapWithMetadata(apperrors.CodeTagParse, "parse tag "+s+": "+err.Error(),
			map[string]string{apperrors.MetaTag: s}, err)
	}
	return t, nil
}

func tagError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.CodeTagParse, "complete template: "+err.Error(), err)
}
