package tag

import (
	"slices"
	"strings"
	"unicode"
)

// Placeholder is one "[NAME]" or "[NAME=default]" occurrence inside template
// text. Start and End are byte offsets of the brackets, End exclusive.
type Placeholder struct {
	Name       string
	Default    string
	HasDefault bool
	Start      int
	End        int
}

// ScanPlaceholders finds every placeholder in s. Names hold letters, digits
// and underscores; brackets do not nest.
func ScanPlaceholders(s string) ([]Placeholder, error) {
	var out []Placeholder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ']':
			return nil, &ParseError{Kind: KindInvalidPlaceholder, Input: s, Char: ']'}
		case '[':
			end := strings.IndexAny(s[i+1:], "[]")
			if end < 0 || s[i+1+end] != ']' {
				return nil, &ParseError{Kind: KindInvalidPlaceholder, Input: s, Char: '['}
			}
			body := s[i+1 : i+1+end]
			p := Placeholder{Start: i, End: i + end + 2}
			name, def, hasDefault := strings.Cut(body, "=")
			p.Name = strings.TrimSpace(name)
			if !validPlaceholderName(p.Name) {
				return nil, &ParseError{Kind: KindInvalidPlaceholder, Input: s, Subtag: body}
			}
			if hasDefault {
				p.Default = strings.TrimSpace(def)
				p.HasDefault = true
			}
			out = append(out, p)
			i = p.End - 1
		}
	}
	return out, nil
}

func validPlaceholderName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Substitute replaces each placeholder in s for which lookup returns ok.
// Placeholders without a value are left verbatim.
func Substitute(s string, placeholders []Placeholder, lookup func(name string) (string, bool)) string {
	var b strings.Builder
	last := 0
	for _, p := range placeholders {
		v, ok := lookup(p.Name)
		if !ok {
			continue
		}
		b.WriteString(s[last:p.Start])
		b.WriteString(v)
		last = p.End
	}
	b.WriteString(s[last:])
	return b.String()
}

// Template is a tag whose text may contain placeholders to be completed from
// user input, such as "ability.spell.[SPELL].range". Filling every
// placeholder yields a concrete Tag.
type Template struct {
	raw          string
	placeholders []Placeholder
	filled       map[string]Tag
}

// ParseTemplate validates s as tag text with placeholders. Literal parts are
// checked immediately; the final tag is validated again once filled.
func ParseTemplate(s string) (*Template, error) {
	placeholders, err := ScanPlaceholders(s)
	if err != nil {
		return nil, err
	}
	probe := Substitute(s, placeholders, func(string) (string, bool) { return "x", true })
	if _, err := Parse(probe); err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Input = s
		}
		return nil, err
	}
	return &Template{raw: s, placeholders: placeholders, filled: map[string]Tag{}}, nil
}

// FromTag wraps a concrete tag as a template with nothing to fill.
func FromTag(t Tag) *Template {
	return &Template{raw: t.name, filled: map[string]Tag{}}
}

// IsTemplate reports whether placeholders remain unfilled.
func (t *Template) IsTemplate() bool {
	for _, p := range t.placeholders {
		if _, ok := t.filled[p.Name]; !ok {
			return true
		}
	}
	return false
}

// Placeholders returns every placeholder name, sorted and unique.
func (t *Template) Placeholders() []string {
	return t.names(func(Placeholder) bool { return true })
}

// RequiredInputs returns the names still unfilled, sorted and unique.
func (t *Template) RequiredInputs() []string {
	return t.names(func(p Placeholder) bool {
		_, ok := t.filled[p.Name]
		return !ok
	})
}

// MissingInputs returns unfilled names that carry no default.
func (t *Template) MissingInputs() []string {
	defaults := map[string]bool{}
	for _, p := range t.placeholders {
		if p.HasDefault {
			defaults[p.Name] = true
		}
	}
	return t.names(func(p Placeholder) bool {
		_, ok := t.filled[p.Name]
		return !ok && !defaults[p.Name]
	})
}

func (t *Template) names(keep func(Placeholder) bool) []string {
	var out []string
	for _, p := range t.placeholders {
		if keep(p) && !slices.Contains(out, p.Name) {
			out = append(out, p.Name)
		}
	}
	slices.Sort(out)
	return out
}

// Fill records value for the placeholder name. Once every placeholder has a
// value the concrete tag is returned with ok true. Names the template does
// not use are ignored.
func (t *Template) Fill(name string, value Tag) (Tag, bool, error) {
	if t.uses(name) && !value.IsZero() {
		t.filled[name] = value
	}
	if t.IsTemplate() {
		return Tag{}, false, nil
	}
	return t.build(nil)
}

// TryComplete fills every remaining placeholder from its default. ok is
// false when some unfilled placeholder has no default.
func (t *Template) TryComplete() (Tag, bool, error) {
	if len(t.MissingInputs()) > 0 {
		return Tag{}, false, nil
	}
	defaults := map[string]string{}
	for _, p := range t.placeholders {
		if p.HasDefault {
			if _, ok := defaults[p.Name]; !ok {
				defaults[p.Name] = p.Default
			}
		}
	}
	return t.build(defaults)
}

// Tag returns the concrete tag when nothing remains to fill.
func (t *Template) Tag() (Tag, bool) {
	if t.IsTemplate() {
		return Tag{}, false
	}
	out, ok, err := t.build(nil)
	if err != nil {
		return Tag{}, false
	}
	return out, ok
}

func (t *Template) build(defaults map[string]string) (Tag, bool, error) {
	text := Substitute(t.raw, t.placeholders, func(name string) (string, bool) {
		if v, ok := t.filled[name]; ok {
			return v.name, true
		}
		v, ok := defaults[name]
		return v, ok
	})
	out, err := Parse(text)
	if err != nil {
		return Tag{}, false, err
	}
	return out, true, nil
}

func (t *Template) uses(name string) bool {
	for _, p := range t.placeholders {
		if p.Name == name {
			return true
		}
	}
	return false
}

// String renders the template with filled values substituted and remaining
// placeholders shown verbatim.
func (t *Template) String() string {
	return Substitute(t.raw, t.placeholders, func(name string) (string, bool) {
		v, ok := t.filled[name]
		return v.name, ok
	})
}

// Clone returns an independent copy including filled values.
func (t *Template) Clone() *Template {
	out := &Template{raw: t.raw, placeholders: t.placeholders, filled: make(map[string]Tag, len(t.filled))}
	for k, v := range t.filled {
		out.filled[k] = v
	}
	return out
}
