// Package tag implements the hierarchical identifiers that address every
// value in a ruleset.
//
// A Tag is a dot-separated path of subtags such as
// "ability.spell.Fireball.range". Subtags hold letters, digits and spaces;
// surrounding whitespace is trimmed and the text is normalized to Unicode NFC,
// so two tags are equal exactly when their normalized strings are equal. The
// first subtag may not be purely numeric, which keeps tags distinguishable
// from number literals inside formulas. Words the formula language reserves
// may only appear as part of a longer word.
package tag

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Separator joins subtags.
const Separator = "."

// Tag is an immutable, comparable identifier. The zero value is not a valid
// tag; use Parse.
type Tag struct {
	name string
}

// ErrorKind classifies tag parse failures.
type ErrorKind int

const (
	KindTagEmpty ErrorKind = iota + 1
	KindSubTagEmpty
	KindInvalidCharacter
	KindFirstTagNumeric
	KindInvalidPlaceholder
	KindReservedWord
)

func (k ErrorKind) String() string {
	switch k {
	case KindTagEmpty:
		return "tag empty"
	case KindSubTagEmpty:
		return "subtag empty"
	case KindInvalidCharacter:
		return "invalid character"
	case KindFirstTagNumeric:
		return "first tag numeric"
	case KindInvalidPlaceholder:
		return "invalid placeholder"
	case KindReservedWord:
		return "reserved word"
	default:
		return "unknown"
	}
}

// ParseError describes why a string is not a valid tag.
type ParseError struct {
	Kind   ErrorKind
	Input  string
	Subtag string // offending subtag or word, when known
	Char   rune   // offending character for KindInvalidCharacter
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case KindInvalidCharacter:
		return fmt.Sprintf("tag %q: invalid character %q in subtag %q", e.Input, e.Char, e.Subtag)
	case KindSubTagEmpty:
		return fmt.Sprintf("tag %q: empty subtag", e.Input)
	case KindFirstTagNumeric:
		return fmt.Sprintf("tag %q: first subtag %q is numeric", e.Input, e.Subtag)
	case KindReservedWord:
		return fmt.Sprintf("tag %q: %q is a reserved word", e.Input, e.Subtag)
	default:
		return fmt.Sprintf("tag %q: %s", e.Input, e.Kind)
	}
}

// Is matches parse errors by kind, so callers can test against the sentinels.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrTagEmpty           = &ParseError{Kind: KindTagEmpty}
	ErrSubTagEmpty        = &ParseError{Kind: KindSubTagEmpty}
	ErrInvalidCharacter   = &ParseError{Kind: KindInvalidCharacter}
	ErrFirstTagNumeric    = &ParseError{Kind: KindFirstTagNumeric}
	ErrInvalidPlaceholder = &ParseError{Kind: KindInvalidPlaceholder}
	ErrReservedWord       = &ParseError{Kind: KindReservedWord}
)

// reserved are the operator keywords and boolean literals of formulas. A tag
// word equal to one of them would be read as that keyword.
var reserved = map[string]bool{
	"sqrt":      true,
	"pow":       true,
	"round":     true,
	"roundup":   true,
	"rounddown": true,
	"find":      true,
	"true":      true,
	"false":     true,
}

// Parse validates and normalizes s.
func Parse(s string) (Tag, error) {
	normalized := norm.NFC.String(s)
	if strings.TrimSpace(normalized) == "" {
		return Tag{}, &ParseError{Kind: KindTagEmpty, Input: s}
	}
	parts := strings.Split(normalized, Separator)
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return Tag{}, &ParseError{Kind: KindSubTagEmpty, Input: s}
		}
		if r, ok := invalidRune(part); ok {
			return Tag{}, &ParseError{Kind: KindInvalidCharacter, Input: s, Subtag: part, Char: r}
		}
		if i == 0 && isNumeric(part) {
			return Tag{}, &ParseError{Kind: KindFirstTagNumeric, Input: s, Subtag: part}
		}
		parts[i] = part
	}
	name := strings.Join(parts, Separator)
	// Formulas split identifiers on spaces only, so dots stay inside a word.
	for _, w := range strings.Fields(name) {
		if reserved[w] {
			return Tag{}, &ParseError{Kind: KindReservedWord, Input: s, Subtag: w}
		}
	}
	return Tag{name: name}, nil
}

// MustParse is Parse for tags known to be valid; it panics otherwise.
func MustParse(s string) Tag {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

func invalidRune(subtag string) (rune, bool) {
	for _, r := range subtag {
		if r == ' ' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) {
			continue
		}
		return r, true
	}
	return 0, false
}

func isNumeric(subtag string) bool {
	for _, r := range subtag {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// String returns the normalized form.
func (t Tag) String() string {
	return t.name
}

// IsZero reports whether t is the zero Tag.
func (t Tag) IsZero() bool {
	return t.name == ""
}

// Subtags returns the path components.
func (t Tag) Subtags() []string {
	if t.name == "" {
		return nil
	}
	return strings.Split(t.name, Separator)
}

// Len returns the number of subtags.
func (t Tag) Len() int {
	if t.name == "" {
		return 0
	}
	return strings.Count(t.name, Separator) + 1
}

// Leaf returns the last subtag.
func (t Tag) Leaf() string {
	if i := strings.LastIndex(t.name, Separator); i >= 0 {
		return t.name[i+1:]
	}
	return t.name
}

// Parent returns t without its last subtag. ok is false for single-subtag tags.
func (t Tag) Parent() (Tag, bool) {
	i := strings.LastIndex(t.name, Separator)
	if i < 0 {
		return Tag{}, false
	}
	return Tag{name: t.name[:i]}, true
}

// Prefixes returns every leading path of t, shortest first, ending with t.
func (t Tag) Prefixes() []Tag {
	if t.name == "" {
		return nil
	}
	out := make([]Tag, 0, t.Len())
	for i := 0; i < len(t.name); i++ {
		if t.name[i] == '.' {
			out = append(out, Tag{name: t.name[:i]})
		}
	}
	return append(out, t)
}

// HasPrefix reports whether p is t or a leading path of t.
func (t Tag) HasPrefix(p Tag) bool {
	if p.name == "" || !strings.HasPrefix(t.name, p.name) {
		return false
	}
	return len(t.name) == len(p.name) || t.name[len(p.name)] == '.'
}

// AddPrefix returns prefix.t.
func (t Tag) AddPrefix(prefix Tag) Tag {
	if prefix.name == "" {
		return t
	}
	if t.name == "" {
		return prefix
	}
	return Tag{name: prefix.name + Separator + t.name}
}

// Join appends one or more subtags given as text, validating the result.
func (t Tag) Join(suffix string) (Tag, error) {
	if t.name == "" {
		return Parse(suffix)
	}
	return Parse(t.name + Separator + suffix)
}

// Compare orders tags by their normalized string.
func Compare(a, b Tag) int {
	return strings.Compare(a.name, b.name)
}
