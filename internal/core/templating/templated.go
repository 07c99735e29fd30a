// Package templating completes rule entries whose tags carry placeholders.
//
// A Templated value starts incomplete, accepts named inputs until the held
// template can produce a concrete value, and then stays complete.
package templating

import (
	"github.com/louisbranch/rulesheet/internal/core/tag"
	apperrors "github.com/louisbranch/rulesheet/internal/platform/errors"
)

// Template produces a C once its placeholders are filled.
type Template[C any] interface {
	// RequiredInputs returns the unfilled placeholder names, sorted.
	RequiredInputs() []string
	// MissingInputs returns the unfilled names without a default, sorted.
	MissingInputs() []string
	// Fill records one input. ok is true once the value is complete.
	Fill(name string, value tag.Tag) (out C, ok bool, err error)
	// TryComplete completes the value from placeholder defaults. ok is
	// false when some unfilled placeholder has no default.
	TryComplete() (out C, ok bool, err error)
}

// Templated is either waiting on inputs or complete. It never reverts.
type Templated[C any] struct {
	template Template[C]
	value    C
	complete bool
}

// New wraps t. A template with nothing to fill completes immediately.
func New[C any](t Template[C]) (*Templated[C], error) {
	out := &Templated[C]{template: t}
	if len(t.RequiredInputs()) == 0 {
		if _, err := out.AttemptComplete(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Complete returns an already complete value.
func Complete[C any](v C) *Templated[C] {
	return &Templated[C]{value: v, complete: true}
}

// InsertValue fills the placeholder name. It does nothing once complete.
func (t *Templated[C]) InsertValue(name string, value tag.Tag) error {
	if t.complete {
		return nil
	}
	v, ok, err := t.template.Fill(name, value)
	if err != nil {
		return err
	}
	if ok {
		t.value, t.complete = v, true
	}
	return nil
}

// RequiredInputs returns the names still needed; empty once complete.
func (t *Templated[C]) RequiredInputs() []string {
	if t.complete {
		return nil
	}
	return t.template.RequiredInputs()
}

// MissingInputs returns the names that block AttemptComplete.
func (t *Templated[C]) MissingInputs() []string {
	if t.complete {
		return nil
	}
	return t.template.MissingInputs()
}

// AttemptComplete completes the value from defaults when no further input
// is needed.
func (t *Templated[C]) AttemptComplete() (C, error) {
	if t.complete {
		return t.value, nil
	}
	v, ok, err := t.template.TryComplete()
	if err != nil {
		var zero C
		return zero, err
	}
	if !ok {
		var zero C
		return zero, apperrors.MissingTemplateValues(t.template.MissingInputs())
	}
	t.value, t.complete = v, true
	return v, nil
}

func (t *Templated[C]) IsComplete() bool {
	return t.complete
}

// Value returns the completed value.
func (t *Templated[C]) Value() (C, bool) {
	return t.value, t.complete
}
