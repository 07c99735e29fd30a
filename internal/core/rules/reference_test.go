package rules

import (
	"encoding/json"
	"testing"

	"github.com/louisbranch/rulesheet/internal/core/formula"
	apperrors "github.com/louisbranch/rulesheet/internal/platform/errors"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		in   string
		want Reference
	}{
		{"tag:status.prone", Reference{Kind: KindTag, Path: tg("status.prone")}},
		{"attribute:str", Reference{Kind: KindAttribute, Path: tg("str")}},
		{"condition:is hidden", Reference{Kind: KindCondition, Path: tg("is hidden")}},
		{"modifier:ring.bonus", Reference{Kind: KindModifier, Path: tg("ring.bonus")}},
		{"equation:attack", Reference{Kind: KindEquation, Path: tg("attack")}},
		{"value:ac", Reference{Kind: KindValue, Path: tg("ac")}},
	}
	for _, tc := range tests {
		got, err := ParseReference(tc.in)
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %v, got %v", tc.in, tc.want, got)
		}
		if got.String() != tc.in {
			t.Fatalf("expected %q, got %q", tc.in, got.String())
		}
	}
}

func TestParseReferenceErrors(t *testing.T) {
	for _, in := range []string{"str", "stat:str", "value:", "value:0.a"} {
		if _, err := ParseReference(in); !apperrors.HasCode(err, apperrors.CodeTagParse) {
			t.Fatalf("%q: expected tag parse error, got %v", in, err)
		}
	}
}

func TestReferenceJSON(t *testing.T) {
	ref := Reference{Kind: KindEquation, Path: tg("attack.bonus")}
	data, err := json.Marshal(ref)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"equation:attack.bonus"` {
		t.Fatalf("unexpected json %s", data)
	}
	var got Reference
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != ref {
		t.Fatalf("expected %v, got %v", ref, got)
	}
	if err := json.Unmarshal([]byte(`"bogus"`), &got); !apperrors.HasCode(err, apperrors.CodeMalformedJSON) {
		t.Fatalf("expected malformed json, got %v", err)
	}
}

func referenceContext() *Context {
	c := baseContext()
	c.AddStateTag(tg("status.prone"))
	c.InsertEquation(MustEquation("double", "atr.1 * 2"))
	c.InsertModifier(Modifier{Name: tg("ring"), Target: tg("atr.1"), Condition: tg("always"), Change: BasicValue{Value: 1}})
	c.InsertModifier(Modifier{Name: tg("curse"), Target: tg("atr.1"), Condition: tg("never"), Change: BasicValue{Value: -5}})
	return c
}

func TestEvaluateReference(t *testing.T) {
	c := referenceContext()
	tests := []struct {
		ref  string
		want Result
	}{
		{"tag:status", Result{Kind: formula.KindBool, Bool: true}},
		{"tag:status.hidden", Result{Kind: formula.KindBool}},
		{"attribute:atr.1", Result{Kind: formula.KindNumber, Number: 1212.23}},
		{"condition:always", Result{Kind: formula.KindBool, Bool: true}},
		{"modifier:ring", Result{Kind: formula.KindNumber, Number: 1}},
		{"modifier:curse", Result{Kind: formula.KindNumber, Number: 0}},
		{"equation:double", Result{Kind: formula.KindNumber, Number: 1213.23 * 2}},
		{"value:atr.1", Result{Kind: formula.KindNumber, Number: 1213.23}},
		{"value:unset", Result{Kind: formula.KindNumber}},
		{"value:double", Result{Kind: formula.KindNumber, Number: 1213.23 * 2}},
	}
	for _, tc := range tests {
		ref, err := ParseReference(tc.ref)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.ref, err)
		}
		got, err := c.Evaluate(ref)
		if err != nil {
			t.Fatalf("%q: %v", tc.ref, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %+v, got %+v", tc.ref, tc.want, got)
		}
	}
	if _, err := c.Evaluate(Reference{Kind: KindAttribute, Path: tg("unset")}); !apperrors.HasCode(err, apperrors.CodeDoesNotExist) {
		t.Fatalf("expected does not exist, got %v", err)
	}
}

func TestExistsAndRemoveReference(t *testing.T) {
	c := referenceContext()
	refs := []Reference{
		{Kind: KindTag, Path: tg("status.prone")},
		{Kind: KindAttribute, Path: tg("atr.1")},
		{Kind: KindCondition, Path: tg("never")},
		{Kind: KindModifier, Path: tg("ring")},
		{Kind: KindEquation, Path: tg("double")},
	}
	for _, ref := range refs {
		if !c.Exists(ref) {
			t.Fatalf("%v: expected to exist", ref)
		}
		if err := c.Remove(ref); err != nil {
			t.Fatalf("%v: remove: %v", ref, err)
		}
		if c.Exists(ref) {
			t.Fatalf("%v: expected removed", ref)
		}
		if err := c.Remove(ref); !apperrors.HasCode(err, apperrors.CodeDoesNotExist) {
			t.Fatalf("%v: expected does not exist, got %v", ref, err)
		}
	}
	if c.Exists(Reference{Kind: KindValue, Path: tg("double")}) {
		t.Fatal("expected removed equation to no longer be a value")
	}
	if !c.Exists(Reference{Kind: KindValue, Path: tg("atr.1")}) {
		t.Fatal("expected remaining modifier target to be a value")
	}
	if err := c.Remove(Reference{Kind: KindValue, Path: tg("atr.1")}); !apperrors.HasCode(err, apperrors.CodeInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}
