package rules

import (
	"encoding/json"
	"errors"
	"testing"

	apperrors "github.com/louisbranch/rulesheet/internal/platform/errors"
)

func TestConditionalJSONRoundTrip(t *testing.T) {
	for _, src := range []string{"true", "lhs > rhs.exp"} {
		cond := MustConditional("cmp", src)
		data, err := json.Marshal(cond)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var got Conditional
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if got.Name != cond.Name || got.Source() != src || got.Tree().String() != cond.Tree().String() {
			t.Fatalf("expected %v, got %v", cond, &got)
		}
	}
}

func TestEquationJSON(t *testing.T) {
	eq := MustEquation("sum", "lhs + rhs")
	data, err := json.Marshal(eq)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"name":"sum","equation":"lhs + rhs"}` {
		t.Fatalf("unexpected json %s", data)
	}
	var got Equation
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Source() != "lhs + rhs" || got.Tree().String() != "(lhs + rhs)" {
		t.Fatalf("unexpected equation %v", &got)
	}
}

func TestModifierJSON(t *testing.T) {
	tests := []struct {
		mod  Modifier
		want string
	}{
		{
			Modifier{Name: tg("ring"), Target: tg("ac"), Condition: tg("worn"), Change: BasicValue{Value: 1.5}},
			`{"name":"ring","target":"ac","condition":"worn","change":{"basic_value":1.5}}`,
		},
		{
			Modifier{Name: tg("shield"), Target: tg("ac"), Condition: tg("worn"), Change: FromOtherValue{Source: tg("shield bonus")}},
			`{"name":"shield","target":"ac","condition":"worn","change":{"from_other_value":"shield bonus"}}`,
		},
		{
			Modifier{Name: tg("none"), Target: tg("ac"), Condition: tg("worn"), Change: BasicValue{}},
			`{"name":"none","target":"ac","condition":"worn","change":{"basic_value":0}}`,
		},
	}
	for _, tc := range tests {
		data, err := json.Marshal(tc.mod)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(data) != tc.want {
			t.Fatalf("expected %s, got %s", tc.want, data)
		}
		var got Modifier
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got != tc.mod {
			t.Fatalf("expected %+v, got %+v", tc.mod, got)
		}
	}
}

func TestContextJSONRoundTrip(t *testing.T) {
	c := referenceContext()
	c.AddStateTag(tg("status.prone"))
	c.InsertAttribute(Attribute{Name: tg("compound space.tag"), Value: -2})
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Context
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	again, err := json.Marshal(&got)
	if err != nil {
		t.Fatalf("marshal again: %v", err)
	}
	if string(again) != string(data) {
		t.Fatalf("round trip changed json:\n%s\n%s", data, again)
	}
	if got.StateTags().PrimaryCount(tg("status.prone")) != 2 {
		t.Fatalf("expected tag count 2, got %d", got.StateTags().PrimaryCount(tg("status.prone")))
	}
	want, _ := c.GetValue(tg("atr.1"))
	if v, err := got.GetValue(tg("atr.1")); err != nil || v != want {
		t.Fatalf("expected %v, got %v (%v)", want, v, err)
	}
	if got.Limits() != DefaultLimits() {
		t.Fatalf("expected default limits, got %+v", got.Limits())
	}
}

func TestEmptyContextJSON(t *testing.T) {
	data, err := json.Marshal(NewContext())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"state_tags":{},"attributes":[],"modifiers":[],"equations":[],"conditions":[]}`
	if string(data) != want {
		t.Fatalf("expected %s, got %s", want, data)
	}
}

func TestMalformedJSON(t *testing.T) {
	tests := []struct {
		name   string
		target any
		data   string
		key    string
	}{
		{"attribute not object", &Attribute{}, `[1]`, ""},
		{"attribute missing value", &Attribute{}, `{"name":"a"}`, "value"},
		{"attribute value kind", &Attribute{}, `{"name":"a","value":"1"}`, "value"},
		{"attribute bad name", &Attribute{}, `{"name":"0.a","value":1}`, "name"},
		{"attribute duplicate key", &Attribute{}, `{"name":"a","name":"b","value":1}`, "name"},
		{"attribute unknown key", &Attribute{}, `{"name":"a","value":1,"extra":true}`, "extra"},
		{"equation does not parse", &Equation{}, `{"name":"a","equation":"1 +"}`, "equation"},
		{"conditional wrong key", &Conditional{}, `{"name":"a","conditional":"true"}`, "name"},
		{"change with both keys", &Modifier{}, `{"name":"m","target":"t","condition":"c","change":{"basic_value":1,"from_other_value":"x"}}`, "change"},
		{"change empty", &Modifier{}, `{"name":"m","target":"t","condition":"c","change":{}}`, "change"},
		{"change bad tag", &Modifier{}, `{"name":"m","target":"t","condition":"c","change":{"from_other_value":""}}`, "change.from_other_value"},
		{"set not array", &AttributeSet{}, `{}`, ""},
		{"set duplicate entry", &AttributeSet{}, `[{"name":"a","value":1},{"name":" a ","value":2}]`, "[1]"},
		{"set element error", &EquationSet{}, `[{"name":"a","equation":"1"},{"name":"b"}]`, "[1].equation"},
		{"context missing key", &Context{}, `{"state_tags":{},"attributes":[],"modifiers":[],"equations":[]}`, "conditions"},
		{"context nested error", &Context{}, `{"state_tags":{},"attributes":[{"name":"a","value":true}],"modifiers":[],"equations":[],"conditions":[]}`, "attributes[0].value"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := json.Unmarshal([]byte(tc.data), tc.target)
			var e *apperrors.Error
			if !errors.As(err, &e) || e.Code != apperrors.CodeMalformedJSON {
				t.Fatalf("expected malformed json, got %v", err)
			}
			if got := e.Meta(apperrors.MetaKey); got != tc.key {
				t.Fatalf("expected key %q, got %q (%v)", tc.key, got, err)
			}
		})
	}
}

func TestMalformedEquationKeepsParseCause(t *testing.T) {
	var eq Equation
	err := json.Unmarshal([]byte(`{"name":"a","equation":"(1"}`), &eq)
	if !apperrors.HasCode(err, apperrors.CodeParsing) {
		t.Fatalf("expected parsing cause, got %v", err)
	}
}
