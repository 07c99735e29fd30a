package tag

import (
	"encoding/json"
	"testing"

	apperrors "github.com/louisbranch/rulesheet/internal/platform/errors"
)

func TestTagJSONRoundTrip(t *testing.T) {
	for _, s := range []string{"simple", "compound.tag", "compound space.tag"} {
		t.Run(s, func(t *testing.T) {
			want := MustParse(s)
			data, err := json.Marshal(want)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var got Tag
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got != want {
				t.Fatalf("round trip = %q, want %q", got, want)
			}
		})
	}
}

func TestTagJSONRejects(t *testing.T) {
	for _, input := range []string{`12`, `{"a":1}`, `""`, `"0.a"`, `null`} {
		var got Tag
		err := json.Unmarshal([]byte(input), &got)
		if err == nil {
			t.Fatalf("expected error for %s", input)
		}
		if !apperrors.HasCode(err, apperrors.CodeMalformedJSON) {
			t.Fatalf("expected malformed json for %s, got %v", input, err)
		}
	}
}

func TestSetJSONRoundTrip(t *testing.T) {
	s := NewSet(MustParse("state.hasted"), MustParse("a.b.c"))
	s.Add(MustParse("a.b.c"))

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"a.b.c":2,"state.hasted":1}` {
		t.Fatalf("unexpected json %s", data)
	}

	var got Set
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Count(MustParse("a")) != 2 || got.Count(MustParse("state")) != 1 {
		t.Fatalf("prefix counts not derived: a=%d state=%d", got.Count(MustParse("a")), got.Count(MustParse("state")))
	}
}

func TestSetJSONRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		key   string
	}{
		{"array root", `["a"]`, ""},
		{"duplicate key", `{"a":1,"a":2}`, "a"},
		{"normalized duplicate", `{"a.b":1,"a . b":2}`, ""},
		{"bad tag", `{"0.a":1}`, "0.a"},
		{"fractional count", `{"a":1.5}`, "a"},
		{"negative count", `{"a":-1}`, "a"},
		{"string count", `{"a":"1"}`, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Set
			err := json.Unmarshal([]byte(tt.input), &s)
			if !apperrors.HasCode(err, apperrors.CodeMalformedJSON) {
				t.Fatalf("expected malformed json, got %v", err)
			}
			if tt.key == "" {
				return
			}
			var e *apperrors.Error
			if !asAppError(err, &e) || e.Meta(apperrors.MetaKey) != tt.key {
				t.Fatalf("key = %q, want %q", e.Meta(apperrors.MetaKey), tt.key)
			}
		})
	}
}

func asAppError(err error, target **apperrors.Error) bool {
	e, ok := err.(*apperrors.Error)
	if ok {
		*target = e
	}
	return ok
}
