package tag

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"simple", "simple"},
		{"compound.tag", "compound.tag"},
		{"compound space.tag", "compound space.tag"},
		{"  spaced . out  ", "spaced.out"},
		{"a.0", "a.0"},
		{"ability.spell.Fireball.range", "ability.spell.Fireball.range"},
		{"rounded", "rounded"},
		{"my find.x", "my find.x"},
		{"str.round", "str.round"},
		{"Round", "Round"},
		{"café", "café"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Fatalf("Parse(%q) = %q, want %q", tt.input, got, tt.want)
			}
			again, err := Parse(got.String())
			if err != nil || again != got {
				t.Fatalf("round trip = %q, %v", again, err)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{"", ErrTagEmpty},
		{"   ", ErrTagEmpty},
		{"a..b", ErrSubTagEmpty},
		{".a", ErrSubTagEmpty},
		{"a.", ErrSubTagEmpty},
		{"a.b-c", ErrInvalidCharacter},
		{"a+b", ErrInvalidCharacter},
		{"a.[b]", ErrInvalidCharacter},
		{"0.a", ErrFirstTagNumeric},
		{"12", ErrFirstTagNumeric},
		{"true", ErrReservedWord},
		{"str round", ErrReservedWord},
		{"x find y", ErrReservedWord},
		{"a.b false", ErrReservedWord},
		{"a.b pow", ErrReservedWord},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Parse(%q) error = %v, want %v", tt.input, err, tt.want)
			}
		})
	}
}

func TestParseErrorDetails(t *testing.T) {
	_, err := Parse("a.b-c")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Char != '-' || pe.Subtag != "b-c" || pe.Input != "a.b-c" {
		t.Fatalf("unexpected details: %+v", pe)
	}
}

func TestTagEquality(t *testing.T) {
	a := MustParse("compound . tag")
	b := MustParse("compound.tag")
	if a != b {
		t.Fatal("expected normalized tags to be equal")
	}
	m := map[Tag]int{a: 1}
	if m[b] != 1 {
		t.Fatal("expected tags to hash equally")
	}
}

func TestHierarchy(t *testing.T) {
	tg := MustParse("a.b.c")

	if got := tg.Subtags(); len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("Subtags = %v", got)
	}
	if tg.Len() != 3 {
		t.Fatalf("Len = %d", tg.Len())
	}
	if tg.Leaf() != "c" {
		t.Fatalf("Leaf = %q", tg.Leaf())
	}
	parent, ok := tg.Parent()
	if !ok || parent.String() != "a.b" {
		t.Fatalf("Parent = %q, %v", parent, ok)
	}
	if _, ok := MustParse("a").Parent(); ok {
		t.Fatal("expected no parent for single subtag")
	}

	prefixes := tg.Prefixes()
	want := []string{"a", "a.b", "a.b.c"}
	if len(prefixes) != len(want) {
		t.Fatalf("Prefixes = %v", prefixes)
	}
	for i := range want {
		if prefixes[i].String() != want[i] {
			t.Fatalf("Prefixes[%d] = %q, want %q", i, prefixes[i], want[i])
		}
	}

	if !tg.HasPrefix(MustParse("a.b")) || !tg.HasPrefix(tg) {
		t.Fatal("expected prefix match")
	}
	if MustParse("ab.c").HasPrefix(MustParse("a")) {
		t.Fatal("prefix must match whole subtags")
	}
}

func TestAddPrefixAndJoin(t *testing.T) {
	got := MustParse("year").AddPrefix(MustParse("lhs"))
	if got.String() != "lhs.year" {
		t.Fatalf("AddPrefix = %q", got)
	}
	if MustParse("x").AddPrefix(Tag{}) != MustParse("x") {
		t.Fatal("expected zero prefix to be a no-op")
	}

	joined, err := MustParse("spell.slots").Join("3")
	if err != nil || joined.String() != "spell.slots.3" {
		t.Fatalf("Join = %q, %v", joined, err)
	}
	if _, err := MustParse("a").Join("-1"); !errors.Is(err, ErrInvalidCharacter) {
		t.Fatalf("expected invalid character, got %v", err)
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustParse("")
}
