package formula

import (
	"errors"
	"testing"

	"github.com/louisbranch/rulesheet/internal/core/tag"
	apperrors "github.com/louisbranch/rulesheet/internal/platform/errors"
)

func TestTokenizeKinds(t *testing.T) {
	tokens, err := Tokenize("-atr.1 + 2.5 * (x >= 3) && !flag")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	want := []struct {
		kind TokenKind
		text string
		op   Operation
	}{
		{TokenOperator, "-", OpNegate},
		{TokenTag, "atr.1", 0},
		{TokenOperator, "+", OpAdd},
		{TokenNumber, "2.5", 0},
		{TokenOperator, "*", OpMultiply},
		{TokenLeftParen, "(", 0},
		{TokenTag, "x", 0},
		{TokenOperator, ">=", OpGreaterEqual},
		{TokenNumber, "3", 0},
		{TokenRightParen, ")", 0},
		{TokenOperator, "&&", OpAnd},
		{TokenOperator, "!", OpNot},
		{TokenTag, "flag", 0},
	}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %+v", len(want), len(tokens), tokens)
	}
	for i, w := range want {
		got := tokens[i]
		if got.Kind != w.kind || got.Text != w.text || got.Op != w.op {
			t.Fatalf("token %d: expected %v %q %v, got %v %q %v", i, w.kind, w.text, w.op, got.Kind, got.Text, got.Op)
		}
	}
}

func TestTokenizeSubtractVersusNegate(t *testing.T) {
	tokens, err := Tokenize("a - -1")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if tokens[1].Op != OpSubtract {
		t.Fatalf("expected subtract, got %v", tokens[1].Op)
	}
	if tokens[2].Op != OpNegate {
		t.Fatalf("expected negate, got %v", tokens[2].Op)
	}
}

func TestTokenizeKeywordsSplitIdentifiers(t *testing.T) {
	tokens, err := Tokenize("spell slots find ability.spell.range")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %+v", tokens)
	}
	if tokens[0].Kind != TokenTag || tokens[0].Text != "spell slots" {
		t.Fatalf("expected tag with space, got %+v", tokens[0])
	}
	if tokens[1].Op != OpFind {
		t.Fatalf("expected find, got %+v", tokens[1])
	}
	if tokens[2].Text != "ability.spell.range" {
		t.Fatalf("unexpected tag %q", tokens[2].Text)
	}
}

func TestTokenizeBoolLiterals(t *testing.T) {
	tokens, err := Tokenize("true || false")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if tokens[0].Kind != TokenBool || !tokens[0].Bool {
		t.Fatalf("expected true literal, got %+v", tokens[0])
	}
	if tokens[2].Kind != TokenBool || tokens[2].Bool {
		t.Fatalf("expected false literal, got %+v", tokens[2])
	}
}

func TestTokenizePlaceholders(t *testing.T) {
	tokens, err := Tokenize("ability.[SPELL = fire ball].range + 1")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if tokens[0].Text != "ability.[SPELL = fire ball].range" {
		t.Fatalf("unexpected placeholder tag %q", tokens[0].Text)
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		src  string
		want error
	}{
		{"1.2.3", ErrMultipleDecimalPoints},
		{"a = b", ErrInvalidCharacter},
		{"a & b", ErrInvalidCharacter},
		{"a | b", ErrInvalidCharacter},
		{"a $ b", ErrInvalidCharacter},
		{"a ! b", ErrMisplacedOperator},
		{"a.[B", ErrUnclosedPlaceholder},
		{"a + €", ErrInvalidCharacter},
	}
	for _, tc := range tests {
		_, err := Tokenize(tc.src)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%q: expected %v, got %v", tc.src, tc.want, err)
		}
		if !apperrors.HasCode(err, apperrors.CodeTokenization) {
			t.Fatalf("%q: expected tokenization code, got %v", tc.src, apperrors.CodeOf(err))
		}
	}
}

func TestKeywordsAreNotTags(t *testing.T) {
	words := []string{"true", "false"}
	for w := range keywords {
		words = append(words, w)
	}
	for _, w := range words {
		if _, err := tag.Parse("str " + w); !errors.Is(err, tag.ErrReservedWord) {
			t.Fatalf("tag.Parse(%q) error = %v, want reserved word", "str "+w, err)
		}
		tokens, err := Tokenize("str." + w)
		if err != nil {
			t.Fatalf("tokenize: %v", err)
		}
		if len(tokens) != 1 || tokens[0].Kind != TokenTag {
			t.Fatalf("expected one tag token for %q, got %+v", "str."+w, tokens)
		}
	}
}
