package formula

import (
	"fmt"

	apperrors "github.com/louisbranch/rulesheet/internal/platform/errors"
)

// TokenizationKind classifies tokenizer failures.
type TokenizationKind int

const (
	KindInvalidCharacter TokenizationKind = iota + 1
	KindMultipleDecimalPoints
	KindMisplacedOperator
	KindUnclosedPlaceholder
)

func (k TokenizationKind) String() string {
	switch k {
	case KindInvalidCharacter:
		return "invalid character"
	case KindMultipleDecimalPoints:
		return "multiple decimal points"
	case KindMisplacedOperator:
		return "misplaced operator"
	case KindUnclosedPlaceholder:
		return "unclosed placeholder"
	default:
		return "unknown"
	}
}

// TokenizationError reports a source that could not be split into tokens.
type TokenizationError struct {
	Kind TokenizationKind
	Pos  int // byte offset in the source
	Text string
}

func (e *TokenizationError) Error() string {
	return fmt.Sprintf("%s %q at offset %d", e.Kind, e.Text, e.Pos)
}

// Is matches by kind.
func (e *TokenizationError) Is(target error) bool {
	t, ok := target.(*TokenizationError)
	return ok && t.Kind == e.Kind
}

// SyntaxKind classifies parser failures.
type SyntaxKind int

const (
	KindEmpty SyntaxKind = iota + 1
	KindUnbalancedParentheses
	KindMissingParentheses
	KindUnexpectedToken
	KindUnexpectedEnd
	KindExpectedTag
	KindTooDeep
)

func (k SyntaxKind) String() string {
	switch k {
	case KindEmpty:
		return "empty formula"
	case KindUnbalancedParentheses:
		return "unbalanced parentheses"
	case KindMissingParentheses:
		return "missing parentheses"
	case KindUnexpectedToken:
		return "unexpected token"
	case KindUnexpectedEnd:
		return "unexpected end of formula"
	case KindExpectedTag:
		return "expected tag"
	case KindTooDeep:
		return "formula nested too deeply"
	default:
		return "unknown"
	}
}

// SyntaxError reports a token stream that does not form an expression.
type SyntaxError struct {
	Kind  SyntaxKind
	Token string
	Pos   int
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("%s at offset %d", e.Kind, e.Pos)
	}
	return fmt.Sprintf("%s %q at offset %d", e.Kind, e.Token, e.Pos)
}

// Is matches by kind.
func (e *SyntaxError) Is(target error) bool {
	t, ok := target.(*SyntaxError)
	return ok && t.Kind == e.Kind
}

// EvalKind classifies evaluation failures raised by the evaluator itself.
type EvalKind int

const (
	KindOperationTypeMismatch EvalKind = iota + 1
	KindInvalidIndex
)

func (k EvalKind) String() string {
	switch k {
	case KindOperationTypeMismatch:
		return "operation type mismatch"
	case KindInvalidIndex:
		return "invalid index"
	default:
		return "unknown"
	}
}

// EvalError reports a failure computing a value.
type EvalError struct {
	Kind     EvalKind
	Node     string // rendering of the offending node
	Expected Kind
	Found    Kind
	Detail   string
}

func (e *EvalError) Error() string {
	switch e.Kind {
	case KindOperationTypeMismatch:
		return fmt.Sprintf("%s: %s expected %s, found %s", e.Kind, e.Node, e.Expected, e.Found)
	default:
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Node, e.Detail)
	}
}

// Is matches by kind.
func (e *EvalError) Is(target error) bool {
	t, ok := target.(*EvalError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidCharacter      = &TokenizationError{Kind: KindInvalidCharacter}
	ErrMultipleDecimalPoints = &TokenizationError{Kind: KindMultipleDecimalPoints}
	ErrMisplacedOperator     = &TokenizationError{Kind: KindMisplacedOperator}
	ErrUnclosedPlaceholder   = &TokenizationError{Kind: KindUnclosedPlaceholder}

	ErrEmpty                 = &SyntaxError{Kind: KindEmpty}
	ErrUnbalancedParentheses = &SyntaxError{Kind: KindUnbalancedParentheses}
	ErrMissingParentheses    = &SyntaxError{Kind: KindMissingParentheses}
	ErrUnexpectedToken       = &SyntaxError{Kind: KindUnexpectedToken}
	ErrUnexpectedEnd         = &SyntaxError{Kind: KindUnexpectedEnd}
	ErrExpectedTag           = &SyntaxError{Kind: KindExpectedTag}
	ErrTooDeep               = &SyntaxError{Kind: KindTooDeep}

	ErrOperationTypeMismatch = &EvalError{Kind: KindOperationTypeMismatch}
	ErrInvalidIndex          = &EvalError{Kind: KindInvalidIndex}
)

func tokenizationError(kind TokenizationKind, pos int, text string) error {
	cause := &TokenizationError{Kind: kind, Pos: pos, Text: text}
	return apperrors.Wrap(apperrors.CodeTokenization, "tokenize: "+cause.Error(), cause)
}

func syntaxError(kind SyntaxKind, tok Token) error {
	cause := &SyntaxError{Kind: kind, Token: tok.Text, Pos: tok.Pos}
	return apperrors.WrapWithMetadata(apperrors.CodeSyntax, "syntax: "+cause.Error(),
		map[string]string{"token": tok.Text}, cause)
}

func mismatch(n Node, expected, found Kind) error {
	cause := &EvalError{Kind: KindOperationTypeMismatch, Node: n.String(), Expected: expected, Found: found}
	return apperrors.Wrap(apperrors.CodeEvaluation, "evaluate: "+cause.Error(), cause)
}

func invalidIndex(n Node, detail string) error {
	cause := &EvalError{Kind: KindInvalidIndex, Node: n.String(), Detail: detail}
	return apperrors.Wrap(apperrors.CodeEvaluation, "evaluate: "+cause.Error(), cause)
}
