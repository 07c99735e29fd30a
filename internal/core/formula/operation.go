package formula

// Operation identifies an operator node in a Tree.
type Operation int

const (
	OpAdd Operation = iota + 1
	OpSubtract
	OpMultiply
	OpDivide
	OpPow
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpOr
	OpAnd
	OpNegate
	OpNot
	OpSqrt
	OpRound
	OpRoundUp
	OpRoundDown
	OpQuery
	OpFind
	OpTernary
)

// Precedence tiers, loosest first.
const (
	precTernary = iota + 1
	precOr
	precAnd
	precCompare
	precAdditive
	precMultiplicative
	precPow
	precPrefix
	precLookup
)

var symbols = map[Operation]string{
	OpAdd:          "+",
	OpSubtract:     "-",
	OpMultiply:     "*",
	OpDivide:       "/",
	OpPow:          "^",
	OpEqual:        "==",
	OpNotEqual:     "!=",
	OpLess:         "<",
	OpLessEqual:    "<=",
	OpGreater:      ">",
	OpGreaterEqual: ">=",
	OpOr:           "||",
	OpAnd:          "&&",
	OpNegate:       "-",
	OpNot:          "!",
	OpSqrt:         "sqrt",
	OpRound:        "round",
	OpRoundUp:      "roundup",
	OpRoundDown:    "rounddown",
	OpQuery:        "::",
	OpFind:         "find",
	OpTernary:      "?",
}

// keywords are the words reclassified from identifiers into operators.
var keywords = map[string]Operation{
	"sqrt":      OpSqrt,
	"pow":       OpPow,
	"round":     OpRound,
	"roundup":   OpRoundUp,
	"rounddown": OpRoundDown,
	"find":      OpFind,
}

func (o Operation) String() string {
	if s, ok := symbols[o]; ok {
		return s
	}
	return "?op"
}

// Arity returns the number of operands the operation takes.
func (o Operation) Arity() int {
	switch o {
	case OpNegate, OpNot, OpSqrt, OpRound, OpRoundUp, OpRoundDown:
		return 1
	case OpTernary:
		return 3
	default:
		return 2
	}
}

// Precedence returns the binding strength; higher binds tighter.
func (o Operation) Precedence() int {
	switch o {
	case OpTernary:
		return precTernary
	case OpOr:
		return precOr
	case OpAnd:
		return precAnd
	case OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return precCompare
	case OpAdd, OpSubtract:
		return precAdditive
	case OpMultiply, OpDivide:
		return precMultiplicative
	case OpPow:
		return precPow
	case OpQuery, OpFind:
		return precLookup
	default:
		return precPrefix
	}
}

// IsPrefix reports whether the operation is written before its only operand.
func (o Operation) IsPrefix() bool {
	return o.Arity() == 1
}

func (o Operation) rightAssociative() bool {
	return o == OpPow || o == OpTernary
}

// ResultKind reports the kind of value the operation produces. Ternary
// results depend on the branches and report KindUnknown.
func (o Operation) ResultKind() Kind {
	switch o {
	case OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual, OpOr, OpAnd, OpNot:
		return KindBool
	case OpTernary:
		return KindUnknown
	default:
		return KindNumber
	}
}

// Kind is the static type of a value.
type Kind int

const (
	KindUnknown Kind = iota
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	default:
		return "unknown"
	}
}
