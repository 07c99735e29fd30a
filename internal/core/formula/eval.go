package formula

import (
	"math"
	"strconv"

	"github.com/louisbranch/rulesheet/internal/core/tag"
	apperrors "github.com/louisbranch/rulesheet/internal/platform/errors"
)

// Resolver supplies values for the tags a formula references.
type Resolver interface {
	// ResolveNum returns the numeric value of t, failing when t names
	// nothing numeric.
	ResolveNum(t tag.Tag) (float32, error)
	// ResolveBool returns the truth value of t.
	ResolveBool(t tag.Tag) (bool, error)
	// Value returns the numeric value of t, or 0 when t names nothing.
	Value(t tag.Tag) (float32, error)
}

// EvalNum evaluates the tree as a number.
func (t *Tree) EvalNum(r Resolver) (float32, error) {
	return evalNum(t.root, r)
}

// EvalBool evaluates the tree as a boolean.
func (t *Tree) EvalBool(r Resolver) (bool, error) {
	return evalBool(t.root, r)
}

func evalNum(n Node, r Resolver) (float32, error) {
	switch n := n.(type) {
	case NumberNode:
		return n.Value, nil
	case BoolNode:
		return 0, mismatch(n, KindNumber, KindBool)
	case TagNode:
		return r.ResolveNum(n.Tag)
	case TemplateNode:
		return 0, apperrors.MissingTemplateValues(n.Inputs)
	case *OpNode:
		return evalNumOp(n, r)
	}
	return 0, apperrors.InvalidState("unknown formula node")
}

func evalNumOp(n *OpNode, r Resolver) (float32, error) {
	switch n.Op {
	case OpTernary:
		cond, err := evalBool(n.Args[0], r)
		if err != nil {
			return 0, err
		}
		if cond {
			return evalNum(n.Args[1], r)
		}
		return evalNum(n.Args[2], r)
	case OpQuery, OpFind:
		target, err := lookupTag(n, r)
		if err != nil {
			return 0, err
		}
		if n.Op == OpQuery {
			return r.Value(target)
		}
		return r.ResolveNum(target)
	}

	if n.Op.ResultKind() != KindNumber {
		return 0, mismatch(n, KindNumber, KindBool)
	}

	if n.Op.IsPrefix() {
		x, err := evalNum(n.Args[0], r)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case OpNegate:
			return -x, nil
		case OpSqrt:
			return float32(math.Sqrt(float64(x))), nil
		case OpRound:
			return float32(math.Round(float64(x))), nil
		case OpRoundUp:
			return float32(math.Ceil(float64(x))), nil
		case OpRoundDown:
			return float32(math.Floor(float64(x))), nil
		}
		return 0, apperrors.InvalidState("unknown prefix operation " + n.Op.String())
	}

	a, err := evalNum(n.Args[0], r)
	if err != nil {
		return 0, err
	}
	b, err := evalNum(n.Args[1], r)
	if err != nil {
		return 0, err
	}
	switch n.Op {
	case OpAdd:
		return a + b, nil
	case OpSubtract:
		return a - b, nil
	case OpMultiply:
		return a * b, nil
	case OpDivide:
		return a / b, nil
	case OpPow:
		return float32(math.Pow(float64(a), float64(b))), nil
	}
	return 0, apperrors.InvalidState("unknown binary operation " + n.Op.String())
}

// lookupTag evaluates the index operand of a query or find and derives the
// tag "<right>.<index>".
func lookupTag(n *OpNode, r Resolver) (tag.Tag, error) {
	idx, err := evalNum(n.Args[0], r)
	if err != nil {
		return tag.Tag{}, err
	}
	f := float64(idx)
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return tag.Tag{}, invalidIndex(n, "index "+strconv.FormatFloat(f, 'g', -1, 32)+" is not a non-negative integer")
	}
	switch base := n.Args[1].(type) {
	case TagNode:
		out, err := base.Tag.Join(strconv.Itoa(int(f)))
		if err != nil {
			return tag.Tag{}, apperrors.Wrap(apperrors.CodeTagParse, "derive tag: "+err.Error(), err)
		}
		return out, nil
	case TemplateNode:
		return tag.Tag{}, apperrors.MissingTemplateValues(base.Inputs)
	}
	return tag.Tag{}, invalidIndex(n, "lookup target is not a tag")
}

func evalBool(n Node, r Resolver) (bool, error) {
	switch n := n.(type) {
	case BoolNode:
		return n.Value, nil
	case NumberNode:
		return false, mismatch(n, KindBool, KindNumber)
	case TagNode:
		return r.ResolveBool(n.Tag)
	case TemplateNode:
		return false, apperrors.MissingTemplateValues(n.Inputs)
	case *OpNode:
		return evalBoolOp(n, r)
	}
	return false, apperrors.InvalidState("unknown formula node")
}

func evalBoolOp(n *OpNode, r Resolver) (bool, error) {
	switch n.Op {
	case OpTernary:
		cond, err := evalBool(n.Args[0], r)
		if err != nil {
			return false, err
		}
		if cond {
			return evalBool(n.Args[1], r)
		}
		return evalBool(n.Args[2], r)
	case OpNot:
		x, err := evalBool(n.Args[0], r)
		if err != nil {
			return false, err
		}
		return !x, nil
	case OpAnd, OpOr:
		a, err := evalBool(n.Args[0], r)
		if err != nil {
			return false, err
		}
		if (n.Op == OpAnd && !a) || (n.Op == OpOr && a) {
			return a, nil
		}
		return evalBool(n.Args[1], r)
	case OpEqual, OpNotEqual:
		left, right := staticKind(n.Args[0]), staticKind(n.Args[1])
		if left == KindBool || right == KindBool {
			return equalBool(n, r)
		}
		eq, err := compareNum(n, r)
		// Two tags of unknown kind may both name boolean entries.
		if left == KindUnknown && right == KindUnknown &&
			apperrors.HasCode(err, apperrors.CodeConflictingExpectedType) {
			return equalBool(n, r)
		}
		return eq, err
	}
	return compareNum(n, r)
}

func equalBool(n *OpNode, r Resolver) (bool, error) {
	a, err := evalBool(n.Args[0], r)
	if err != nil {
		return false, err
	}
	b, err := evalBool(n.Args[1], r)
	if err != nil {
		return false, err
	}
	return (a == b) == (n.Op == OpEqual), nil
}

func compareNum(n *OpNode, r Resolver) (bool, error) {
	if n.Op.ResultKind() != KindBool {
		return false, mismatch(n, KindBool, KindNumber)
	}

	a, err := evalNum(n.Args[0], r)
	if err != nil {
		return false, err
	}
	b, err := evalNum(n.Args[1], r)
	if err != nil {
		return false, err
	}
	switch n.Op {
	case OpEqual:
		return a == b, nil
	case OpNotEqual:
		return a != b, nil
	case OpLess:
		return a < b, nil
	case OpLessEqual:
		return a <= b, nil
	case OpGreater:
		return a > b, nil
	case OpGreaterEqual:
		return a >= b, nil
	}
	return false, apperrors.InvalidState("unknown comparison " + n.Op.String())
}
