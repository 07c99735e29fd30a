package formula

import (
	"strconv"
	"strings"

	"github.com/louisbranch/rulesheet/internal/core/tag"
)

// Node is one vertex of a parsed formula.
type Node interface {
	// String renders the node fully parenthesized.
	String() string
	node()
}

// NumberNode is a numeric literal.
type NumberNode struct {
	Value float32
}

// BoolNode is a true/false literal.
type BoolNode struct {
	Value bool
}

// TagNode references a value by tag.
type TagNode struct {
	Tag tag.Tag
}

// TemplateNode references a tag that still has unfilled placeholders.
type TemplateNode struct {
	Raw    string
	Inputs []string
}

// OpNode applies an operation to its arguments, in source order.
type OpNode struct {
	Op   Operation
	Args []Node
}

func (NumberNode) node()   {}
func (BoolNode) node()     {}
func (TagNode) node()      {}
func (TemplateNode) node() {}
func (*OpNode) node()      {}

func (n NumberNode) String() string {
	return strconv.FormatFloat(float64(n.Value), 'g', -1, 32)
}

func (n BoolNode) String() string {
	return strconv.FormatBool(n.Value)
}

func (n TagNode) String() string {
	return n.Tag.String()
}

func (n TemplateNode) String() string {
	return n.Raw
}

func (n *OpNode) String() string {
	var b strings.Builder
	switch {
	case n.Op == OpTernary:
		b.WriteString("(")
		b.WriteString(n.Args[0].String())
		b.WriteString(" ? ")
		b.WriteString(n.Args[1].String())
		b.WriteString(" : ")
		b.WriteString(n.Args[2].String())
		b.WriteString(")")
	case n.Op.IsPrefix():
		b.WriteString(n.Op.String())
		b.WriteString("(")
		b.WriteString(n.Args[0].String())
		b.WriteString(")")
	default:
		b.WriteString("(")
		b.WriteString(n.Args[0].String())
		b.WriteString(" ")
		b.WriteString(n.Op.String())
		b.WriteString(" ")
		b.WriteString(n.Args[1].String())
		b.WriteString(")")
	}
	return b.String()
}

// walk visits n and its descendants depth first.
func walk(n Node, visit func(Node)) {
	visit(n)
	if op, ok := n.(*OpNode); ok {
		for _, arg := range op.Args {
			walk(arg, visit)
		}
	}
}
