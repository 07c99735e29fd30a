package formula

import (
	"slices"

	"github.com/louisbranch/rulesheet/internal/core/tag"
)

// Tree is a parsed formula. It is immutable after Parse and safe for
// concurrent evaluation.
type Tree struct {
	source   string
	root     Node
	template bool
	inputs   []string
	tags     []tag.Tag
}

// Parse tokenizes and parses src with the default nesting limit.
func Parse(src string) (*Tree, error) {
	return ParseWithDepth(src, DefaultMaxDepth)
}

// ParseWithDepth is Parse with an explicit nesting limit.
func ParseWithDepth(src string, maxDepth int) (*Tree, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	root, err := newParser(tokens, len(src), maxDepth).parseAll()
	if err != nil {
		return nil, err
	}

	t := &Tree{source: src, root: root}
	seenTags := map[tag.Tag]bool{}
	walk(root, func(n Node) {
		switch n := n.(type) {
		case TagNode:
			if !seenTags[n.Tag] {
				seenTags[n.Tag] = true
				t.tags = append(t.tags, n.Tag)
			}
		case TemplateNode:
			t.template = true
			for _, in := range n.Inputs {
				if !slices.Contains(t.inputs, in) {
					t.inputs = append(t.inputs, in)
				}
			}
		}
	})
	slices.SortFunc(t.tags, tag.Compare)
	slices.Sort(t.inputs)
	return t, nil
}

// MustParse is Parse for formulas known to be valid; it panics otherwise.
func MustParse(src string) *Tree {
	t, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return t
}

// Source returns the text the tree was parsed from.
func (t *Tree) Source() string {
	return t.source
}

// String renders the tree fully parenthesized, which makes precedence
// explicit.
func (t *Tree) String() string {
	return t.root.String()
}

// Root returns the top node.
func (t *Tree) Root() Node {
	return t.root
}

// IsTemplate reports whether any tag reference still has placeholders.
func (t *Tree) IsTemplate() bool {
	return t.template
}

// RequiredInputs returns placeholder names across the formula, sorted.
func (t *Tree) RequiredInputs() []string {
	return slices.Clone(t.inputs)
}

// Tags returns the concrete tags referenced, sorted and unique.
func (t *Tree) Tags() []tag.Tag {
	return slices.Clone(t.tags)
}

// StaticKind reports the kind the formula produces when that is known
// without resolving tags.
func (t *Tree) StaticKind() Kind {
	return staticKind(t.root)
}

func staticKind(n Node) Kind {
	switch n := n.(type) {
	case NumberNode:
		return KindNumber
	case BoolNode:
		return KindBool
	case *OpNode:
		if n.Op == OpTernary {
			a, b := staticKind(n.Args[1]), staticKind(n.Args[2])
			if a == b {
				return a
			}
			return KindUnknown
		}
		return n.Op.ResultKind()
	default:
		return KindUnknown
	}
}
