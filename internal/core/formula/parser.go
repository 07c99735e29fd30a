package formula

import (
	"github.com/louisbranch/rulesheet/internal/core/tag"
	apperrors "github.com/louisbranch/rulesheet/internal/platform/errors"
)

// DefaultMaxDepth bounds expression nesting during parsing.
const DefaultMaxDepth = 256

type parser struct {
	tokens   []Token
	pos      int
	depth    int
	maxDepth int
	parens   int
	end      Token
}

func newParser(tokens []Token, srcLen, maxDepth int) *parser {
	return &parser{
		tokens:   tokens,
		maxDepth: maxDepth,
		end:      Token{Kind: TokenEOF, Pos: srcLen},
	}
}

func (p *parser) peek() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return p.end
}

func (p *parser) advance() Token {
	t := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

// parseAll parses one expression and requires every token to be consumed.
func (p *parser) parseAll() (Node, error) {
	if len(p.tokens) == 0 {
		return nil, syntaxError(KindEmpty, p.end)
	}
	n, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.Kind != TokenEOF {
		if t.Kind == TokenRightParen {
			return nil, syntaxError(KindUnbalancedParentheses, t)
		}
		return nil, syntaxError(KindUnexpectedToken, t)
	}
	return n, nil
}

// expr parses operators binding at least as tightly as minPrec.
func (p *parser) expr(minPrec int) (Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.maxDepth {
		return nil, syntaxError(KindTooDeep, p.peek())
	}

	left, err := p.prefix()
	if err != nil {
		return nil, err
	}

	for {
		t := p.peek()
		if t.Kind != TokenOperator || t.Op.IsPrefix() {
			return left, nil
		}
		prec := t.Op.Precedence()
		if prec < minPrec {
			return left, nil
		}
		p.advance()

		next := prec + 1
		if t.Op.rightAssociative() {
			next = prec
		}

		if t.Op == OpTernary {
			mid, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			colon := p.advance()
			if colon.Kind != TokenColon {
				if colon.Kind == TokenEOF {
					return nil, syntaxError(KindUnexpectedEnd, colon)
				}
				return nil, syntaxError(KindUnexpectedToken, colon)
			}
			right, err := p.expr(next)
			if err != nil {
				return nil, err
			}
			left = &OpNode{Op: OpTernary, Args: []Node{left, mid, right}}
			continue
		}

		right, err := p.expr(next)
		if err != nil {
			return nil, err
		}
		if t.Op == OpQuery || t.Op == OpFind {
			if _, ok := right.(TagNode); !ok {
				if _, ok := right.(TemplateNode); !ok {
					return nil, syntaxError(KindExpectedTag, t)
				}
			}
		}
		left = &OpNode{Op: t.Op, Args: []Node{left, right}}
	}
}

func (p *parser) prefix() (Node, error) {
	t := p.advance()
	switch t.Kind {
	case TokenNumber:
		return NumberNode{Value: t.Num}, nil
	case TokenBool:
		return BoolNode{Value: t.Bool}, nil
	case TokenTag:
		return tagNode(t)
	case TokenLeftParen:
		p.parens++
		inner, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		closing := p.advance()
		switch closing.Kind {
		case TokenRightParen:
			p.parens--
			return inner, nil
		case TokenEOF:
			return nil, syntaxError(KindMissingParentheses, closing)
		default:
			return nil, syntaxError(KindUnexpectedToken, closing)
		}
	case TokenRightParen:
		if p.parens == 0 {
			return nil, syntaxError(KindUnbalancedParentheses, t)
		}
		return nil, syntaxError(KindUnexpectedToken, t)
	case TokenOperator:
		if !t.Op.IsPrefix() {
			return nil, syntaxError(KindUnexpectedToken, t)
		}
		operand, err := p.expr(precPrefix)
		if err != nil {
			return nil, err
		}
		return &OpNode{Op: t.Op, Args: []Node{operand}}, nil
	case TokenEOF:
		return nil, syntaxError(KindUnexpectedEnd, t)
	default:
		return nil, syntaxError(KindUnexpectedToken, t)
	}
}

func tagNode(t Token) (Node, error) {
	tmpl, err := tag.ParseTemplate(t.Text)
	if err != nil {
		return nil, apperrors.WrapWithMetadata(apperrors.CodeTagParse, "parse tag: "+err.Error(),
			map[string]string{apperrors.MetaTag: t.Text}, err)
	}
	if tmpl.IsTemplate() {
		return TemplateNode{Raw: tmpl.String(), Inputs: tmpl.RequiredInputs()}, nil
	}
	out, _ := tmpl.Tag()
	return TagNode{Tag: out}, nil
}
