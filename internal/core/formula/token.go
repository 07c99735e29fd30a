package formula

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenKind classifies tokens.
type TokenKind int

const (
	TokenNumber TokenKind = iota + 1
	TokenBool
	TokenTag
	TokenOperator
	TokenLeftParen
	TokenRightParen
	TokenColon
	TokenEOF
)

// Token is one lexical unit of a formula.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
	Op   Operation // TokenOperator
	Num  float32   // TokenNumber
	Bool bool      // TokenBool
}

// Tokenize splits src into tokens. A leading "-" or "!", or one following an
// operator, "(" or ":", is a prefix operator; elsewhere "-" subtracts.
//
// Identifier runs are letters, digits, spaces, dots and bracketed
// placeholders. Within a run, a whole space-separated word equal to a keyword
// (sqrt, pow, round, roundup, rounddown, find) or to true/false becomes its
// own token, and the words between keywords form tag references.
func Tokenize(src string) ([]Token, error) {
	lx := lexer{src: src}
	for lx.pos < len(src) {
		if err := lx.next(); err != nil {
			return nil, err
		}
	}
	return lx.tokens, nil
}

type lexer struct {
	src    string
	pos    int
	tokens []Token
}

func (lx *lexer) emit(t Token) {
	lx.tokens = append(lx.tokens, t)
}

func (lx *lexer) emitOp(op Operation, text string) {
	lx.emit(Token{Kind: TokenOperator, Op: op, Text: text, Pos: lx.pos})
	lx.pos += len(text)
}

// prefixPosition reports whether the next token starts an operand.
func (lx *lexer) prefixPosition() bool {
	if len(lx.tokens) == 0 {
		return true
	}
	switch lx.tokens[len(lx.tokens)-1].Kind {
	case TokenOperator, TokenLeftParen, TokenColon:
		return true
	}
	return false
}

func (lx *lexer) peekByte(offset int) byte {
	if lx.pos+offset < len(lx.src) {
		return lx.src[lx.pos+offset]
	}
	return 0
}

func (lx *lexer) next() error {
	c := lx.src[lx.pos]
	switch {
	case c == ' ' || c == '\t' || c == '\n' || c == '\r':
		lx.pos++
		return nil
	case isDigit(c) || (c == '.' && isDigit(lx.peekByte(1))):
		return lx.number()
	case c == '[' || c >= utf8.RuneSelf || unicode.IsLetter(rune(c)):
		return lx.identifier()
	}

	switch c {
	case '+':
		lx.emitOp(OpAdd, "+")
	case '*':
		lx.emitOp(OpMultiply, "*")
	case '/':
		lx.emitOp(OpDivide, "/")
	case '^':
		lx.emitOp(OpPow, "^")
	case '?':
		lx.emitOp(OpTernary, "?")
	case '-':
		if lx.prefixPosition() {
			lx.emitOp(OpNegate, "-")
		} else {
			lx.emitOp(OpSubtract, "-")
		}
	case '!':
		switch {
		case lx.peekByte(1) == '=':
			lx.emitOp(OpNotEqual, "!=")
		case lx.prefixPosition():
			lx.emitOp(OpNot, "!")
		default:
			return tokenizationError(KindMisplacedOperator, lx.pos, "!")
		}
	case '=':
		if lx.peekByte(1) != '=' {
			return tokenizationError(KindInvalidCharacter, lx.pos, "=")
		}
		lx.emitOp(OpEqual, "==")
	case '<':
		if lx.peekByte(1) == '=' {
			lx.emitOp(OpLessEqual, "<=")
		} else {
			lx.emitOp(OpLess, "<")
		}
	case '>':
		if lx.peekByte(1) == '=' {
			lx.emitOp(OpGreaterEqual, ">=")
		} else {
			lx.emitOp(OpGreater, ">")
		}
	case '&':
		if lx.peekByte(1) != '&' {
			return tokenizationError(KindInvalidCharacter, lx.pos, "&")
		}
		lx.emitOp(OpAnd, "&&")
	case '|':
		if lx.peekByte(1) != '|' {
			return tokenizationError(KindInvalidCharacter, lx.pos, "|")
		}
		lx.emitOp(OpOr, "||")
	case ':':
		if lx.peekByte(1) == ':' {
			lx.emitOp(OpQuery, "::")
		} else {
			lx.emit(Token{Kind: TokenColon, Text: ":", Pos: lx.pos})
			lx.pos++
		}
	case '(':
		lx.emit(Token{Kind: TokenLeftParen, Text: "(", Pos: lx.pos})
		lx.pos++
	case ')':
		lx.emit(Token{Kind: TokenRightParen, Text: ")", Pos: lx.pos})
		lx.pos++
	default:
		r, _ := utf8.DecodeRuneInString(lx.src[lx.pos:])
		return tokenizationError(KindInvalidCharacter, lx.pos, string(r))
	}
	return nil
}

func (lx *lexer) number() error {
	start := lx.pos
	dots := 0
	for lx.pos < len(lx.src) && (isDigit(lx.src[lx.pos]) || lx.src[lx.pos] == '.') {
		if lx.src[lx.pos] == '.' {
			dots++
		}
		lx.pos++
	}
	text := lx.src[start:lx.pos]
	if dots > 1 {
		return tokenizationError(KindMultipleDecimalPoints, start, text)
	}
	v, err := strconv.ParseFloat(text, 32)
	if err != nil {
		return tokenizationError(KindInvalidCharacter, start, text)
	}
	lx.emit(Token{Kind: TokenNumber, Text: text, Pos: start, Num: float32(v)})
	return nil
}

// word is a space-separated piece of an identifier run.
type word struct {
	text  string
	start int
}

func (lx *lexer) identifier() error {
	start := lx.pos
	var words []word
	wordStart := -1
	flush := func(end int) {
		if wordStart >= 0 {
			words = append(words, word{text: lx.src[wordStart:end], start: wordStart})
			wordStart = -1
		}
	}

	for lx.pos < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		switch {
		case r == ' ':
			flush(lx.pos)
		case r == '[':
			end := strings.IndexByte(lx.src[lx.pos:], ']')
			if end < 0 {
				return tokenizationError(KindUnclosedPlaceholder, lx.pos, lx.src[lx.pos:])
			}
			if wordStart < 0 {
				wordStart = lx.pos
			}
			lx.pos += end + 1
			continue
		case r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r):
			if wordStart < 0 {
				wordStart = lx.pos
			}
		default:
			flush(lx.pos)
			if len(words) == 0 {
				return tokenizationError(KindInvalidCharacter, lx.pos, string(r))
			}
			lx.emitWords(words)
			return nil
		}
		lx.pos += size
	}
	flush(lx.pos)
	if len(words) == 0 {
		return tokenizationError(KindInvalidCharacter, start, lx.src[start:lx.pos])
	}
	lx.emitWords(words)
	return nil
}

// emitWords turns the words of one identifier run into tokens, grouping
// consecutive non-keyword words into a single tag reference.
func (lx *lexer) emitWords(words []word) {
	group := -1
	flushGroup := func(upTo int) {
		if group < 0 {
			return
		}
		first, last := words[group], words[upTo-1]
		text := lx.src[first.start : last.start+len(last.text)]
		lx.emit(Token{Kind: TokenTag, Text: text, Pos: first.start})
		group = -1
	}
	for i, w := range words {
		if op, ok := keywords[w.text]; ok {
			flushGroup(i)
			lx.emit(Token{Kind: TokenOperator, Op: op, Text: w.text, Pos: w.start})
			continue
		}
		if w.text == "true" || w.text == "false" {
			flushGroup(i)
			lx.emit(Token{Kind: TokenBool, Bool: w.text == "true", Text: w.text, Pos: w.start})
			continue
		}
		if group < 0 {
			group = i
		}
	}
	flushGroup(len(words))
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
