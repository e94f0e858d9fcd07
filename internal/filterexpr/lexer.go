package filterexpr

import (
	"fmt"
	"strings"
	"unicode"
)

// Lexer tokenizes a filter expression.
type Lexer struct {
	input  []rune
	pos    int
	peeked *Token
}

// NewLexer creates a lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: []rune(input)}
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (Token, error) {
	if l.peeked != nil {
		return *l.peeked, nil
	}
	tok, err := l.next()
	if err != nil {
		return Token{}, err
	}
	l.peeked = &tok
	return tok, nil
}

// Next consumes and returns the next token.
func (l *Lexer) Next() (Token, error) {
	if l.peeked != nil {
		tok := *l.peeked
		l.peeked = nil
		return tok, nil
	}
	return l.next()
}

func (l *Lexer) next() (Token, error) {
	l.skipWhitespace()
	if l.pos >= len(l.input) {
		return Token{Kind: TokEOF, Pos: l.pos}, nil
	}

	ch := l.input[l.pos]
	pos := l.pos

	switch ch {
	case '(':
		l.pos++
		return Token{Kind: TokLParen, Lit: "(", Pos: pos}, nil
	case ')':
		l.pos++
		return Token{Kind: TokRParen, Lit: ")", Pos: pos}, nil
	case ',':
		l.pos++
		return Token{Kind: TokComma, Lit: ",", Pos: pos}, nil
	case '-':
		if l.peekRune(1) == '-' {
			l.skipLineComment()
			return l.next()
		}
		l.pos++
		return Token{Kind: TokMinus, Lit: "-", Pos: pos}, nil
	case '=':
		if l.peekRune(1) == '=' {
			l.pos += 2
			return Token{Kind: TokEq, Lit: "==", Pos: pos}, nil
		}
		l.pos++
		return Token{Kind: TokEq, Lit: "=", Pos: pos}, nil
	case '!':
		if l.peekRune(1) == '=' {
			l.pos += 2
			return Token{Kind: TokNeq, Lit: "!=", Pos: pos}, nil
		}
		return Token{}, l.errorf(pos, "unexpected '!', did you mean '!='?")
	case '>':
		if l.peekRune(1) == '=' {
			l.pos += 2
			return Token{Kind: TokGte, Lit: ">=", Pos: pos}, nil
		}
		l.pos++
		return Token{Kind: TokGt, Lit: ">", Pos: pos}, nil
	case '<':
		switch l.peekRune(1) {
		case '=':
			l.pos += 2
			return Token{Kind: TokLte, Lit: "<=", Pos: pos}, nil
		case '>':
			l.pos += 2
			return Token{Kind: TokNeq, Lit: "<>", Pos: pos}, nil
		}
		l.pos++
		return Token{Kind: TokLt, Lit: "<", Pos: pos}, nil
	case '\'', '"':
		return l.readString(pos, ch)
	default:
		if unicode.IsDigit(ch) {
			return l.readNumber(pos)
		}
		if isIdentStart(ch) {
			return l.readIdent(pos)
		}
		return Token{}, l.errorf(pos, "unexpected character %q", ch)
	}
}

func (l *Lexer) peekRune(offset int) rune {
	if l.pos+offset < len(l.input) {
		return l.input[l.pos+offset]
	}
	return 0
}

// readString reads a quoted literal. A doubled quote or a backslash escapes the quote character.
func (l *Lexer) readString(pos int, quote rune) (Token, error) {
	l.pos++ // skip opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == '\\' && l.pos+1 < len(l.input):
			sb.WriteRune(l.input[l.pos+1])
			l.pos += 2
		case ch == quote && l.peekRune(1) == quote:
			sb.WriteRune(quote)
			l.pos += 2
		case ch == quote:
			l.pos++ // skip closing quote
			return Token{Kind: TokString, Lit: sb.String(), Pos: pos}, nil
		default:
			sb.WriteRune(ch)
			l.pos++
		}
	}
	return Token{}, l.errorf(pos, "unterminated string literal")
}

func (l *Lexer) readNumber(pos int) (Token, error) {
	start := l.pos
	for l.pos < len(l.input) && unicode.IsDigit(l.input[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.input) && l.input[l.pos] == '.' && unicode.IsDigit(l.peekRune(1)) {
		l.pos++ // consume .
		for l.pos < len(l.input) && unicode.IsDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.input) && isIdentStart(l.input[l.pos]) {
		return Token{}, l.errorf(pos, "malformed number %q", string(l.input[start:l.pos+1]))
	}
	return Token{Kind: TokNumber, Lit: string(l.input[start:l.pos]), Pos: pos}, nil
}

// readIdent reads an identifier. Dots join segments, so "Author.Name" is one token.
func (l *Lexer) readIdent(pos int) (Token, error) {
	start := l.pos
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if isIdentCont(ch) {
			l.pos++
			continue
		}
		if ch == '.' && isIdentStart(l.peekRune(1)) {
			l.pos++
			continue
		}
		break
	}
	lit := string(l.input[start:l.pos])
	kind := TokIdent
	if kw, ok := keyword(lit); ok {
		kind = kw
	}
	return Token{Kind: kind, Lit: lit, Pos: pos}, nil
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) skipLineComment() {
	for l.pos < len(l.input) && l.input[l.pos] != '\n' {
		l.pos++
	}
}

func (l *Lexer) errorf(pos int, format string, args ...any) error {
	return fmt.Errorf("lexer error at position %d: %s", pos, fmt.Sprintf(format, args...))
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isIdentCont(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}
