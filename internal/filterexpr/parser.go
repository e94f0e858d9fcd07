// Package filterexpr parses textual boolean filter expressions such as
//
//	title LIKE 'War%' AND (author_id IN (1, 2, 3) OR id = 4)
//
// and builds them into criteria filter trees.
package filterexpr

import (
	"fmt"
	"strconv"

	"github.com/smhg/criteria/internal/criteria"
)

// Parse parses a filter expression into an AST. OR binds looser than AND.
func Parse(input string) (Node, error) {
	p := &parser{lexer: NewLexer(input)}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	// Ensure we consumed everything.
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind != TokEOF {
		return nil, p.errorf(tok.Pos, "unexpected %s, expected end of expression", tok.Kind)
	}
	return node, nil
}

type parser struct {
	lexer *Lexer
}

// parseOr: andExpr { "or" andExpr }
func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokOr {
			return left, nil
		}
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: criteria.Or, Left: left, Right: right}
	}
}

// parseAnd: primary { "and" primary }
func (p *parser) parseAnd() (Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokAnd {
			return left, nil
		}
		p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: criteria.And, Left: left, Right: right}
	}
}

// parsePrimary: "(" orExpr ")" | comparison
func (p *parser) parsePrimary() (Node, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case TokLParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case TokIdent:
		return p.parseComparison()
	}
	return nil, p.errorf(tok.Pos, "unexpected %s, expected column or '('", tok.Kind)
}

func (p *parser) parseComparison() (Node, error) {
	col, _ := p.lexer.Next()
	cmp := &Comparison{Column: col.Lit}

	tok, err := p.lexer.Next()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case TokEq, TokNeq, TokGt, TokGte, TokLt, TokLte:
		cmp.Op = comparisonOps[tok.Kind]
		if cmp.Value, err = p.parseValue(); err != nil {
			return nil, err
		}
		return cmp, nil

	case TokLike, TokILike:
		cmp.Op = criteria.OpLike
		if tok.Kind == TokILike {
			cmp.Op = criteria.OpILike
		}
		return p.finishLike(cmp)

	case TokIn:
		cmp.Op = criteria.OpIn
		return p.finishIn(cmp)

	case TokIs:
		negate, err := p.accept(TokNot)
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokNull); err != nil {
			return nil, err
		}
		cmp.Op = criteria.OpIsNull
		if negate {
			cmp.Op = criteria.OpIsNotNull
		}
		return cmp, nil

	case TokNot:
		next, err := p.lexer.Next()
		if err != nil {
			return nil, err
		}
		switch next.Kind {
		case TokLike:
			cmp.Op = criteria.OpNotLike
			return p.finishLike(cmp)
		case TokILike:
			cmp.Op = criteria.OpNotILike
			return p.finishLike(cmp)
		case TokIn:
			cmp.Op = criteria.OpNotIn
			return p.finishIn(cmp)
		}
		return nil, p.errorf(next.Pos, "unexpected %s after not, expected like, ilike or in", next.Kind)
	}
	return nil, p.errorf(tok.Pos, "unexpected %s after column %s, expected operator", tok.Kind, cmp.Column)
}

var comparisonOps = map[TokenKind]criteria.Operator{
	TokEq:  criteria.OpEq,
	TokNeq: criteria.OpNeq,
	TokGt:  criteria.OpGt,
	TokGte: criteria.OpGte,
	TokLt:  criteria.OpLt,
	TokLte: criteria.OpLte,
}

func (p *parser) finishLike(cmp *Comparison) (Node, error) {
	tok, err := p.lexer.Next()
	if err != nil {
		return nil, err
	}
	if tok.Kind != TokString {
		return nil, p.errorf(tok.Pos, "expected string pattern after %s, got %s", cmp.Op, tok.Kind)
	}
	cmp.Value = tok.Lit
	return cmp, nil
}

// finishIn parses "(" [ value { "," value } ] ")".
func (p *parser) finishIn(cmp *Comparison) (Node, error) {
	if err := p.expect(TokLParen); err != nil {
		return nil, err
	}
	cmp.Values = []any{}
	closed, err := p.accept(TokRParen)
	if err != nil {
		return nil, err
	}
	for !closed {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		cmp.Values = append(cmp.Values, v)

		tok, err := p.lexer.Next()
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case TokComma:
		case TokRParen:
			closed = true
		default:
			return nil, p.errorf(tok.Pos, "expected ',' or ')' in list, got %s", tok.Kind)
		}
	}
	return cmp, nil
}

// parseValue: string | ["-"] number | true | false | null
func (p *parser) parseValue() (any, error) {
	tok, err := p.lexer.Next()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case TokString:
		return tok.Lit, nil
	case TokNumber:
		return parseNumber(tok.Lit)
	case TokMinus:
		num, err := p.lexer.Next()
		if err != nil {
			return nil, err
		}
		if num.Kind != TokNumber {
			return nil, p.errorf(num.Pos, "expected number after '-', got %s", num.Kind)
		}
		return parseNumber("-" + num.Lit)
	case TokTrue:
		return true, nil
	case TokFalse:
		return false, nil
	case TokNull:
		return nil, nil
	}
	return nil, p.errorf(tok.Pos, "unexpected %s, expected value", tok.Kind)
}

func parseNumber(lit string) (any, error) {
	if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", lit, err)
	}
	return f, nil
}

func (p *parser) peek() (Token, error) {
	return p.lexer.Peek()
}

func (p *parser) advance() {
	p.lexer.Next() //nolint:errcheck
}

// accept consumes the next token if it has the given kind.
func (p *parser) accept(kind TokenKind) (bool, error) {
	tok, err := p.peek()
	if err != nil {
		return false, err
	}
	if tok.Kind != kind {
		return false, nil
	}
	p.advance()
	return true, nil
}

func (p *parser) expect(kind TokenKind) error {
	tok, err := p.lexer.Next()
	if err != nil {
		return err
	}
	if tok.Kind != kind {
		return p.errorf(tok.Pos, "expected %s, got %s", kind, tok.Kind)
	}
	return nil
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	return fmt.Errorf("parse error at position %d: %s", pos, fmt.Sprintf(format, args...))
}
