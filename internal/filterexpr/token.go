package filterexpr

import (
	"fmt"
	"strings"
)

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokEOF    TokenKind = iota
	TokLParen           // (
	TokRParen           // )
	TokComma            // ,
	TokMinus            // -
	TokEq               // = or ==
	TokNeq              // != or <>
	TokGt               // >
	TokGte              // >=
	TokLt               // <
	TokLte              // <=
	TokIdent            // identifier, possibly dotted
	TokString           // 'string literal'
	TokNumber           // 42, 3.14
	TokTrue             // true
	TokFalse            // false
	TokNull             // null
	TokAnd              // and
	TokOr               // or
	TokNot              // not
	TokLike             // like
	TokILike            // ilike
	TokIn               // in
	TokIs               // is
)

// Token is a single lexical token produced by the lexer.
type Token struct {
	Kind TokenKind
	Lit  string // raw text of the token, unquoted for strings
	Pos  int    // rune offset in input
}

func (t Token) String() string {
	if t.Lit != "" {
		return fmt.Sprintf("%s(%q)", t.Kind, t.Lit)
	}
	return t.Kind.String()
}

var kindNames = map[TokenKind]string{
	TokEOF:    "EOF",
	TokLParen: "(",
	TokRParen: ")",
	TokComma:  ",",
	TokMinus:  "-",
	TokEq:     "=",
	TokNeq:    "<>",
	TokGt:     ">",
	TokGte:    ">=",
	TokLt:     "<",
	TokLte:    "<=",
	TokIdent:  "identifier",
	TokString: "string",
	TokNumber: "number",
	TokTrue:   "true",
	TokFalse:  "false",
	TokNull:   "null",
	TokAnd:    "and",
	TokOr:     "or",
	TokNot:    "not",
	TokLike:   "like",
	TokILike:  "ilike",
	TokIn:     "in",
	TokIs:     "is",
}

func (k TokenKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

var keywords = map[string]TokenKind{
	"true":  TokTrue,
	"false": TokFalse,
	"null":  TokNull,
	"and":   TokAnd,
	"or":    TokOr,
	"not":   TokNot,
	"like":  TokLike,
	"ilike": TokILike,
	"in":    TokIn,
	"is":    TokIs,
}

// keyword looks an identifier up case-insensitively.
func keyword(lit string) (TokenKind, bool) {
	k, ok := keywords[strings.ToLower(lit)]
	return k, ok
}
