package filterexpr

import (
	"strings"
	"testing"
)

func collectTokens(t *testing.T, input string) []Token {
	t.Helper()
	lex := NewLexer(input)
	var tokens []Token
	for {
		tok, err := lex.Next()
		if err != nil {
			t.Fatalf("lexer error on %q: %v", input, err)
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokEOF {
			break
		}
	}
	return tokens
}

func TestLexerOperators(t *testing.T) {
	tests := []struct {
		input string
		kind  TokenKind
		lit   string
	}{
		{"(", TokLParen, "("},
		{")", TokRParen, ")"},
		{",", TokComma, ","},
		{"-", TokMinus, "-"},
		{"=", TokEq, "="},
		{"==", TokEq, "=="},
		{"!=", TokNeq, "!="},
		{"<>", TokNeq, "<>"},
		{">=", TokGte, ">="},
		{"<=", TokLte, "<="},
		{">", TokGt, ">"},
		{"<", TokLt, "<"},
	}
	for _, tt := range tests {
		toks := collectTokens(t, tt.input)
		if len(toks) != 2 { // token + EOF
			t.Errorf("input %q: expected 2 tokens, got %d", tt.input, len(toks))
			continue
		}
		if toks[0].Kind != tt.kind {
			t.Errorf("input %q: expected %v, got %v", tt.input, tt.kind, toks[0].Kind)
		}
		if toks[0].Lit != tt.lit {
			t.Errorf("input %q: expected lit %q, got %q", tt.input, tt.lit, toks[0].Lit)
		}
	}
}

func TestLexerKeywords(t *testing.T) {
	tests := []struct {
		input string
		kind  TokenKind
	}{
		{"and", TokAnd},
		{"AND", TokAnd},
		{"Or", TokOr},
		{"not", TokNot},
		{"LIKE", TokLike},
		{"ilike", TokILike},
		{"in", TokIn},
		{"IS", TokIs},
		{"null", TokNull},
		{"TRUE", TokTrue},
		{"false", TokFalse},
	}
	for _, tt := range tests {
		toks := collectTokens(t, tt.input)
		if toks[0].Kind != tt.kind {
			t.Errorf("input %q: expected %v, got %v", tt.input, tt.kind, toks[0].Kind)
		}
	}
}

func TestLexerIdentifiers(t *testing.T) {
	tests := []struct {
		input string
		lit   string
	}{
		{"title", "title"},
		{"author_id", "author_id"},
		{"Author.Name", "Author.Name"},
		{"b.title", "b.title"},
		{"_x1", "_x1"},
		{"android", "android"},
	}
	for _, tt := range tests {
		toks := collectTokens(t, tt.input)
		if toks[0].Kind != TokIdent {
			t.Errorf("input %q: expected identifier, got %v", tt.input, toks[0].Kind)
		}
		if toks[0].Lit != tt.lit {
			t.Errorf("input %q: expected lit %q, got %q", tt.input, tt.lit, toks[0].Lit)
		}
	}
}

func TestLexerLiterals(t *testing.T) {
	tests := []struct {
		input string
		kind  TokenKind
		lit   string
	}{
		{"42", TokNumber, "42"},
		{"3.14", TokNumber, "3.14"},
		{"'War%'", TokString, "War%"},
		{`"double"`, TokString, "double"},
		{"'O''Neil'", TokString, "O'Neil"},
		{`'a\'b'`, TokString, "a'b"},
		{"''", TokString, ""},
	}
	for _, tt := range tests {
		toks := collectTokens(t, tt.input)
		if toks[0].Kind != tt.kind {
			t.Errorf("input %q: expected %v, got %v", tt.input, tt.kind, toks[0].Kind)
		}
		if toks[0].Lit != tt.lit {
			t.Errorf("input %q: expected lit %q, got %q", tt.input, tt.lit, toks[0].Lit)
		}
	}
}

func TestLexerExpression(t *testing.T) {
	toks := collectTokens(t, "title LIKE 'War%' AND (id IN (1, 2) OR id >= -3) -- trailing comment")
	want := []TokenKind{
		TokIdent, TokLike, TokString, TokAnd, TokLParen,
		TokIdent, TokIn, TokLParen, TokNumber, TokComma, TokNumber, TokRParen,
		TokOr, TokIdent, TokGte, TokMinus, TokNumber, TokRParen, TokEOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(toks), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: expected %v, got %v", i, k, toks[i].Kind)
		}
	}
	if toks[5].Pos != 23 {
		t.Errorf("expected id at position 23, got %d", toks[5].Pos)
	}
}

func TestLexerPeek(t *testing.T) {
	lex := NewLexer("a = 1")
	p1, _ := lex.Peek()
	p2, _ := lex.Peek()
	if p1 != p2 {
		t.Fatalf("peek is not idempotent: %v vs %v", p1, p2)
	}
	n, _ := lex.Next()
	if n != p1 {
		t.Fatalf("next after peek: expected %v, got %v", p1, n)
	}
	n, _ = lex.Next()
	if n.Kind != TokEq {
		t.Fatalf("expected =, got %v", n.Kind)
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"'open", "unterminated string"},
		{"a ! b", "did you mean '!='"},
		{"a # b", "unexpected character"},
		{"12ab", "malformed number"},
	}
	for _, tt := range tests {
		lex := NewLexer(tt.input)
		var err error
		for err == nil {
			var tok Token
			tok, err = lex.Next()
			if tok.Kind == TokEOF && err == nil {
				break
			}
		}
		if err == nil {
			t.Errorf("input %q: expected error", tt.input)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("input %q: expected error containing %q, got %q", tt.input, tt.want, err)
		}
	}
}
