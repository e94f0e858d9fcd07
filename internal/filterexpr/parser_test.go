package filterexpr

import (
	"strings"
	"testing"

	"github.com/smhg/criteria/internal/criteria"
)

func mustParse(t *testing.T, input string) Node {
	t.Helper()
	node, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", input, err)
	}
	return node
}

func expectParseError(t *testing.T, input, wantSubstr string) {
	t.Helper()
	_, err := Parse(input)
	if err == nil {
		t.Fatalf("Parse(%q): expected error containing %q, got nil", input, wantSubstr)
	}
	if !strings.Contains(err.Error(), wantSubstr) {
		t.Fatalf("Parse(%q): expected error containing %q, got %q", input, wantSubstr, err.Error())
	}
}

func TestParseComparison(t *testing.T) {
	node := mustParse(t, "book.title = 'War'")
	cmp, ok := node.(*Comparison)
	if !ok {
		t.Fatalf("expected *Comparison, got %T", node)
	}
	if cmp.Column != "book.title" || cmp.Op != criteria.OpEq || cmp.Value != "War" {
		t.Fatalf("unexpected comparison %+v", cmp)
	}
}

func TestParseValues(t *testing.T) {
	tests := []struct {
		input string
		want  any
	}{
		{"id = 42", int64(42)},
		{"id = -7", int64(-7)},
		{"price = 3.5", 3.5},
		{"flag = true", true},
		{"flag = FALSE", false},
		{"name = null", nil},
		{`name = "x"`, "x"},
	}
	for _, tt := range tests {
		cmp := mustParse(t, tt.input).(*Comparison)
		if cmp.Value != tt.want {
			t.Errorf("%q: expected %#v, got %#v", tt.input, tt.want, cmp.Value)
		}
	}
}

func TestParseOperators(t *testing.T) {
	tests := []struct {
		input string
		op    criteria.Operator
	}{
		{"a = 1", criteria.OpEq},
		{"a == 1", criteria.OpEq},
		{"a != 1", criteria.OpNeq},
		{"a <> 1", criteria.OpNeq},
		{"a > 1", criteria.OpGt},
		{"a >= 1", criteria.OpGte},
		{"a < 1", criteria.OpLt},
		{"a <= 1", criteria.OpLte},
		{"a like 'x%'", criteria.OpLike},
		{"a NOT LIKE 'x%'", criteria.OpNotLike},
		{"a ilike 'x%'", criteria.OpILike},
		{"a not ilike 'x%'", criteria.OpNotILike},
		{"a in (1)", criteria.OpIn},
		{"a not in (1)", criteria.OpNotIn},
		{"a is null", criteria.OpIsNull},
		{"a IS NOT NULL", criteria.OpIsNotNull},
	}
	for _, tt := range tests {
		cmp, ok := mustParse(t, tt.input).(*Comparison)
		if !ok {
			t.Errorf("%q: expected *Comparison", tt.input)
			continue
		}
		if cmp.Op != tt.op {
			t.Errorf("%q: expected %s, got %s", tt.input, tt.op, cmp.Op)
		}
	}
}

func TestParseInList(t *testing.T) {
	cmp := mustParse(t, "author_id IN (1, 2, 'x')").(*Comparison)
	if len(cmp.Values) != 3 {
		t.Fatalf("expected 3 values, got %d", len(cmp.Values))
	}
	if cmp.Values[0] != int64(1) || cmp.Values[2] != "x" {
		t.Fatalf("unexpected values %#v", cmp.Values)
	}

	cmp = mustParse(t, "author_id NOT IN ()").(*Comparison)
	if cmp.Values == nil || len(cmp.Values) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", cmp.Values)
	}
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a = 1 AND b = 2", "(a = 1 AND b = 2)"},
		{"a = 1 OR b = 2 AND c = 3", "(a = 1 OR (b = 2 AND c = 3))"},
		{"a = 1 AND b = 2 OR c = 3", "((a = 1 AND b = 2) OR c = 3)"},
		{"a = 1 AND (b = 2 OR c = 3)", "(a = 1 AND (b = 2 OR c = 3))"},
		{"a = 1 AND b = 2 AND c = 3", "((a = 1 AND b = 2) AND c = 3)"},
		{"((a = 1))", "a = 1"},
		{"t LIKE 'O''N%' and id in (1,2)", "(t LIKE 'O''N%' AND id IN (1, 2))"},
	}
	for _, tt := range tests {
		if got := mustParse(t, tt.input).String(); got != tt.want {
			t.Errorf("%q: expected %s, got %s", tt.input, tt.want, got)
		}
	}
}

func TestParseErrors(t *testing.T) {
	expectParseError(t, "", "expected column")
	expectParseError(t, "a", "expected operator")
	expectParseError(t, "a = ", "expected value")
	expectParseError(t, "a = 1 AND", "expected column")
	expectParseError(t, "(a = 1", "expected )")
	expectParseError(t, "a = 1 b = 2", "expected end of expression")
	expectParseError(t, "a LIKE 1", "expected string pattern")
	expectParseError(t, "a IN 1", "expected (")
	expectParseError(t, "a IN (1 2)", "expected ',' or ')'")
	expectParseError(t, "a IS 1", "expected null")
	expectParseError(t, "a NOT = 1", "after not")
	expectParseError(t, "a = -'x'", "expected number after '-'")
}
