package criteria

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/smhg/criteria/internal/adapter"
	"github.com/smhg/criteria/internal/schema"
)

// Param describes one bound value. Table and Column name the underlying SQL column
// (not its alias) so the binder can choose a serialization from Type.
type Param struct {
	Table  string
	Column string
	Type   schema.ColumnType
	Value  any
}

// Params accumulates parameters in placeholder order.
type Params struct {
	list []Param
}

// mark delimits placeholders in SQL under construction. SQL text never holds a NUL byte,
// so marks are told apart from literal text such as 'x:p1' or 'Why?'.
const mark = "\x00"

// add records a value bound to ref and returns its placeholder mark.
func (p *Params) add(ref ColumnRef, v any) string {
	p.list = append(p.list, Param{
		Table:  ref.tableName(),
		Column: ref.Name,
		Type:   ref.Type(),
		Value:  v,
	})
	return mark + strconv.Itoa(len(p.list)) + mark
}

// Len returns the number of collected parameters.
func (p *Params) Len() int { return len(p.list) }

// List returns the collected parameters.
func (p *Params) List() []Param { return p.list }

// template is marked SQL split at its placeholders: text[i] precedes placeholder i,
// which binds parameter index[i].
type template struct {
	text  []string
	index []int
}

func newTemplate(marked string, n int) (template, error) {
	pieces := strings.Split(marked, mark)
	if len(pieces)%2 == 0 {
		return template{}, fmt.Errorf("unbalanced placeholder mark in %q", marked)
	}
	var t template
	for i, piece := range pieces {
		if i%2 == 0 {
			t.text = append(t.text, piece)
			continue
		}
		k, err := strconv.Atoi(piece)
		if err != nil || k < 1 || (n >= 0 && k > n) {
			return template{}, fmt.Errorf("placeholder %q has no parameter", piece)
		}
		t.index = append(t.index, k-1)
	}
	return t, nil
}

// render joins the text with placeholder(i) for every placeholder, passing text through esc.
func (t template) render(placeholder func(param int) string, esc func(string) string) string {
	var sb strings.Builder
	for i, text := range t.text {
		if esc != nil {
			text = esc(text)
		}
		sb.WriteString(text)
		if i < len(t.index) {
			sb.WriteString(placeholder(t.index[i]))
		}
	}
	return sb.String()
}

func colonPlaceholder(param int) string { return ":p" + strconv.Itoa(param+1) }

// unmark renders marked SQL with ":pN" placeholders, for error messages.
func unmark(marked string) string {
	t, err := newTemplate(marked, -1)
	if err != nil {
		return strings.ReplaceAll(marked, mark, "")
	}
	return t.render(colonPlaceholder, nil)
}

// Statement is compiled SQL using ":pN" placeholders plus its ordered parameters.
// SQL is for reading; ToSql, Query and String bind from the placeholder positions
// recorded at compile time, so literal text resembling a placeholder is left alone.
type Statement struct {
	SQL    string
	Params []Param

	tmpl    template
	adapter adapter.Adapter
}

func newStatement(marked string, params []Param, a adapter.Adapter) (*Statement, error) {
	t, err := newTemplate(marked, len(params))
	if err != nil {
		return nil, err
	}
	return &Statement{SQL: t.render(colonPlaceholder, nil), Params: params, tmpl: t, adapter: a}, nil
}

// Args returns the parameter values in placeholder order.
func (s *Statement) Args() []any {
	args := make([]any, len(s.Params))
	for i, p := range s.Params {
		args[i] = p.Value
	}
	return args
}

func (s *Statement) bind(esc func(string) string) (string, []any, error) {
	if s.tmpl.text == nil {
		if len(s.Params) > 0 {
			return "", nil, fmt.Errorf("statement has no placeholder positions; build it with Compile")
		}
		return s.SQL, []any{}, nil
	}
	args := make([]any, 0, len(s.tmpl.index))
	for _, k := range s.tmpl.index {
		args = append(args, s.Params[k].Value)
	}
	return s.tmpl.render(func(int) string { return "?" }, esc), args, nil
}

// ToSql renders the statement with "?" placeholders. Statement implements sq.Sqlizer,
// so it can be embedded in squirrel builders.
func (s *Statement) ToSql() (string, []any, error) {
	return s.bind(nil)
}

// Query renders the statement in the adapter's native placeholder format. For numbered
// formats a literal "?" is escaped as "??", which squirrel turns back into "?".
func (s *Statement) Query() (string, []any, error) {
	format := sq.PlaceholderFormat(sq.Question)
	if s.adapter != nil {
		format = s.adapter.PlaceholderFormat()
	}
	if format == sq.Question {
		return s.bind(nil)
	}
	sql, args, err := s.bind(func(text string) string { return strings.ReplaceAll(text, "?", "??") })
	if err != nil {
		return "", nil, err
	}
	sql, err = format.ReplacePlaceholders(sql)
	if err != nil {
		return "", nil, fmt.Errorf("replace placeholders: %w", err)
	}
	return sql, args, nil
}

// String interpolates literal values for inspection. The result is never meant to be executed.
func (s *Statement) String() string {
	if s.tmpl.text == nil {
		return s.SQL
	}
	return s.tmpl.render(func(k int) string { return literal(s.Params[k].Value) }, nil)
}

var _ sq.Sqlizer = (*Statement)(nil)

func literal(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(t)
	case time.Time:
		return quoteLiteral(t.Format(time.RFC3339Nano))
	case []byte:
		return quoteLiteral(string(t))
	case fmt.Stringer:
		return quoteLiteral(t.String())
	}
	return quoteLiteral(fmt.Sprint(v))
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
