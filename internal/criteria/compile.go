package criteria

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/smhg/criteria/internal/adapter"
	"github.com/smhg/criteria/internal/schema"
)

// builder threads the dialect and one parameter list through a whole statement,
// nested sub-queries included, so placeholders are numbered in text order.
type builder struct {
	adapter adapter.Adapter
	params  *Params
}

func newBuilder(a adapter.Adapter) *builder {
	if a == nil {
		a = adapter.Postgres{}
	}
	return &builder{adapter: a, params: &Params{}}
}

// Compile builds the SQL statement. It fails with the first builder error, if any.
func (c *Criteria) Compile() (*Statement, error) {
	if c.err != nil {
		return nil, c.err
	}
	if n := c.filters.depth(); n > 0 {
		slog.Warn("compiling with open combine brackets, folding them", "open", n)
	}
	b := newBuilder(c.adapter)
	sql, err := c.build(b)
	if err != nil {
		return nil, err
	}
	slog.Debug("criteria compiled", "table", c.primaryName(), "adapter", b.adapter.Name(), "params", b.params.Len())
	return newStatement(sql, b.params.List(), b.adapter)
}

// CollectParams returns the parameters Compile would bind, in order.
func (c *Criteria) CollectParams() ([]Param, error) {
	stmt, err := c.Compile()
	if err != nil {
		return nil, err
	}
	return stmt.Params, nil
}

// ToSql compiles the criteria with "?" placeholders, making it a squirrel Sqlizer.
func (c *Criteria) ToSql() (string, []any, error) {
	stmt, err := c.Compile()
	if err != nil {
		return "", nil, err
	}
	return stmt.ToSql()
}

// String returns the compiled SQL with literal values, or the compilation error.
func (c *Criteria) String() string {
	stmt, err := c.Compile()
	if err != nil {
		return "error: " + err.Error()
	}
	return stmt.String()
}

// Build compiles a standalone filter tree, returning its SQL and parameters.
func (f *Filter) Build(a adapter.Adapter) (string, []Param, error) {
	b := newBuilder(a)
	sql, err := b.filter(f)
	if err != nil {
		return "", nil, err
	}
	stmt, err := newStatement(sql, b.params.List(), a)
	if err != nil {
		return "", nil, err
	}
	return stmt.SQL, stmt.Params, nil
}

// CollectParams walks the filter tree for its parameters only.
func (f *Filter) CollectParams(a adapter.Adapter) ([]Param, error) {
	_, params, err := f.Build(a)
	return params, err
}

type outputColumn struct {
	name   string
	column *schema.ColumnMap
}

// effectiveSelect returns the explicit select columns, or every column of the
// primary source when there are neither select columns nor AS-columns.
func (c *Criteria) effectiveSelect() []selectColumn {
	if len(c.selects) > 0 || len(c.asColumns) > 0 {
		return c.selects
	}
	var cols []selectColumn
	switch {
	case c.primary != nil:
		for _, col := range c.primary.Columns() {
			cols = append(cols, selectColumn{ref: newRef(c.primaryName(), col)})
		}
	case c.fromQuery != nil:
		for _, out := range c.fromQuery.query.outputColumns() {
			cols = append(cols, selectColumn{ref: ColumnRef{Table: c.fromQuery.alias, Name: out.name, Column: out.column}})
		}
	}
	return cols
}

// needsAliasing reports whether two selected columns share a bare name.
func needsAliasing(cols []selectColumn) bool {
	seen := make(map[string]bool, len(cols))
	for _, s := range cols {
		if s.raw != "" {
			continue
		}
		if seen[s.ref.Name] {
			return true
		}
		seen[s.ref.Name] = true
	}
	return false
}

func columnAlias(r ColumnRef) string {
	return strings.ReplaceAll(r.Table, ".", "_") + "_" + r.Name
}

// outputColumns names the columns of the result set.
func (c *Criteria) outputColumns() []outputColumn {
	cols := c.effectiveSelect()
	aliased := needsAliasing(cols)
	var out []outputColumn
	for _, s := range cols {
		switch {
		case s.raw != "":
			out = append(out, outputColumn{name: s.raw})
		case aliased:
			out = append(out, outputColumn{name: columnAlias(s.ref), column: s.ref.Column})
		default:
			out = append(out, outputColumn{name: s.ref.Name, column: s.ref.Column})
		}
	}
	for _, a := range c.asColumns {
		out = append(out, outputColumn{name: a.alias})
	}
	return out
}

func (b *builder) column(r ColumnRef) string {
	if r.AsColumn {
		return r.Name
	}
	if !r.quote {
		return r.FullName()
	}
	if r.Table == "" {
		return b.adapter.QuoteIdentifier(r.Name)
	}
	return b.adapter.QuoteIdentifierTable(r.Table) + "." + b.adapter.QuoteIdentifier(r.Name)
}

func (b *builder) table(name, alias string, quote bool) string {
	if quote {
		name = b.adapter.QuoteIdentifierTable(name)
		if alias != "" {
			alias = b.adapter.QuoteIdentifier(alias)
		}
	}
	if alias != "" {
		return name + " AS " + alias
	}
	return name
}

func (c *Criteria) quoteTables() bool {
	return c.primary != nil && c.primary.IdentifierQuoting
}

// build emits the statement; text and parameters are produced in the same left-to-right order.
func (c *Criteria) build(b *builder) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	var sb strings.Builder

	sb.WriteString("SELECT ")
	for _, m := range c.modifiers {
		sb.WriteString(m + " ")
	}
	cols := c.effectiveSelect()
	aliased := needsAliasing(cols)
	var sel []string
	for _, s := range cols {
		switch {
		case s.raw != "":
			sel = append(sel, s.raw)
		case aliased:
			sel = append(sel, b.column(s.ref)+" AS "+columnAlias(s.ref))
		default:
			sel = append(sel, b.column(s.ref))
		}
	}
	for _, a := range c.asColumns {
		expr, err := b.parts(a.parts, nil, false)
		if err != nil {
			return "", err
		}
		sel = append(sel, expr+" AS "+a.alias)
	}
	if len(sel) == 0 {
		sel = append(sel, "*")
	}
	sb.WriteString(strings.Join(sel, ", "))

	var from []string
	if c.fromQuery != nil {
		inner, err := c.fromQuery.query.build(b)
		if err != nil {
			return "", err
		}
		from = append(from, "("+inner+") AS "+c.fromQuery.alias)
	}
	if c.primary != nil {
		from = append(from, c.table(b, c.primary, c.alias))
	}
	if len(from) > 0 {
		// explicit joins chain onto the first source
		var joined strings.Builder
		joined.WriteString(from[0])
		for _, j := range c.joins {
			if j.Type == ImplicitJoin {
				continue
			}
			on, err := b.conditions(j.Conditions)
			if err != nil {
				return "", err
			}
			joined.WriteString(" " + string(j.Type) + " " + c.joinTable(b, j) + " ON (" + on + ")")
		}
		from[0] = joined.String()
	}
	var implicit []*Filter
	for _, j := range c.joins {
		if j.Type == ImplicitJoin {
			from = append(from, c.joinTable(b, j))
			implicit = append(implicit, j.Conditions...)
		}
	}
	for _, d := range c.selectQueries {
		inner, err := d.query.build(b)
		if err != nil {
			return "", err
		}
		from = append(from, "("+inner+") AS "+d.alias)
	}
	if len(from) > 0 {
		sb.WriteString(" FROM " + strings.Join(from, ", "))
	}

	var where []string
	for _, f := range implicit {
		s, err := b.filter(f)
		if err != nil {
			return "", err
		}
		where = append(where, s)
	}
	for _, f := range c.filters.closed().filters() {
		s, err := b.filter(f)
		if err != nil {
			return "", err
		}
		where = append(where, s)
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}

	if len(c.groupBy) > 0 {
		group := make([]string, len(c.groupBy))
		for i, g := range c.groupBy {
			group[i] = b.column(g)
		}
		sb.WriteString(" GROUP BY " + strings.Join(group, ", "))
	}

	if c.having != nil {
		s, err := b.filter(c.having)
		if err != nil {
			return "", err
		}
		sb.WriteString(" HAVING " + s)
	}

	if len(c.orderBy) > 0 {
		order := make([]string, len(c.orderBy))
		for i, o := range c.orderBy {
			col := b.column(o.ref)
			if c.ignoreCase && o.ref.IsText() {
				col = b.adapter.IgnoreCase(col)
			}
			if o.desc {
				order[i] = col + " DESC"
			} else {
				order[i] = col + " ASC"
			}
		}
		sb.WriteString(" ORDER BY " + strings.Join(order, ", "))
	}

	return b.adapter.ApplyLimit(sb.String(), c.offset, c.limit), nil
}

func (c *Criteria) table(b *builder, t *schema.TableMap, alias string) string {
	return b.table(t.Name, alias, t.IdentifierQuoting)
}

func (c *Criteria) joinTable(b *builder, j *Join) string {
	quote := c.quoteTables()
	if j.rightMap != nil {
		quote = j.rightMap.IdentifierQuoting
	}
	return b.table(j.RightTable, j.RightAlias, quote)
}

func (b *builder) conditions(conds []*Filter) (string, error) {
	parts := make([]string, len(conds))
	for i, f := range conds {
		s, err := b.filter(f)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, " AND "), nil
}

// filter emits the own clause wrapped in one opening parenthesis per sibling,
// then each sibling followed by a closing parenthesis.
func (b *builder) filter(f *Filter) (string, error) {
	own, err := b.clause(f.Clause)
	if err != nil {
		return "", err
	}
	if len(f.siblings) == 0 {
		return own, nil
	}
	var sb strings.Builder
	sb.WriteString(strings.Repeat("(", len(f.siblings)))
	sb.WriteString(own)
	for _, s := range f.siblings {
		sib, err := b.filter(s.filter)
		if err != nil {
			return "", err
		}
		sb.WriteString(" " + string(s.conj) + " " + sib + ")")
	}
	return sb.String(), nil
}

func (b *builder) clause(c Clause) (string, error) {
	switch x := c.(type) {
	case ColumnCompare:
		return b.compare(x)
	case ColumnIn:
		return b.in(x), nil
	case ColumnLike:
		return b.like(x), nil
	case BitwiseMask:
		return b.bitwise(x), nil
	case RawClause:
		return b.raw(x)
	case JoinEquality:
		return b.column(x.Left) + " " + string(x.Operator) + " " + b.column(x.Right), nil
	case SubqueryFilter:
		return b.subquery(x)
	case nil:
		return "", fmt.Errorf("filter without clause")
	}
	return "", fmt.Errorf("unsupported clause %T", c)
}

func (b *builder) compare(x ColumnCompare) (string, error) {
	col := b.column(x.Column)
	switch x.Operator {
	case OpIsNull, OpIsNotNull:
		return col + " " + string(x.Operator), nil
	}
	if x.Value == nil {
		switch x.Operator {
		case OpEq:
			return col + " IS NULL", nil
		case OpNeq, OpAltNeq:
			return col + " IS NOT NULL", nil
		}
		return "", &InvalidValueError{Column: x.Column.FullName(), Operator: x.Operator, Err: errNullValue}
	}
	ph := b.params.add(x.Column, x.Value)
	if x.IgnoreCase {
		col, ph = b.adapter.IgnoreCase(col), b.adapter.IgnoreCase(ph)
	}
	return col + " " + string(x.Operator) + " " + ph, nil
}

func (b *builder) in(x ColumnIn) string {
	if len(x.Values) == 0 {
		if x.Operator == OpNotIn {
			return "1=1"
		}
		return "1<>1"
	}
	phs := make([]string, len(x.Values))
	for i, v := range x.Values {
		phs[i] = b.params.add(x.Column, v)
	}
	return b.column(x.Column) + " " + string(x.Operator) + " (" + strings.Join(phs, ",") + ")"
}

func (b *builder) like(x ColumnLike) string {
	col := b.column(x.Column)
	ph := b.params.add(x.Column, x.Pattern)
	op := x.Operator
	if x.IgnoreCase || op == OpILike || op == OpNotILike {
		if b.adapter.SupportsILike() {
			op = OpILike
			if x.Operator.negated() {
				op = OpNotILike
			}
		} else {
			op = OpLike
			if x.Operator.negated() {
				op = OpNotLike
			}
			col, ph = b.adapter.IgnoreCase(col), b.adapter.IgnoreCase(ph)
		}
	}
	return col + " " + string(op) + " " + ph
}

func (b *builder) bitwise(x BitwiseMask) string {
	if x.Mask == nil {
		if x.Operator == OpBinaryNone {
			return "1=1"
		}
		return "1<>1"
	}
	mask := b.params.add(x.Column, x.Mask)
	var cmp string
	if x.Operator == OpBinaryNone {
		cmp = b.params.add(x.Column, 0)
	} else {
		cmp = b.params.add(x.Column, x.Mask)
	}
	return b.column(x.Column) + " & " + mask + " = " + cmp
}

func (b *builder) raw(x RawClause) (string, error) {
	if x.fixed != "" {
		return x.fixed, nil
	}
	if x.parts == nil {
		if strings.Contains(x.SQL, "?") {
			return "", &InvalidClauseError{Clause: x.SQL, Reason: "placeholders require a clause built by NewRawFilter"}
		}
		return x.SQL, nil
	}
	return b.parts(x.parts, x.Values, x.list)
}

// parts renders a parsed clause. In list mode the single placeholder expands to every value.
func (b *builder) parts(parts []rawPart, values []any, list bool) (string, error) {
	var sb strings.Builder
	next := 0
	for i, p := range parts {
		switch p.kind {
		case partText:
			sb.WriteString(p.text)
		case partColumn:
			sb.WriteString(b.column(p.col))
		case partPlaceholder:
			if list {
				phs := make([]string, len(values))
				for k, v := range values {
					phs[k] = b.params.add(p.col, v)
				}
				joined := strings.Join(phs, ",")
				openParen := strings.HasSuffix(strings.TrimRight(sb.String(), " "), "(")
				closeParen := i+1 < len(parts) && parts[i+1].kind == partText &&
					strings.HasPrefix(strings.TrimLeft(parts[i+1].text, " "), ")")
				if openParen && closeParen {
					sb.WriteString(joined)
				} else {
					sb.WriteString("(" + joined + ")")
				}
				continue
			}
			if next >= len(values) {
				return "", &InvalidClauseError{Clause: unmark(sb.String()), Reason: "more placeholders than values"}
			}
			sb.WriteString(b.params.add(p.col, values[next]))
			next++
		}
	}
	return sb.String(), nil
}

func (b *builder) subquery(x SubqueryFilter) (string, error) {
	if x.Query == nil {
		return "", &InvalidClauseError{Clause: string(x.Operator), Reason: "nil sub-query"}
	}
	inner, err := x.Query.build(b)
	if err != nil {
		return "", err
	}
	switch x.Operator {
	case OpExists, OpNotExists:
		return string(x.Operator) + " (" + inner + ")", nil
	}
	return b.column(x.Left) + " " + string(x.Operator) + " (" + inner + ")", nil
}
