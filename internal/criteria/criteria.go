// Package criteria builds SQL queries from composable filter trees, joins and
// sub-queries over schema metadata, and compiles them to parameterized statements.
package criteria

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/smhg/criteria/internal/adapter"
	"github.com/smhg/criteria/internal/schema"
)

// Criteria is a mutable query builder. Builder methods return the receiver; the first
// failing call is recorded and makes every later call a no-op, and Compile returns it.
// A Criteria must not be mutated concurrently; Clone it to reuse a template.
type Criteria struct {
	db      *schema.DatabaseMap
	adapter adapter.Adapter
	primary *schema.TableMap
	alias   string
	err     error

	filters    *combiner
	conj       Conjunction // conjunction used by the next added filter
	ignoreCase bool
	conditions map[string]*Filter
	having     *Filter

	joins       []*Join
	joinsByName map[string]*Join
	aliases     map[string]*schema.TableMap

	selects   []selectColumn
	asColumns []asColumn
	asIndex   map[string]int
	modifiers []string

	groupBy []ColumnRef
	orderBy []orderColumn
	limit   int
	offset  int

	fromQuery     *derivedTable
	selectQueries []*derivedTable
}

type selectColumn struct {
	ref ColumnRef
	raw string // expression emitted as is
}

type asColumn struct {
	alias string
	expr  string
	parts []rawPart
}

type orderColumn struct {
	ref  ColumnRef
	desc bool
}

type derivedTable struct {
	alias string
	query *Criteria
}

// New creates a criteria selecting from table (SQL or logical name). The adapter is
// taken from the database map, defaulting to PostgreSQL.
func New(db *schema.DatabaseMap, table string) *Criteria {
	c := newEmpty(db)
	t, ok := db.Table(table)
	if !ok {
		return c.fail(&UnknownTableError{Table: table})
	}
	c.primary = t
	return c
}

// NewFromQuery creates a criteria selecting from a derived table built from sub.
func NewFromQuery(sub *Criteria, alias string) *Criteria {
	c := newEmpty(sub.db)
	c.adapter = sub.adapter
	if err := sub.Err(); err != nil {
		return c.fail(err)
	}
	if alias == "" {
		alias = "alias_1"
	}
	c.fromQuery = &derivedTable{alias: alias, query: sub.Clone()}
	return c
}

func newEmpty(db *schema.DatabaseMap) *Criteria {
	c := &Criteria{
		db:          db,
		filters:     newCombiner(),
		conj:        And,
		conditions:  make(map[string]*Filter),
		joinsByName: make(map[string]*Join),
		aliases:     make(map[string]*schema.TableMap),
		asIndex:     make(map[string]int),
		limit:       -1,
	}
	c.adapter = adapter.Postgres{}
	if db != nil && db.Adapter != "" {
		a, err := adapter.ForName(db.Adapter)
		if err != nil {
			c.fail(err)
		} else {
			c.adapter = a
		}
	}
	return c
}

func (c *Criteria) fail(err error) *Criteria {
	if c.err == nil {
		c.err = err
	}
	return c
}

// Err returns the first error recorded by a builder call.
func (c *Criteria) Err() error { return c.err }

// Adapter returns the SQL dialect used for compilation.
func (c *Criteria) Adapter() adapter.Adapter { return c.adapter }

// WithAdapter overrides the SQL dialect.
func (c *Criteria) WithAdapter(a adapter.Adapter) *Criteria {
	if a != nil {
		c.adapter = a
	}
	return c
}

// Table returns the primary table, or nil for criteria built on a derived table.
func (c *Criteria) Table() *schema.TableMap { return c.primary }

// As aliases the primary table.
func (c *Criteria) As(alias string) *Criteria {
	c.alias = alias
	return c
}

// AddAlias registers an alias for another table, for use in joins and column names.
func (c *Criteria) AddAlias(alias, table string) *Criteria {
	if c.err != nil {
		return c
	}
	t, ok := c.db.Table(table)
	if !ok {
		return c.fail(&UnknownTableError{Table: table})
	}
	c.aliases[alias] = t
	return c
}

func (c *Criteria) takeConj() Conjunction {
	conj := c.conj
	c.conj = And
	return conj
}

func (c *Criteria) addFilter(f *Filter, merge bool) *Criteria {
	c.filters.add(c.takeConj(), f, merge)
	return c
}

// Or makes the next added filter attach with OR to the previous one.
func (c *Criteria) Or() *Criteria {
	c.conj = Or
	return c
}

// IgnoreCase makes comparison and LIKE filters created afterwards case-insensitive,
// and sorts text columns case-insensitively.
func (c *Criteria) IgnoreCase(on bool) *Criteria {
	c.ignoreCase = on
	return c
}

// Filter adds "col <op> value". Repeated AND filters on the same column merge into one group.
func (c *Criteria) Filter(col any, op Operator, value any) *Criteria {
	if c.err != nil {
		return c
	}
	f, err := c.NewFilter(col, op, value)
	if err != nil {
		return c.fail(err)
	}
	return c.addFilter(f, true)
}

// FilterBy filters a column by value, choosing the operator from the value:
// a slice means IN (bitmask ALL for SET columns, element match for ARRAY columns),
// a map with "min"/"max" keys means a range, a string containing % or * means LIKE,
// anything else means =.
func (c *Criteria) FilterBy(col any, value any) *Criteria {
	if c.err != nil {
		return c
	}
	ref, err := c.Resolve(col, false)
	if err != nil {
		return c.fail(err)
	}

	if bounds, ok := value.(map[string]any); ok {
		minV, hasMin := bounds["min"]
		maxV, hasMax := bounds["max"]
		if hasMin || hasMax {
			if hasMin {
				c.Filter(ref, OpGte, minV)
			}
			if hasMax {
				c.Filter(ref, OpLte, maxV)
			}
			return c
		}
	}

	if list, ok := materialize(value); ok {
		switch ref.Type() {
		case schema.TypeSet:
			return c.Filter(ref, OpBinaryAll, list)
		case schema.TypeArray:
			if len(list) == 0 {
				return c
			}
			var root *Filter
			for _, item := range list {
				f, err := newLikeFilter(ref, OpLike, "%| "+fmt.Sprint(item)+" |%", false)
				if err != nil {
					return c.fail(err)
				}
				if root == nil {
					root = f
				} else {
					root.AddAnd(f)
				}
			}
			return c.addFilter(root, true)
		}
		return c.Filter(ref, OpIn, list)
	}

	if s, ok := value.(string); ok && strings.ContainsAny(s, "%*") {
		return c.Filter(ref, OpLike, strings.ReplaceAll(s, "*", "%"))
	}
	return c.Filter(ref, OpEq, value)
}

// Where adds a raw clause such as "Book.Title LIKE ?". Column names are replaced by
// their SQL names and type the placeholders.
func (c *Criteria) Where(clause string, values ...any) *Criteria {
	if c.err != nil {
		return c
	}
	f, err := c.NewRawFilter(clause, values...)
	if err != nil {
		return c.fail(err)
	}
	return c.addFilter(f, false)
}

// WhereSqlizer adds any squirrel predicate, e.g. sq.Eq{"book.id": []int{1, 2}}, as a raw clause.
func (c *Criteria) WhereSqlizer(pred sq.Sqlizer) *Criteria {
	if c.err != nil {
		return c
	}
	sql, args, err := pred.ToSql()
	if err != nil {
		return c.fail(&InvalidClauseError{Clause: fmt.Sprintf("%T", pred), Reason: err.Error()})
	}
	return c.Where(sql, args...)
}

// AddFilter attaches a filter built with NewFilter, NewRawFilter or NewSubqueryFilter.
func (c *Criteria) AddFilter(f *Filter) *Criteria {
	if c.err != nil || f == nil {
		return c
	}
	return c.addFilter(f, true)
}

// CombineFilters opens a bracket: filters added until the matching EndCombineFilters
// are grouped into one node attached with conj.
func (c *Criteria) CombineFilters(conj Conjunction) *Criteria {
	c.filters.open(conj)
	return c
}

// EndCombineFilters closes the innermost bracket. It returns false when no bracket is open.
func (c *Criteria) EndCombineFilters() bool {
	return c.filters.close()
}

// Condition declares a named raw clause for later use with Combine or WhereConditions.
func (c *Criteria) Condition(name, clause string, values ...any) *Criteria {
	if c.err != nil {
		return c
	}
	f, err := c.NewRawFilter(clause, values...)
	if err != nil {
		return c.fail(err)
	}
	c.conditions[name] = f
	return c
}

// Combine joins named conditions with conj. The result is stored under newName, or added
// as a filter when newName is empty. Combined conditions are consumed.
func (c *Criteria) Combine(names []string, conj Conjunction, newName string) *Criteria {
	if c.err != nil {
		return c
	}
	f, err := c.takeConditions(names, conj)
	if err != nil {
		return c.fail(err)
	}
	if newName != "" {
		c.conditions[newName] = f
		return c
	}
	return c.addFilter(f, false)
}

func (c *Criteria) takeConditions(names []string, conj Conjunction) (*Filter, error) {
	if len(names) == 0 {
		return nil, &UnknownConditionError{Name: ""}
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := c.conditions[n]; !ok {
			return nil, &UnknownConditionError{Name: n}
		}
		if seen[n] {
			return nil, &DuplicateConditionError{Name: n}
		}
		seen[n] = true
	}
	var root *Filter
	for _, n := range names {
		f := c.conditions[n]
		delete(c.conditions, n)
		if root == nil {
			root = f
		} else {
			root.attach(conj, f)
		}
	}
	return root, nil
}

// WhereConditions adds the named conditions ANDed together as a filter.
func (c *Criteria) WhereConditions(names ...string) *Criteria {
	return c.Combine(names, And, "")
}

// HavingConditions adds the named conditions ANDed together to HAVING.
func (c *Criteria) HavingConditions(names ...string) *Criteria {
	if c.err != nil {
		return c
	}
	f, err := c.takeConditions(names, And)
	if err != nil {
		return c.fail(err)
	}
	return c.addHaving(f)
}

// Having adds a raw clause to HAVING; AS-column names may be used.
func (c *Criteria) Having(clause string, values ...any) *Criteria {
	if c.err != nil {
		return c
	}
	rc, err := c.newRawClause(clause, values, true)
	if err != nil {
		return c.fail(err)
	}
	return c.addHaving(NewFilter(rc))
}

func (c *Criteria) addHaving(f *Filter) *Criteria {
	if c.having == nil {
		c.having = f
	} else {
		c.having.AddAnd(f)
	}
	return c
}

// UseExistsQuery adds EXISTS (sub-query) on a relation of the primary table.
// fn configures the sub-query, which selects from the related table under alias if set.
func (c *Criteria) UseExistsQuery(relation, alias string, fn func(*Criteria)) *Criteria {
	return c.useQuery(relation, alias, OpExists, fn)
}

// UseNotExistsQuery adds NOT EXISTS (sub-query) on a relation of the primary table.
func (c *Criteria) UseNotExistsQuery(relation, alias string, fn func(*Criteria)) *Criteria {
	return c.useQuery(relation, alias, OpNotExists, fn)
}

// UseInQuery adds "local IN (SELECT foreign ...)" on a single-column relation.
func (c *Criteria) UseInQuery(relation, alias string, fn func(*Criteria)) *Criteria {
	return c.useQuery(relation, alias, OpIn, fn)
}

// UseNotInQuery adds "local NOT IN (SELECT foreign ...)" on a single-column relation.
func (c *Criteria) UseNotInQuery(relation, alias string, fn func(*Criteria)) *Criteria {
	return c.useQuery(relation, alias, OpNotIn, fn)
}

func (c *Criteria) useQuery(relation, alias string, op Operator, fn func(*Criteria)) *Criteria {
	if c.err != nil {
		return c
	}
	if c.primary == nil {
		return c.fail(&UnknownRelationError{Table: c.primaryName(), Relation: relation})
	}
	rel, ok := c.primary.Relation(relation)
	if !ok {
		return c.fail(&UnknownRelationError{Table: c.primary.Name, Relation: relation})
	}
	sub := New(c.db, rel.Foreign.Name).WithAdapter(c.adapter)
	if alias != "" {
		sub.As(alias)
	}
	if fn != nil {
		fn(sub)
	}
	f, err := c.relationSubquery(rel, sub, op)
	if err != nil {
		return c.fail(err)
	}
	return c.addFilter(f, false)
}

// relationSubquery rewrites sub for use as an EXISTS or IN right-hand side of rel.
// EXISTS queries select a constant and carry the correlation condition taken from the
// symmetrical relation, inner column first.
func (c *Criteria) relationSubquery(rel *schema.RelationMap, sub *Criteria, op Operator) (*Filter, error) {
	if err := sub.Err(); err != nil {
		return nil, err
	}
	inner := sub.Clone()
	inner.filters = &combiner{root: inner.filters.closed()}
	inner.ClearSelectColumns()
	innerName, outerName := inner.primaryName(), c.primaryName()

	switch op {
	case OpExists, OpNotExists:
		sym := rel.Symmetrical()
		if sym == nil {
			return nil, &UnknownRelationError{Table: rel.Foreign.Name, Relation: "(symmetrical of " + rel.Name + ")"}
		}
		inner.selects = []selectColumn{{raw: "1"}}
		conds, err := relationConditions(sym, innerName, outerName)
		if err != nil {
			return nil, err
		}
		for _, cond := range conds {
			inner.filters.add(And, cond, false)
		}
		return NewFilter(SubqueryFilter{Operator: op, Query: inner}), nil

	case OpIn, OpNotIn:
		local, foreign := rel.LocalColumns(), rel.ForeignColumns()
		if len(local) != 1 {
			return nil, &InvalidClauseError{Clause: rel.Name, Reason: "IN sub-queries need a single-column relation"}
		}
		inner.selects = []selectColumn{{ref: newRef(innerName, foreign[0])}}
		f := NewFilter(SubqueryFilter{Left: newRef(outerName, local[0]), Operator: op, Query: inner})
		for _, m := range rel.Mappings {
			if !m.HasValue {
				continue
			}
			if m.Foreign != nil {
				cond, err := newCompareFilter(newRef(innerName, m.Foreign), OpEq, m.Value, false)
				if err != nil {
					return nil, err
				}
				inner.filters.add(And, cond, false)
			} else {
				cond, err := newCompareFilter(newRef(outerName, m.Local), OpEq, m.Value, false)
				if err != nil {
					return nil, err
				}
				f.AddAnd(cond)
			}
		}
		return f, nil
	}
	return nil, &InvalidClauseError{Clause: rel.Name, Reason: fmt.Sprintf("operator %s cannot use a sub-query", op)}
}

// WhereInQuery adds "col <IN|NOT IN> (inner)".
func (c *Criteria) WhereInQuery(col any, op Operator, inner *Criteria) *Criteria {
	if c.err != nil {
		return c
	}
	f, err := c.NewSubqueryFilter(col, op, inner)
	if err != nil {
		return c.fail(err)
	}
	return c.addFilter(f, false)
}

// AddSelectQuery adds a derived table "(sub) AS alias" to FROM.
func (c *Criteria) AddSelectQuery(sub *Criteria, alias string) *Criteria {
	if c.err != nil {
		return c
	}
	if err := sub.Err(); err != nil {
		return c.fail(err)
	}
	if alias == "" {
		alias = "alias_" + strconv.Itoa(len(c.selectQueries)+1)
	}
	c.selectQueries = append(c.selectQueries, &derivedTable{alias: alias, query: sub.Clone()})
	return c
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// AddSelectColumn adds a column to the select list. Strings that are not identifiers,
// such as "COUNT(*)", are emitted as is.
func (c *Criteria) AddSelectColumn(col any) *Criteria {
	if c.err != nil {
		return c
	}
	if s, ok := col.(string); ok && !identifierRe.MatchString(strings.TrimSpace(s)) {
		c.selects = append(c.selects, selectColumn{raw: strings.TrimSpace(s)})
		return c
	}
	ref, err := c.Resolve(col, false)
	if err != nil {
		return c.fail(err)
	}
	for _, s := range c.selects {
		if s.raw == "" && s.ref.Equal(ref) {
			return c
		}
	}
	c.selects = append(c.selects, selectColumn{ref: ref})
	return c
}

// Select replaces the select list.
func (c *Criteria) Select(cols ...any) *Criteria {
	c.ClearSelectColumns()
	for _, col := range cols {
		c.AddSelectColumn(col)
	}
	return c
}

// AddAsColumn adds "expr AS alias". Column names in expr are replaced by their SQL names.
func (c *Criteria) AddAsColumn(alias, expr string) *Criteria {
	if c.err != nil {
		return c
	}
	parts := c.parseClause(expr, false)
	for _, p := range parts {
		if p.kind == partPlaceholder {
			return c.fail(&InvalidClauseError{Clause: expr, Reason: "AS columns cannot bind values"})
		}
	}
	if i, ok := c.asIndex[alias]; ok {
		c.asColumns[i] = asColumn{alias: alias, expr: expr, parts: parts}
		return c
	}
	c.asIndex[alias] = len(c.asColumns)
	c.asColumns = append(c.asColumns, asColumn{alias: alias, expr: expr, parts: parts})
	return c
}

// ClearSelectColumns removes every select column and AS-column.
func (c *Criteria) ClearSelectColumns() *Criteria {
	c.selects = nil
	c.asColumns = nil
	c.asIndex = make(map[string]int)
	return c
}

// Distinct adds the DISTINCT modifier.
func (c *Criteria) Distinct() *Criteria {
	return c.AddSelectModifier("DISTINCT")
}

// AddSelectModifier adds a keyword emitted right after SELECT.
func (c *Criteria) AddSelectModifier(m string) *Criteria {
	m = strings.ToUpper(strings.TrimSpace(m))
	if m != "" && !slices.Contains(c.modifiers, m) {
		c.modifiers = append(c.modifiers, m)
	}
	return c
}

// GroupBy adds GROUP BY columns; AS-column names may be used.
func (c *Criteria) GroupBy(cols ...any) *Criteria {
	for _, col := range cols {
		if c.err != nil {
			return c
		}
		ref, err := c.Resolve(col, true)
		if err != nil {
			return c.fail(err)
		}
		c.groupBy = append(c.groupBy, ref)
	}
	return c
}

// OrderBy adds an ORDER BY column; dir is "asc" or "desc" in any case.
func (c *Criteria) OrderBy(col any, dir string) *Criteria {
	if c.err != nil {
		return c
	}
	var desc bool
	switch strings.ToUpper(strings.TrimSpace(dir)) {
	case "", "ASC":
	case "DESC":
		desc = true
	default:
		return c.fail(&InvalidClauseError{Clause: fmt.Sprint(col), Reason: fmt.Sprintf("unknown sort direction %q", dir)})
	}
	ref, err := c.Resolve(col, true)
	if err != nil {
		return c.fail(err)
	}
	c.orderBy = append(c.orderBy, orderColumn{ref: ref, desc: desc})
	return c
}

// AddAscendingOrderBy adds an ascending ORDER BY column.
func (c *Criteria) AddAscendingOrderBy(col any) *Criteria { return c.OrderBy(col, "ASC") }

// AddDescendingOrderBy adds a descending ORDER BY column.
func (c *Criteria) AddDescendingOrderBy(col any) *Criteria { return c.OrderBy(col, "DESC") }

// ClearOrderBy removes every ORDER BY column.
func (c *Criteria) ClearOrderBy() *Criteria {
	c.orderBy = nil
	return c
}

// Limit sets the row limit; a negative value removes it.
func (c *Criteria) Limit(n int) *Criteria {
	c.limit = n
	return c
}

// Offset sets the number of skipped rows.
func (c *Criteria) Offset(n int) *Criteria {
	c.offset = max(n, 0)
	return c
}

// Count returns a criteria counting the rows this one selects. Simple queries count
// in place; grouped, distinct or limited queries are wrapped in a derived table.
func (c *Criteria) Count() *Criteria {
	if c.err != nil {
		return c.Clone()
	}
	if len(c.groupBy) == 0 && c.having == nil && c.limit < 0 && c.offset == 0 &&
		len(c.modifiers) == 0 && len(c.selectQueries) == 0 && len(c.asColumns) == 0 {
		cnt := c.Clone().ClearSelectColumns().ClearOrderBy()
		return cnt.AddAsColumn("count", "COUNT(*)")
	}
	return NewFromQuery(c, "counted").AddAsColumn("count", "COUNT(*)")
}

// Clone returns a deep copy: filters, joins, having, sub-queries and alias maps are copied.
func (c *Criteria) Clone() *Criteria {
	if c == nil {
		return nil
	}
	out := *c
	out.filters = c.filters.clone()
	out.having = c.having.Clone()

	out.conditions = make(map[string]*Filter, len(c.conditions))
	for k, f := range c.conditions {
		out.conditions[k] = f.Clone()
	}

	remap := make(map[*Join]*Join, len(c.joins))
	out.joins = make([]*Join, len(c.joins))
	for i, j := range c.joins {
		nj := j.clone()
		remap[j] = nj
		out.joins[i] = nj
	}
	for _, nj := range out.joins {
		if nj.Previous != nil {
			nj.Previous = remap[nj.Previous]
		}
	}
	out.joinsByName = make(map[string]*Join, len(c.joinsByName))
	for k, j := range c.joinsByName {
		out.joinsByName[k] = remap[j]
	}

	out.aliases = make(map[string]*schema.TableMap, len(c.aliases))
	for k, t := range c.aliases {
		out.aliases[k] = t
	}
	out.selects = slices.Clone(c.selects)
	out.asColumns = slices.Clone(c.asColumns)
	out.asIndex = make(map[string]int, len(c.asIndex))
	for k, v := range c.asIndex {
		out.asIndex[k] = v
	}
	out.modifiers = slices.Clone(c.modifiers)
	out.groupBy = slices.Clone(c.groupBy)
	out.orderBy = slices.Clone(c.orderBy)

	if c.fromQuery != nil {
		out.fromQuery = &derivedTable{alias: c.fromQuery.alias, query: c.fromQuery.query.Clone()}
	}
	out.selectQueries = make([]*derivedTable, len(c.selectQueries))
	for i, d := range c.selectQueries {
		out.selectQueries[i] = &derivedTable{alias: d.alias, query: d.query.Clone()}
	}
	return &out
}

// Equal reports whether two criteria describe the same query.
func (c *Criteria) Equal(o *Criteria) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.primary != o.primary || c.alias != o.alias || c.limit != o.limit || c.offset != o.offset ||
		!slices.Equal(c.modifiers, o.modifiers) || len(c.joins) != len(o.joins) ||
		len(c.selects) != len(o.selects) || len(c.asColumns) != len(o.asColumns) ||
		len(c.groupBy) != len(o.groupBy) || len(c.orderBy) != len(o.orderBy) ||
		len(c.selectQueries) != len(o.selectQueries) {
		return false
	}
	if !c.filters.equal(o.filters) || !c.having.Equal(o.having) {
		return false
	}
	for i, j := range c.joins {
		if !j.Equal(o.joins[i]) {
			return false
		}
	}
	for i, s := range c.selects {
		if s.raw != o.selects[i].raw || !s.ref.Equal(o.selects[i].ref) {
			return false
		}
	}
	for i, a := range c.asColumns {
		if a.alias != o.asColumns[i].alias || a.expr != o.asColumns[i].expr {
			return false
		}
	}
	for i, g := range c.groupBy {
		if !g.Equal(o.groupBy[i]) {
			return false
		}
	}
	for i, ob := range c.orderBy {
		if ob.desc != o.orderBy[i].desc || !ob.ref.Equal(o.orderBy[i].ref) {
			return false
		}
	}
	if (c.fromQuery == nil) != (o.fromQuery == nil) {
		return false
	}
	if c.fromQuery != nil && (c.fromQuery.alias != o.fromQuery.alias || !c.fromQuery.query.Equal(o.fromQuery.query)) {
		return false
	}
	for i, d := range c.selectQueries {
		if d.alias != o.selectQueries[i].alias || !d.query.Equal(o.selectQueries[i].query) {
			return false
		}
	}
	return true
}
