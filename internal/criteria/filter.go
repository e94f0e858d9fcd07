package criteria

import (
	"reflect"
	"strings"
)

// Operator is a comparison operator as written in SQL, or a pseudo operator for
// bitwise and sub-query filters.
type Operator string

const (
	OpEq         Operator = "="
	OpNeq        Operator = "<>"
	OpAltNeq     Operator = "!="
	OpGt         Operator = ">"
	OpGte        Operator = ">="
	OpLt         Operator = "<"
	OpLte        Operator = "<="
	OpLike       Operator = "LIKE"
	OpNotLike    Operator = "NOT LIKE"
	OpILike      Operator = "ILIKE"
	OpNotILike   Operator = "NOT ILIKE"
	OpIn         Operator = "IN"
	OpNotIn      Operator = "NOT IN"
	OpIsNull     Operator = "IS NULL"
	OpIsNotNull  Operator = "IS NOT NULL"
	OpBinaryAll  Operator = "BINARY_ALL"
	OpBinaryNone Operator = "BINARY_NONE"
	OpExists     Operator = "EXISTS"
	OpNotExists  Operator = "NOT EXISTS"
	OpCustom     Operator = "CUSTOM" // value is a raw SQL clause
)

// ParseOperator normalizes case and spacing of an operator name.
func ParseOperator(s string) Operator {
	op := Operator(strings.Join(strings.Fields(strings.ToUpper(s)), " "))
	switch op {
	case "==":
		return OpEq
	case "ISNULL":
		return OpIsNull
	case "ISNOTNULL":
		return OpIsNotNull
	}
	return op
}

func (op Operator) negated() bool {
	switch op {
	case OpNeq, OpAltNeq, OpNotLike, OpNotILike, OpNotIn, OpIsNotNull, OpBinaryNone, OpNotExists:
		return true
	}
	return false
}

// Conjunction joins sibling filters.
type Conjunction string

const (
	And Conjunction = "AND"
	Or  Conjunction = "OR"
)

// Clause is the condition held by a filter node. The set of clauses is closed;
// the compiler switches over every variant.
type Clause interface {
	clause()
}

// ColumnCompare: column <op> value. A nil value compiles to IS NULL / IS NOT NULL.
type ColumnCompare struct {
	Column     ColumnRef
	Operator   Operator
	Value      any
	IgnoreCase bool
}

func (ColumnCompare) clause() {}

// ColumnIn: column IN (values) or column NOT IN (values).
type ColumnIn struct {
	Column   ColumnRef
	Operator Operator
	Values   []any
}

func (ColumnIn) clause() {}

// ColumnLike: column LIKE pattern, optionally case-insensitive.
type ColumnLike struct {
	Column     ColumnRef
	Operator   Operator
	Pattern    string
	IgnoreCase bool
}

func (ColumnLike) clause() {}

// BitwiseMask: all (BINARY_ALL) or none (BINARY_NONE) of the mask bits are set.
type BitwiseMask struct {
	Column   ColumnRef
	Operator Operator
	Mask     any
}

func (BitwiseMask) clause() {}

// RawClause is a literal SQL fragment with ? placeholders.
// Column names in the fragment are replaced by their SQL names and type each placeholder.
type RawClause struct {
	SQL    string
	Values []any

	parts []rawPart
	list  bool   // a single placeholder expanded to a value list
	fixed string // replaces the whole clause, e.g. an empty IN list
}

func (RawClause) clause() {}

// Columns returns the columns referenced by the fragment, in order of appearance.
func (r RawClause) Columns() []ColumnRef {
	var cols []ColumnRef
	for _, p := range r.parts {
		if p.kind == partColumn {
			cols = append(cols, p.col)
		}
	}
	return cols
}

// JoinEquality: left <op> right between two columns, binding no values.
type JoinEquality struct {
	Left     ColumnRef
	Operator Operator
	Right    ColumnRef
}

func (JoinEquality) clause() {}

// SubqueryFilter: left IN (query), or EXISTS (query) without a left column.
type SubqueryFilter struct {
	Left     ColumnRef
	Operator Operator
	Query    *Criteria
}

func (SubqueryFilter) clause() {}

// Filter is one condition plus the AND/OR siblings attached to it.
// Attaching wraps the existing group, so a.AddAnd(b).AddOr(c) compiles to ((a AND b) OR c).
type Filter struct {
	Clause Clause

	siblings []attached
}

type attached struct {
	conj   Conjunction
	filter *Filter
}

// NewFilter wraps a clause in a filter node.
func NewFilter(c Clause) *Filter {
	return &Filter{Clause: c}
}

// AddAnd attaches other with AND and returns the receiver.
// The receiver takes ownership of other. Attaching a filter that already holds the
// receiver, the receiver itself included, does nothing so the tree stays acyclic.
func (f *Filter) AddAnd(other *Filter) *Filter {
	if other != nil && !other.contains(f) {
		f.siblings = append(f.siblings, attached{And, other})
	}
	return f
}

// AddOr attaches other with OR and returns the receiver. It has the same guard as AddAnd.
func (f *Filter) AddOr(other *Filter) *Filter {
	if other != nil && !other.contains(f) {
		f.siblings = append(f.siblings, attached{Or, other})
	}
	return f
}

// contains reports whether g is f or one of its attached filters, at any depth.
func (f *Filter) contains(g *Filter) bool {
	if f == g {
		return true
	}
	for _, s := range f.siblings {
		if s.filter.contains(g) {
			return true
		}
	}
	return false
}

func (f *Filter) attach(conj Conjunction, other *Filter) *Filter {
	if conj == Or {
		return f.AddOr(other)
	}
	return f.AddAnd(other)
}

// Siblings returns the number of attached filters.
func (f *Filter) Siblings() int { return len(f.siblings) }

// Column returns the primary column of the filter, if its clause has one.
func (f *Filter) Column() (ColumnRef, bool) {
	switch c := f.Clause.(type) {
	case ColumnCompare:
		return c.Column, true
	case ColumnIn:
		return c.Column, true
	case ColumnLike:
		return c.Column, true
	case BitwiseMask:
		return c.Column, true
	}
	return ColumnRef{}, false
}

// key groups filters on the same column for AND merging.
func (f *Filter) key() string {
	if col, ok := f.Column(); ok {
		return col.FullName()
	}
	return ""
}

// Equal compares clause kind, operator, value and, recursively, the attached siblings.
func (f *Filter) Equal(o *Filter) bool {
	if f == nil || o == nil {
		return f == o
	}
	if !clauseEqual(f.Clause, o.Clause) || len(f.siblings) != len(o.siblings) {
		return false
	}
	for i, s := range f.siblings {
		if s.conj != o.siblings[i].conj || !s.filter.Equal(o.siblings[i].filter) {
			return false
		}
	}
	return true
}

func clauseEqual(a, b Clause) bool {
	switch x := a.(type) {
	case ColumnCompare:
		y, ok := b.(ColumnCompare)
		return ok && x.Column.Equal(y.Column) && x.Operator == y.Operator &&
			x.IgnoreCase == y.IgnoreCase && reflect.DeepEqual(x.Value, y.Value)
	case ColumnIn:
		y, ok := b.(ColumnIn)
		return ok && x.Column.Equal(y.Column) && x.Operator == y.Operator && reflect.DeepEqual(x.Values, y.Values)
	case ColumnLike:
		y, ok := b.(ColumnLike)
		return ok && x.Column.Equal(y.Column) && x.Operator == y.Operator &&
			x.IgnoreCase == y.IgnoreCase && x.Pattern == y.Pattern
	case BitwiseMask:
		y, ok := b.(BitwiseMask)
		return ok && x.Column.Equal(y.Column) && x.Operator == y.Operator && reflect.DeepEqual(x.Mask, y.Mask)
	case RawClause:
		y, ok := b.(RawClause)
		return ok && x.SQL == y.SQL && reflect.DeepEqual(x.Values, y.Values)
	case JoinEquality:
		y, ok := b.(JoinEquality)
		return ok && x.Left.Equal(y.Left) && x.Operator == y.Operator && x.Right.Equal(y.Right)
	case SubqueryFilter:
		y, ok := b.(SubqueryFilter)
		return ok && x.Left.Equal(y.Left) && x.Operator == y.Operator && x.Query.Equal(y.Query)
	}
	return false
}

// Clone deep-copies the filter tree.
func (f *Filter) Clone() *Filter {
	if f == nil {
		return nil
	}
	out := &Filter{Clause: cloneClause(f.Clause)}
	if len(f.siblings) > 0 {
		out.siblings = make([]attached, len(f.siblings))
		for i, s := range f.siblings {
			out.siblings[i] = attached{s.conj, s.filter.Clone()}
		}
	}
	return out
}

func cloneClause(c Clause) Clause {
	switch x := c.(type) {
	case ColumnIn:
		x.Values = append([]any(nil), x.Values...)
		return x
	case RawClause:
		x.Values = append([]any(nil), x.Values...)
		x.parts = append([]rawPart(nil), x.parts...)
		return x
	case SubqueryFilter:
		x.Query = x.Query.Clone()
		return x
	}
	return c
}
