package criteria

import (
	"errors"
	"fmt"
)

var errNullValue = errors.New("null value requires = or <>")

func newCompareFilter(col ColumnRef, op Operator, v any, ignoreCase bool) (*Filter, error) {
	switch op {
	case OpIsNull, OpIsNotNull:
		return NewFilter(ColumnCompare{Column: col, Operator: op}), nil
	}
	if v == nil {
		switch op {
		case OpEq, OpNeq, OpAltNeq:
			return NewFilter(ColumnCompare{Column: col, Operator: op}), nil
		}
		return nil, &InvalidValueError{Column: col.FullName(), Operator: op, Err: errNullValue}
	}
	conv, err := col.convert(v)
	if err != nil {
		return nil, &InvalidValueError{Column: col.FullName(), Operator: op, Err: err}
	}
	return NewFilter(ColumnCompare{Column: col, Operator: op, Value: conv, IgnoreCase: ignoreCase && col.IsText()}), nil
}

func newInFilter(col ColumnRef, op Operator, v any) (*Filter, error) {
	values, ok := materialize(v)
	if !ok && v != nil {
		values = []any{v}
	}
	conv := make([]any, len(values))
	for i, item := range values {
		c, err := col.convert(item)
		if err != nil {
			return nil, &InvalidValueError{Column: col.FullName(), Operator: op, Err: err}
		}
		conv[i] = c
	}
	return NewFilter(ColumnIn{Column: col, Operator: op, Values: conv}), nil
}

func newLikeFilter(col ColumnRef, op Operator, v any, ignoreCase bool) (*Filter, error) {
	pattern, ok := v.(string)
	if !ok {
		if v == nil {
			return nil, &InvalidValueError{Column: col.FullName(), Operator: op, Err: errNullValue}
		}
		pattern = fmt.Sprint(v)
	}
	return NewFilter(ColumnLike{Column: col, Operator: op, Pattern: pattern, IgnoreCase: ignoreCase}), nil
}

func newBitwiseFilter(col ColumnRef, op Operator, mask any) (*Filter, error) {
	conv, err := col.convert(mask)
	if err != nil {
		return nil, &InvalidValueError{Column: col.FullName(), Operator: op, Err: err}
	}
	return NewFilter(BitwiseMask{Column: col, Operator: op, Mask: conv}), nil
}

// NewFilter builds a filter on a column without attaching it, for composition
// with AddAnd/AddOr before AddFilter. The operator selects the clause variant.
func (c *Criteria) NewFilter(col any, op Operator, value any) (*Filter, error) {
	if op == OpCustom {
		clause, ok := value.(string)
		if !ok {
			return nil, &InvalidClauseError{Clause: fmt.Sprint(value), Reason: "custom operator requires a SQL string"}
		}
		return c.NewRawFilter(clause)
	}
	ref, err := c.Resolve(col, false)
	if err != nil {
		return nil, err
	}
	return c.newColumnFilter(ref, op, value)
}

func (c *Criteria) newColumnFilter(ref ColumnRef, op Operator, value any) (*Filter, error) {
	switch op {
	case OpIn, OpNotIn:
		return newInFilter(ref, op, value)
	case OpLike, OpNotLike, OpILike, OpNotILike:
		return newLikeFilter(ref, op, value, c.ignoreCase)
	case OpBinaryAll, OpBinaryNone:
		return newBitwiseFilter(ref, op, value)
	case OpEq, OpNeq, OpAltNeq, OpGt, OpGte, OpLt, OpLte, OpIsNull, OpIsNotNull:
		return newCompareFilter(ref, op, value, c.ignoreCase)
	case OpExists, OpNotExists:
		return nil, &InvalidClauseError{Clause: ref.FullName(), Reason: "exists filters take a sub-query"}
	}
	return nil, &InvalidClauseError{Clause: ref.FullName(), Reason: fmt.Sprintf("unsupported operator %q", op)}
}

// NewRawFilter builds a filter from a SQL fragment with ? placeholders, e.g. "Book.Title LIKE ?".
func (c *Criteria) NewRawFilter(clause string, values ...any) (*Filter, error) {
	rc, err := c.newRawClause(clause, values, false)
	if err != nil {
		return nil, err
	}
	return NewFilter(rc), nil
}

// NewSubqueryFilter builds "left IN (inner)" or "left NOT IN (inner)". The inner query is cloned.
func (c *Criteria) NewSubqueryFilter(left any, op Operator, inner *Criteria) (*Filter, error) {
	if op != OpIn && op != OpNotIn {
		return nil, &InvalidClauseError{Clause: fmt.Sprint(left), Reason: fmt.Sprintf("operator %s cannot compare with a sub-query", op)}
	}
	ref, err := c.Resolve(left, false)
	if err != nil {
		return nil, err
	}
	if inner == nil {
		return nil, &InvalidClauseError{Clause: ref.FullName(), Reason: "nil sub-query"}
	}
	if err := inner.Err(); err != nil {
		return nil, err
	}
	return NewFilter(SubqueryFilter{Left: ref, Operator: op, Query: inner.Clone()}), nil
}
