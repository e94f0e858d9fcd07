package querydoc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smhg/criteria/internal/criteria"
)

type FilterOp string

const (
	OpEq    FilterOp = "eq"
	OpNeq   FilterOp = "neq"
	OpGt    FilterOp = "gt"
	OpGte   FilterOp = "gte"
	OpLt    FilterOp = "lt"
	OpLte   FilterOp = "lte"
	OpLike  FilterOp = "like"
	OpNlike FilterOp = "nlike"
	OpIlike FilterOp = "ilike"
	OpIn    FilterOp = "in"
	OpNin   FilterOp = "nin"
	OpIs    FilterOp = "is"
	OpAll   FilterOp = "all"
	OpNone  FilterOp = "none"
)

var validOps = map[FilterOp]bool{
	OpEq: true, OpNeq: true, OpGt: true, OpGte: true,
	OpLt: true, OpLte: true, OpLike: true, OpNlike: true, OpIlike: true,
	OpIn: true, OpNin: true, OpIs: true, OpAll: true, OpNone: true,
}

// ParseFilter parses a filter value like "eq.hello" into op + value.
func ParseFilter(raw string) (FilterOp, string, error) {
	before, after, ok := strings.Cut(raw, ".")
	if !ok {
		return "", "", fmt.Errorf("invalid filter format %q, expected op.value", raw)
	}

	op := FilterOp(before)
	if !validOps[op] {
		return "", "", fmt.Errorf("unknown filter operator %q", op)
	}

	value := after
	if op == OpIs && value != "null" && value != "not_null" {
		return "", "", fmt.Errorf("is operator only accepts null or not_null, got %q", value)
	}

	return op, value, nil
}

// InValues splits a comma-separated list filter value into individual values.
// An empty value yields an empty list.
func InValues(value string) []string {
	if value == "" {
		return []string{}
	}
	return strings.Split(value, ",")
}

// Operator returns the criteria operator for op. For "is" the value picks IS NULL or IS NOT NULL.
func Operator(op FilterOp, value string) criteria.Operator {
	switch op {
	case OpEq:
		return criteria.OpEq
	case OpNeq:
		return criteria.OpNeq
	case OpGt:
		return criteria.OpGt
	case OpGte:
		return criteria.OpGte
	case OpLt:
		return criteria.OpLt
	case OpLte:
		return criteria.OpLte
	case OpLike:
		return criteria.OpLike
	case OpNlike:
		return criteria.OpNotLike
	case OpIlike:
		return criteria.OpILike
	case OpIn:
		return criteria.OpIn
	case OpNin:
		return criteria.OpNotIn
	case OpAll:
		return criteria.OpBinaryAll
	case OpNone:
		return criteria.OpBinaryNone
	case OpIs:
		if value == "not_null" {
			return criteria.OpIsNotNull
		}
		return criteria.OpIsNull
	default:
		return criteria.OpEq
	}
}

// applyFilter adds one "op.value" filter on col to c.
func applyFilter(c *criteria.Criteria, col, expr string, or bool) error {
	op, raw, err := ParseFilter(expr)
	if err != nil {
		return fmt.Errorf("filter %q: %w", col, err)
	}
	ref, err := c.Resolve(col, false)
	if err != nil {
		return fmt.Errorf("filter %q: %w", col, err)
	}

	var value any
	switch op {
	case OpIn, OpNin, OpAll, OpNone:
		items := InValues(raw)
		list := make([]any, len(items))
		for i, item := range items {
			list[i] = typedValue(ref, strings.TrimSpace(item))
		}
		value = list
	case OpLike, OpNlike, OpIlike:
		value = strings.ReplaceAll(raw, "*", "%")
	case OpIs:
	default:
		value = typedValue(ref, raw)
	}

	if or {
		c.Or()
	}
	c.Filter(ref, Operator(op, raw), value)
	return c.Err()
}

// typedValue parses numeric text for numeric columns so drivers bind the right type.
// Anything else stays a string and is converted by the column.
func typedValue(ref criteria.ColumnRef, s string) any {
	if ref.Column == nil || !ref.Column.IsNumeric() {
		return s
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
