package filterexpr

import (
	"fmt"
	"strings"

	"github.com/smhg/criteria/internal/criteria"
)

// Node is the interface all AST nodes implement.
type Node interface {
	node() // marker method
	String() string
}

// Comparison is a single column condition: column op value, or column [NOT] IN (values).
type Comparison struct {
	Column string
	Op     criteria.Operator
	Value  any   // string, int64, float64, bool or nil
	Values []any // IN and NOT IN only
}

// Logical joins two expressions with AND or OR.
type Logical struct {
	Op    criteria.Conjunction
	Left  Node
	Right Node
}

func (*Comparison) node() {}
func (*Logical) node()    {}

func (c *Comparison) String() string {
	switch c.Op {
	case criteria.OpIsNull, criteria.OpIsNotNull:
		return c.Column + " " + string(c.Op)
	case criteria.OpIn, criteria.OpNotIn:
		items := make([]string, len(c.Values))
		for i, v := range c.Values {
			items[i] = formatValue(v)
		}
		return c.Column + " " + string(c.Op) + " (" + strings.Join(items, ", ") + ")"
	}
	return c.Column + " " + string(c.Op) + " " + formatValue(c.Value)
}

func (l *Logical) String() string {
	return "(" + l.Left.String() + " " + string(l.Op) + " " + l.Right.String() + ")"
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'"
	}
	return fmt.Sprint(v)
}
