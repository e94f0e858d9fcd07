package filterexpr

import (
	"fmt"

	"github.com/smhg/criteria/internal/criteria"
)

// Build turns an AST into a filter tree whose columns resolve against c.
// Column names take any form c.Resolve accepts.
func Build(c *criteria.Criteria, n Node) (*criteria.Filter, error) {
	switch x := n.(type) {
	case *Comparison:
		value := x.Value
		if x.Op == criteria.OpIn || x.Op == criteria.OpNotIn {
			value = x.Values
		}
		f, err := c.NewFilter(x.Column, x.Op, value)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", x, err)
		}
		return f, nil
	case *Logical:
		left, err := Build(c, x.Left)
		if err != nil {
			return nil, err
		}
		right, err := Build(c, x.Right)
		if err != nil {
			return nil, err
		}
		if x.Op == criteria.Or {
			return left.AddOr(right), nil
		}
		return left.AddAnd(right), nil
	case nil:
		return nil, fmt.Errorf("empty filter expression")
	}
	return nil, fmt.Errorf("unsupported node %T", n)
}

// Compile parses input and builds it against c.
func Compile(c *criteria.Criteria, input string) (*criteria.Filter, error) {
	n, err := Parse(input)
	if err != nil {
		return nil, err
	}
	return Build(c, n)
}

// Apply parses input and adds the resulting filter to c. On error c is left unchanged.
func Apply(c *criteria.Criteria, input string) error {
	f, err := Compile(c, input)
	if err != nil {
		return err
	}
	c.AddFilter(f)
	return nil
}
