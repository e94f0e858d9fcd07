package querydoc

import (
	"fmt"
	"strings"

	"github.com/smhg/criteria/internal/adapter"
	"github.com/smhg/criteria/internal/criteria"
	"github.com/smhg/criteria/internal/filterexpr"
	"github.com/smhg/criteria/internal/schema"
)

// Build turns the document into a criteria over db. The returned criteria is ready to compile.
func (d *Document) Build(db *schema.DatabaseMap) (*criteria.Criteria, error) {
	c := criteria.New(db, d.From)
	if err := c.Err(); err != nil {
		return nil, err
	}
	if d.Adapter != "" {
		a, err := adapter.ForName(d.Adapter)
		if err != nil {
			return nil, err
		}
		c.WithAdapter(a)
	}
	if d.Alias != "" {
		c.As(d.Alias)
	}
	c.IgnoreCase(d.IgnoreCase)

	for _, j := range d.Joins {
		typ, err := criteria.ParseJoinType(j.Type)
		if err != nil {
			return nil, fmt.Errorf("join %s: %w", j.Relation, err)
		}
		c.JoinRelation(j.Relation, j.Alias, typ)
	}

	for _, col := range d.Select {
		c.AddSelectColumn(col)
	}
	for _, a := range d.As {
		c.AddAsColumn(a.Alias, a.Expr)
	}
	if d.Distinct {
		c.Distinct()
	}
	if err := c.Err(); err != nil {
		return nil, err
	}

	if err := applyFilters(c, d.Filters, d.Where); err != nil {
		return nil, err
	}

	for _, s := range d.Exists {
		if err := applySubquery(c, s); err != nil {
			return nil, err
		}
	}

	for _, g := range d.GroupBy {
		c.GroupBy(g)
	}
	for _, h := range d.Having {
		c.Having(h.SQL, h.Values...)
	}
	for _, o := range d.Order {
		col, dir := splitOrder(o)
		c.OrderBy(col, dir)
	}
	if d.Limit != nil {
		c.Limit(*d.Limit)
	}
	c.Offset(d.Offset)
	return c, c.Err()
}

func applyFilters(c *criteria.Criteria, filters []FilterSpec, where []string) error {
	for _, f := range filters {
		if err := applyFilter(c, f.Column, f.Expr, f.Or); err != nil {
			return err
		}
	}
	for _, w := range where {
		if err := filterexpr.Apply(c, w); err != nil {
			return fmt.Errorf("where %q: %w", w, err)
		}
	}
	return c.Err()
}

func applySubquery(c *criteria.Criteria, s Subquery) error {
	var subErr error
	fn := func(sub *criteria.Criteria) {
		subErr = applyFilters(sub, s.Filters, s.Where)
	}
	switch {
	case s.In && s.Not:
		c.UseNotInQuery(s.Relation, s.Alias, fn)
	case s.In:
		c.UseInQuery(s.Relation, s.Alias, fn)
	case s.Not:
		c.UseNotExistsQuery(s.Relation, s.Alias, fn)
	default:
		c.UseExistsQuery(s.Relation, s.Alias, fn)
	}
	if subErr != nil {
		return fmt.Errorf("sub-query %s: %w", s.Relation, subErr)
	}
	return c.Err()
}

// splitOrder splits "title.desc" into column and direction. A trailing segment that is
// not a direction is part of the column, so "book.title" sorts ascending.
func splitOrder(s string) (col, dir string) {
	i := strings.LastIndexByte(s, '.')
	if i < 0 {
		return s, "asc"
	}
	switch strings.ToLower(s[i+1:]) {
	case "asc", "desc":
		return s[:i], s[i+1:]
	}
	return s, "asc"
}
