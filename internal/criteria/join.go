package criteria

import (
	"fmt"
	"strings"

	"github.com/smhg/criteria/internal/schema"
)

// JoinType is the SQL join keyword. ImplicitJoin lists the table in FROM and moves
// the condition to WHERE.
type JoinType string

const (
	InnerJoin    JoinType = "INNER JOIN"
	LeftJoin     JoinType = "LEFT JOIN"
	RightJoin    JoinType = "RIGHT JOIN"
	ImplicitJoin JoinType = ""
)

// ParseJoinType accepts "inner", "left", "right", "implicit" and the SQL keywords.
func ParseJoinType(s string) (JoinType, error) {
	switch strings.ToUpper(strings.Join(strings.Fields(s), " ")) {
	case "", "INNER", "INNER JOIN", "JOIN":
		return InnerJoin, nil
	case "LEFT", "LEFT JOIN", "LEFT OUTER JOIN":
		return LeftJoin, nil
	case "RIGHT", "RIGHT JOIN", "RIGHT OUTER JOIN":
		return RightJoin, nil
	case "IMPLICIT", ",":
		return ImplicitJoin, nil
	}
	return "", fmt.Errorf("unknown join type %q", s)
}

// Join links a left table to a right table through one or more conditions ANDed together.
// Joins built from relation metadata keep the relation and, for dotted relation
// paths, the join of the preceding hop.
type Join struct {
	LeftTable  string
	LeftAlias  string
	RightTable string
	RightAlias string
	Type       JoinType
	Conditions []*Filter

	Relation *schema.RelationMap
	Previous *Join

	rightMap *schema.TableMap
}

// LeftName returns the alias of the left table, or its name.
func (j *Join) LeftName() string {
	if j.LeftAlias != "" {
		return j.LeftAlias
	}
	return j.LeftTable
}

// RightName returns the alias of the right table, or its name.
func (j *Join) RightName() string {
	if j.RightAlias != "" {
		return j.RightAlias
	}
	return j.RightTable
}

// Equal compares tables, aliases, join type and conditions.
func (j *Join) Equal(o *Join) bool {
	if j == nil || o == nil {
		return j == o
	}
	if j.LeftTable != o.LeftTable || j.LeftAlias != o.LeftAlias ||
		j.RightTable != o.RightTable || j.RightAlias != o.RightAlias ||
		j.Type != o.Type || len(j.Conditions) != len(o.Conditions) {
		return false
	}
	for i, c := range j.Conditions {
		if !c.Equal(o.Conditions[i]) {
			return false
		}
	}
	return true
}

func (j *Join) clone() *Join {
	out := *j
	out.Conditions = make([]*Filter, len(j.Conditions))
	for i, c := range j.Conditions {
		out.Conditions[i] = c.Clone()
	}
	return &out
}

// relationConditions derives one condition per column mapping of rel. Constant mappings
// (polymorphic discriminators) compare the present column with the value, the others
// compare the left and right columns.
func relationConditions(rel *schema.RelationMap, left, right string) ([]*Filter, error) {
	var conds []*Filter
	for _, m := range rel.Mappings {
		switch {
		case !m.HasValue:
			conds = append(conds, NewFilter(JoinEquality{
				Left:     newRef(left, m.Local),
				Operator: OpEq,
				Right:    newRef(right, m.Foreign),
			}))
		case m.Local != nil:
			f, err := newCompareFilter(newRef(left, m.Local), OpEq, m.Value, false)
			if err != nil {
				return nil, err
			}
			conds = append(conds, f)
		default:
			f, err := newCompareFilter(newRef(right, m.Foreign), OpEq, m.Value, false)
			if err != nil {
				return nil, err
			}
			conds = append(conds, f)
		}
	}
	return conds, nil
}

// addJoin appends j unless an equal join exists, and registers its names for resolution.
func (c *Criteria) addJoin(j *Join, names ...string) *Join {
	for _, existing := range c.joins {
		if existing.Equal(j) {
			return existing
		}
	}
	c.joins = append(c.joins, j)
	if j.RightAlias != "" {
		c.joinsByName[j.RightAlias] = j
	}
	for _, n := range names {
		if _, taken := c.joinsByName[n]; !taken && n != "" {
			c.joinsByName[n] = j
		}
	}
	return j
}

// Join adds an equality join between two columns. The right column's table is the joined table.
func (c *Criteria) Join(left, right any, typ JoinType) *Criteria {
	return c.AddMultipleJoin([][2]any{{left, right}}, typ)
}

// AddMultipleJoin joins on several column pairs ANDed together. Every pair must
// go from the same left table to the same right table.
func (c *Criteria) AddMultipleJoin(pairs [][2]any, typ JoinType) *Criteria {
	if c.err != nil {
		return c
	}
	if len(pairs) == 0 {
		return c.fail(&InvalidClauseError{Clause: "join", Reason: "no join columns"})
	}
	var j *Join
	for _, p := range pairs {
		l, err := c.Resolve(p[0], false)
		if err != nil {
			return c.fail(err)
		}
		r, err := c.Resolve(p[1], false)
		if err != nil {
			return c.fail(err)
		}
		if j == nil {
			j = &Join{Type: typ}
			j.LeftTable, j.LeftAlias = c.splitAlias(l)
			j.RightTable, j.RightAlias = c.splitAlias(r)
			if r.Column != nil {
				j.rightMap = r.Column.Table()
			}
		} else if l.Table != j.LeftName() || r.Table != j.RightName() {
			return c.fail(&InvalidClauseError{Clause: "join", Reason: "join columns span more than two tables"})
		}
		j.Conditions = append(j.Conditions, NewFilter(JoinEquality{Left: l, Operator: OpEq, Right: r}))
	}
	c.addJoin(j)
	return c
}

// splitAlias returns the SQL table name and alias a reference is emitted under.
func (c *Criteria) splitAlias(r ColumnRef) (table, alias string) {
	table = r.tableName()
	if r.Table != table {
		return table, r.Table
	}
	return table, ""
}

// JoinRelation joins along a dotted relation path starting at the primary table,
// e.g. "Author" or "Author.Country". A leading primary table name is skipped.
// alias names the last hop; intermediate hops are reused when already joined.
func (c *Criteria) JoinRelation(path, alias string, typ JoinType) *Criteria {
	if c.err != nil {
		return c
	}
	if _, err := c.joinRelation(path, alias, typ); err != nil {
		return c.fail(err)
	}
	return c
}

func (c *Criteria) joinRelation(path, alias string, typ JoinType) (*Join, error) {
	if c.primary == nil {
		return nil, &UnknownRelationError{Relation: path, Table: "(none)"}
	}
	hops := strings.Split(path, ".")
	if len(hops) > 1 && (hops[0] == c.primary.LogicalName || hops[0] == c.primary.Name || (c.alias != "" && hops[0] == c.alias)) {
		hops = hops[1:]
	}

	table, leftName := c.primary, c.primaryName()
	var prev *Join
	for i, hop := range hops {
		rel, ok := table.Relation(hop)
		if !ok {
			return nil, &UnknownRelationError{Table: table.Name, Relation: hop}
		}
		last := i == len(hops)-1
		j := &Join{
			LeftTable:  table.Name,
			RightTable: rel.Foreign.Name,
			Type:       typ,
			Relation:   rel,
			Previous:   prev,
			rightMap:   rel.Foreign,
		}
		if leftName != table.Name {
			j.LeftAlias = leftName
		}
		if last {
			j.RightAlias = alias
		}
		conds, err := relationConditions(rel, j.LeftName(), j.RightName())
		if err != nil {
			return nil, err
		}
		j.Conditions = conds
		prev = c.addJoin(j, rel.Name)
		table, leftName = rel.Foreign, prev.RightName()
	}
	return prev, nil
}

// JoinFor returns the join registered under a relation name or alias.
func (c *Criteria) JoinFor(name string) (*Join, bool) {
	j, ok := c.joinsByName[name]
	return j, ok
}

// Joins returns the joins in insertion order.
func (c *Criteria) Joins() []*Join {
	return append([]*Join(nil), c.joins...)
}
