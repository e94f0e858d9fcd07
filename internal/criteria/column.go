package criteria

import (
	"errors"
	"fmt"
	"strings"

	"github.com/smhg/criteria/internal/schema"
)

var errNoPrimaryTable = errors.New("criteria has no primary table")

// ColumnRef identifies one column in the context of a query.
// Table is the name emitted in SQL: the table name, or the alias it is known by.
type ColumnRef struct {
	Table    string
	Name     string
	Column   *schema.ColumnMap // nil for AS-columns and derived query columns of unknown type
	AsColumn bool

	quote bool
}

// Col builds an unbound reference. Unbound references bind values without type conversion.
func Col(table, name string) ColumnRef {
	return ColumnRef{Table: table, Name: name}
}

// FullName returns "table.column", or the bare name for AS-columns.
func (r ColumnRef) FullName() string {
	if r.Table == "" || r.AsColumn {
		return r.Name
	}
	return r.Table + "." + r.Name
}

func (r ColumnRef) String() string { return r.FullName() }

// Equal reports whether both references name the same column under the same table alias.
func (r ColumnRef) Equal(o ColumnRef) bool {
	return r.Table == o.Table && r.Name == o.Name
}

// IsZero reports whether r is the zero reference.
func (r ColumnRef) IsZero() bool { return r.Table == "" && r.Name == "" }

// Type returns the declared column type, or "" when unknown.
func (r ColumnRef) Type() schema.ColumnType {
	if r.Column == nil {
		return ""
	}
	return r.Column.Type
}

// IsText reports whether case-insensitive comparison applies to the column.
func (r ColumnRef) IsText() bool {
	return r.Column != nil && r.Column.IsText()
}

// tableName returns the underlying SQL table, not the alias.
func (r ColumnRef) tableName() string {
	if r.Column != nil && r.Column.Table() != nil {
		return r.Column.Table().Name
	}
	return r.Table
}

func (r ColumnRef) convert(v any) (any, error) {
	if r.Column == nil {
		return v, nil
	}
	return r.Column.ConvertValue(v)
}

func newRef(table string, col *schema.ColumnMap) ColumnRef {
	ref := ColumnRef{Table: table, Name: col.Name, Column: col}
	if t := col.Table(); t != nil {
		ref.quote = t.IdentifierQuoting
	}
	return ref
}

// Resolve turns an identifier into a column reference bound to table metadata.
// Accepted forms are "table.column" (table name, logical name, alias, join alias, relation name
// or derived query alias), a bare column name on the primary table, a *schema.ColumnMap, or an
// existing ColumnRef which is returned unchanged. With allowOutput set an AS-column name also resolves.
func (c *Criteria) Resolve(id any, allowOutput bool) (ColumnRef, error) {
	switch v := id.(type) {
	case ColumnRef:
		return v, nil
	case *ColumnRef:
		return *v, nil
	case *schema.ColumnMap:
		return c.refForColumn(v), nil
	case string:
		return c.resolveName(strings.TrimSpace(v), allowOutput)
	}
	return ColumnRef{}, &UnknownColumnError{Column: fmt.Sprint(id), Err: fmt.Errorf("unsupported identifier type %T", id)}
}

func (c *Criteria) refForColumn(col *schema.ColumnMap) ColumnRef {
	t := col.Table()
	if t != nil && t == c.primary {
		return newRef(c.primaryName(), col)
	}
	for _, j := range c.joins {
		if j.rightMap == t {
			return newRef(j.RightName(), col)
		}
	}
	if t != nil {
		return newRef(t.Name, col)
	}
	return newRef("", col)
}

func (c *Criteria) resolveName(name string, allowOutput bool) (ColumnRef, error) {
	if allowOutput {
		if _, ok := c.asIndex[name]; ok {
			return ColumnRef{Name: name, AsColumn: true}, nil
		}
	}

	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		switch {
		case c.primary != nil:
			if col, ok := c.primary.Column(name); ok {
				return newRef(c.primaryName(), col), nil
			}
		case c.fromQuery != nil:
			if ref, ok := c.derivedColumn(c.fromQuery, name); ok {
				return ref, nil
			}
		default:
			return ColumnRef{}, &UnknownColumnError{Column: name, Err: errNoPrimaryTable}
		}
		return ColumnRef{}, &UnknownColumnError{Column: name}
	}

	prefix, colName := name[:i], name[i+1:]
	src, err := c.resolveSource(prefix)
	if err != nil {
		return ColumnRef{}, &UnknownColumnError{Column: name, Err: err}
	}
	if src.derived != nil {
		if ref, ok := c.derivedColumn(src.derived, colName); ok {
			return ref, nil
		}
		return ColumnRef{}, &UnknownColumnError{Column: name}
	}
	col, ok := src.table.Column(colName)
	if !ok {
		return ColumnRef{}, &UnknownColumnError{Column: name}
	}
	return newRef(src.name, col), nil
}

// source is a FROM entry a column prefix can name.
type source struct {
	name    string // as emitted in SQL
	table   *schema.TableMap
	derived *derivedTable
}

func (c *Criteria) resolveSource(prefix string) (source, error) {
	if c.primary != nil && c.alias != "" && prefix == c.alias {
		return source{name: c.alias, table: c.primary}, nil
	}
	if t, ok := c.aliases[prefix]; ok {
		return source{name: prefix, table: t}, nil
	}
	if j, ok := c.joinsByName[prefix]; ok && j.rightMap != nil {
		return source{name: j.RightName(), table: j.rightMap}, nil
	}
	if c.fromQuery != nil && c.fromQuery.alias == prefix {
		return source{name: prefix, derived: c.fromQuery}, nil
	}
	for _, d := range c.selectQueries {
		if d.alias == prefix {
			return source{name: prefix, derived: d}, nil
		}
	}
	if c.db != nil {
		if t, ok := c.db.Table(prefix); ok {
			if t == c.primary {
				return source{name: c.primaryName(), table: t}, nil
			}
			for _, j := range c.joins {
				if j.rightMap == t {
					return source{name: j.RightName(), table: t}, nil
				}
			}
			return source{name: t.Name, table: t}, nil
		}
	}
	if c.primary != nil {
		if rel, ok := c.primary.Relation(prefix); ok {
			return source{name: rel.Foreign.Name, table: rel.Foreign}, nil
		}
	}
	return source{}, &UnknownTableError{Table: prefix}
}

// derivedColumn looks a name up among the output columns of a derived query.
func (c *Criteria) derivedColumn(d *derivedTable, name string) (ColumnRef, bool) {
	for _, out := range d.query.outputColumns() {
		if out.name == name || (out.column != nil && out.column.LogicalName == name) {
			return ColumnRef{Table: d.alias, Name: out.name, Column: out.column}, true
		}
	}
	return ColumnRef{}, false
}

// primaryName returns the name the primary table is referred to by in SQL.
func (c *Criteria) primaryName() string {
	if c.alias != "" {
		return c.alias
	}
	if c.primary != nil {
		return c.primary.Name
	}
	if c.fromQuery != nil {
		return c.fromQuery.alias
	}
	return ""
}
