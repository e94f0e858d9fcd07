package schema

import (
	"strings"

	"golang.org/x/text/cases"
)

// ColumnType is the declared logical type of a column.
type ColumnType string

const (
	TypeInteger   ColumnType = "INTEGER"
	TypeBigint    ColumnType = "BIGINT"
	TypeSmallint  ColumnType = "SMALLINT"
	TypeFloat     ColumnType = "FLOAT"
	TypeDouble    ColumnType = "DOUBLE"
	TypeDecimal   ColumnType = "DECIMAL"
	TypeChar      ColumnType = "CHAR"
	TypeVarchar   ColumnType = "VARCHAR"
	TypeLongText  ColumnType = "LONGVARCHAR"
	TypeBoolean   ColumnType = "BOOLEAN"
	TypeDate      ColumnType = "DATE"
	TypeTime      ColumnType = "TIME"
	TypeTimestamp ColumnType = "TIMESTAMP"
	TypeBlob      ColumnType = "BLOB"
	TypeEnum      ColumnType = "ENUM"
	TypeSet       ColumnType = "SET"
	TypeArray     ColumnType = "ARRAY"
	TypeObject    ColumnType = "OBJECT"
	TypeJSON      ColumnType = "JSON"
	TypeUUID      ColumnType = "UUID"
)

// ParseColumnType normalizes a type name; unknown names map to VARCHAR.
func ParseColumnType(s string) ColumnType {
	t := ColumnType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case TypeInteger, TypeBigint, TypeSmallint, TypeFloat, TypeDouble, TypeDecimal,
		TypeChar, TypeVarchar, TypeLongText, TypeBoolean, TypeDate, TypeTime, TypeTimestamp,
		TypeBlob, TypeEnum, TypeSet, TypeArray, TypeObject, TypeJSON, TypeUUID:
		return t
	case "INT":
		return TypeInteger
	case "TEXT", "CLOB":
		return TypeLongText
	case "DATETIME":
		return TypeTimestamp
	case "NUMERIC":
		return TypeDecimal
	case "REAL":
		return TypeFloat
	case "BOOL":
		return TypeBoolean
	}
	return TypeVarchar
}

// ColumnMap describes one column of a table.
type ColumnMap struct {
	Name        string // SQL name, e.g. "author_id"
	LogicalName string // schema-level name, e.g. "AuthorId"
	Type        ColumnType
	PrimaryKey  bool
	NotNull     bool
	ValueSet    []string // accepted values for ENUM and SET columns

	table *TableMap
}

// Table returns the table owning the column.
func (c *ColumnMap) Table() *TableMap { return c.table }

// FullyQualifiedName returns "table.column".
func (c *ColumnMap) FullyQualifiedName() string {
	if c.table == nil {
		return c.Name
	}
	return c.table.Name + "." + c.Name
}

// IsText returns true for character columns; case-insensitive comparisons only apply to these.
func (c *ColumnMap) IsText() bool {
	switch c.Type {
	case TypeChar, TypeVarchar, TypeLongText:
		return true
	}
	return false
}

// IsNumeric returns true for columns bound as numbers.
func (c *ColumnMap) IsNumeric() bool {
	switch c.Type {
	case TypeInteger, TypeBigint, TypeSmallint, TypeFloat, TypeDouble, TypeDecimal:
		return true
	}
	return false
}

// ColumnOption configures a column added with TableMap.AddColumn.
type ColumnOption func(*ColumnMap)

// PrimaryKey marks the column as part of the primary key.
func PrimaryKey() ColumnOption {
	return func(c *ColumnMap) {
		c.PrimaryKey = true
		c.NotNull = true
	}
}

// NotNull marks the column as required.
func NotNull() ColumnOption {
	return func(c *ColumnMap) { c.NotNull = true }
}

// Values sets the accepted values of an ENUM or SET column.
func Values(values ...string) ColumnOption {
	return func(c *ColumnMap) { c.ValueSet = append([]string(nil), values...) }
}

// TableMap describes one table and its relations.
type TableMap struct {
	Name        string // SQL name, may be schema-qualified ("core.book")
	LogicalName string // e.g. "Book"
	// IdentifierQuoting requests quoted table and column identifiers in generated SQL.
	IdentifierQuoting bool

	columns   []*ColumnMap
	byName    map[string]*ColumnMap
	byLogical map[string]*ColumnMap
	byFolded  map[string]*ColumnMap
	relations []*RelationMap
	relByName map[string]*RelationMap
	db        *DatabaseMap
}

var fold = cases.Fold()

func foldKey(s string) string { return fold.String(s) }

// NewTable creates a detached table map. DatabaseMap.AddTable is the usual entry point.
func NewTable(name, logicalName string) *TableMap {
	if logicalName == "" {
		logicalName = name
	}
	return &TableMap{
		Name:        name,
		LogicalName: logicalName,
		byName:      make(map[string]*ColumnMap),
		byLogical:   make(map[string]*ColumnMap),
		byFolded:    make(map[string]*ColumnMap),
		relByName:   make(map[string]*RelationMap),
	}
}

// Database returns the database map the table was registered with, or nil.
func (t *TableMap) Database() *DatabaseMap { return t.db }

// AddColumn appends a column. The logical name defaults to the SQL name.
func (t *TableMap) AddColumn(name, logicalName string, typ ColumnType, opts ...ColumnOption) *ColumnMap {
	if logicalName == "" {
		logicalName = name
	}
	col := &ColumnMap{Name: name, LogicalName: logicalName, Type: typ, table: t}
	for _, opt := range opts {
		opt(col)
	}
	t.columns = append(t.columns, col)
	t.byName[name] = col
	t.byLogical[logicalName] = col
	t.byFolded[foldKey(name)] = col
	t.byFolded[foldKey(logicalName)] = col
	return col
}

// Columns returns the columns in declaration order.
func (t *TableMap) Columns() []*ColumnMap { return t.columns }

// Column looks up a column by SQL name, then logical name, then case-insensitively.
func (t *TableMap) Column(name string) (*ColumnMap, bool) {
	if c, ok := t.byName[name]; ok {
		return c, true
	}
	if c, ok := t.byLogical[name]; ok {
		return c, true
	}
	c, ok := t.byFolded[foldKey(name)]
	return c, ok
}

// HasColumn reports whether Column would find name.
func (t *TableMap) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// PrimaryKeys returns the primary key columns in declaration order.
func (t *TableMap) PrimaryKeys() []*ColumnMap {
	var pks []*ColumnMap
	for _, c := range t.columns {
		if c.PrimaryKey {
			pks = append(pks, c)
		}
	}
	return pks
}

// Relation returns the relation declared on this table under name.
func (t *TableMap) Relation(name string) (*RelationMap, bool) {
	if r, ok := t.relByName[name]; ok {
		return r, true
	}
	for _, r := range t.relations {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return nil, false
}

// Relations returns the relations in declaration order.
func (t *TableMap) Relations() []*RelationMap { return t.relations }

func (t *TableMap) addRelation(r *RelationMap) {
	t.relations = append(t.relations, r)
	t.relByName[r.Name] = r
}
