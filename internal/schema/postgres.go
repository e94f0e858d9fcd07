package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const columnsQuery = `
SELECT c.table_name, c.column_name, c.data_type, c.is_nullable = 'NO'
FROM information_schema.columns c
JOIN information_schema.tables t
	ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE c.table_schema = $1 AND t.table_type = 'BASE TABLE'
ORDER BY c.table_name, c.ordinal_position
`

const primaryKeysQuery = `
SELECT kcu.table_name, kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
	ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
WHERE tc.table_schema = $1 AND tc.constraint_type = 'PRIMARY KEY'
`

// Multi-column constraints are matched column by column through the referenced position.
const foreignKeysQuery = `
SELECT tc.constraint_name, kcu.table_name, kcu.column_name, rcu.table_name, rcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
	ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
JOIN information_schema.referential_constraints rc
	ON rc.constraint_name = tc.constraint_name AND rc.constraint_schema = tc.table_schema
JOIN information_schema.key_column_usage rcu
	ON rcu.constraint_name = rc.unique_constraint_name
	AND rcu.table_schema = rc.unique_constraint_schema
	AND rcu.ordinal_position = kcu.position_in_unique_constraint
WHERE tc.table_schema = $1 AND tc.constraint_type = 'FOREIGN KEY'
ORDER BY tc.constraint_name, kcu.ordinal_position
`

type pgColumn struct {
	table, name, dataType string
	notNull               bool
}

type pgKey struct{ table, column string }

type pgForeignKey struct {
	constraint, table, column, refTable, refColumn string
}

// LoadPostgres introspects a PostgreSQL schema into a database map.
// Columns, primary keys and foreign keys are read concurrently.
func LoadPostgres(ctx context.Context, pool *pgxpool.Pool, schemaName string) (*DatabaseMap, error) {
	var (
		columns []pgColumn
		pks     []pgKey
		fks     []pgForeignKey
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := pool.Query(gctx, columnsQuery, schemaName)
		if err != nil {
			return fmt.Errorf("introspect columns: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var c pgColumn
			if err := rows.Scan(&c.table, &c.name, &c.dataType, &c.notNull); err != nil {
				return fmt.Errorf("introspect columns scan: %w", err)
			}
			columns = append(columns, c)
		}
		return rows.Err()
	})
	g.Go(func() error {
		rows, err := pool.Query(gctx, primaryKeysQuery, schemaName)
		if err != nil {
			return fmt.Errorf("introspect primary keys: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var k pgKey
			if err := rows.Scan(&k.table, &k.column); err != nil {
				return fmt.Errorf("introspect primary keys scan: %w", err)
			}
			pks = append(pks, k)
		}
		return rows.Err()
	})
	g.Go(func() error {
		rows, err := pool.Query(gctx, foreignKeysQuery, schemaName)
		if err != nil {
			return fmt.Errorf("introspect foreign keys: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var fk pgForeignKey
			if err := rows.Scan(&fk.constraint, &fk.table, &fk.column, &fk.refTable, &fk.refColumn); err != nil {
				return fmt.Errorf("introspect foreign keys scan: %w", err)
			}
			fks = append(fks, fk)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return buildFromCatalog(schemaName, columns, pks, fks)
}

func buildFromCatalog(schemaName string, columns []pgColumn, pks []pgKey, fks []pgForeignKey) (*DatabaseMap, error) {
	db := NewDatabase(schemaName)
	db.Adapter = "pgsql"

	isPK := make(map[pgKey]bool, len(pks))
	for _, k := range pks {
		isPK[k] = true
	}
	for _, c := range columns {
		t := db.AddTable(c.table, "")
		var opts []ColumnOption
		if isPK[pgKey{c.table, c.name}] {
			opts = append(opts, PrimaryKey())
		} else if c.notNull {
			opts = append(opts, NotNull())
		}
		t.AddColumn(c.name, "", pgColumnType(c.dataType), opts...)
	}

	// group constraint rows into relation definitions, preserving order
	var defs []*RelationDef
	byConstraint := make(map[string]*RelationDef)
	for _, fk := range fks {
		def, ok := byConstraint[fk.constraint]
		if !ok {
			def = &RelationDef{Name: fk.constraint, Type: ManyToOne, LocalTable: fk.table, ForeignTable: fk.refTable}
			byConstraint[fk.constraint] = def
			defs = append(defs, def)
		}
		def.Mappings = append(def.Mappings, MappingDef{Local: fk.column, Foreign: fk.refColumn})
	}

	for _, def := range defs {
		def.Name = relationName(db, def)
		def.Inverse = def.LocalTable
		if _, err := db.AddRelation(*def); err != nil {
			return nil, fmt.Errorf("introspect: %w", err)
		}
	}
	return db, nil
}

// relationName names a relation after its foreign table unless that name is taken locally.
func relationName(db *DatabaseMap, def *RelationDef) string {
	local, ok := db.Table(def.LocalTable)
	if !ok {
		return def.Name
	}
	if _, taken := local.Relation(def.ForeignTable); taken {
		return def.Name
	}
	return def.ForeignTable
}

func pgColumnType(dataType string) ColumnType {
	switch strings.ToLower(dataType) {
	case "integer":
		return TypeInteger
	case "bigint":
		return TypeBigint
	case "smallint":
		return TypeSmallint
	case "real":
		return TypeFloat
	case "double precision":
		return TypeDouble
	case "numeric":
		return TypeDecimal
	case "character":
		return TypeChar
	case "character varying":
		return TypeVarchar
	case "text":
		return TypeLongText
	case "boolean":
		return TypeBoolean
	case "date":
		return TypeDate
	case "time without time zone", "time with time zone":
		return TypeTime
	case "timestamp without time zone", "timestamp with time zone":
		return TypeTimestamp
	case "bytea":
		return TypeBlob
	case "uuid":
		return TypeUUID
	case "json", "jsonb":
		return TypeJSON
	case "array":
		return TypeArray
	}
	return TypeVarchar
}
