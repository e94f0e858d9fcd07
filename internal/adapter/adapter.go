// Package adapter describes the SQL dialect capabilities the criteria compiler relies on.
package adapter

import (
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Adapter is the dialect surface consumed by the compiler.
type Adapter interface {
	// Name returns the canonical adapter name ("pgsql", "mysql", "sqlite").
	Name() string
	// QuoteIdentifier quotes a single identifier.
	QuoteIdentifier(name string) string
	// QuoteIdentifierTable quotes "schema.table" and "table alias" forms part by part.
	QuoteIdentifierTable(table string) string
	// IgnoreCase wraps an expression in the dialect's case folding function.
	IgnoreCase(expr string) string
	// SupportsILike reports whether the dialect has a native ILIKE operator.
	SupportsILike() bool
	// ApplyLimit appends limit and offset clauses. A negative limit means no limit
	// and a zero offset means no offset.
	ApplyLimit(sql string, offset, limit int) string
	// PlaceholderFormat returns the bind placeholder style of the driver.
	PlaceholderFormat() sq.PlaceholderFormat
}

// ForName returns the adapter registered under name.
func ForName(name string) (Adapter, error) {
	switch strings.ToLower(name) {
	case "pgsql", "postgres", "postgresql", "pgx":
		return Postgres{}, nil
	case "mysql":
		return MySQL{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	}
	return nil, fmt.Errorf("unknown adapter %q", name)
}

// quoteTable quotes every dotted part of the table and an optional trailing alias.
func quoteTable(table string, quote func(string) string) string {
	name, alias, hasAlias := strings.Cut(strings.TrimSpace(table), " ")
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quote(p)
	}
	out := strings.Join(parts, ".")
	if hasAlias {
		out += " " + quote(strings.TrimSpace(alias))
	}
	return out
}

func upper(expr string) string { return "UPPER(" + expr + ")" }

// Postgres is the PostgreSQL dialect.
type Postgres struct{}

func (Postgres) Name() string { return "pgsql" }

func (Postgres) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (p Postgres) QuoteIdentifierTable(table string) string {
	return quoteTable(table, p.QuoteIdentifier)
}

func (Postgres) IgnoreCase(expr string) string { return upper(expr) }

func (Postgres) SupportsILike() bool { return true }

func (Postgres) ApplyLimit(sql string, offset, limit int) string {
	if limit >= 0 {
		sql += " LIMIT " + strconv.Itoa(limit)
	}
	if offset > 0 {
		sql += " OFFSET " + strconv.Itoa(offset)
	}
	return sql
}

func (Postgres) PlaceholderFormat() sq.PlaceholderFormat { return sq.Dollar }

// MySQL is the MySQL/MariaDB dialect.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (m MySQL) QuoteIdentifierTable(table string) string {
	return quoteTable(table, m.QuoteIdentifier)
}

func (MySQL) IgnoreCase(expr string) string { return upper(expr) }

func (MySQL) SupportsILike() bool { return false }

// mysqlNoLimit is the documented "all rows" row count for offset-only queries.
const mysqlNoLimit = "18446744073709551615"

func (MySQL) ApplyLimit(sql string, offset, limit int) string {
	switch {
	case limit >= 0 && offset > 0:
		return sql + " LIMIT " + strconv.Itoa(offset) + ", " + strconv.Itoa(limit)
	case limit >= 0:
		return sql + " LIMIT " + strconv.Itoa(limit)
	case offset > 0:
		return sql + " LIMIT " + strconv.Itoa(offset) + ", " + mysqlNoLimit
	}
	return sql
}

func (MySQL) PlaceholderFormat() sq.PlaceholderFormat { return sq.Question }

// SQLite is the SQLite dialect.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s SQLite) QuoteIdentifierTable(table string) string {
	return quoteTable(table, s.QuoteIdentifier)
}

func (SQLite) IgnoreCase(expr string) string { return upper(expr) }

func (SQLite) SupportsILike() bool { return false }

func (SQLite) ApplyLimit(sql string, offset, limit int) string {
	switch {
	case limit >= 0:
		sql += " LIMIT " + strconv.Itoa(limit)
	case offset > 0:
		sql += " LIMIT -1"
	}
	if offset > 0 {
		sql += " OFFSET " + strconv.Itoa(offset)
	}
	return sql
}

func (SQLite) PlaceholderFormat() sq.PlaceholderFormat { return sq.Question }
