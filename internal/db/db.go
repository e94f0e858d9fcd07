// Package db executes compiled criteria statements through pgx or database/sql.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smhg/criteria/internal/criteria"
)

// Result is a fully read result set.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Runner executes a compiled statement and reads every row.
type Runner interface {
	Rows(ctx context.Context, stmt *criteria.Statement) (*Result, error)
	Close() error
}

// NewPool connects a pgx pool and checks the connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// PgRunner runs statements on a pgx pool.
type PgRunner struct {
	Pool *pgxpool.Pool
}

func (r *PgRunner) Rows(ctx context.Context, stmt *criteria.Statement) (*Result, error) {
	query, args, err := stmt.Query()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	res := &Result{}
	for _, fd := range rows.FieldDescriptions() {
		res.Columns = append(res.Columns, fd.Name)
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	slog.Debug("statement executed", "driver", "pgx", "rows", len(res.Rows), "elapsed", time.Since(start))
	return res, nil
}

func (r *PgRunner) Close() error {
	r.Pool.Close()
	return nil
}

// DriverFor returns the database/sql driver name for an adapter name.
func DriverFor(adapterName string) (string, error) {
	switch adapterName {
	case "pgsql", "postgres", "postgresql":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	}
	return "", fmt.Errorf("no database/sql driver for adapter %q", adapterName)
}

// Open opens a database/sql connection with one of the registered drivers.
func Open(ctx context.Context, driver, dsn string) (*SQLRunner, error) {
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// in-memory databases exist per connection
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return &SQLRunner{DB: conn, driver: driver}, nil
}

// SQLRunner runs statements on a database/sql handle.
type SQLRunner struct {
	DB     *sql.DB
	driver string
}

func (r *SQLRunner) Rows(ctx context.Context, stmt *criteria.Statement) (*Result, error) {
	query, args, err := stmt.Query()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	res := &Result{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	slog.Debug("statement executed", "driver", r.driver, "rows", len(res.Rows), "elapsed", time.Since(start))
	return res, nil
}

// Exec runs a statement that returns no rows, such as DDL in tests and fixtures.
func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

func (r *SQLRunner) Close() error {
	return r.DB.Close()
}

var (
	_ Runner = (*PgRunner)(nil)
	_ Runner = (*SQLRunner)(nil)
)
