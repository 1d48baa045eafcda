// Package db adapts database/sql and pgx to one small query interface so the
// repositories run unchanged on SQLite (CLI) and Postgres (server).
package db

import (
	"context"
	"errors"
)

// ErrNoRows is returned by Row.Scan when the query matched nothing,
// regardless of driver.
var ErrNoRows = errors.New("db: no rows in result set")

// DBTX is the subset of a connection the repositories need. Queries use
// $n placeholders numbered in order of first appearance.
type DBTX interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

type Row interface {
	Scan(dest ...any) error
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)
