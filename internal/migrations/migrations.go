// Package migrations applies the embedded schema for either dialect.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/garrettladley/whoopsync/internal/db"
)

//go:embed sql/sqlite/*.sql sql/postgres/*.sql
var migrationsFS embed.FS

var historyDDL = map[db.Dialect]string{
	db.DialectSQLite: `
		CREATE TABLE IF NOT EXISTS migrations_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	db.DialectPostgres: `
		CREATE TABLE IF NOT EXISTS migrations_history (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`,
}

// Apply runs every migration not yet recorded in migrations_history, in
// file name order. It returns the names it applied.
func Apply(ctx context.Context, conn db.DBTX, dialect db.Dialect) ([]string, error) {
	ddl, ok := historyDDL[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	if _, err := conn.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("creating migrations history table: %w", err)
	}

	dir := path.Join("sql", string(dialect))
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var applied []string
	for _, name := range names {
		done, err := isApplied(ctx, conn, name)
		if err != nil {
			return applied, err
		}
		if done {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, path.Join(dir, name))
		if err != nil {
			return applied, fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		for stmt := range strings.SplitSeq(string(content), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return applied, fmt.Errorf("failed to execute migration %s: %w", name, err)
			}
		}

		if _, err := conn.Exec(ctx, "INSERT INTO migrations_history (name) VALUES ($1)", name); err != nil {
			return applied, fmt.Errorf("recording migration %s: %w", name, err)
		}
		applied = append(applied, name)
	}

	return applied, nil
}

func isApplied(ctx context.Context, conn db.DBTX, name string) (bool, error) {
	var count int
	if err := conn.QueryRow(ctx, "SELECT COUNT(*) FROM migrations_history WHERE name = $1", name).Scan(&count); err != nil {
		return false, fmt.Errorf("checking if migration applied: %w", err)
	}
	return count > 0, nil
}
