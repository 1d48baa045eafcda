//go:build !release

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garrettladley/whoopsync/internal/db"
)

const migrationsDir = "internal/migrations/sql"

// newMigrationCmd creates a matching empty migration for both dialects.
func newMigrationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new-migration <name>",
		Short: "Create a new migration file for each dialect",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			name := args[0]

			for _, dialect := range []db.Dialect{db.DialectSQLite, db.DialectPostgres} {
				dir := filepath.Join(migrationsDir, string(dialect))

				entries, err := os.ReadDir(dir)
				if err != nil {
					return fmt.Errorf("failed to read migrations directory: %w", err)
				}

				filename := filepath.Join(dir, fmt.Sprintf("%04d_%s.sql", nextMigrationNum(entries), name))
				if _, err := os.Stat(filename); err == nil {
					return fmt.Errorf("migration file already exists: %s", filename)
				}

				content := fmt.Sprintf("-- Migration: %s (%s)\n\n", name, dialect)
				if err := os.WriteFile(filename, []byte(content), 0o600); err != nil {
					return fmt.Errorf("failed to create migration file: %w", err)
				}

				fmt.Printf("Created migration: %s\n", filename)
			}
			return nil
		},
	}
}

func nextMigrationNum(entries []os.DirEntry) int {
	var highest int
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(entry.Name(), "_")
		if !ok {
			continue
		}
		var num int
		if _, err := fmt.Sscanf(prefix, "%d", &num); err != nil {
			continue
		}
		highest = max(highest, num)
	}
	return highest + 1
}
