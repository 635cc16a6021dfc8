package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migration/*.sql
var migrationFiles embed.FS

// OpenIndex opens (creating if absent) the sqlite index at dbPath and
// applies the schema migration. The index tracks build-job history and
// the jail-instance table `ps` reads from — it is a queryable cache over
// the authoritative state/<name>.json files, not a replacement for them.
func OpenIndex(ctx context.Context, dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite index: %w", err)
	}

	schema, err := migrationFiles.ReadFile("migration/001_initial.sql")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read migration file: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return db, nil
}
