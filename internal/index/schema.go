package index

import (
	"database/sql"
	"fmt"
)

const createFilesTable = `
CREATE TABLE IF NOT EXISTS files (
    path       TEXT PRIMARY KEY,
    hash       TEXT NOT NULL,
    mode       TEXT NOT NULL,
    status     TEXT NOT NULL,
    error      TEXT NOT NULL DEFAULT '',
    run_id     TEXT NOT NULL,
    indexed_at TEXT NOT NULL
)`

const createDeclsTable = `
CREATE TABLE IF NOT EXISTS decls (
    path    TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
    kind    TEXT NOT NULL,
    name    TEXT NOT NULL,
    line    INTEGER NOT NULL,
    payload TEXT NOT NULL,
    PRIMARY KEY (path, kind, name)
)`

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_decls_name ON decls(name)`,
	`CREATE INDEX IF NOT EXISTS idx_files_status ON files(status)`,
}

// createSchema creates the index tables if they do not exist yet.
func createSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"files", createFilesTable},
		{"decls", createDeclsTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}
