package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mvp-joe/hackdecl/internal/decl"
)

// File statuses recorded in the files table.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// FileRecord is one row of the files table.
type FileRecord struct {
	Path      string
	Hash      string
	Mode      string
	Status    string
	Error     string
	RunID     string
	IndexedAt time.Time
}

// Entry is one stored declaration.
type Entry struct {
	Path    string          `json:"path"`
	Kind    decl.Kind       `json:"kind"`
	Name    string          `json:"name"`
	Line    int             `json:"line"`
	Payload json.RawMessage `json:"payload"`
}

// StoreStats summarizes the index contents.
type StoreStats struct {
	Files  int
	Failed int
	Decls  map[decl.Kind]int
}

// Store persists per-file declaration tables in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the index database at dbPath.
func OpenStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an open database and creates the schema if needed.
func NewStore(db *sql.DB) (*Store, error) {
	// SQLite allows a single writer; one connection also keeps :memory:
	// databases from splitting across the pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := createSchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceFile stores a successful extraction, replacing whatever the file
// had before.
func (s *Store) ReplaceFile(rec FileRecord, d *decl.Decls) error {
	rec.Status = StatusOK
	rec.Error = ""

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteDecls(tx, rec.Path); err != nil {
		return err
	}
	if err := upsertFile(tx, rec); err != nil {
		return err
	}

	if err := insertTable(tx, rec.Path, decl.KindClass, d.Classes, func(c decl.ClassDecl) int { return c.Span.Start.Line }); err != nil {
		return err
	}
	if err := insertTable(tx, rec.Path, decl.KindFun, d.Funs, func(f decl.FunDecl) int { return f.Span.Start.Line }); err != nil {
		return err
	}
	if err := insertTable(tx, rec.Path, decl.KindTypedef, d.Typedefs, func(t decl.TypedefDecl) int { return t.Span.Start.Line }); err != nil {
		return err
	}
	if err := insertTable(tx, rec.Path, decl.KindConst, d.Consts, func(c decl.ConstDecl) int { return c.Span.Start.Line }); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// MarkFailed records a failed extraction. Declarations from an earlier
// successful run are dropped.
func (s *Store) MarkFailed(rec FileRecord) error {
	rec.Status = StatusFailed

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteDecls(tx, rec.Path); err != nil {
		return err
	}
	if err := upsertFile(tx, rec); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RemoveFile deletes a file and its declarations.
func (s *Store) RemoveFile(path string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteDecls(tx, path); err != nil {
		return err
	}
	if _, err := sq.Delete("files").Where(sq.Eq{"path": path}).RunWith(tx).Exec(); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func deleteDecls(tx *sql.Tx, path string) error {
	if _, err := sq.Delete("decls").Where(sq.Eq{"path": path}).RunWith(tx).Exec(); err != nil {
		return fmt.Errorf("failed to delete decls for %s: %w", path, err)
	}
	return nil
}

func upsertFile(tx *sql.Tx, rec FileRecord) error {
	indexedAt := rec.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = time.Now()
	}

	_, err := sq.Insert("files").
		Columns("path", "hash", "mode", "status", "error", "run_id", "indexed_at").
		Values(rec.Path, rec.Hash, rec.Mode, rec.Status, rec.Error, rec.RunID, indexedAt.UTC().Format(time.RFC3339)).
		Suffix(`ON CONFLICT(path) DO UPDATE SET
			hash = excluded.hash,
			mode = excluded.mode,
			status = excluded.status,
			error = excluded.error,
			run_id = excluded.run_id,
			indexed_at = excluded.indexed_at`).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to upsert file %s: %w", rec.Path, err)
	}
	return nil
}

func insertTable[T any](tx *sql.Tx, path string, kind decl.Kind, table *decl.Table[T], line func(T) int) error {
	for name, d := range table.All() {
		payload, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s: %w", kind, name, err)
		}

		_, err = sq.Insert("decls").
			Columns("path", "kind", "name", "line", "payload").
			Values(path, string(kind), name, line(d), string(payload)).
			RunWith(tx).
			Exec()
		if err != nil {
			return fmt.Errorf("failed to insert %s %s: %w", kind, name, err)
		}
	}
	return nil
}

// File returns the record for path. Returns (nil, nil) if the file is not indexed.
func (s *Store) File(path string) (*FileRecord, error) {
	rec := &FileRecord{}
	var indexedAt string

	err := sq.Select("path", "hash", "mode", "status", "error", "run_id", "indexed_at").
		From("files").
		Where(sq.Eq{"path": path}).
		RunWith(s.db).
		QueryRow().
		Scan(&rec.Path, &rec.Hash, &rec.Mode, &rec.Status, &rec.Error, &rec.RunID, &indexedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", path, err)
	}

	rec.IndexedAt, _ = time.Parse(time.RFC3339, indexedAt)
	return rec, nil
}

// FileHashes returns the stored content hash of every indexed file.
func (s *Store) FileHashes() (map[string]string, error) {
	rows, err := sq.Select("path", "hash").
		From("files").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query file hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan file hash: %w", err)
		}
		hashes[path] = hash
	}
	return hashes, rows.Err()
}

// Lookup finds declarations by name. A name starting with a backslash must
// match exactly; any other name also matches as the last segment of a
// qualified name, so "Foo" finds \Foo and \App\Foo. An empty kind searches
// every table.
func (s *Store) Lookup(kind decl.Kind, name string) ([]Entry, error) {
	query := sq.Select("path", "kind", "name", "line", "payload").From("decls")

	if strings.HasPrefix(name, "\\") {
		query = query.Where(sq.Eq{"name": name})
	} else {
		// Plain suffix comparison: the user's name is never a pattern.
		suffix := "\\" + name
		query = query.Where(sq.Expr("substr(name, -length(?)) = ?", suffix, suffix))
	}
	if kind != "" {
		query = query.Where(sq.Eq{"kind": string(kind)})
	}

	return s.queryEntries(query.OrderBy("name", "kind", "path"))
}

// ListFile returns the declarations stored for one file in table order.
func (s *Store) ListFile(path string) ([]Entry, error) {
	query := sq.Select("path", "kind", "name", "line", "payload").
		From("decls").
		Where(sq.Eq{"path": path}).
		OrderBy(`CASE kind WHEN 'class' THEN 0 WHEN 'fun' THEN 1 WHEN 'typedef' THEN 2 ELSE 3 END`, "name")

	return s.queryEntries(query)
}

func (s *Store) queryEntries(query sq.SelectBuilder) ([]Entry, error) {
	rows, err := query.RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query decls: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var kind, payload string
		if err := rows.Scan(&e.Path, &kind, &e.Name, &e.Line, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan decl: %w", err)
		}
		e.Kind = decl.Kind(kind)
		e.Payload = json.RawMessage(payload)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FailedFiles returns the records of files whose last extraction failed.
func (s *Store) FailedFiles() ([]FileRecord, error) {
	rows, err := sq.Select("path", "hash", "mode", "status", "error", "run_id", "indexed_at").
		From("files").
		Where(sq.Eq{"status": StatusFailed}).
		OrderBy("path").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query failed files: %w", err)
	}
	defer rows.Close()

	var recs []FileRecord
	for rows.Next() {
		var rec FileRecord
		var indexedAt string
		if err := rows.Scan(&rec.Path, &rec.Hash, &rec.Mode, &rec.Status, &rec.Error, &rec.RunID, &indexedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		rec.IndexedAt, _ = time.Parse(time.RFC3339, indexedAt)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Stats counts files and declarations.
func (s *Store) Stats() (*StoreStats, error) {
	stats := &StoreStats{Decls: make(map[decl.Kind]int)}

	err := sq.Select("COUNT(*)", "COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)").
		From("files").
		RunWith(s.db).
		QueryRow().
		Scan(&stats.Files, &stats.Failed)
	if err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}

	rows, err := sq.Select("kind", "COUNT(*)").
		From("decls").
		GroupBy("kind").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to count decls: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan decl count: %w", err)
		}
		stats.Decls[decl.Kind(kind)] = n
	}
	return stats, rows.Err()
}
