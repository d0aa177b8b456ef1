// Package history journals every adopted picture in a local SQLite database
// so operators can inspect what the daemon has shown and when. Recording is
// best-effort: the daemon never fails a cycle over a journal error.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; mismatched databases must be deleted and recreated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by an incompatible
// version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Entry is one journaled picture.
type Entry struct {
	ID           int64
	StartDate    string
	Title        string
	Path         string
	Market       string
	DownloadedAt time.Time
}

// Store persists the picture journal.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database at path, creating
// parent directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the journal database location.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Record journals an adopted picture. Re-adopting the same picture updates
// the existing row instead of inserting a duplicate.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	downloadedAt := entry.DownloadedAt
	if downloadedAt.IsZero() {
		downloadedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pictures (start_date, title, path, market, downloaded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(start_date) DO UPDATE SET
			title = excluded.title,
			path = excluded.path,
			market = excluded.market,
			downloaded_at = excluded.downloaded_at`,
		entry.StartDate, entry.Title, entry.Path, entry.Market, downloadedAt.UTC())
	if err != nil {
		return fmt.Errorf("record picture %s: %w", entry.StartDate, err)
	}
	return nil
}

// List returns journaled pictures newest first, at most limit rows. A limit
// of zero or less returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, start_date, title, path, market, downloaded_at
		FROM pictures
		ORDER BY start_date DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pictures: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.ID, &entry.StartDate, &entry.Title, &entry.Path, &entry.Market, &entry.DownloadedAt); err != nil {
			return nil, fmt.Errorf("scan picture row: %w", err)
		}
		entry.DownloadedAt = entry.DownloadedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate picture rows: %w", err)
	}
	return entries, nil
}
