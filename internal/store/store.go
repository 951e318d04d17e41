package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"filmdex/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Store is the durable movie store: movie rows with their favorite flag,
// per-query result pages, and per-query search snapshots.
//
// Writes are serialized through an internal mutex; WAL mode gives readers
// snapshot isolation against the single writer.
type Store struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// Open initializes the SQLite database at baseDir/filmdex.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.filmdex.
func Open(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	dbPath := filepath.Join(baseDir, "filmdex.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return &Store{db: db}, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func (s *Store) ConfigurePool(cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		s.db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		s.db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := getUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS movies (
		  id           INTEGER PRIMARY KEY,
		  title        TEXT NOT NULL,
		  release_date TEXT,
		  poster_path  TEXT,
		  overview     TEXT,
		  favorite     INTEGER NOT NULL DEFAULT 0,
		  updated_at   INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_movies_favorite
		ON movies(favorite)
		WHERE favorite = 1;

		CREATE TABLE IF NOT EXISTS pages (
		  query       TEXT NOT NULL,
		  page_number INTEGER NOT NULL,
		  fetched_at  INTEGER NOT NULL,
		  PRIMARY KEY (query, page_number)
		);

		CREATE TABLE IF NOT EXISTS page_movies (
		  query       TEXT NOT NULL,
		  page_number INTEGER NOT NULL,
		  position    INTEGER NOT NULL,
		  movie_id    INTEGER NOT NULL REFERENCES movies(id),
		  PRIMARY KEY (query, page_number, position)
		);

		CREATE TABLE IF NOT EXISTS snapshots (
		  query      TEXT PRIMARY KEY,
		  fetched_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_snapshots_fetched
		ON snapshots(fetched_at DESC);

		CREATE TABLE IF NOT EXISTS snapshot_movies (
		  query    TEXT NOT NULL,
		  position INTEGER NOT NULL,
		  movie_id INTEGER NOT NULL REFERENCES movies(id),
		  PRIMARY KEY (query, position)
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := setUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// getUserVersion returns the current schema version (user_version pragma).
func getUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// setUserVersion sets the schema version (user_version pragma).
func setUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

// now returns the current unix timestamp. Split out so the ...At write
// variants stay the single place tests control time from.
func now() int64 {
	return time.Now().Unix()
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
