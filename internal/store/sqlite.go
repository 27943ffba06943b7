package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLite stores blobs in a single table keyed by (level, layer, cx, cy).
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path. ":memory:" opens a
// private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS chunks (
		level TEXT NOT NULL,
		layer TEXT NOT NULL,
		cx INTEGER NOT NULL,
		cy INTEGER NOT NULL,
		blob BLOB NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now')),
		PRIMARY KEY (level, layer, cx, cy)
	);`)
	return err
}

// Save upserts the blob under key.
func (s *SQLite) Save(ctx context.Context, key Key, blob []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chunks(level,layer,cx,cy,blob) VALUES(?,?,?,?,?)
		ON CONFLICT(level,layer,cx,cy) DO UPDATE SET blob=excluded.blob, updated_at=strftime('%s','now')`,
		key.Level, string(key.Layer), key.X, key.Y, blob)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Load returns the blob under key, or ErrNotFound.
func (s *SQLite) Load(ctx context.Context, key Key) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT blob FROM chunks WHERE level=? AND layer=? AND cx=? AND cy=?`,
		key.Level, string(key.Layer), key.X, key.Y).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return blob, nil
}

// Scan calls fn for every record of the level and layer in row-major
// chunk order.
func (s *SQLite) Scan(ctx context.Context, level string, layer Layer, fn func(Key, []byte) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cx, cy, blob FROM chunks WHERE level=? AND layer=? ORDER BY cy, cx`,
		level, string(layer))
	if err != nil {
		return fmt.Errorf("scan %s/%s: %w", level, layer, err)
	}

	// Collect first: fn may call back into the store, and there is only one
	// connection.
	type record struct {
		key  Key
		blob []byte
	}
	var records []record
	for rows.Next() {
		r := record{key: Key{Level: level, Layer: layer}}
		if err := rows.Scan(&r.key.X, &r.key.Y, &r.blob); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan %s/%s: %w", level, layer, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("scan %s/%s: %w", level, layer, err)
	}
	_ = rows.Close()

	for _, r := range records {
		if err := fn(r.key, r.blob); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
