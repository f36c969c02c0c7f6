// Package memory persists the conversation log and the long-term memory
// vectors in a single SQLite database.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS chat_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	role        TEXT    NOT NULL,
	user        TEXT    NOT NULL DEFAULT '',
	content     TEXT    NOT NULL,
	action      TEXT    NOT NULL DEFAULT '',
	question    TEXT    NOT NULL DEFAULT '',
	answers     TEXT    NOT NULL DEFAULT '',
	severity    TEXT    NOT NULL DEFAULT '',
	time        INTEGER NOT NULL,
	token_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS memories (
	id         TEXT    PRIMARY KEY,
	text       TEXT    NOT NULL,
	embedding  BLOB    NOT NULL,
	dims       INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
`

// DB is the shared SQLite handle behind LogStore and VectorStore.
type DB struct {
	sql  *sql.DB
	path string
}

// Open opens (creating if necessary) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if path == ":memory:" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// One writer at a time keeps SQLite out of SQLITE_BUSY territory.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{sql: db, path: path}, nil
}

func (d *DB) Path() string { return d.path }

// Close releases the database handle.
func (d *DB) Close() error { return d.sql.Close() }
