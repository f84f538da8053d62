// Package registry persists the ordered list of monitored folders in
// SQLite so sessions can be restored across restarts.
package registry

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS folders (
	path     TEXT PRIMARY KEY,
	added_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Folder is one persisted entry.
type Folder struct {
	Path    string    `json:"path"`
	AddedAt time.Time `json:"added_at"`
}

// DB wraps a sql.DB with registry operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the registry database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("registry: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("registry: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("registry: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Add stores a folder path, normalized to its absolute form, and reports
// whether it was new.
func (db *DB) Add(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("registry: resolve path: %w", err)
	}
	res, err := db.conn.Exec(`INSERT OR IGNORE INTO folders (path) VALUES (?)`, abs)
	if err != nil {
		return false, fmt.Errorf("registry: add folder: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Remove deletes a folder path and reports whether it existed.
func (db *DB) Remove(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("registry: resolve path: %w", err)
	}
	res, err := db.conn.Exec(`DELETE FROM folders WHERE path = ?`, abs)
	if err != nil {
		return false, fmt.Errorf("registry: remove folder: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// List returns every persisted folder in insertion order.
func (db *DB) List() ([]Folder, error) {
	rows, err := db.conn.Query(`SELECT path, added_at FROM folders ORDER BY added_at, path`)
	if err != nil {
		return nil, fmt.Errorf("registry: list folders: %w", err)
	}
	defer rows.Close()

	var out []Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.Path, &f.AddedAt); err != nil {
			return nil, fmt.Errorf("registry: scan folder: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
