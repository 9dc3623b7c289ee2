package db

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when a lookup by ID or code has no match.
var ErrNotFound = errors.New("not found")

// DB wraps a SQLite database connection
type DB struct {
	conn *sql.DB
	Path string
}

// OpenDB opens a SQLite database with WAL mode and foreign keys enabled
// and creates any missing tables.
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// :memory: databases are per-connection.
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &DB{conn: conn, Path: path}, nil
}

// addedRunColumns are run log columns that databases created before they
// existed lack. CREATE TABLE IF NOT EXISTS does not add them.
var addedRunColumns = []struct{ name, def string }{
	{"max_calc", "INTEGER NOT NULL DEFAULT 0"},
	{"scope2_refs", "TEXT NOT NULL DEFAULT '[]'"},
	{"overrides", "TEXT NOT NULL DEFAULT ''"},
}

func migrate(conn *sql.DB) error {
	rows, err := conn.Query(`PRAGMA table_info(runs)`)
	if err != nil {
		return err
	}
	existing := map[string]bool{}
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			rows.Close()
			return err
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, c := range addedRunColumns {
		if existing[c.name] {
			continue
		}
		if _, err := conn.Exec(`ALTER TABLE runs ADD COLUMN ` + c.name + ` ` + c.def); err != nil {
			return fmt.Errorf("adding runs.%s: %w", c.name, err)
		}
	}
	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying sql.DB for custom queries
func (d *DB) Conn() *sql.DB {
	return d.conn
}
