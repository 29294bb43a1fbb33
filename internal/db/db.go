// Package db stores the platform catalog that custom tracks draw their
// static attributes from. The schema and seed rows are managed by
// migrations embedded in the binary.
package db

import (
	"database/sql"
	"fmt"
	"log"
	"net/url"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
	path string
}

// OpenDB opens the sqlite file at path without touching the schema.
func OpenDB(path string) (*DB, error) {
	dsn := "file:" + path + "?" + url.Values{
		"_pragma": {"foreign_keys(1)", "busy_timeout(5000)", "journal_mode(WAL)"},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &DB{DB: db, path: path}, nil
}

// NewDB opens the catalog at path and applies any pending migrations.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	migrations, err := MigrationsFS()
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := db.MigrateUp(migrations); err != nil {
		db.Close()
		return nil, err
	}

	version, _, err := db.MigrateVersion(migrations)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Printf("catalog database %s at schema version %d", path, version)
	return db, nil
}

// Path is the file the database was opened from.
func (db *DB) Path() string {
	return db.path
}
