package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite stores everything in a single local file, the default for a
// desktop install
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) Connect(cfg DialectConfig) (*sql.DB, error) {
	db, err := connect("sqlite3", sqliteDSN(cfg.Path), poolLimits{maxOpen: 4, maxIdle: 2, lifetime: 5 * time.Minute})
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	return db, nil
}

// sqliteDSN turns on foreign keys and a busy timeout for every pooled
// connection; a PRAGMA sent through the pool reaches only one of them
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}

func (SQLite) Rebind(query string) string { return query }

func (SQLite) MigrationsTable() string {
	return `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`
}

func (SQLite) Bool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
