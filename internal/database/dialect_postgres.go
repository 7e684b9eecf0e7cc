package database

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// Postgres serves several installs sharing one progress database
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) Connect(cfg DialectConfig) (*sql.DB, error) {
	return connect("postgres", cfg.URL, poolLimits{maxOpen: 10, maxIdle: 2, lifetime: 5 * time.Minute})
}

func (Postgres) Rebind(query string) string { return bindNumbered(query) }

func (Postgres) MigrationsTable() string {
	return `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`
}

func (Postgres) Bool(b bool) string { return boolWord(b) }
