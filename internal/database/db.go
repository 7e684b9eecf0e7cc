package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"smartkids/internal/config"
)

// DB is a connection pool that rebinds placeholders for its dialect, so
// stores write every query with ? placeholders
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Initialize opens a SQLite database at dbPath
func Initialize(dbPath string) (*DB, error) {
	return open(SQLite{}, DialectConfig{Path: dbPath})
}

// InitializeWithConfig opens the database selected by cfg.StoreType
func InitializeWithConfig(cfg *config.Config) (*DB, error) {
	dialect, err := DialectFor(cfg.StoreType)
	if err != nil {
		return nil, err
	}
	return open(dialect, DialectConfig{Path: cfg.DatabasePath, URL: cfg.DatabaseURL})
}

// DialectFor maps a store type name to its dialect
func DialectFor(storeType string) (Dialect, error) {
	switch strings.ToLower(storeType) {
	case "postgres", "postgresql":
		return Postgres{}, nil
	case "mysql":
		return MySQL{}, nil
	case "sqlite", "sqlite3", "":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", storeType)
	}
}

func open(dialect Dialect, cfg DialectConfig) (*DB, error) {
	sqlDB, err := dialect.Connect(cfg)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("dialect", dialect.Name()).Msg("Database connected")
	return &DB{DB: sqlDB, Dialect: dialect}, nil
}

// Close closes the connection pool
func (db *DB) Close() error {
	return db.DB.Close()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.DB.QueryContext(ctx, db.Dialect.Rebind(query), args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.DB.QueryRowContext(ctx, db.Dialect.Rebind(query), args...)
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.DB.ExecContext(ctx, db.Dialect.Rebind(query), args...)
}
