package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect hides the differences between the supported SQL backends
type Dialect interface {
	// Name is the store type and the migrations subdirectory
	Name() string

	// Connect opens, checks and tunes a connection pool
	Connect(cfg DialectConfig) (*sql.DB, error)

	// Rebind rewrites ? placeholders into the backend's syntax
	Rebind(query string) string

	// MigrationsTable is the DDL of the table that records applied migrations
	MigrationsTable() string

	// Bool renders a boolean literal
	Bool(b bool) string
}

// DialectConfig locates the database: a file for SQLite, a URL otherwise
type DialectConfig struct {
	Path string
	URL  string
}

// poolLimits sizes one backend's connection pool
type poolLimits struct {
	maxOpen  int
	maxIdle  int
	lifetime time.Duration
}

func connect(driver, dsn string, limits poolLimits) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db.SetMaxOpenConns(limits.maxOpen)
	db.SetMaxIdleConns(limits.maxIdle)
	db.SetConnMaxLifetime(limits.lifetime)
	db.SetConnMaxIdleTime(time.Minute)
	return db, nil
}

// bindNumbered turns ? into $1, $2, ... outside quoted literals
func bindNumbered(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	var quote rune
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func boolWord(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
