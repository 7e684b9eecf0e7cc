package database

import (
	"strings"
	"testing"
)

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "progress.db", want: "progress.db?_foreign_keys=on&_busy_timeout=5000"},
		{path: "file:progress.db?cache=shared", want: "file:progress.db?cache=shared&_foreign_keys=on&_busy_timeout=5000"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := sqliteDSN(tt.path); got != tt.want {
				t.Errorf("sqliteDSN(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestMySQLDSN(t *testing.T) {
	got := mysqlDSN("kids:secret@tcp(localhost:3306)/smartkids")
	for _, want := range []string{"parseTime=true", "multiStatements=true", "tcp(localhost:3306)/smartkids"} {
		if !strings.Contains(got, want) {
			t.Errorf("mysqlDSN() = %q, missing %q", got, want)
		}
	}
	if got := mysqlDSN("not a dsn"); got != "not a dsn" {
		t.Errorf("mysqlDSN() rewrote unparsable input to %q", got)
	}
}

func TestBoolLiterals(t *testing.T) {
	tests := []struct {
		dialect     Dialect
		yes, no     string
		wantMigDirs string
	}{
		{dialect: SQLite{}, yes: "1", no: "0", wantMigDirs: "sqlite"},
		{dialect: Postgres{}, yes: "TRUE", no: "FALSE", wantMigDirs: "postgres"},
		{dialect: MySQL{}, yes: "TRUE", no: "FALSE", wantMigDirs: "mysql"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect.Name(), func(t *testing.T) {
			if tt.dialect.Bool(true) != tt.yes || tt.dialect.Bool(false) != tt.no {
				t.Errorf("Bool() = %s/%s, want %s/%s", tt.dialect.Bool(true), tt.dialect.Bool(false), tt.yes, tt.no)
			}
			if tt.dialect.Name() != tt.wantMigDirs {
				t.Errorf("Name() = %s, want %s", tt.dialect.Name(), tt.wantMigDirs)
			}
			if !strings.Contains(tt.dialect.MigrationsTable(), "schema_migrations") {
				t.Error("MigrationsTable() should create schema_migrations")
			}
		})
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		storeType string
		want      string
		wantErr   bool
	}{
		{storeType: "", want: "sqlite"},
		{storeType: "sqlite3", want: "sqlite"},
		{storeType: "PostgreSQL", want: "postgres"},
		{storeType: "mysql", want: "mysql"},
		{storeType: "oracle", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.storeType, func(t *testing.T) {
			d, err := DialectFor(tt.storeType)
			if tt.wantErr {
				if err == nil {
					t.Fatal("DialectFor() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DialectFor() error = %v", err)
			}
			if d.Name() != tt.want {
				t.Errorf("DialectFor(%q) = %v, want %v", tt.storeType, d.Name(), tt.want)
			}
		})
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "sqlite unchanged",
			dialect:  SQLite{},
			query:    "SELECT * FROM players WHERE name = ?",
			expected: "SELECT * FROM players WHERE name = ?",
		},
		{
			name:     "postgres single placeholder",
			dialect:  Postgres{},
			query:    "SELECT * FROM players WHERE name = ?",
			expected: "SELECT * FROM players WHERE name = $1",
		},
		{
			name:     "postgres multiple placeholders",
			dialect:  Postgres{},
			query:    "INSERT INTO game_progress (player_name, game_id) VALUES (?, ?)",
			expected: "INSERT INTO game_progress (player_name, game_id) VALUES ($1, $2)",
		},
		{
			name:     "postgres skips quoted question marks",
			dialect:  Postgres{},
			query:    "SELECT '?' || name, \"a?b\" FROM players WHERE name = ? AND note <> 'it''s ?'",
			expected: "SELECT '?' || name, \"a?b\" FROM players WHERE name = $1 AND note <> 'it''s ?'",
		},
		{
			name:     "mysql unchanged",
			dialect:  MySQL{},
			query:    "UPDATE players SET coins = ?, stars = ? WHERE name = ?",
			expected: "UPDATE players SET coins = ?, stars = ? WHERE name = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.Rebind(tt.query); got != tt.expected {
				t.Errorf("Rebind() = %v, want %v", got, tt.expected)
			}
		})
	}
}
