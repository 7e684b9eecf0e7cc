package database

import (
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQL is the shared-server alternative to Postgres
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) Connect(cfg DialectConfig) (*sql.DB, error) {
	return connect("mysql", mysqlDSN(cfg.URL), poolLimits{maxOpen: 10, maxIdle: 2, lifetime: 5 * time.Minute})
}

// mysqlDSN forces DATETIME columns to scan into UTC time.Time values and
// allows multi-statement migration files. Input the driver cannot parse
// is passed through so the driver reports the error.
func mysqlDSN(url string) string {
	cfg, err := mysql.ParseDSN(url)
	if err != nil {
		return url
	}
	cfg.ParseTime = true
	cfg.MultiStatements = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

func (MySQL) Rebind(query string) string { return query }

func (MySQL) MigrationsTable() string {
	return `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename VARCHAR(191) PRIMARY KEY,
		applied_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	) ENGINE=InnoDB`
}

func (MySQL) Bool(b bool) string { return boolWord(b) }
