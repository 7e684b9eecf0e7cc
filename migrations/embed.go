// Package migrations holds the SQL schema for each supported database,
// one subdirectory per dialect.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql mysql/*.sql
var FS embed.FS
