// Package migrations embeds the SQL schema migrations for every supported
// storage driver.
package migrations

import "embed"

// Postgres holds the migrations under the "postgres" directory.
//
//go:embed postgres/*.sql
var Postgres embed.FS

// SQLite holds the migrations under the "sqlite" directory. They are shared by
// the sqlite and libsql drivers.
//
//go:embed sqlite/*.sql
var SQLite embed.FS
