// Package migrations holds the versioned Postgres schema, embedded so the
// server and the migrate tool can apply it without a migrations directory
// on disk.
package migrations

import "embed"

// FS contains every *.up.sql and *.down.sql file in this directory.
//
//go:embed *.sql
var FS embed.FS
