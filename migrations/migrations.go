// Package migrations embeds the database schema migrations.
package migrations

import "embed"

// FS holds the .up.sql migration files applied at startup.
//
//go:embed *.sql
var FS embed.FS
