// Package migrations embeds the goose SQL migrations for the listings schema.
package migrations

import "embed"

// FS holds every migration file at its root, ready for db.Migrate.
//
//go:embed *.sql
var FS embed.FS
