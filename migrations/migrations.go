// Package migrations embeds the goose SQL migrations. Statements are kept to
// the subset understood by both MySQL and SQLite.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
