// Package migrations embeds the goose SQL migrations for the access layer
// schema so they ship inside the binary.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
