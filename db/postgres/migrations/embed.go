// Package migrations embeds the Postgres schema.
package migrations

import "embed"

// FS holds every *.up.sql and *.down.sql file, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
