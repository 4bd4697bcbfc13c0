// Package migrations embeds the SQL schema migrations applied by the
// SQLite store on open.
package migrations

import "embed"

// FS holds every migration file, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
