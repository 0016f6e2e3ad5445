// Package migrations embeds the SQL schema migrations so the server, the
// migrate CLI and the integration tests share one source of truth.
package migrations

import "embed"

// FS holds every *.up.sql / *.down.sql file in this directory.
//
//go:embed *.sql
var FS embed.FS
