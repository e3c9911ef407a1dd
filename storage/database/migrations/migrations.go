// Package migrations embeds the SQL migrations shared by the postgres and sqlite engines.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
