package migrations

import "embed"

// FS contains the embedded SQLite journal migrations.
//
//go:embed *.sql
var FS embed.FS
