// Package migrations holds the embedded SQLite schema.
package migrations

import "embed"

// FS contains the numbered schema files.
//
//go:embed *.sql
var FS embed.FS
