// Package migrations holds the versioned schema for the draft artifact store.
// Files are named NNN_name.up.sql / NNN_name.down.sql.
package migrations

import "embed"

// FS holds every *.sql migration.
//
//go:embed *.sql
var FS embed.FS
