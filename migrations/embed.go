// Package migrations holds the versioned schema of the shop database.
// The SQL files are embedded so the server and the migrate CLI can apply
// them without a checkout on disk.
package migrations

import "embed"

// FS contains every *.up.sql / *.down.sql pair in this directory
//
//go:embed *.sql
var FS embed.FS
