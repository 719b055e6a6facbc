// Package migrations holds the PostgreSQL schema of the storefront.
package migrations

import "embed"

// FS contains every *.up.sql migration, applied in lexical order.
//
//go:embed *.up.sql
var FS embed.FS
