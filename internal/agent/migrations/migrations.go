// Package migrations embeds the on-device schema migrations applied by
// goose. The goose version table is the schema-version ledger: each step is
// applied exactly once, in order, and an interrupted run is retried on the
// next startup.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
