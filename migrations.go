// Package bills exposes assets shared by the service binaries, such as the
// embedded SQL migrations.
package bills

import "embed"

// Migrations holds the goose SQL migrations applied by the migrate command.
//
//go:embed migrations/*.sql
var Migrations embed.FS
