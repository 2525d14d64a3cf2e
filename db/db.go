// Package db embeds the SQL migrations applied by goose at startup.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
