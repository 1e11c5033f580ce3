// Package db embeds the SQL migrations applied by goose.
package db

import "embed"

// MigrationsDir is the directory of Migrations holding the goose files.
const MigrationsDir = "migrations"

//go:embed migrations/*.sql
var Migrations embed.FS
