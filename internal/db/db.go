// Package db embeds the PostgreSQL schema migrations.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations holding the goose files.
const MigrationsDir = "migrations"
