// Package db bundles the SQL migrations applied to the PostgreSQL backend.
package db

import "embed"

// Migrations holds the *.up.sql files under migrations/, applied in name order.
//
//go:embed migrations/*.up.sql
var Migrations embed.FS
