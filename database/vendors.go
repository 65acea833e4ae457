package database

import "github.com/gaborage/querykit/database/types"

// Re-export database vendor identifiers; the source of truth lives in types.
const (
	MySQL      = types.MySQL
	SQLite     = types.SQLite
	PostgreSQL = types.PostgreSQL
	Oracle     = types.Oracle
)
