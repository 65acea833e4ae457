package types

// Vendor names a supported database engine. The values double as config.DatabaseConfig.Type.
type Vendor = string

const (
	MySQL      Vendor = "mysql"
	SQLite     Vendor = "sqlite"
	PostgreSQL Vendor = "postgresql"
	Oracle     Vendor = "oracle"
)
