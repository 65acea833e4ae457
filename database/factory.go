package database

import (
	"fmt"
	"slices"

	"github.com/gaborage/querykit/config"
	"github.com/gaborage/querykit/database/mysql"
	"github.com/gaborage/querykit/database/oracle"
	"github.com/gaborage/querykit/database/postgresql"
	"github.com/gaborage/querykit/database/sqlite"
	"github.com/gaborage/querykit/logger"
)

// Connector opens a driver connection from configuration.
type Connector func(*config.DatabaseConfig, logger.Logger) (Interface, error)

var connectors = map[string]Connector{
	MySQL:      mysql.NewConnection,
	SQLite:     sqlite.NewConnection,
	PostgreSQL: postgresql.NewConnection,
	Oracle:     oracle.NewConnection,
}

// NewConnection creates a connection according to cfg.Type and wraps it with
// statement tracking. An unsupported type or a failing driver returns an error.
func NewConnection(cfg *config.DatabaseConfig, log logger.Logger) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}
	connect, ok := connectors[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %s (supported: %v)", cfg.Type, GetSupportedDatabaseTypes())
	}

	conn, err := connect(cfg, log)
	if err != nil {
		return nil, err
	}

	tracked := NewTrackedConnection(conn, log, cfg)
	tracked.SetServerInfo(cfg.Host, cfg.Port, namespace(cfg))
	return tracked, nil
}

func namespace(cfg *config.DatabaseConfig) string {
	if cfg.Type == SQLite {
		return cfg.Path
	}
	return cfg.Database
}

// ValidateDatabaseType returns nil if dbType is one of the supported database types.
func ValidateDatabaseType(dbType string) error {
	if !slices.Contains(GetSupportedDatabaseTypes(), dbType) {
		return fmt.Errorf("unsupported database type: %s (supported: %v)", dbType, GetSupportedDatabaseTypes())
	}
	return nil
}

// GetSupportedDatabaseTypes returns a list of supported database types
func GetSupportedDatabaseTypes() []string {
	return []string{MySQL, SQLite, PostgreSQL, Oracle}
}
