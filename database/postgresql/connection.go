// Package postgresql opens PostgreSQL connections for querykit through pgx's
// database/sql adapter.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/gaborage/querykit/config"
	"github.com/gaborage/querykit/database/internal/sqlconn"
	"github.com/gaborage/querykit/database/types"
	"github.com/gaborage/querykit/logger"
)

var (
	openPostgresDB = func(cfg *pgx.ConnConfig) *sql.DB {
		return stdlib.OpenDB(*cfg)
	}
	pingPostgresDB = func(ctx context.Context, db *sql.DB) error {
		return db.PingContext(ctx)
	}
)

// quoteDSN quotes a keyword/value DSN value following libpq rules.
func quoteDSN(value string) string {
	if value == "" {
		return "''"
	}

	plain := true
	for _, r := range value {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') &&
			(r < '0' || r > '9') && r != '.' && r != '_' && r != '-' {
			plain = false
			break
		}
	}
	if plain {
		return value
	}

	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "'", `\'`)
	return "'" + escaped + "'"
}

// BuildDSN renders a keyword/value DSN for cfg. ConnectionString wins when set.
func BuildDSN(cfg *config.DatabaseConfig) string {
	if cfg.ConnectionString != "" {
		return cfg.ConnectionString
	}

	parts := []string{
		"host=" + quoteDSN(cfg.Host),
		fmt.Sprintf("port=%d", cfg.Port),
		"user=" + quoteDSN(cfg.Username),
		"password=" + quoteDSN(cfg.Password),
		"dbname=" + quoteDSN(cfg.Database),
	}
	if cfg.PostgreSQL.SSLMode != "" {
		parts = append(parts, "sslmode="+quoteDSN(cfg.PostgreSQL.SSLMode))
	}
	return strings.Join(parts, " ")
}

// NewConnection opens and pings a PostgreSQL pool configured from cfg. A configured
// schema becomes the session search_path.
func NewConnection(cfg *config.DatabaseConfig, log logger.Logger) (types.Interface, error) {
	pgxConfig, err := pgx.ParseConfig(BuildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL config: %w", err)
	}
	if cfg.PostgreSQL.Schema != "" {
		pgxConfig.RuntimeParams["search_path"] = cfg.PostgreSQL.Schema
	}

	db := openPostgresDB(pgxConfig)
	sqlconn.ConfigurePool(db, cfg)

	if err := sqlconn.Ping(db, pingPostgresDB, types.PostgreSQL, log); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Connected to PostgreSQL database")

	return sqlconn.New(db, types.PostgreSQL, log), nil
}
