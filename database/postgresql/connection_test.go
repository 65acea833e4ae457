package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/querykit/config"
	"github.com/gaborage/querykit/database/types"
	"github.com/gaborage/querykit/logger"
)

func testConfig() *config.DatabaseConfig {
	cfg := &config.DatabaseConfig{
		Type:     types.PostgreSQL,
		Host:     "localhost",
		Port:     5432,
		Database: "shop",
		Username: "app",
		Password: "pa ss'word",
	}
	cfg.PostgreSQL.SSLMode = "disable"
	return cfg
}

func TestQuoteDSN(t *testing.T) {
	assert.Equal(t, "''", quoteDSN(""))
	assert.Equal(t, "shop_db-1.x", quoteDSN("shop_db-1.x"))
	assert.Equal(t, `'pa ss\'word'`, quoteDSN("pa ss'word"))
	assert.Equal(t, `'a\\b'`, quoteDSN(`a\b`))
}

func TestBuildDSN(t *testing.T) {
	assert.Equal(t,
		`host=localhost port=5432 user=app password='pa ss\'word' dbname=shop sslmode=disable`,
		BuildDSN(testConfig()))

	cfg := testConfig()
	cfg.ConnectionString = "postgres://app@db/shop"
	assert.Equal(t, "postgres://app@db/shop", BuildDSN(cfg))
}

func stubDriver(t *testing.T, ping error) **pgx.ConnConfig {
	t.Helper()
	var captured *pgx.ConnConfig

	origOpen, origPing := openPostgresDB, pingPostgresDB
	t.Cleanup(func() { openPostgresDB, pingPostgresDB = origOpen, origPing })

	openPostgresDB = func(cfg *pgx.ConnConfig) *sql.DB {
		captured = cfg
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		return db
	}
	pingPostgresDB = func(context.Context, *sql.DB) error { return ping }
	return &captured
}

func TestNewConnection(t *testing.T) {
	captured := stubDriver(t, nil)
	cfg := testConfig()
	cfg.PostgreSQL.Schema = "sales"

	conn, err := NewConnection(cfg, logger.New("disabled", false))
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, types.PostgreSQL, conn.DatabaseType())
	require.NotNil(t, *captured)
	assert.Equal(t, "localhost", (*captured).Host)
	assert.Equal(t, uint16(5432), (*captured).Port)
	assert.Equal(t, "pa ss'word", (*captured).Password)
	assert.Equal(t, "sales", (*captured).RuntimeParams["search_path"])
}

func TestNewConnectionPingFailure(t *testing.T) {
	stubDriver(t, errors.New("connection refused"))

	_, err := NewConnection(testConfig(), logger.New("disabled", false))
	assert.ErrorContains(t, err, "failed to ping PostgreSQL database")
}

func TestNewConnectionInvalidDSN(t *testing.T) {
	cfg := testConfig()
	cfg.ConnectionString = "postgres://%zz"

	_, err := NewConnection(cfg, logger.New("disabled", false))
	assert.ErrorContains(t, err, "failed to parse PostgreSQL config")
}
