package oracle

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/querykit/config"
	"github.com/gaborage/querykit/database/types"
	"github.com/gaborage/querykit/logger"
)

func testConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Type:     types.Oracle,
		Host:     "oracle.local",
		Port:     1521,
		Username: "scott",
		Password: "tiger",
	}
}

func TestBuildDSN(t *testing.T) {
	byService := testConfig()
	byService.Oracle.Service.Name = "FREEPDB1"
	assert.Contains(t, BuildDSN(byService), "oracle.local:1521/FREEPDB1")

	bySID := testConfig()
	bySID.Oracle.Service.SID = "ORCL"
	assert.Contains(t, BuildDSN(bySID), "SID=ORCL")

	byDatabase := testConfig()
	byDatabase.Database = "XE"
	assert.Contains(t, BuildDSN(byDatabase), "oracle.local:1521/XE")

	explicit := testConfig()
	explicit.ConnectionString = "oracle://u:p@h:1521/s"
	assert.Equal(t, "oracle://u:p@h:1521/s", BuildDSN(explicit))
}

func stubDriver(t *testing.T, ping error) {
	t.Helper()
	origOpen, origPing := openOracleDB, pingOracleDB
	t.Cleanup(func() { openOracleDB, pingOracleDB = origOpen, origPing })

	openOracleDB = func(string) (*sql.DB, error) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		return db, nil
	}
	pingOracleDB = func(context.Context, *sql.DB) error { return ping }
}

func TestNewConnection(t *testing.T) {
	stubDriver(t, nil)
	cfg := testConfig()
	cfg.Oracle.Service.Name = "FREEPDB1"

	conn, err := NewConnection(cfg, logger.New("disabled", false))
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, types.Oracle, conn.DatabaseType())
}

func TestNewConnectionPingFailure(t *testing.T) {
	stubDriver(t, errors.New("ORA-12541: TNS:no listener"))

	_, err := NewConnection(testConfig(), logger.New("disabled", false))
	assert.ErrorContains(t, err, "failed to ping Oracle database")
}
