package sqlconn

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/querykit/config"
	"github.com/gaborage/querykit/database/internal/mocks"
	"github.com/gaborage/querykit/database/types"
)

func newMockConnection(t *testing.T) (*Connection, sqlmock.Sqlmock) {
	t.Helper()
	return newMockConnectionWith(t, sqlmock.New, sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
}

// newMockConnectionWith infers sqlmock's unexported option type from sqlmock.New.
func newMockConnectionWith[O any](t *testing.T, newMock func(...O) (*sql.DB, sqlmock.Sqlmock, error), opts ...O) (*Connection, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := newMock(opts...)
	require.NoError(t, err)
	return New(db, types.SQLite, mocks.NewLogger()), mock
}

func TestConnectionDelegatesToPool(t *testing.T) {
	conn, mock := newMockConnection(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id FROM users").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	rows, err := conn.Query(ctx, "SELECT id FROM users")
	require.NoError(t, err)
	require.NoError(t, rows.Close())

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	var one int
	require.NoError(t, conn.QueryRow(ctx, "SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)

	mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 3))
	res, err := conn.Exec(ctx, "DELETE FROM users")
	require.NoError(t, err)
	n, _ := res.RowsAffected()
	assert.Equal(t, int64(3), n)

	mock.ExpectPrepare("SELECT * FROM users WHERE id = ?").ExpectQuery().WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	stmt, err := conn.Prepare(ctx, "SELECT * FROM users WHERE id = ?")
	require.NoError(t, err)
	var id int
	require.NoError(t, stmt.QueryRow(ctx, 5).Scan(&id))
	assert.Equal(t, 5, id)

	mock.ExpectClose()
	require.NoError(t, conn.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionTransaction(t *testing.T) {
	conn, mock := newMockConnection(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET active = ?").WithArgs(false).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	tx, err := conn.Begin(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.SQLite, tx.DatabaseType())
	_, err = tx.Exec(ctx, "UPDATE users SET active = ?", false)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	mock.ExpectBegin().WillReturnError(errors.New("locked"))
	_, err = conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionHealthAndStats(t *testing.T) {
	conn, mock := newMockConnectionWith(t, sqlmock.New, sqlmock.MonitorPingsOption(true), sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))

	mock.ExpectPing()
	assert.NoError(t, conn.Health(context.Background()))

	stats, err := conn.Stats()
	require.NoError(t, err)
	assert.Contains(t, stats, "in_use")
	assert.Contains(t, stats, "max_open_connections")
	assert.Equal(t, types.SQLite, conn.DatabaseType())
}

func TestPingClosesOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	err = Ping(db, func(context.Context, *sql.DB) error { return errors.New("refused") }, types.MySQL, mocks.NewLogger())
	assert.EqualError(t, err, "refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurePool(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := &config.DatabaseConfig{}
	cfg.Pool.Max.Connections = 7
	cfg.Pool.Idle.Connections = 2
	cfg.Pool.Idle.Time = time.Minute
	cfg.Pool.Lifetime.Max = time.Hour

	ConfigurePool(db, cfg)
	ConfigurePool(db, nil)

	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
}
