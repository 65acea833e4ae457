package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/querykit/config"
	"github.com/gaborage/querykit/database/dialect"
	"github.com/gaborage/querykit/database/internal/columns"
	"github.com/gaborage/querykit/database/types"
	"github.com/gaborage/querykit/logger"
)

func TestTransactionCommits(t *testing.T) {
	env := newMockEnv(t, types.MySQL)
	env.mock.ExpectBegin()
	env.mock.ExpectPrepare("DELETE FROM `sessions` WHERE user_id=?").
		ExpectExec().WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 2))
	env.mock.ExpectCommit()

	db := Wrap(env.conn, env.cfg, env.log)
	err := db.Transaction(context.Background(), func(tx *Scope) error {
		return tx.Table("sessions").Where("user_id", 4).Delete(context.Background()).Err
	})

	require.NoError(t, err)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestTransactionRollsBackOnError(t *testing.T) {
	env := newMockEnv(t, types.MySQL)
	env.mock.ExpectBegin()
	env.mock.ExpectRollback()

	boom := errors.New("boom")
	db := Wrap(env.conn, env.cfg, env.log)
	err := db.Transaction(context.Background(), func(*Scope) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestTransactionRollsBackOnPanic(t *testing.T) {
	env := newMockEnv(t, types.MySQL)
	env.mock.ExpectBegin()
	env.mock.ExpectRollback()

	db := Wrap(env.conn, env.cfg, env.log)
	assert.PanicsWithValue(t, "kaput", func() {
		_ = db.Transaction(context.Background(), func(*Scope) error { panic("kaput") })
	})
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestTransactionBeginFailure(t *testing.T) {
	env := newMockEnv(t, types.MySQL)
	env.mock.ExpectBegin().WillReturnError(errors.New("no conn"))

	db := Wrap(env.conn, env.cfg, env.log)
	err := db.Transaction(context.Background(), func(*Scope) error { return nil })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
}

func TestDBRawAndTable(t *testing.T) {
	env := newMockEnv(t, types.MySQL)
	env.mock.ExpectPrepare("SELECT 1 AS one").
		ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(int64(1)))

	db := Wrap(env.conn, env.cfg, env.log)
	res := db.Raw("SELECT 1 AS one").Get(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, []any{int64(1)}, res.Column("one"))
	assert.Equal(t, "users", db.Table("users").acc.TableName())
	assert.Same(t, env.conn, db.Conn())
}

func TestOpenWithRegistersAndClosesConnection(t *testing.T) {
	env := newMockEnv(t, types.MySQL)
	env.mock.ExpectClose()

	db, err := openWith(func(*config.DatabaseConfig, logger.Logger) (Interface, error) {
		return env.conn, nil
	}, env.cfg, env.log)
	require.NoError(t, err)
	require.NotNil(t, db.closeMetrics)

	require.NoError(t, db.Health(context.Background()))
	stats, err := db.Stats()
	require.NoError(t, err)
	assert.NotEmpty(t, stats)

	require.NoError(t, db.Close())
	assert.Nil(t, db.closeMetrics)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestOpenWithPropagatesConnectorError(t *testing.T) {
	_, err := openWith(func(*config.DatabaseConfig, logger.Logger) (Interface, error) {
		return nil, errors.New("unreachable")
	}, &config.DatabaseConfig{Type: types.MySQL}, logger.New("disabled", false))
	assert.EqualError(t, err, "unreachable")
}

func mysqlCatalog(names ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"COLUMN_NAME", "DATA_TYPE", "IS_NULLABLE", "COLUMN_KEY", "EXTRA"}).
		AddRow("id", "bigint", "NO", "PRI", "auto_increment")
	for _, name := range names {
		rows.AddRow(name, "varchar", "YES", "", "")
	}
	return rows
}

func TestTableMetadataIsCachedPerDatabase(t *testing.T) {
	ctx := context.Background()
	describe, _ := dialect.MySQL{}.DescribeTableSQL("users")
	clock := WithClock(func() time.Time { return fixedNow })

	stamped := newMockEnv(t, types.MySQL)
	stamped.mock.ExpectQuery(describe).WithArgs("users").
		WillReturnRows(mysqlCatalog("name", "created_at", "updated_at"))
	stamped.mock.ExpectPrepare("INSERT INTO `users` (`name`, `created_at`, `updated_at`) VALUES (?, ?, ?)").
		ExpectExec().WithArgs("ann", fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	plain := newMockEnv(t, types.MySQL)
	plain.mock.ExpectQuery(describe).WithArgs("users").
		WillReturnRows(mysqlCatalog("name"))
	plain.mock.ExpectPrepare("INSERT INTO `users` (`name`) VALUES (?)").
		ExpectExec().WithArgs("bob").
		WillReturnResult(sqlmock.NewResult(1, 1))

	first := Wrap(stamped.conn, stamped.cfg, stamped.log, clock)
	second := Wrap(plain.conn, plain.cfg, plain.log, clock)

	require.NoError(t, first.Table("users").Insert(ctx, map[string]any{"name": "ann"}).Err)
	require.NoError(t, second.Table("users").Insert(ctx, map[string]any{"name": "bob"}).Err)
	assert.NoError(t, stamped.mock.ExpectationsWereMet())
	assert.NoError(t, plain.mock.ExpectationsWereMet())
}

func TestTransactionSharesTableMetadataWithDB(t *testing.T) {
	ctx := context.Background()
	describe, _ := dialect.MySQL{}.DescribeTableSQL("users")
	env := newMockEnv(t, types.MySQL)
	env.mock.ExpectQuery(describe).WithArgs("users").WillReturnRows(mysqlCatalog("name"))
	env.mock.ExpectPrepare("INSERT INTO `users` (`name`) VALUES (?)").
		ExpectExec().WithArgs("ann").WillReturnResult(sqlmock.NewResult(1, 1))
	env.mock.ExpectBegin()
	env.mock.ExpectPrepare("INSERT INTO `users` (`name`) VALUES (?)").
		ExpectExec().WithArgs("bob").WillReturnResult(sqlmock.NewResult(2, 1))
	env.mock.ExpectCommit()

	db := Wrap(env.conn, env.cfg, env.log)
	require.NoError(t, db.Table("users").Insert(ctx, map[string]any{"name": "ann"}).Err)
	err := db.Transaction(ctx, func(tx *Scope) error {
		return tx.Table("users").Insert(ctx, map[string]any{"name": "bob"}).Err
	})

	require.NoError(t, err)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestFailedDescribeDoesNotAbortTransaction(t *testing.T) {
	ctx := context.Background()
	describe, args := dialect.PostgreSQL{}.DescribeTableSQL("users")
	env := newMockEnv(t, types.PostgreSQL)
	env.mock.ExpectBegin()
	env.mock.ExpectQuery(describe).WithArgs(args[0]).
		WillReturnError(errors.New("permission denied for schema information_schema"))
	env.mock.ExpectPrepare(`INSERT INTO "users" ("name") VALUES ($1)`).
		ExpectExec().WithArgs("ann").WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectCommit()

	db := Wrap(env.conn, env.cfg, env.log)
	err := db.Transaction(ctx, func(tx *Scope) error {
		return tx.Table("users").Insert(ctx, map[string]any{"name": "ann"}).Err
	})

	require.NoError(t, err)
	assert.NotEmpty(t, env.log.EntriesAt("warn"))
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestWrapDescribesThroughPoolUnlessSingleConnection(t *testing.T) {
	env := newMockEnv(t, types.PostgreSQL)

	pooled := Wrap(env.conn, env.cfg, env.log)
	assert.Equal(t, columns.Querier(env.conn), pooled.Table("users").describer)

	single := *env.cfg
	single.Pool.Max.Connections = 1
	narrow := Wrap(env.conn, &single, env.log)
	assert.Nil(t, narrow.Table("users").describer)
}
