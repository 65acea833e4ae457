// Package mocks provides testify mocks of querykit's driver boundary.
package mocks

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/gaborage/querykit/database/types"
)

// MockConnection is a testify mock of types.Interface.
//
//	conn := &mocks.MockConnection{}
//	conn.ExpectDatabaseType(types.MySQL)
//	conn.ExpectPrepare("DELETE FROM `sessions` WHERE id=?", stmt, nil)
//	res := database.NewBuilder(conn).Table("sessions").Where("id", 1).Delete(ctx)
type MockConnection struct {
	mock.Mock
}

func (m *MockConnection) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	arguments := m.Called(ctx, query, args)
	rows, _ := arguments.Get(0).(*sql.Rows)
	return rows, arguments.Error(1)
}

func (m *MockConnection) QueryRow(ctx context.Context, query string, args ...any) types.Row {
	arguments := m.Called(ctx, query, args)
	row, _ := arguments.Get(0).(types.Row)
	return row
}

func (m *MockConnection) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	arguments := m.Called(ctx, query, args)
	result, _ := arguments.Get(0).(sql.Result)
	return result, arguments.Error(1)
}

func (m *MockConnection) Prepare(ctx context.Context, query string) (types.Statement, error) {
	arguments := m.Called(ctx, query)
	stmt, _ := arguments.Get(0).(types.Statement)
	return stmt, arguments.Error(1)
}

func (m *MockConnection) Begin(ctx context.Context) (types.Tx, error) {
	arguments := m.Called(ctx)
	tx, _ := arguments.Get(0).(types.Tx)
	return tx, arguments.Error(1)
}

func (m *MockConnection) BeginTx(ctx context.Context, opts *sql.TxOptions) (types.Tx, error) {
	arguments := m.Called(ctx, opts)
	tx, _ := arguments.Get(0).(types.Tx)
	return tx, arguments.Error(1)
}

func (m *MockConnection) Health(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockConnection) Stats() (map[string]any, error) {
	arguments := m.Called()
	stats, _ := arguments.Get(0).(map[string]any)
	return stats, arguments.Error(1)
}

func (m *MockConnection) Close() error {
	return m.Called().Error(0)
}

func (m *MockConnection) DatabaseType() string {
	return m.Called().String(0)
}

// ExpectDatabaseType makes DatabaseType report vendor for any number of calls.
func (m *MockConnection) ExpectDatabaseType(vendor string) *mock.Call {
	return m.On("DatabaseType").Return(vendor).Maybe()
}

// ExpectPrepare expects query to be prepared, returning stmt and err.
func (m *MockConnection) ExpectPrepare(query string, stmt types.Statement, err error) *mock.Call {
	return m.On("Prepare", mock.Anything, query).Return(stmt, err)
}

// ExpectBegin expects a transaction to be started.
func (m *MockConnection) ExpectBegin(tx types.Tx, err error) *mock.Call {
	return m.On("Begin", mock.Anything).Return(tx, err)
}

// ExpectHealth makes Health succeed or fail with sql.ErrConnDone.
func (m *MockConnection) ExpectHealth(healthy bool) *mock.Call {
	if healthy {
		return m.On("Health", mock.Anything).Return(nil)
	}
	return m.On("Health", mock.Anything).Return(sql.ErrConnDone)
}

// ExpectClose expects Close and returns err.
func (m *MockConnection) ExpectClose(err error) *mock.Call {
	return m.On("Close").Return(err)
}
