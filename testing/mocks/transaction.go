package mocks

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/gaborage/querykit/database/types"
)

// MockTx is a testify mock of types.Tx.
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	arguments := m.Called(ctx, query, args)
	rows, _ := arguments.Get(0).(*sql.Rows)
	return rows, arguments.Error(1)
}

func (m *MockTx) QueryRow(ctx context.Context, query string, args ...any) types.Row {
	arguments := m.Called(ctx, query, args)
	row, _ := arguments.Get(0).(types.Row)
	return row
}

func (m *MockTx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	arguments := m.Called(ctx, query, args)
	result, _ := arguments.Get(0).(sql.Result)
	return result, arguments.Error(1)
}

func (m *MockTx) Prepare(ctx context.Context, query string) (types.Statement, error) {
	arguments := m.Called(ctx, query)
	stmt, _ := arguments.Get(0).(types.Statement)
	return stmt, arguments.Error(1)
}

func (m *MockTx) DatabaseType() string {
	return m.Called().String(0)
}

func (m *MockTx) Commit() error {
	return m.Called().Error(0)
}

func (m *MockTx) Rollback() error {
	return m.Called().Error(0)
}

// ExpectDatabaseType makes DatabaseType report vendor for any number of calls.
func (m *MockTx) ExpectDatabaseType(vendor string) *mock.Call {
	return m.On("DatabaseType").Return(vendor).Maybe()
}

// ExpectPrepare expects query to be prepared inside the transaction.
func (m *MockTx) ExpectPrepare(query string, stmt types.Statement, err error) *mock.Call {
	return m.On("Prepare", mock.Anything, query).Return(stmt, err)
}

// ExpectCommit expects Commit and returns err.
func (m *MockTx) ExpectCommit(err error) *mock.Call {
	return m.On("Commit").Return(err)
}

// ExpectRollback expects Rollback and returns err.
func (m *MockTx) ExpectRollback(err error) *mock.Call {
	return m.On("Rollback").Return(err)
}
