package mocks

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/gaborage/querykit/database/types"
)

// MockStatement is a testify mock of types.Statement. Bound arguments arrive as
// one []any so expectations can assert the rebound order.
type MockStatement struct {
	mock.Mock
}

func (m *MockStatement) Query(ctx context.Context, args ...any) (*sql.Rows, error) {
	arguments := m.Called(ctx, args)
	rows, _ := arguments.Get(0).(*sql.Rows)
	return rows, arguments.Error(1)
}

func (m *MockStatement) QueryRow(ctx context.Context, args ...any) types.Row {
	arguments := m.Called(ctx, args)
	row, _ := arguments.Get(0).(types.Row)
	return row
}

func (m *MockStatement) Exec(ctx context.Context, args ...any) (sql.Result, error) {
	arguments := m.Called(ctx, args)
	result, _ := arguments.Get(0).(sql.Result)
	return result, arguments.Error(1)
}

func (m *MockStatement) Close() error {
	return m.Called().Error(0)
}

// ExpectExec expects an Exec with exactly args.
func (m *MockStatement) ExpectExec(args []any, result sql.Result, err error) *mock.Call {
	return m.On("Exec", mock.Anything, args).Return(result, err)
}

// ExpectQuery expects a Query with exactly args.
func (m *MockStatement) ExpectQuery(args []any, rows *sql.Rows, err error) *mock.Call {
	return m.On("Query", mock.Anything, args).Return(rows, err)
}

// ExpectClose makes Close succeed; the executor always closes what it prepared.
func (m *MockStatement) ExpectClose() *mock.Call {
	return m.On("Close").Return(nil)
}
