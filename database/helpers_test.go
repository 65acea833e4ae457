package database

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/querykit/config"
	"github.com/gaborage/querykit/database/dialect"
	"github.com/gaborage/querykit/database/internal/columns"
	"github.com/gaborage/querykit/database/internal/mocks"
	"github.com/gaborage/querykit/database/internal/sqlconn"
	"github.com/gaborage/querykit/database/types"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

// fakeConn satisfies Conn for tests that only compile.
type fakeConn struct {
	vendor string
}

func (f fakeConn) Prepare(context.Context, string) (types.Statement, error) {
	return nil, sql.ErrConnDone
}

func (f fakeConn) Query(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, sql.ErrConnDone
}

func (f fakeConn) DatabaseType() string { return f.vendor }

func namedArg(name string, value any) sql.NamedArg { return sql.Named(name, value) }

func countPlaceholders(query string) int { return strings.Count(query, ":") }

type mockEnv struct {
	conn   *sqlconn.Connection
	mock   sqlmock.Sqlmock
	tables *columns.TableRegistry
	log    *mocks.Logger
	cfg    *config.DatabaseConfig
}

func newMockEnv(t *testing.T, vendor string) *mockEnv {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := mocks.NewLogger()
	return &mockEnv{
		conn:   sqlconn.New(db, vendor, log),
		mock:   mock,
		tables: columns.NewTableRegistry(),
		log:    log,
		cfg: &config.DatabaseConfig{
			Type: vendor,
			Timestamps: config.TimestampConfig{
				Enabled: true,
				Created: "created_at",
				Updated: "updated_at",
			},
		},
	}
}

func (e *mockEnv) builder(opts ...Option) *Builder {
	all := append([]Option{WithConfig(e.cfg), WithLogger(e.log), WithClock(func() time.Time { return fixedNow }), withTables(e.tables)}, opts...)
	return NewBuilder(e.conn, all...)
}

func (e *mockEnv) store(d dialect.Dialect, table string, cols ...dialect.ColumnMeta) {
	e.tables.Store(d, dialect.TableMeta{Name: table, Columns: cols})
}

func pk(name string) dialect.ColumnMeta {
	return dialect.ColumnMeta{Name: name, Type: "int", PrimaryKey: true, AutoIncrement: true}
}

func col(name string) dialect.ColumnMeta {
	return dialect.ColumnMeta{Name: name, Type: "varchar"}
}
