package dialect

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	insertSQL = "INSERT INTO `t` (a) VALUES (:a)"
	updateSQL = "UPDATE `t` SET a=:set_a"
)

func TestFor(t *testing.T) {
	tests := []struct {
		vendor   string
		expected Dialect
	}{
		{"mysql", MySQL{}},
		{"sqlite", SQLite{}},
		{"sqlite3", SQLite{}},
		{"postgresql", PostgreSQL{}},
		{"postgres", PostgreSQL{}},
		{"ORACLE", Oracle{}},
	}
	for _, tt := range tests {
		t.Run(tt.vendor, func(t *testing.T) {
			d, err := For(tt.vendor)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}

	_, err := For("mongodb")
	assert.ErrorContains(t, err, "unsupported database vendor")
	assert.Panics(t, func() { MustFor("mssql") })
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, sq.Question, MySQL{}.Placeholder())
	assert.Equal(t, sq.Question, SQLite{}.Placeholder())
	assert.Equal(t, sq.Dollar, PostgreSQL{}.Placeholder())
	assert.Equal(t, sq.Colon, Oracle{}.Placeholder())
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		d        Dialect
		in       string
		expected string
	}{
		{"mysql_plain", MySQL{}, "orders", "`orders`"},
		{"mysql_dotted", MySQL{}, "customers.id", "`customers`.`id`"},
		{"mysql_star", MySQL{}, "orders.*", "`orders`.*"},
		{"mysql_already_quoted", MySQL{}, "`orders`", "`orders`"},
		{"mysql_escape", MySQL{}, "we`ird", "`we``ird`"},
		{"sqlite_dotted", SQLite{}, "a.b", "`a`.`b`"},
		{"postgres_dotted", PostgreSQL{}, "public.orders", `"public"."orders"`},
		{"oracle_plain", Oracle{}, "orders", "orders"},
		{"oracle_reserved", Oracle{}, "level", `"LEVEL"`},
		{"oracle_dotted_reserved", Oracle{}, "t.number", `t."NUMBER"`},
		{"oracle_needs_quotes", Oracle{}, "first name", `"first name"`},
		{"star", MySQL{}, "*", "*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.d.QuoteIdentifier(tt.in))
		})
	}
}

func TestOrIgnoreHooks(t *testing.T) {
	assert.Equal(t, "INSERT IGNORE INTO `t` (a) VALUES (:a)", MySQL{}.CompileInsertOrIgnore(insertSQL))
	assert.Equal(t, "UPDATE IGNORE `t` SET a=:set_a", MySQL{}.CompileUpdateOrIgnore(updateSQL))

	assert.Equal(t, "INSERT OR IGNORE INTO `t` (a) VALUES (:a)", SQLite{}.CompileInsertOrIgnore(insertSQL))
	assert.Equal(t, updateSQL, SQLite{}.CompileUpdateOrIgnore(updateSQL))

	assert.Equal(t, insertSQL+" ON CONFLICT DO NOTHING", PostgreSQL{}.CompileInsertOrIgnore(insertSQL))
	assert.Equal(t, updateSQL, PostgreSQL{}.CompileUpdateOrIgnore(updateSQL))

	assert.Equal(t, insertSQL, Oracle{}.CompileInsertOrIgnore(insertSQL))
	assert.Equal(t, updateSQL, Oracle{}.CompileUpdateOrIgnore(updateSQL))

	assert.Equal(t, "SELECT 1", MySQL{}.CompileInsertOrIgnore("SELECT 1"))
	assert.Equal(t, "INSERT IGNORE into t", MySQL{}.CompileInsertOrIgnore("  insert into t"))
}

func TestReturningClause(t *testing.T) {
	assert.Equal(t, ` RETURNING "id"`, PostgreSQL{}.ReturningClause("id"))
	assert.Empty(t, PostgreSQL{}.ReturningClause(""))
	assert.Empty(t, MySQL{}.ReturningClause("id"))
	assert.Empty(t, SQLite{}.ReturningClause("id"))
	assert.Empty(t, Oracle{}.ReturningClause("id"))
}

func TestCompileLimitOffset(t *testing.T) {
	tests := []struct {
		name          string
		d             Dialect
		limit, offset int
		expected      string
	}{
		{"mysql_both", MySQL{}, 5, 10, "LIMIT 10, 5"},
		{"mysql_limit", MySQL{}, 5, Unset, "LIMIT 5"},
		{"mysql_offset", MySQL{}, Unset, 10, "OFFSET 10"},
		{"mysql_none", MySQL{}, Unset, Unset, ""},
		{"sqlite_both", SQLite{}, 5, 10, "LIMIT 10, 5"},
		{"sqlite_offset", SQLite{}, Unset, 10, "LIMIT -1 OFFSET 10"},
		{"postgres_both", PostgreSQL{}, 5, 10, "LIMIT 5 OFFSET 10"},
		{"postgres_offset", PostgreSQL{}, Unset, 10, "OFFSET 10"},
		{"oracle_both", Oracle{}, 5, 10, "OFFSET 10 ROWS FETCH NEXT 5 ROWS ONLY"},
		{"oracle_limit", Oracle{}, 5, Unset, "FETCH NEXT 5 ROWS ONLY"},
		{"oracle_offset", Oracle{}, Unset, 10, "OFFSET 10 ROWS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.d.CompileLimitOffset(tt.limit, tt.offset))
		})
	}
}

func TestDescribeTableSQL(t *testing.T) {
	q, args := MySQL{}.DescribeTableSQL("orders")
	assert.Contains(t, q, "TABLE_SCHEMA = DATABASE()")
	assert.Equal(t, []any{"orders"}, args)

	q, args = MySQL{}.DescribeTableSQL("shop.orders")
	assert.Contains(t, q, "TABLE_SCHEMA = ?")
	assert.Equal(t, []any{"shop", "orders"}, args)

	q, args = SQLite{}.DescribeTableSQL("orders")
	assert.Contains(t, q, "pragma_table_info(?)")
	assert.Equal(t, []any{"orders"}, args)

	q, args = PostgreSQL{}.DescribeTableSQL("billing.orders")
	assert.Contains(t, q, "c.table_schema = $1 AND c.table_name = $2")
	assert.Equal(t, []any{"billing", "orders"}, args)

	q, args = Oracle{}.DescribeTableSQL("orders")
	assert.Contains(t, q, "c.TABLE_NAME = :1")
	assert.Equal(t, []any{"ORDERS"}, args)
}

func scanWith(t *testing.T, d Dialect, rows *sqlmock.Rows) TableMeta {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(rows)
	r, err := db.Query("SELECT catalog")
	require.NoError(t, err)
	defer r.Close()

	meta, err := d.ScanTableMeta("orders", r)
	require.NoError(t, err)
	return meta
}

func catalogColumns() []string {
	return []string{"name", "type", "nullable", "key", "extra"}
}

func TestScanTableMetaMySQL(t *testing.T) {
	meta := scanWith(t, MySQL{}, sqlmock.NewRows(catalogColumns()).
		AddRow("id", "BIGINT", "NO", "PRI", "auto_increment").
		AddRow("status", "varchar", "YES", "", "").
		AddRow("created_at", "timestamp", "YES", "", ""))

	assert.Equal(t, []string{"id", "status", "created_at"}, meta.ColumnNames())
	id, ok := meta.Lookup("ID")
	require.True(t, ok)
	assert.Equal(t, ColumnMeta{Name: "id", Type: "bigint", PrimaryKey: true, AutoIncrement: true}, id)
	assert.True(t, meta.Has("created_at"))
	assert.False(t, meta.Has("updated_at"))

	pk, useLastID := MySQL{}.DescribeColumn(meta)
	assert.Equal(t, "id", pk)
	assert.True(t, useLastID)
}

func TestScanTableMetaSQLite(t *testing.T) {
	meta := scanWith(t, SQLite{}, sqlmock.NewRows(catalogColumns()).
		AddRow("id", "INTEGER", int64(1), int64(1), "").
		AddRow("name", "TEXT", int64(0), int64(0), ""))

	id, _ := meta.Lookup("id")
	assert.True(t, id.PrimaryKey)
	assert.True(t, id.AutoIncrement)
	assert.False(t, id.Nullable)
	name, _ := meta.Lookup("name")
	assert.True(t, name.Nullable)
	assert.False(t, name.PrimaryKey)
}

func TestScanTableMetaPostgres(t *testing.T) {
	meta := scanWith(t, PostgreSQL{}, sqlmock.NewRows(catalogColumns()).
		AddRow("id", "integer", "NO", true, true).
		AddRow("note", "text", "YES", false, false))

	pk, useLastID := PostgreSQL{}.DescribeColumn(meta)
	assert.Equal(t, "id", pk)
	assert.False(t, useLastID)
}

func TestScanTableMetaOracle(t *testing.T) {
	meta := scanWith(t, Oracle{}, sqlmock.NewRows(catalogColumns()).
		AddRow("ID", "NUMBER", "N", int64(1), int64(1)).
		AddRow("STATUS", "VARCHAR2", "Y", int64(0), int64(0)))

	assert.Equal(t, []string{"id", "status"}, meta.ColumnNames())
	pk, useLastID := Oracle{}.DescribeColumn(meta)
	assert.Equal(t, "id", pk)
	assert.False(t, useLastID)
}

func TestScanTableMetaScanError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"only"}).AddRow("x"))
	r, err := db.Query("SELECT catalog")
	require.NoError(t, err)
	defer r.Close()

	_, err = MySQL{}.ScanTableMeta("orders", r)
	assert.ErrorContains(t, err, "failed to scan column metadata for orders")
}

func TestDescribeColumn(t *testing.T) {
	none := TableMeta{Name: "log", Columns: []ColumnMeta{{Name: "msg"}}}
	pk, useLastID := MySQL{}.DescribeColumn(none)
	assert.Empty(t, pk)
	assert.False(t, useLastID)

	composite := TableMeta{Name: "order_items", Columns: []ColumnMeta{
		{Name: "order_id", PrimaryKey: true},
		{Name: "item_id", PrimaryKey: true},
	}}
	for _, d := range []Dialect{MySQL{}, SQLite{}, PostgreSQL{}, Oracle{}} {
		assert.PanicsWithValue(t,
			"table order_items declares more than one primary key column: order_id, item_id",
			func() { d.DescribeColumn(composite) }, d.Name())
	}
}

func TestClassifyErrorMySQL(t *testing.T) {
	d := MySQL{}

	assert.Equal(t, ClassConnection, d.ClassifyError(mysql.ErrInvalidConn).Class)
	assert.Equal(t, ClassConnection, d.ClassifyError(fmt.Errorf("wrapped: %w", driver.ErrBadConn)).Class)

	de := d.ClassifyError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1' for key 'PRIMARY'"})
	assert.Equal(t, DriverError{Class: ClassConstraint, Code: "1062", Message: "Duplicate entry '1' for key 'PRIMARY'"}, de)

	assert.Equal(t, ClassSyntax, d.ClassifyError(&mysql.MySQLError{Number: 1064}).Class)
	assert.Equal(t, ClassConnection, d.ClassifyError(&mysql.MySQLError{Number: 1045}).Class)
	assert.Equal(t, ClassUnknown, d.ClassifyError(&mysql.MySQLError{Number: 9999}).Class)
	assert.Equal(t, DriverError{Message: "other"}, d.ClassifyError(errors.New("other")))
}

func TestClassifyErrorSQLite(t *testing.T) {
	d := SQLite{}

	assert.Equal(t, ClassConnection, d.ClassifyError(sqlite3.Error{Code: sqlite3.ErrCantOpen}).Class)
	assert.Equal(t, ClassConnection, d.ClassifyError(sqlite3.Error{Code: sqlite3.ErrNotADB}).Class)
	assert.Equal(t, ClassConstraint, d.ClassifyError(sqlite3.Error{Code: sqlite3.ErrConstraint}).Class)
	assert.Equal(t, ClassData, d.ClassifyError(sqlite3.Error{Code: sqlite3.ErrMismatch}).Class)
}

func TestClassifyErrorPostgres(t *testing.T) {
	d := PostgreSQL{}

	tests := []struct {
		code     string
		expected ErrorClass
	}{
		{"08006", ClassConnection},
		{"28P01", ClassConnection},
		{"42P01", ClassSyntax},
		{"23505", ClassConstraint},
		{"22P02", ClassData},
		{"40001", ClassUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			de := d.ClassifyError(fmt.Errorf("exec: %w", &pgconn.PgError{Code: tt.code, Message: "boom"}))
			assert.Equal(t, tt.expected, de.Class)
			assert.Equal(t, tt.code, de.Code)
			assert.Equal(t, "boom", de.Message)
		})
	}
}

func TestClassifyErrorOracle(t *testing.T) {
	d := Oracle{}

	de := d.ClassifyError(errors.New("ORA-12541: TNS:no listener"))
	assert.Equal(t, ClassConnection, de.Class)
	assert.Equal(t, "ORA-12541", de.Code)

	assert.Equal(t, ClassConnection, d.ClassifyError(errors.New("ORA-12520: TNS:listener could not find handler")).Class)
	assert.Equal(t, ClassSyntax, d.ClassifyError(errors.New("ORA-00942: table or view does not exist")).Class)
	assert.Equal(t, ClassConstraint, d.ClassifyError(errors.New("ORA-00001: unique constraint violated")).Class)
	assert.Equal(t, ClassUnknown, d.ClassifyError(errors.New("driver: bad thing")).Class)
}

func TestClassifyNil(t *testing.T) {
	assert.Equal(t, DriverError{}, MySQL{}.ClassifyError(nil))
}

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "connection", ClassConnection.String())
	assert.Equal(t, "syntax", ClassSyntax.String())
	assert.Equal(t, "constraint", ClassConstraint.String())
	assert.Equal(t, "data", ClassData.String())
	assert.Equal(t, "unknown", ClassUnknown.String())
}

func TestTimestampValue(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 6, 0, time.FixedZone("CET", 3600))

	assert.Equal(t, "2024-03-09 13:05:06", SQLite{}.TimestampValue(ts))
	assert.Equal(t, ts.UTC(), MySQL{}.TimestampValue(ts))
	assert.Equal(t, ts.UTC(), PostgreSQL{}.TimestampValue(ts))
}
