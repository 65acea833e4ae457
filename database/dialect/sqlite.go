package dialect

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"

	"github.com/gaborage/querykit/database/types"
)

const sqliteTimestampLayout = "2006-01-02 15:04:05"

// SQLite accepts MySQL-style backtick quoting and LIMIT syntax and rewrites inserts
// to INSERT OR IGNORE. Updates have no ignore form.
type SQLite struct{}

var _ Dialect = SQLite{}

func (SQLite) Name() string { return types.SQLite }

func (SQLite) Placeholder() sq.PlaceholderFormat { return sq.Question }

func (SQLite) QuoteIdentifier(name string) string {
	return quoteDotted(name, wrapWith("`", "`"))
}

func (SQLite) CompileInsertOrIgnore(query string) string {
	return replaceLeadingKeyword(query, "INSERT", "INSERT OR IGNORE")
}

func (SQLite) CompileUpdateOrIgnore(query string) string { return query }

func (SQLite) ReturningClause(string) string { return "" }

// CompileLimitOffset uses LIMIT -1 for a bare offset since SQLite has no OFFSET without LIMIT.
func (SQLite) CompileLimitOffset(limit, offset int) string {
	if limit < 0 && offset >= 0 {
		return "LIMIT -1 OFFSET " + strconv.Itoa(offset)
	}
	return compileLimitOffsetDefault(limit, offset)
}

func (SQLite) DescribeTableSQL(table string) (string, []any) {
	return `SELECT name, type, "notnull", pk, '' FROM pragma_table_info(?)`, []any{table}
}

func (SQLite) ScanTableMeta(table string, rows *sql.Rows) (TableMeta, error) {
	return scanCatalog(table, rows, func(r catalogRow) ColumnMeta {
		pk := r.key != "" && r.key != "0"
		return ColumnMeta{
			Name:       r.name,
			Type:       strings.ToLower(r.typ),
			Nullable:   !truthy(r.nullable),
			PrimaryKey: pk,
			// an INTEGER PRIMARY KEY aliases the rowid
			AutoIncrement: pk && strings.EqualFold(strings.TrimSpace(r.typ), "INTEGER"),
		}
	})
}

func (SQLite) DescribeColumn(meta TableMeta) (string, bool) {
	return describeSinglePrimaryKey(meta, func(c ColumnMeta) bool { return c.AutoIncrement })
}

func (SQLite) ClassifyError(err error) DriverError {
	if de, ok := classifyCommon(err); ok {
		return de
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		de := DriverError{Code: strconv.Itoa(int(liteErr.Code)), Message: liteErr.Error()}
		switch liteErr.Code {
		case sqlite3.ErrCantOpen, sqlite3.ErrNotADB, sqlite3.ErrAuth, sqlite3.ErrPerm:
			de.Class = ClassConnection
		case sqlite3.ErrConstraint:
			de.Class = ClassConstraint
		case sqlite3.ErrMismatch, sqlite3.ErrRange, sqlite3.ErrTooBig:
			de.Class = ClassData
		case sqlite3.ErrError:
			msg := strings.ToLower(liteErr.Error())
			if strings.Contains(msg, "syntax error") || strings.Contains(msg, "no such") {
				de.Class = ClassSyntax
			}
		}
		return de
	}

	return DriverError{Message: err.Error()}
}

func (SQLite) TimestampValue(t time.Time) any { return t.UTC().Format(sqliteTimestampLayout) }
