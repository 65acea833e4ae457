package dialect

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"

	"github.com/gaborage/querykit/database/types"
)

// MySQL quotes with backticks, binds with "?" and supports INSERT/UPDATE IGNORE.
type MySQL struct{}

var _ Dialect = MySQL{}

func (MySQL) Name() string { return types.MySQL }

func (MySQL) Placeholder() sq.PlaceholderFormat { return sq.Question }

func (MySQL) QuoteIdentifier(name string) string {
	return quoteDotted(name, wrapWith("`", "`"))
}

func (MySQL) CompileInsertOrIgnore(query string) string {
	return replaceLeadingKeyword(query, "INSERT", "INSERT IGNORE")
}

func (MySQL) CompileUpdateOrIgnore(query string) string {
	return replaceLeadingKeyword(query, "UPDATE", "UPDATE IGNORE")
}

func (MySQL) ReturningClause(string) string { return "" }

func (MySQL) CompileLimitOffset(limit, offset int) string {
	return compileLimitOffsetDefault(limit, offset)
}

func (MySQL) DescribeTableSQL(table string) (string, []any) {
	schema, name := splitTable(table)
	if schema == "" {
		return "SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COLUMN_KEY, EXTRA " +
			"FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? " +
			"ORDER BY ORDINAL_POSITION", []any{name}
	}
	return "SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COLUMN_KEY, EXTRA " +
		"FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? " +
		"ORDER BY ORDINAL_POSITION", []any{schema, name}
}

func (MySQL) ScanTableMeta(table string, rows *sql.Rows) (TableMeta, error) {
	return scanCatalog(table, rows, func(r catalogRow) ColumnMeta {
		return ColumnMeta{
			Name:          r.name,
			Type:          strings.ToLower(r.typ),
			Nullable:      truthy(r.nullable),
			PrimaryKey:    strings.EqualFold(r.key, "PRI"),
			AutoIncrement: strings.Contains(strings.ToLower(r.extra), "auto_increment"),
		}
	})
}

func (MySQL) DescribeColumn(meta TableMeta) (string, bool) {
	return describeSinglePrimaryKey(meta, func(c ColumnMeta) bool { return c.AutoIncrement })
}

// MySQL server error numbers, see the MySQL "Server Error Message Reference".
var mysqlErrorClasses = map[uint16]ErrorClass{
	1044: ClassConnection, // access denied to database
	1045: ClassConnection, // access denied for user
	1040: ClassConnection, // too many connections
	1049: ClassConnection, // unknown database
	1054: ClassSyntax,     // unknown column
	1064: ClassSyntax,     // parse error
	1146: ClassSyntax,     // table doesn't exist
	1048: ClassConstraint, // column cannot be null
	1062: ClassConstraint, // duplicate entry
	1451: ClassConstraint, // fk parent row
	1452: ClassConstraint, // fk child row
	3819: ClassConstraint, // check constraint
	1264: ClassData,       // out of range
	1366: ClassData,       // incorrect value
	1406: ClassData,       // data too long
}

func (MySQL) ClassifyError(err error) DriverError {
	if de, ok := classifyCommon(err); ok {
		return de
	}
	if errors.Is(err, mysql.ErrInvalidConn) {
		return DriverError{Class: ClassConnection, Message: err.Error()}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return DriverError{
			Class:   mysqlErrorClasses[myErr.Number],
			Code:    strconv.Itoa(int(myErr.Number)),
			Message: myErr.Message,
		}
	}

	return DriverError{Message: err.Error()}
}

func (MySQL) TimestampValue(t time.Time) any { return t.UTC() }

// splitTable separates an optional schema qualifier from the table name.
func splitTable(table string) (schema, name string) {
	if idx := strings.LastIndex(table, "."); idx >= 0 {
		return table[:idx], table[idx+1:]
	}
	return "", table
}
