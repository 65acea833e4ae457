// Package dialect isolates the per-engine differences the query engine has to know about:
// identifier quoting, placeholder style, "or ignore" rewrites, limit/offset syntax,
// table introspection and driver error classification.
package dialect

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/gaborage/querykit/database/types"
)

// Unset marks a limit or offset that was never supplied.
const Unset = -1

// Dialect is the set of hooks a database engine supplies to the compiler and executor.
type Dialect interface {
	Name() string

	// Placeholder is the driver-native format named placeholders are rebound to.
	Placeholder() sq.PlaceholderFormat

	// QuoteIdentifier quotes a possibly dotted identifier; "*" parts are left alone.
	QuoteIdentifier(name string) string

	CompileInsertOrIgnore(query string) string
	CompileUpdateOrIgnore(query string) string

	// ReturningClause is appended to inserts to read back the primary key.
	// An empty string means the driver's LastInsertId is used instead.
	ReturningClause(primaryKey string) string

	// CompileLimitOffset renders the pagination suffix; either argument may be Unset.
	CompileLimitOffset(limit, offset int) string

	// DescribeTableSQL returns the introspection query for one table. Its result set
	// has five columns: name, type, nullable, key, extra.
	DescribeTableSQL(table string) (string, []any)
	ScanTableMeta(table string, rows *sql.Rows) (TableMeta, error)

	// DescribeColumn returns the primary key column and whether its value comes from
	// LastInsertId. It panics when the table declares more than one primary key column.
	DescribeColumn(meta TableMeta) (primaryKey string, useLastInsertID bool)

	ClassifyError(err error) DriverError

	// TimestampValue converts t into the value bound for created/updated columns.
	TimestampValue(t time.Time) any
}

// For returns the dialect registered for vendor.
func For(vendor string) (Dialect, error) {
	switch strings.ToLower(vendor) {
	case types.MySQL:
		return MySQL{}, nil
	case types.SQLite, "sqlite3":
		return SQLite{}, nil
	case types.PostgreSQL, "postgres", "pgx":
		return PostgreSQL{}, nil
	case types.Oracle:
		return Oracle{}, nil
	default:
		return nil, fmt.Errorf("unsupported database vendor: %s", vendor)
	}
}

// MustFor is For that panics on an unknown vendor.
func MustFor(vendor string) Dialect {
	d, err := For(vendor)
	if err != nil {
		panic(err)
	}
	return d
}

// quoteDotted applies quote to every part of a dotted identifier except "*".
func quoteDotted(name string, quote func(string) string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == "*" {
		return trimmed
	}
	parts := strings.Split(trimmed, ".")
	for i, part := range parts {
		if part == "*" {
			continue
		}
		parts[i] = quote(part)
	}
	return strings.Join(parts, ".")
}

func wrapWith(open, closeQuote string) func(string) string {
	return func(part string) string {
		if strings.HasPrefix(part, open) && strings.HasSuffix(part, closeQuote) && len(part) >= 2 {
			return part
		}
		return open + strings.ReplaceAll(part, closeQuote, closeQuote+closeQuote) + closeQuote
	}
}

// compileLimitOffsetDefault is the MySQL-style form shared by MySQL and SQLite.
func compileLimitOffsetDefault(limit, offset int) string {
	switch {
	case limit >= 0 && offset >= 0:
		return "LIMIT " + strconv.Itoa(offset) + ", " + strconv.Itoa(limit)
	case limit >= 0:
		return "LIMIT " + strconv.Itoa(limit)
	case offset >= 0:
		return "OFFSET " + strconv.Itoa(offset)
	}
	return ""
}

// replaceLeadingKeyword swaps the first keyword of query for replacement, ignoring case
// and leading whitespace. The query is returned untouched when it starts differently.
func replaceLeadingKeyword(query, keyword, replacement string) string {
	trimmed := strings.TrimLeft(query, " \t\r\n")
	if len(trimmed) < len(keyword) || !strings.EqualFold(trimmed[:len(keyword)], keyword) {
		return query
	}
	return replacement + trimmed[len(keyword):]
}

// describeSinglePrimaryKey implements DescribeColumn for every dialect; autoIncrement
// decides whether the driver reports the generated key through LastInsertId.
func describeSinglePrimaryKey(meta TableMeta, autoIncrement func(ColumnMeta) bool) (string, bool) {
	pks := meta.PrimaryKeys()
	switch len(pks) {
	case 0:
		return "", false
	case 1:
		return pks[0].Name, autoIncrement(pks[0])
	default:
		names := make([]string, len(pks))
		for i, pk := range pks {
			names[i] = pk.Name
		}
		panic(fmt.Sprintf("table %s declares more than one primary key column: %s", meta.Name, strings.Join(names, ", ")))
	}
}
