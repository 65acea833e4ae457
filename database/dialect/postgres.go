package dialect

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gaborage/querykit/database/types"
)

// PostgreSQL binds with $n, appends ON CONFLICT DO NOTHING for insert-or-ignore and
// reads generated keys back with RETURNING.
type PostgreSQL struct{}

var _ Dialect = PostgreSQL{}

func (PostgreSQL) Name() string { return types.PostgreSQL }

func (PostgreSQL) Placeholder() sq.PlaceholderFormat { return sq.Dollar }

func (PostgreSQL) QuoteIdentifier(name string) string {
	return quoteDotted(name, wrapWith(`"`, `"`))
}

func (PostgreSQL) CompileInsertOrIgnore(query string) string {
	return strings.TrimRight(query, " ;") + " ON CONFLICT DO NOTHING"
}

func (PostgreSQL) CompileUpdateOrIgnore(query string) string { return query }

func (p PostgreSQL) ReturningClause(primaryKey string) string {
	if primaryKey == "" {
		return ""
	}
	return " RETURNING " + p.QuoteIdentifier(primaryKey)
}

func (PostgreSQL) CompileLimitOffset(limit, offset int) string {
	var parts []string
	if limit >= 0 {
		parts = append(parts, "LIMIT "+strconv.Itoa(limit))
	}
	if offset >= 0 {
		parts = append(parts, "OFFSET "+strconv.Itoa(offset))
	}
	return strings.Join(parts, " ")
}

const postgresDescribeColumns = `SELECT c.column_name, c.data_type, c.is_nullable,
	EXISTS (
		SELECT 1 FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage k
			ON tc.constraint_name = k.constraint_name AND tc.table_schema = k.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = c.table_schema
			AND tc.table_name = c.table_name AND k.column_name = c.column_name
	) AS is_pk,
	(COALESCE(c.column_default, '') LIKE 'nextval(%' OR c.is_identity = 'YES') AS is_auto
FROM information_schema.columns c
WHERE c.table_schema = `

func (PostgreSQL) DescribeTableSQL(table string) (string, []any) {
	schema, name := splitTable(table)
	if schema == "" {
		return postgresDescribeColumns + "current_schema() AND c.table_name = $1 ORDER BY c.ordinal_position", []any{name}
	}
	return postgresDescribeColumns + "$1 AND c.table_name = $2 ORDER BY c.ordinal_position", []any{schema, name}
}

func (PostgreSQL) ScanTableMeta(table string, rows *sql.Rows) (TableMeta, error) {
	return scanCatalog(table, rows, func(r catalogRow) ColumnMeta {
		return ColumnMeta{
			Name:          r.name,
			Type:          strings.ToLower(r.typ),
			Nullable:      truthy(r.nullable),
			PrimaryKey:    truthy(r.key),
			AutoIncrement: truthy(r.extra),
		}
	})
}

// DescribeColumn never selects LastInsertId; generated keys come back through RETURNING.
func (PostgreSQL) DescribeColumn(meta TableMeta) (string, bool) {
	return describeSinglePrimaryKey(meta, func(ColumnMeta) bool { return false })
}

func (PostgreSQL) ClassifyError(err error) DriverError {
	if de, ok := classifyCommon(err); ok {
		return de
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return DriverError{Class: ClassConnection, Message: connErr.Error()}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		de := DriverError{Code: pgErr.Code, Message: pgErr.Message}
		if len(pgErr.Code) >= 2 {
			switch pgErr.Code[:2] {
			case "08", "28", "3D", "57":
				de.Class = ClassConnection
			case "42":
				de.Class = ClassSyntax
			case "23":
				de.Class = ClassConstraint
			case "22":
				de.Class = ClassData
			}
		}
		return de
	}

	return DriverError{Message: err.Error()}
}

func (PostgreSQL) TimestampValue(t time.Time) any { return t.UTC() }
