package dialect

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/sijms/go-ora/v2/network"

	"github.com/gaborage/querykit/database/internal/sqllex"
	"github.com/gaborage/querykit/database/types"
)

// Oracle binds with :n and quotes only identifiers that need it, since quoting makes
// Oracle identifiers case-sensitive. Neither insert nor update has an ignore form.
type Oracle struct{}

var _ Dialect = Oracle{}

var oraCodePattern = regexp.MustCompile(`ORA-(\d{5})`)

func (Oracle) Name() string { return types.Oracle }

func (Oracle) Placeholder() sq.PlaceholderFormat { return sq.Colon }

func (Oracle) QuoteIdentifier(name string) string {
	return quoteDotted(name, oracleQuotePart)
}

func oracleQuotePart(part string) string {
	if len(part) >= 2 && part[0] == '"' && part[len(part)-1] == '"' {
		return part
	}
	if sqllex.IsOracleReservedWord(part) {
		return `"` + strings.ToUpper(part) + `"`
	}
	if !sqllex.IsPlainIdentifier(part) {
		return `"` + part + `"`
	}
	return part
}

func (Oracle) CompileInsertOrIgnore(query string) string { return query }

func (Oracle) CompileUpdateOrIgnore(query string) string { return query }

func (Oracle) ReturningClause(string) string { return "" }

// CompileLimitOffset uses the 12c row limiting clause.
func (Oracle) CompileLimitOffset(limit, offset int) string {
	switch {
	case limit >= 0 && offset >= 0:
		return fmt.Sprintf("OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", offset, limit)
	case limit >= 0:
		return fmt.Sprintf("FETCH NEXT %d ROWS ONLY", limit)
	case offset >= 0:
		return fmt.Sprintf("OFFSET %d ROWS", offset)
	}
	return ""
}

const oracleDescribeColumns = `SELECT c.COLUMN_NAME, c.DATA_TYPE, c.NULLABLE,
	CASE WHEN EXISTS (
		SELECT 1 FROM ALL_CONSTRAINTS uc
		JOIN ALL_CONS_COLUMNS ucc ON uc.OWNER = ucc.OWNER AND uc.CONSTRAINT_NAME = ucc.CONSTRAINT_NAME
		WHERE uc.CONSTRAINT_TYPE = 'P' AND uc.OWNER = c.OWNER
			AND uc.TABLE_NAME = c.TABLE_NAME AND ucc.COLUMN_NAME = c.COLUMN_NAME
	) THEN 1 ELSE 0 END,
	CASE WHEN c.IDENTITY_COLUMN = 'YES' THEN 1 ELSE 0 END
FROM ALL_TAB_COLUMNS c
WHERE c.OWNER = `

func (Oracle) DescribeTableSQL(table string) (string, []any) {
	schema, name := splitTable(table)
	if schema == "" {
		return oracleDescribeColumns + "SYS_CONTEXT('USERENV', 'CURRENT_SCHEMA') AND c.TABLE_NAME = :1 ORDER BY c.COLUMN_ID",
			[]any{strings.ToUpper(name)}
	}
	return oracleDescribeColumns + ":1 AND c.TABLE_NAME = :2 ORDER BY c.COLUMN_ID",
		[]any{strings.ToUpper(schema), strings.ToUpper(name)}
}

// ScanTableMeta lower-cases catalog names so they match the identifiers callers write.
func (Oracle) ScanTableMeta(table string, rows *sql.Rows) (TableMeta, error) {
	return scanCatalog(table, rows, func(r catalogRow) ColumnMeta {
		return ColumnMeta{
			Name:          strings.ToLower(r.name),
			Type:          strings.ToLower(r.typ),
			Nullable:      truthy(r.nullable),
			PrimaryKey:    truthy(r.key),
			AutoIncrement: truthy(r.extra),
		}
	})
}

// DescribeColumn never selects LastInsertId; go-ora does not report generated keys.
func (Oracle) DescribeColumn(meta TableMeta) (string, bool) {
	return describeSinglePrimaryKey(meta, func(ColumnMeta) bool { return false })
}

var oracleErrorClasses = map[int]ErrorClass{
	1017:  ClassConnection, // invalid username/password
	3113:  ClassConnection, // end-of-file on communication channel
	3114:  ClassConnection, // not connected
	12154: ClassConnection, // could not resolve connect identifier
	12514: ClassConnection, // listener does not know of service
	12541: ClassConnection, // no listener
	12545: ClassConnection, // target host does not exist
	904:   ClassSyntax,     // invalid identifier
	900:   ClassSyntax,     // invalid SQL statement
	933:   ClassSyntax,     // command not properly ended
	936:   ClassSyntax,     // missing expression
	942:   ClassSyntax,     // table or view does not exist
	1:     ClassConstraint, // unique constraint violated
	1400:  ClassConstraint, // cannot insert NULL
	2290:  ClassConstraint, // check constraint violated
	2291:  ClassConstraint, // parent key not found
	2292:  ClassConstraint, // child record found
	1438:  ClassData,       // value larger than precision
	1722:  ClassData,       // invalid number
	12899: ClassData,       // value too large for column
}

func (Oracle) ClassifyError(err error) DriverError {
	if de, ok := classifyCommon(err); ok {
		return de
	}

	var oraErr *network.OracleError
	if errors.As(err, &oraErr) {
		return classifyOracleCode(oraErr.ErrCode, oraErr.ErrMsg)
	}

	// errors produced before a session exists only carry the ORA code in their text
	if m := oraCodePattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return classifyOracleCode(code, err.Error())
	}

	return DriverError{Message: err.Error()}
}

func classifyOracleCode(code int, msg string) DriverError {
	class := oracleErrorClasses[code]
	if class == ClassUnknown && code >= 12500 && code < 12700 {
		class = ClassConnection // TNS family
	}
	return DriverError{Class: class, Code: fmt.Sprintf("ORA-%05d", code), Message: msg}
}

func (Oracle) TimestampValue(t time.Time) any { return t.UTC() }
