// Package sqllex holds the small amount of lexical knowledge the query engine needs:
// reserved words that force identifier quoting and a scanner for named placeholders.
package sqllex

import "strings"

// oracleReservedWords lists Oracle keywords that must be double-quoted when used as identifiers.
// See the Oracle Database SQL Language Reference, "Oracle SQL Reserved Words".
var oracleReservedWords = map[string]struct{}{
	"ACCESS": {}, "ADD": {}, "ALL": {}, "ALTER": {}, "AND": {}, "ANY": {}, "AS": {}, "ASC": {},
	"AUDIT": {}, "BETWEEN": {}, "BY": {}, "CHAR": {}, "CHECK": {}, "CLUSTER": {}, "COLUMN": {},
	"COMMENT": {}, "COMPRESS": {}, "CONNECT": {}, "CREATE": {}, "CURRENT": {}, "DATE": {},
	"DECIMAL": {}, "DEFAULT": {}, "DELETE": {}, "DESC": {}, "DISTINCT": {}, "DROP": {},
	"ELSE": {}, "EXCLUSIVE": {}, "EXISTS": {}, "FILE": {}, "FLOAT": {}, "FOR": {}, "FROM": {},
	"GRANT": {}, "GROUP": {}, "HAVING": {}, "IDENTIFIED": {}, "IMMEDIATE": {}, "IN": {},
	"INCREMENT": {}, "INDEX": {}, "INITIAL": {}, "INSERT": {}, "INTEGER": {}, "INTERSECT": {},
	"INTO": {}, "IS": {}, "LEVEL": {}, "LIKE": {}, "LOCK": {}, "LONG": {}, "MAXEXTENTS": {},
	"MINUS": {}, "MODE": {}, "MODIFY": {}, "NOAUDIT": {}, "NOCOMPRESS": {}, "NOT": {},
	"NOWAIT": {}, "NULL": {}, "NUMBER": {}, "OF": {}, "OFFLINE": {}, "ON": {}, "ONLINE": {},
	"OPTION": {}, "OR": {}, "ORDER": {}, "PCTFREE": {}, "PRIOR": {}, "PUBLIC": {}, "RAW": {},
	"RENAME": {}, "RESOURCE": {}, "REVOKE": {}, "ROW": {}, "ROWID": {}, "ROWNUM": {}, "ROWS": {},
	"SELECT": {}, "SESSION": {}, "SET": {}, "SHARE": {}, "SIZE": {}, "SMALLINT": {}, "START": {},
	"SUCCESSFUL": {}, "SYNONYM": {}, "SYSDATE": {}, "TABLE": {}, "THEN": {}, "TO": {},
	"TRIGGER": {}, "UID": {}, "UNION": {}, "UNIQUE": {}, "UPDATE": {}, "USER": {},
	"VALIDATE": {}, "VALUES": {}, "VARCHAR": {}, "VARCHAR2": {}, "VIEW": {}, "WHENEVER": {},
	"WHERE": {}, "WITH": {},
}

// IsOracleReservedWord reports whether word is an Oracle reserved keyword, ignoring case.
func IsOracleReservedWord(word string) bool {
	_, exists := oracleReservedWords[strings.ToUpper(word)]
	return exists
}

// IsPlainIdentifier reports whether s consists only of letters, digits, '_' and '$'
// and does not start with a digit.
func IsPlainIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '$':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
