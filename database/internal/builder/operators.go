package builder

import (
	"fmt"
	"strings"
)

// symbolic operators render without surrounding spaces: status=:status
var symbolicOperators = map[string]struct{}{
	"=": {}, "<>": {}, "!=": {}, "<": {}, ">": {}, "<=": {}, ">=": {}, "<=>": {},
}

// word operators render spaced: name LIKE :name
var wordOperators = map[string]struct{}{
	"LIKE": {}, "NOT LIKE": {}, "ILIKE": {}, "NOT ILIKE": {},
	"REGEXP": {}, "NOT REGEXP": {},
}

// normalizeOperator returns the canonical spelling of op or panics for unknown operators.
func normalizeOperator(op string) string {
	trimmed := strings.TrimSpace(op)
	if _, ok := symbolicOperators[trimmed]; ok {
		return trimmed
	}
	upper := strings.ToUpper(strings.Join(strings.Fields(trimmed), " "))
	if _, ok := wordOperators[upper]; ok {
		return upper
	}
	panic(fmt.Sprintf("querykit: unknown operator %q", op))
}

// normalizeComparison accepts only symbolic operators; used for column-to-column comparisons.
func normalizeComparison(op string) string {
	trimmed := strings.TrimSpace(op)
	if _, ok := symbolicOperators[trimmed]; ok {
		return trimmed
	}
	panic(fmt.Sprintf("querykit: unknown comparison operator %q", op))
}

func isSymbolic(op string) bool {
	_, ok := symbolicOperators[op]
	return ok
}

func normalizeDirection(dir string) string {
	switch strings.ToUpper(strings.TrimSpace(dir)) {
	case "", "ASC":
		return "ASC"
	case "DESC":
		return "DESC"
	}
	panic(fmt.Sprintf("querykit: invalid order direction %q", dir))
}
