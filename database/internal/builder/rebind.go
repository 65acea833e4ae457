package builder

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/gaborage/querykit/database/internal/sqllex"
	"github.com/gaborage/querykit/database/types"
)

// Rebind rewrites the statement's named placeholders into format and returns the
// arguments in placeholder occurrence order. A key used twice is bound twice.
func Rebind(stmt *CompiledStatement, format sq.PlaceholderFormat) (string, []any, error) {
	lookup := stmt.BindingMap()
	return RebindSQL(stmt.SQL, func(key string) (any, bool) {
		v, ok := lookup[key]
		return v, ok
	}, format)
}

// RebindSQL is Rebind for arbitrary SQL text with a binding lookup.
func RebindSQL(query string, lookup func(key string) (any, bool), format sq.PlaceholderFormat) (string, []any, error) {
	// literal '?' survives squirrel's positional rewrite only when doubled
	if format != sq.Question && strings.Contains(query, "?") {
		query = strings.ReplaceAll(query, "?", "??")
	}

	var args []any
	var missing string
	marked := sqllex.ReplacePlaceholders(query, func(name string) string {
		v, ok := lookup(name)
		if !ok && missing == "" {
			missing = name
		}
		args = append(args, v)
		return "?"
	})
	if missing != "" {
		return "", nil, fmt.Errorf("%w: %s", types.ErrUnknownBinding, missing)
	}

	out, err := format.ReplacePlaceholders(marked)
	if err != nil {
		return "", nil, fmt.Errorf("failed to rebind placeholders: %w", err)
	}
	return out, args, nil
}
