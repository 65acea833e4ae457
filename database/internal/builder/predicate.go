package builder

import (
	"fmt"
	"strings"

	"github.com/gaborage/querykit/database/dialect"
	"github.com/gaborage/querykit/database/internal/sqllex"
)

// PredicateCompiler turns clauses into SQL fragments and registers their bindings.
type PredicateCompiler struct {
	dialect dialect.Dialect
}

// NewPredicateCompiler creates a compiler quoting identifiers for d.
func NewPredicateCompiler(d dialect.Dialect) *PredicateCompiler {
	return &PredicateCompiler{dialect: d}
}

// compileState is the per-statement context shared by every fragment of one compilation.
type compileState struct {
	keys     *keyAllocator
	bindings *BindingRegistry
	joined   bool
}

func newCompileState(joined bool) *compileState {
	return &compileState{keys: newKeyAllocator(), bindings: NewBindingRegistry(), joined: joined}
}

// reserve claims the column-derived keys of every ordinary where clause, nested groups
// included, before any value-derived key is generated.
func (pc *PredicateCompiler) reserve(clauses []Clause, st *compileState) error {
	for _, c := range clauses {
		switch c.Kind {
		case ClauseWhere:
			if err := st.keys.reserve(columnKey(c.Column, st.joined)); err != nil {
				return err
			}
		case ClauseRaw:
			for _, arg := range c.Values {
				if named, ok := namedRawArg(arg); ok {
					if err := st.keys.reserve(named.Name); err != nil {
						return err
					}
				}
			}
		case ClauseGroup:
			if err := pc.reserve(c.Group, st); err != nil {
				return err
			}
		}
	}
	return nil
}

// compile renders clauses joined by their connectors. The first connector is dropped.
func (pc *PredicateCompiler) compile(clauses []Clause, st *compileState) (string, error) {
	var b strings.Builder
	for i, c := range clauses {
		fragment, err := pc.compileClause(c, st)
		if err != nil {
			return "", err
		}
		if i > 0 {
			b.WriteString(c.Connector.keyword())
		}
		b.WriteString(fragment)
	}
	return b.String(), nil
}

func (pc *PredicateCompiler) compileClause(c Clause, st *compileState) (string, error) {
	switch c.Kind {
	case ClauseWhere:
		key := columnKey(c.Column, st.joined)
		if err := st.bindings.Add(key, c.Values[0]); err != nil {
			return "", err
		}
		if isSymbolic(c.Operator) {
			return c.Column + c.Operator + ":" + key, nil
		}
		return c.Column + " " + c.Operator + " :" + key, nil

	case ClauseWhereNull:
		return c.Column + " IS NULL", nil

	case ClauseWhereNotNull:
		return c.Column + " IS NOT NULL", nil

	case ClauseWhereBetween, ClauseWhereNotBetween:
		low := st.keys.generate(valueKey(c.Values[0]))
		high := st.keys.generate(valueKey(c.Values[1]))
		if err := st.bindings.Add(low, c.Values[0]); err != nil {
			return "", err
		}
		if err := st.bindings.Add(high, c.Values[1]); err != nil {
			return "", err
		}
		keyword := " BETWEEN :"
		if c.Kind == ClauseWhereNotBetween {
			keyword = " NOT BETWEEN :"
		}
		return c.Column + keyword + low + " AND :" + high, nil

	case ClauseWhereIn, ClauseWhereNotIn:
		if len(c.Values) == 0 {
			if c.Kind == ClauseWhereIn {
				return "0 = 1", nil
			}
			return "1 = 1", nil
		}
		placeholders := make([]string, len(c.Values))
		for i, v := range c.Values {
			key := st.keys.generate(valueKey(v))
			if err := st.bindings.Add(key, v); err != nil {
				return "", err
			}
			placeholders[i] = ":" + key
		}
		keyword := " IN ("
		if c.Kind == ClauseWhereNotIn {
			keyword = " NOT IN ("
		}
		return c.Column + keyword + strings.Join(placeholders, ", ") + ")", nil

	case ClauseWhereColumn:
		parts := make([]string, len(c.Pairs))
		for i, p := range c.Pairs {
			parts[i] = pc.quoteIfDotted(p.First) + " " + p.Operator + " " + pc.quoteIfDotted(p.Second)
		}
		return strings.Join(parts, " AND "), nil

	case ClauseRaw:
		return pc.compileRaw(c.Raw, c.Values, st)

	case ClauseExpr:
		query, args, err := c.Expr.ToSql()
		if err != nil {
			return "", fmt.Errorf("failed to render expression: %w", err)
		}
		return pc.compileRaw(query, args, st)

	case ClauseGroup:
		inner, err := pc.compile(c.Group, st)
		if err != nil {
			return "", err
		}
		return "(" + inner + ")", nil
	}

	return "", fmt.Errorf("unsupported clause kind %s", c.Kind)
}

// compileRaw rewrites "?" markers to generated rawN keys; sql.NamedArg values bind
// the ":name" placeholders already present in the text.
func (pc *PredicateCompiler) compileRaw(query string, args []any, st *compileState) (string, error) {
	var positional []any
	for _, arg := range args {
		if named, ok := namedRawArg(arg); ok {
			if err := st.bindings.Add(named.Name, named.Value); err != nil {
				return "", err
			}
			continue
		}
		positional = append(positional, arg)
	}

	var keys []string
	rewritten, markers := sqllex.ReplacePositional(query, func(int) string {
		key := st.keys.nextRaw()
		keys = append(keys, key)
		return ":" + key
	})
	if markers != len(positional) {
		return "", fmt.Errorf("raw fragment %q has %d markers but %d arguments", query, markers, len(positional))
	}
	for i, key := range keys {
		if err := st.bindings.Add(key, positional[i]); err != nil {
			return "", err
		}
	}
	return rewritten, nil
}

func (pc *PredicateCompiler) quoteIfDotted(column string) string {
	if strings.Contains(column, ".") {
		return pc.dialect.QuoteIdentifier(column)
	}
	return column
}
