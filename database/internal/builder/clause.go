package builder

import sq "github.com/Masterminds/squirrel"

// ClauseKind tags what a Clause compiles to.
type ClauseKind int

const (
	ClauseWhere ClauseKind = iota
	ClauseWhereNull
	ClauseWhereNotNull
	ClauseWhereBetween
	ClauseWhereNotBetween
	ClauseWhereIn
	ClauseWhereNotIn
	// ClauseWhereColumn compares two columns and never produces a binding.
	ClauseWhereColumn
	ClauseRaw
	ClauseExpr
	ClauseGroup
)

func (k ClauseKind) String() string {
	switch k {
	case ClauseWhere:
		return "where"
	case ClauseWhereNull:
		return "whereNull"
	case ClauseWhereNotNull:
		return "whereNotNull"
	case ClauseWhereBetween:
		return "whereBetween"
	case ClauseWhereNotBetween:
		return "whereNotBetween"
	case ClauseWhereIn:
		return "whereIn"
	case ClauseWhereNotIn:
		return "whereNotIn"
	case ClauseWhereColumn:
		return "whereColumn"
	case ClauseRaw:
		return "raw"
	case ClauseExpr:
		return "expr"
	case ClauseGroup:
		return "group"
	default:
		return "unknown"
	}
}

// bindable reports whether the kind ever contributes bindings.
func (k ClauseKind) bindable() bool {
	switch k {
	case ClauseWhereNull, ClauseWhereNotNull, ClauseWhereColumn:
		return false
	}
	return true
}

// Connector joins a clause to the one before it.
type Connector int

const (
	And Connector = iota
	Or
)

func (c Connector) keyword() string {
	if c == Or {
		return " OR "
	}
	return " AND "
}

// ColumnPair is one column-to-column comparison.
type ColumnPair struct {
	First    string
	Operator string
	Second   string
}

// Clause is one accumulated predicate. Clauses are never modified after they are appended.
type Clause struct {
	Kind      ClauseKind
	Column    string
	Operator  string
	Values    []any
	Connector Connector
	Group     []Clause
	Pairs     []ColumnPair
	Raw       string
	Expr      sq.Sqlizer
}

// JoinStyle selects the join keyword.
type JoinStyle int

const (
	InnerJoin JoinStyle = iota
	LeftJoin
	RightJoin
)

func (s JoinStyle) keyword() string {
	switch s {
	case LeftJoin:
		return "LEFT JOIN"
	case RightJoin:
		return "RIGHT JOIN"
	default:
		return "INNER JOIN"
	}
}

// JoinSpec is one join in call order. Its columns are identifiers and are never bound.
type JoinSpec struct {
	Style    JoinStyle
	Table    string
	First    string
	Operator string
	Second   string
}

// OrderSpec is one ORDER BY entry.
type OrderSpec struct {
	Column    string
	Direction string
}

// ExecContext records which terminal operation a statement is compiled for, so the
// executor can shape the result without inspecting the caller.
type ExecContext int

const (
	ContextPlain ExecContext = iota
	ContextFirst
	ContextPaginate
	ContextCount
	ContextExists
	ContextPluck
	ContextInsert
	ContextUpdate
	ContextDelete
	ContextRaw
)

func (c ExecContext) String() string {
	switch c {
	case ContextFirst:
		return "first"
	case ContextPaginate:
		return "paginate"
	case ContextCount:
		return "count"
	case ContextExists:
		return "exists"
	case ContextPluck:
		return "pluck"
	case ContextInsert:
		return "insert"
	case ContextUpdate:
		return "update"
	case ContextDelete:
		return "delete"
	case ContextRaw:
		return "raw"
	default:
		return "plain"
	}
}

// Mutates reports whether statements compiled for c change data.
func (c ExecContext) Mutates() bool {
	return c == ContextInsert || c == ContextUpdate || c == ContextDelete
}
