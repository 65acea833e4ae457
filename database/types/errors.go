package types

import "errors"

// Sentinel errors returned by compilation and terminal operations; match them with errors.Is.
var (
	// ErrNoTable is returned when a structured statement is compiled without a target table.
	ErrNoTable = errors.New("no target table designated")

	// ErrPlaceholderCollision is returned when two bindable clauses resolve to the same placeholder key.
	ErrPlaceholderCollision = errors.New("placeholder key collision")

	// ErrEmptyValues is returned when Insert or Update is called without any column values.
	ErrEmptyValues = errors.New("no column values supplied")

	// ErrUnsafeMutation is returned when Update or Delete runs without a WHERE clause in safe mode.
	ErrUnsafeMutation = errors.New("update or delete without where clause")

	// ErrUnknownBinding is returned when compiled SQL references a placeholder with no binding.
	ErrUnknownBinding = errors.New("placeholder has no binding")

	// ErrNoPrimaryKey is returned when Find is used on a table without a primary key column.
	ErrNoPrimaryKey = errors.New("table has no primary key column")

	// ErrJoinInMutation is returned when Update, Delete or Increment is compiled with joins.
	ErrJoinInMutation = errors.New("joins are not supported in update or delete statements")

	// ErrNoConnection is returned when a terminal operation runs without a connection handle.
	ErrNoConnection = errors.New("no database connection")
)
