package dialect

import (
	"database/sql/driver"
	"errors"
)

// ErrorClass groups driver failures by what the caller can do about them.
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	// ClassConnection covers unreachable servers, dropped connections and failed authentication.
	ClassConnection
	// ClassSyntax covers malformed SQL and references to missing tables or columns.
	ClassSyntax
	// ClassConstraint covers unique, foreign key, not-null and check violations.
	ClassConstraint
	// ClassData covers values the engine cannot store in the target column.
	ClassData
)

func (c ErrorClass) String() string {
	switch c {
	case ClassConnection:
		return "connection"
	case ClassSyntax:
		return "syntax"
	case ClassConstraint:
		return "constraint"
	case ClassData:
		return "data"
	default:
		return "unknown"
	}
}

// DriverError is a driver failure decoded by a dialect.
type DriverError struct {
	Class   ErrorClass
	Code    string
	Message string
}

// classifyCommon handles failures that look the same on every driver.
func classifyCommon(err error) (DriverError, bool) {
	if err == nil {
		return DriverError{}, true
	}
	if errors.Is(err, driver.ErrBadConn) {
		return DriverError{Class: ClassConnection, Message: err.Error()}, true
	}
	return DriverError{}, false
}
