package executor

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/gaborage/querykit/database/dialect"
)

// Kind says at which stage of the bridge a statement failed.
type Kind int

const (
	KindCompile Kind = iota
	KindConnection
	KindPrepare
	KindBind
	KindExecution
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection error"
	case KindPrepare:
		return "prepare error"
	case KindBind:
		return "bind error"
	case KindExecution:
		return "execution error"
	default:
		return "compile error"
	}
}

// connectionErrorQuery stands in for the SQL text of failures that happen before
// any statement reaches the server.
const connectionErrorQuery = "<connection error>"

// maxStackFrames bounds the call-stack snippet kept on a QueryError.
const maxStackFrames = 8

// QueryError is the uniform failure carried in Result.Err. It keeps the
// offending SQL, the driver's message, and where in the caller it happened.
type QueryError struct {
	Kind          Kind
	Query         string
	DriverMessage string
	Class         dialect.ErrorClass
	Code          string

	cause error
	stack errors.StackTrace
}

func newQueryError(kind Kind, query string, cause error, de dialect.DriverError) *QueryError {
	if kind == KindConnection {
		query = connectionErrorQuery
	}
	msg := de.Message
	if msg == "" && cause != nil {
		msg = cause.Error()
	}

	qe := &QueryError{
		Kind:          kind,
		Query:         query,
		DriverMessage: msg,
		Class:         de.Class,
		Code:          de.Code,
		cause:         cause,
	}
	if st, ok := errors.WithStack(cause).(interface{ StackTrace() errors.StackTrace }); ok {
		// skip WithStack's caller frame (newQueryError itself)
		frames := st.StackTrace()
		if len(frames) > 1 {
			frames = frames[1:]
		}
		if len(frames) > maxStackFrames {
			frames = frames[:maxStackFrames]
		}
		qe.stack = frames
	}
	return qe
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s (query: %s)", e.Kind, e.DriverMessage, e.Query)
}

// Unwrap exposes the driver or sentinel error.
func (e *QueryError) Unwrap() error {
	return e.cause
}

// Stack renders the captured call-stack snippet, one "function file:line" per line.
func (e *QueryError) Stack() string {
	var b strings.Builder
	for _, f := range e.stack {
		fmt.Fprintf(&b, "%n %s:%d\n", f, f, f)
	}
	return b.String()
}

// StackTrace implements the pkg/errors stack tracer interface.
func (e *QueryError) StackTrace() errors.StackTrace {
	return e.stack
}

// Format prints the stack snippet after the message for %+v.
func (e *QueryError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = io.WriteString(s, e.Error())
			_, _ = io.WriteString(s, "\n")
			_, _ = io.WriteString(s, e.Stack())
			return
		}
		fallthrough
	case 's':
		_, _ = io.WriteString(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}
