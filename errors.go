package sandbox

import "fmt"

// ErrorKind categorizes a sandbox Error. The core returns the kind;
// callers (e.g. the HTTP adapter) decide how to surface it.
type ErrorKind string

const (
	// ErrorKindInit marks a failure while running the environment script.
	// Adapters should surface this as a user-visible input error, not a
	// protocol error.
	ErrorKindInit ErrorKind = "init"
	// ErrorKindExecute marks a failure while running the submitted query,
	// including a statement timeout.
	ErrorKindExecute ErrorKind = "execute"
	// ErrorKindColumnDecode marks a row carrying a value the decoder could
	// not represent as a SqlValue.
	ErrorKindColumnDecode ErrorKind = "column_decode"
	// ErrorKindOther covers any other driver, I/O, or connection error.
	ErrorKindOther ErrorKind = "other"
)

// Error is the single structured error type returned by the core. It wraps
// the underlying driver error (if any) and, for ErrorKindColumnDecode,
// names the offending column.
type Error struct {
	Kind    ErrorKind
	Column  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrorKindInit:
		return fmt.Sprintf("error while initializing database: %v", e.Cause)
	case ErrorKindExecute:
		return fmt.Sprintf("error while executing supplied query: %v", e.Cause)
	case ErrorKindColumnDecode:
		return fmt.Sprintf("failed to determine column type of `%s`", e.Column)
	default:
		if e.Message != "" {
			return e.Message
		}
		return fmt.Sprintf("an sql error occurred: %v", e.Cause)
	}
}

// Unwrap exposes the underlying driver error, if any.
func (e *Error) Unwrap() error { return e.Cause }

// NewInitError wraps err as an ErrorKindInit error.
func NewInitError(err error) *Error {
	return &Error{Kind: ErrorKindInit, Cause: err}
}

// NewExecuteError wraps err as an ErrorKindExecute error.
func NewExecuteError(err error) *Error {
	return &Error{Kind: ErrorKindExecute, Cause: err}
}

// NewColumnDecodeError reports that column could not be decoded into a
// SqlValue.
func NewColumnDecodeError(column string) *Error {
	return &Error{Kind: ErrorKindColumnDecode, Column: column}
}

// NewOtherError wraps err as an ErrorKindOther error — any driver, I/O, or
// connection error that isn't specifically Init/Execute/ColumnDecode.
func NewOtherError(err error) *Error {
	return &Error{Kind: ErrorKindOther, Cause: err}
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	se, ok := err.(*Error)
	return ok && se.Kind == kind
}
