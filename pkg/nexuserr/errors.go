package nexuserr

import "fmt"

// Code is a stable short identifier for an error kind, safe to surface to
// callers across process/version boundaries.
type Code string

const (
	CodeParseError          Code = "parse_error"
	CodePlanError           Code = "plan_error"
	CodeSchemaError         Code = "schema_error"
	CodeConstraintViolation Code = "constraint_violation"
	CodeNotFound            Code = "not_found"
	CodeStoreCorrupt        Code = "store_corrupt"
	CodeWalWriteFailed      Code = "wal_write_failed"
	CodeReplicationError    Code = "replication_error"
	CodeQueryTimeout        Code = "query_timeout"
	CodeCanceled            Code = "canceled"
	CodeIoError             Code = "io_error"
)

// Error is the error type returned across Nexus's public API surface.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

func ParseError(pos int, msg string) *Error {
	return newErr(CodeParseError, fmt.Sprintf("at position %d: %s", pos, msg), nil)
}

func PlanError(msg string) *Error { return newErr(CodePlanError, msg, nil) }

func SchemaError(msg string) *Error { return newErr(CodeSchemaError, msg, nil) }

func ConstraintViolation(msg string) *Error {
	return newErr(CodeConstraintViolation, msg, nil)
}

func NotFound(msg string) *Error { return newErr(CodeNotFound, msg, nil) }

func StoreCorrupt(msg string, cause error) *Error {
	return newErr(CodeStoreCorrupt, msg, cause)
}

func WalWriteFailed(cause error) *Error {
	return newErr(CodeWalWriteFailed, "wal append failed", cause)
}

func ReplicationError(msg string, cause error) *Error {
	return newErr(CodeReplicationError, msg, cause)
}

func QueryTimeout() *Error {
	return newErr(CodeQueryTimeout, "query exceeded its timeout", nil)
}

func Canceled() *Error {
	return newErr(CodeCanceled, "query canceled", nil)
}

func IoError(msg string, cause error) *Error {
	return newErr(CodeIoError, msg, cause)
}

// Is reports whether err is a *Error of the given code, unwrapping as needed.
func Is(err error, code Code) bool {
	var e *Error
	for err != nil {
		if ne, ok := err.(*Error); ok {
			e = ne
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return e != nil && e.Code == code
}
