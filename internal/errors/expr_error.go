// Package errors provides standardized error types for expression evaluation.
// Every function reports failures as *ExprError carrying the function name and
// an error Code, so callers can branch with errors.Is against the sentinels.
package errors

import (
	"fmt"
	"strings"

	crerrors "github.com/cockroachdb/errors"
)

// Code classifies an ExprError
type Code int

const (
	CodeArgumentCount Code = iota + 1
	CodeIllegalType
	CodeCannotConvert
	CodeColumnNotFound
	CodeMismatchedLength
	CodeUnknownFunction
	CodeInternal
)

// String returns the code name
func (c Code) String() string {
	switch c {
	case CodeArgumentCount:
		return "NUMBER_OF_ARGUMENTS_DOESNT_MATCH"
	case CodeIllegalType:
		return "ILLEGAL_TYPE_OF_ARGUMENT"
	case CodeCannotConvert:
		return "CANNOT_CONVERT_TYPE"
	case CodeColumnNotFound:
		return "NO_SUCH_COLUMN"
	case CodeMismatchedLength:
		return "SIZES_OF_COLUMNS_DOESNT_MATCH"
	case CodeUnknownFunction:
		return "UNKNOWN_FUNCTION"
	case CodeInternal:
		return "LOGICAL_ERROR"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// ExprError represents standardized errors across all expression operations
type ExprError struct {
	Op      string // Function or operation name (e.g., "multiIf", "cast")
	Code    Code   // Error classification
	Column  string // Column name if applicable
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *ExprError) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	if e.Column != "" {
		fmt.Fprintf(&sb, "column '%s': ", e.Column)
	}
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause for error wrapping support
func (e *ExprError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is().
// A target with only a Code set (the package sentinels) matches any error
// of that code.
func (e *ExprError) Is(target error) bool {
	t, ok := target.(*ExprError)
	if !ok {
		return false
	}
	if t.Op == "" && t.Column == "" && t.Message == "" {
		return e.Code == t.Code
	}
	return e.Code == t.Code && e.Op == t.Op && e.Column == t.Column && e.Message == t.Message
}

// Sentinels for errors.Is checks
var (
	ErrArgumentCount    = &ExprError{Code: CodeArgumentCount}
	ErrIllegalType      = &ExprError{Code: CodeIllegalType}
	ErrCannotConvert    = &ExprError{Code: CodeCannotConvert}
	ErrColumnNotFound   = &ExprError{Code: CodeColumnNotFound}
	ErrMismatchedLength = &ExprError{Code: CodeMismatchedLength}
	ErrUnknownFunction  = &ExprError{Code: CodeUnknownFunction}
	ErrInternal         = &ExprError{Code: CodeInternal}
)

// NewArgumentCountError creates an error for an invalid number of arguments
func NewArgumentCountError(op string, got int, expected string) *ExprError {
	return &ExprError{
		Op:      op,
		Code:    CodeArgumentCount,
		Message: fmt.Sprintf("invalid number of arguments: got %d, expected %s", got, expected),
	}
}

// NewIllegalTypeError creates an error for an argument of an unsupported type
func NewIllegalTypeError(op, message string) *ExprError {
	return &ExprError{
		Op:      op,
		Code:    CodeIllegalType,
		Message: message,
	}
}

// NewNoCommonTypeError creates an error for types that cannot be unified
func NewNoCommonTypeError(typeNames []string, reason string) *ExprError {
	msg := fmt.Sprintf("there is no common type for types %s", strings.Join(typeNames, ", "))
	if reason != "" {
		msg += ": " + reason
	}
	return &ExprError{
		Op:      "leastCommonType",
		Code:    CodeIllegalType,
		Message: msg,
	}
}

// NewConversionError creates an error for a failed column cast
func NewConversionError(from, to string, cause error) *ExprError {
	return &ExprError{
		Op:      "cast",
		Code:    CodeCannotConvert,
		Message: fmt.Sprintf("cannot convert %s to %s", from, to),
		Cause:   cause,
	}
}

// NewColumnNotFoundError creates an error for references to non-existent columns
func NewColumnNotFoundError(op, column string) *ExprError {
	return &ExprError{
		Op:      op,
		Code:    CodeColumnNotFound,
		Column:  column,
		Message: "column does not exist",
	}
}

// NewPositionError creates an error for a column position outside the batch
func NewPositionError(op string, pos, width int) *ExprError {
	return &ExprError{
		Op:      op,
		Code:    CodeColumnNotFound,
		Message: fmt.Sprintf("column position %d out of range [0, %d)", pos, width),
	}
}

// NewMismatchedLengthError creates an error for columns whose row count
// differs from the batch
func NewMismatchedLengthError(op string, expected, actual int) *ExprError {
	return &ExprError{
		Op:      op,
		Code:    CodeMismatchedLength,
		Message: fmt.Sprintf("column has %d rows, batch has %d", actual, expected),
	}
}

// NewUnknownFunctionError creates an error for unregistered function names
func NewUnknownFunctionError(name string) *ExprError {
	return &ExprError{
		Op:      "registry",
		Code:    CodeUnknownFunction,
		Message: fmt.Sprintf("unknown function %s", name),
	}
}

// NewInternalError creates an error for broken internal invariants
func NewInternalError(op string, cause error) *ExprError {
	return &ExprError{
		Op:      op,
		Code:    CodeInternal,
		Message: "internal error occurred",
		Cause:   cause,
	}
}

// Wrapf annotates err with a message and a stack trace.
func Wrapf(err error, format string, args ...interface{}) error {
	return crerrors.Wrapf(err, format, args...)
}

// AssertionFailedf reports a violated invariant.
func AssertionFailedf(format string, args ...interface{}) error {
	return crerrors.AssertionFailedf(format, args...)
}

// CodeOf returns the Code of the first ExprError in err's chain.
func CodeOf(err error) (Code, bool) {
	var e *ExprError
	if crerrors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}
