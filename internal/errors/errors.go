package errors

import (
	stderrors "errors"
	"fmt"
)

// Error is the structured error type for filesearch.
// It carries the error kind (Code) across component boundaries so callers can
// decide between skipping, reporting and aborting without string matching.
type Error struct {
	// Code is the unique error code (e.g., "ERR_201_READ_FAILURE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the operator.
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, so errors.Is(err, errors.ErrQuerySyntax) works
// regardless of message or cause.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the operator.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// New creates a new Error with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates an Error from an existing error.
// The error's message becomes the Error message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is matching by kind.
var (
	ErrConfigInvalid = &Error{Code: ErrCodeConfigInvalid}
	ErrRootNotFound  = &Error{Code: ErrCodeRootNotFound}
	ErrReadFailure   = &Error{Code: ErrCodeReadFailure}
	ErrLockFailed    = &Error{Code: ErrCodeLockFailed}
	ErrConnectivity  = &Error{Code: ErrCodeConnectivity}
	ErrBulkTransport = &Error{Code: ErrCodeBulkTransport}
	ErrQuerySyntax   = &Error{Code: ErrCodeQuerySyntax}
	ErrSchema        = &Error{Code: ErrCodeSchema}
	ErrSearchFailed  = &Error{Code: ErrCodeSearchFailed}
	ErrIndexNotFound = &Error{Code: ErrCodeIndexNotFound}
)

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ReadFailure reports a file that could not be read or decoded.
func ReadFailure(path string, cause error) *Error {
	return New(ErrCodeReadFailure, "cannot read file "+path, cause).WithDetail("path", path)
}

// ConnectivityError reports that the engine could not be reached.
func ConnectivityError(endpoint string, cause error) *Error {
	return New(ErrCodeConnectivity, "cannot connect to search engine at "+endpoint, cause).
		WithDetail("endpoint", endpoint).
		WithSuggestion("Check that the search engine is running and engine.url is correct")
}

// SchemaError reports an index create/delete failure.
func SchemaError(op, index string, cause error) *Error {
	return New(ErrCodeSchema, fmt.Sprintf("%s index %q failed", op, index), cause).
		WithDetail("index", index).
		WithDetail("operation", op)
}

// SyntaxError reports a malformed query line.
func SyntaxError(input, reason string) *Error {
	return New(ErrCodeQuerySyntax, "invalid syntax: "+reason, nil).
		WithDetail("input", input).
		WithSuggestion("Use: nome <terms> | contenuto <terms> | contenuto \"exact phrase\"")
}

// RootNotFound reports a missing or non-directory crawl root.
func RootNotFound(root string, cause error) *Error {
	return New(ErrCodeRootNotFound, "directory "+root+" does not exist", cause).
		WithDetail("root", root).
		WithSuggestion("Set index.root in the config file or FILESEARCH_ROOT")
}

// LockError reports that another run holds the index lock.
func LockError(path string, cause error) *Error {
	return New(ErrCodeLockFailed, "index is locked by another run", cause).
		WithDetail("lock", path)
}

// BulkTransportError reports a bulk request that could not be delivered.
func BulkTransportError(batch int, cause error) *Error {
	return New(ErrCodeBulkTransport, fmt.Sprintf("bulk request %d failed", batch), cause).
		WithDetail("batch", fmt.Sprint(batch))
}

// BulkItemFailure reports one document the engine rejected.
func BulkItemFailure(id, reason string) *Error {
	return New(ErrCodeBulkItem, "document rejected: "+reason, nil).WithDetail("id", id)
}

// SearchFailure reports a search the engine could not execute.
func SearchFailure(index string, cause error) *Error {
	return New(ErrCodeSearchFailed, "search failed", cause).WithDetail("index", index)
}

// IndexNotFound reports a missing index at query time.
func IndexNotFound(index string) *Error {
	return New(ErrCodeIndexNotFound, fmt.Sprintf("index %q does not exist", index), nil).
		WithDetail("index", index).
		WithSuggestion("Run 'filesearch index' first")
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *Error {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal reports whether the first Error in the chain has fatal severity.
// An outer coded error decides: a fatal cause wrapped by a recoverable
// error is not fatal. Fatal errors should abort the current run.
func IsFatal(err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from the first Error in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// GetCategory extracts the category from the first Error in the chain.
func GetCategory(err error) Category {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Category
	}
	return ""
}
