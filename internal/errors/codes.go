// Package errors provides structured error handling for filesearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (files, locks)
//   - 3XX: Network errors (engine reachability, bulk transport)
//   - 4XX: Validation errors (query syntax)
//   - 5XX: Engine errors (schema, bulk items, search)
//   - 9XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and lock I/O errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates the engine could not be reached.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates operator input errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryEngine indicates the engine rejected an operation.
	CategoryEngine Category = "ENGINE"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates an unrecoverable error; the process must stop.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed but the run can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates a skipped item; the run continues.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid = "ERR_101_CONFIG_INVALID"
	ErrCodeRootNotFound  = "ERR_102_ROOT_NOT_FOUND"

	// IO errors (200-299)
	ErrCodeReadFailure = "ERR_201_READ_FAILURE"
	ErrCodeLockFailed  = "ERR_202_LOCK_FAILED"

	// Network errors (300-399)
	ErrCodeConnectivity  = "ERR_301_CONNECTIVITY"
	ErrCodeBulkTransport = "ERR_302_BULK_TRANSPORT"

	// Validation errors (400-499)
	ErrCodeQuerySyntax = "ERR_401_QUERY_SYNTAX"

	// Engine errors (500-599)
	ErrCodeSchema        = "ERR_501_SCHEMA"
	ErrCodeBulkItem      = "ERR_502_BULK_ITEM"
	ErrCodeSearchFailed  = "ERR_503_SEARCH_FAILED"
	ErrCodeIndexNotFound = "ERR_504_INDEX_NOT_FOUND"

	// Internal errors (900-999)
	ErrCodeInternal = "ERR_901_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Numeric portion, e.g. "101" from "ERR_101_CONFIG_INVALID"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	case '5':
		return CategoryEngine
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeConfigInvalid, ErrCodeRootNotFound, ErrCodeLockFailed,
		ErrCodeConnectivity, ErrCodeBulkTransport, ErrCodeSchema, ErrCodeIndexNotFound:
		return SeverityFatal
	case ErrCodeReadFailure, ErrCodeBulkItem:
		return SeverityWarning
	default:
		return SeverityError
	}
}
