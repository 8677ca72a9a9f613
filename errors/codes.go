// Package errors provides the error taxonomy shared by the artifact handler packages.
// It extends Go's standard error handling with string error codes that classify
// failures as pattern, filesystem, object store or archive format problems.
package errors

// ErrorCode represents a specific error condition in the artifact pipeline.
// Error codes are string-based for debuggability and natural log output.
type ErrorCode string

const (
	// Pipeline errors.

	// CodePattern indicates a path pattern is syntactically invalid.
	CodePattern ErrorCode = "PATTERN_ERROR"

	// CodeIO indicates a filesystem access, read or write failure.
	CodeIO ErrorCode = "IO_ERROR"

	// CodeStore indicates the object store returned a non-success status or
	// a response that is missing an expected header or body field.
	CodeStore ErrorCode = "STORE_ERROR"

	// CodeFormat indicates a corrupt, truncated or malformed archive.
	CodeFormat ErrorCode = "FORMAT_ERROR"

	// Validation errors.

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// Resource errors.

	// CodeNotFound indicates a requested resource does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// System errors.

	// CodeInternal indicates an internal error occurred.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// Generic errors.

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)
