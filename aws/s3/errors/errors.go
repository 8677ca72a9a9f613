// Package errors provides error types and handling for S3 operations.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/smithy-go"

	apperrors "github.com/input-output-hk/s3-artifact-handler/errors"
)

// Error represents an S3 operation error with context about the operation that failed.
// It wraps the underlying transport, protocol or API error with additional context.
type Error struct {
	// Op is the operation that failed (e.g., "put", "get", "delete")
	Op string

	// Bucket is the S3 bucket name (if applicable)
	Bucket string

	// Key is the S3 object key (if applicable)
	Key string

	// StatusCode is the HTTP status returned by the store, or 0 when no
	// response was received
	StatusCode int

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	var target string
	switch {
	case e.Bucket != "" && e.Key != "":
		target = fmt.Sprintf(" %s/%s", e.Bucket, e.Key)
	case e.Bucket != "":
		target = " bucket " + e.Bucket
	case e.Key != "":
		target = " object " + e.Key
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("s3.%s%s: status %d: %v", e.Op, target, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("s3.%s%s: %v", e.Op, target, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode classifies the error for the shared error taxonomy. Input
// validation failures are INVALID_INPUT, local file failures keep their own
// code and everything else is a STORE_ERROR.
func (e *Error) ErrorCode() apperrors.ErrorCode {
	var ae *apperrors.Error
	if errors.As(e.Err, &ae) {
		return ae.Code
	}
	for _, sentinel := range []error{ErrInvalidInput, ErrInvalidBucketName, ErrInvalidObjectKey, ErrInvalidEndpoint} {
		if errors.Is(e.Err, sentinel) {
			return apperrors.CodeInvalidInput
		}
	}
	return apperrors.CodeStore
}

// Is lets errors.Is match the code markers of the shared error package.
func (e *Error) Is(target error) bool {
	t, ok := target.(*apperrors.Error)
	if !ok || t.Op != "" || t.Path != "" || t.Err != nil {
		return false
	}
	return t.Code == e.ErrorCode()
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithStatus records the HTTP status of the failed response.
func (e *Error) WithStatus(status int) *Error {
	e.StatusCode = status
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewBucketError creates a new Error with bucket context.
func NewBucketError(op, bucket string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Err:    err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// Sentinel errors for common S3 operation failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("s3: object not found")

	// ErrBucketNotFound indicates that the requested bucket does not exist
	ErrBucketNotFound = errors.New("s3: bucket not found")

	// ErrBucketCreate indicates that creating a missing bucket failed
	ErrBucketCreate = errors.New("s3: bucket creation failed")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("s3: access denied")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("s3: invalid input")

	// ErrInvalidBucketName indicates that the bucket name is invalid
	ErrInvalidBucketName = errors.New("s3: invalid bucket name")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("s3: invalid object key")

	// ErrInvalidEndpoint indicates that the endpoint URL is unusable
	ErrInvalidEndpoint = errors.New("s3: invalid endpoint")

	// ErrMissingETag indicates a part upload response without an ETag header
	ErrMissingETag = errors.New("s3: missing ETag in part upload response")

	// ErrMissingUploadID indicates an initiate response without an upload id
	ErrMissingUploadID = errors.New("s3: missing upload id in initiate response")

	// ErrMalformedResponse indicates a response body that could not be decoded
	ErrMalformedResponse = errors.New("s3: malformed response")
)

// IsObjectNotFound checks if an error indicates that an object was not found.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsBucketNotFound checks if an error indicates that a bucket was not found.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsAccessDenied checks if an error indicates access was denied.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsInvalidInput checks if an error indicates invalid input.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// APICode returns the S3 error code carried by err, such as "NoSuchKey",
// or "" if err carries none.
func APICode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// FromResponse classifies a failed response. The S3 error code, when
// present, selects a sentinel: missing objects and buckets map to
// ErrObjectNotFound and ErrBucketNotFound, and denied requests to
// ErrAccessDenied. apiErr is kept in the chain.
func FromResponse(op, bucket, key string, status int, apiErr *smithy.GenericAPIError) *Error {
	var err error = apiErr
	switch {
	case apiErr.Code == "NoSuchKey" || (status == http.StatusNotFound && key != "" && apiErr.Code != "NoSuchBucket"):
		err = fmt.Errorf("%w: %w", ErrObjectNotFound, apiErr)
	case apiErr.Code == "NoSuchBucket" || (status == http.StatusNotFound && key == ""):
		err = fmt.Errorf("%w: %w", ErrBucketNotFound, apiErr)
	case apiErr.Code == "AccessDenied" || status == http.StatusForbidden:
		err = fmt.Errorf("%w: %w", ErrAccessDenied, apiErr)
	}
	return &Error{Op: op, Bucket: bucket, Key: key, StatusCode: status, Err: err}
}
