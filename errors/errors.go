// Package errors provides error types and handling for s3conn operations.
//
// Every failing operation returns an *Error that wraps one of the sentinel errors
// below, so callers can branch with errors.Is instead of inspecting log output.
package errors

import (
	"errors"
	"fmt"
)

// Error represents an S3 operation error with context about the operation that failed.
type Error struct {
	// Op is the operation that failed (e.g., "upload", "fetch", "createBucket")
	Op string

	// Bucket is the S3 bucket name (if applicable)
	Bucket string

	// Key is the S3 object key (if applicable)
	Key string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("s3conn.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("s3conn.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("s3conn.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("s3conn.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the stable error code for this error.
func (e *Error) Code() ErrorCode {
	return CodeOf(e.Err)
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

// Sentinel errors for common failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrBucketNotFound indicates that the requested bucket does not exist
	ErrBucketNotFound = errors.New("s3conn: bucket not found")

	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("s3conn: object not found")

	// ErrBucketAlreadyExists indicates that the bucket name is taken by another account
	ErrBucketAlreadyExists = errors.New("s3conn: bucket already exists")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("s3conn: access denied")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("s3conn: invalid input")

	// ErrInvalidBucketName indicates that the bucket name is invalid
	ErrInvalidBucketName = errors.New("s3conn: invalid bucket name")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("s3conn: invalid object key")

	// ErrInvalidCredentials indicates missing, partial or rejected credentials
	ErrInvalidCredentials = errors.New("s3conn: invalid credentials")

	// ErrSerialization indicates that a payload could not be encoded or decoded
	ErrSerialization = errors.New("s3conn: serialization failed")

	// ErrConnection indicates a connection error
	ErrConnection = errors.New("s3conn: connection error")

	// ErrTimeout indicates that the operation timed out
	ErrTimeout = errors.New("s3conn: operation timeout")

	// ErrTooManyRequests indicates that the request rate is too high
	ErrTooManyRequests = errors.New("s3conn: too many requests")
)

// IsBucketNotFound checks if an error indicates that a bucket was not found.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsObjectNotFound checks if an error indicates that an object was not found.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsAccessDenied checks if an error indicates access was denied.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidBucketName) ||
		errors.Is(err, ErrInvalidObjectKey)
}

// IsSerialization checks if an error indicates an encoding or decoding failure.
func IsSerialization(err error) bool {
	return errors.Is(err, ErrSerialization)
}

// IsNetwork checks if an error indicates a transport-level failure.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrConnection) || errors.Is(err, ErrTimeout)
}
