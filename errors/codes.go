package errors

import "errors"

// ErrorCode represents a specific error condition reported by s3conn.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Resource errors.

	// CodeNotFound indicates a requested bucket or object does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeAlreadyExists indicates a resource already exists and cannot be created again.
	CodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Permission errors.

	// CodeUnauthorized indicates the request lacks valid authentication credentials.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeForbidden indicates the credentials lack permission for the operation.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// Validation errors.

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// CodeSerialization indicates a payload could not be encoded or decoded.
	CodeSerialization ErrorCode = "SERIALIZATION_FAILED"

	// Infrastructure errors.

	// CodeNetwork indicates a network operation failed.
	CodeNetwork ErrorCode = "NETWORK_ERROR"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeRateLimit indicates the rate limit has been exceeded.
	CodeRateLimit ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Generic errors.

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// codeTable maps sentinels to codes. Order matters: the first match wins.
var codeTable = []struct {
	err  error
	code ErrorCode
}{
	{ErrBucketNotFound, CodeNotFound},
	{ErrObjectNotFound, CodeNotFound},
	{ErrBucketAlreadyExists, CodeAlreadyExists},
	{ErrInvalidCredentials, CodeUnauthorized},
	{ErrAccessDenied, CodeForbidden},
	{ErrInvalidBucketName, CodeInvalidInput},
	{ErrInvalidObjectKey, CodeInvalidInput},
	{ErrInvalidInput, CodeInvalidInput},
	{ErrSerialization, CodeSerialization},
	{ErrTimeout, CodeTimeout},
	{ErrConnection, CodeNetwork},
	{ErrTooManyRequests, CodeRateLimit},
}

// CodeOf returns the ErrorCode for err. A nil error has an empty code.
// Errors that do not wrap a package sentinel are classified first.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	for _, entry := range codeTable {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	if classified, ok := classify(err); ok {
		return CodeOf(classified)
	}
	return CodeUnknown
}

// IsRetryable reports whether an error code describes a transient condition.
// The client never retries on its own; this is for callers that do.
func (c ErrorCode) IsRetryable() bool {
	switch c {
	case CodeNetwork, CodeTimeout, CodeRateLimit:
		return true
	default:
		return false
	}
}
