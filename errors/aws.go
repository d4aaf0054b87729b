package errors

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// AWS API error codes that map onto package sentinels.
var apiCodes = map[string]error{
	"NoSuchBucket":              ErrBucketNotFound,
	"NoSuchKey":                 ErrObjectNotFound,
	"NotFound":                  ErrObjectNotFound,
	"ResourceNotFoundException": ErrObjectNotFound,
	"AccessDenied":              ErrAccessDenied,
	"AccessDeniedException":     ErrAccessDenied,
	"Forbidden":                 ErrAccessDenied,
	"AllAccessDisabled":         ErrAccessDenied,
	"BucketAlreadyExists":       ErrBucketAlreadyExists,
	"BucketAlreadyOwnedByYou":   ErrBucketAlreadyExists,
	"InvalidBucketName":         ErrInvalidBucketName,
	"KeyTooLongError":           ErrInvalidObjectKey,
	"InvalidAccessKeyId":        ErrInvalidCredentials,
	"SignatureDoesNotMatch":     ErrInvalidCredentials,
	"ExpiredToken":              ErrInvalidCredentials,
	"InvalidToken":              ErrInvalidCredentials,
	"SlowDown":                  ErrTooManyRequests,
	"ThrottlingException":       ErrTooManyRequests,
	"TooManyRequests":           ErrTooManyRequests,
	"RequestTimeout":            ErrTimeout,
}

// Classify translates AWS SDK and transport errors into errors that wrap one of the
// package sentinels while keeping the original error in the chain.
// Errors that cannot be classified are returned unchanged.
func Classify(err error) error {
	if classified, ok := classify(err); ok {
		return classified
	}
	return err
}

// APICode returns the AWS API error code carried by err, or "" if there is none.
func APICode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func classify(err error) (error, bool) {
	if err == nil {
		return nil, false
	}

	if code := APICode(err); code != "" {
		if sentinel, ok := apiCodes[code]; ok {
			if errors.Is(err, sentinel) {
				return err, false
			}
			return fmt.Errorf("%w: %w", sentinel, err), true
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err), true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %w", ErrTimeout, err), true
		}
		return fmt.Errorf("%w: %w", ErrConnection, err), true
	}

	var sendErr *smithyhttp.RequestSendError
	if errors.As(err, &sendErr) {
		return fmt.Errorf("%w: %w", ErrConnection, err), true
	}

	return err, false
}
