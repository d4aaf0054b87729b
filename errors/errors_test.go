package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "bucket and key",
			err:  NewObjectError("fetch", "data", "a/x.csv", ErrObjectNotFound),
			want: "s3conn.fetch data/a/x.csv: s3conn: object not found",
		},
		{
			name: "bucket only",
			err:  NewBucketError("createBucket", "data", ErrAccessDenied),
			want: "s3conn.createBucket bucket data: s3conn: access denied",
		},
		{
			name: "key only",
			err:  NewError("validateObjectKey", ErrInvalidObjectKey).WithKey("k"),
			want: "s3conn.validateObjectKey object k: s3conn: invalid object key",
		},
		{
			name: "no context",
			err:  NewError("new", ErrInvalidCredentials),
			want: "s3conn.new: s3conn: invalid credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_WithMessageKeepsSentinel(t *testing.T) {
	err := NewError("upload", ErrInvalidInput).
		WithBucket("data").
		WithKey("k").
		WithMessage("unsupported payload type int")

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.True(t, IsInvalidInput(err))
	assert.Contains(t, err.Error(), "unsupported payload type int")
	assert.Equal(t, CodeInvalidInput, err.Code())
}

func TestIsHelpers(t *testing.T) {
	wrap := func(sentinel error) error {
		return fmt.Errorf("outer: %w", NewObjectError("op", "b", "k", sentinel))
	}

	assert.True(t, IsBucketNotFound(wrap(ErrBucketNotFound)))
	assert.True(t, IsObjectNotFound(wrap(ErrObjectNotFound)))
	assert.True(t, IsAccessDenied(wrap(ErrAccessDenied)))
	assert.True(t, IsInvalidInput(wrap(ErrInvalidBucketName)))
	assert.True(t, IsInvalidInput(wrap(ErrInvalidObjectKey)))
	assert.True(t, IsSerialization(wrap(ErrSerialization)))
	assert.True(t, IsNetwork(wrap(ErrConnection)))
	assert.True(t, IsNetwork(wrap(ErrTimeout)))

	assert.False(t, IsBucketNotFound(wrap(ErrObjectNotFound)))
	assert.False(t, IsNetwork(errors.New("plain")))
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"bucket missing", ErrBucketNotFound, CodeNotFound},
		{"object missing", NewObjectError("fetch", "b", "k", ErrObjectNotFound), CodeNotFound},
		{"exists", ErrBucketAlreadyExists, CodeAlreadyExists},
		{"credentials", ErrInvalidCredentials, CodeUnauthorized},
		{"denied", ErrAccessDenied, CodeForbidden},
		{"bucket name", ErrInvalidBucketName, CodeInvalidInput},
		{"serialization", fmt.Errorf("decode: %w", ErrSerialization), CodeSerialization},
		{"timeout", ErrTimeout, CodeTimeout},
		{"connection", ErrConnection, CodeNetwork},
		{"throttled", ErrTooManyRequests, CodeRateLimit},
		{"unknown", errors.New("boom"), CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestErrorCode_IsRetryable(t *testing.T) {
	assert.True(t, CodeNetwork.IsRetryable())
	assert.True(t, CodeTimeout.IsRetryable())
	assert.True(t, CodeRateLimit.IsRetryable())
	assert.False(t, CodeNotFound.IsRetryable())
	assert.False(t, CodeUnknown.IsRetryable())
}
