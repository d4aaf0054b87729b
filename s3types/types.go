// Package s3types provides shared type definitions for the s3conn module.
package s3types

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/go-git/go-billy/v5"
)

// CredentialSource selects where the client takes its AWS credentials from.
type CredentialSource string

// Supported credential sources
const (
	// CredentialSourceAuto uses static keys if both are set, then a named profile,
	// then the SDK default credential chain.
	CredentialSourceAuto CredentialSource = "auto"

	// CredentialSourceStatic uses AccessKey, SecretKey and SessionToken verbatim.
	CredentialSourceStatic CredentialSource = "static"

	// CredentialSourceEnvironment reads AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY
	// and AWS_SESSION_TOKEN from the process environment.
	CredentialSourceEnvironment CredentialSource = "environment"

	// CredentialSourceProfile uses a named profile from the shared config files.
	CredentialSourceProfile CredentialSource = "profile"

	// CredentialSourceSecretsManager reads a JSON key pair from AWS Secrets Manager.
	CredentialSourceSecretsManager CredentialSource = "secretsmanager"

	// CredentialSourceAnonymous sends unsigned requests.
	CredentialSourceAnonymous CredentialSource = "anonymous"
)

// Valid reports whether s is a known credential source. The empty value is valid
// and means CredentialSourceAuto.
func (s CredentialSource) Valid() bool {
	switch s {
	case "", CredentialSourceAuto, CredentialSourceStatic, CredentialSourceEnvironment,
		CredentialSourceProfile, CredentialSourceSecretsManager, CredentialSourceAnonymous:
		return true
	default:
		return false
	}
}

// SecretsAPI is the subset of the Secrets Manager client used to resolve
// CredentialSourceSecretsManager.
type SecretsAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// Object represents an S3 object with its basic metadata.
type Object struct {
	// Key is the S3 object key (path)
	Key string

	// Size is the object size in bytes
	Size int64

	// LastModified is when the object was last modified
	LastModified time.Time

	// ETag is the S3 entity tag for the object
	ETag string
}

// UploadResult contains the result of an upload operation.
type UploadResult struct {
	// Bucket is the bucket the object was written to
	Bucket string

	// Key is the S3 object key that was uploaded
	Key string

	// Size is the size of the uploaded object in bytes, or -1 if it was streamed
	// and the size was not known
	Size int64

	// ContentType is the content type sent with the object
	ContentType string

	// ETag is the S3 entity tag for the uploaded object
	ETag string

	// VersionID is the version ID if versioning is enabled
	VersionID string

	// Fallback is true when a tabular upload needed its buffered second attempt
	Fallback bool

	// Duration is how long the upload took
	Duration time.Duration
}

// DownloadResult contains the result of a download operation.
type DownloadResult struct {
	// Key is the S3 object key that was downloaded
	Key string

	// Size is the number of bytes written
	Size int64

	// ContentType is the content type reported by S3
	ContentType string

	// ETag is the S3 entity tag for the downloaded object
	ETag string

	// Duration is how long the download took
	Duration time.Duration
}

// Configuration types for functional options

// ClientConfig holds configuration for the client.
type ClientConfig struct {
	AccessKey        string
	SecretKey        string
	SessionToken     string
	Region           string
	CredentialSource CredentialSource
	Profile          string
	SecretID         string
	Endpoint         string
	ForcePathStyle   bool
	MaxRetries       int
	Timeout          time.Duration
	PartSize         int64
	PageSize         int32
	CustomAWSConfig  *aws.Config
	CustomHTTPClient *http.Client
	SecretsAPI       SecretsAPI
	Logger           *slog.Logger
	Filesystem       billy.Filesystem // Filesystem for UploadFile and DownloadFile
}

// UploadOptionConfig holds configuration for upload operations via functional options.
type UploadOptionConfig struct {
	ContentType string
	Metadata    map[string]string
}

// BucketOptionConfig holds configuration for bucket operations via functional options.
type BucketOptionConfig struct {
	Region string
}

type (
	// Option is a functional option for configuring the client.
	Option func(*ClientConfig)
	// UploadOption is a functional option for configuring upload operations.
	UploadOption func(*UploadOptionConfig)
	// BucketOption is a functional option for configuring bucket operations.
	BucketOption func(*BucketOptionConfig)
)
