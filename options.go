package s3conn

import (
	"log/slog"
	"maps"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/s3types"
)

// WithRegion sets the AWS region for S3 operations and bucket creation.
// If not specified, the region comes from the SDK configuration, then DefaultRegion.
func WithRegion(region string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Region = region
	}
}

// WithCredentials sets a static access key pair. With the default credential
// source the pair takes precedence over profiles and the SDK default chain.
func WithCredentials(accessKey, secretKey string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.AccessKey = accessKey
		c.SecretKey = secretKey
	}
}

// WithSessionToken sets the session token sent with static credentials.
func WithSessionToken(token string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.SessionToken = token
	}
}

// WithCredentialSource selects where credentials are read from.
// See s3types.CredentialSource for the supported values.
func WithCredentialSource(source s3types.CredentialSource) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CredentialSource = source
	}
}

// WithProfile sets the shared config profile used for credentials.
func WithProfile(profile string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Profile = profile
	}
}

// WithSecretID selects a Secrets Manager secret holding the key pair and
// switches the credential source to s3types.CredentialSourceSecretsManager.
// New fails if a later option selects another explicit source or static keys
// are also set.
func WithSecretID(secretID string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.SecretID = secretID
		c.CredentialSource = s3types.CredentialSourceSecretsManager
	}
}

// WithSecretsAPI sets the Secrets Manager client used to read WithSecretID.
// This is primarily used for testing.
func WithSecretsAPI(api s3types.SecretsAPI) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.SecretsAPI = api
	}
}

// WithEndpoint sets a custom S3 endpoint URL.
// This is useful for S3-compatible services or local testing with LocalStack.
func WithEndpoint(endpoint string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithForcePathStyle forces the use of path-style URLs instead of virtual-hosted style.
func WithForcePathStyle(forcePathStyle bool) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithMaxRetries sets the maximum number of attempts the SDK retryer makes.
// Default is 3. Zero leaves the SDK default in place.
func WithMaxRetries(maxRetries int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.MaxRetries = maxRetries
	}
}

// WithTimeout sets the HTTP client timeout for individual requests.
func WithTimeout(timeout time.Duration) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithPartSize sets the part size for streamed multipart uploads.
// Values below 5MiB are ignored.
func WithPartSize(partSize int64) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if partSize > 0 {
			c.PartSize = partSize
		}
	}
}

// WithPageSize sets the number of entries requested per listing page.
// Zero leaves the page size to S3.
func WithPageSize(pageSize int32) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if pageSize >= 0 {
			c.PageSize = pageSize
		}
	}
}

// WithAWSConfig provides a ready AWS configuration, bypassing credential
// resolution and config loading.
func WithAWSConfig(config *aws.Config) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomAWSConfig = config
	}
}

// WithCustomHTTPClient sets the HTTP client used by the SDK.
// It takes precedence over WithTimeout.
//
// The SDK can only add a custom CA bundle (AWS_CA_BUNDLE or the ca_bundle
// profile setting) to a client with WithTransportOptions, such as
// awshttp.BuildableClient. With a plain *http.Client and a CA bundle
// configured, New fails.
func WithCustomHTTPClient(client *http.Client) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomHTTPClient = client
	}
}

// WithLogger sets the logger operations report their outcome to.
// Defaults to a logger that discards everything.
func WithLogger(logger *slog.Logger) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Logger = logger
	}
}

// WithFilesystem sets the filesystem UploadFile and DownloadFile use.
// Defaults to the OS filesystem rooted at /.
func WithFilesystem(filesystem billy.Filesystem) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Filesystem = filesystem
	}
}

// WithContentType sets the content type for upload operations.
func WithContentType(contentType string) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.ContentType = contentType
	}
}

// WithMetadata sets metadata for upload operations.
func WithMetadata(metadata map[string]string) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		if c.Metadata == nil {
			c.Metadata = make(map[string]string, len(metadata))
		}
		maps.Copy(c.Metadata, metadata)
	}
}

// WithBucketRegion sets the region a bucket is created in, overriding the client region.
func WithBucketRegion(region string) s3types.BucketOption {
	return func(c *s3types.BucketOptionConfig) {
		c.Region = region
	}
}
