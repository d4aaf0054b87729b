package s3conn

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/internal/credsource"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/internal/operations/download"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/internal/operations/list"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/s3types"
)

const (
	// DefaultRegion is used when neither the options nor the SDK resolve a region.
	DefaultRegion = "us-east-1"

	// DefaultMaxRetries is the default number of attempts the SDK retryer makes.
	DefaultMaxRetries = 3

	// DefaultPartSize is the default part size for streamed multipart uploads.
	DefaultPartSize = 8 * 1024 * 1024
)

// Client is a storage session bound to one set of credentials and one region.
// It is immutable after construction and safe for concurrent use.
type Client struct {
	// api is the S3 client, or a mock in tests
	api s3api.API

	// config holds the resolved AWS configuration
	config aws.Config

	// region is the region buckets are created in unless overridden
	region string

	logger *slog.Logger

	// fs backs UploadFile and DownloadFile
	fs billy.Filesystem

	uploader   *upload.Uploader
	downloader *download.Downloader
	lister     *list.Lister
}

// New creates a Client, resolving credentials as described on
// s3types.CredentialSource and loading the rest of the AWS configuration from
// the environment and shared config files.
//
// Example:
//
//	client, err := s3conn.New(ctx,
//	    s3conn.WithRegion("us-west-2"),
//	    s3conn.WithCredentials("AKID", "SECRET"),
//	)
func New(ctx context.Context, opts ...s3types.Option) (*Client, error) {
	cfg := newClientConfig(opts)

	var (
		awsCfg aws.Config
		err    error
	)
	if cfg.CustomAWSConfig != nil {
		awsCfg = cfg.CustomAWSConfig.Copy()
	} else {
		awsCfg, err = loadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	} else if awsCfg.Region == "" {
		awsCfg.Region = DefaultRegion
	}

	var s3Opts []func(*s3.Options)
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	c := build(s3.NewFromConfig(awsCfg, s3Opts...), cfg)
	c.config = awsCfg
	c.region = awsCfg.Region

	c.logger.DebugContext(ctx, "s3 client created",
		"region", c.region,
		"endpoint", cfg.Endpoint,
		"path_style", cfg.ForcePathStyle,
	)
	return c, nil
}

// NewWithClient creates a Client around an existing S3 API implementation.
// No credentials are resolved; this is primarily used with mocked clients.
func NewWithClient(api s3api.API, opts ...s3types.Option) *Client {
	cfg := newClientConfig(opts)
	c := build(api, cfg)
	c.region = cfg.Region
	if c.region == "" {
		c.region = DefaultRegion
	}
	c.config = aws.Config{Region: c.region}
	return c
}

// Region returns the region the client was configured with.
func (c *Client) Region() string {
	return c.region
}

// AWSConfig returns a copy of the resolved AWS configuration.
func (c *Client) AWSConfig() aws.Config {
	return c.config.Copy()
}

func newClientConfig(opts []s3types.Option) *s3types.ClientConfig {
	cfg := &s3types.ClientConfig{
		CredentialSource: s3types.CredentialSourceAuto,
		MaxRetries:       DefaultMaxRetries,
		PartSize:         DefaultPartSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = osfs.New("/")
	}
	return cfg
}

func build(api s3api.API, cfg *s3types.ClientConfig) *Client {
	return &Client{
		api:    api,
		logger: cfg.Logger,
		fs:     cfg.Filesystem,
		uploader: upload.New(api,
			upload.WithPartSize(cfg.PartSize),
			upload.WithLogger(cfg.Logger),
		),
		downloader: download.New(api),
		lister:     list.New(api, cfg.PageSize),
	}
}

func loadAWSConfig(ctx context.Context, cfg *s3types.ClientConfig) (aws.Config, error) {
	creds, err := credsource.New(cfg.Logger).Resolve(ctx, cfg)
	if err != nil {
		return aws.Config{}, err
	}

	loadOpts := creds.LoadOptions
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.MaxRetries > 0 {
		loadOpts = append(loadOpts, config.WithRetryMaxAttempts(cfg.MaxRetries))
	}
	switch {
	case cfg.CustomHTTPClient != nil:
		loadOpts = append(loadOpts, config.WithHTTPClient(cfg.CustomHTTPClient))
	case cfg.Timeout > 0:
		loadOpts = append(loadOpts, config.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(cfg.Timeout)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, errors.NewError("newClient", err).WithMessage("failed to load AWS config")
	}
	return awsCfg, nil
}
