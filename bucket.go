package s3conn

import (
	"context"
	stderrors "errors"
	"iter"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/s3types"
)

// BucketExists reports whether a bucket with the given name is visible to the
// client's credentials. It pages through the full bucket listing on every call;
// the answer is never cached.
func (c *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	if err := validation.RequireBucket(bucket); err != nil {
		return false, err
	}

	for name, err := range c.lister.Buckets(ctx) {
		if err != nil {
			return false, errors.NewBucketError("bucketExists", bucket, err)
		}
		if name == bucket {
			return true, nil
		}
	}
	return false, nil
}

// ListBuckets yields the name of every bucket visible to the client's credentials.
// Pages are fetched as the caller consumes the sequence.
func (c *Client) ListBuckets(ctx context.Context) iter.Seq2[string, error] {
	return c.lister.Buckets(ctx)
}

// CreateBucket creates a bucket unless one with that name already exists.
//
// It returns true when a bucket was created and false when it already existed;
// in that case no create request is sent. The bucket is created in the region
// given with WithBucketRegion, or else the client region. us-east-1 is sent
// without a location constraint, which S3 requires.
//
// Errors:
//   - ErrInvalidBucketName: If the name does not follow the S3 naming rules
//   - ErrBucketAlreadyExists: If another account owns the name
//   - ErrAccessDenied: If the credentials lack permission to create buckets
//
// Example:
//
//	created, err := client.CreateBucket(ctx, "reports", s3conn.WithBucketRegion("eu-west-1"))
func (c *Client) CreateBucket(ctx context.Context, bucket string, opts ...s3types.BucketOption) (bool, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return false, err
	}

	exists, err := c.BucketExists(ctx, bucket)
	if err != nil {
		return false, err
	}
	if exists {
		c.logger.InfoContext(ctx, "bucket already exists", "bucket", bucket)
		return false, nil
	}

	config := &s3types.BucketOptionConfig{Region: c.region}
	for _, opt := range opts {
		opt(config)
	}

	input := &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	}
	if config.Region != "" && config.Region != DefaultRegion {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(config.Region),
		}
	}

	if _, err := c.api.CreateBucket(ctx, input); err != nil {
		// Lost a race with another creator using the same credentials.
		var owned *types.BucketAlreadyOwnedByYou
		if stderrors.As(err, &owned) || errors.APICode(err) == "BucketAlreadyOwnedByYou" {
			c.logger.InfoContext(ctx, "bucket already exists", "bucket", bucket)
			return false, nil
		}
		c.logger.ErrorContext(ctx, "failed to create bucket", "bucket", bucket, "error", err)
		return false, errors.NewBucketError("createBucket", bucket, errors.Classify(err))
	}

	c.logger.InfoContext(ctx, "bucket created", "bucket", bucket, "region", config.Region)
	return true, nil
}

// requireBucket fails with ErrBucketNotFound when bucket is not visible.
func (c *Client) requireBucket(ctx context.Context, op, bucket, key string) error {
	exists, err := c.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		c.logger.WarnContext(ctx, "bucket does not exist", "op", op, "bucket", bucket, "key", key)
		return errors.NewObjectError(op, bucket, key, errors.ErrBucketNotFound)
	}
	return nil
}
