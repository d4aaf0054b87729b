package s3conn

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/s3types"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/table"
)

// Fetch returns the full body of an object. An empty object yields an empty,
// non-nil slice; a failure never yields a nil error.
//
// WARNING: This method loads the entire object into memory. Use Download to
// stream large objects.
//
// Errors:
//   - ErrBucketNotFound: If the bucket does not exist
//   - ErrObjectNotFound: If there is no object under key
//   - ErrAccessDenied, ErrConnection, ErrTimeout: As reported by S3
func (c *Client) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := c.prepareFetch(ctx, "fetch", bucket, key); err != nil {
		return nil, err
	}

	data, _, err := c.downloader.Get(ctx, bucket, key)
	if err != nil {
		c.logFetchFailure(ctx, "fetch", bucket, key, err)
		return nil, err
	}
	return data, nil
}

// FetchTable reads a CSV object into a table. The first record is the header
// and every cell is kept as text; no type inference is done.
//
// Errors are those of Fetch, plus ErrSerialization when the object is not
// valid CSV or has no header row.
func (c *Client) FetchTable(ctx context.Context, bucket, key string) (*table.Table, error) {
	data, err := c.Fetch(ctx, bucket, key)
	if err != nil {
		return nil, err
	}

	t, err := table.UnmarshalCSV(data)
	if err != nil {
		err = errors.NewObjectError("fetchTable", bucket, key, fmt.Errorf("%w: %w", errors.ErrSerialization, err))
		c.logFetchFailure(ctx, "fetchTable", bucket, key, err)
		return nil, err
	}
	return t, nil
}

// Download streams an object body to w.
func (c *Client) Download(ctx context.Context, bucket, key string, w io.Writer) (*s3types.DownloadResult, error) {
	if w == nil {
		return nil, errors.NewObjectError("download", bucket, key, errors.ErrInvalidInput).
			WithMessage("writer cannot be nil")
	}
	if err := c.prepareFetch(ctx, "download", bucket, key); err != nil {
		return nil, err
	}

	result, err := c.downloader.Download(ctx, bucket, key, w)
	if err != nil {
		c.logFetchFailure(ctx, "download", bucket, key, err)
		return nil, err
	}
	return result, nil
}

// DownloadFile writes an object to localPath on the client filesystem, creating
// parent directories as needed. A partially written file is removed on failure.
func (c *Client) DownloadFile(ctx context.Context, bucket, key, localPath string) (*s3types.DownloadResult, error) {
	if localPath == "" {
		return nil, errors.NewObjectError("downloadFile", bucket, key, errors.ErrInvalidInput).
			WithMessage("local path cannot be empty")
	}
	if err := c.prepareFetch(ctx, "downloadFile", bucket, key); err != nil {
		return nil, err
	}

	if dir := filepath.Dir(localPath); dir != "." && dir != "/" {
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.NewObjectError("downloadFile", bucket, key, err).
				WithMessage("failed to create parent directory")
		}
	}

	file, err := c.fs.Create(localPath)
	if err != nil {
		return nil, errors.NewObjectError("downloadFile", bucket, key, err).WithMessage("failed to create file")
	}

	result, err := c.downloader.Download(ctx, bucket, key, file)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = errors.NewObjectError("downloadFile", bucket, key, closeErr).WithMessage("failed to close file")
	}
	if err != nil {
		_ = c.fs.Remove(localPath)
		c.logFetchFailure(ctx, "downloadFile", bucket, key, err)
		return nil, err
	}
	return result, nil
}

// prepareFetch validates the object address and checks that the bucket exists.
func (c *Client) prepareFetch(ctx context.Context, op, bucket, key string) error {
	if err := validation.RequireBucket(bucket); err != nil {
		return err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return err
	}
	return c.requireBucket(ctx, op, bucket, key)
}

func (c *Client) logFetchFailure(ctx context.Context, op, bucket, key string, err error) {
	c.logger.ErrorContext(ctx, "fetch failed",
		"op", op,
		"bucket", bucket,
		"key", key,
		"error", err,
	)
}
