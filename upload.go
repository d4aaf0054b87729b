package s3conn

import (
	"context"
	"fmt"
	"io"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/s3types"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/table"
)

// Upload writes data to bucket under the key pathPrefix+fileName. The prefix is
// used verbatim, so a directory-like prefix needs its trailing "/".
//
// The payload kind decides how it is written:
//   - *table.Table or table.Table: encoded as CSV with a header row. The CSV is
//     streamed first; if that fails it is buffered and sent once more with a
//     single PutObject. UploadResult.Fallback reports the second attempt.
//   - string, []byte, fmt.Stringer: written as-is with one PutObject.
//   - io.Reader: streamed, switching to a multipart upload for large streams.
//
// Nothing is written if the bucket does not exist.
//
// Errors:
//   - ErrBucketNotFound: If the bucket does not exist
//   - ErrInvalidInput: If the payload kind is unsupported or an option is invalid
//   - ErrInvalidObjectKey: If the resulting key is invalid
//   - ErrSerialization: If a table cannot be encoded
//   - ErrAccessDenied, ErrConnection, ErrTimeout: As reported by S3
//
// Example:
//
//	t, _ := table.FromValues([]string{"id", "score"}, [][]any{{1, 9.5}, {2, nil}})
//	result, err := client.Upload(ctx, "reports", "2024/", "scores.csv", t)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("Uploaded %s (fallback=%v)\n", result.Key, result.Fallback)
func (c *Client) Upload(
	ctx context.Context,
	bucket, pathPrefix, fileName string,
	data any,
	opts ...s3types.UploadOption,
) (*s3types.UploadResult, error) {
	key := pathPrefix + fileName

	switch v := data.(type) {
	case *table.Table:
		if v == nil {
			return nil, invalidPayload(bucket, key, "table cannot be nil")
		}
		return c.uploadTable(ctx, bucket, key, v, opts)
	case table.Table:
		return c.uploadTable(ctx, bucket, key, &v, opts)
	case string:
		return c.uploadBytes(ctx, bucket, key, []byte(v), opts)
	case []byte:
		return c.uploadBytes(ctx, bucket, key, v, opts)
	case io.Reader:
		return c.uploadStream(ctx, bucket, key, v, opts)
	case fmt.Stringer:
		return c.uploadBytes(ctx, bucket, key, []byte(v.String()), opts)
	case nil:
		return nil, invalidPayload(bucket, key, "data cannot be nil")
	default:
		return nil, invalidPayload(bucket, key, fmt.Sprintf("unsupported payload type %T", data))
	}
}

// UploadTable writes t as CSV to bucket under pathPrefix+fileName.
// See Upload for the fallback behavior.
func (c *Client) UploadTable(
	ctx context.Context,
	bucket, pathPrefix, fileName string,
	t *table.Table,
	opts ...s3types.UploadOption,
) (*s3types.UploadResult, error) {
	if t == nil {
		return nil, invalidPayload(bucket, pathPrefix+fileName, "table cannot be nil")
	}
	return c.uploadTable(ctx, bucket, pathPrefix+fileName, t, opts)
}

// UploadText writes text, as UTF-8 bytes, to bucket under pathPrefix+fileName.
func (c *Client) UploadText(
	ctx context.Context,
	bucket, pathPrefix, fileName, text string,
	opts ...s3types.UploadOption,
) (*s3types.UploadResult, error) {
	return c.uploadBytes(ctx, bucket, pathPrefix+fileName, []byte(text), opts)
}

// UploadFile streams the file at localPath on the client filesystem to bucket
// under pathPrefix+fileName. When no content type is given it is sniffed from
// the file name and contents.
func (c *Client) UploadFile(
	ctx context.Context,
	bucket, pathPrefix, fileName, localPath string,
	opts ...s3types.UploadOption,
) (*s3types.UploadResult, error) {
	key := pathPrefix + fileName
	if localPath == "" {
		return nil, invalidPayload(bucket, key, "local path cannot be empty")
	}

	info, err := c.fs.Stat(localPath)
	if err != nil {
		return nil, errors.NewObjectError("uploadFile", bucket, key, err)
	}
	if info.IsDir() {
		return nil, invalidPayload(bucket, key, "local path points to a directory, not a file")
	}

	file, err := c.fs.Open(localPath)
	if err != nil {
		return nil, errors.NewObjectError("uploadFile", bucket, key, err)
	}
	defer file.Close()

	// The key may carry no extension while the local file does.
	if contentTypeByExtension(key) == "" {
		if ct := contentTypeByExtension(localPath); ct != "" {
			opts = append([]s3types.UploadOption{WithContentType(ct)}, opts...)
		}
	}
	return c.uploadStream(ctx, bucket, key, file, opts)
}

func (c *Client) uploadTable(
	ctx context.Context,
	bucket, key string,
	t *table.Table,
	opts []s3types.UploadOption,
) (*s3types.UploadResult, error) {
	req, err := c.prepareUpload(ctx, bucket, key, opts)
	if err != nil {
		return nil, err
	}
	if req.ContentType == "" {
		req.ContentType = CSVContentType
	}

	result, err := c.uploader.UploadEncoded(ctx, req, t.WriteCSV)
	return c.finishUpload(ctx, req, result, err)
}

func (c *Client) uploadBytes(
	ctx context.Context,
	bucket, key string,
	data []byte,
	opts []s3types.UploadOption,
) (*s3types.UploadResult, error) {
	req, err := c.prepareUpload(ctx, bucket, key, opts)
	if err != nil {
		return nil, err
	}
	if req.ContentType == "" {
		req.ContentType = detectContentType(key, data)
	}

	result, err := c.uploader.Put(ctx, req, data)
	return c.finishUpload(ctx, req, result, err)
}

func (c *Client) uploadStream(
	ctx context.Context,
	bucket, key string,
	r io.Reader,
	opts []s3types.UploadOption,
) (*s3types.UploadResult, error) {
	req, err := c.prepareUpload(ctx, bucket, key, opts)
	if err != nil {
		return nil, err
	}
	if req.ContentType == "" {
		req.ContentType, r, err = sniffReader(key, r)
		if err != nil {
			return nil, errors.NewObjectError("upload", bucket, key, err).WithMessage("failed to read payload")
		}
	}

	result, err := c.uploader.Stream(ctx, req, r)
	return c.finishUpload(ctx, req, result, err)
}

// prepareUpload validates the destination and options and checks that the
// bucket exists.
func (c *Client) prepareUpload(
	ctx context.Context,
	bucket, key string,
	opts []s3types.UploadOption,
) (upload.Request, error) {
	if err := validation.RequireBucket(bucket); err != nil {
		return upload.Request{}, err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return upload.Request{}, err
	}

	config := &s3types.UploadOptionConfig{}
	for _, opt := range opts {
		opt(config)
	}
	if err := validation.ValidateContentType(config.ContentType); err != nil {
		return upload.Request{}, err
	}
	if err := validation.ValidateMetadata(config.Metadata); err != nil {
		return upload.Request{}, err
	}

	if err := c.requireBucket(ctx, "upload", bucket, key); err != nil {
		return upload.Request{}, err
	}

	return upload.Request{
		Bucket:      bucket,
		Key:         key,
		ContentType: config.ContentType,
		Metadata:    config.Metadata,
	}, nil
}

func (c *Client) finishUpload(
	ctx context.Context,
	req upload.Request,
	result *s3types.UploadResult,
	err error,
) (*s3types.UploadResult, error) {
	if err != nil {
		c.logger.ErrorContext(ctx, "upload failed",
			"op", "upload",
			"bucket", req.Bucket,
			"key", req.Key,
			"error", err,
		)
		return nil, err
	}

	c.logger.InfoContext(ctx, "object uploaded",
		"bucket", req.Bucket,
		"key", req.Key,
		"size", result.Size,
		"fallback", result.Fallback,
	)
	return result, nil
}

func invalidPayload(bucket, key, msg string) error {
	return errors.NewObjectError("upload", bucket, key, errors.ErrInvalidInput).WithMessage(msg)
}
