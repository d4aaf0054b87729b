// Package download handles S3 object download operations.
// Objects are either read fully into memory or streamed to an io.Writer.
package download

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/s3types"
)

// Downloader handles S3 download operations.
type Downloader struct {
	api s3api.API
}

// New creates a new Downloader instance.
func New(api s3api.API) *Downloader {
	return &Downloader{
		api: api,
	}
}

// Get reads the whole object body into memory. An empty object yields an
// empty, non-nil slice.
func (d *Downloader) Get(ctx context.Context, bucket, key string) ([]byte, *s3types.DownloadResult, error) {
	var buf bytes.Buffer
	result, err := d.Download(ctx, bucket, key, &buf)
	if err != nil {
		return nil, nil, err
	}
	data := buf.Bytes()
	if data == nil {
		data = []byte{}
	}
	return data, result, nil
}

// Download streams the object body to w.
func (d *Downloader) Download(
	ctx context.Context,
	bucket, key string,
	w io.Writer,
) (*s3types.DownloadResult, error) {
	start := time.Now()

	output, err := d.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.NewObjectError("download", bucket, key, errors.Classify(err))
	}
	if output.Body == nil {
		output.Body = http.NoBody
	}
	defer output.Body.Close()

	if buf, ok := w.(*bytes.Buffer); ok && output.ContentLength != nil && *output.ContentLength > 0 {
		buf.Grow(int(*output.ContentLength))
	}

	n, err := io.Copy(w, output.Body)
	if err != nil {
		return nil, errors.NewObjectError("download", bucket, key, errors.Classify(err)).
			WithMessage("failed to read object body")
	}

	return &s3types.DownloadResult{
		Key:         key,
		Size:        n,
		ContentType: aws.ToString(output.ContentType),
		ETag:        aws.ToString(output.ETag),
		Duration:    time.Since(start),
	}, nil
}
