// Package upload handles S3 object upload operations.
//
// Payloads of known length go out as one PutObject. Streams of unknown length
// are handed to the SDK transfer manager, which switches to a multipart upload
// once a stream outgrows a single part. Encoded payloads such as CSV tables are
// streamed first and, if that attempt fails, materialised and sent once more as
// a buffered PutObject.
package upload

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/s3types"
)

// errUploadEnded unblocks an encoder whose stream is no longer being read.
var errUploadEnded = stderrors.New("upload ended before the payload was fully written")

// EncodeFunc writes a payload to w.
type EncodeFunc func(w io.Writer) error

// Request describes the object being written.
type Request struct {
	Bucket      string
	Key         string
	ContentType string
	Metadata    map[string]string
}

// Uploader performs buffered and streamed uploads.
type Uploader struct {
	api      s3api.API
	streamer *manager.Uploader
	logger   *slog.Logger
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithPartSize sets the part size used by streamed uploads. Values below the
// S3 minimum are ignored.
func WithPartSize(size int64) Option {
	return func(u *Uploader) {
		if size >= manager.MinUploadPartSize {
			u.streamer.PartSize = size
		}
	}
}

// WithLogger sets the logger used to report the buffered fallback.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Uploader) {
		u.logger = logger
	}
}

// New creates a new Uploader.
func New(api s3api.API, opts ...Option) *Uploader {
	u := &Uploader{
		api:      api,
		streamer: manager.NewUploader(api),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Put writes data with a single PutObject carrying its content length.
func (u *Uploader) Put(ctx context.Context, req Request, data []byte) (*s3types.UploadResult, error) {
	start := time.Now()
	size := int64(len(data))

	output, err := u.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(req.Bucket),
		Key:           aws.String(req.Key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(size),
		ContentType:   optional(req.ContentType),
		Metadata:      req.Metadata,
	})
	if err != nil {
		return nil, errors.NewObjectError("put", req.Bucket, req.Key, errors.Classify(err))
	}

	return &s3types.UploadResult{
		Bucket:      req.Bucket,
		Key:         req.Key,
		Size:        size,
		ContentType: req.ContentType,
		ETag:        aws.ToString(output.ETag),
		VersionID:   aws.ToString(output.VersionId),
		Duration:    time.Since(start),
	}, nil
}

// Stream writes everything read from r through the transfer manager.
func (u *Uploader) Stream(ctx context.Context, req Request, r io.Reader) (*s3types.UploadResult, error) {
	start := time.Now()
	counter := &countingReader{r: r}

	output, err := u.streamer.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(req.Bucket),
		Key:         aws.String(req.Key),
		Body:        counter,
		ContentType: optional(req.ContentType),
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, errors.NewObjectError("stream", req.Bucket, req.Key, errors.Classify(err))
	}

	return &s3types.UploadResult{
		Bucket:      req.Bucket,
		Key:         req.Key,
		Size:        counter.n,
		ContentType: req.ContentType,
		ETag:        aws.ToString(output.ETag),
		VersionID:   aws.ToString(output.VersionID),
		Duration:    time.Since(start),
	}, nil
}

// StreamEncoded runs encode in its own goroutine and streams its output.
// The goroutine has always returned by the time StreamEncoded does.
func (u *Uploader) StreamEncoded(ctx context.Context, req Request, encode EncodeFunc) (*s3types.UploadResult, error) {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := encode(pw)
		_ = pw.CloseWithError(err)
		done <- err
	}()

	result, err := u.Stream(ctx, req, pr)
	_ = pr.CloseWithError(errUploadEnded)
	encErr := <-done

	if encErr != nil && !stderrors.Is(encErr, errUploadEnded) {
		return nil, errors.NewObjectError("encode", req.Bucket, req.Key, serialization(encErr))
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PutEncoded materialises the encoder output and writes it with Put.
func (u *Uploader) PutEncoded(ctx context.Context, req Request, encode EncodeFunc) (*s3types.UploadResult, error) {
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		return nil, errors.NewObjectError("encode", req.Bucket, req.Key, serialization(err))
	}
	return u.Put(ctx, req, buf.Bytes())
}

// UploadEncoded makes at most two attempts: a streamed upload, then a buffered
// PutObject if the stream failed. Cancellation of ctx is never retried.
func (u *Uploader) UploadEncoded(ctx context.Context, req Request, encode EncodeFunc) (*s3types.UploadResult, error) {
	result, err := u.StreamEncoded(ctx, req, encode)
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	u.logger.Warn("streamed upload failed, retrying with buffered put",
		"op", "upload",
		"bucket", req.Bucket,
		"key", req.Key,
		"error", err,
	)

	result, err = u.PutEncoded(ctx, req, encode)
	if err != nil {
		return nil, err
	}
	result.Fallback = true
	return result, nil
}

func serialization(err error) error {
	return fmt.Errorf("%w: %w", errors.ErrSerialization, err)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err //nolint:wrapcheck // io.Reader contract
}
