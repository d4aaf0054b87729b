package testutil

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockS3Client(t *testing.T) {
	t.Run("PutObject with custom function", func(t *testing.T) {
		mock := &MockS3Client{
			PutObjectFunc: func(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
				assert.Equal(t, "test-bucket", *params.Bucket)
				assert.Equal(t, "test-key", *params.Key)
				return &s3.PutObjectOutput{ETag: StringPtr("test-etag")}, nil
			},
		}

		output, err := mock.PutObject(context.Background(), &s3.PutObjectInput{
			Bucket: StringPtr("test-bucket"),
			Key:    StringPtr("test-key"),
		})
		require.NoError(t, err)
		assert.Equal(t, "test-etag", *output.ETag)
	})

	t.Run("returns default when no function set", func(t *testing.T) {
		mock := &MockS3Client{}
		output, err := mock.ListBuckets(context.Background(), &s3.ListBucketsInput{})
		require.NoError(t, err)
		assert.NotNil(t, output)
	})
}

func TestMockBuilder(t *testing.T) {
	mock := NewMockBuilder().WithBuckets("a", "b").WithObjectNotFound().Build()

	out, err := mock.ListBuckets(context.Background(), &s3.ListBucketsInput{})
	require.NoError(t, err)
	require.Len(t, out.Buckets, 2)
	assert.Equal(t, "b", *out.Buckets[1].Name)

	_, err = mock.GetObject(context.Background(), &s3.GetObjectInput{})
	var nsk *types.NoSuchKey
	assert.ErrorAs(t, err, &nsk)
}

func TestFakeS3_ObjectsRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := NewFakeS3("data")

	_, err := fake.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      StringPtr("data"),
		Key:         StringPtr("a/x.csv"),
		Body:        strings.NewReader("id\n1\n"),
		ContentType: StringPtr("text/csv"),
	})
	require.NoError(t, err)

	out, err := fake.GetObject(ctx, &s3.GetObjectInput{Bucket: StringPtr("data"), Key: StringPtr("a/x.csv")})
	require.NoError(t, err)
	body, err := io.ReadAll(out.Body)
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n", string(body))
	assert.Equal(t, "text/csv", *out.ContentType)

	_, err = fake.GetObject(ctx, &s3.GetObjectInput{Bucket: StringPtr("data"), Key: StringPtr("missing")})
	var nsk *types.NoSuchKey
	assert.ErrorAs(t, err, &nsk)

	_, err = fake.GetObject(ctx, &s3.GetObjectInput{Bucket: StringPtr("nope"), Key: StringPtr("k")})
	var nsb *types.NoSuchBucket
	assert.ErrorAs(t, err, &nsb)
}

func TestFakeS3_ListObjectsV2(t *testing.T) {
	ctx := context.Background()
	fake := NewFakeS3()
	for _, key := range []string{"a/x.csv", "a/y.csv", "a/deep/z.csv", "b/z.csv", "top.txt"} {
		fake.PutString("data", key, key)
	}
	fake.PageSize = 2

	var keys, dirs []string
	var token *string
	pages := 0
	for {
		out, err := fake.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            StringPtr("data"),
			Prefix:            StringPtr("a/"),
			Delimiter:         StringPtr("/"),
			ContinuationToken: token,
		})
		require.NoError(t, err)
		pages++
		for _, obj := range out.Contents {
			keys = append(keys, *obj.Key)
		}
		for _, cp := range out.CommonPrefixes {
			dirs = append(dirs, *cp.Prefix)
		}
		if !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}

	assert.Equal(t, 2, pages)
	assert.Equal(t, []string{"a/x.csv", "a/y.csv"}, keys)
	assert.Equal(t, []string{"a/deep/"}, dirs)
}

func TestFakeS3_EmptyListingOmitsContents(t *testing.T) {
	fake := NewFakeS3("data")
	out, err := fake.ListObjectsV2(context.Background(), &s3.ListObjectsV2Input{
		Bucket: StringPtr("data"),
		Prefix: StringPtr("none/"),
	})
	require.NoError(t, err)
	assert.Nil(t, out.Contents)
	assert.Nil(t, out.CommonPrefixes)
	assert.False(t, *out.IsTruncated)
}

func TestFakeS3_ListBucketsPaginates(t *testing.T) {
	fake := NewFakeS3("c", "a", "b")
	fake.PageSize = 2

	first, err := fake.ListBuckets(context.Background(), &s3.ListBucketsInput{})
	require.NoError(t, err)
	require.Len(t, first.Buckets, 2)
	require.NotNil(t, first.ContinuationToken)

	second, err := fake.ListBuckets(context.Background(), &s3.ListBucketsInput{ContinuationToken: first.ContinuationToken})
	require.NoError(t, err)
	require.Len(t, second.Buckets, 1)
	assert.Equal(t, "c", *second.Buckets[0].Name)
	assert.Nil(t, second.ContinuationToken)
}

func TestFakeS3_CreateBucketAndFailures(t *testing.T) {
	ctx := context.Background()
	fake := NewFakeS3()

	_, err := fake.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: StringPtr("new"),
		CreateBucketConfiguration: &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraintEuWest1,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", fake.BucketRegion("new"))

	_, err = fake.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: StringPtr("new")})
	var owned *types.BucketAlreadyOwnedByYou
	assert.ErrorAs(t, err, &owned)
	assert.Equal(t, 2, fake.Calls("CreateBucket"))

	fake.FailWrites(1, nil)
	_, err = fake.PutObject(ctx, &s3.PutObjectInput{Bucket: StringPtr("new"), Key: StringPtr("k"), Body: strings.NewReader("x")})
	assert.True(t, errors.Is(err, ErrInjected))

	_, err = fake.PutObject(ctx, &s3.PutObjectInput{Bucket: StringPtr("new"), Key: StringPtr("k"), Body: strings.NewReader("x")})
	require.NoError(t, err)
	obj, ok := fake.Object("new", "k")
	require.True(t, ok)
	assert.Equal(t, []byte("x"), obj.Body)
}

func TestFakeS3_Multipart(t *testing.T) {
	ctx := context.Background()
	fake := NewFakeS3("data")

	created, err := fake.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: StringPtr("data"),
		Key:    StringPtr("big.bin"),
	})
	require.NoError(t, err)

	for i, part := range []string{"hello ", "world"} {
		_, err := fake.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:     StringPtr("data"),
			Key:        StringPtr("big.bin"),
			UploadId:   created.UploadId,
			PartNumber: Int32Ptr(int32(i + 1)),
			Body:       strings.NewReader(part),
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fake.PendingUploads())

	_, err = fake.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   StringPtr("data"),
		Key:      StringPtr("big.bin"),
		UploadId: created.UploadId,
		MultipartUpload: &types.CompletedMultipartUpload{Parts: []types.CompletedPart{
			{PartNumber: Int32Ptr(2)},
			{PartNumber: Int32Ptr(1)},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, fake.PendingUploads())

	obj, ok := fake.Object("data", "big.bin")
	require.True(t, ok)
	assert.Equal(t, "hello world", string(obj.Body))
}

func TestLogRecorder(t *testing.T) {
	logger, rec := NewLogger()
	logger.With("op", "upload").Info("object uploaded", "bucket", "data")

	entry, ok := rec.Find("object uploaded")
	require.True(t, ok)
	assert.Equal(t, "upload", entry.Attrs["op"])
	assert.Equal(t, "data", entry.Attrs["bucket"])
}
