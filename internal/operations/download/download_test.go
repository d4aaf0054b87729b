package download

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/internal/testutil"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset by peer") }

func TestDownloader_Get(t *testing.T) {
	tests := []struct {
		name     string
		setup    func() *testutil.MockS3Client
		want     []byte
		wantType string
		wantErr  error
	}{
		{
			name: "returns body",
			setup: func() *testutil.MockS3Client {
				return testutil.NewMockBuilder().WithGetObject(
					func(_ context.Context, in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
						assert.Equal(t, "test-bucket", aws.ToString(in.Bucket))
						assert.Equal(t, "a/x.csv", aws.ToString(in.Key))
						return testutil.CreateGetObjectOutput([]byte("id\n1\n"), "text/csv"), nil
					}).Build()
			},
			want:     []byte("id\n1\n"),
			wantType: "text/csv",
		},
		{
			name: "empty object is an empty slice",
			setup: func() *testutil.MockS3Client {
				return &testutil.MockS3Client{}
			},
			want: []byte{},
		},
		{
			name: "missing key",
			setup: func() *testutil.MockS3Client {
				return testutil.NewMockBuilder().WithObjectNotFound().Build()
			},
			wantErr: s3errors.ErrObjectNotFound,
		},
		{
			name: "access denied",
			setup: func() *testutil.MockS3Client {
				return testutil.NewMockBuilder().WithAccessDenied().Build()
			},
			wantErr: s3errors.ErrAccessDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, result, err := New(tt.setup()).Get(context.Background(), "test-bucket", "a/x.csv")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, data)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, data)
			assert.Equal(t, tt.want, data)
			assert.Equal(t, int64(len(tt.want)), result.Size)
			assert.Equal(t, tt.wantType, result.ContentType)
		})
	}
}

func TestDownloader_Download_BodyReadFailure(t *testing.T) {
	mock := testutil.NewMockBuilder().WithGetObject(
		func(context.Context, *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			return &s3.GetObjectOutput{Body: io.NopCloser(failingReader{})}, nil
		}).Build()

	var buf bytes.Buffer
	_, err := New(mock).Download(context.Background(), "b", "k", &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read object body")
}

func TestDownloader_Download_FromFake(t *testing.T) {
	fake := testutil.NewFakeS3()
	fake.PutString("data", "notes/readme.txt", "héllo wörld")

	var buf bytes.Buffer
	result, err := New(fake).Download(context.Background(), "data", "notes/readme.txt", &buf)
	require.NoError(t, err)
	assert.Equal(t, "héllo wörld", buf.String())
	assert.Equal(t, int64(buf.Len()), result.Size)

	_, err = New(fake).Download(context.Background(), "missing", "notes/readme.txt", &buf)
	assert.ErrorIs(t, err, s3errors.ErrBucketNotFound)
}
