package s3conn

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/s3types"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/table"
)

type version struct{ major, minor int }

func (v version) String() string { return fmt.Sprintf("v%d.%d", v.major, v.minor) }

func TestClient_Upload_TableRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		rows    [][]any
	}{
		{
			name:    "mixed scalar types",
			columns: []string{"id", "score", "active", "note"},
			rows: [][]any{
				{1, 9.5, true, "first"},
				{2, -0.25, false, nil},
				{int64(1 << 40), 1e21, true, ""},
			},
		},
		{
			name:    "text needing quotes",
			columns: []string{"name", "comment"},
			rows: [][]any{
				{"Smith, Jane", `she said "hi"`},
				{"multi\nline", "tab\tseparated"},
				{"ünïcödé ✓", " padded "},
			},
		},
		{
			name:    "leading zeros stay text",
			columns: []string{"zip", "code"},
			rows: [][]any{
				{"00501", "007"},
				{"02134", "1e3"},
			},
		},
		{
			name:    "header only",
			columns: []string{"a", "b"},
		},
		{
			name:    "single column with empty cells",
			columns: []string{"note"},
			rows:    [][]any{{"a"}, {nil}, {"b"}, {""}},
		},
		{
			name:    "carriage return line feed inside cell",
			columns: []string{"text", "other"},
			rows:    [][]any{{"x\r\ny", "z"}},
		},
		{
			name:    "stringer values",
			columns: []string{"release", "previous"},
			rows: [][]any{
				{version{1, 2}, version{1, 1}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeS3("data")
			client := NewWithClient(fake)

			src, err := table.FromValues(tt.columns, tt.rows)
			require.NoError(t, err)

			result, err := client.Upload(context.Background(), "data", "tables/", "t.csv", src)
			require.NoError(t, err)
			assert.Equal(t, "tables/t.csv", result.Key)
			assert.False(t, result.Fallback)

			got, err := client.FetchTable(context.Background(), "data", "tables/t.csv")
			require.NoError(t, err)
			assert.Equal(t, tt.columns, got.Columns)
			require.Len(t, got.Rows, len(tt.rows))
			for i, row := range tt.rows {
				for j, v := range row {
					assert.Equal(t, table.Format(v), got.Rows[i][j], "row %d column %d", i, j)
				}
			}

			obj, ok := fake.Object("data", "tables/t.csv")
			require.True(t, ok)
			assert.Equal(t, CSVContentType, obj.ContentType)
		})
	}
}

func TestClient_Upload_TableValue(t *testing.T) {
	fake := testutil.NewFakeS3("data")
	src, err := table.New([]string{"k"}, []string{"v"})
	require.NoError(t, err)

	_, err = NewWithClient(fake).Upload(context.Background(), "data", "", "plain.csv", *src)
	require.NoError(t, err)

	obj, ok := fake.Object("data", "plain.csv")
	require.True(t, ok)
	assert.Equal(t, "k\nv\n", string(obj.Body))
}

func TestClient_Upload_TableFallback(t *testing.T) {
	tests := []struct {
		name         string
		failures     int
		wantErr      bool
		wantFallback bool
		wantPuts     int
	}{
		{name: "stream succeeds", failures: 0, wantPuts: 1},
		{name: "stream fails, buffered put succeeds", failures: 1, wantFallback: true, wantPuts: 2},
		{name: "both attempts fail", failures: 2, wantErr: true, wantPuts: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeS3("data")
			fake.FailWrites(tt.failures, nil)
			logger, logs := testutil.NewLogger()
			client := NewWithClient(fake, WithLogger(logger))

			src, err := table.New([]string{"id", "name"}, []string{"1", "ada"}, []string{"2", "grace"})
			require.NoError(t, err)

			result, err := client.UploadTable(context.Background(), "data", "out/", "people.csv", src)
			assert.Equal(t, tt.wantPuts, fake.Calls("PutObject"))

			_, warned := logs.Find("streamed upload failed, retrying with buffered put")
			assert.Equal(t, tt.failures > 0, warned)

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, result)
				assert.ErrorIs(t, err, testutil.ErrInjected)
				_, stored := fake.Object("data", "out/people.csv")
				assert.False(t, stored)
				_, logged := logs.Find("upload failed")
				assert.True(t, logged)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantFallback, result.Fallback)
			obj, ok := fake.Object("data", "out/people.csv")
			require.True(t, ok)
			assert.Equal(t, "id,name\n1,ada\n2,grace\n", string(obj.Body))

			entry, ok := logs.Find("object uploaded")
			require.True(t, ok)
			assert.Equal(t, fmt.Sprint(tt.wantFallback), entry.Attrs["fallback"])
		})
	}
}

func TestClient_Upload_TextRoundTrip(t *testing.T) {
	texts := []string{
		"hello world",
		"",
		"línea uno\nlínea dos\n",
		"emoji 🚀 and CJK 漢字",
		"\ufeffstarts with a BOM",
		"windows\r\nline endings\r\n",
	}

	for i, text := range texts {
		t.Run(fmt.Sprintf("text %d", i), func(t *testing.T) {
			fake := testutil.NewFakeS3("data")
			client := NewWithClient(fake)

			result, err := client.Upload(context.Background(), "data", "notes/", "n.txt", text)
			require.NoError(t, err)
			assert.Equal(t, int64(len(text)), result.Size)

			got, err := client.Fetch(context.Background(), "data", "notes/n.txt")
			require.NoError(t, err)
			assert.Equal(t, []byte(text), got)
		})
	}
}

func TestClient_Upload_PayloadKinds(t *testing.T) {
	tests := []struct {
		name     string
		data     any
		wantBody string
	}{
		{name: "bytes", data: []byte{0x00, 0x01, 0xff}, wantBody: "\x00\x01\xff"},
		{name: "stringer", data: version{2, 0}, wantBody: "v2.0"},
		{name: "reader", data: strings.NewReader("streamed body"), wantBody: "streamed body"},
		{name: "buffer is read as a stream", data: bytes.NewBufferString("buffered"), wantBody: "buffered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeS3("data")
			_, err := NewWithClient(fake).Upload(context.Background(), "data", "p/", "obj", tt.data)
			require.NoError(t, err)

			obj, ok := fake.Object("data", "p/obj")
			require.True(t, ok)
			assert.Equal(t, tt.wantBody, string(obj.Body))
		})
	}
}

func TestClient_Upload_TextIsNotRetried(t *testing.T) {
	fake := testutil.NewFakeS3("data")
	fake.FailWrites(1, nil)

	_, err := NewWithClient(fake).Upload(context.Background(), "data", "", "a.txt", "payload")
	assert.ErrorIs(t, err, testutil.ErrInjected)
	assert.Equal(t, 1, fake.Calls("PutObject"))
}

func TestClient_Upload_InvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		prefix   string
		fileName string
		data     any
		opts     []s3types.UploadOption
		wantErr  error
	}{
		{name: "nil payload", bucket: "data", fileName: "x", data: nil, wantErr: s3errors.ErrInvalidInput},
		{name: "nil table", bucket: "data", fileName: "x", data: (*table.Table)(nil), wantErr: s3errors.ErrInvalidInput},
		{name: "unsupported payload", bucket: "data", fileName: "x", data: 42, wantErr: s3errors.ErrInvalidInput},
		{name: "empty bucket", bucket: "", fileName: "x", data: "x", wantErr: s3errors.ErrInvalidInput},
		{name: "empty key", bucket: "data", data: "x", wantErr: s3errors.ErrInvalidObjectKey},
		{name: "control character in key", bucket: "data", prefix: "a/", fileName: "b\x00", data: "x", wantErr: s3errors.ErrInvalidObjectKey},
		{
			name: "bad content type", bucket: "data", fileName: "x", data: "x",
			opts:    []s3types.UploadOption{WithContentType("not a type")},
			wantErr: s3errors.ErrInvalidInput,
		},
		{
			name: "reserved metadata key", bucket: "data", fileName: "x", data: "x",
			opts:    []s3types.UploadOption{WithMetadata(map[string]string{"x-amz-meta-owner": "me"})},
			wantErr: s3errors.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeS3("data")
			result, err := NewWithClient(fake).Upload(context.Background(), tt.bucket, tt.prefix, tt.fileName, tt.data, tt.opts...)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, s3errors.IsInvalidInput(err))
			assert.Zero(t, fake.Calls("PutObject"))
		})
	}
}

func TestClient_Upload_MissingBucket(t *testing.T) {
	fake := testutil.NewFakeS3("other")
	logger, logs := testutil.NewLogger()
	client := NewWithClient(fake, WithLogger(logger))

	src, err := table.New([]string{"a"}, []string{"1"})
	require.NoError(t, err)

	for _, data := range []any{"text", src, strings.NewReader("stream")} {
		result, err := client.Upload(context.Background(), "missing", "p/", "f", data)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, s3errors.ErrBucketNotFound)
		assert.Equal(t, s3errors.CodeNotFound, s3errors.CodeOf(err))
	}
	assert.Zero(t, fake.Calls("PutObject"))
	assert.Zero(t, fake.Calls("CreateMultipartUpload"))

	entry, ok := logs.Find("bucket does not exist")
	require.True(t, ok)
	assert.Equal(t, "missing", entry.Attrs["bucket"])
	assert.Equal(t, "p/f", entry.Attrs["key"])
}

func TestClient_Upload_ContentType(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		data     any
		opts     []s3types.UploadOption
		want     string
	}{
		{name: "by extension", fileName: "config.json", data: `{"a":1}`, want: "application/json"},
		{name: "sniffed text", fileName: "README", data: "plain words", want: "text/plain; charset=utf-8"},
		{name: "sniffed stream", fileName: "page", data: strings.NewReader("<html><body>hi</body></html>"), want: "text/html; charset=utf-8"},
		{name: "empty payload", fileName: "empty", data: "", want: DefaultContentType},
		{
			name: "explicit wins", fileName: "config.json", data: "{}",
			opts: []s3types.UploadOption{WithContentType("application/vnd.custom+json")},
			want: "application/vnd.custom+json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeS3("data")
			result, err := NewWithClient(fake).Upload(context.Background(), "data", "", tt.fileName, tt.data, tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.ContentType)

			obj, ok := fake.Object("data", tt.fileName)
			require.True(t, ok)
			assert.Equal(t, tt.want, obj.ContentType)
		})
	}
}

func TestClient_Upload_Metadata(t *testing.T) {
	fake := testutil.NewFakeS3("data")
	_, err := NewWithClient(fake).UploadText(context.Background(), "data", "m/", "a.txt", "x",
		WithMetadata(map[string]string{"owner": "etl", "run": "7"}))
	require.NoError(t, err)

	obj, ok := fake.Object("data", "m/a.txt")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"owner": "etl", "run": "7"}, obj.Metadata)
}

func TestClient_UploadFile(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "/in/data.json", []byte(`{"ok":true}`), 0o644))
	require.NoError(t, fs.MkdirAll("/in/dir", 0o755))

	fake := testutil.NewFakeS3("data")
	client := NewWithClient(fake, WithFilesystem(fs))

	t.Run("uploads file contents", func(t *testing.T) {
		result, err := client.UploadFile(context.Background(), "data", "raw/", "data", "/in/data.json")
		require.NoError(t, err)
		assert.Equal(t, int64(len(`{"ok":true}`)), result.Size)
		assert.Equal(t, "application/json", result.ContentType)

		obj, ok := fake.Object("data", "raw/data")
		require.True(t, ok)
		assert.Equal(t, `{"ok":true}`, string(obj.Body))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := client.UploadFile(context.Background(), "data", "raw/", "x", "/in/missing.json")
		require.Error(t, err)
		var s3Err *s3errors.Error
		require.ErrorAs(t, err, &s3Err)
		assert.Equal(t, "raw/x", s3Err.Key)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := client.UploadFile(context.Background(), "data", "raw/", "x", "/in/dir")
		assert.ErrorIs(t, err, s3errors.ErrInvalidInput)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := client.UploadFile(context.Background(), "data", "raw/", "x", "")
		assert.ErrorIs(t, err, s3errors.ErrInvalidInput)
	})
}
