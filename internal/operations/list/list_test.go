package list

import (
	"context"
	"iter"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/internal/testutil"
)

func collect[T any](t *testing.T, seq iter.Seq2[T, error]) []T {
	t.Helper()
	out := []T{}
	for v, err := range seq {
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func newFake(keys ...string) *testutil.FakeS3 {
	fake := testutil.NewFakeS3("data")
	for _, k := range keys {
		fake.PutString("data", k, k)
	}
	return fake
}

func TestLister_Keys(t *testing.T) {
	tests := []struct {
		name     string
		keys     []string
		prefix   string
		pageSize int32
		want     []string
	}{
		{
			name:   "immediate children only",
			keys:   []string{"a/x.csv", "a/y.csv", "b/z.csv"},
			prefix: "a/",
			want:   []string{"x.csv", "y.csv"},
		},
		{
			name:   "nested keys are not children",
			keys:   []string{"a/x.csv", "a/deep/z.csv"},
			prefix: "a/",
			want:   []string{"x.csv"},
		},
		{
			name:   "no match is empty",
			keys:   []string{"a/x.csv"},
			prefix: "missing/",
			want:   []string{},
		},
		{
			name:   "prefix without separator",
			keys:   []string{"report-1.csv", "report-2.csv", "other.csv"},
			prefix: "report-",
			want:   []string{"1.csv", "2.csv"},
		},
		{
			name:     "follows pages",
			keys:     []string{"p/1", "p/2", "p/3", "p/4", "p/5"},
			prefix:   "p/",
			pageSize: 2,
			want:     []string{"1", "2", "3", "4", "5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake(tt.keys...)
			got := collect(t, New(fake, tt.pageSize).Keys(context.Background(), "data", tt.prefix))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLister_Keys_PagesAreFetchedLazily(t *testing.T) {
	fake := newFake("p/1", "p/2", "p/3", "p/4")
	l := New(fake, 2)

	for key, err := range l.Keys(context.Background(), "data", "p/") {
		require.NoError(t, err)
		assert.Equal(t, "1", key)
		break
	}
	assert.Equal(t, 1, fake.Calls("ListObjectsV2"))

	// Ranging again restarts the listing.
	got := collect(t, l.Keys(context.Background(), "data", "p/"))
	assert.Equal(t, []string{"1", "2", "3", "4"}, got)
	assert.Equal(t, 3, fake.Calls("ListObjectsV2"))
}

func TestLister_Keys_EmptyResponseShape(t *testing.T) {
	mock := testutil.NewMockBuilder().WithEmptyBucket().Build()
	got := collect(t, New(mock, 0).Keys(context.Background(), "data", "none/"))
	assert.Empty(t, got)
}

func TestLister_Keys_Error(t *testing.T) {
	fake := newFake()
	var errs []error
	for _, err := range New(fake, 0).Keys(context.Background(), "missing", "a/") {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], s3errors.ErrBucketNotFound)
}

func TestLister_Dirs(t *testing.T) {
	fake := newFake("a/x.csv", "a/2024/q1.csv", "a/2024/q2.csv", "a/2025/q1.csv", "b/z.csv")
	got := collect(t, New(fake, 0).Dirs(context.Background(), "data", "a/"))
	assert.Equal(t, []string{"2024/", "2025/"}, got)
}

func TestLister_Objects(t *testing.T) {
	fake := newFake("a/x.csv", "a/deep/z.csv", "b/z.csv")
	objs := collect(t, New(fake, 1).Objects(context.Background(), "data", "a/"))
	require.Len(t, objs, 2)
	assert.Equal(t, "a/deep/z.csv", objs[0].Key)
	assert.Equal(t, int64(len("a/deep/z.csv")), objs[0].Size)
	assert.Equal(t, "a/x.csv", objs[1].Key)
}

func TestLister_Buckets(t *testing.T) {
	fake := testutil.NewFakeS3("gamma", "alpha", "beta")
	got := collect(t, New(fake, 2).Buckets(context.Background()))
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, got)
	assert.Equal(t, 2, fake.Calls("ListBuckets"))
}

func TestLister_Buckets_Error(t *testing.T) {
	mock := testutil.NewMockBuilder().WithAccessDenied().Build()
	for _, err := range New(mock, 0).Buckets(context.Background()) {
		assert.ErrorIs(t, err, s3errors.ErrAccessDenied)
	}
}

func TestMergePage(t *testing.T) {
	page := &s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("a/b.txt")},
			{Key: aws.String("a/d.txt")},
		},
		CommonPrefixes: []types.CommonPrefix{
			{Prefix: aws.String("a/c/")},
			{Prefix: aws.String("a/e/")},
		},
	}

	entries := mergePage(page)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"a/b.txt", "a/c/", "a/d.txt", "a/e/"}, names)
	assert.True(t, entries[1].Dir)
	assert.Empty(t, mergePage(&s3.ListObjectsV2Output{}))
}
