package testutil

import (
	"bytes"
	"cmp"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/internal/s3api"
)

// ErrInjected is returned by FakeS3 writes while injected failures remain.
var ErrInjected = errors.New("testutil: injected write failure")

const defaultFakePageSize = 1000

// FakeObject is an object stored by FakeS3.
type FakeObject struct {
	Body         []byte
	ContentType  string
	Metadata     map[string]string
	ETag         string
	LastModified time.Time
}

type fakeBucket struct {
	region  string
	objects map[string]FakeObject
}

type fakeUpload struct {
	bucket      string
	key         string
	contentType string
	metadata    map[string]string
	parts       map[int32][]byte
}

// FakeS3 is an in-memory S3 backend implementing s3api.API.
// Listings are sorted by key, honour prefix and delimiter, and are split into
// pages of PageSize entries linked by continuation tokens.
type FakeS3 struct {
	mu       sync.Mutex
	buckets  map[string]*fakeBucket
	uploads  map[string]*fakeUpload
	calls    map[string]int
	failures int
	failErr  error
	nextID   int

	// PageSize caps the entries in one listing page when the request sets no
	// smaller MaxKeys or MaxBuckets. Zero means 1000.
	PageSize int32

	// LastCreateBucket is the most recent CreateBucket input.
	LastCreateBucket *s3.CreateBucketInput

	// LastPutObject is the most recent PutObject input, with its Body consumed.
	LastPutObject *s3.PutObjectInput
}

// NewFakeS3 creates an empty fake backend holding the given buckets.
func NewFakeS3(buckets ...string) *FakeS3 {
	f := &FakeS3{
		buckets: make(map[string]*fakeBucket),
		uploads: make(map[string]*fakeUpload),
		calls:   make(map[string]int),
	}
	for _, name := range buckets {
		f.AddBucket(name)
	}
	return f
}

// AddBucket creates a bucket without counting a CreateBucket call.
func (f *FakeS3) AddBucket(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.buckets[name]; !ok {
		f.buckets[name] = &fakeBucket{objects: make(map[string]FakeObject)}
	}
}

// PutString stores an object directly, creating the bucket if needed.
func (f *FakeS3) PutString(bucket, key, body string) {
	f.AddBucket(bucket)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets[bucket].objects[key] = newFakeObject([]byte(body), "", nil)
}

// Object returns a stored object.
func (f *FakeS3) Object(bucket, key string) (FakeObject, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.buckets[bucket]
	if !ok {
		return FakeObject{}, false
	}
	obj, ok := b.objects[key]
	return obj, ok
}

// BucketRegion returns the location constraint a bucket was created with.
func (f *FakeS3) BucketRegion(bucket string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.buckets[bucket]; ok {
		return b.region
	}
	return ""
}

// Calls returns how many times the named operation was invoked, e.g. "CreateBucket".
func (f *FakeS3) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// FailWrites makes the next n PutObject or UploadPart calls fail with err.
// A nil err means ErrInjected.
func (f *FakeS3) FailWrites(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	f.failures = n
	f.failErr = err
}

// ListBuckets returns bucket names in lexical order.
func (f *FakeS3) ListBuckets(
	ctx context.Context,
	params *s3.ListBucketsInput,
	_ ...func(*s3.Options),
) (*s3.ListBucketsOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListBuckets"]++

	names := make([]string, 0, len(f.buckets))
	for name := range f.buckets {
		names = append(names, name)
	}
	slices.Sort(names)

	start, err := tokenOffset(params.ContinuationToken)
	if err != nil {
		return nil, err
	}
	end := min(start+f.pageSize(params.MaxBuckets), len(names))
	start = min(start, end)

	out := &s3.ListBucketsOutput{Prefix: params.Prefix}
	for _, name := range names[start:end] {
		out.Buckets = append(out.Buckets, types.Bucket{Name: StringPtr(name)})
	}
	if end < len(names) {
		out.ContinuationToken = StringPtr(strconv.Itoa(end))
	}
	return out, nil
}

// CreateBucket creates a bucket, failing if it already exists.
func (f *FakeS3) CreateBucket(
	ctx context.Context,
	params *s3.CreateBucketInput,
	_ ...func(*s3.Options),
) (*s3.CreateBucketOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CreateBucket"]++
	f.LastCreateBucket = params

	name := deref(params.Bucket)
	if _, ok := f.buckets[name]; ok {
		return nil, &types.BucketAlreadyOwnedByYou{Message: StringPtr("bucket already owned by you")}
	}
	b := &fakeBucket{objects: make(map[string]FakeObject)}
	if cfg := params.CreateBucketConfiguration; cfg != nil {
		b.region = string(cfg.LocationConstraint)
	}
	f.buckets[name] = b
	return &s3.CreateBucketOutput{Location: StringPtr("/" + name)}, nil
}

// PutObject stores the request body.
func (f *FakeS3) PutObject(
	ctx context.Context,
	params *s3.PutObjectInput,
	_ ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := readBody(params.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["PutObject"]++
	in := *params
	in.Body = nil
	f.LastPutObject = &in

	b, ok := f.buckets[deref(params.Bucket)]
	if !ok {
		return nil, noSuchBucket()
	}
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	obj := newFakeObject(body, deref(params.ContentType), params.Metadata)
	b.objects[deref(params.Key)] = obj
	return &s3.PutObjectOutput{ETag: StringPtr(obj.ETag)}, nil
}

// GetObject returns a stored object.
func (f *FakeS3) GetObject(
	ctx context.Context,
	params *s3.GetObjectInput,
	_ ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetObject"]++

	b, ok := f.buckets[deref(params.Bucket)]
	if !ok {
		return nil, noSuchBucket()
	}
	obj, ok := b.objects[deref(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: StringPtr("The specified key does not exist.")}
	}
	out := &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.Body)),
		ContentLength: Int64Ptr(int64(len(obj.Body))),
		ETag:          StringPtr(obj.ETag),
		LastModified:  TimePtr(obj.LastModified),
		Metadata:      obj.Metadata,
	}
	if obj.ContentType != "" {
		out.ContentType = StringPtr(obj.ContentType)
	}
	return out, nil
}

// ListObjectsV2 lists keys and common prefixes in lexical order.
// An empty result carries no Contents and no CommonPrefixes, as S3 does.
func (f *FakeS3) ListObjectsV2(
	ctx context.Context,
	params *s3.ListObjectsV2Input,
	_ ...func(*s3.Options),
) (*s3.ListObjectsV2Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListObjectsV2"]++

	b, ok := f.buckets[deref(params.Bucket)]
	if !ok {
		return nil, noSuchBucket()
	}

	prefix, delimiter := deref(params.Prefix), deref(params.Delimiter)
	entries := listEntries(b.objects, prefix, delimiter)

	start, err := tokenOffset(params.ContinuationToken)
	if err != nil {
		return nil, err
	}
	end := min(start+f.pageSize(params.MaxKeys), len(entries))
	start = min(start, end)

	out := &s3.ListObjectsV2Output{
		Name:              params.Bucket,
		Prefix:            params.Prefix,
		Delimiter:         params.Delimiter,
		ContinuationToken: params.ContinuationToken,
		KeyCount:          Int32Ptr(int32(end - start)),
		IsTruncated:       BoolPtr(end < len(entries)),
	}
	for _, e := range entries[start:end] {
		if e.dir {
			out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: StringPtr(e.name)})
			continue
		}
		obj := b.objects[e.name]
		out.Contents = append(out.Contents, types.Object{
			Key:          StringPtr(e.name),
			Size:         Int64Ptr(int64(len(obj.Body))),
			ETag:         StringPtr(obj.ETag),
			LastModified: TimePtr(obj.LastModified),
			StorageClass: types.ObjectStorageClassStandard,
		})
	}
	if end < len(entries) {
		out.NextContinuationToken = StringPtr(strconv.Itoa(end))
	}
	return out, nil
}

// CreateMultipartUpload starts a multipart upload.
func (f *FakeS3) CreateMultipartUpload(
	ctx context.Context,
	params *s3.CreateMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.CreateMultipartUploadOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CreateMultipartUpload"]++

	if _, ok := f.buckets[deref(params.Bucket)]; !ok {
		return nil, noSuchBucket()
	}
	f.nextID++
	id := fmt.Sprintf("upload-%d", f.nextID)
	f.uploads[id] = &fakeUpload{
		bucket:      deref(params.Bucket),
		key:         deref(params.Key),
		contentType: deref(params.ContentType),
		metadata:    params.Metadata,
		parts:       make(map[int32][]byte),
	}
	return &s3.CreateMultipartUploadOutput{
		Bucket:   params.Bucket,
		Key:      params.Key,
		UploadId: StringPtr(id),
	}, nil
}

// UploadPart stores one part of a multipart upload.
func (f *FakeS3) UploadPart(
	ctx context.Context,
	params *s3.UploadPartInput,
	_ ...func(*s3.Options),
) (*s3.UploadPartOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := readBody(params.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["UploadPart"]++

	up, ok := f.uploads[deref(params.UploadId)]
	if !ok {
		return nil, &types.NoSuchUpload{}
	}
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	n := deref(params.PartNumber)
	up.parts[n] = body
	return &s3.UploadPartOutput{ETag: StringPtr(fmt.Sprintf(`"%x"`, md5.Sum(body)))}, nil
}

// CompleteMultipartUpload assembles the uploaded parts into an object.
func (f *FakeS3) CompleteMultipartUpload(
	ctx context.Context,
	params *s3.CompleteMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.CompleteMultipartUploadOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CompleteMultipartUpload"]++

	id := deref(params.UploadId)
	up, ok := f.uploads[id]
	if !ok {
		return nil, &types.NoSuchUpload{}
	}
	var parts []types.CompletedPart
	if params.MultipartUpload != nil {
		parts = slices.Clone(params.MultipartUpload.Parts)
	}
	slices.SortFunc(parts, func(a, b types.CompletedPart) int {
		return cmp.Compare(deref(a.PartNumber), deref(b.PartNumber))
	})

	var body bytes.Buffer
	for _, p := range parts {
		data, ok := up.parts[deref(p.PartNumber)]
		if !ok {
			return nil, &smithy.GenericAPIError{Code: "InvalidPart", Message: "part was not uploaded"}
		}
		body.Write(data)
	}
	delete(f.uploads, id)

	b, ok := f.buckets[up.bucket]
	if !ok {
		return nil, noSuchBucket()
	}
	obj := newFakeObject(body.Bytes(), up.contentType, up.metadata)
	b.objects[up.key] = obj
	return &s3.CompleteMultipartUploadOutput{
		Bucket: StringPtr(up.bucket),
		Key:    StringPtr(up.key),
		ETag:   StringPtr(obj.ETag),
	}, nil
}

// AbortMultipartUpload discards a multipart upload.
func (f *FakeS3) AbortMultipartUpload(
	_ context.Context,
	params *s3.AbortMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.AbortMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["AbortMultipartUpload"]++
	delete(f.uploads, deref(params.UploadId))
	return &s3.AbortMultipartUploadOutput{}, nil
}

// PendingUploads returns the number of multipart uploads neither completed nor aborted.
func (f *FakeS3) PendingUploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func (f *FakeS3) takeFailure() error {
	if f.failures <= 0 {
		return nil
	}
	f.failures--
	return f.failErr
}

func (f *FakeS3) pageSize(requested *int32) int {
	size := f.PageSize
	if size <= 0 {
		size = defaultFakePageSize
	}
	if requested != nil && *requested > 0 && *requested < size {
		size = *requested
	}
	return int(size)
}

type listEntry struct {
	name string
	dir  bool
}

func listEntries(objects map[string]FakeObject, prefix, delimiter string) []listEntry {
	keys := make([]string, 0, len(objects))
	for key := range objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	entries := make([]listEntry, 0, len(keys))
	seen := make(map[string]bool)
	for _, key := range keys {
		rest := key[len(prefix):]
		if delimiter != "" {
			if i := strings.Index(rest, delimiter); i >= 0 {
				dir := prefix + rest[:i+len(delimiter)]
				if !seen[dir] {
					seen[dir] = true
					entries = append(entries, listEntry{name: dir, dir: true})
				}
				continue
			}
		}
		entries = append(entries, listEntry{name: key})
	}
	return entries
}

func tokenOffset(token *string) (int, error) {
	if token == nil || *token == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(*token)
	if err != nil || n < 0 {
		return 0, &smithy.GenericAPIError{Code: "InvalidArgument", Message: "invalid continuation token"}
	}
	return n, nil
}

func newFakeObject(body []byte, contentType string, metadata map[string]string) FakeObject {
	return FakeObject{
		Body:         slices.Clone(body),
		ContentType:  contentType,
		Metadata:     metadata,
		ETag:         CalculateETag(body),
		LastModified: time.Now().UTC(),
	}
}

func readBody(r io.Reader) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return data, nil
}

func noSuchBucket() error {
	return &types.NoSuchBucket{Message: StringPtr("The specified bucket does not exist")}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// Ensure FakeS3 implements s3api.API
var _ s3api.API = (*FakeS3)(nil)
