// Package list provides page-following iterators over S3 bucket and object listings.
//
// Every iterator is lazy and restartable: ranging over it issues the first
// request, later pages are fetched only as the caller keeps consuming, and
// ranging again starts a fresh listing.
package list

import (
	"context"
	"iter"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/s3types"
)

// Delimiter groups keys into one directory-like level.
const Delimiter = "/"

// Entry is one item of a delimited listing: an object or a common prefix.
type Entry struct {
	// Name is the full key or common prefix
	Name string

	// Dir is true for a common prefix
	Dir bool

	// Object holds metadata when Dir is false
	Object s3types.Object
}

// Lister handles paginated listings.
type Lister struct {
	api      s3api.API
	pageSize int32
}

// New creates a new Lister. A pageSize of zero leaves the page size to S3.
func New(api s3api.API, pageSize int32) *Lister {
	return &Lister{
		api:      api,
		pageSize: pageSize,
	}
}

// Buckets yields the name of every bucket visible to the credentials.
func (l *Lister) Buckets(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		p := s3.NewListBucketsPaginator(l.api, &s3.ListBucketsInput{}, func(o *s3.ListBucketsPaginatorOptions) {
			o.Limit = l.pageSize
		})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				yield("", errors.NewError("listBuckets", errors.Classify(err)))
				return
			}
			for _, b := range page.Buckets {
				if !yield(aws.ToString(b.Name), nil) {
					return
				}
			}
		}
	}
}

// Entries yields the objects and common prefixes under prefix in listing order.
// An empty delimiter lists recursively.
func (l *Lister) Entries(ctx context.Context, bucket, prefix, delimiter string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		input := &s3.ListObjectsV2Input{
			Bucket: aws.String(bucket),
		}
		if prefix != "" {
			input.Prefix = aws.String(prefix)
		}
		if delimiter != "" {
			input.Delimiter = aws.String(delimiter)
		}

		p := s3.NewListObjectsV2Paginator(l.api, input, func(o *s3.ListObjectsV2PaginatorOptions) {
			o.Limit = l.pageSize
		})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				yield(Entry{}, errors.NewBucketError("listObjects", bucket, errors.Classify(err)).WithKey(prefix))
				return
			}
			for _, entry := range mergePage(page) {
				if !yield(entry, nil) {
					return
				}
			}
		}
	}
}

// Keys yields the object keys directly under prefix with prefix removed.
// Common prefixes are skipped.
func (l *Lister) Keys(ctx context.Context, bucket, prefix string) iter.Seq2[string, error] {
	return l.names(ctx, bucket, prefix, false)
}

// Dirs yields the common prefixes directly under prefix with prefix removed.
func (l *Lister) Dirs(ctx context.Context, bucket, prefix string) iter.Seq2[string, error] {
	return l.names(ctx, bucket, prefix, true)
}

// Objects yields every object under prefix, recursively.
func (l *Lister) Objects(ctx context.Context, bucket, prefix string) iter.Seq2[s3types.Object, error] {
	return func(yield func(s3types.Object, error) bool) {
		for entry, err := range l.Entries(ctx, bucket, prefix, "") {
			if !yield(entry.Object, err) || err != nil {
				return
			}
		}
	}
}

func (l *Lister) names(ctx context.Context, bucket, prefix string, dirs bool) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for entry, err := range l.Entries(ctx, bucket, prefix, Delimiter) {
			if err != nil {
				yield("", err)
				return
			}
			if entry.Dir != dirs {
				continue
			}
			if !yield(strings.TrimPrefix(entry.Name, prefix), nil) {
				return
			}
		}
	}
}

// mergePage interleaves a page's objects and common prefixes in key order.
// Both slices arrive sorted, and either may be absent.
func mergePage(page *s3.ListObjectsV2Output) []Entry {
	entries := make([]Entry, 0, len(page.Contents)+len(page.CommonPrefixes))
	i, j := 0, 0
	for i < len(page.Contents) || j < len(page.CommonPrefixes) {
		takeObject := j >= len(page.CommonPrefixes) ||
			(i < len(page.Contents) && aws.ToString(page.Contents[i].Key) < aws.ToString(page.CommonPrefixes[j].Prefix))
		if takeObject {
			obj := page.Contents[i]
			entries = append(entries, Entry{
				Name: aws.ToString(obj.Key),
				Object: s3types.Object{
					Key:          aws.ToString(obj.Key),
					Size:         aws.ToInt64(obj.Size),
					LastModified: aws.ToTime(obj.LastModified),
					ETag:         aws.ToString(obj.ETag),
				},
			})
			i++
			continue
		}
		entries = append(entries, Entry{Name: aws.ToString(page.CommonPrefixes[j].Prefix), Dir: true})
		j++
	}
	return entries
}
