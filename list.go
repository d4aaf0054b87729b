package s3conn

import (
	"context"
	"iter"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/s3types"
)

// ListKeys yields the keys of the objects directly under pathPrefix, with the
// prefix removed. Keys further down the "/" hierarchy are not included; use
// ListDirs for those levels.
//
// The sequence follows continuation tokens as it is consumed and starts a fresh
// listing each time it is ranged over. A prefix with no objects yields nothing.
// On failure a single error is yielded and the sequence ends.
//
// Example:
//
//	for key, err := range client.ListKeys(ctx, "reports", "2024/") {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(key)
//	}
func (c *Client) ListKeys(ctx context.Context, bucket, pathPrefix string) iter.Seq2[string, error] {
	if err := validateListing(bucket, pathPrefix); err != nil {
		return fail[string](err)
	}
	return c.lister.Keys(ctx, bucket, pathPrefix)
}

// ListKeysAll collects ListKeys into a slice. A prefix with no objects yields
// an empty, non-nil slice.
func (c *Client) ListKeysAll(ctx context.Context, bucket, pathPrefix string) ([]string, error) {
	keys := []string{}
	for key, err := range c.ListKeys(ctx, bucket, pathPrefix) {
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ListDirs yields the common prefixes directly under pathPrefix, with the
// prefix removed and the trailing "/" kept.
func (c *Client) ListDirs(ctx context.Context, bucket, pathPrefix string) iter.Seq2[string, error] {
	if err := validateListing(bucket, pathPrefix); err != nil {
		return fail[string](err)
	}
	return c.lister.Dirs(ctx, bucket, pathPrefix)
}

// ListObjects yields every object under prefix at any depth, with full keys
// and metadata.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string) iter.Seq2[s3types.Object, error] {
	if err := validateListing(bucket, prefix); err != nil {
		return fail[s3types.Object](err)
	}
	return c.lister.Objects(ctx, bucket, prefix)
}

func validateListing(bucket, prefix string) error {
	if err := validation.RequireBucket(bucket); err != nil {
		return err
	}
	return validation.ValidatePrefix(prefix)
}

// fail returns a sequence that yields err once.
func fail[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}
