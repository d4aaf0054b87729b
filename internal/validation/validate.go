// Package validation provides centralized input validation logic.
//
// Inputs are checked before any request is sent so that malformed names fail fast
// with ErrInvalidBucketName, ErrInvalidObjectKey or ErrInvalidInput.
package validation

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3conn/errors"
)

const (
	maxKeyLength           = 1024
	maxMetadataKeyLength   = 128
	maxMetadataTotalLength = 2048
)

var mimePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9!#$&^_.+-]*/[a-zA-Z0-9][a-zA-Z0-9!#$&^_.+-]*(\s*;.*)?$`)

// ValidateBucketName validates that a bucket name follows the S3 general purpose
// bucket naming rules. It is applied to names about to be created; existing
// legacy buckets are only required to be non-empty (see RequireBucket).
func ValidateBucketName(bucket string) error {
	fail := func(msg string) error {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage(msg)
	}

	if len(bucket) < 3 || len(bucket) > 63 {
		return fail("bucket name must be between 3 and 63 characters long")
	}
	for _, r := range bucket {
		if !isBucketChar(r) {
			return fail("bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}
	if !isAlnum(bucket[0]) || !isAlnum(bucket[len(bucket)-1]) {
		return fail("bucket name must begin and end with a letter or number")
	}
	if strings.Contains(bucket, "..") {
		return fail("bucket name cannot contain two adjacent periods")
	}
	if _, err := netip.ParseAddr(bucket); err == nil {
		return fail("bucket name cannot be formatted as an IP address")
	}
	for _, prefix := range []string{"xn--", "sthree-", "amzn-s3-demo-"} {
		if strings.HasPrefix(bucket, prefix) {
			return fail(fmt.Sprintf("bucket name cannot start with reserved prefix %q", prefix))
		}
	}
	for _, suffix := range []string{"-s3alias", "--ol-s3", "--x-s3", ".mrap"} {
		if strings.HasSuffix(bucket, suffix) {
			return fail(fmt.Sprintf("bucket name cannot end with reserved suffix %q", suffix))
		}
	}
	return nil
}

// RequireBucket checks that a bucket name was supplied.
func RequireBucket(bucket string) error {
	if strings.TrimSpace(bucket) == "" {
		return errors.NewError("validateBucketName", errors.ErrInvalidInput).
			WithMessage("bucket name cannot be empty")
	}
	return nil
}

// ValidateObjectKey validates that an object key can be stored in S3.
// Keys are used verbatim: no path cleaning is applied.
func ValidateObjectKey(key string) error {
	fail := func(msg string) error {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage(msg)
	}

	if key == "" {
		return fail("object key cannot be empty")
	}
	if err := validateKeyText(key); err != nil {
		return fail(err.Error())
	}
	return nil
}

// ValidatePrefix validates a listing or upload prefix. The empty prefix is valid.
func ValidatePrefix(prefix string) error {
	if err := validateKeyText(prefix); err != nil {
		return errors.NewError("validatePrefix", errors.ErrInvalidInput).
			WithKey(prefix).
			WithMessage(err.Error())
	}
	return nil
}

func validateKeyText(s string) error {
	if len(s) > maxKeyLength {
		return fmt.Errorf("cannot exceed %d bytes", maxKeyLength)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("must be valid UTF-8")
	}
	if strings.IndexFunc(s, unicode.IsControl) >= 0 {
		return fmt.Errorf("cannot contain control characters")
	}
	return nil
}

// ValidateMetadata validates user metadata keys and values according to S3 rules.
func ValidateMetadata(metadata map[string]string) error {
	total := 0
	for key, value := range metadata {
		if key == "" {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage("metadata key cannot be empty")
		}
		if len(key) > maxMetadataKeyLength {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage(fmt.Sprintf("metadata key cannot exceed %d characters", maxMetadataKeyLength))
		}
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "x-amz-") || strings.HasPrefix(lower, "aws:") {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage(fmt.Sprintf("metadata key %q uses a reserved prefix", key))
		}
		for _, r := range key {
			if r <= ' ' || r > '~' {
				return errors.NewError("validateMetadata", errors.ErrInvalidInput).
					WithMessage("metadata key can only contain printable ASCII characters without spaces")
			}
		}
		for _, r := range value {
			if !unicode.IsPrint(r) && r != '\t' {
				return errors.NewError("validateMetadata", errors.ErrInvalidInput).
					WithMessage("metadata value can only contain printable characters")
			}
		}
		total += len(key) + len(value)
	}
	if total > maxMetadataTotalLength {
		return errors.NewError("validateMetadata", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("metadata cannot exceed %d bytes in total", maxMetadataTotalLength))
	}
	return nil
}

// ValidateContentType validates that a content type is a well-formed MIME type.
func ValidateContentType(contentType string) error {
	if contentType == "" {
		return nil
	}
	if !mimePattern.MatchString(contentType) {
		return errors.NewError("validateContentType", errors.ErrInvalidInput).
			WithMessage("content type must be a valid MIME type")
	}
	return nil
}

func isBucketChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '-'
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
