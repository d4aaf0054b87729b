package testutil

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// StringPtr returns a pointer to the given string.
func StringPtr(s string) *string {
	return aws.String(s)
}

// Int64Ptr returns a pointer to the given int64.
func Int64Ptr(i int64) *int64 {
	return aws.Int64(i)
}

// Int32Ptr returns a pointer to the given int32.
func Int32Ptr(i int32) *int32 {
	return aws.Int32(i)
}

// BoolPtr returns a pointer to the given bool.
func BoolPtr(b bool) *bool {
	return aws.Bool(b)
}

// TimePtr returns a pointer to the given time.
func TimePtr(t time.Time) *time.Time {
	return &t
}

// CalculateETag calculates the single-part ETag for the given data.
func CalculateETag(data []byte) string {
	h := md5.Sum(data)
	return fmt.Sprintf(`"%x"`, h)
}

// GenerateTestBucketName generates a valid, probably unique bucket name.
func GenerateTestBucketName(prefix string) string {
	name := fmt.Sprintf("%s-%d-%d", prefix, time.Now().Unix(), rand.Int31n(10000))
	name = strings.ToLower(strings.ReplaceAll(name, "_", "-"))
	if len(name) > 63 {
		name = name[:63]
	}
	return name
}

// CreateGetObjectOutput creates a GetObjectOutput serving data.
func CreateGetObjectOutput(data []byte, contentType string) *s3.GetObjectOutput {
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: Int64Ptr(int64(len(data))),
		ContentType:   StringPtr(contentType),
		ETag:          StringPtr(CalculateETag(data)),
		LastModified:  TimePtr(time.Now()),
	}
}

// LogEntry is a log record captured by LogRecorder.
type LogEntry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// LogRecorder is a slog.Handler that keeps every record for later assertions.
type LogRecorder struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewLogger returns a logger writing into a new LogRecorder.
func NewLogger() (*slog.Logger, *LogRecorder) {
	rec := &LogRecorder{}
	return slog.New(rec), rec
}

// Enabled implements slog.Handler.
func (r *LogRecorder) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (r *LogRecorder) Handle(_ context.Context, rec slog.Record) error {
	entry := LogEntry{
		Level:   rec.Level,
		Message: rec.Message,
		Attrs:   make(map[string]string),
	}
	rec.Attrs(func(a slog.Attr) bool {
		entry.Attrs[a.Key] = a.Value.String()
		return true
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

// WithAttrs implements slog.Handler. Derived handlers share the parent's records.
func (r *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &derivedRecorder{root: r, attrs: attrs}
}

// WithGroup implements slog.Handler. Groups are flattened.
func (r *LogRecorder) WithGroup(string) slog.Handler {
	return r
}

// Entries returns a copy of the captured records.
func (r *LogRecorder) Entries() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LogEntry(nil), r.entries...)
}

// Find returns the first captured record with the given message.
func (r *LogRecorder) Find(msg string) (LogEntry, bool) {
	for _, e := range r.Entries() {
		if e.Message == msg {
			return e, true
		}
	}
	return LogEntry{}, false
}

type derivedRecorder struct {
	root  *LogRecorder
	attrs []slog.Attr
}

func (d *derivedRecorder) Enabled(ctx context.Context, level slog.Level) bool {
	return d.root.Enabled(ctx, level)
}

//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (d *derivedRecorder) Handle(ctx context.Context, rec slog.Record) error {
	rec = rec.Clone()
	rec.AddAttrs(d.attrs...)
	return d.root.Handle(ctx, rec)
}

func (d *derivedRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &derivedRecorder{root: d.root, attrs: append(append([]slog.Attr(nil), d.attrs...), attrs...)}
}

func (d *derivedRecorder) WithGroup(string) slog.Handler {
	return d
}
