package s3conn

import (
	"bytes"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// DefaultContentType is used when the content type cannot be detected.
	DefaultContentType = "application/octet-stream"

	// CSVContentType is sent with uploaded tables.
	CSVContentType = "text/csv; charset=utf-8"

	// sniffLen is how much of a payload is inspected for its content type.
	sniffLen = 3072
)

// contentTypeByExtension looks the key's extension up in the system MIME table.
func contentTypeByExtension(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if ext == "" {
		return ""
	}
	return mime.TypeByExtension(ext)
}

// detectContentType picks a content type for data stored under key: the key's
// extension first, then the payload's leading bytes.
func detectContentType(key string, data []byte) string {
	if ct := contentTypeByExtension(key); ct != "" {
		return ct
	}
	if len(data) == 0 {
		return DefaultContentType
	}
	return mimetype.Detect(data).String()
}

// sniffReader detects the content type of a stream. The returned reader yields
// the full stream, including the bytes consumed for detection.
func sniffReader(key string, r io.Reader) (string, io.Reader, error) {
	if ct := contentTypeByExtension(key); ct != "" {
		return ct, r, nil
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	switch err {
	case nil, io.EOF, io.ErrUnexpectedEOF:
	default:
		return "", nil, err
	}
	head = head[:n]
	return detectContentType("", head), io.MultiReader(bytes.NewReader(head), r), nil
}
