// Package storage provides durable byte storage for uploaded PDFs,
// addressed by an opaque key assigned at write time.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a key has no object behind it.
	ErrNotFound = errors.New("object not found")
	// ErrTooLarge is returned before any bytes are retained when an
	// upload exceeds the store's size cap.
	ErrTooLarge = errors.New("object exceeds size limit")
)

// BlobStore is write-once storage for uploaded files. Put returns the
// generated key; Remove is idempotent when the key is already absent.
type BlobStore interface {
	Put(ctx context.Context, originalName string, r io.Reader, size int64, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

var nonAlphaNumeric = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)
var multipleSpaces = regexp.MustCompile(`\s+`)

// ObjectKey builds the storage key for an uploaded file: a millisecond
// timestamp prefix plus the sanitized original name. The timestamp avoids
// collisions without content hashing.
func ObjectKey(originalName string, now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), sanitizeFilename(originalName))
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = multipleSpaces.ReplaceAllString(base, "_")
	base = nonAlphaNumeric.ReplaceAllString(base, "")

	// Keep keys bounded even for pathological client filenames.
	maxLength := 100
	if len(base) > maxLength {
		base = base[:maxLength]
	}
	if base == "" || base == "." {
		base = "upload.pdf"
	}
	return base
}
