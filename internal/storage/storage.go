// Package storage defines the interface for object storage operations.
// Swap implementations by changing the concrete type injected at startup —
// the MinIO implementation works with any S3-compatible provider.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned when the requested object is not in the bucket.
var ErrNotExist = errors.New("object does not exist")

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Size        int64
	ContentType string
}

// ObjectStore is the interface for bucket-namespaced blob operations.
// Operations are network calls and may fail transiently; the store does not
// retry — retry policy belongs to the caller.
type ObjectStore interface {
	// Put streams data to the given bucket under key. size must be the exact
	// byte count (pass -1 only if the size is genuinely unknown).
	Put(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error
	// Get opens a read stream for the object. Returns ErrNotExist for a
	// missing key. The caller owns closing the returned stream.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error)
	// Remove deletes an object. Removing a missing key is not an error.
	Remove(ctx context.Context, bucket, key string) error
}
