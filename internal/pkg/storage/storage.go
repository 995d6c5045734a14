package storage

import (
	"context"
	"io"
)

// Storage is the object-store backend for KYC documents.
// Intentionally simple: put a document, fetch it back, delete it.
type Storage interface {
	// Put stores a document at the given key.
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Get retrieves a document by key. The caller owns the returned reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a document by key. Returns nil if it doesn't exist.
	Delete(ctx context.Context, key string) error
}
