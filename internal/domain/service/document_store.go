package service

import (
	"context"
	"io"
)

// DocumentStore stages uploaded identity documents until the exam request is finalized.
type DocumentStore interface {
	// Put stores the content under key.
	Put(ctx context.Context, key, contentType string, content io.Reader) (size int64, err error)

	// Open returns a reader for the content stored under key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the content stored under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
