// Package blobstore stages wizard documents in a gocloud blob bucket.
package blobstore

import (
	"context"
	"io"
	"log/slog"

	"citas/config"
	"citas/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// buckets
	_ "gocloud.dev/blob/gcsblob"  // gs:// buckets
	_ "gocloud.dev/blob/memblob"  // mem:// buckets
	"gocloud.dev/gcerrors"
)

// Params holds dependencies for the document store
type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

type documentStore struct {
	bucket *blob.Bucket
}

// New opens the configured bucket and closes it on shutdown.
func New(params Params) (service.DocumentStore, error) {
	cfg := params.Config.Documents

	bucket, err := blob.OpenBucket(params.Ctx, cfg.BucketURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open document bucket %s", cfg.BucketURL)
	}
	if cfg.Prefix != "" {
		bucket = blob.PrefixedBucket(bucket, cfg.Prefix)
	}

	params.Logger.Info("Document bucket opened",
		slog.String("url", cfg.BucketURL),
		slog.String("prefix", cfg.Prefix),
	)

	params.Lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return errors.WithStack(bucket.Close())
		},
	})

	return NewDocumentStore(bucket), nil
}

// NewDocumentStore wraps an open bucket.
func NewDocumentStore(bucket *blob.Bucket) service.DocumentStore {
	return &documentStore{bucket: bucket}
}

func (s *documentStore) Put(ctx context.Context, key, contentType string, content io.Reader) (int64, error) {
	w, err := s.bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return 0, errors.Wrapf(err, "failed to open writer for %s", key)
	}

	n, copyErr := io.Copy(w, content)
	closeErr := w.Close()
	if copyErr != nil {
		return 0, errors.Wrapf(copyErr, "failed to write %s", key)
	}
	if closeErr != nil {
		return 0, errors.Wrapf(closeErr, "failed to commit %s", key)
	}

	return n, nil
}

func (s *documentStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", key)
	}

	return r, nil
}

func (s *documentStore) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Delete(ctx, key); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return errors.Wrapf(err, "failed to delete %s", key)
	}

	return nil
}
