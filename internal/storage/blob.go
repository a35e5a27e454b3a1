// Package storage persists uploaded evidence documents in a blob backend.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned by Get for unknown keys.
var ErrNotExist = errors.New("storage: object does not exist")

type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error) // returns canonical key
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	SignedURL(ctx context.Context, key string) (string, error) // fs returns "file://..." for dev
	Delete(ctx context.Context, key string) error              // missing keys are not an error
}
