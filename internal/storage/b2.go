package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/kurin/blazer/b2"
)

// DefaultLinkTTL bounds how long a download link stays valid.
const DefaultLinkTTL = time.Hour

// B2Store keeps blobs in a Backblaze B2 bucket.
type B2Store struct {
	client *b2.Client
	bucket *b2.Bucket
	ttl    time.Duration
}

func NewB2Store(ctx context.Context, keyID, appKey, bucketName string) (*B2Store, error) {
	client, err := b2.NewClient(ctx, keyID, appKey)
	if err != nil {
		return nil, fmt.Errorf("storage: b2 client: %w", err)
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("storage: b2 bucket %s: %w", bucketName, err)
	}
	return &B2Store{client: client, bucket: bucket, ttl: DefaultLinkTTL}, nil
}

func (s *B2Store) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	w := s.bucket.Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("storage: b2 write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: b2 close %s: %w", key, err)
	}
	return key, nil
}

func (s *B2Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj := s.bucket.Object(key)
	if _, err := obj.Attrs(ctx); err != nil {
		if b2.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("storage: b2 attrs %s: %w", key, err)
	}
	return obj.NewReader(ctx), nil
}

func (s *B2Store) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Object(key).Delete(ctx); err != nil && !b2.IsNotExist(err) {
		return fmt.Errorf("storage: b2 delete %s: %w", key, err)
	}
	return nil
}

// SignedURL returns the object URL carrying a download token scoped to key.
func (s *B2Store) SignedURL(ctx context.Context, key string) (string, error) {
	tok, err := s.bucket.AuthToken(ctx, key, s.ttl)
	if err != nil {
		return "", fmt.Errorf("storage: b2 auth token %s: %w", key, err)
	}
	return signedObjectURL(s.bucket.Object(key).URL(), tok), nil
}

func signedObjectURL(objURL, token string) string {
	return objURL + "?Authorization=" + url.QueryEscape(token)
}
