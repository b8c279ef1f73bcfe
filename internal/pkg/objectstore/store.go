package objectstore

import (
	"context"
	"fmt"
	"io"
)

// Store persists uploaded objects under a key.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// New returns an S3 store when cfg enables it and a local directory store
// otherwise.
func New(ctx context.Context, cfg *Config) (Store, error) {
	if cfg.IsEnabled() {
		return NewS3(ctx, cfg)
	}
	store, err := NewLocal(cfg.LocalDir)
	if err != nil {
		return nil, fmt.Errorf("local object store: %w", err)
	}
	return store, nil
}
