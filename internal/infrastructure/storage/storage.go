// Package storage keeps uploaded product images and rendered invoice PDFs,
// either on the local filesystem or in an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/flipflop/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ErrInvalidKey is returned for empty keys or keys escaping the storage root
var ErrInvalidKey = errors.New("invalid storage key")

// Store is what both backends provide. Keys are slash separated relative
// paths such as "products/<file>.jpg".
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	URL(key string) string
	Ping(ctx context.Context) error
}

// New builds the backend selected by cfg.Backend
func New(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(cfg.LocalDir, cfg.PublicPrefix, logger)
	case "s3":
		s, err := NewS3Store(cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// cleanKey normalises key and rejects anything that would leave the root
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return "", ErrInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func joinURL(prefix, key string) string {
	return strings.TrimRight(prefix, "/") + "/" + key
}
