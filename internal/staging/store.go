package staging

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/ingestion"
)

// Store keeps uploaded documents while they are analyzed.
type Store interface {
	// Put saves data and returns the key it was stored under.
	Put(ctx context.Context, name string, data []byte) (string, error)
	// Get reads a stored document back.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes a previously stored document.
	Delete(ctx context.Context, key string) error
	// Backend names the storage backend.
	Backend() string
}

// New creates the store selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig, logger *errors.Logger) (Store, error) {
	switch cfg.Backend {
	case config.StorageBackendNone, "":
		return NopStore{}, nil
	case config.StorageBackendLocal:
		return NewLocalStore(cfg.LocalDir)
	case config.StorageBackendS3:
		client, err := NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return NewS3Store(client, cfg.S3, NewBreaker("staging-s3", cfg.CircuitBreaker, logger)), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// stagedName builds a collision-free object name keeping the extension.
func stagedName(name string) string {
	return "resume_" + uuid.NewString() + ingestion.Extension(name)
}

// NopStore discards documents.
type NopStore struct{}

func (NopStore) Put(context.Context, string, []byte) (string, error) { return "", nil }

func (NopStore) Get(_ context.Context, key string) ([]byte, error) {
	return nil, errors.NewStorageError(errors.ErrCodeStorageFailed,
		fmt.Sprintf("Staged file not found: %s", key), nil)
}

func (NopStore) Delete(context.Context, string) error { return nil }

func (NopStore) Backend() string { return config.StorageBackendNone }
