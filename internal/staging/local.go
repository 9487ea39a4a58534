package staging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"resumatch/internal/config"
	"resumatch/internal/errors"
)

// LocalStore keeps documents in a directory on disk.
type LocalStore struct {
	dir string
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed,
			fmt.Sprintf("Cannot create staging directory: %s", dir), err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Put(_ context.Context, name string, data []byte) (string, error) {
	key := stagedName(name)
	if err := os.WriteFile(filepath.Join(s.dir, key), data, 0600); err != nil {
		return "", errors.NewStorageError(errors.ErrCodeStorageFailed,
			fmt.Sprintf("Cannot stage file: %s", name), err)
	}
	return key, nil
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed,
			fmt.Sprintf("Cannot read staged file: %s", key), err)
	}
	return data, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if err != nil && !os.IsNotExist(err) {
		return errors.NewStorageError(errors.ErrCodeStorageFailed,
			fmt.Sprintf("Cannot remove staged file: %s", key), err)
	}
	return nil
}

// checkKey rejects keys that would leave the staging directory.
func checkKey(key string) error {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return errors.NewValidationError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("Invalid staged file key: %q", key), nil)
	}
	return nil
}

func (s *LocalStore) Backend() string { return config.StorageBackendLocal }
