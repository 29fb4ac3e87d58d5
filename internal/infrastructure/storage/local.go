package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// LocalStore writes files below a directory that the HTTP server exposes
// under a public prefix
type LocalStore struct {
	root         string
	publicPrefix string
	logger       *zap.Logger
}

// NewLocalStore creates the root directory if needed
func NewLocalStore(root, publicPrefix string, logger *zap.Logger) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("local storage directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalStore{root: root, publicPrefix: publicPrefix, logger: logger}, nil
}

// Root returns the directory files are written to
func (s *LocalStore) Root() string { return s.root }

// Put writes data atomically and returns its public URL
func (s *LocalStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store file: %w", err)
	}

	s.logger.Debug("Stored file", zap.String("key", key), zap.Int("bytes", len(data)))
	return s.URL(key), nil
}

// Delete removes a file. Deleting a missing file is not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists reports whether key is stored
func (s *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	key, err := cleanKey(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(filepath.Join(s.root, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// URL returns the public path of key
func (s *LocalStore) URL(key string) string {
	return joinURL(s.publicPrefix, key)
}

// Ping checks the root directory is still writable
func (s *LocalStore) Ping(_ context.Context) error {
	f, err := os.CreateTemp(s.root, ".ping-*")
	if err != nil {
		return fmt.Errorf("storage directory not writable: %w", err)
	}
	f.Close()
	return os.Remove(f.Name())
}

var _ Store = (*LocalStore)(nil)
