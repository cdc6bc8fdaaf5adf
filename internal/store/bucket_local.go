package store

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"bqdesc-backupper/internal/errors"
)

// LocalBucket keeps objects as files below a base directory
type LocalBucket struct {
	basePath    string
	permissions os.FileMode
}

// NewLocalBucket creates the base directory if needed
func NewLocalBucket(config LocalConfig) (*LocalBucket, error) {
	if config.BasePath == "" {
		return nil, errors.NewConfigurationError("local base path is required", nil)
	}
	if config.Permissions == 0 {
		config.Permissions = 0755
	}

	b := &LocalBucket{basePath: config.BasePath, permissions: config.Permissions}
	if err := os.MkdirAll(b.basePath, b.permissions); err != nil {
		return nil, errors.NewAppError(errors.ErrorTypePermission,
			fmt.Sprintf("failed to create base directory %s", b.basePath), err)
	}
	return b, nil
}

func (b *LocalBucket) path(key string) (string, error) {
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", errors.NewValidationError(fmt.Sprintf("invalid object key %q", key), nil)
		}
	}
	return filepath.Join(b.basePath, filepath.FromSlash(key)), nil
}

// Read returns the content of key
func (b *LocalBucket) Read(ctx context.Context, key string) ([]byte, error) {
	p, err := b.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, errors.NewNotFoundError(fmt.Sprintf("object %s not found", key), err)
	}
	if err != nil {
		return nil, errors.NewAppError(errors.ErrorTypeTransient, fmt.Sprintf("failed to read %s", p), err)
	}
	return data, nil
}

// Write stores data under key through a temporary file so readers never see a partial document
func (b *LocalBucket) Write(ctx context.Context, key string, data []byte) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), b.permissions); err != nil {
		return errors.NewAppError(errors.ErrorTypeTransient, "failed to create collection directory", err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.NewAppError(errors.ErrorTypeTransient, fmt.Sprintf("failed to write %s", p), err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return errors.NewAppError(errors.ErrorTypeTransient, fmt.Sprintf("failed to write %s", p), err)
	}
	return nil
}

// Keys walks the base directory and returns slash-separated keys under prefix
func (b *LocalBucket) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(b.basePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(b.basePath, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewAppError(errors.ErrorTypeTransient, "failed to list local objects", err)
	}
	return keys, nil
}

// Location returns the base directory
func (b *LocalBucket) Location() string {
	return b.basePath
}

// Close is a no-op
func (b *LocalBucket) Close() error {
	return nil
}
