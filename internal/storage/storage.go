// Package storage stores heap snapshot documents in a local directory or in
// Tencent Cloud COS.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/heapwalker/pkg/config"
	apperrors "github.com/heapwalker/pkg/errors"
)

// Storage defines snapshot object storage operations.
type Storage interface {
	// Upload stores data from reader at key.
	Upload(ctx context.Context, key string, reader io.Reader) error

	// Download opens the object at key. Missing objects yield a NOT_FOUND error.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete deletes the object at key. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists at key.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// GetURL returns a locator for key suitable for display.
	GetURL(key string) string
}

// StorageType represents the type of storage backend.
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeCOS   StorageType = "cos"
)

// NewStorage creates a Storage from configuration.
func NewStorage(cfg *config.StorageConfig) (Storage, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	switch StorageType(cfg.Type) {
	case StorageTypeCOS:
		return NewCOSStorage(&COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
		})
	default:
		return NewLocalStorage(cfg.LocalPath)
	}
}

// ValidateConfig validates the storage configuration.
func ValidateConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return apperrors.New(apperrors.CodeConfigError, "storage config is nil")
	}

	storageType := StorageType(cfg.Type)
	if storageType == "" {
		storageType = StorageTypeLocal
	}

	switch storageType {
	case StorageTypeCOS:
		if cfg.Bucket == "" || cfg.Region == "" {
			return apperrors.New(apperrors.CodeConfigError, "COS bucket and region are required")
		}
		if cfg.SecretID == "" || cfg.SecretKey == "" {
			return apperrors.New(apperrors.CodeConfigError, "COS credentials are required")
		}
	case StorageTypeLocal:
		if cfg.LocalPath == "" {
			return apperrors.New(apperrors.CodeConfigError, "local storage path is required")
		}
	default:
		return apperrors.Newf(apperrors.CodeConfigError, "unsupported storage type: %s", cfg.Type)
	}

	return nil
}

// CleanKey normalizes a key and rejects keys that escape the storage root.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return "", apperrors.New(apperrors.CodeInvalidInput, "storage key is empty")
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || strings.HasPrefix(cleaned, "..") {
		return "", apperrors.Newf(apperrors.CodeInvalidInput, "invalid storage key: %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", apperrors.Newf(apperrors.CodeInvalidInput, "invalid storage key: %q", key)
		}
	}
	return cleaned, nil
}

func storageError(op, key string, err error) error {
	return apperrors.Wrap(apperrors.CodeStorageError, fmt.Sprintf("%s %s", op, key), err)
}
