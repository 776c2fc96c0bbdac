package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/tencentyun/cos-go-sdk-v5"

	apperrors "github.com/heapwalker/pkg/errors"
)

const cosListPageSize = 1000

// COSConfig holds COS-specific configuration.
type COSConfig struct {
	Bucket    string
	Region    string
	SecretID  string
	SecretKey string
	Domain    string // e.g., "myqcloud.com"
	Scheme    string // e.g., "https" or "http"

	// Endpoint overrides the derived bucket URL (private endpoints and tests).
	Endpoint string
}

// COSStorage implements Storage for Tencent Cloud COS.
type COSStorage struct {
	client    *cos.Client
	bucketURL *url.URL
}

// NewCOSStorage creates a new COSStorage instance.
func NewCOSStorage(cfg *COSConfig) (*COSStorage, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, apperrors.New(apperrors.CodeConfigError, "bucket and region are required for COS storage")
	}
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, apperrors.New(apperrors.CodeConfigError, "credentials are required for COS storage")
	}

	domain := cfg.Domain
	if domain == "" {
		domain = "myqcloud.com"
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}

	rawBucketURL := cfg.Endpoint
	if rawBucketURL == "" {
		rawBucketURL = fmt.Sprintf("%s://%s.cos.%s.%s", scheme, cfg.Bucket, cfg.Region, domain)
	}
	bucketURL, err := url.Parse(rawBucketURL)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to parse bucket URL", err)
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: bucketURL}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
		},
	})

	return &COSStorage{client: client, bucketURL: bucketURL}, nil
}

// Upload implements Storage.
func (s *COSStorage) Upload(ctx context.Context, key string, reader io.Reader) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	if _, err := s.client.Object.Put(ctx, key, reader, nil); err != nil {
		return storageError("upload", key, err)
	}
	return nil
}

// Download implements Storage.
func (s *COSStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Object.Get(ctx, key, nil)
	if err != nil {
		if cos.IsNotFoundError(err) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "snapshot not found: %s", key)
		}
		return nil, storageError("download", key, err)
	}
	return resp.Body, nil
}

// Delete implements Storage.
func (s *COSStorage) Delete(ctx context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	if _, err := s.client.Object.Delete(ctx, key); err != nil && !cos.IsNotFoundError(err) {
		return storageError("delete", key, err)
	}
	return nil
}

// Exists implements Storage.
func (s *COSStorage) Exists(ctx context.Context, key string) (bool, error) {
	key, err := CleanKey(key)
	if err != nil {
		return false, err
	}
	ok, err := s.client.Object.IsExist(ctx, key)
	if err != nil {
		return false, storageError("stat", key, err)
	}
	return ok, nil
}

// List implements Storage, following continuation markers until the listing is complete.
func (s *COSStorage) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	marker := ""
	for {
		result, _, err := s.client.Bucket.Get(ctx, &cos.BucketGetOptions{
			Prefix:  prefix,
			Marker:  marker,
			MaxKeys: cosListPageSize,
		})
		if err != nil {
			return nil, storageError("list", prefix, err)
		}
		for _, obj := range result.Contents {
			if !strings.HasSuffix(obj.Key, "/") {
				keys = append(keys, obj.Key)
			}
		}
		if !result.IsTruncated {
			break
		}
		marker = result.NextMarker
		if marker == "" && len(result.Contents) > 0 {
			marker = result.Contents[len(result.Contents)-1].Key
		}
		if marker == "" {
			break
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// GetURL returns the object URL of key.
func (s *COSStorage) GetURL(key string) string {
	cleaned, err := CleanKey(key)
	if err != nil {
		return ""
	}
	return s.client.Object.GetObjectURL(cleaned).String()
}
