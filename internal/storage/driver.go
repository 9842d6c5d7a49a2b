// Package storage uploads customer image blobs to local disk or S3.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/hongyu-crm/crm-backend/config"
)

// Driver stores blobs under a slash-separated key.
type Driver interface {
	// Upload writes the blob and returns the URL clients load it from.
	Upload(ctx context.Context, body io.Reader, key, contentType string) (publicURL string, err error)
	// Delete removes a blob. A missing blob is not an error.
	Delete(ctx context.Context, key string) error
	// KeyForURL maps a URL produced by Upload back to its key. ok is false for
	// URLs this driver did not produce, such as inline data URIs.
	KeyForURL(url string) (key string, ok bool)
}

// New builds the configured driver. The inline driver keeps images inside
// the customer record, so it has no Driver and New returns nil.
func New(ctx context.Context, cfg config.StorageConfig) (Driver, error) {
	switch cfg.Driver {
	case config.StorageInline, "":
		return nil, nil
	case config.StorageLocal:
		return NewLocalStorage(cfg.UploadsPath, cfg.PublicBaseURL), nil
	case config.StorageS3:
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// cleanKey rejects keys that could escape the storage root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.TrimSpace(key))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return k, nil
}

func keyFromPrefix(url, base string) (string, bool) {
	prefix := strings.TrimSuffix(base, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	k, err := cleanKey(strings.TrimPrefix(url, prefix))
	if err != nil {
		return "", false
	}
	return k, true
}
