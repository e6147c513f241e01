// Package storage publishes converted documents and returns a URL they can be
// downloaded from.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/config"
)

// Store saves a converted document under name.
type Store interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// New returns the store selected by the service configuration.
func New(ctx context.Context, cfg *config.ServiceConfig) (Store, error) {
	switch strings.ToLower(cfg.StoreBackend) {
	case "s3":
		return NewS3Store(ctx, S3Options{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Prefix:        cfg.S3Prefix,
			PresignExpiry: cfg.PresignExpiry(),
		})
	default:
		return NewLocalStore(cfg.DownloadDir, strings.TrimRight(cfg.PublicBaseURL, "/")+"/downloads")
	}
}

// LocalStore writes documents to a directory served by the HTTP service.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates dir if needed. Download URLs are baseURL + "/" + name.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory documents are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Put(_ context.Context, name string, data []byte) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid download name %q", name)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return s.baseURL + "/" + url.PathEscape(name), nil
}
