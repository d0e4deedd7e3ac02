// Package uploader copies reproduction artifacts to object storage.
package uploader

import (
	"context"
	"os"
	"path/filepath"

	"derivefuzz/internal/config"

	"github.com/pkg/errors"
)

// Uploader stores one local file under a storage key.
type Uploader interface {
	Enabled() bool
	// UploadFile uploads path as key and returns the object URL.
	UploadFile(ctx context.Context, path, key string) (string, error)
}

// NoopUploader is used when no storage backend is configured.
type NoopUploader struct{}

func (n NoopUploader) Enabled() bool {
	return false
}

func (n NoopUploader) UploadFile(ctx context.Context, path, key string) (string, error) {
	return "", nil
}

// New picks the configured backend. GCS wins when both are enabled.
func New(ctx context.Context, cfg config.StorageConfig) (Uploader, error) {
	if !cfg.CloudEnabled() {
		return NoopUploader{}, nil
	}
	if cfg.GCS.Enabled {
		return NewGCS(ctx, cfg.GCS)
	}
	return NewS3(ctx, cfg.S3)
}

func objectKey(prefix, key string) string {
	prefix = trimSlashes(prefix)
	if prefix == "" {
		return trimSlashes(key)
	}
	return prefix + "/" + trimSlashes(key)
}

// artifact is an opened local file ready to be streamed.
type artifact struct {
	file        *os.File
	size        int64
	contentType string
}

func openArtifact(path string) (*artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open artifact")
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "stat artifact")
	}
	return &artifact{file: f, size: info.Size(), contentType: contentType(path)}, nil
}

func contentType(path string) string {
	switch filepath.Ext(path) {
	case ".zst":
		return "application/zstd"
	case ".sql":
		return "application/sql"
	}
	return "application/octet-stream"
}
