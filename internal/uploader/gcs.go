package uploader

import (
	"context"
	"fmt"
	"io"
	"strings"

	cfg "derivefuzz/internal/config"
	"derivefuzz/internal/util"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// GCSUploader uploads artifacts to Google Cloud Storage.
type GCSUploader struct {
	bucket string
	prefix string
	client *storage.Client
}

// NewGCS constructs an uploader from GCS configuration. Without a
// credentials file the default application credentials are used.
func NewGCS(ctx context.Context, c cfg.GCSConfig) (*GCSUploader, error) {
	if c.Bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	var opts []option.ClientOption
	if file := strings.TrimSpace(c.CredentialsFile); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create gcs client")
	}
	return &GCSUploader{bucket: c.Bucket, prefix: c.Prefix, client: client}, nil
}

// Enabled reports whether the uploader has a client.
func (u *GCSUploader) Enabled() bool {
	return u != nil && u.client != nil
}

// UploadFile streams one artifact and returns its GCS URL.
func (u *GCSUploader) UploadFile(ctx context.Context, path, key string) (string, error) {
	if !u.Enabled() {
		return "", errors.New("gcs uploader is not initialized")
	}
	a, err := openArtifact(path)
	if err != nil {
		return "", err
	}
	defer util.CloseWithErr(a.file, "gcs upload file")

	objKey := objectKey(u.prefix, key)
	w := u.client.Bucket(u.bucket).Object(objKey).NewWriter(ctx)
	w.ContentType = a.contentType
	if _, err := io.Copy(w, a.file); err != nil {
		_ = w.Close()
		return "", errors.Wrapf(err, "write gs://%s/%s", u.bucket, objKey)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrapf(err, "close gs://%s/%s", u.bucket, objKey)
	}
	return fmt.Sprintf("gs://%s/%s", u.bucket, objKey), nil
}
