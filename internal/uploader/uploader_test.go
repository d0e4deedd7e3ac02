package uploader

import (
	"context"
	"testing"

	"derivefuzz/internal/config"
)

func TestNewWithoutBackend(t *testing.T) {
	up, err := New(context.Background(), config.StorageConfig{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if up.Enabled() {
		t.Fatalf("expected disabled uploader")
	}
	url, err := up.UploadFile(context.Background(), "/nonexistent", "k")
	if err != nil || url != "" {
		t.Fatalf("noop upload returned %q, %v", url, err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{S3: config.S3Config{Enabled: true}})
	if err == nil {
		t.Fatalf("expected error without a bucket")
	}
}

func TestArtifactContentType(t *testing.T) {
	cases := map[string]string{
		"a/test_mysql_1.sql":     "application/sql",
		"a/test_mysql_1.sql.zst": "application/zstd",
		"a/log.txt":              "application/octet-stream",
	}
	for path, want := range cases {
		if got := contentType(path); got != want {
			t.Fatalf("contentType(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestObjectKey(t *testing.T) {
	cases := []struct {
		prefix, key, want string
	}{
		{"", "run/a.sql.zst", "run/a.sql.zst"},
		{"derivefuzz", "run/a.sql.zst", "derivefuzz/run/a.sql.zst"},
		{"/nightly/ ", "/run/a.sql.zst", "nightly/run/a.sql.zst"},
	}
	for _, c := range cases {
		if got := objectKey(c.prefix, c.key); got != c.want {
			t.Fatalf("objectKey(%q, %q) = %q, want %q", c.prefix, c.key, got, c.want)
		}
	}
}
