// Package report writes reproduction artifacts.
package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"derivefuzz/internal/uploader"
	"derivefuzz/internal/util"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// CompressedExt is appended to compressed artifact copies.
const CompressedExt = ".zst"

// Artifact is one reproduction file. Lines starting with "--" are written
// as comments; every other line is a statement and ends with ";".
type Artifact struct {
	Op        string
	TestCount int
	Name      string
	Lines     []string
}

// Writer stores artifacts under OutputDir, grouped by operator and test
// column count. When Compress is set or the uploader is enabled a zstd copy
// is written next to the plain file and uploaded under RunID. Header lines
// are prepended to every artifact.
type Writer struct {
	OutputDir string
	RunID     string
	Compress  bool
	Uploader  uploader.Uploader
	Header    []string
}

// New creates a writer for outputDir.
func New(outputDir string, up uploader.Uploader) *Writer {
	if up == nil {
		up = uploader.NoopUploader{}
	}
	return &Writer{OutputDir: outputDir, RunID: NewRunID(), Uploader: up}
}

// NewRunID returns a time-ordered identifier for one fuzzing run.
func NewRunID() string {
	if v7, err := uuid.NewV7(); err == nil {
		return v7.String()
	}
	return uuid.New().String()
}

// ArtifactDir names the directory for an operator and test column count.
// Path separators in the operator are spelled out.
func ArtifactDir(op string, testCount int) string {
	op = strings.ReplaceAll(op, "/", "div")
	op = strings.ReplaceAll(op, `\`, "bslash")
	return fmt.Sprintf("%s-%d", op, testCount)
}

// Content renders artifact lines as file content.
func Content(lines []string) string {
	var b strings.Builder
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r\n")
		b.WriteString(line)
		if !strings.HasPrefix(line, "--") && !strings.HasSuffix(line, ";") {
			b.WriteString(";")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Write stores a and returns the path of the plain SQL file.
func (w *Writer) Write(ctx context.Context, a Artifact) (string, error) {
	dir := filepath.Join(w.OutputDir, ArtifactDir(a.Op, a.TestCount))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create artifact dir")
	}
	path := filepath.Join(dir, a.Name+".sql")
	lines := append(append([]string{}, w.Header...), a.Lines...)
	if err := os.WriteFile(path, []byte(Content(lines)), 0o644); err != nil {
		return "", errors.Wrap(err, "write artifact")
	}
	upload := w.Uploader != nil && w.Uploader.Enabled()
	if !w.Compress && !upload {
		return path, nil
	}
	zpath, err := CompressFile(path)
	if err != nil {
		return path, err
	}
	if !upload {
		return path, nil
	}
	rel, err := filepath.Rel(w.OutputDir, zpath)
	if err != nil {
		rel = filepath.Base(zpath)
	}
	url, err := w.Uploader.UploadFile(ctx, zpath, w.RunID+"/"+filepath.ToSlash(rel))
	if err != nil {
		return path, errors.Wrapf(err, "upload %s", zpath)
	}
	util.Infof("artifact uploaded to %s", url)
	return path, nil
}

// CompressFile writes a zstd copy of path and returns its location.
func CompressFile(path string) (out string, err error) {
	out = path + CompressedExt
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer util.CloseWithErr(src, "artifact source")
	defer func() {
		if err != nil {
			_ = os.Remove(out)
		}
	}()
	dst, err := os.Create(out)
	if err != nil {
		return "", err
	}
	defer util.CloseWithErr(dst, "artifact archive")

	zw, err := zstd.NewWriter(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(zw, src); err != nil {
		_ = zw.Close()
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return out, nil
}

// CleanDir empties dir, creating it when missing.
func CleanDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return os.MkdirAll(dir, 0o755)
}
