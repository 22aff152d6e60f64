package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/incident-report-service/internal/config"
	apperrors "github.com/spec-kit/incident-report-service/pkg/util"
)

// Store persists evidence images and returns publicly servable URLs.
type Store interface {
	Save(ctx context.Context, fileName string, size int64, content io.Reader) (string, error)
}

// DiskStore writes uploads under a local directory served as static files.
type DiskStore struct {
	dir      string
	baseURL  string
	maxBytes int64
}

// NewDiskStore creates the upload directory if needed.
func NewDiskStore(cfg config.UploadConfig) (*DiskStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: cfg.Dir, baseURL: strings.TrimRight(cfg.BaseURL, "/"), maxBytes: cfg.MaxBytes}, nil
}

// MaxBytes exposes the configured upload cap.
func (s *DiskStore) MaxBytes() int64 {
	return s.maxBytes
}

// Save validates size and MIME type, then writes the file under a generated
// name. The MIME type is sniffed from content, not trusted from the request.
func (s *DiskStore) Save(ctx context.Context, fileName string, size int64, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if size > s.maxBytes {
		return "", apperrors.NewValidationError("image exceeds maximum size",
			map[string]any{"max_bytes": s.maxBytes, "size_bytes": size})
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(content, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	head = head[:n]

	mimeType := http.DetectContentType(head)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", apperrors.NewValidationError("only image uploads are accepted",
			map[string]any{"detected_type": mimeType})
	}

	ext := filepath.Ext(fileName)
	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)

	out, err := os.Create(path)
	if err != nil {
		return "", apperrors.NewStorageUnavailable(err)
	}
	defer out.Close()

	if _, err := out.Write(head); err != nil {
		return "", apperrors.NewStorageUnavailable(err)
	}
	// LimitReader guards against clients lying about the declared size.
	if _, err := io.Copy(out, io.LimitReader(content, s.maxBytes)); err != nil {
		return "", apperrors.NewStorageUnavailable(err)
	}

	return s.baseURL + "/" + name, nil
}
