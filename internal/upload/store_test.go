package upload

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-report-service/internal/config"
	apperrors "github.com/spec-kit/incident-report-service/pkg/util"
)

// pngHeader is the magic prefix http.DetectContentType recognizes as image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func newTestStore(t *testing.T, maxBytes int64) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(config.UploadConfig{
		Dir:      t.TempDir(),
		BaseURL:  "/uploads/",
		MaxBytes: maxBytes,
	})
	require.NoError(t, err)
	return store
}

func TestSaveAcceptsPNG(t *testing.T) {
	store := newTestStore(t, 1<<20)
	payload := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0x00}, 100)...)

	url, err := store.Save(context.Background(), "evidence.png", int64(len(payload)), bytes.NewReader(payload))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	written, err := os.ReadFile(filepath.Join(store.dir, strings.TrimPrefix(url, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, payload, written)
}

func TestSaveRejectsNonImageContent(t *testing.T) {
	store := newTestStore(t, 1<<20)
	payload := []byte("#!/bin/sh\necho pwned\n")

	_, err := store.Save(context.Background(), "evidence.png", int64(len(payload)), bytes.NewReader(payload))
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestSaveRejectsOversizedUpload(t *testing.T) {
	store := newTestStore(t, 64)

	_, err := store.Save(context.Background(), "evidence.png", 65, bytes.NewReader(pngHeader))
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestSaveGeneratesUniqueNames(t *testing.T) {
	store := newTestStore(t, 1<<20)
	payload := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0x00}, 16)...)

	first, err := store.Save(context.Background(), "same.png", int64(len(payload)), bytes.NewReader(payload))
	require.NoError(t, err)
	second, err := store.Save(context.Background(), "same.png", int64(len(payload)), bytes.NewReader(payload))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestSaveHonorsCancelledContext(t *testing.T) {
	store := newTestStore(t, 1<<20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Save(ctx, "evidence.png", 8, bytes.NewReader(pngHeader))
	require.Error(t, err)
}
