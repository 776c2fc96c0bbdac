package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/heapwalker/pkg/errors"
)

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestLocalStorage_UploadDownload(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "app/heap.json", bytes.NewReader([]byte(`{"classes":[]}`))))

	rc, err := s.Download(ctx, "app/heap.json")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, `{"classes":[]}`, string(data))

	ok, err := s.Exists(ctx, "app/heap.json")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalStorage_DownloadMissing(t *testing.T) {
	s := newLocal(t)

	_, err := s.Download(context.Background(), "missing.json")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s := newLocal(t)

	err := s.Upload(context.Background(), "../escape.json", bytes.NewReader(nil))
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestLocalStorage_Delete(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "a.json", bytes.NewReader([]byte("x"))))
	require.NoError(t, s.Delete(ctx, "a.json"))
	require.NoError(t, s.Delete(ctx, "a.json"))

	ok, err := s.Exists(ctx, "a.json")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorage_List(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	for _, key := range []string{"b/2.json", "a/1.json", "b/1.json"} {
		require.NoError(t, s.Upload(ctx, key, bytes.NewReader([]byte("x"))))
	}

	keys, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1.json", "b/1.json", "b/2.json"}, keys)

	keys, err = s.List(ctx, "b/")
	require.NoError(t, err)
	assert.Equal(t, []string{"b/1.json", "b/2.json"}, keys)
}

func TestLocalStorage_ListSkipsTempFiles(t *testing.T) {
	s := newLocal(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.BasePath(), ".upload-123"), []byte("x"), 0644))

	keys, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLocalStorage_CanceledContext(t *testing.T) {
	s := newLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Download(ctx, "a.json")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalStorage_GetURL(t *testing.T) {
	s := newLocal(t)
	assert.Equal(t, filepath.Join(s.BasePath(), "a", "b.json"), s.GetURL("a/b.json"))
	assert.Empty(t, s.GetURL("../x"))
}
