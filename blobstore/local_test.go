package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, name string, data []byte) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewLocalStore(root)

	data := []byte("hello world, this is a chunk object")
	writeFile(t, root, "ds/u/0.0.0", data)
	writeFile(t, root, "ds/u/1.0.0", []byte("second"))
	writeFile(t, root, "ds/u/.zarray", []byte("{}"))

	blob, err := store.Open(ctx, "ds/u/0.0.0")
	require.NoError(t, err)
	defer blob.Close()

	assert.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "world", string(buf))

	got, err := ReadAll(ctx, store, "ds/u/1.0.0")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	_, err = store.Open(ctx, "ds/u/9.9.9")
	assert.ErrorIs(t, err, ErrNotFound)

	names, err := store.List(ctx, "ds/u/")
	require.NoError(t, err)
	assert.Equal(t, []string{"ds/u/.zarray", "ds/u/0.0.0", "ds/u/1.0.0"}, names)
}

func TestLocalStoreEmptyFile(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewLocalStore(root)

	writeFile(t, root, "empty", nil)

	blob, err := store.Open(ctx, "empty")
	require.NoError(t, err)
	defer blob.Close()

	assert.Equal(t, int64(0), blob.Size())

	got, err := ReadAll(ctx, store, "empty")
	require.NoError(t, err)
	assert.Empty(t, got)
}
