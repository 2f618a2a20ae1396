package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, "ds/u/0.0", []byte("chunk-a")))
	require.NoError(t, store.Put(ctx, "ds/u/0.1", []byte("chunk-b")))
	require.NoError(t, store.Put(ctx, "ds/v/0.0", []byte("chunk-c")))

	// Whole-object read through the Getter fast path.
	data, err := ReadAll(ctx, store, "ds/u/0.0")
	require.NoError(t, err)
	assert.Equal(t, []byte("chunk-a"), data)

	// Open + ReadAt.
	blob, err := store.Open(ctx, "ds/u/0.1")
	require.NoError(t, err)
	defer blob.Close()

	assert.Equal(t, int64(7), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "chunk", string(buf))

	// Missing object.
	_, err = ReadAll(ctx, store, "ds/u/9.9")
	assert.ErrorIs(t, err, ErrNotFound)

	// Prefix listing.
	names, err := store.List(ctx, "ds/u/")
	require.NoError(t, err)
	assert.Equal(t, []string{"ds/u/0.0", "ds/u/0.1"}, names)

	// Delete.
	require.NoError(t, store.Delete(ctx, "ds/u/0.0"))
	_, err = ReadAll(ctx, store, "ds/u/0.0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	src := []byte("immutable")
	require.NoError(t, store.Put(ctx, "obj", src))
	src[0] = 'X'

	got, err := ReadAll(ctx, store, "obj")
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), got, "store must copy on Put")

	got[0] = 'Y'
	again, err := ReadAll(ctx, store, "obj")
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), again, "store must copy on Get")
}
