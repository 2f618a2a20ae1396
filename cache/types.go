// Package cache provides read-through caching of decoded chunks.
//
// Chunk content is immutable for the lifetime of a dataset handle, so cached
// entries never need invalidation; eviction is purely a capacity concern.
package cache

// Key identifies a decoded chunk.
//
// Dataset is the dataset path within its store, Variable the array name and
// Chunk the row-major rank of the chunk in the variable's chunk grid.
type Key struct {
	Dataset  string
	Variable string
	Chunk    uint32
}

// ChunkCache is a cache for decoded, immutable chunk blocks.
// Returned slices must be treated as read-only.
// Implementations must be safe for concurrent use.
type ChunkCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(key Key) (block []float64, ok bool)
	// Set caches a block. The caller must not mutate block afterwards.
	Set(key Key, block []float64)
}
