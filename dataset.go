package lazyarr

import (
	"context"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/lazyarr/blobstore"
	"github.com/hupe1980/lazyarr/cache"
	"github.com/hupe1980/lazyarr/manifest"
)

// Dataset is a handle to a named collection of array variables sharing a
// dimension catalog. Opening a dataset transfers metadata only; chunk data
// moves exclusively through Executor.Materialize.
//
// A Dataset is immutable after Open and safe for concurrent use. There is no
// Close: the handle holds no connections beyond the store it was given.
type Dataset struct {
	store blobstore.Store
	path  string
	man   *manifest.Manifest

	// inventory maps variable name to a bitmap of chunks present in
	// storage (linear grid index). nil when listing was disabled or
	// unavailable; then absence is discovered per fetch.
	inventory map[string]*roaring.Bitmap

	chunkCache cache.ChunkCache
	logger     *Logger
}

// Open loads and validates the dataset catalog at path within store.
//
// Fails with ErrStorageUnavailable when the location cannot be reached or
// holds no chunked-array layout, and with ErrMetadataCorrupt when a catalog
// document cannot be parsed or fails validation.
func Open(ctx context.Context, store blobstore.Store, path string, optFns ...Option) (*Dataset, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	man, err := manifest.Load(ctx, store, path)
	if err != nil {
		err = translateOpenError(path, err)
		o.logger.LogOpen(ctx, path, 0, err)
		return nil, err
	}

	d := &Dataset{
		store:      store,
		path:       path,
		man:        man,
		chunkCache: o.chunkCache,
		logger:     o.logger,
	}

	if o.inventory {
		d.inventory = buildInventory(ctx, store, man, o.logger)
	}

	o.logger.LogOpen(ctx, path, len(man.Variables), nil)
	return d, nil
}

// buildInventory lists the dataset prefix and records which chunks exist.
// The inventory is an optimization; any listing failure yields nil and
// materialization falls back to per-fetch absence handling.
func buildInventory(ctx context.Context, store blobstore.Store, man *manifest.Manifest, logger *Logger) map[string]*roaring.Bitmap {
	prefix := ""
	if man.Path != "" {
		prefix = man.Path + "/"
	}

	keys, err := store.List(ctx, prefix)
	if err != nil {
		logger.DebugContext(ctx, "chunk inventory unavailable",
			"dataset", man.Path,
			"error", err,
		)
		return nil
	}

	inv := make(map[string]*roaring.Bitmap, len(man.Variables))
	for name := range man.Variables {
		inv[name] = roaring.New()
	}

	for _, key := range keys {
		rel := strings.TrimPrefix(key, prefix)
		i := strings.LastIndex(rel, "/")
		if i < 0 {
			continue
		}
		v, ok := man.Variables[rel[:i]]
		if !ok {
			continue
		}
		if coord, ok := v.ParseChunkKey(rel[i+1:]); ok {
			inv[v.Name].Add(v.LinearChunkIndex(coord))
		}
	}
	return inv
}

// Variable returns the named variable as a LazyArray leaf.
// Fails with ErrVariableNotFound; never touches chunk storage.
func (d *Dataset) Variable(name string) (*LazyArray, error) {
	v, ok := d.man.Variables[name]
	if !ok {
		return nil, &ErrVariableNotFound{Name: name, Available: d.man.VariableNames()}
	}
	return &LazyArray{node: newLeafNode(d, v)}, nil
}

// Variables returns the variable names in sorted order.
func (d *Dataset) Variables() []string {
	return d.man.VariableNames()
}

// Dims returns the shared dimension catalog (name to size).
func (d *Dataset) Dims() map[string]int {
	out := make(map[string]int, len(d.man.Dims))
	for k, v := range d.man.Dims {
		out[k] = v
	}
	return out
}

// Attrs returns the dataset-level attributes (units, projection,
// provenance). The returned map must be treated as read-only.
func (d *Dataset) Attrs() map[string]any {
	return d.man.Attrs
}

// VariableAttrs returns the attributes of one variable.
// The returned map must be treated as read-only.
func (d *Dataset) VariableAttrs(name string) (map[string]any, error) {
	v, ok := d.man.Variables[name]
	if !ok {
		return nil, &ErrVariableNotFound{Name: name, Available: d.man.VariableNames()}
	}
	return v.Attrs, nil
}

// Path returns the dataset prefix within its store.
func (d *Dataset) Path() string {
	return d.path
}
