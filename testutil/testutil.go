// Package testutil builds small chunked-array datasets in memory.
//
// Tests and examples use it to stock a blobstore.MemoryStore with a valid
// Zarr v2 layout: per-variable metadata, encoded and compressed chunk
// objects, and optional consolidated metadata.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/lazyarr/blobstore"
	"github.com/hupe1980/lazyarr/codec"
	"github.com/hupe1980/lazyarr/manifest"
)

// Variable describes one array variable of a fixture dataset.
type Variable struct {
	Shape  []int
	Chunks []int
	// Dims are the dimension names; optional.
	Dims []string
	// DType is the manifest dtype string; "<f8" when empty.
	DType string
	// Compressor is the codec name; "raw" when empty.
	Compressor string
	// Data is the full array, row-major. Chunks fully outside Data are
	// not written, so a nil Data yields an all-fill variable.
	Data []float64
	// SkipChunks lists grid coordinates whose chunk object is omitted
	// even though Data covers it (reads as fill value).
	SkipChunks [][]int
	// Attrs are merged into the variable's attribute document.
	Attrs map[string]any
}

// Dataset describes a fixture dataset.
type Dataset struct {
	// Attrs are dataset-level attributes.
	Attrs map[string]any
	// Variables maps variable name to its description.
	Variables map[string]Variable
	// Consolidated controls whether a consolidated metadata document is
	// written in addition to the per-variable documents.
	Consolidated bool
}

// Write stocks store with the dataset under path.
func Write(ctx context.Context, store *blobstore.MemoryStore, path string, ds Dataset) error {
	consolidated := map[string]json.RawMessage{}

	put := func(key string, doc any) error {
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		consolidated[key] = data
		return store.Put(ctx, joinKey(path, key), data)
	}

	if ds.Attrs != nil {
		if err := put(manifest.AttrsKey, ds.Attrs); err != nil {
			return err
		}
	}

	for name, v := range ds.Variables {
		if err := writeVariable(ctx, store, path, name, v, put); err != nil {
			return fmt.Errorf("variable %s: %w", name, err)
		}
	}

	if ds.Consolidated {
		doc := map[string]any{
			"zarr_consolidated_format": 1,
			"metadata":                 consolidated,
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return store.Put(ctx, joinKey(path, manifest.ConsolidatedKey), data)
	}
	return nil
}

func writeVariable(ctx context.Context, store *blobstore.MemoryStore, path, name string, v Variable, put func(string, any) error) error {
	dtype := v.DType
	if dtype == "" {
		dtype = "<f8"
	}
	dt, err := manifest.ParseDType(dtype)
	if err != nil {
		return err
	}

	compressorName := v.Compressor
	if compressorName == "" {
		compressorName = "raw"
	}
	c, ok := codec.ByName(compressorName)
	if !ok {
		return fmt.Errorf("unknown compressor %q", compressorName)
	}
	var compressorDoc any
	if compressorName != "raw" {
		compressorDoc = map[string]any{"id": compressorName}
	}

	arrayDoc := map[string]any{
		"zarr_format": 2,
		"shape":       v.Shape,
		"chunks":      v.Chunks,
		"dtype":       dtype,
		"compressor":  compressorDoc,
		"fill_value":  nil,
		"order":       "C",
		"filters":     nil,
	}
	if err := put(name+"/"+manifest.ArrayKey, arrayDoc); err != nil {
		return err
	}

	attrs := map[string]any{}
	for k, val := range v.Attrs {
		attrs[k] = val
	}
	if v.Dims != nil {
		attrs[manifest.DimensionsAttr] = v.Dims
	}
	if len(attrs) > 0 {
		if err := put(name+"/"+manifest.AttrsKey, attrs); err != nil {
			return err
		}
	}

	if v.Data == nil {
		return nil
	}

	return writeChunks(ctx, store, path, name, v, dt, c)
}

func writeChunks(ctx context.Context, store *blobstore.MemoryStore, path, name string, v Variable, dt manifest.DType, c codec.Codec) error {
	rank := len(v.Shape)
	grid := make([]int, rank)
	chunkElems := 1
	for i := range grid {
		grid[i] = (v.Shape[i] + v.Chunks[i] - 1) / v.Chunks[i]
		chunkElems *= v.Chunks[i]
	}

	arrStr := rowMajorStrides(v.Shape)

	for coord := range allCoords(grid) {
		if skipped(v.SkipChunks, coord) {
			continue
		}

		// Gather the chunk block from the full array; out-of-bounds
		// positions (edge chunks) stay zero, they are never read back.
		block := make([]float64, chunkElems)
		for i, ix := range allCoordsIndexed(v.Chunks) {
			inBounds := true
			src := 0
			for d := 0; d < rank; d++ {
				p := coord[d]*v.Chunks[d] + ix[d]
				if p >= v.Shape[d] {
					inBounds = false
					break
				}
				src += p * arrStr[d]
			}
			if inBounds {
				block[i] = v.Data[src]
			}
		}

		payload, err := c.Compress(dt.EncodeFloat64s(block))
		if err != nil {
			return err
		}

		key := chunkKeyFor(coord)
		if err := store.Put(ctx, joinKey(path, name+"/"+key), payload); err != nil {
			return err
		}
	}
	return nil
}

func chunkKeyFor(coord []int) string {
	if len(coord) == 0 {
		return "0"
	}
	key := ""
	for i, c := range coord {
		if i > 0 {
			key += "."
		}
		key += fmt.Sprintf("%d", c)
	}
	return key
}

func skipped(skips [][]int, coord []int) bool {
	for _, s := range skips {
		if len(s) != len(coord) {
			continue
		}
		match := true
		for i := range s {
			if s[i] != coord[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func rowMajorStrides(shape []int) []int {
	str := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		str[i] = acc
		acc *= shape[i]
	}
	return str
}

// allCoords yields every coordinate of a grid in row-major order.
func allCoords(grid []int) func(func([]int) bool) {
	return func(yield func([]int) bool) {
		total := 1
		for _, g := range grid {
			total *= g
		}
		if total == 0 {
			return
		}
		cur := make([]int, len(grid))
		for {
			if !yield(append([]int(nil), cur...)) {
				return
			}
			i := len(grid) - 1
			for ; i >= 0; i-- {
				cur[i]++
				if cur[i] < grid[i] {
					break
				}
				cur[i] = 0
			}
			if i < 0 {
				return
			}
		}
	}
}

// allCoordsIndexed yields (rank, coordinate) pairs in row-major order.
func allCoordsIndexed(grid []int) func(func(int, []int) bool) {
	return func(yield func(int, []int) bool) {
		i := 0
		for c := range allCoords(grid) {
			if !yield(i, c) {
				return
			}
			i++
		}
	}
}

func joinKey(path, key string) string {
	if path == "" {
		return key
	}
	return path + "/" + key
}
