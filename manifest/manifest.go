// Package manifest loads and validates the metadata catalog of a chunked
// array dataset stored in the Zarr v2 layout.
//
// A dataset is a prefix in a blob store holding one JSON metadata document
// per variable (".zarray" plus optional ".zattrs") and one object per chunk,
// keyed by dot-joined grid indices ("u/1.0.0"). Stores written with
// consolidated metadata carry a single ".zmetadata" document describing the
// whole dataset, which lets Load finish in one round trip.
//
// All structural validation happens here, once, at load time: dtype strings,
// chunk grids, compressor ids and the cross-variable dimension catalog are
// checked so that later graph construction never has to re-validate shapes
// against storage.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/hupe1980/lazyarr/blobstore"
	"github.com/hupe1980/lazyarr/codec"
)

const (
	// ConsolidatedKey is the dataset-level consolidated metadata document.
	ConsolidatedKey = ".zmetadata"
	// ArrayKey is the per-variable array metadata document.
	ArrayKey = ".zarray"
	// AttrsKey is the per-variable (or dataset-level) attribute document.
	AttrsKey = ".zattrs"

	// DimensionsAttr carries the dimension names of a variable, per the
	// xarray convention.
	DimensionsAttr = "_ARRAY_DIMENSIONS"

	consolidatedFormat = 1
	zarrFormat         = 2
)

// ErrNotRecognized is returned when the location is reachable but does not
// contain a chunked-array layout.
var ErrNotRecognized = errors.New("manifest: no chunked-array layout found")

// ParseError indicates a metadata document that exists but cannot be
// interpreted.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ParseError struct {
	Key    string
	Reason string
	cause  error
}

func (e *ParseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("manifest: parse %s: %s: %v", e.Key, e.Reason, e.cause)
	}
	return fmt.Sprintf("manifest: parse %s: %s", e.Key, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.cause }

// Manifest is the validated metadata catalog of a dataset.
type Manifest struct {
	// Path is the dataset prefix within the store.
	Path string
	// Attrs holds dataset-level attributes (units, projection, provenance).
	Attrs map[string]any
	// Variables maps variable name to its validated metadata.
	Variables map[string]*Variable
	// Dims is the shared dimension catalog: name to size, consistent
	// across all variables.
	Dims map[string]int
}

// VariableNames returns the variable names in sorted order.
func (m *Manifest) VariableNames() []string {
	names := make([]string, 0, len(m.Variables))
	for name := range m.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Variable is the validated metadata of one array variable.
type Variable struct {
	Name   string
	Shape  []int
	Chunks []int
	Dims   []string
	DType  DType
	// Codec decodes the variable's chunk payloads.
	Codec codec.Codec
	// FillValue is the value of elements in chunks absent from storage.
	FillValue float64
	// DimSep separates grid indices in chunk keys ("." unless overridden).
	DimSep string
	Attrs  map[string]any
}

// Grid returns the number of chunks along each dimension.
func (v *Variable) Grid() []int {
	grid := make([]int, len(v.Shape))
	for i := range v.Shape {
		grid[i] = (v.Shape[i] + v.Chunks[i] - 1) / v.Chunks[i]
	}
	return grid
}

// NumChunks returns the total number of chunks in the grid.
func (v *Variable) NumChunks() int {
	n := 1
	for _, g := range v.Grid() {
		n *= g
	}
	return n
}

// ChunkElems returns the number of elements in a full (unclipped) chunk.
func (v *Variable) ChunkElems() int {
	n := 1
	for _, c := range v.Chunks {
		n *= c
	}
	return n
}

// ChunkKey renders the storage key suffix for the chunk at the given grid
// coordinate, e.g. [1 0 2] -> "1.0.2". A zero-dimensional array has the
// single chunk key "0".
func (v *Variable) ChunkKey(coord []int) string {
	if len(coord) == 0 {
		return "0"
	}
	var sb strings.Builder
	for i, c := range coord {
		if i > 0 {
			sb.WriteString(v.DimSep)
		}
		sb.WriteString(strconv.Itoa(c))
	}
	return sb.String()
}

// ParseChunkKey parses a chunk key suffix back into a grid coordinate.
// Returns false for metadata keys and malformed or out-of-grid coordinates.
func (v *Variable) ParseChunkKey(key string) ([]int, bool) {
	parts := strings.Split(key, v.DimSep)
	if len(parts) != len(v.Shape) {
		return nil, false
	}
	grid := v.Grid()
	coord := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n >= grid[i] {
			return nil, false
		}
		coord[i] = n
	}
	return coord, true
}

// LinearChunkIndex maps a grid coordinate to its row-major rank in the grid.
func (v *Variable) LinearChunkIndex(coord []int) uint32 {
	grid := v.Grid()
	idx := 0
	for i, c := range coord {
		idx = idx*grid[i] + c
	}
	return uint32(idx)
}

// SizeBytes returns the uncompressed size of the full variable.
func (v *Variable) SizeBytes() int64 {
	n := int64(v.DType.Size)
	for _, s := range v.Shape {
		n *= int64(s)
	}
	return n
}

// arrayMeta mirrors the ".zarray" JSON document.
type arrayMeta struct {
	ZarrFormat         int              `json:"zarr_format"`
	Shape              []int            `json:"shape"`
	Chunks             []int            `json:"chunks"`
	DType              string           `json:"dtype"`
	Compressor         *compressorMeta  `json:"compressor"`
	FillValue          any              `json:"fill_value"`
	Order              string           `json:"order"`
	Filters            []json.RawMessage `json:"filters"`
	DimensionSeparator string           `json:"dimension_separator"`
}

type compressorMeta struct {
	ID    string `json:"id"`
	Level int    `json:"level,omitempty"`
}

// consolidatedMeta mirrors the ".zmetadata" JSON document.
type consolidatedMeta struct {
	Format   int                        `json:"zarr_consolidated_format"`
	Metadata map[string]json.RawMessage `json:"metadata"`
}

// Load retrieves and validates the dataset catalog under path.
//
// Consolidated metadata is preferred; without it, Load lists the prefix and
// fetches per-variable documents. No chunk data is transferred.
func Load(ctx context.Context, store blobstore.Store, path string) (*Manifest, error) {
	m := &Manifest{
		Path:      path,
		Attrs:     map[string]any{},
		Variables: map[string]*Variable{},
		Dims:      map[string]int{},
	}

	raw, err := loadRawDocs(ctx, store, path)
	if err != nil {
		return nil, err
	}

	found := false
	for key, data := range raw {
		name, ok := strings.CutSuffix(key, "/"+ArrayKey)
		if !ok {
			continue
		}
		found = true

		v, err := parseVariable(name, key, data, raw[name+"/"+AttrsKey])
		if err != nil {
			return nil, err
		}
		m.Variables[name] = v
	}
	if !found {
		return nil, ErrNotRecognized
	}

	if data, ok := raw[AttrsKey]; ok {
		if err := json.Unmarshal(data, &m.Attrs); err != nil {
			return nil, &ParseError{Key: AttrsKey, Reason: "invalid attributes", cause: err}
		}
	}

	// Cross-variable dimension catalog: any dimension name two variables
	// share must have one size.
	for _, name := range m.VariableNames() {
		v := m.Variables[name]
		for i, dim := range v.Dims {
			if size, ok := m.Dims[dim]; ok && size != v.Shape[i] {
				return nil, &ParseError{
					Key:    name + "/" + ArrayKey,
					Reason: fmt.Sprintf("dimension %q has size %d here but %d elsewhere", dim, v.Shape[i], size),
				}
			}
			m.Dims[dim] = v.Shape[i]
		}
	}

	return m, nil
}

// loadRawDocs gathers all metadata documents as raw JSON, keyed relative to
// the dataset path.
func loadRawDocs(ctx context.Context, store blobstore.Store, path string) (map[string]json.RawMessage, error) {
	// Fast path: one consolidated document.
	data, err := blobstore.ReadAll(ctx, store, docKey(path, ConsolidatedKey))
	if err == nil {
		var cm consolidatedMeta
		if err := json.Unmarshal(data, &cm); err != nil {
			return nil, &ParseError{Key: ConsolidatedKey, Reason: "invalid consolidated metadata", cause: err}
		}
		if cm.Format != consolidatedFormat {
			return nil, &ParseError{
				Key:    ConsolidatedKey,
				Reason: fmt.Sprintf("unsupported consolidated format %d", cm.Format),
			}
		}
		return cm.Metadata, nil
	}
	if !errors.Is(err, blobstore.ErrNotFound) {
		return nil, err
	}

	// Slow path: enumerate metadata documents under the prefix. A dataset
	// at the store root lists everything.
	prefix := ""
	if path != "" {
		prefix = path + "/"
	}
	keys, err := store.List(ctx, prefix)
	if err != nil {
		if errors.Is(err, blobstore.ErrListUnsupported) {
			return nil, ErrNotRecognized
		}
		return nil, err
	}

	raw := map[string]json.RawMessage{}
	for _, key := range keys {
		rel := strings.TrimPrefix(key, prefix)
		base := rel[strings.LastIndex(rel, "/")+1:]
		if base != ArrayKey && base != AttrsKey {
			continue
		}
		data, err := blobstore.ReadAll(ctx, store, key)
		if err != nil {
			return nil, err
		}
		raw[rel] = data
	}
	return raw, nil
}

func parseVariable(name, key string, arrayDoc, attrsDoc json.RawMessage) (*Variable, error) {
	var am arrayMeta
	if err := json.Unmarshal(arrayDoc, &am); err != nil {
		return nil, &ParseError{Key: key, Reason: "invalid array metadata", cause: err}
	}
	fail := func(reason string) (*Variable, error) {
		return nil, &ParseError{Key: key, Reason: reason}
	}

	if am.ZarrFormat != zarrFormat {
		return fail(fmt.Sprintf("unsupported format version %d", am.ZarrFormat))
	}
	if len(am.Shape) != len(am.Chunks) {
		return fail(fmt.Sprintf("rank mismatch: shape has %d dimensions, chunks %d", len(am.Shape), len(am.Chunks)))
	}
	for i := range am.Shape {
		if am.Shape[i] < 0 || am.Chunks[i] <= 0 {
			return fail(fmt.Sprintf("invalid extent along dimension %d", i))
		}
	}
	if am.Order != "" && am.Order != "C" {
		return fail(fmt.Sprintf("unsupported chunk order %q", am.Order))
	}
	if len(am.Filters) > 0 {
		return fail("filter pipelines are not supported")
	}

	dt, err := ParseDType(am.DType)
	if err != nil {
		return nil, &ParseError{Key: key, Reason: "invalid dtype", cause: err}
	}

	compressorID := ""
	if am.Compressor != nil {
		compressorID = am.Compressor.ID
	}
	c, ok := codec.ByName(compressorID)
	if !ok {
		return fail(fmt.Sprintf("unknown compressor %q", compressorID))
	}

	fill, err := parseFillValue(am.FillValue)
	if err != nil {
		return nil, &ParseError{Key: key, Reason: "invalid fill_value", cause: err}
	}

	sep := am.DimensionSeparator
	if sep == "" {
		sep = "."
	}

	v := &Variable{
		Name:      name,
		Shape:     am.Shape,
		Chunks:    am.Chunks,
		DType:     dt,
		Codec:     c,
		FillValue: fill,
		DimSep:    sep,
		Attrs:     map[string]any{},
	}

	if len(attrsDoc) > 0 {
		if err := json.Unmarshal(attrsDoc, &v.Attrs); err != nil {
			return nil, &ParseError{Key: name + "/" + AttrsKey, Reason: "invalid attributes", cause: err}
		}
	}

	v.Dims, err = dimensionNames(v.Attrs, len(am.Shape))
	if err != nil {
		return nil, &ParseError{Key: name + "/" + AttrsKey, Reason: "invalid dimension names", cause: err}
	}

	return v, nil
}

// dimensionNames extracts _ARRAY_DIMENSIONS, synthesizing dim_<i> names for
// datasets written without the attribute.
func dimensionNames(attrs map[string]any, rank int) ([]string, error) {
	raw, ok := attrs[DimensionsAttr]
	if !ok {
		dims := make([]string, rank)
		for i := range dims {
			dims[i] = fmt.Sprintf("dim_%d", i)
		}
		return dims, nil
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s is not a list", DimensionsAttr)
	}
	if len(list) != rank {
		return nil, fmt.Errorf("%s names %d dimensions for a rank-%d array", DimensionsAttr, len(list), rank)
	}

	dims := make([]string, rank)
	for i, e := range list {
		s, ok := e.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("%s entry %d is not a name", DimensionsAttr, i)
		}
		dims[i] = s
	}
	return dims, nil
}

func parseFillValue(raw any) (float64, error) {
	switch v := raw.(type) {
	case nil:
		return math.NaN(), nil
	case float64:
		return v, nil
	case string:
		switch v {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		return 0, fmt.Errorf("unsupported fill_value %q", v)
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported fill_value type %T", raw)
	}
}

func docKey(path, name string) string {
	if path == "" {
		return name
	}
	return path + "/" + name
}
