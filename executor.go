package lazyarr

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/hupe1980/lazyarr/blobstore"
	"github.com/hupe1980/lazyarr/cache"
	"github.com/hupe1980/lazyarr/manifest"
)

// Mode selects what happens to a materialized result.
type Mode uint8

const (
	// Ephemeral returns the result without retaining it; a later
	// materialization of the same graph re-fetches and recomputes.
	Ephemeral Mode = iota
	// Persisted retains the result keyed by the structural hash of the
	// computation graph for the lifetime of the executor (or until
	// Release). Any later materialization of a structurally equal graph,
	// in either mode, returns the retained value without I/O.
	Persisted
)

func (m Mode) String() string {
	switch m {
	case Ephemeral:
		return "ephemeral"
	case Persisted:
		return "persisted"
	default:
		return "unknown"
	}
}

// Executor forces LazyArrays to concrete values.
//
// It owns the process-wide scheduling state: a bounded worker pool shared by
// all Materialize calls, an in-flight fetch deduplicator, an optional fetch
// rate limit, and the persisted-result cache. Create one Executor and reuse
// it; it is safe for concurrent use.
//
// Persisted results are keyed structurally, with leaves identified by dataset
// path and variable name. Two handles to the same path therefore share
// results regardless of which Store they were opened with; an Executor must
// not be shared across stores that serve different data under the same path.
type Executor struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	logger  *Logger
	metrics MetricsCollector

	// inflight collapses concurrent fetches of the same chunk address
	// into one storage round trip. Purely a performance property: chunk
	// content is immutable, so duplicate fetches would be wasteful, not
	// unsafe.
	inflight singleflight.Group

	mu      sync.RWMutex
	results map[uint64]*ConcreteArray
}

// NewExecutor creates an Executor with the given options.
func NewExecutor(optFns ...ExecutorOption) *Executor {
	o := defaultExecutorOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	return &Executor{
		sem:     semaphore.NewWeighted(o.workers),
		limiter: newFetchLimiter(o.fetchBytesPerSec),
		logger:  o.logger,
		metrics: o.metrics,
		results: make(map[uint64]*ConcreteArray),
	}
}

// Materialize forces a LazyArray to a concrete value.
//
// The computation graph is walked to determine the minimal set of stored
// chunks the result needs; those are fetched concurrently on the worker
// pool, internal operations run chunk-locally, and reductions fold
// chunk-local partials. A single failing chunk fails the whole call with
// ErrChunkFetchFailed naming that chunk; no partial result is returned, and
// no partial state enters any cache.
func (e *Executor) Materialize(ctx context.Context, a *LazyArray, mode Mode) (*ConcreteArray, error) {
	n := a.node

	e.mu.RLock()
	res, ok := e.results[n.hash]
	e.mu.RUnlock()
	if ok {
		e.metrics.RecordCacheHit()
		return res, nil
	}

	start := time.Now()
	out := make([]float64, n.numElems())
	coords := enumCoords(gridShape(n.shape, n.chunks))

	g, gctx := errgroup.WithContext(ctx)
	for _, coord := range coords {
		reg := chunkRegion(n.shape, n.chunks, coord)
		g.Go(func() error {
			if err := e.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer e.sem.Release(1)

			block, err := e.eval(gctx, n, reg)
			if err != nil {
				return err
			}
			// Disjoint output regions: no synchronization needed.
			copyBox(out, n.shape, reg.off, block, reg.size, zeros(len(reg.size)), reg.size)
			return nil
		})
	}

	err := g.Wait()
	elapsed := time.Since(start)
	e.logger.LogMaterialize(ctx, len(coords), mode, elapsed, err)
	e.metrics.RecordMaterialize(len(coords), elapsed, err)
	if err != nil {
		return nil, err
	}

	res = &ConcreteArray{dims: n.dims, shape: n.shape, data: out}
	if mode == Persisted {
		e.mu.Lock()
		if prev, ok := e.results[n.hash]; ok {
			// Lost a race with an equal graph; keep one copy.
			res = prev
		} else {
			e.results[n.hash] = res
		}
		e.mu.Unlock()
	}
	return res, nil
}

// Release drops the persisted result of a, if any.
func (e *Executor) Release(a *LazyArray) {
	e.mu.Lock()
	delete(e.results, a.node.hash)
	e.mu.Unlock()
}

// ReleaseAll drops all persisted results.
func (e *Executor) ReleaseAll() {
	e.mu.Lock()
	e.results = make(map[uint64]*ConcreteArray)
	e.mu.Unlock()
}

// eval produces the values of node n within the element box reg, row-major.
// Returned blocks may be shared (cached); callers must not mutate them.
func (e *Executor) eval(ctx context.Context, n *node, reg region) ([]float64, error) {
	switch n.kind {
	case kindLeaf:
		return e.evalLeaf(ctx, n, reg)

	case kindSel:
		child := region{off: append([]int(nil), reg.off...), size: reg.size}
		child.off[n.axis] += n.start
		return e.eval(ctx, n.operands[0], child)

	case kindElementwise:
		blocks := make([][]float64, len(n.operands))
		for i, op := range n.operands {
			b, err := e.eval(ctx, op, reg)
			if err != nil {
				return nil, err
			}
			blocks[i] = b
		}
		dst := make([]float64, reg.numel())
		n.ew.Apply(dst, blocks)
		return dst, nil

	case kindReduce:
		return e.evalReduce(ctx, n, reg)

	default:
		panic("lazyarr: unknown node kind")
	}
}

// evalReduce folds the reduced axis one chunk span at a time, so at most one
// span of operand data is held per output box regardless of the axis extent.
func (e *Executor) evalReduce(ctx context.Context, n *node, reg region) ([]float64, error) {
	operand := n.operands[0]
	axis := n.axis
	op := n.red

	accs := make([][2]float64, reg.numel())
	for i := range accs {
		accs[i] = op.identity
	}

	extent := operand.shape[axis]
	span := operand.chunks[axis]

	for k := 0; k < extent; k += span {
		width := span
		if k+width > extent {
			width = extent - k
		}
		childReg := region{
			off:  insertAt(reg.off, axis, k),
			size: insertAt(reg.size, axis, width),
		}

		block, err := e.eval(ctx, operand, childReg)
		if err != nil {
			return nil, err
		}

		// Fold the axis away: element (pre, j, post) of the block lands
		// in accumulator (pre, post).
		pre := prodInts(childReg.size[:axis])
		post := prodInts(childReg.size[axis+1:])
		i := 0
		for p := 0; p < pre; p++ {
			base := p * post
			for j := 0; j < width; j++ {
				for q := 0; q < post; q++ {
					accs[base+q] = op.step(accs[base+q], block[i])
					i++
				}
			}
		}
	}

	dst := make([]float64, len(accs))
	for i, acc := range accs {
		dst[i] = op.finish(acc)
	}
	return dst, nil
}

// evalLeaf assembles reg from the stored chunks intersecting it. Only those
// chunks are fetched; selection pushed down from ancestor nodes therefore
// narrows the fetch set, not just the returned values.
func (e *Executor) evalLeaf(ctx context.Context, n *node, reg region) ([]float64, error) {
	v := n.variable
	dst := make([]float64, reg.numel())

	rank := len(v.Shape)
	lo := make([]int, rank)
	span := make([]int, rank)
	for i := 0; i < rank; i++ {
		lo[i] = reg.off[i] / v.Chunks[i]
		span[i] = (reg.off[i]+reg.size[i]-1)/v.Chunks[i] - lo[i] + 1
	}

	for _, rel := range enumCoords(span) {
		coord := make([]int, rank)
		for i := range coord {
			coord[i] = lo[i] + rel[i]
		}

		block, err := e.fetchChunk(ctx, n.ds, v, coord)
		if err != nil {
			return nil, err
		}

		// Intersection of the chunk box with reg, in both coordinate frames.
		srcOff := make([]int, rank)
		dstOff := make([]int, rank)
		sz := make([]int, rank)
		for i := 0; i < rank; i++ {
			chunkStart := coord[i] * v.Chunks[i]
			start := max(chunkStart, reg.off[i])
			end := min(chunkStart+v.Chunks[i], reg.off[i]+reg.size[i])
			srcOff[i] = start - chunkStart
			dstOff[i] = start - reg.off[i]
			sz[i] = end - start
		}
		copyBox(dst, reg.size, dstOff, block, v.Chunks, srcOff, sz)
	}
	return dst, nil
}

// fetchChunk returns the decoded block of one stored chunk (full chunk
// shape, row-major). Results may come from the dataset's chunk cache, the
// fill value (chunk absent from storage), or a deduplicated storage fetch.
func (e *Executor) fetchChunk(ctx context.Context, ds *Dataset, v *manifest.Variable, coord []int) ([]float64, error) {
	ci := v.LinearChunkIndex(coord)
	ckey := cache.Key{Dataset: ds.path, Variable: v.Name, Chunk: ci}

	if ds.chunkCache != nil {
		if block, ok := ds.chunkCache.Get(ckey); ok {
			e.metrics.RecordCacheHit()
			return block, nil
		}
	}

	if bm, ok := ds.inventory[v.Name]; ok && bm != nil && !bm.Contains(ci) {
		e.metrics.RecordFillChunk()
		return fillBlock(v), nil
	}

	key := v.ChunkKey(coord)
	objectKey := chunkObjectKey(ds.path, v.Name, key)

	res, err, _ := e.inflight.Do(objectKey, func() (any, error) {
		if e.limiter != nil {
			budget := v.ChunkElems() * v.DType.Size
			if b := e.limiter.Burst(); budget > b {
				budget = b
			}
			if err := e.limiter.WaitN(ctx, budget); err != nil {
				return nil, err
			}
		}

		start := time.Now()
		data, err := blobstore.ReadAll(ctx, ds.store, objectKey)
		if err != nil {
			if errors.Is(err, blobstore.ErrNotFound) {
				e.metrics.RecordFillChunk()
				return fillBlock(v), nil
			}
			e.metrics.RecordChunkFetch(0, time.Since(start), err)
			return nil, &ErrChunkFetchFailed{Location: ds.path, Variable: v.Name, Key: key, cause: err}
		}

		raw, err := v.Codec.Decompress(data)
		if err != nil {
			e.metrics.RecordChunkFetch(len(data), time.Since(start), err)
			return nil, &ErrChunkFetchFailed{Location: ds.path, Variable: v.Name, Key: key, cause: err}
		}

		block := make([]float64, v.ChunkElems())
		if err := v.DType.DecodeFloat64s(block, raw); err != nil {
			e.metrics.RecordChunkFetch(len(raw), time.Since(start), err)
			return nil, &ErrChunkFetchFailed{Location: ds.path, Variable: v.Name, Key: key, cause: err}
		}
		e.metrics.RecordChunkFetch(len(raw), time.Since(start), nil)

		// Cache only fully decoded chunks; a cancelled or failed fetch
		// never populates the cache.
		if ds.chunkCache != nil {
			ds.chunkCache.Set(ckey, block)
		}
		return block, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]float64), nil
}

func fillBlock(v *manifest.Variable) []float64 {
	block := make([]float64, v.ChunkElems())
	for i := range block {
		block[i] = v.FillValue
	}
	return block
}

func chunkObjectKey(path, variable, key string) string {
	if path == "" {
		return variable + "/" + key
	}
	return path + "/" + variable + "/" + key
}
