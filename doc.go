// Package lazyarr provides lazy, chunk-granular access to multi-dimensional
// gridded array datasets backed by blob storage.
//
// A Dataset is opened against a blob store holding a Zarr v2 layout; opening
// transfers only metadata. Variables looked up on the handle are LazyArrays:
// immutable nodes in a computation graph that record arithmetic and reduction
// operations without touching storage. An Executor materializes a LazyArray
// by fetching exactly the chunks the result needs, running chunk-local
// compute on a bounded worker pool, and assembling the concrete result.
//
// # Quick start
//
//	ctx := context.Background()
//
//	store, err := s3.NewDefaultStore(ctx, "forecasts", "")
//	if err != nil { ... }
//
//	ds, err := lazyarr.Open(ctx, store, "gfs/2024-06-01")
//	if err != nil { ... }
//
//	u, _ := ds.Variable("u10")
//	v, _ := ds.Variable("v10")
//
//	speed, _ := lazyarr.Hypot(u, v) // still lazy: no chunk I/O yet
//	peak, _ := speed.Max("time")
//
//	exec := lazyarr.NewExecutor(lazyarr.WithWorkers(8))
//	grid, err := exec.Materialize(ctx, peak, lazyarr.Persisted)
//	if err != nil { ... }
//
// # Laziness
//
// Graph construction (Open, Variable, Elementwise, Reduce, ISel) never blocks
// and never performs chunk I/O; contract violations (unknown variable or
// dimension, shape mismatch) surface synchronously at the offending call.
// Only Materialize touches chunk storage, and a fetch failure there reports
// the exact chunk that could not be read.
//
// # Caching
//
// Materialize in Persisted mode retains the concrete result keyed by a
// structural hash of the computation graph, so structurally equal graphs
// built independently share one entry. A decoded-chunk LRU (see
// lazyarr/cache) can additionally be attached to a Dataset for read-through
// chunk caching across distinct computations.
package lazyarr
