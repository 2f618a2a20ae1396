package lazyarr

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lazyarr/blobstore"
	"github.com/hupe1980/lazyarr/cache"
	"github.com/hupe1980/lazyarr/testutil"
)

func openWinds(t *testing.T, store blobstore.Store, optFns ...Option) *Dataset {
	t.Helper()
	ds, err := Open(context.Background(), store, "winds", optFns...)
	require.NoError(t, err)
	return ds
}

func mustVariable(t *testing.T, ds *Dataset, name string) *LazyArray {
	t.Helper()
	a, err := ds.Variable(name)
	require.NoError(t, err)
	return a
}

func TestMaterializeLeaf(t *testing.T) {
	ctx := context.Background()
	ds := openWinds(t, windspeedStore(t))
	exec := NewExecutor()

	res, err := exec.Materialize(ctx, mustVariable(t, ds, "u"), Ephemeral)
	require.NoError(t, err)

	assert.Equal(t, []int{4, 2, 2}, res.Shape())
	assert.Equal(t, []string{"time", "y", "x"}, res.Dims())
	assert.Equal(t, 3, res.Rank())
	assert.Equal(t, 16, res.Len())

	for ti := 0; ti < 4; ti++ {
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				assert.Equal(t, float64(ti), res.At(ti, y, x))
			}
		}
	}
}

func TestMaterializeEdgeChunks(t *testing.T) {
	// Shape not divisible by the chunk shape: edge chunks are partial.
	ctx := context.Background()

	data := make([]float64, 15)
	for i := range data {
		data[i] = float64(i)
	}
	store := blobstore.NewMemoryStore()
	require.NoError(t, testutil.Write(ctx, store, "winds", testutil.Dataset{
		Variables: map[string]testutil.Variable{
			"temp": {
				Shape:  []int{5, 3},
				Chunks: []int{2, 2},
				Dims:   []string{"y", "x"},
				Data:   data,
			},
		},
	}))

	ds := openWinds(t, store)
	exec := NewExecutor()

	res, err := exec.Materialize(ctx, mustVariable(t, ds, "temp"), Ephemeral)
	require.NoError(t, err)
	assert.Equal(t, data, res.Float64s())
}

func TestMaterializeHypotMax(t *testing.T) {
	ctx := context.Background()
	ds := openWinds(t, windspeedStore(t))
	exec := NewExecutor()

	u := mustVariable(t, ds, "u")
	v := mustVariable(t, ds, "v")

	speed, err := Hypot(u, v)
	require.NoError(t, err)

	res, err := exec.Materialize(ctx, speed, Ephemeral)
	require.NoError(t, err)
	for ti := 0; ti < 4; ti++ {
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				want := math.Hypot(float64(ti), float64(y+x))
				assert.InDelta(t, want, res.At(ti, y, x), 1e-12)
			}
		}
	}

	peak, err := speed.Max("time")
	require.NoError(t, err)

	got, err := exec.Materialize(ctx, peak, Ephemeral)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, got.Shape())
	assert.Equal(t, []string{"y", "x"}, got.Dims())
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			want := math.Hypot(3, float64(y+x))
			assert.InDelta(t, want, got.At(y, x), 1e-12)
		}
	}
}

func TestMaterializeReductions(t *testing.T) {
	ctx := context.Background()
	ds := openWinds(t, windspeedStore(t))
	exec := NewExecutor()

	u := mustVariable(t, ds, "u")
	v := mustVariable(t, ds, "v")

	t.Run("sum", func(t *testing.T) {
		sum, err := u.Sum("time")
		require.NoError(t, err)
		res, err := exec.Materialize(ctx, sum, Ephemeral)
		require.NoError(t, err)
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				assert.InDelta(t, 6.0, res.At(y, x), 1e-12)
			}
		}
	})

	t.Run("mean", func(t *testing.T) {
		mean, err := u.Mean("time")
		require.NoError(t, err)
		res, err := exec.Materialize(ctx, mean, Ephemeral)
		require.NoError(t, err)
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				assert.InDelta(t, 1.5, res.At(y, x), 1e-12)
			}
		}
	})

	t.Run("min over inner axis", func(t *testing.T) {
		low, err := v.Min("y")
		require.NoError(t, err)
		res, err := exec.Materialize(ctx, low, Ephemeral)
		require.NoError(t, err)
		assert.Equal(t, []int{4, 2}, res.Shape())
		assert.Equal(t, []string{"time", "x"}, res.Dims())
		for ti := 0; ti < 4; ti++ {
			for x := 0; x < 2; x++ {
				assert.InDelta(t, float64(x), res.At(ti, x), 1e-12)
			}
		}
	})
}

// jitterStore randomizes fetch latency so chunk completion order varies
// between runs.
type jitterStore struct {
	blobstore.Store
}

func (s jitterStore) Get(ctx context.Context, name string) ([]byte, error) {
	time.Sleep(time.Duration(rand.Intn(2000)) * time.Microsecond)
	return blobstore.ReadAll(ctx, s.Store, name)
}

func TestMaterializeDeterministic(t *testing.T) {
	ctx := context.Background()
	ds := openWinds(t, jitterStore{Store: windspeedStore(t)})
	exec := NewExecutor(WithWorkers(8))

	u := mustVariable(t, ds, "u")
	v := mustVariable(t, ds, "v")
	speed, err := Hypot(u, v)
	require.NoError(t, err)
	peak, err := speed.Max("time")
	require.NoError(t, err)

	first, err := exec.Materialize(ctx, peak, Ephemeral)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := exec.Materialize(ctx, peak, Ephemeral)
		require.NoError(t, err)
		assert.Equal(t, first.Float64s(), again.Float64s(), "run %d", i)
	}
}

func TestPersistedResultCache(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore(windspeedStore(t))
	ds := openWinds(t, store)
	exec := NewExecutor()

	u := mustVariable(t, ds, "u")
	v := mustVariable(t, ds, "v")
	speed, err := Hypot(u, v)
	require.NoError(t, err)

	first, err := exec.Materialize(ctx, speed, Persisted)
	require.NoError(t, err)
	baseline := store.chunkGets()
	assert.Equal(t, 4, baseline, "two chunks per operand variable")

	// Repeat on the same handle: served from the persisted result.
	again, err := exec.Materialize(ctx, speed, Persisted)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, baseline, store.chunkGets())

	// A structurally equal graph built independently shares the result,
	// even in ephemeral mode.
	u2 := mustVariable(t, ds, "u")
	v2 := mustVariable(t, ds, "v")
	speed2, err := Hypot(u2, v2)
	require.NoError(t, err)

	shared, err := exec.Materialize(ctx, speed2, Ephemeral)
	require.NoError(t, err)
	assert.Same(t, first, shared)
	assert.Equal(t, baseline, store.chunkGets())

	// A different graph misses.
	gust, err := speed.Scale(1.3)
	require.NoError(t, err)
	_, err = exec.Materialize(ctx, gust, Ephemeral)
	require.NoError(t, err)
	assert.Greater(t, store.chunkGets(), baseline)

	// Release frees the slot; the next run recomputes.
	exec.Release(speed)
	before := store.chunkGets()
	recomputed, err := exec.Materialize(ctx, speed2, Persisted)
	require.NoError(t, err)
	assert.NotSame(t, first, recomputed)
	assert.Greater(t, store.chunkGets(), before)
	assert.Equal(t, first.Float64s(), recomputed.Float64s())

	exec.ReleaseAll()
}

func TestPersistedSharedAcrossHandles(t *testing.T) {
	// Leaf identity is dataset path + variable name, so two handles to the
	// same dataset share persisted results on one executor.
	ctx := context.Background()
	store := windspeedStore(t)
	exec := NewExecutor()

	ds1 := openWinds(t, store)
	ds2 := openWinds(t, store)

	first, err := exec.Materialize(ctx, mustVariable(t, ds1, "u"), Persisted)
	require.NoError(t, err)

	again, err := exec.Materialize(ctx, mustVariable(t, ds2, "u"), Ephemeral)
	require.NoError(t, err)
	assert.Same(t, first, again)
}

func TestEphemeralDoesNotRetain(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore(windspeedStore(t))
	ds := openWinds(t, store)
	exec := NewExecutor()

	u := mustVariable(t, ds, "u")

	_, err := exec.Materialize(ctx, u, Ephemeral)
	require.NoError(t, err)
	assert.Equal(t, 2, store.chunkGets())

	_, err = exec.Materialize(ctx, u, Ephemeral)
	require.NoError(t, err)
	assert.Equal(t, 4, store.chunkGets(), "ephemeral results are not reused")
}

func TestChunkCache(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore(windspeedStore(t))
	lru := cache.NewLRU(1 << 20)
	ds := openWinds(t, store, WithChunkCache(lru))
	exec := NewExecutor()

	u := mustVariable(t, ds, "u")

	_, err := exec.Materialize(ctx, u, Ephemeral)
	require.NoError(t, err)
	assert.Equal(t, 2, store.chunkGets())
	assert.Equal(t, 2, lru.Len())

	// The second run recomputes but serves every chunk from cache.
	_, err = exec.Materialize(ctx, u, Ephemeral)
	require.NoError(t, err)
	assert.Equal(t, 2, store.chunkGets())
}

func TestISelNarrowsFetchSet(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore(windspeedStore(t))
	ds := openWinds(t, store)
	exec := NewExecutor()

	u := mustVariable(t, ds, "u")
	sel, err := u.ISel("time", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 2}, sel.Shape())

	res, err := exec.Materialize(ctx, sel, Ephemeral)
	require.NoError(t, err)
	for ti := 0; ti < 2; ti++ {
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				assert.Equal(t, float64(ti), res.At(ti, y, x))
			}
		}
	}

	assert.Equal(t, 1, store.chunkGets(), "selection must narrow the fetch set")
	assert.Zero(t, store.getsFor("winds/u/1.0.0"))

	// A selection crossing the chunk boundary needs both chunks.
	sel, err = u.ISel("time", 1, 3)
	require.NoError(t, err)
	res, err = exec.Materialize(ctx, sel, Ephemeral)
	require.NoError(t, err)
	assert.Equal(t, 3, store.chunkGets())
	for ti := 0; ti < 2; ti++ {
		assert.Equal(t, float64(ti+1), res.At(ti, 0, 0))
	}
}

func missingChunkStore(t *testing.T) *blobstore.MemoryStore {
	t.Helper()

	data := make([]float64, 16)
	for i := range data {
		data[i] = float64(i)
	}
	store := blobstore.NewMemoryStore()
	require.NoError(t, testutil.Write(context.Background(), store, "winds", testutil.Dataset{
		Variables: map[string]testutil.Variable{
			"u": {
				Shape:      []int{4, 2, 2},
				Chunks:     []int{2, 2, 2},
				Dims:       []string{"time", "y", "x"},
				Data:       data,
				SkipChunks: [][]int{{1, 0, 0}},
			},
		},
	}))
	return store
}

func TestMissingChunkReadsAsFill(t *testing.T) {
	ctx := context.Background()

	check := func(t *testing.T, res *ConcreteArray) {
		t.Helper()
		for ti := 0; ti < 2; ti++ {
			for y := 0; y < 2; y++ {
				for x := 0; x < 2; x++ {
					assert.Equal(t, float64(ti*4+y*2+x), res.At(ti, y, x))
					assert.True(t, math.IsNaN(res.At(ti+2, y, x)), "absent chunk reads as fill")
				}
			}
		}
	}

	t.Run("with inventory", func(t *testing.T) {
		store := newCountingStore(missingChunkStore(t))
		ds := openWinds(t, store)
		metrics := &BasicMetricsCollector{}
		exec := NewExecutor(WithMetricsCollector(metrics))

		res, err := exec.Materialize(ctx, mustVariable(t, ds, "u"), Ephemeral)
		require.NoError(t, err)
		check(t, res)

		assert.Zero(t, store.getsFor("winds/u/1.0.0"), "inventory avoids the round trip")
		assert.Equal(t, int64(1), metrics.FillChunks.Load())
	})

	t.Run("without inventory", func(t *testing.T) {
		store := newCountingStore(missingChunkStore(t))
		ds := openWinds(t, store, WithInventory(false))
		exec := NewExecutor()

		res, err := exec.Materialize(ctx, mustVariable(t, ds, "u"), Ephemeral)
		require.NoError(t, err)
		check(t, res)

		assert.Equal(t, 1, store.getsFor("winds/u/1.0.0"), "absence discovered per fetch")
	})
}

// flakyStore serves metadata but fails every chunk read.
type flakyStore struct {
	blobstore.Store
}

func (s flakyStore) Get(ctx context.Context, name string) ([]byte, error) {
	base := name[strings.LastIndex(name, "/")+1:]
	if !strings.HasPrefix(base, ".z") {
		return nil, errors.New("503 slow down")
	}
	return blobstore.ReadAll(ctx, s.Store, name)
}

func TestMaterializeChunkFetchError(t *testing.T) {
	ctx := context.Background()
	ds := openWinds(t, flakyStore{Store: windspeedStore(t)})
	exec := NewExecutor()

	_, err := exec.Materialize(ctx, mustVariable(t, ds, "u"), Ephemeral)

	var cf *ErrChunkFetchFailed
	require.ErrorAs(t, err, &cf)
	assert.Equal(t, "winds", cf.Location)
	assert.Equal(t, "u", cf.Variable)
	assert.NotEmpty(t, cf.Key)
}

func TestMaterializeCorruptChunk(t *testing.T) {
	ctx := context.Background()
	store := windspeedStore(t)
	require.NoError(t, store.Put(ctx, "winds/u/0.0.0", []byte("short")))

	ds := openWinds(t, store)
	exec := NewExecutor()

	_, err := exec.Materialize(ctx, mustVariable(t, ds, "u"), Ephemeral)

	var cf *ErrChunkFetchFailed
	require.ErrorAs(t, err, &cf)
	assert.Equal(t, "0.0.0", cf.Key)
}

func TestMaterializeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lru := cache.NewLRU(1 << 20)
	ds := openWinds(t, windspeedStore(t), WithChunkCache(lru))
	exec := NewExecutor()

	_, err := exec.Materialize(ctx, mustVariable(t, ds, "u"), Persisted)
	require.Error(t, err)

	assert.Zero(t, lru.Len(), "a cancelled run must not populate the chunk cache")

	exec.mu.RLock()
	n := len(exec.results)
	exec.mu.RUnlock()
	assert.Zero(t, n, "a cancelled run must not persist a result")
}

func TestExecutorOptionsSmoke(t *testing.T) {
	ctx := context.Background()
	ds := openWinds(t, windspeedStore(t))
	exec := NewExecutor(
		WithWorkers(2),
		WithFetchRateLimit(1<<24),
		WithExecutorLogger(nil),
		WithMetricsCollector(nil),
	)

	res, err := exec.Materialize(ctx, mustVariable(t, ds, "u"), Ephemeral)
	require.NoError(t, err)
	assert.Equal(t, 16, res.Len())
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "ephemeral", Ephemeral.String())
	assert.Equal(t, "persisted", Persisted.String())
	assert.Equal(t, "unknown", Mode(9).String())
}
