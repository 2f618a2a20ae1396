package lazyarr

import (
	"golang.org/x/time/rate"

	"github.com/hupe1980/lazyarr/cache"
)

type options struct {
	logger     *Logger
	chunkCache cache.ChunkCache
	inventory  bool
}

// Option configures dataset open behavior.
type Option func(*options)

func defaultOptions() options {
	return options{
		logger:    NoopLogger(),
		inventory: true,
	}
}

// WithLogger configures the logger used by the dataset handle.
// If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithChunkCache attaches a read-through cache for decoded chunks.
//
// Chunk content is immutable for the lifetime of the handle, so the cache
// never needs invalidation; sizing it is purely a memory/latency trade-off.
func WithChunkCache(c cache.ChunkCache) Option {
	return func(o *options) {
		o.chunkCache = c
	}
}

// WithInventory controls whether Open lists the dataset prefix to build a
// per-variable bitmap of chunks present in storage. With an inventory,
// materialization serves absent chunks from the fill value without a storage
// round trip. Enabled by default; disable for stores where listing is slow
// or billed per request.
func WithInventory(enabled bool) Option {
	return func(o *options) {
		o.inventory = enabled
	}
}

type executorOptions struct {
	workers          int64
	fetchBytesPerSec float64
	logger           *Logger
	metrics          MetricsCollector
}

// ExecutorOption configures executor behavior.
type ExecutorOption func(*executorOptions)

func defaultExecutorOptions() executorOptions {
	return executorOptions{
		workers: 4,
		logger:  NoopLogger(),
		metrics: NoopMetricsCollector{},
	}
}

// WithWorkers configures the number of parallel chunk fetch/compute workers.
// If n <= 0, the default of 4 is kept.
func WithWorkers(n int) ExecutorOption {
	return func(o *executorOptions) {
		if n > 0 {
			o.workers = int64(n)
		}
	}
}

// WithFetchRateLimit bounds chunk fetch throughput, accounted in decoded
// bytes per second. If bytesPerSec <= 0, fetches are unlimited.
func WithFetchRateLimit(bytesPerSec float64) ExecutorOption {
	return func(o *executorOptions) {
		o.fetchBytesPerSec = bytesPerSec
	}
}

// WithExecutorLogger configures the logger used by the executor.
// If nil is passed, logging is disabled.
func WithExecutorLogger(l *Logger) ExecutorOption {
	return func(o *executorOptions) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// materializations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) ExecutorOption {
	return func(o *executorOptions) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

// Convenience for rate.Limiter construction kept in one place.
func newFetchLimiter(bytesPerSec float64) *rate.Limiter {
	if bytesPerSec <= 0 {
		return nil
	}
	// Allow bursts of one second's budget so single large chunks pass.
	return rate.NewLimiter(rate.Limit(bytesPerSec), int(bytesPerSec))
}
