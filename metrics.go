package lazyarr

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordChunkFetch is called after each chunk fetch against the
	// underlying store. bytes is the decoded chunk size, err is nil if
	// successful.
	RecordChunkFetch(bytes int, duration time.Duration, err error)

	// RecordFillChunk is called when a chunk is served from the fill value
	// without a storage round trip.
	RecordFillChunk()

	// RecordCacheHit is called when a chunk or persisted result is served
	// from cache.
	RecordCacheHit()

	// RecordMaterialize is called after each materialization.
	// chunks is the number of output chunks computed.
	RecordMaterialize(chunks int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordChunkFetch(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordFillChunk()                            {}
func (NoopMetricsCollector) RecordCacheHit()                             {}
func (NoopMetricsCollector) RecordMaterialize(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	FetchCount            atomic.Int64
	FetchErrors           atomic.Int64
	FetchBytes            atomic.Int64
	FetchTotalNanos       atomic.Int64
	FillChunks            atomic.Int64
	CacheHits             atomic.Int64
	MaterializeCount      atomic.Int64
	MaterializeErrors     atomic.Int64
	MaterializeChunks     atomic.Int64
	MaterializeTotalNanos atomic.Int64
}

// RecordChunkFetch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordChunkFetch(bytes int, duration time.Duration, err error) {
	b.FetchCount.Add(1)
	b.FetchBytes.Add(int64(bytes))
	b.FetchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FetchErrors.Add(1)
	}
}

// RecordFillChunk implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFillChunk() {
	b.FillChunks.Add(1)
}

// RecordCacheHit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCacheHit() {
	b.CacheHits.Add(1)
}

// RecordMaterialize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMaterialize(chunks int, duration time.Duration, err error) {
	b.MaterializeCount.Add(1)
	b.MaterializeChunks.Add(int64(chunks))
	b.MaterializeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.MaterializeErrors.Add(1)
	}
}
