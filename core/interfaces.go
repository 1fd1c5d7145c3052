package core

import "time"

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting queue activity metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Implementations must be safe for concurrent use. Methods should be
// non-blocking and fast to avoid impacting worker loop throughput.
type Metrics interface {
	// RecordProcessed records one successfully processed operation.
	RecordProcessed(key string, priority Priority, duration time.Duration)

	// RecordFailed records one failed or cancelled operation.
	RecordFailed(key string)

	// RecordQueued records one admitted operation.
	RecordQueued(key string)

	// RecordRejected records a submission that was never admitted
	// (disposed queue, or cancellation while waiting for capacity).
	RecordRejected(key string, reason string)

	// RecordQueueDepth records the current number of buffered items.
	RecordQueueDepth(key string, depth int)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordProcessed is a no-op.
func (m *NilMetrics) RecordProcessed(key string, priority Priority, duration time.Duration) {}

// RecordFailed is a no-op.
func (m *NilMetrics) RecordFailed(key string) {}

// RecordQueued is a no-op.
func (m *NilMetrics) RecordQueued(key string) {}

// RecordRejected is a no-op.
func (m *NilMetrics) RecordRejected(key string, reason string) {}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(key string, depth int) {}
