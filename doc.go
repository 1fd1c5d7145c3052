// Package endpointqueue provides keyed sequential work queues for Go.
//
// Work is submitted under a logical key (for example an API route).
// Work sharing a key executes strictly one at a time in submission
// order; work under different keys proceeds fully in parallel. The
// system's parallelism equals the number of distinct live keys, not the
// number of in-flight submissions.
//
// # Quick Start
//
// Create a registry and submit operations through it:
//
//	registry := endpointqueue.NewQueueRegistry(endpointqueue.DefaultRegistryConfig())
//	defer registry.Dispose()
//
//	result, err := registry.Execute(ctx, "/api/orders", func(ctx context.Context) (any, error) {
//		return fetchOrders(ctx)
//	})
//
// The registry creates one WorkQueue per key lazily. Each queue owns a
// single worker goroutine that drains its buffer sequentially, resolves
// every caller's completion handle exactly once, and tracks per-queue
// statistics (monotonic counters plus a rolling mean over the most
// recent processing durations).
//
// # Key Concepts
//
// QueueRegistry: concurrency-safe map from key to WorkQueue. Routes
// submissions, aggregates statistics, and periodically evicts queues
// that have been inactive longer than a configured cutoff.
//
// WorkQueue: the per-key FIFO buffer plus its single worker loop. A
// bounded queue applies backpressure: submitters suspend until space
// frees up or their context fires.
//
// PrioritizedWorkQueue: a WorkQueue variant whose worker always picks
// the highest-priority buffered item (FIFO within equal priority) and
// which supports bulk cancellation of not-yet-started items at a given
// priority.
//
// # Statistics
//
// Stats snapshots are safe to read concurrently with in-flight work and
// are intended to be re-exposed by a host layer as read-only
// diagnostics:
//
//	stats := registry.GetStats("/api/orders")
//	all := registry.GetAllStats()
//
// The observability/prometheus subpackage exports the same activity as
// Prometheus collectors.
//
// # Scope
//
// This is an in-process primitive: no cross-process distribution, no
// durability across restarts, and no fairness guarantee across
// different keys; only per-key ordering is promised.
package endpointqueue
