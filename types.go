package endpointqueue

import (
	"context"

	"github.com/tzuhan/go-endpoint-queue/core"
)

// Re-export commonly used types from core package for convenience.
// This allows users to import only the endpointqueue package for most use cases.

// Operation is the unit of work submitted to a queue.
type Operation = core.Operation

// Priority orders dispatch within a PrioritizedWorkQueue.
type Priority = core.Priority

// QueueRegistry routes submissions to per-key work queues.
type QueueRegistry = core.QueueRegistry

// WorkQueue serializes operations submitted under one key.
type WorkQueue = core.WorkQueue

// PrioritizedWorkQueue is a WorkQueue with priority-ordered dispatch.
type PrioritizedWorkQueue = core.PrioritizedWorkQueue

// QueueStats is an immutable snapshot of one queue's counters.
type QueueStats = core.QueueStats

// ExecutionRecord captures one completed item execution.
type ExecutionRecord = core.ExecutionRecord

// RegistryConfig holds configuration options for a QueueRegistry.
type RegistryConfig = core.RegistryConfig

// QueueConfig holds construction options for a single work queue.
type QueueConfig = core.QueueConfig

// Metrics is the pluggable observability interface.
type Metrics = core.Metrics

// Priority constants
const (
	PriorityLow    Priority = core.PriorityLow
	PriorityNormal Priority = core.PriorityNormal
	PriorityHigh   Priority = core.PriorityHigh
)

// Sentinel errors
var (
	ErrQueueDisposed    = core.ErrQueueDisposed
	ErrRegistryDisposed = core.ErrRegistryDisposed
	ErrItemCancelled    = core.ErrItemCancelled
)

// Configuration helpers re-exported from core.
var (
	DefaultRegistryConfig = core.DefaultRegistryConfig
	RegistryConfigFromEnv = core.RegistryConfigFromEnv
)

// NewQueueRegistry creates a registry and starts its idle sweep.
func NewQueueRegistry(cfg RegistryConfig) *QueueRegistry {
	return core.NewQueueRegistry(cfg)
}

// NewWorkQueue creates a standalone queue for advanced users who manage
// queue lifecycles themselves.
func NewWorkQueue(key string, cfg QueueConfig) *WorkQueue {
	return core.NewWorkQueue(key, cfg)
}

// NewPrioritizedWorkQueue creates a standalone prioritized queue.
func NewPrioritizedWorkQueue(key string, cfg QueueConfig) *PrioritizedWorkQueue {
	return core.NewPrioritizedWorkQueue(key, cfg)
}

// Execute submits an operation with a typed result through the registry.
func Execute[T any](ctx context.Context, r *QueueRegistry, key string, op func(ctx context.Context) (T, error)) (T, error) {
	return core.ExecuteTyped(ctx, r, key, op)
}
