package core

import (
	"context"
)

// Operation is the unit of work submitted to a queue.
//
// The context passed to the operation is the submitting caller's context:
// cancelling it aborts waiting for queue capacity and is the signal a
// running operation should honor to stop early. The returned value is
// delivered to the caller that submitted the operation; the returned
// error is re-raised to that caller.
type Operation func(ctx context.Context) (any, error)

// =============================================================================
// Priority: Dispatch ordering for prioritized queues
// =============================================================================

// Priority orders dispatch within a single PrioritizedWorkQueue.
// Higher values are serviced first. Any integer value is accepted;
// the named levels below cover the common cases.
type Priority int

const (
	// PriorityLow: serviced after all Normal and High work.
	PriorityLow Priority = iota

	// PriorityNormal: the default priority.
	PriorityNormal

	// PriorityHigh: serviced before Normal and Low work.
	PriorityHigh
)

// priorityIdleBarrier sorts below every user priority so an idle
// barrier never overtakes pending work.
const priorityIdleBarrier Priority = -1 << 30
