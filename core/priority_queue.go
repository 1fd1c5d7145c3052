package core

import (
	"context"
)

// PrioritizedWorkQueue is a WorkQueue whose worker loop always picks
// the next item from the highest-priority non-empty lane; within a
// lane, submission order is preserved. It additionally supports bulk
// cancellation of not-yet-started items at a given priority.
type PrioritizedWorkQueue struct {
	*WorkQueue
	pbuf *priorityBuffer
}

// NewPrioritizedWorkQueue creates a prioritized queue for the given key
// and immediately starts its worker goroutine.
func NewPrioritizedWorkQueue(key string, cfg QueueConfig) *PrioritizedWorkQueue {
	pbuf := newPriorityBuffer()
	return &PrioritizedWorkQueue{
		WorkQueue: newWorkQueue(key, cfg, pbuf),
		pbuf:      pbuf,
	}
}

// Enqueue submits an operation at the given priority and blocks until
// the worker loop has processed it. Higher priorities are serviced
// first; equal priorities keep FIFO order.
func (q *PrioritizedWorkQueue) Enqueue(ctx context.Context, op Operation, priority Priority) (any, error) {
	return q.enqueue(ctx, op, priority)
}

// CancelByPriority atomically removes every not-yet-started item at the
// given priority, resolves each caller with ErrItemCancelled, and
// reports whether any item was removed. Items the worker loop has
// already dequeued are unaffected; they cannot be cancelled mid-flight.
//
// Cancelled items count as failed in the queue's statistics.
func (q *PrioritizedWorkQueue) CancelByPriority(priority Priority) bool {
	removed := q.pbuf.removeByPriority(priority)
	if len(removed) == 0 {
		return false
	}

	for _, it := range removed {
		q.releaseSlot()
		q.stats.recordCancelled()
		q.metrics.RecordFailed(q.key)
		it.resolve(nil, ErrItemCancelled)
	}

	q.metrics.RecordQueueDepth(q.key, q.buf.len())
	q.logger.Debug().
		Str("key", q.key).
		Int("priority", int(priority)).
		Int("removed", len(removed)).
		Msg("cancelled queued items by priority")

	return true
}
