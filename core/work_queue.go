package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// disposeGrace is how long Dispose waits per outstanding item before
// giving up on the drain and returning anyway.
const disposeGrace = 5 * time.Second

// Rejection reasons passed to Metrics.RecordRejected.
const (
	RejectedDisposed  = "disposed"
	RejectedCancelled = "cancelled"
)

// WorkQueue serializes operations submitted under one key.
//
// Exactly one worker goroutine is alive per WorkQueue for its entire
// lifetime. Items complete in strict submission order; two items from
// the same queue never execute concurrently. Parallelism in a larger
// system comes from running many queues (one per key), not from within
// a queue.
//
// A bounded queue (capacity > 0) applies backpressure: Enqueue suspends
// until the worker loop starts draining space or the caller's context
// fires. An unbounded queue admits immediately.
type WorkQueue struct {
	key string
	buf itemBuffer

	// slots is the admission semaphore; nil when the queue is unbounded.
	slots chan struct{}

	// wake nudges the worker loop after a push. Capacity 1: a pending
	// token already guarantees a re-check.
	wake    chan struct{}
	closing chan struct{}
	stopped chan struct{}

	closed      atomic.Bool
	disposeOnce sync.Once

	stats   *queueStats
	history *executionHistory
	logger  zerolog.Logger
	metrics Metrics
}

// NewWorkQueue creates a queue for the given key and immediately starts
// its worker goroutine.
func NewWorkQueue(key string, cfg QueueConfig) *WorkQueue {
	return newWorkQueue(key, cfg, newFIFOBuffer())
}

func newWorkQueue(key string, cfg QueueConfig, buf itemBuffer) *WorkQueue {
	cfg = cfg.withDefaults()

	q := &WorkQueue{
		key:     key,
		buf:     buf,
		wake:    make(chan struct{}, 1),
		closing: make(chan struct{}),
		stopped: make(chan struct{}),
		stats:   newQueueStats(key, cfg.WindowSize),
		history: newExecutionHistory(cfg.HistorySize),
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	if cfg.Capacity > 0 {
		q.slots = make(chan struct{}, cfg.Capacity)
	}

	go q.runLoop()

	return q
}

// Key returns the queue's identity.
func (q *WorkQueue) Key() string {
	return q.key
}

// Enqueue submits an operation and blocks until the worker loop has
// processed it, returning the operation's result or re-raising its
// error. On a full bounded queue the call suspends until space frees
// up; cancelling ctx aborts both the wait for capacity and the
// operation itself once running.
func (q *WorkQueue) Enqueue(ctx context.Context, op Operation) (any, error) {
	return q.enqueue(ctx, op, PriorityNormal)
}

func (q *WorkQueue) enqueue(ctx context.Context, op Operation, priority Priority) (any, error) {
	if q.closed.Load() {
		q.metrics.RecordRejected(q.key, RejectedDisposed)
		return nil, ErrQueueDisposed
	}

	if q.slots != nil {
		select {
		case q.slots <- struct{}{}:
		case <-ctx.Done():
			q.metrics.RecordRejected(q.key, RejectedCancelled)
			return nil, ctx.Err()
		case <-q.closing:
			q.metrics.RecordRejected(q.key, RejectedDisposed)
			return nil, ErrQueueDisposed
		}
	}

	it := newWorkItem(ctx, op, priority)
	if err := q.buf.push(it); err != nil {
		q.releaseSlot()
		q.metrics.RecordRejected(q.key, RejectedDisposed)
		return nil, err
	}

	if priority != priorityIdleBarrier {
		q.stats.recordQueued()
		q.metrics.RecordQueued(q.key)
		q.metrics.RecordQueueDepth(q.key, q.buf.len())
	}

	select {
	case q.wake <- struct{}{}:
	default:
	}

	select {
	case res := <-it.done:
		return res.value, res.err
	case <-ctx.Done():
		// The item stays admitted; the worker resolves it into the
		// buffered handle and the operation sees the cancelled context.
		return nil, ctx.Err()
	}
}

// Stats returns an immutable snapshot of the queue's counters. Safe to
// call concurrently with in-flight work.
func (q *WorkQueue) Stats() QueueStats {
	return q.stats.snapshot(q.buf.len())
}

// PendingCount reports the number of buffered, not-yet-started items.
func (q *WorkQueue) PendingCount() int {
	return q.buf.len()
}

// RecentExecutions returns up to limit completed execution records,
// newest first.
func (q *WorkQueue) RecentExecutions(limit int) []ExecutionRecord {
	return q.history.Recent(limit)
}

// LastExecution returns the most recent completed execution record.
func (q *WorkQueue) LastExecution() (ExecutionRecord, bool) {
	return q.history.Last()
}

// IsDisposed reports whether Dispose has started.
func (q *WorkQueue) IsDisposed() bool {
	return q.closed.Load()
}

// lastProcessed reports the most recent completion time; ok is false if
// the queue has never completed an item. Used by the registry's idle
// sweep.
func (q *WorkQueue) lastProcessed() (time.Time, bool) {
	return q.stats.lastProcessed()
}

// WaitIdle blocks until every item buffered before the call has
// completed. Implemented as a barrier item submitted through the normal
// admission path, so it honors capacity limits and returns
// ErrQueueDisposed on a disposed queue.
func (q *WorkQueue) WaitIdle(ctx context.Context) error {
	_, err := q.enqueue(ctx, func(context.Context) (any, error) { return nil, nil }, priorityIdleBarrier)
	return err
}

// Dispose stops the queue: new submissions are rejected, items already
// admitted are drained, and the call waits up to a per-item grace
// period for outstanding work before returning. Idempotent; concurrent
// calls after the first return once the first completes or times out.
func (q *WorkQueue) Dispose() {
	q.disposeOnce.Do(func() {
		q.closed.Store(true)
		q.buf.close()
		close(q.closing)

		grace := disposeGrace
		if pending := q.buf.len(); pending > 1 {
			grace = time.Duration(pending) * disposeGrace
		}

		timer := time.NewTimer(grace)
		defer timer.Stop()

		select {
		case <-q.stopped:
		case <-timer.C:
			q.logger.Warn().
				Str("key", q.key).
				Dur("grace", grace).
				Msg("dispose grace period elapsed with work still in flight")
		}
	})
}

// runLoop is the queue's single worker. It runs until disposal and
// never terminates because of an individual item's failure.
func (q *WorkQueue) runLoop() {
	defer close(q.stopped)

	for {
		it, ok := q.buf.pop()
		if !ok {
			select {
			case <-q.wake:
				continue
			case <-q.closing:
				q.drainForDispose()
				return
			}
		}

		q.releaseSlot()
		q.runItem(it)
	}
}

// drainForDispose runs everything still buffered at disposal time. The
// buffer is already closed to pushes, so this terminates.
func (q *WorkQueue) drainForDispose() {
	for {
		it, ok := q.buf.pop()
		if !ok {
			return
		}
		q.releaseSlot()
		q.runItem(it)
	}
}

func (q *WorkQueue) runItem(it *workItem) {
	// Idle barriers are synchronization points, not work; they leave no
	// trace in stats or history.
	if it.priority == priorityIdleBarrier {
		value, err := q.invoke(it)
		it.resolve(value, err)
		return
	}

	start := time.Now()
	value, err := q.invoke(it)
	finished := time.Now()
	elapsed := finished.Sub(start)

	if err != nil {
		q.stats.recordFailed(finished)
		q.metrics.RecordFailed(q.key)
		q.logger.Debug().
			Str("key", q.key).
			Stringer("item_id", it.id).
			Dur("elapsed", elapsed).
			Err(err).
			Msg("operation failed")
	} else {
		q.stats.recordProcessed(elapsed, finished)
		q.metrics.RecordProcessed(q.key, it.priority, elapsed)
	}

	q.history.Add(ExecutionRecord{
		ItemID:     it.id,
		Key:        q.key,
		Priority:   it.priority,
		StartedAt:  start,
		FinishedAt: finished,
		Duration:   elapsed,
		Failed:     err != nil,
	})
	q.metrics.RecordQueueDepth(q.key, q.buf.len())

	it.resolve(value, err)
}

// invoke runs the operation with the submitting caller's context and
// converts panics into errors so a panicking item cannot kill the
// worker loop.
func (q *WorkQueue) invoke(it *workItem) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			value = nil
			err = fmt.Errorf("operation panicked: %v", rec)
		}
	}()
	return it.op(it.ctx)
}

func (q *WorkQueue) releaseSlot() {
	if q.slots != nil {
		<-q.slots
	}
}
