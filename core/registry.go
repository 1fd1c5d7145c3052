package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog"
)

// enqueueAttempts bounds the retry when a submission races the idle
// sweep: the first attempt may hit a queue that was just evicted, the
// retry lands on its lazily created replacement.
const enqueueAttempts = 3

// managedQueue is the registry's view of both queue variants.
type managedQueue interface {
	enqueue(ctx context.Context, op Operation, priority Priority) (any, error)
	Stats() QueueStats
	PendingCount() int
	Dispose()
	lastProcessed() (time.Time, bool)
}

// QueueRegistry routes submissions to per-key work queues, creating
// them lazily, and owns a background sweep that evicts queues idle for
// longer than the configured cutoff.
//
// The registry is an explicit object with a lifecycle: construct it
// with NewQueueRegistry, hold a reference, and call Dispose when done.
// All methods are safe for concurrent use.
type QueueRegistry struct {
	cfg    RegistryConfig
	queues *xsync.Map[string, managedQueue]
	logger zerolog.Logger

	disposed    atomic.Bool
	disposeOnce sync.Once
	reaperStop  chan struct{}
	reaperDone  chan struct{}
}

// NewQueueRegistry creates a registry and starts its idle sweep.
func NewQueueRegistry(cfg RegistryConfig) *QueueRegistry {
	cfg = cfg.withDefaults()

	r := &QueueRegistry{
		cfg:        cfg,
		queues:     xsync.NewMap[string, managedQueue](),
		logger:     cfg.Logger,
		reaperStop: make(chan struct{}),
		reaperDone: make(chan struct{}),
	}

	go r.reapLoop()

	return r
}

// Execute submits an operation under the given key and blocks until the
// key's worker loop has processed it. Work under the same key runs
// strictly one at a time in submission order; work under different keys
// proceeds in parallel.
func (r *QueueRegistry) Execute(ctx context.Context, key string, op Operation) (any, error) {
	return r.execute(ctx, key, op, PriorityNormal)
}

// ExecuteWithPriority is Execute with a priority tag. It requires a
// registry configured with Prioritized; on a plain registry the tag is
// ignored and dispatch stays FIFO.
func (r *QueueRegistry) ExecuteWithPriority(ctx context.Context, key string, op Operation, priority Priority) (any, error) {
	return r.execute(ctx, key, op, priority)
}

func (r *QueueRegistry) execute(ctx context.Context, key string, op Operation, priority Priority) (any, error) {
	for attempt := 0; attempt < enqueueAttempts; attempt++ {
		if r.disposed.Load() {
			return nil, ErrRegistryDisposed
		}

		value, err := r.queueFor(key).enqueue(ctx, op, priority)
		if errors.Is(err, ErrQueueDisposed) && !r.disposed.Load() {
			// Lost a race with the idle sweep; the next lookup creates a
			// fresh queue for the key.
			continue
		}
		return value, err
	}
	return nil, ErrQueueDisposed
}

// queueFor returns the live queue for key, creating it atomically on
// first use. Concurrent callers for the same new key observe exactly
// one queue instance.
func (r *QueueRegistry) queueFor(key string) managedQueue {
	q, _ := r.queues.LoadOrCompute(key, func() (managedQueue, bool) {
		if r.cfg.Prioritized {
			return NewPrioritizedWorkQueue(key, r.cfg.queueConfig()), false
		}
		return NewWorkQueue(key, r.cfg.queueConfig()), false
	})
	return q
}

// CancelByPriority removes every not-yet-started item at the given
// priority from the key's queue and reports whether any were removed.
// Returns false when no queue exists for the key or the registry is not
// in prioritized mode.
func (r *QueueRegistry) CancelByPriority(key string, priority Priority) bool {
	q, ok := r.queues.Load(key)
	if !ok {
		return false
	}
	pq, ok := q.(*PrioritizedWorkQueue)
	if !ok {
		return false
	}
	return pq.CancelByPriority(priority)
}

// GetStats returns the stats snapshot for key. Unknown keys yield a
// zero-valued snapshot carrying the requested key; no queue is created
// as a side effect.
func (r *QueueRegistry) GetStats(key string) QueueStats {
	q, ok := r.queues.Load(key)
	if !ok {
		return emptyStats(key)
	}
	return q.Stats()
}

// GetAllStats returns a point-in-time snapshot for every live key.
func (r *QueueRegistry) GetAllStats() map[string]QueueStats {
	out := make(map[string]QueueStats, r.queues.Size())
	r.queues.Range(func(key string, q managedQueue) bool {
		out[key] = q.Stats()
		return true
	})
	return out
}

// QueueCount reports the number of live queues.
func (r *QueueRegistry) QueueCount() int {
	return r.queues.Size()
}

// Dispose stops the idle sweep, disposes every live queue and clears
// the registry. Idempotent; concurrent calls after the first block
// until the first completes.
func (r *QueueRegistry) Dispose() {
	r.disposeOnce.Do(func() {
		r.disposed.Store(true)
		close(r.reaperStop)
		<-r.reaperDone

		// A submission that passed the disposed check may still create
		// a queue while we iterate, so sweep until the map stays empty.
		for r.queues.Size() > 0 {
			r.queues.Range(func(key string, q managedQueue) bool {
				r.queues.Delete(key)
				q.Dispose()
				return true
			})
		}

		r.logger.Debug().Msg("queue registry disposed")
	})
}

// reapLoop runs the periodic idle sweep until disposal.
func (r *QueueRegistry) reapLoop() {
	defer close(r.reaperDone)

	ticker := time.NewTicker(r.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.reapIdle(time.Now().Add(-r.cfg.IdleCutoff))
		case <-r.reaperStop:
			return
		}
	}
}

// reapIdle evicts and disposes every queue whose last completion is
// older than cutoff. Queues that have never processed an item are never
// reaped: idle is defined relative to last activity, not creation time.
func (r *QueueRegistry) reapIdle(cutoff time.Time) int {
	reaped := 0
	r.queues.Range(func(key string, q managedQueue) bool {
		last, ok := q.lastProcessed()
		if !ok || !last.Before(cutoff) {
			return true
		}

		r.queues.Delete(key)
		q.Dispose()
		reaped++
		r.logger.Debug().
			Str("key", key).
			Time("last_processed_at", last).
			Msg("reaped idle queue")
		return true
	})
	return reaped
}

// ExecuteTyped submits an operation with a typed result through the
// registry, sparing callers the type assertion on the returned value.
func ExecuteTyped[T any](ctx context.Context, r *QueueRegistry, key string, op func(ctx context.Context) (T, error)) (T, error) {
	value, err := r.Execute(ctx, key, func(ctx context.Context) (any, error) {
		return op(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}

	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, ErrUnexpectedResultType
	}
	return typed, nil
}
