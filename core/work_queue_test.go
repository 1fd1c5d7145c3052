package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tzuhan/go-endpoint-queue/core"
)

type enqueueOutcome struct {
	value any
	err   error
}

func enqueueAsync(q *core.WorkQueue, op core.Operation) <-chan enqueueOutcome {
	out := make(chan enqueueOutcome, 1)
	go func() {
		value, err := q.Enqueue(context.Background(), op)
		out <- enqueueOutcome{value: value, err: err}
	}()
	return out
}

// enqueueStarted submits op asynchronously and returns only after the
// worker has begun executing it. Used to hold the worker so later
// submissions buffer deterministically.
func enqueueStarted(q *core.WorkQueue, op core.Operation) <-chan enqueueOutcome {
	started := make(chan struct{})
	out := enqueueAsync(q, func(ctx context.Context) (any, error) {
		close(started)
		return op(ctx)
	})
	<-started
	return out
}

func waitPending(t *testing.T, pending func() int, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return pending() == want }, time.Second, time.Millisecond,
		"pending count never reached %d", want)
}

// TestWorkQueue_FIFOOrder verifies the ordering guarantee
// Given: A queue whose worker is held by a gate while three items buffer up
// When: The gate opens
// Then: The buffered items execute in exactly submission order
func TestWorkQueue_FIFOOrder(t *testing.T) {
	q := core.NewWorkQueue("orders", core.QueueConfig{})
	defer q.Dispose()

	gate := make(chan struct{})
	blocker := enqueueStarted(q, func(ctx context.Context) (any, error) {
		<-gate
		return nil, nil
	})

	var order []int
	makeOp := func(id int) core.Operation {
		return func(ctx context.Context) (any, error) {
			// Single worker loop, so appending without a lock is safe.
			order = append(order, id)
			return id, nil
		}
	}

	results := make([]<-chan enqueueOutcome, 0, 3)
	for i := 1; i <= 3; i++ {
		results = append(results, enqueueAsync(q, makeOp(i)))
		waitPending(t, q.PendingCount, i)
	}

	close(gate)
	<-blocker
	for i, res := range results {
		outcome := <-res
		require.NoError(t, outcome.err)
		assert.Equal(t, i+1, outcome.value)
	}

	assert.Equal(t, []int{1, 2, 3}, order)
}

// TestWorkQueue_ResultsAndStats verifies the end-to-end scenario:
// three operations returning 1, 2, 3 under one key with capacity 10
// complete in order and the stats report queued=3 processed=3 failed=0
func TestWorkQueue_ResultsAndStats(t *testing.T) {
	q := core.NewWorkQueue("k", core.QueueConfig{Capacity: 10})
	defer q.Dispose()

	for i := 1; i <= 3; i++ {
		value, err := q.Enqueue(context.Background(), func(ctx context.Context) (any, error) {
			return i, nil
		})
		require.NoError(t, err)
		assert.Equal(t, i, value)
	}

	stats := q.Stats()
	assert.Equal(t, "k", stats.Key)
	assert.Equal(t, uint64(3), stats.Queued)
	assert.Equal(t, uint64(3), stats.Processed)
	assert.Equal(t, uint64(0), stats.Failed)
	require.NotNil(t, stats.LastProcessedAt)
	require.NotNil(t, stats.AverageProcessingTime)
}

// TestWorkQueue_FailureDoesNotStopWorker verifies failure isolation
// Given: An operation that fails followed by one that succeeds
// When: Both are submitted
// Then: The failure reaches only its own caller and the loop keeps going
func TestWorkQueue_FailureDoesNotStopWorker(t *testing.T) {
	q := core.NewWorkQueue("orders", core.QueueConfig{})
	defer q.Dispose()

	opErr := errors.New("backend unavailable")
	_, err := q.Enqueue(context.Background(), func(ctx context.Context) (any, error) {
		return nil, opErr
	})
	require.ErrorIs(t, err, opErr)

	value, err := q.Enqueue(context.Background(), func(ctx context.Context) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", value)

	stats := q.Stats()
	assert.Equal(t, uint64(2), stats.Queued)
	assert.Equal(t, uint64(1), stats.Processed)
	assert.Equal(t, uint64(1), stats.Failed)
	assert.NotNil(t, stats.LastProcessedAt, "failures still update lastProcessedAt")
}

// TestWorkQueue_PanicBecomesError verifies panic recovery in the worker loop
func TestWorkQueue_PanicBecomesError(t *testing.T) {
	q := core.NewWorkQueue("orders", core.QueueConfig{})
	defer q.Dispose()

	_, err := q.Enqueue(context.Background(), func(ctx context.Context) (any, error) {
		panic("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	// The worker survived the panic.
	value, err := q.Enqueue(context.Background(), func(ctx context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

// TestWorkQueue_Backpressure verifies bounded admission
// Given: A capacity-1 queue with one running and one buffered item
// When: A third submission arrives
// Then: It is not admitted until the buffered item starts draining space
func TestWorkQueue_Backpressure(t *testing.T) {
	q := core.NewWorkQueue("orders", core.QueueConfig{Capacity: 1})
	defer q.Dispose()

	gate := make(chan struct{})
	running := enqueueStarted(q, func(ctx context.Context) (any, error) {
		<-gate
		return 1, nil
	})

	// Occupies the single admission slot.
	queued := enqueueAsync(q, func(ctx context.Context) (any, error) { return 2, nil })
	waitPending(t, q.PendingCount, 1)

	third := enqueueAsync(q, func(ctx context.Context) (any, error) { return 3, nil })

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, uint64(2), q.Stats().Queued, "third submission must still be waiting for capacity")

	close(gate)
	for _, res := range []<-chan enqueueOutcome{running, queued, third} {
		outcome := <-res
		require.NoError(t, outcome.err)
	}
	assert.Equal(t, uint64(3), q.Stats().Queued)
}

// TestWorkQueue_AdmissionAbortedByContext verifies a caller waiting for
// capacity can give up: the aborted submission is never counted
func TestWorkQueue_AdmissionAbortedByContext(t *testing.T) {
	q := core.NewWorkQueue("orders", core.QueueConfig{Capacity: 1})
	defer q.Dispose()

	gate := make(chan struct{})
	running := enqueueStarted(q, func(ctx context.Context) (any, error) {
		<-gate
		return nil, nil
	})
	queued := enqueueAsync(q, func(ctx context.Context) (any, error) { return nil, nil })
	waitPending(t, q.PendingCount, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := q.Enqueue(ctx, func(ctx context.Context) (any, error) { return nil, nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(gate)
	<-running
	<-queued
	assert.Equal(t, uint64(2), q.Stats().Queued, "aborted admission must not count as queued")
}

// TestWorkQueue_DisposeDrainsAdmittedItems verifies graceful disposal
// Given: Two slow items already admitted
// When: Dispose is called
// Then: Both items still complete and new submissions are rejected
func TestWorkQueue_DisposeDrainsAdmittedItems(t *testing.T) {
	q := core.NewWorkQueue("orders", core.QueueConfig{})

	slowOp := func(ctx context.Context) (any, error) {
		time.Sleep(20 * time.Millisecond)
		return "done", nil
	}
	first := enqueueAsync(q, slowOp)
	second := enqueueAsync(q, slowOp)

	require.Eventually(t, func() bool { return q.Stats().Queued == 2 }, time.Second, time.Millisecond)
	q.Dispose()

	for _, res := range []<-chan enqueueOutcome{first, second} {
		outcome := <-res
		require.NoError(t, outcome.err)
		assert.Equal(t, "done", outcome.value)
	}

	_, err := q.Enqueue(context.Background(), func(ctx context.Context) (any, error) { return nil, nil })
	require.ErrorIs(t, err, core.ErrQueueDisposed)

	stats := q.Stats()
	assert.Equal(t, stats.Queued, stats.Processed+stats.Failed, "drained queue must balance its counters")
}

// TestWorkQueue_DisposeIdempotent verifies repeated disposal never panics
func TestWorkQueue_DisposeIdempotent(t *testing.T) {
	q := core.NewWorkQueue("orders", core.QueueConfig{})

	q.Dispose()
	q.Dispose()
	q.Dispose()

	assert.True(t, q.IsDisposed())
}

// TestWorkQueue_WaitIdle verifies the barrier drains prior work
func TestWorkQueue_WaitIdle(t *testing.T) {
	q := core.NewWorkQueue("orders", core.QueueConfig{})
	defer q.Dispose()

	var completed int
	for range 3 {
		enqueueAsync(q, func(ctx context.Context) (any, error) {
			time.Sleep(5 * time.Millisecond)
			completed++
			return nil, nil
		})
	}

	require.Eventually(t, func() bool { return q.Stats().Queued == 3 }, time.Second, time.Millisecond)
	require.NoError(t, q.WaitIdle(context.Background()))
	assert.Equal(t, 3, completed)

	q.Dispose()
	require.ErrorIs(t, q.WaitIdle(context.Background()), core.ErrQueueDisposed)
}

// TestWorkQueue_ExecutionHistory verifies the per-queue record ring
func TestWorkQueue_ExecutionHistory(t *testing.T) {
	q := core.NewWorkQueue("orders", core.QueueConfig{HistorySize: 2})
	defer q.Dispose()

	for i := 1; i <= 3; i++ {
		_, err := q.Enqueue(context.Background(), func(ctx context.Context) (any, error) {
			if i == 2 {
				return nil, errors.New("transient")
			}
			return i, nil
		})
		if i == 2 {
			require.Error(t, err)
		} else {
			require.NoError(t, err)
		}
	}

	records := q.RecentExecutions(0)
	require.Len(t, records, 2, "ring keeps only the newest records")
	assert.False(t, records[0].Failed, "newest record is the successful third item")
	assert.True(t, records[1].Failed)

	last, ok := q.LastExecution()
	require.True(t, ok)
	assert.Equal(t, "orders", last.Key)
}
