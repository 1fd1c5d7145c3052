package core

import (
	"sync"
	"time"
)

const defaultWindowCapacity = 1000

// QueueStats is an immutable snapshot of one queue's counters.
//
// Queued, Processed and Failed only ever increase. At any point in time
// Processed+Failed <= Queued; equality holds once the queue has drained
// with no work in flight. LastProcessedAt is nil until the first item
// completes, and AverageProcessingTime is nil until the rolling window
// holds at least one sample.
type QueueStats struct {
	Key                   string
	Queued                uint64
	Processed             uint64
	Failed                uint64
	Pending               int
	LastProcessedAt       *time.Time
	AverageProcessingTime *time.Duration
}

// queueStats holds the live counters for one queue. All mutation comes
// from that queue's worker loop (or CancelByPriority), serialized under
// the local mutex; Snapshot may be called concurrently from any
// goroutine.
type queueStats struct {
	mu              sync.Mutex
	key             string
	queued          uint64
	processed       uint64
	failed          uint64
	lastProcessedAt time.Time
	window          *durationWindow
}

func newQueueStats(key string, windowCapacity int) *queueStats {
	if windowCapacity < 1 {
		windowCapacity = defaultWindowCapacity
	}
	return &queueStats{
		key:    key,
		window: newDurationWindow(windowCapacity),
	}
}

func (s *queueStats) recordQueued() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued++
}

func (s *queueStats) recordProcessed(elapsed time.Duration, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed++
	s.lastProcessedAt = now
	s.window.add(elapsed)
}

func (s *queueStats) recordFailed(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
	s.lastProcessedAt = now
}

// recordCancelled counts an item removed before execution. Cancelled
// items count as failed but do not touch lastProcessedAt or the
// duration window since no processing happened.
func (s *queueStats) recordCancelled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
}

// lastProcessed reports the most recent completion time; ok is false
// until the first item completes.
func (s *queueStats) lastProcessed() (last time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastProcessedAt, !s.lastProcessedAt.IsZero()
}

func (s *queueStats) snapshot(pending int) QueueStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := QueueStats{
		Key:       s.key,
		Queued:    s.queued,
		Processed: s.processed,
		Failed:    s.failed,
		Pending:   pending,
	}
	if !s.lastProcessedAt.IsZero() {
		at := s.lastProcessedAt
		out.LastProcessedAt = &at
	}
	if avg, ok := s.window.average(); ok {
		out.AverageProcessingTime = &avg
	}
	return out
}

// emptyStats returns the zero-valued snapshot reported for keys that
// have no live queue.
func emptyStats(key string) QueueStats {
	return QueueStats{Key: key}
}

// =============================================================================
// durationWindow: Bounded ring of processing durations
// =============================================================================

// durationWindow keeps the most recent processing durations in a fixed
// capacity ring. Adding beyond capacity evicts the oldest sample. Not
// safe for concurrent use; callers hold the queueStats mutex.
type durationWindow struct {
	items []time.Duration
	head  int
	count int
	sum   time.Duration
}

func newDurationWindow(capacity int) *durationWindow {
	return &durationWindow{items: make([]time.Duration, capacity)}
}

func (w *durationWindow) add(d time.Duration) {
	if w.count == len(w.items) {
		w.sum -= w.items[w.head]
	} else {
		w.count++
	}
	w.items[w.head] = d
	w.head = (w.head + 1) % len(w.items)
	w.sum += d
}

// average is the simple mean over the retained samples, without
// weighting or decay.
func (w *durationWindow) average() (time.Duration, bool) {
	if w.count == 0 {
		return 0, false
	}
	return w.sum / time.Duration(w.count), true
}

func (w *durationWindow) size() int {
	return w.count
}
