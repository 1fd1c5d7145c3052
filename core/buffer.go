package core

import (
	"container/heap"
	"sync"
)

const (
	defaultBufferCap    = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// itemBuffer is the pending-item store behind a work queue. Push and
// close are serialized against each other so no item can slip in after
// the worker loop has drained for disposal.
type itemBuffer interface {
	// push appends an item; it fails with ErrQueueDisposed once the
	// buffer has been closed.
	push(it *workItem) error
	pop() (*workItem, bool)
	len() int
	close()
}

// =============================================================================
// fifoBuffer: Strict submission-order buffer for plain work queues
// =============================================================================

type fifoBuffer struct {
	mu     sync.Mutex
	items  []*workItem
	closed bool
}

func newFIFOBuffer() *fifoBuffer {
	return &fifoBuffer{
		items: make([]*workItem, 0, defaultBufferCap),
	}
}

func (b *fifoBuffer) push(it *workItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrQueueDisposed
	}
	b.items = append(b.items, it)
	return nil
}

func (b *fifoBuffer) pop() (*workItem, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == 0 {
		return nil, false
	}

	it := b.items[0]
	// Zero out the element in the underlying array to prevent memory leak
	b.items[0] = nil
	b.items = b.items[1:]
	b.maybeCompactLocked()

	return it, true
}

func (b *fifoBuffer) maybeCompactLocked() {
	n := len(b.items)
	c := cap(b.items)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		b.items = make([]*workItem, 0, defaultBufferCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultBufferCap), n)

	newSlice := make([]*workItem, n, newCap)
	copy(newSlice, b.items)
	b.items = newSlice
}

func (b *fifoBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *fifoBuffer) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// =============================================================================
// priorityBuffer: Min-Heap based buffer with Stability (FIFO for same priority)
// =============================================================================

type priorityEntry struct {
	item     *workItem
	sequence uint64 // For stability
	index    int    // For heap
}

// priorityHeap implements heap.Interface
type priorityHeap []*priorityEntry

func (h priorityHeap) Len() int { return len(h) }

// Less implements priority logic: High priority first, then Small sequence first (FIFO)
func (h priorityHeap) Less(i, j int) bool {
	if h[i].item.priority > h[j].item.priority {
		return true
	}
	if h[i].item.priority < h[j].item.priority {
		return false
	}
	// Same priority: earlier sequence first (FIFO)
	return h[i].sequence < h[j].sequence
}

func (h priorityHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *priorityHeap) Push(x any) {
	n := len(*h)
	entry := x.(*priorityEntry)
	entry.index = n
	*h = append(*h, entry)
}

func (h *priorityHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil // Avoid memory leak
	entry.index = -1
	*h = old[0 : n-1]
	return entry
}

type priorityBuffer struct {
	mu           sync.Mutex
	pq           priorityHeap
	nextSequence uint64
	closed       bool
}

func newPriorityBuffer() *priorityBuffer {
	return &priorityBuffer{
		pq: make(priorityHeap, 0, defaultBufferCap),
	}
}

func (b *priorityBuffer) push(it *workItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrQueueDisposed
	}

	entry := &priorityEntry{
		item:     it,
		sequence: b.nextSequence,
	}
	b.nextSequence++

	heap.Push(&b.pq, entry)
	return nil
}

func (b *priorityBuffer) pop() (*workItem, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pq) == 0 {
		return nil, false
	}

	entry := heap.Pop(&b.pq).(*priorityEntry)
	return entry.item, true
}

// removeByPriority atomically extracts every buffered item at the given
// priority. Items already popped by the worker loop are unaffected.
// Remaining entries keep their sequence numbers, so FIFO order inside
// the surviving lanes is preserved.
func (b *priorityBuffer) removeByPriority(priority Priority) []*workItem {
	b.mu.Lock()
	defer b.mu.Unlock()

	var removed []*workItem
	kept := make(priorityHeap, 0, len(b.pq))
	for _, entry := range b.pq {
		if entry.item.priority == priority {
			removed = append(removed, entry.item)
		} else {
			kept = append(kept, entry)
		}
	}
	if len(removed) == 0 {
		return nil
	}

	b.pq = kept
	heap.Init(&b.pq)
	return removed
}

func (b *priorityBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pq)
}

func (b *priorityBuffer) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
