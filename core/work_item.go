package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// itemResult carries the outcome of one operation back to its caller.
type itemResult struct {
	value any
	err   error
}

// workItem wraps one submitted operation together with its one-shot
// completion handle. The handle has exactly one writer (the worker
// loop, or CancelByPriority while the item is still buffered) and
// exactly one reader (the submitting caller).
type workItem struct {
	id         uuid.UUID
	op         Operation
	ctx        context.Context
	priority   Priority
	enqueuedAt time.Time

	// done is buffered so the worker never blocks on a caller that
	// abandoned the submission after its context fired.
	done chan itemResult
}

func newWorkItem(ctx context.Context, op Operation, priority Priority) *workItem {
	return &workItem{
		id:         uuid.New(),
		op:         op,
		ctx:        ctx,
		priority:   priority,
		enqueuedAt: time.Now(),
		done:       make(chan itemResult, 1),
	}
}

// resolve completes the item. It must be called exactly once per item;
// the buffer ownership rules guarantee a single resolver (an item is
// either popped by the worker loop or removed under the buffer lock by
// CancelByPriority, never both).
func (it *workItem) resolve(value any, err error) {
	it.done <- itemResult{value: value, err: err}
}
