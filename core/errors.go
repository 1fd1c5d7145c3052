package core

import "errors"

var (
	// ErrQueueDisposed is returned when an operation is submitted to a
	// queue that has started or finished disposal. The operation was
	// never admitted and is not reflected in queue statistics.
	ErrQueueDisposed = errors.New("work queue is disposed")

	// ErrRegistryDisposed is returned by registry submissions after the
	// registry has been disposed.
	ErrRegistryDisposed = errors.New("queue registry is disposed")

	// ErrItemCancelled is delivered to callers whose queued items were
	// removed by CancelByPriority before execution began.
	ErrItemCancelled = errors.New("work item cancelled before execution")

	// ErrUnexpectedResultType is returned by ExecuteTyped when the
	// operation result does not match the requested type.
	ErrUnexpectedResultType = errors.New("unexpected operation result type")
)
