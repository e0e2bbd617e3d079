package task

import (
	"sync/atomic"

	"github.com/jzx17/gotaskpool/pkg/types"
)

// Handle is the caller's view of a committed task. It stays valid after the
// task itself has been consumed by a worker.
type Handle[T any] struct {
	id       string
	seq      uint64
	shared   *shared
	receiver <-chan types.Result[T]
	waited   atomic.Bool
}

// ID returns the task ID
func (h *Handle[T]) ID() string {
	return h.id
}

// Seq returns the submission sequence number
func (h *Handle[T]) Seq() uint64 {
	return h.seq
}

// State returns a snapshot of the task state without blocking
func (h *Handle[T]) State() types.TaskState {
	return h.shared.load()
}

// HasFinished reports whether the task completed
func (h *Handle[T]) HasFinished() bool {
	return h.State() == types.StateCompleted
}

// Wait blocks until the task result is available. Only the first call
// receives the result; later calls return ErrMultipleWaits immediately.
func (h *Handle[T]) Wait() (T, error) {
	var zero T

	if !h.waited.CompareAndSwap(false, true) {
		return zero, types.ErrMultipleWaits
	}

	if h.shared.cancelRequested.Load() {
		return zero, types.ErrCancelled
	}

	r, ok := <-h.receiver
	if !ok {
		if h.State() == types.StateCancelled {
			return zero, types.ErrCancelled
		}
		return zero, types.ErrChannelDisconnected
	}
	return r.Value, r.Err
}

// Cancel prevents the task from running if it has not started yet.
// It never interrupts a running closure: once the task is Running or
// Completed it returns ErrCancelAfterRunning and changes nothing.
func (h *Handle[T]) Cancel() error {
	if h.shared.requestCancel() {
		return nil
	}

	switch h.State() {
	case types.StateCancelled:
		return nil
	default:
		return types.ErrCancelAfterRunning
	}
}
