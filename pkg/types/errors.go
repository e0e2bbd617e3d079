// Package types defines error types
package types

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrEmpty is reserved for schedulers that report an empty queue
	ErrEmpty = errors.New("task queue is empty")

	// ErrCancelled indicates the task result is unavailable because the task was cancelled
	ErrCancelled = errors.New("task cancelled")

	// ErrTimeout indicates operation timeout (reserved, nothing produces it yet)
	ErrTimeout = errors.New("operation timeout")

	// ErrMultipleWaits indicates Wait was called more than once on the same handle
	ErrMultipleWaits = errors.New("task handle already waited")

	// ErrChannelDisconnected indicates the result channel closed without a result
	// and without a recorded cancellation
	ErrChannelDisconnected = errors.New("task result channel disconnected")

	// ErrCancelAfterRunning indicates cancellation was requested after the task started
	ErrCancelAfterRunning = errors.New("task already running")

	// ErrOther is matched by every OtherError
	ErrOther = errors.New("task error")

	// ErrInvalidConfig indicates the pool configuration was rejected
	ErrInvalidConfig = errors.New("invalid pool configuration")

	// ErrWorkerPanic is matched by every WorkerPanicError
	ErrWorkerPanic = errors.New("worker panicked")
)

// OtherError carries a free-form failure message
type OtherError struct {
	Message string
}

// NewOtherError creates a new OtherError
func NewOtherError(format string, args ...interface{}) *OtherError {
	return &OtherError{Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface
func (e *OtherError) Error() string {
	return e.Message
}

// Is reports whether target is ErrOther
func (e *OtherError) Is(target error) bool {
	return target == ErrOther
}

// WorkerPanicError records a closure panic that terminated a worker
type WorkerPanicError struct {
	// WorkerID is the worker whose goroutine exited
	WorkerID int

	// TaskID is the task that was running when the panic happened
	TaskID string

	// Recovered is the value passed to panic
	Recovered interface{}

	// Stack is the goroutine stack captured at recovery time
	Stack string
}

// NewWorkerPanicError creates a new WorkerPanicError
func NewWorkerPanicError(workerID int, taskID string, recovered interface{}, stack []byte) *WorkerPanicError {
	return &WorkerPanicError{
		WorkerID:  workerID,
		TaskID:    taskID,
		Recovered: recovered,
		Stack:     string(stack),
	}
}

// Error implements the error interface
func (e *WorkerPanicError) Error() string {
	return fmt.Sprintf("worker %d panicked while running %s: %v", e.WorkerID, e.TaskID, e.Recovered)
}

// Unwrap returns ErrWorkerPanic, or the recovered value when it is an error
func (e *WorkerPanicError) Unwrap() []error {
	if err, ok := e.Recovered.(error); ok {
		return []error{ErrWorkerPanic, err}
	}
	return []error{ErrWorkerPanic}
}

// IsTerminal reports whether err means the task will never produce a value
func IsTerminal(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, ErrChannelDisconnected)
}
