// Package types defines core interfaces and types for the task pool
package types

import "time"

// TaskState defines the lifecycle state of a task
type TaskState int32

const (
	// StatePending task is queued and has not started
	StatePending TaskState = iota
	// StateRunning task closure is executing
	StateRunning
	// StateCompleted task closure returned and its result was delivered
	StateCompleted
	// StateCancelled task was cancelled before it started
	StateCancelled
)

// String returns the string representation of TaskState
func (s TaskState) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateRunning:
		return "Running"
	case StateCompleted:
		return "Completed"
	case StateCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether the state can no longer change
func (s TaskState) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// Result is the single message delivered for a task
type Result[T any] struct {
	// Value is the closure's return value
	Value T

	// Err is set when no value is available
	Err error
}

// Runnable is the type-erased view of a task that schedulers and workers handle
type Runnable interface {
	// ID returns the task ID
	ID() string

	// Seq returns the submission sequence number
	Seq() uint64

	// Run executes the task once and returns the terminal state it reached
	Run() TaskState

	// Cancel resolves a task that will never run
	Cancel()
}

// Scheduler orders tasks and hands them to workers
type Scheduler interface {
	// Schedule inserts a task; safe for concurrent use, never blocks
	Schedule(task Runnable)

	// NextTask blocks until a task is available or the scheduler is terminated
	// and empty, in which case ok is false
	NextTask() (task Runnable, ok bool)

	// Terminate stops hand-off, wakes blocked consumers and cancels queued tasks
	Terminate()
}

// QueueLengther is implemented by schedulers that can report their backlog
type QueueLengther interface {
	Len() int
}

// PoolStats defines basic statistics for a task pool
type PoolStats struct {
	// PoolSize is the number of workers created at build time
	PoolSize int

	// AliveWorkers is the number of workers whose goroutine has not exited
	AliveWorkers int

	// ActiveWorkers is the number of workers executing a task
	ActiveWorkers int

	// QueueSize is the number of tasks waiting in the scheduler (-1 if unknown)
	QueueSize int

	// TotalCommitted is the number of tasks handed to the pool
	TotalCommitted int64

	// TotalCompleted is the number of tasks that delivered a value
	TotalCompleted int64

	// TotalCancelled is the number of tasks that delivered ErrCancelled
	TotalCancelled int64

	// Uptime is the time since the pool was built
	Uptime time.Duration
}

// ErrorHandler receives worker failures reported by the pool
type ErrorHandler func(error) error
