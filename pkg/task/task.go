// Package task provides the unit of work executed by the pool and the handle
// callers use to observe it.
package task

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jzx17/gotaskpool/pkg/types"
)

// FinishHook is called once with the terminal state after a result was delivered
type FinishHook func(id string, state types.TaskState)

// Option configures a Task
type Option func(*options)

type options struct {
	id   string
	seq  uint64
	hook FinishHook
}

// WithID sets a custom task ID
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithSeq sets the submission sequence number
func WithSeq(seq uint64) Option {
	return func(o *options) {
		o.seq = seq
	}
}

// WithFinishHook registers a hook called after the result is delivered
func WithFinishHook(hook FinishHook) Option {
	return func(o *options) {
		o.hook = hook
	}
}

// shared is the state visible to both the task and its handle.
// The two fields are independent atomics, not covered by any lock.
type shared struct {
	state           atomic.Int32
	cancelRequested atomic.Bool
}

func (s *shared) load() types.TaskState {
	return types.TaskState(s.state.Load())
}

// requestCancel moves Pending to Cancelled. The CAS on the state cell decides
// the race against a worker moving the same task to Running.
func (s *shared) requestCancel() bool {
	if s.state.CompareAndSwap(int32(types.StatePending), int32(types.StateCancelled)) {
		s.cancelRequested.Store(true)
		return true
	}
	return false
}

// oneshot is a single-producer single-consumer result slot
type oneshot[T any] struct {
	ch   chan types.Result[T]
	once sync.Once
}

func newOneshot[T any]() *oneshot[T] {
	return &oneshot[T]{ch: make(chan types.Result[T], 1)}
}

// send delivers r unless something was already delivered or the slot closed
func (o *oneshot[T]) send(r types.Result[T]) bool {
	sent := false
	o.once.Do(func() {
		o.ch <- r
		close(o.ch)
		sent = true
	})
	return sent
}

// drop closes the slot without a message
func (o *oneshot[T]) drop() {
	o.once.Do(func() {
		close(o.ch)
	})
}

// Task is a closure bound to its result channel
type Task[T any] struct {
	id     string
	seq    uint64
	fn     func() T
	shared *shared
	sender *oneshot[T]
	hook   FinishHook
	handle *Handle[T]
}

// New creates a task and the handle that observes it
func New[T any](fn func() T, opts ...Option) *Task[T] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.id == "" {
		o.id = "task-" + uuid.NewString()
	}

	t := &Task[T]{
		id:     o.id,
		seq:    o.seq,
		fn:     fn,
		shared: &shared{},
		sender: newOneshot[T](),
		hook:   o.hook,
	}
	t.handle = &Handle[T]{
		id:       t.id,
		seq:      t.seq,
		shared:   t.shared,
		receiver: t.sender.ch,
	}
	return t
}

// ID returns the task ID
func (t *Task[T]) ID() string {
	return t.id
}

// Seq returns the submission sequence number
func (t *Task[T]) Seq() uint64 {
	return t.seq
}

// Handle returns the handle bound to this task
func (t *Task[T]) Handle() *Handle[T] {
	return t.handle
}

// State returns the current task state
func (t *Task[T]) State() types.TaskState {
	return t.shared.load()
}

// Run executes the task. If the closure panics the result channel is closed
// without a message and the panic propagates to the caller.
func (t *Task[T]) Run() types.TaskState {
	defer t.sender.drop()

	if t.shared.cancelRequested.Load() ||
		!t.shared.state.CompareAndSwap(int32(types.StatePending), int32(types.StateRunning)) {
		state := t.shared.load()
		if state == types.StateCancelled {
			t.deliver(types.Result[T]{Err: types.ErrCancelled}, types.StateCancelled)
		}
		return state
	}

	if t.fn == nil {
		t.shared.state.Store(int32(types.StateCompleted))
		t.deliver(types.Result[T]{Err: types.NewOtherError("%s has no function", t.id)}, types.StateCompleted)
		return types.StateCompleted
	}

	value := t.fn()
	t.shared.state.Store(int32(types.StateCompleted))
	t.deliver(types.Result[T]{Value: value}, types.StateCompleted)
	return types.StateCompleted
}

// Cancel resolves a task that will never run. A task that already started is
// left alone.
func (t *Task[T]) Cancel() {
	t.shared.requestCancel()
	if t.shared.load() != types.StateCancelled {
		return
	}
	t.deliver(types.Result[T]{Err: types.ErrCancelled}, types.StateCancelled)
}

func (t *Task[T]) deliver(r types.Result[T], state types.TaskState) {
	if t.sender.send(r) && t.hook != nil {
		t.hook(t.id, state)
	}
}
