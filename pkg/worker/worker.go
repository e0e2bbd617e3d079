package worker

import (
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jzx17/gotaskpool/internal/cpu"
	"github.com/jzx17/gotaskpool/pkg/types"
)

// WorkerState defines the state of a Worker
type WorkerState int32

const (
	// WorkerStateIdle represents idle worker state
	WorkerStateIdle WorkerState = iota
	// WorkerStateWorking represents working worker state
	WorkerStateWorking
	// WorkerStateStopped represents stopped worker state
	WorkerStateStopped
)

// String returns the string representation of WorkerState
func (ws WorkerState) String() string {
	switch ws {
	case WorkerStateIdle:
		return "idle"
	case WorkerStateWorking:
		return "working"
	case WorkerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Worker pulls tasks from a scheduler and runs them on its own goroutine
// until the scheduler is terminated.
type Worker struct {
	id     int
	source types.Scheduler
	state  atomic.Int32

	// statistics
	totalProcessed atomic.Int64
	totalCancelled atomic.Int64
	totalExecNanos atomic.Int64
	lastTaskTime   atomic.Int64 // Unix nanosecond timestamp

	// pool callbacks for syncing statistics
	completionCallback func(time.Duration, types.TaskState)
	exitCallback       func(*Worker, error)

	clock  types.Clock
	logger *zap.SugaredLogger
	pin    bool

	// lifecycle
	started  atomic.Bool
	done     chan struct{}
	stopOnce sync.Once
	exitErr  error

	mu sync.RWMutex
}

// NewWorker creates a new Worker with default real clock
func NewWorker(id int, source types.Scheduler) *Worker {
	return NewWorkerWithClock(id, source, types.NewRealClock())
}

// NewWorkerWithClock creates a new Worker with specified clock
func NewWorkerWithClock(id int, source types.Scheduler, clock types.Clock) *Worker {
	if clock == nil {
		clock = types.NewRealClock()
	}

	return &Worker{
		id:     id,
		source: source,
		clock:  clock,
		logger: zap.L().Sugar().Named("worker"),
		done:   make(chan struct{}),
	}
}

// ID returns the Worker ID
func (w *Worker) ID() int {
	return w.id
}

// State returns the current Worker state
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// SetLogger replaces the worker logger
func (w *Worker) SetLogger(logger *zap.Logger) {
	if logger == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.logger = logger.Sugar().Named("worker")
}

// SetPinned makes the worker lock its goroutine to an OS thread, pinned to a
// CPU core where the platform allows. Must be called before Start.
func (w *Worker) SetPinned(pin bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pin = pin
}

// SetCompletionCallback sets the callback invoked after every task run
func (w *Worker) SetCompletionCallback(callback func(time.Duration, types.TaskState)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.completionCallback = callback
}

// SetExitCallback sets the callback invoked once the worker goroutine exits.
// err is non-nil when a task panic ended the worker.
func (w *Worker) SetExitCallback(callback func(*Worker, error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.exitCallback = callback
}

// Start launches the worker goroutine. Calling it again has no effect.
func (w *Worker) Start() {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run()
}

func (w *Worker) run() {
	w.mu.RLock()
	logger, pin, onExit := w.logger, w.pin, w.exitCallback
	w.mu.RUnlock()

	var err error
	defer func() {
		w.state.Store(int32(WorkerStateStopped))
		w.exitErr = err
		if onExit != nil {
			onExit(w, err)
		}
		close(w.done)
	}()

	if pin {
		release, core, pinErr := cpu.PinWorker(w.id)
		defer release()
		if pinErr != nil {
			logger.Warnw("cpu pinning failed, running on a locked thread", "worker_id", w.id, "error", pinErr)
		} else if core >= 0 {
			logger.Debugw("worker pinned", "worker_id", w.id, "core", core)
		}
	}

	for {
		next, ok := w.source.NextTask()
		if !ok {
			logger.Debugw("worker exiting", "worker_id", w.id)
			return
		}
		if err = w.processTask(next); err != nil {
			logger.Errorw("task panicked, worker exiting", "worker_id", w.id, "error", err)
			return
		}
	}
}

// processTask runs a single task and updates statistics
func (w *Worker) processTask(task types.Runnable) error {
	w.state.Store(int32(WorkerStateWorking))

	startTime := w.clock.Now()
	w.lastTaskTime.Store(startTime.UnixNano())

	state, err := w.executeTask(task)

	executionTime := w.clock.Since(startTime)
	w.totalExecNanos.Add(int64(executionTime))
	if err != nil {
		return err
	}

	switch state {
	case types.StateCompleted:
		w.totalProcessed.Add(1)
	case types.StateCancelled:
		w.totalCancelled.Add(1)
	}
	w.state.Store(int32(WorkerStateIdle))

	w.mu.RLock()
	callback := w.completionCallback
	w.mu.RUnlock()

	if callback != nil {
		callback(executionTime, state)
	}
	return nil
}

// executeTask runs a task, turning a closure panic into a WorkerPanicError
func (w *Worker) executeTask(task types.Runnable) (state types.TaskState, err error) {
	defer func() {
		if r := recover(); r != nil {
			state = types.StateRunning
			err = types.NewWorkerPanicError(w.id, task.ID(), r, debug.Stack())
		}
	}()

	return task.Run(), nil
}

// Done is closed once the worker goroutine has exited
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Stop waits for the worker goroutine to exit and returns the panic that
// ended it, if any. The worker only exits once its scheduler is terminated
// or a task panics. Only the first call joins; later calls return nil.
func (w *Worker) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		if !w.started.Load() {
			w.state.Store(int32(WorkerStateStopped))
			return
		}
		<-w.done
		err = w.exitErr
	})
	return err
}

// Stats gets Worker statistics
func (w *Worker) Stats() WorkerStats {
	var last time.Time
	if ns := w.lastTaskTime.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}

	return WorkerStats{
		ID:                 w.id,
		State:              w.State(),
		TotalProcessed:     w.totalProcessed.Load(),
		TotalCancelled:     w.totalCancelled.Load(),
		TotalExecutionTime: time.Duration(w.totalExecNanos.Load()),
		LastTaskTime:       last,
	}
}

// WorkerStats defines Worker statistics
type WorkerStats struct {
	ID                 int
	State              WorkerState
	TotalProcessed     int64
	TotalCancelled     int64
	TotalExecutionTime time.Duration
	LastTaskTime       time.Time
}

// IsActive checks if Worker is active
func (ws WorkerStats) IsActive() bool {
	return ws.State == WorkerStateWorking
}

// IsIdle checks if Worker is idle
func (ws WorkerStats) IsIdle() bool {
	return ws.State == WorkerStateIdle
}

// IsStopped checks if the Worker goroutine has exited
func (ws WorkerStats) IsStopped() bool {
	return ws.State == WorkerStateStopped
}

// AverageExecutionTime returns the mean time spent per dequeued task
func (ws WorkerStats) AverageExecutionTime() time.Duration {
	total := ws.TotalProcessed + ws.TotalCancelled
	if total == 0 {
		return 0
	}
	return ws.TotalExecutionTime / time.Duration(total)
}
