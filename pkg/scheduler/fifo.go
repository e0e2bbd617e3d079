package scheduler

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/jzx17/gotaskpool/pkg/types"
)

// FIFOScheduler hands tasks to workers in submission order
type FIFOScheduler struct {
	mu         sync.Mutex
	cond       *sync.Cond
	tasks      *queue.Queue
	terminated bool
}

// NewFIFOScheduler creates a new FIFO scheduler
func NewFIFOScheduler() *FIFOScheduler {
	s := &FIFOScheduler{
		tasks: queue.New(),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Schedule appends a task and wakes one waiting worker. A task scheduled
// after Terminate is cancelled immediately.
func (s *FIFOScheduler) Schedule(task types.Runnable) {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		task.Cancel()
		return
	}
	s.tasks.Add(task)
	s.mu.Unlock()

	s.cond.Signal()
}

// NextTask blocks until a task is available or the scheduler is terminated
func (s *FIFOScheduler) NextTask() (types.Runnable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.tasks.Length() == 0 {
		if s.terminated {
			return nil, false
		}
		s.cond.Wait()
	}

	return s.tasks.Remove().(types.Runnable), true
}

// Terminate stops the scheduler and cancels every queued task
func (s *FIFOScheduler) Terminate() {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return
	}
	s.terminated = true

	remaining := make([]types.Runnable, 0, s.tasks.Length())
	for s.tasks.Length() > 0 {
		remaining = append(remaining, s.tasks.Remove().(types.Runnable))
	}
	s.mu.Unlock()

	s.cond.Broadcast()

	for _, task := range remaining {
		task.Cancel()
	}
}

// Len returns the number of queued tasks
func (s *FIFOScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.Length()
}

// IsTerminated checks if Terminate has been called
func (s *FIFOScheduler) IsTerminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

var (
	_ types.Scheduler     = (*FIFOScheduler)(nil)
	_ types.QueueLengther = (*FIFOScheduler)(nil)
)
